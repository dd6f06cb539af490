package esmerald

import (
	"encoding/json"
	"path"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const refPrefix = "#/components/schemas/"

// JSONSchema represents a JSON Schema object (subset for OpenAPI 3.1).
type JSONSchema struct {
	Ref         string `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string `json:"format,omitempty" yaml:"format,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Properties map[string]JSONSchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items      *JSONSchema           `json:"items,omitempty" yaml:"items,omitempty"`
	Required   []string              `json:"required,omitempty" yaml:"required,omitempty"`
	Enum       []string              `json:"enum,omitempty" yaml:"enum,omitempty"`
	AnyOf      []JSONSchema          `json:"anyOf,omitempty" yaml:"anyOf,omitempty"`

	// AdditionalProperties can be true (any) or a schema.
	AdditionalProperties *JSONSchema `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`

	ContentEncoding  string `json:"contentEncoding,omitempty" yaml:"contentEncoding,omitempty"`
	ContentMediaType string `json:"contentMediaType,omitempty" yaml:"contentMediaType,omitempty"`

	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MinItems  *int     `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems  *int     `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`

	Default    any   `json:"default,omitempty" yaml:"default,omitempty"`
	Examples   []any `json:"examples,omitempty" yaml:"examples,omitempty"`
	Deprecated bool  `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// schemaRegistry turns Go types into JSON Schema fragments. Named struct
// types are emitted once under defs and referenced with $ref; everything
// else is inlined. An inline registry never emits refs.
type schemaRegistry struct {
	defs   map[string]JSONSchema
	names  map[reflect.Type]string
	owners map[string]reflect.Type
	inline bool

	// visiting guards inline recursion through self-referential types.
	visiting map[reflect.Type]bool
}

func newSchemaRegistry() *schemaRegistry {
	return &schemaRegistry{
		defs:     make(map[string]JSONSchema),
		names:    make(map[reflect.Type]string),
		owners:   make(map[string]reflect.Type),
		visiting: make(map[reflect.Type]bool),
	}
}

// typeToSchema converts a reflect.Type to an inline JSONSchema.
func typeToSchema(t reflect.Type) JSONSchema {
	reg := newSchemaRegistry()
	reg.inline = true
	return reg.typeToSchema(t)
}

// structToSchema converts a struct type to an inline JSONSchema with properties.
func structToSchema(t reflect.Type) JSONSchema {
	reg := newSchemaRegistry()
	reg.inline = true
	return reg.structSchema(t)
}

// reserve claims component names for definitions that are not derived
// from Go types, so user types sharing the name get qualified instead.
func (r *schemaRegistry) reserve(names ...string) {
	for _, n := range names {
		r.owners[n] = nil
	}
}

func (r *schemaRegistry) typeToSchema(t reflect.Type) JSONSchema {
	if t.Kind() == reflect.Pointer {
		return r.typeToSchema(t.Elem())
	}

	switch t {
	case reflect.TypeFor[time.Time]():
		return JSONSchema{Type: "string", Format: "date-time"}
	case reflect.TypeFor[time.Duration]():
		return JSONSchema{Type: "string", Format: "duration"}
	case reflect.TypeFor[Void](), reflect.TypeFor[json.RawMessage]():
		return JSONSchema{}
	case reflect.TypeFor[FileUpload]():
		return JSONSchema{Type: "string", Format: "binary"}
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String:
		return JSONSchema{Type: "string"}
	case reflect.Bool:
		return JSONSchema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return JSONSchema{Type: "number"}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return JSONSchema{Type: "string", ContentEncoding: "base64"}
		}
		items := r.typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Array:
		items := r.typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return JSONSchema{Type: "object"}
		}
		valSchema := r.typeToSchema(t.Elem())
		return JSONSchema{Type: "object", AdditionalProperties: &valSchema}
	case reflect.Struct:
		if t.Name() == "" || r.inline {
			if r.visiting[t] {
				return JSONSchema{Type: "object"}
			}
			r.visiting[t] = true
			defer delete(r.visiting, t)
			return r.structSchema(t)
		}
		return r.ref(t)
	default:
		return JSONSchema{}
	}
}

// ref registers a named struct type and returns a reference to it.
func (r *schemaRegistry) ref(t reflect.Type) JSONSchema {
	if name, ok := r.names[t]; ok {
		return JSONSchema{Ref: refPrefix + name}
	}

	name := r.claim(t)

	// The placeholder breaks recursion through self-referential types.
	r.defs[name] = JSONSchema{}
	r.defs[name] = r.structSchema(t)

	return JSONSchema{Ref: refPrefix + name}
}

// claim picks a unique component name for t.
func (r *schemaRegistry) claim(t reflect.Type) string {
	base := schemaName(t)
	name := base
	if _, taken := r.owners[name]; taken {
		name = sanitizeName(path.Base(t.PkgPath())) + "_" + base
	}
	for i := 2; ; i++ {
		if _, taken := r.owners[name]; !taken {
			break
		}
		name = sanitizeName(path.Base(t.PkgPath())) + "_" + base + strconv.Itoa(i)
	}
	r.owners[name] = t
	r.names[t] = name
	return name
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// schemaName returns the component name of a named type. Generic
// instantiations such as Page[pkg.Item] become Page_Item.
func schemaName(t reflect.Type) string {
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		parts := []string{name[:i]}
		for arg := range strings.SplitSeq(strings.TrimSuffix(name[i+1:], "]"), ",") {
			parts = append(parts, arg[strings.LastIndexAny(arg, "./")+1:])
		}
		name = strings.Join(parts, "_")
	}
	return sanitizeName(name)
}

func sanitizeName(s string) string {
	return strings.Trim(invalidNameChars.ReplaceAllString(s, "_"), "_")
}

// structSchema builds an object schema from the exported fields of t,
// following encoding/json naming rules. Embedded structs without a json
// name are flattened into the parent.
func (r *schemaRegistry) structSchema(t reflect.Type) JSONSchema {
	schema := JSONSchema{
		Type:       "object",
		Properties: make(map[string]JSONSchema),
	}
	r.collectFields(t, &schema)
	return schema
}

func (r *schemaRegistry) collectFields(t reflect.Type, schema *JSONSchema) {
	for i := range t.NumField() {
		f := t.Field(i)

		if f.Anonymous && f.Tag.Get("json") == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && ft != reflect.TypeFor[RawRequest]() && ft != reflect.TypeFor[time.Time]() {
				r.collectFields(ft, schema)
				continue
			}
		}

		if !f.IsExported() {
			continue
		}

		// Param and binding fields are not part of the body schema.
		if isParamField(f) {
			continue
		}

		// Skip embedded RawRequest.
		if f.Type == reflect.TypeFor[RawRequest]() {
			continue
		}

		name := jsonFieldName(f)
		if name == "-" {
			continue
		}

		prop := r.typeToSchema(f.Type)
		if doc := f.Tag.Get("doc"); doc != "" {
			prop.Description = doc
		}
		if f.Tag.Get("deprecated") == "true" {
			prop.Deprecated = true
		}
		applyConstraintTags(&prop, f)

		schema.Properties[name] = prop

		if f.Tag.Get("required") == "true" {
			schema.Required = append(schema.Required, name)
		}
	}
}

// applyConstraintTags copies validation constraint tags onto a schema.
func applyConstraintTags(s *JSONSchema, f reflect.StructField) {
	if v, ok := intTag(f, "minLength"); ok {
		s.MinLength = &v
	}
	if v, ok := intTag(f, "maxLength"); ok {
		s.MaxLength = &v
	}
	if tag := f.Tag.Get("pattern"); tag != "" {
		s.Pattern = tag
	}
	if v, ok := floatTag(f, "minimum"); ok {
		s.Minimum = &v
	}
	if v, ok := floatTag(f, "maximum"); ok {
		s.Maximum = &v
	}
	if tag := f.Tag.Get("enum"); tag != "" {
		s.Enum = strings.Split(tag, ",")
	}
	if v, ok := intTag(f, "minItems"); ok {
		s.MinItems = &v
	}
	if v, ok := intTag(f, "maxItems"); ok {
		s.MaxItems = &v
	}
	if tag, ok := f.Tag.Lookup("default"); ok && tag != "" {
		s.Default = defaultValue(f.Type, tag)
	}
	if tag := f.Tag.Get("example"); tag != "" {
		s.Examples = []any{tag}
	}
}

// defaultValue types a default tag after the field kind so that the
// document carries 10 rather than "10" for an integer field.
func defaultValue(t reflect.Type, tag string) any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	//exhaustive:ignore
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, err := strconv.ParseInt(tag, 10, 64); err == nil {
			return n
		}
	case reflect.Float32, reflect.Float64:
		if n, err := strconv.ParseFloat(tag, 64); err == nil {
			return n
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(tag); err == nil {
			return b
		}
	}
	return tag
}

func intTag(f reflect.StructField, key string) (int, bool) {
	tag := f.Tag.Get(key)
	if tag == "" {
		return 0, false
	}
	n, err := strconv.Atoi(tag)
	return n, err == nil
}

func floatTag(f reflect.StructField, key string) (float64, bool) {
	tag := f.Tag.Get(key)
	if tag == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(tag, 64)
	return n, err == nil
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _ := tagOptions(tag)
	if name == "" {
		return f.Name
	}
	return name
}

// formSchema describes a form request type: one property per form tag.
func (r *schemaRegistry) formSchema(t reflect.Type) JSONSchema {
	schema := JSONSchema{
		Type:       "object",
		Properties: make(map[string]JSONSchema),
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("form")
		if name == "" {
			continue
		}
		prop := r.typeToSchema(f.Type)
		if doc := f.Tag.Get("doc"); doc != "" {
			prop.Description = doc
		}
		applyConstraintTags(&prop, f)
		schema.Properties[name] = prop
		if f.Tag.Get("required") == "true" {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}

// mergeSchema deep-merges src over dst: objects merge key by key, any
// other src value replaces the dst value.
func mergeSchema(dst, src JSONSchema) JSONSchema {
	dm, err := schemaMap(dst)
	if err != nil {
		return src
	}
	sm, err := schemaMap(src)
	if err != nil {
		return src
	}
	deepUpdate(dm, sm)

	b, err := json.Marshal(dm)
	if err != nil {
		return src
	}
	var out JSONSchema
	if err := json.Unmarshal(b, &out); err != nil {
		return src
	}
	return out
}

func schemaMap(s JSONSchema) (map[string]any, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any)
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func deepUpdate(dst, src map[string]any) {
	for k, v := range src {
		sv, srcIsMap := v.(map[string]any)
		dv, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			deepUpdate(dv, sv)
			continue
		}
		dst[k] = v
	}
}
