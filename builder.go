package esmerald

import (
	"cmp"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// methodsWithBody are the methods whose operations document a request body.
var methodsWithBody = map[string]bool{
	http.MethodGet:    true,
	http.MethodHead:   true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// statusCodeRanges describes the range keys an additional response may use.
var statusCodeRanges = map[string]string{
	"1XX":     "Information",
	"2XX":     "Success",
	"3XX":     "Redirection",
	"4XX":     "Client Error",
	"5XX":     "Server Error",
	"DEFAULT": "Default Response",
}

const (
	validationErrorName     = "ValidationError"
	httpValidationErrorName = "HTTPValidationError"
)

func validationErrorDefinition() JSONSchema {
	return JSONSchema{
		Title: validationErrorName,
		Type:  "object",
		Properties: map[string]JSONSchema{
			"loc": {
				Title: "Location",
				Type:  "array",
				Items: &JSONSchema{AnyOf: []JSONSchema{{Type: "string"}, {Type: "integer"}}},
			},
			"msg":  {Title: "Message", Type: "string"},
			"type": {Title: "Error Type", Type: "string"},
		},
		Required: []string{"loc", "msg", "type"},
	}
}

func httpValidationErrorDefinition() JSONSchema {
	return JSONSchema{
		Title: httpValidationErrorName,
		Type:  "object",
		Properties: map[string]JSONSchema{
			"detail": {
				Title: "Detail",
				Type:  "array",
				Items: &JSONSchema{Ref: refPrefix + validationErrorName},
			},
		},
	}
}

// SchemaBuilder assembles an OpenAPI document from a route tree. The zero
// value is usable; Router.Spec fills it from the router configuration.
type SchemaBuilder struct {
	Config          OpenAPIConfig
	SecuritySchemes map[string]SecurityScheme
	GlobalSecurity  []string
	TagDescriptions map[string]string
	Webhooks        map[string]PathItem

	// Logger receives builder warnings such as duplicate operation ids.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// NewSchemaBuilder returns a builder for the given document metadata.
// A nil logger uses slog.Default().
func NewSchemaBuilder(cfg OpenAPIConfig, logger *slog.Logger) *SchemaBuilder {
	return &SchemaBuilder{Config: cfg, Logger: logger}
}

// buildState is what a single Build call accumulates.
type buildState struct {
	logger   *slog.Logger
	registry *schemaRegistry

	// operationIDs maps each operation id to the handler that claimed it.
	operationIDs map[string]string
}

// Build walks routes and returns the OpenAPI document describing them.
// The result depends only on the builder and the route tree.
func (b *SchemaBuilder) Build(routes []Route) OpenAPISpec {
	st := &buildState{
		logger:       cmp.Or(b.Logger, slog.Default()),
		registry:     newSchemaRegistry(),
		operationIDs: make(map[string]string),
	}
	st.registry.reserve(validationErrorName, httpValidationErrorName)

	endpoints := schemaEndpoints(routes)
	for _, t := range fieldsFromRoutes(endpoints) {
		st.registry.typeToSchema(t)
	}

	paths := make(map[string]PathItem)
	definitions := make(map[string]JSONSchema)
	schemes := maps.Clone(b.SecuritySchemes)
	if schemes == nil {
		schemes = make(map[string]SecurityScheme)
	}

	for _, ep := range endpoints {
		item, pathSchemes, pathDefs := st.pathItem(ep)
		if len(item) > 0 {
			p := toOpenAPIPath(ep.path)
			if paths[p] == nil {
				paths[p] = make(PathItem)
			}
			maps.Copy(paths[p], item)
		}
		maps.Copy(schemes, pathSchemes)
		maps.Copy(definitions, pathDefs)
	}

	spec := OpenAPISpec{
		OpenAPI:  cmp.Or(b.Config.OpenAPIVersion, DefaultOpenAPIVersion),
		Info:     b.Config.info(),
		Servers:  slices.Clone(b.Config.Servers),
		Paths:    paths,
		Webhooks: maps.Clone(b.Webhooks),
		Tags:     b.tags(),
	}

	maps.Copy(definitions, st.registry.defs)
	if len(definitions) > 0 || len(schemes) > 0 {
		spec.Components = &Components{}
		if len(definitions) > 0 {
			spec.Components.Schemas = definitions
		}
		if len(schemes) > 0 {
			spec.Components.SecuritySchemes = schemes
		}
	}

	for _, name := range b.GlobalSecurity {
		spec.Security = append(spec.Security, SecurityRequirement{name: {}})
	}

	return spec
}

// tags lists configured tags first, then described tags not yet listed.
func (b *SchemaBuilder) tags() []Tag {
	tags := slices.Clone(b.Config.Tags)
	for _, name := range slices.Sorted(maps.Keys(b.TagDescriptions)) {
		if slices.ContainsFunc(tags, func(t Tag) bool { return t.Name == name }) {
			continue
		}
		tags = append(tags, Tag{Name: name, Description: b.TagDescriptions[name]})
	}
	return tags
}

// schemaEndpoints returns the gateways of the tree that are documented.
func schemaEndpoints(routes []Route) []endpoint {
	var out []endpoint
	for _, ep := range flattenRoutes(routes) {
		if ep.gateway != nil && ep.inSchema {
			out = append(out, ep)
		}
	}
	return out
}

// fieldsFromRoutes collects the body and parameter types of every
// documented gateway so their definitions exist before paths are built.
func fieldsFromRoutes(endpoints []endpoint) []reflect.Type {
	var fields []reflect.Type
	for _, ep := range endpoints {
		ri := &ep.gateway.info
		if data := requestDataField(ri.reqType); data != nil && !data.form {
			fields = append(fields, data.typ)
		}
		for _, p := range flatParams(ri.reqType) {
			fields = append(fields, p.field.Type)
		}
	}
	return fields
}

// pathItem builds the operations of one gateway, one per method, along
// with the security schemes and extra definitions they need.
func (st *buildState) pathItem(ep endpoint) (PathItem, map[string]SecurityScheme, map[string]JSONSchema) {
	item := make(PathItem)
	schemes := make(map[string]SecurityScheme)
	definitions := make(map[string]JSONSchema)

	g := ep.gateway
	if g == nil || !ep.inSchema {
		return item, schemes, definitions
	}
	ri := &g.info

	maps.Copy(schemes, ri.schemes)

	params := flatParams(ri.reqType)
	data := requestDataField(ri.reqType)

	for _, method := range g.methods {
		op := st.operation(ep, method)

		if ps := st.operationParameters(params); len(ps) > 0 {
			op.Parameters = ps
		}

		if methodsWithBody[method] {
			op.RequestBody = st.operationRequestBody(data)
		}

		st.mainResponse(&op, ri)
		st.additionalResponses(&op, ri)

		if (len(params) > 0 || data != nil) && !hasAnyResponse(op.Responses, "422", "4XX", "default") {
			op.Responses[strconv.Itoa(http.StatusUnprocessableEntity)] = ResponseObj{
				Description: "Validation Error",
				Content: map[string]MediaObj{
					jsonMediaType: {Schema: &JSONSchema{Ref: refPrefix + httpValidationErrorName}},
				},
			}
			definitions[validationErrorName] = validationErrorDefinition()
			definitions[httpValidationErrorName] = httpValidationErrorDefinition()
		}

		item[strings.ToLower(method)] = op
	}

	return item, schemes, definitions
}

// operation fills the descriptive fields of an operation.
func (st *buildState) operation(ep endpoint, method string) Operation {
	ri := &ep.gateway.info

	op := Operation{
		Tags:        ep.tags,
		Summary:     ri.summary,
		Description: ri.desc,
		Deprecated:  ri.deprecated,
		Responses:   make(OperationResp),
		Extensions:  maps.Clone(ri.extensions),
	}
	if len(op.Tags) == 0 {
		op.Tags = nil
	}
	if op.Summary == "" {
		op.Summary = titleName(ri.name)
	}

	id := ri.operationID
	if id == "" {
		id = generateOperationID(method, ep.path)
	}
	handler := cmp.Or(ri.name, method+" "+ep.path)
	if first, dup := st.operationIDs[id]; dup {
		st.logger.Warn("duplicate operation id",
			"operation_id", id,
			"handler", handler,
			"first_handler", first,
			"method", method,
			"path", ep.path,
		)
	} else {
		st.operationIDs[id] = handler
	}
	op.OperationID = id

	switch {
	case ri.noSecurity:
		none := []SecurityRequirement{}
		op.Security = &none
	case len(ri.security) > 0:
		reqs := make([]SecurityRequirement, 0, len(ri.security))
		for _, name := range ri.security {
			reqs = append(reqs, SecurityRequirement{name: {}})
		}
		op.Security = &reqs
	}

	return op
}

// operationParameters converts parameters, dropping hidden ones. Duplicate
// (in, name) pairs keep their first position; a later duplicate replaces
// the earlier one unless that would swap a required parameter for an
// optional one.
func (st *buildState) operationParameters(params []paramField) []Parameter {
	var out []Parameter
	index := make(map[[2]string]int)

	for _, p := range params {
		if p.hidden {
			continue
		}

		schema := st.registry.typeToSchema(p.field.Type)
		applyConstraintTags(&schema, p.field)

		param := Parameter{
			Name:        p.name,
			In:          p.in,
			Description: p.description,
			Required:    p.required,
			Deprecated:  p.deprecated,
			Schema:      schema,
		}
		if p.example != "" {
			param.Example = exampleFor(schema, p.example)
		}

		key := [2]string{p.in, p.name}
		if i, ok := index[key]; ok {
			if out[i].Required && !param.Required {
				continue
			}
			out[i] = param
			continue
		}
		index[key] = len(out)
		out = append(out, param)
	}

	return out
}

// operationRequestBody describes the data field, or returns nil without one.
func (st *buildState) operationRequestBody(data *dataField) *RequestBody {
	if data == nil {
		return nil
	}

	var schema JSONSchema
	if data.form {
		schema = st.registry.formSchema(data.typ)
	} else {
		schema = st.registry.typeToSchema(data.typ)
	}

	media := MediaObj{Schema: &schema}
	if data.example != "" {
		media.Example = exampleFor(schema, data.example)
	}

	return &RequestBody{
		Required: data.required,
		Content:  map[string]MediaObj{data.mediaType: media},
	}
}

// mainResponse documents the route status code and its body.
func (st *buildState) mainResponse(op *Operation, ri *routeInfo) {
	resp := ResponseObj{Description: cmp.Or(ri.responseDesc, defaultResponseDescription)}

	if bodyAllowed(ri.status) && ri.respType != nil && ri.respType != reflect.TypeFor[Void]() {
		schema := st.registry.typeToSchema(ri.respType)
		resp.Content = map[string]MediaObj{
			cmp.Or(ri.mediaType, jsonMediaType): {Schema: &schema},
		}
		resp.Headers = responseHeaders(ri.respType)
	}

	op.Responses[strconv.Itoa(ri.status)] = resp
}

// additionalResponses merges the route's declared responses into op.
func (st *buildState) additionalResponses(op *Operation, ri *routeInfo) {
	for _, code := range slices.Sorted(maps.Keys(ri.responses)) {
		spec := ri.responses[code]

		key := strings.ToUpper(code)
		if key == "DEFAULT" {
			key = "default"
		}
		resp := op.Responses[key]

		if spec.Model != nil {
			mt := cmp.Or(spec.MediaType, ri.mediaType, jsonMediaType)
			schema := st.registry.typeToSchema(spec.Model)
			if resp.Content == nil {
				resp.Content = make(map[string]MediaObj)
			}
			media := resp.Content[mt]
			if media.Schema != nil {
				schema = mergeSchema(*media.Schema, schema)
			}
			media.Schema = &schema
			resp.Content[mt] = media
		}

		statusText := cmp.Or(spec.StatusText, statusCodeRanges[strings.ToUpper(code)], statusText(code))
		resp.Description = cmp.Or(spec.Description, resp.Description, statusText, "Additional Response")

		op.Responses[key] = resp
	}
}

func hasAnyResponse(responses OperationResp, keys ...string) bool {
	for _, k := range keys {
		if _, ok := responses[k]; ok {
			return true
		}
	}
	return false
}

// bodyAllowed reports whether a response with this status may carry content.
func bodyAllowed(status int) bool {
	if status < http.StatusOK {
		return false
	}
	return status != http.StatusNoContent && status != http.StatusNotModified
}

func statusText(code string) string {
	n, err := strconv.Atoi(code)
	if err != nil {
		return ""
	}
	return http.StatusText(n)
}

// responseHeaders asks the response type for the headers it documents.
func responseHeaders(t reflect.Type) map[string]HeaderObj {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if h, ok := reflect.New(t).Interface().(ResponseHeaderer); ok {
		return h.ResponseHeaders()
	}
	return nil
}

// exampleValue decodes JSON examples so they are emitted as structured
// values; anything else stays a string.
// exampleFor reads an example tag as JSON unless the schema is a plain
// string, whose examples are taken literally.
func exampleFor(schema JSONSchema, s string) any {
	if schema.Type == "string" {
		return s
	}
	return exampleValue(s)
}

func exampleValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// generateOperationID derives an id such as getUsersById from a method
// and a path.
func generateOperationID(method, pattern string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	n := b.Len()

	for seg := range strings.SplitSeq(pattern, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			name := strings.TrimSuffix(strings.Trim(seg, "{}"), "...")
			if name == "$" || name == "" {
				continue
			}
			b.WriteString("By")
			b.WriteString(camelWords(name))
			continue
		}
		b.WriteString(camelWords(seg))
	}

	if b.Len() == n {
		b.WriteString("Root")
	}
	return b.String()
}

// camelWords joins the words of s with each word capitalized.
func camelWords(s string) string {
	var b strings.Builder
	for _, w := range splitWords(s) {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

var titleCaser = cases.Title(language.English)

// titleName turns a handler name such as listUsers or list_users into
// "List Users".
func titleName(name string) string {
	words := splitWords(name)
	if len(words) == 0 {
		return ""
	}
	return titleCaser.String(strings.Join(words, " "))
}

// splitWords splits identifiers on separators and case changes.
func splitWords(s string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	rs := []rune(s)
	for i, r := range rs {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			flush()
			continue
		}
		if i > 0 && len(cur) > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

var anonymousFunc = regexp.MustCompile(`^(func|gowrap)?\d+$`)

// funcName returns the declared name of a handler function, or "" for
// closures.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return ""
	}

	name := strings.TrimSuffix(rf.Name(), "-fm")
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	name = name[strings.LastIndexByte(name, '.')+1:]
	if anonymousFunc.MatchString(name) {
		return ""
	}
	return name
}
