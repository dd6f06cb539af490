package esmerald_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sholola-Gbolahan/esmerald"
)

func TestTypeToSchema(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		typ  reflect.Type
		want esmerald.JSONSchema
	}{
		"string":   {typ: reflect.TypeFor[string](), want: esmerald.JSONSchema{Type: "string"}},
		"bool":     {typ: reflect.TypeFor[bool](), want: esmerald.JSONSchema{Type: "boolean"}},
		"int":      {typ: reflect.TypeFor[int64](), want: esmerald.JSONSchema{Type: "integer"}},
		"uint":     {typ: reflect.TypeFor[uint8](), want: esmerald.JSONSchema{Type: "integer"}},
		"float":    {typ: reflect.TypeFor[float32](), want: esmerald.JSONSchema{Type: "number"}},
		"pointer":  {typ: reflect.TypeFor[*string](), want: esmerald.JSONSchema{Type: "string"}},
		"time":     {typ: reflect.TypeFor[time.Time](), want: esmerald.JSONSchema{Type: "string", Format: "date-time"}},
		"duration": {typ: reflect.TypeFor[time.Duration](), want: esmerald.JSONSchema{Type: "string", Format: "duration"}},
		"bytes":    {typ: reflect.TypeFor[[]byte](), want: esmerald.JSONSchema{Type: "string", ContentEncoding: "base64"}},
		"raw json": {typ: reflect.TypeFor[json.RawMessage](), want: esmerald.JSONSchema{}},
		"file":     {typ: reflect.TypeFor[esmerald.FileUpload](), want: esmerald.JSONSchema{Type: "string", Format: "binary"}},
		"slice": {
			typ:  reflect.TypeFor[[]int](),
			want: esmerald.JSONSchema{Type: "array", Items: &esmerald.JSONSchema{Type: "integer"}},
		},
		"array": {
			typ:  reflect.TypeFor[[3]string](),
			want: esmerald.JSONSchema{Type: "array", Items: &esmerald.JSONSchema{Type: "string"}},
		},
		"string map": {
			typ:  reflect.TypeFor[map[string]bool](),
			want: esmerald.JSONSchema{Type: "object", AdditionalProperties: &esmerald.JSONSchema{Type: "boolean"}},
		},
		"int map":   {typ: reflect.TypeFor[map[int]string](), want: esmerald.JSONSchema{Type: "object"}},
		"interface": {typ: reflect.TypeFor[any](), want: esmerald.JSONSchema{}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, esmerald.TypeToSchema(tt.typ))
		})
	}
}

type Audit struct {
	CreatedBy string `json:"created_by"`
}

type Product struct {
	Audit
	SKU      string   `json:"sku" required:"true" doc:"Stock keeping unit" pattern:"^[A-Z]{3}-\\d+$"`
	Price    float64  `json:"price,omitempty" minimum:"0" maximum:"1000"`
	Tags     []string `json:"tags" minItems:"1" maxItems:"5"`
	Legacy   string   `json:"legacy" deprecated:"true"`
	Status   string   `json:"status" enum:"draft,live" default:"draft"`
	Quantity int      `json:"quantity" default:"10" example:"3"`
	Secret   string   `json:"-"`
	NoTag    string
	Org      string `path:"org"`
}

func TestStructToSchema(t *testing.T) {
	t.Parallel()

	s := esmerald.StructToSchema(reflect.TypeFor[Product]())

	assert.Equal(t, "object", s.Type)
	assert.ElementsMatch(t, []string{
		"created_by", "sku", "price", "tags", "legacy", "status", "quantity", "NoTag",
	}, keys(s.Properties))
	assert.Equal(t, []string{"sku"}, s.Required)

	sku := s.Properties["sku"]
	assert.Equal(t, "Stock keeping unit", sku.Description)
	assert.Equal(t, `^[A-Z]{3}-\d+$`, sku.Pattern)

	price := s.Properties["price"]
	require.NotNil(t, price.Minimum)
	require.NotNil(t, price.Maximum)
	assert.InDelta(t, 0.0, *price.Minimum, 0)
	assert.InDelta(t, 1000.0, *price.Maximum, 0)

	tags := s.Properties["tags"]
	require.NotNil(t, tags.MinItems)
	assert.Equal(t, 1, *tags.MinItems)
	assert.Equal(t, 5, *tags.MaxItems)

	assert.True(t, s.Properties["legacy"].Deprecated)
	assert.Equal(t, []string{"draft", "live"}, s.Properties["status"].Enum)
	assert.Equal(t, "draft", s.Properties["status"].Default)
	assert.Equal(t, int64(10), s.Properties["quantity"].Default)
	assert.Equal(t, []any{"3"}, s.Properties["quantity"].Examples)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

type Node struct {
	Value    string  `json:"value"`
	Children []*Node `json:"children"`
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func TestSchemaRegistry_refs(t *testing.T) {
	t.Parallel()

	t.Run("named structs are referenced", func(t *testing.T) {
		t.Parallel()

		reg := esmerald.NewSchemaRegistry()
		s := reg.TypeToSchema(reflect.TypeFor[[]User]())

		require.NotNil(t, s.Items)
		assert.Equal(t, ref+"User", s.Items.Ref)
		assert.Contains(t, reg.Defs, "User")
	})

	t.Run("recursive types terminate", func(t *testing.T) {
		t.Parallel()

		reg := esmerald.NewSchemaRegistry()
		s := reg.TypeToSchema(reflect.TypeFor[Node]())

		assert.Equal(t, ref+"Node", s.Ref)
		children := reg.Defs["Node"].Properties["children"]
		require.NotNil(t, children.Items)
		assert.Equal(t, ref+"Node", children.Items.Ref)
	})

	t.Run("inline recursion stops at the cycle", func(t *testing.T) {
		t.Parallel()

		s := esmerald.TypeToSchema(reflect.TypeFor[Node]())
		assert.Equal(t, esmerald.JSONSchema{Type: "object"}, *s.Properties["children"].Items)
	})

	t.Run("generic instantiations", func(t *testing.T) {
		t.Parallel()

		reg := esmerald.NewSchemaRegistry()
		s := reg.TypeToSchema(reflect.TypeFor[Page[User]]())

		assert.Equal(t, ref+"Page_User", s.Ref)
		assert.Equal(t, ref+"User", reg.Defs["Page_User"].Properties["items"].Items.Ref)
	})

	t.Run("anonymous structs are inlined", func(t *testing.T) {
		t.Parallel()

		reg := esmerald.NewSchemaRegistry()
		s := reg.TypeToSchema(reflect.TypeFor[struct {
			A string `json:"a"`
		}]())

		assert.Empty(t, s.Ref)
		assert.Contains(t, s.Properties, "a")
		assert.Empty(t, reg.Defs)
	})

	t.Run("reserved names are qualified", func(t *testing.T) {
		t.Parallel()

		reg := esmerald.NewSchemaRegistry()
		reg.Reserve("User")
		s := reg.TypeToSchema(reflect.TypeFor[User]())

		assert.Equal(t, ref+"esmerald_test_User", s.Ref)
		assert.NotContains(t, reg.Defs, "User")
	})

	t.Run("same type is registered once", func(t *testing.T) {
		t.Parallel()

		reg := esmerald.NewSchemaRegistry()
		a := reg.TypeToSchema(reflect.TypeFor[User]())
		b := reg.TypeToSchema(reflect.TypeFor[*User]())

		assert.Equal(t, a, b)
		assert.Len(t, reg.Defs, 1)
	})
}

func TestSchemaRegistry_formSchema(t *testing.T) {
	t.Parallel()

	type form struct {
		Name  string                `form:"name" required:"true" doc:"Display name"`
		Files []esmerald.FileUpload `form:"files"`
		ID    string                `path:"id"`
		Other string
	}

	s := esmerald.NewSchemaRegistry().FormSchema(reflect.TypeFor[form]())

	assert.Equal(t, "object", s.Type)
	assert.Equal(t, []string{"name"}, s.Required)
	assert.Equal(t, "Display name", s.Properties["name"].Description)
	assert.Equal(t, &esmerald.JSONSchema{Type: "string", Format: "binary"}, s.Properties["files"].Items)
	assert.Len(t, s.Properties, 2)
}

func TestMergeSchema(t *testing.T) {
	t.Parallel()

	one := 1
	dst := esmerald.JSONSchema{
		Type:        "object",
		Description: "base",
		Properties: map[string]esmerald.JSONSchema{
			"a": {Type: "string", MinLength: &one},
			"b": {Type: "integer"},
		},
	}
	src := esmerald.JSONSchema{
		Description: "override",
		Properties: map[string]esmerald.JSONSchema{
			"a": {Pattern: "^x"},
			"c": {Type: "boolean"},
		},
	}

	got := esmerald.MergeSchema(dst, src)

	assert.Equal(t, "object", got.Type)
	assert.Equal(t, "override", got.Description)
	require.Len(t, got.Properties, 3)
	assert.Equal(t, "string", got.Properties["a"].Type)
	assert.Equal(t, "^x", got.Properties["a"].Pattern)
	require.NotNil(t, got.Properties["a"].MinLength)
	assert.Equal(t, 1, *got.Properties["a"].MinLength)
	assert.Equal(t, "boolean", got.Properties["c"].Type)
}

func TestJSONFieldName(t *testing.T) {
	t.Parallel()

	type sample struct {
		Plain   string
		Named   string `json:"named"`
		Options string `json:",omitempty"`
		Skipped string `json:"-"`
	}
	st := reflect.TypeFor[sample]()

	tests := map[string]struct {
		field string
		want  string
	}{
		"no tag":       {field: "Plain", want: "Plain"},
		"named":        {field: "Named", want: "named"},
		"options only": {field: "Options", want: "Options"},
		"skipped":      {field: "Skipped", want: "-"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f, ok := st.FieldByName(tt.field)
			require.True(t, ok)
			assert.Equal(t, tt.want, esmerald.JSONFieldName(f))
		})
	}
}

func TestApplyConstraintTags_defaults(t *testing.T) {
	t.Parallel()

	type sample struct {
		Ratio   float64 `default:"0.5"`
		Enabled bool    `default:"true"`
		Bad     int     `default:"lots"`
		Name    string  `minLength:"2" maxLength:"8"`
	}
	st := reflect.TypeFor[sample]()

	schema := func(field string) esmerald.JSONSchema {
		f, _ := st.FieldByName(field)
		var s esmerald.JSONSchema
		esmerald.ApplyConstraintTags(&s, f)
		return s
	}

	assert.InDelta(t, 0.5, schema("Ratio").Default, 0)
	assert.Equal(t, true, schema("Enabled").Default)
	assert.Equal(t, "lots", schema("Bad").Default)

	name := schema("Name")
	require.NotNil(t, name.MinLength)
	require.NotNil(t, name.MaxLength)
	assert.Equal(t, 2, *name.MinLength)
	assert.Equal(t, 8, *name.MaxLength)
}
