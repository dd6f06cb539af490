package esmerald

import "reflect"

// Test-only exports for internal functions.
var (
	HasParamTags  = hasParamTags
	HasFormTags   = hasFormTags
	HasBodyField  = hasBodyField
	HasRawRequest = hasRawRequest
	TagOptions    = tagOptions
	TagContains   = tagContains

	TypeToSchema        = typeToSchema
	StructToSchema      = structToSchema
	JSONFieldName       = jsonFieldName
	ApplyConstraintTags = applyConstraintTags
	MergeSchema         = mergeSchema

	ValidateConstraints = validateConstraints
	GenerateOperationID = generateOperationID
	TitleName           = titleName
	FuncName            = funcName
	CleanPath           = cleanPath
	MuxPattern          = muxPattern
	BodyAllowed         = bodyAllowed
	RetryAfter          = retryAfter
)

// FlatEndpoint is a flattened route leaf as seen by tests.
type FlatEndpoint struct {
	Path      string
	Tags      []string
	InSchema  bool
	WebSocket bool
}

// FlattenRoutes exposes the route tree flattening.
func FlattenRoutes(routes ...Route) []FlatEndpoint {
	var out []FlatEndpoint
	for _, ep := range flattenRoutes(routes) {
		out = append(out, FlatEndpoint{
			Path:      ep.path,
			Tags:      ep.tags,
			InSchema:  ep.inSchema,
			WebSocket: ep.ws != nil,
		})
	}
	return out
}

// FieldsFromRoutes lists the types the builder pre-registers.
func FieldsFromRoutes(routes ...Route) []reflect.Type {
	return fieldsFromRoutes(schemaEndpoints(routes))
}

// TestSchemaRegistry wraps schemaRegistry for external tests.
type TestSchemaRegistry struct {
	reg  *schemaRegistry
	Defs map[string]JSONSchema
}

// NewSchemaRegistry creates a TestSchemaRegistry for testing.
func NewSchemaRegistry() *TestSchemaRegistry {
	r := newSchemaRegistry()
	return &TestSchemaRegistry{reg: r, Defs: r.defs}
}

// Reserve claims component names.
func (t *TestSchemaRegistry) Reserve(names ...string) {
	t.reg.reserve(names...)
}

// TypeToSchema delegates to the internal registry.
func (t *TestSchemaRegistry) TypeToSchema(typ reflect.Type) JSONSchema {
	return t.reg.typeToSchema(typ)
}

// FormSchema delegates to the internal registry.
func (t *TestSchemaRegistry) FormSchema(typ reflect.Type) JSONSchema {
	return t.reg.formSchema(typ)
}
