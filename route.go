package esmerald

import (
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

const defaultResponseDescription = "Successful response"

// Route is a node of a route tree. It is implemented by *Gateway,
// *Include and *WebSocketGateway.
type Route interface {
	// Path returns the path of the node relative to its parent.
	Path() string

	isRoute()
}

// Gateway binds one path and one or more HTTP methods to a handler.
// Gateways are created with Get, Post, Put, Patch, Delete, Head, Options,
// Handle and Raw.
type Gateway struct {
	path    string
	methods []string
	info    routeInfo

	// build wraps the handler once the router-level environment is known.
	build func(env *handlerEnv) http.Handler
}

// Path returns the gateway path.
func (g *Gateway) Path() string { return g.path }

// Methods returns the HTTP methods served by the gateway.
func (g *Gateway) Methods() []string { return slices.Clone(g.methods) }

// Name returns the handler name used for summaries and diagnostics.
func (g *Gateway) Name() string { return g.info.name }

// OperationID returns the explicitly configured operation id, if any.
func (g *Gateway) OperationID() string { return g.info.operationID }

// IncludeInSchema reports whether the gateway appears in the OpenAPI document.
func (g *Gateway) IncludeInSchema() bool { return !g.info.excluded }

func (*Gateway) isRoute() {}

// routeInfo holds handler metadata, used for both request dispatch and
// OpenAPI spec generation.
type routeInfo struct {
	name    string
	summary string
	desc    string
	tags    []string

	status       int
	responseDesc string
	mediaType    string
	deprecated   bool
	excluded     bool

	operationID string
	security    []string
	noSecurity  bool
	schemes     map[string]SecurityScheme

	responses  map[string]ResponseSpec
	extensions map[string]any

	middleware []Middleware
	bodyLimit  int64

	reqType  reflect.Type
	respType reflect.Type
}

// ResponseSpec documents an additional response of an operation.
type ResponseSpec struct {
	// Model is the Go type of the response body. Nil documents a response
	// without content.
	Model reflect.Type

	Description string

	// StatusText overrides the status text used when Description is empty.
	StatusText string

	// MediaType defaults to the route media type, then application/json.
	MediaType string
}

// ResponseOf returns a ResponseSpec whose body is described by T.
func ResponseOf[T any](description string) ResponseSpec {
	return ResponseSpec{Model: reflect.TypeFor[T](), Description: description}
}

// RouteOption configures a route at construction time.
type RouteOption func(*routeInfo)

// WithName sets the handler name. The name is used for the summary when
// no summary is set. It defaults to the handler function name.
func WithName(name string) RouteOption {
	return func(ri *routeInfo) {
		ri.name = name
	}
}

// WithStatus sets the default HTTP status code for the response.
func WithStatus(code int) RouteOption {
	return func(ri *routeInfo) {
		ri.status = code
	}
}

// WithSummary sets the OpenAPI summary for the route.
func WithSummary(s string) RouteOption {
	return func(ri *routeInfo) {
		ri.summary = s
	}
}

// WithDescription sets the OpenAPI description for the route.
func WithDescription(d string) RouteOption {
	return func(ri *routeInfo) {
		ri.desc = d
	}
}

// WithTags adds OpenAPI tags to the route.
func WithTags(tags ...string) RouteOption {
	return func(ri *routeInfo) {
		ri.tags = append(ri.tags, tags...)
	}
}

// WithDeprecated marks the route as deprecated in the OpenAPI spec.
func WithDeprecated() RouteOption {
	return func(ri *routeInfo) {
		ri.deprecated = true
	}
}

// WithResponseDescription sets the description of the main response.
func WithResponseDescription(d string) RouteOption {
	return func(ri *routeInfo) {
		ri.responseDesc = d
	}
}

// WithMediaType sets the media type of the main response in the OpenAPI spec.
func WithMediaType(mt string) RouteOption {
	return func(ri *routeInfo) {
		ri.mediaType = mt
	}
}

// ExcludeFromSchema keeps the route out of the OpenAPI spec. The route is
// still served.
func ExcludeFromSchema() RouteOption {
	return func(ri *routeInfo) {
		ri.excluded = true
	}
}

// WithResponse documents an additional response. The code is a status code
// ("404"), a range ("4XX") or "default".
func WithResponse(code string, spec ResponseSpec) RouteOption {
	return func(ri *routeInfo) {
		if ri.responses == nil {
			ri.responses = make(map[string]ResponseSpec)
		}
		ri.responses[code] = spec
	}
}

// WithErrors declares additional HTTP error status codes for the OpenAPI spec.
// Each is documented as a problem details response.
func WithErrors(codes ...int) RouteOption {
	return func(ri *routeInfo) {
		if ri.responses == nil {
			ri.responses = make(map[string]ResponseSpec)
		}
		for _, code := range codes {
			ri.responses[strconv.Itoa(code)] = ResponseSpec{
				Model:     reflect.TypeFor[ProblemDetail](),
				MediaType: problemMediaType,
			}
		}
	}
}

// WithOperationID sets a custom OpenAPI operationId.
func WithOperationID(id string) RouteOption {
	return func(ri *routeInfo) {
		ri.operationID = id
	}
}

// WithSecurity sets security scheme requirements for this route by name.
func WithSecurity(schemes ...string) RouteOption {
	return func(ri *routeInfo) {
		ri.security = append(ri.security, schemes...)
	}
}

// WithScheme declares a security scheme on the route and requires it. The
// scheme is published under components.securitySchemes.
func WithScheme(name string, scheme SecurityScheme) RouteOption {
	return func(ri *routeInfo) {
		if ri.schemes == nil {
			ri.schemes = make(map[string]SecurityScheme)
		}
		ri.schemes[name] = scheme
		if !slices.Contains(ri.security, name) {
			ri.security = append(ri.security, name)
		}
	}
}

// WithNoSecurity disables security for this route (overrides global security).
func WithNoSecurity() RouteOption {
	return func(ri *routeInfo) {
		ri.noSecurity = true
	}
}

// WithExtension adds an OpenAPI extension to the operation.
// The key must start with "x-".
func WithExtension(key string, value any) RouteOption {
	return func(ri *routeInfo) {
		if !strings.HasPrefix(key, "x-") {
			return
		}
		if ri.extensions == nil {
			ri.extensions = make(map[string]any)
		}
		ri.extensions[key] = value
	}
}

// WithMiddleware wraps this route's handler only.
func WithMiddleware(mw ...Middleware) RouteOption {
	return func(ri *routeInfo) {
		ri.middleware = append(ri.middleware, mw...)
	}
}

// WithBodyLimit sets a per-route maximum request body size in bytes.
// This overrides any global BodyLimit middleware for this route.
func WithBodyLimit(maxBytes int64) RouteOption {
	return func(ri *routeInfo) {
		ri.bodyLimit = maxBytes
	}
}

// normalizeMethods upper-cases and dedupes methods, keeping their order.
func normalizeMethods(methods []string) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" || slices.Contains(out, m) {
			continue
		}
		out = append(out, m)
	}
	return out
}
