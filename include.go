package esmerald

import "slices"

// Include mounts a list of routes under a shared prefix with shared
// middleware and tags. Includes nest: prefixes, middleware and tags
// accumulate from the outermost include inwards.
type Include struct {
	path       string
	routes     []Route
	middleware []Middleware
	tags       []string
	excluded   bool
}

// IncludeOption configures an Include.
type IncludeOption func(*Include)

// WithIncludeTags adds default tags to all routes under the include.
func WithIncludeTags(tags ...string) IncludeOption {
	return func(in *Include) {
		in.tags = append(in.tags, tags...)
	}
}

// WithIncludeMiddleware adds middleware to all routes under the include.
func WithIncludeMiddleware(mw ...Middleware) IncludeOption {
	return func(in *Include) {
		in.middleware = append(in.middleware, mw...)
	}
}

// ExcludeIncludeFromSchema keeps every route under the include out of the
// OpenAPI spec.
func ExcludeIncludeFromSchema() IncludeOption {
	return func(in *Include) {
		in.excluded = true
	}
}

// NewInclude creates an Include mounting routes under prefix.
func NewInclude(prefix string, routes []Route, opts ...IncludeOption) *Include {
	in := &Include{
		path:   prefix,
		routes: slices.Clone(routes),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Path returns the include prefix.
func (in *Include) Path() string { return in.path }

// Routes returns the child routes.
func (in *Include) Routes() []Route { return slices.Clone(in.routes) }

// IncludeInSchema reports whether the include's routes appear in the
// OpenAPI document.
func (in *Include) IncludeInSchema() bool { return !in.excluded }

func (*Include) isRoute() {}
