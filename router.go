package esmerald

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"
)

// Router is the central type that holds routes, middleware, and configuration.
// It implements http.Handler.
type Router struct {
	mux        *http.ServeMux
	middleware []Middleware

	routes     []Route
	registered map[string]bool
	patterns   []string // mux patterns in mount order

	cfg             OpenAPIConfig
	securitySchemes map[string]SecurityScheme
	security        []string
	tagDescs        map[string]string
	webhooks        map[string]PathItem

	validator    Validator
	errorHandler ErrorHandler

	encoders []Encoder
	decoders []Decoder

	tracer SpanStarter
	logger *slog.Logger

	mu sync.Mutex
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTitle sets the API title (used in OpenAPI spec).
func WithTitle(title string) RouterOption {
	return func(r *Router) {
		r.cfg.Title = title
	}
}

// WithVersion sets the API version (used in OpenAPI spec).
func WithVersion(version string) RouterOption {
	return func(r *Router) {
		r.cfg.Version = version
	}
}

// WithOpenAPIConfig replaces the document metadata, including where the
// spec and docs are served.
func WithOpenAPIConfig(cfg OpenAPIConfig) RouterOption {
	return func(r *Router) {
		r.cfg = cfg
	}
}

// WithValidator sets a global request validator.
func WithValidator(v Validator) RouterOption {
	return func(r *Router) {
		r.validator = v
	}
}

// WithServers sets the OpenAPI servers array.
func WithServers(servers ...Server) RouterOption {
	return func(r *Router) {
		r.cfg.Servers = servers
	}
}

// WithSecurityScheme registers a named security scheme for the OpenAPI spec.
func WithSecurityScheme(name string, scheme SecurityScheme) RouterOption {
	return func(r *Router) {
		if r.securitySchemes == nil {
			r.securitySchemes = make(map[string]SecurityScheme)
		}
		r.securitySchemes[name] = scheme
	}
}

// WithGlobalSecurity sets global security requirements by scheme name.
func WithGlobalSecurity(schemes ...string) RouterOption {
	return func(r *Router) {
		r.security = append(r.security, schemes...)
	}
}

// WithTagDescriptions sets tag descriptions for the OpenAPI spec.
func WithTagDescriptions(descs map[string]string) RouterOption {
	return func(r *Router) {
		r.tagDescs = descs
	}
}

// ErrorHandler is a custom error response writer.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithErrorHandler sets a custom error handler for the router.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) RouterOption {
	return func(r *Router) {
		r.encoders = append(r.encoders, enc)
	}
}

// WithDecoder registers an additional request body decoder.
func WithDecoder(dec Decoder) RouterOption {
	return func(r *Router) {
		r.decoders = append(r.decoders, dec)
	}
}

// WithWebhook registers a webhook path item for the OpenAPI spec.
func WithWebhook(name string, item PathItem) RouterOption {
	return func(r *Router) {
		if r.webhooks == nil {
			r.webhooks = make(map[string]PathItem)
		}
		r.webhooks[name] = item
	}
}

// SpanStarter is a tracing hook interface for creating spans per request.
// OTelTracer adapts an OpenTelemetry tracer provider.
type SpanStarter interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func())
}

// WithTracer sets a tracing hook for the router.
func WithTracer(s SpanStarter) RouterOption {
	return func(r *Router) {
		r.tracer = s
	}
}

// WithLogger sets the logger used for router diagnostics such as
// duplicate operation ids.
func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = l
	}
}

// New creates a new Router with the given options. When the OpenAPI config
// names a SpecURL or DocsURL, those endpoints are mounted right away.
func New(opts ...RouterOption) *Router {
	r := &Router{
		mux:        http.NewServeMux(),
		registered: make(map[string]bool),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	if r.cfg.SpecURL != "" {
		r.ServeSpec(r.cfg.SpecURL)
	}
	if r.cfg.DocsURL != "" {
		r.ServeDocs(r.cfg.DocsURL, WithDocsUI(r.cfg.DocsUI), WithDocsSpecURL(cmp.Or(r.cfg.SpecURL, "/openapi.json")))
	}
	return r
}

// Use adds middleware to the router. Middleware is applied in the order added.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// Add mounts a route tree. Every endpoint is checked before anything is
// mounted, so a duplicate or conflicting route leaves the router unchanged.
func (r *Router) Add(routes ...Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	endpoints := flattenRoutes(routes)
	seen := make(map[string]bool)
	var patterns []string
	for _, ep := range endpoints {
		methods := ep.methods()
		if len(methods) == 0 {
			return fmt.Errorf("%w: route %s has no methods", ErrImproperlyConfigured, ep.path)
		}
		for _, m := range methods {
			key := m + " " + ep.path
			if r.registered[key] || seen[key] {
				return fmt.Errorf("%w: %s", ErrDuplicateRoute, key)
			}
			seen[key] = true
			patterns = append(patterns, muxPattern(m, ep.path))
		}
	}
	if err := checkPatterns(r.patterns, patterns); err != nil {
		return err
	}

	env := r.env()
	for _, ep := range endpoints {
		r.mount(ep, env)
	}
	maps.Copy(r.registered, seen)
	r.patterns = append(r.patterns, patterns...)
	r.routes = append(r.routes, routes...)
	return nil
}

// checkPatterns replays the mounted and pending patterns on a scratch mux,
// which panics on patterns it considers conflicting (GET /a/{id} and
// GET /a/{name}).
func checkPatterns(mounted, pending []string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrDuplicateRoute, p)
		}
	}()
	scratch := http.NewServeMux()
	for _, p := range concat(mounted, pending) {
		scratch.Handle(p, http.NotFoundHandler())
	}
	return nil
}

// mustAdd mounts framework-owned routes, which only conflict on misuse.
func (r *Router) mustAdd(routes ...Route) {
	if err := r.Add(routes...); err != nil {
		panic(err)
	}
}

// Routes returns the mounted route trees in the order they were added.
func (r *Router) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.routes)
}

// SchemaBuilder returns a builder carrying the router's document metadata.
func (r *Router) SchemaBuilder() *SchemaBuilder {
	return &SchemaBuilder{
		Config:          r.cfg,
		SecuritySchemes: r.securitySchemes,
		GlobalSecurity:  r.security,
		TagDescriptions: r.tagDescs,
		Webhooks:        r.webhooks,
		Logger:          r.logger,
	}
}

// Spec builds the OpenAPI document for the routes mounted so far.
func (r *Router) Spec() OpenAPISpec {
	return r.SchemaBuilder().Build(r.Routes())
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(r.mux)
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (r *Router) env() *handlerEnv {
	return &handlerEnv{
		validator:    r.validator,
		errorHandler: r.errorHandler,
		codecs:       newCodecRegistry(r.encoders, r.decoders),
		logger:       r.logger,
	}
}

// mount registers one endpoint with the mux. Route middleware runs inside
// include middleware; global middleware is applied in ServeHTTP.
func (r *Router) mount(ep endpoint, env *handlerEnv) {
	var h http.Handler
	if ep.gateway != nil {
		ri := &ep.gateway.info
		h = ep.gateway.build(env)
		h = chain(ri.middleware, h)
		if ri.bodyLimit > 0 {
			h = BodyLimit(ri.bodyLimit)(h)
		}
	} else {
		h = ep.ws.handler(env)
	}
	h = chain(ep.middleware, h)

	for _, m := range ep.methods() {
		route := m + " " + ep.path
		r.mux.Handle(muxPattern(m, ep.path), markRoute(m, ep.path, traceHandler(r.tracer, route, ep.path, h)))
	}
	r.logger.Debug("route mounted", "path", ep.path, "methods", ep.methods())
}

// methods lists the HTTP methods an endpoint is served on.
func (ep endpoint) methods() []string {
	if ep.ws != nil {
		return []string{http.MethodGet}
	}
	return ep.gateway.methods
}

// chain wraps h so that mw[0] is outermost.
func chain(mw []Middleware, h http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
