package esmerald

import (
	"log/slog"
	"net/http"
	"reflect"
)

// handlerEnv is the router-level environment a gateway handler is built in.
type handlerEnv struct {
	validator    Validator
	errorHandler ErrorHandler
	codecs       *codecRegistry
	logger       *slog.Logger
}

// Handle creates a gateway serving h on every method in methods.
func Handle[Req, Resp any](methods []string, path string, h Handler[Req, Resp], opts ...RouteOption) *Gateway {
	ri := routeInfo{
		name:     funcName(h),
		reqType:  reflect.TypeFor[Req](),
		respType: reflect.TypeFor[Resp](),
	}
	for _, opt := range opts {
		opt(&ri)
	}

	// Void response → 204, otherwise 200. Post presets 201.
	if ri.status == 0 {
		if ri.respType == reflect.TypeFor[Void]() {
			ri.status = http.StatusNoContent
		} else {
			ri.status = http.StatusOK
		}
	}
	if ri.responseDesc == "" {
		ri.responseDesc = defaultResponseDescription
	}

	plan := newRequestPlan(ri.reqType)
	status, mediaType := ri.status, ri.mediaType

	return &Gateway{
		path:    path,
		methods: normalizeMethods(methods),
		info:    ri,
		build: func(env *handlerEnv) http.Handler {
			return buildHandler(h, plan, status, mediaType, env)
		},
	}
}

// buildHandler wraps a typed Handler into an http.Handler.
func buildHandler[Req, Resp any](h Handler[Req, Resp], plan *requestPlan, defaultStatus int, mediaType string, env *handlerEnv) http.Handler {
	writeErr := func(w http.ResponseWriter, r *http.Request, err error) {
		if env.errorHandler != nil {
			env.errorHandler(w, r, err)
			return
		}
		writeErrorResponse(w, err)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest[Req](r, plan, env.codecs)
		if err != nil {
			writeErr(w, r, err)
			return
		}

		if err := validateConstraints(req); err != nil {
			writeErr(w, r, err)
			return
		}

		if sv, ok := any(req).(SelfValidator); ok {
			if err := sv.Validate(); err != nil {
				writeErr(w, r, err)
				return
			}
		}

		if env.validator != nil {
			if err := env.validator.Validate(req); err != nil {
				writeErr(w, r, err)
				return
			}
		}

		resp, err := h(r.Context(), req)
		if err != nil {
			env.logger.DebugContext(r.Context(), "handler error", "path", r.URL.Path, "error", err)
			writeErr(w, r, err)
			return
		}

		if _, ok := any(resp).(*Void); ok || resp == nil {
			w.WriteHeader(defaultStatus)
			return
		}

		encodeResponse(w, r, resp, defaultStatus, env.codecs.encoderFor(mediaType, r.Header.Get("Accept")))
	})
}

// Get creates a GET gateway.
func Get[Req, Resp any](path string, h Handler[Req, Resp], opts ...RouteOption) *Gateway {
	return Handle([]string{http.MethodGet}, path, h, opts...)
}

// Post creates a POST gateway. It answers 201 Created unless WithStatus
// says otherwise.
func Post[Req, Resp any](path string, h Handler[Req, Resp], opts ...RouteOption) *Gateway {
	opts = append([]RouteOption{WithStatus(http.StatusCreated)}, opts...)
	return Handle([]string{http.MethodPost}, path, h, opts...)
}

// Put creates a PUT gateway.
func Put[Req, Resp any](path string, h Handler[Req, Resp], opts ...RouteOption) *Gateway {
	return Handle([]string{http.MethodPut}, path, h, opts...)
}

// Patch creates a PATCH gateway.
func Patch[Req, Resp any](path string, h Handler[Req, Resp], opts ...RouteOption) *Gateway {
	return Handle([]string{http.MethodPatch}, path, h, opts...)
}

// Delete creates a DELETE gateway.
func Delete[Req, Resp any](path string, h Handler[Req, Resp], opts ...RouteOption) *Gateway {
	return Handle([]string{http.MethodDelete}, path, h, opts...)
}

// Head creates a HEAD gateway.
func Head[Req, Resp any](path string, h Handler[Req, Resp], opts ...RouteOption) *Gateway {
	return Handle([]string{http.MethodHead}, path, h, opts...)
}

// Options creates an OPTIONS gateway.
func Options[Req, Resp any](path string, h Handler[Req, Resp], opts ...RouteOption) *Gateway {
	return Handle([]string{http.MethodOptions}, path, h, opts...)
}
