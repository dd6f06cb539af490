package esmerald

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Middleware is the standard middleware signature compatible with the entire
// Go middleware ecosystem.
type Middleware func(next http.Handler) http.Handler

// Recovery returns middleware that recovers from panics and responds with a
// 500 problem details body. Panics are logged to logger, or slog.Default()
// when none is given.
func Recovery(logger ...*slog.Logger) Middleware {
	log := slog.Default()
	if len(logger) > 0 && logger[0] != nil {
		log = logger[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.ErrorContext(r.Context(), "panic recovered",
					"panic", rec,
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", GetRequestID(r),
				)
				writeErrorResponse(w, Error(http.StatusInternalServerError, "internal error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimit returns middleware that limits the maximum request body size.
// Reads past maxBytes fail, and typed handlers answer 413 Payload Too Large.
func BodyLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestState is shared by every layer serving one request. Middleware
// outside the mux reads what inner layers filled in, whichever *http.Request
// copy they were handed.
type requestState struct {
	method    string // method of the matched mux pattern
	route     string // matched route path, e.g. /users/{id}
	requestID string
}

// pattern is the matched mux pattern, "GET /users/{id}", or "".
func (s *requestState) pattern() string {
	if s.route == "" {
		return ""
	}
	return s.method + " " + s.route
}

// trackRequest returns r carrying a requestState, reusing one an outer
// layer already attached.
func trackRequest(r *http.Request) (*http.Request, *requestState) {
	if st, ok := GetValue[*requestState](r.Context()); ok {
		return r, st
	}
	st := &requestState{}
	return SetValue(r, st), st
}

// markRoute records the matched route before handing over to h.
func markRoute(method, route string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if st, ok := GetValue[*requestState](r.Context()); ok {
			st.method, st.route = method, route
		}
		h.ServeHTTP(w, r)
	})
}
