package esmerald

import "net/http"

// RawRequest can be embedded in a request type to get access to
// the underlying *http.Request.
type RawRequest struct {
	Request *http.Request
}

// OperationInfo provides OpenAPI metadata for raw handlers that the
// framework cannot infer from types.
type OperationInfo struct {
	Name        string
	Summary     string
	Description string
	Tags        []string
	Status      int
	OperationID string

	// ResponseDescription defaults to "Successful response".
	ResponseDescription string
}

// Raw builds a gateway around a plain http handler. Nothing is inferred from
// types, so the OpenAPI operation carries only what info declares.
func Raw(methods []string, path string, h RawHandler, info OperationInfo, opts ...RouteOption) *Gateway {
	ri := routeInfo{
		name:         info.Name,
		summary:      info.Summary,
		desc:         info.Description,
		tags:         info.Tags,
		status:       info.Status,
		operationID:  info.OperationID,
		responseDesc: info.ResponseDescription,
	}
	for _, opt := range opts {
		opt(&ri)
	}
	if ri.status == 0 {
		ri.status = http.StatusOK
	}
	if ri.responseDesc == "" {
		ri.responseDesc = defaultResponseDescription
	}

	return &Gateway{
		path:    path,
		methods: normalizeMethods(methods),
		info:    ri,
		build: func(*handlerEnv) http.Handler {
			return http.HandlerFunc(h)
		},
	}
}
