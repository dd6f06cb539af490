package esmerald

import (
	"slices"
	"strings"
)

// endpoint is a leaf of a flattened route tree with everything inherited
// from its enclosing includes resolved.
type endpoint struct {
	path       string
	gateway    *Gateway
	ws         *WebSocketGateway
	tags       []string
	middleware []Middleware
	inSchema   bool
}

type treeScope struct {
	prefix     string
	tags       []string
	middleware []Middleware
	inSchema   bool
}

// flattenRoutes walks a route tree depth first and returns its leaves in
// declaration order.
func flattenRoutes(routes []Route) []endpoint {
	return flattenInto(nil, routes, treeScope{inSchema: true})
}

func flattenInto(out []endpoint, routes []Route, sc treeScope) []endpoint {
	for _, rt := range routes {
		switch v := rt.(type) {
		case *Include:
			out = flattenInto(out, v.routes, treeScope{
				prefix:     sc.prefix + v.path,
				tags:       concat(sc.tags, v.tags),
				middleware: concat(sc.middleware, v.middleware),
				inSchema:   sc.inSchema && !v.excluded,
			})
		case *Gateway:
			out = append(out, endpoint{
				path:       cleanPath(sc.prefix + v.path),
				gateway:    v,
				tags:       concat(sc.tags, v.info.tags),
				middleware: sc.middleware,
				inSchema:   sc.inSchema && !v.info.excluded,
			})
		case *WebSocketGateway:
			out = append(out, endpoint{
				path:       cleanPath(sc.prefix + v.path),
				ws:         v,
				middleware: sc.middleware,
			})
		}
	}
	return out
}

// cleanPath collapses repeated slashes, ensures a leading slash and drops
// the trailing slash of every path except the root.
func cleanPath(p string) string {
	var b strings.Builder
	b.Grow(len(p) + 1)
	b.WriteByte('/')
	prevSlash := true
	for i := range len(p) {
		c := p[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}
	s := b.String()
	if len(s) > 1 {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}

// toOpenAPIPath converts a Go 1.22 pattern like "/files/{path...}" to
// an OpenAPI path by dropping the wildcard suffix.
func toOpenAPIPath(pattern string) string {
	return strings.ReplaceAll(pattern, "...", "")
}

// muxPattern returns the ServeMux pattern for method and path. The root
// path matches exactly rather than as a subtree.
func muxPattern(method, path string) string {
	if path == "/" {
		path = "/{$}"
	}
	if method == "" {
		return path
	}
	return method + " " + path
}

func concat[T any](a, b []T) []T {
	if len(a) == 0 {
		return slices.Clone(b)
	}
	return append(slices.Clone(a), b...)
}
