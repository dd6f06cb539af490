// Package urls lets packages publish route lists under a name so that
// other packages can mount them without importing each other's handlers.
//
// A package registers its routes, usually from init:
//
//	func init() {
//	    urls.RegisterDefault("accounts.routes", []esmerald.Route{
//	        esmerald.Get("/", listAccounts),
//	    })
//	}
//
// and a router composes them by name:
//
//	r.Add(esmerald.NewInclude("/accounts", urls.MustInclude("accounts.routes")))
package urls

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/Sholola-Gbolahan/esmerald"
)

// DefaultPattern is the pattern name used when none is given.
const DefaultPattern = "route_patterns"

var routeType = reflect.TypeFor[esmerald.Route]()

// Registry maps namespaces to named route lists. The zero value is ready
// to use.
type Registry struct {
	mu       sync.RWMutex
	patterns map[string]map[string]any
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register stores value as the pattern of namespace. Any value may be
// registered; Include reports values that are not route lists. A later
// registration under the same names replaces the earlier one.
func (r *Registry) Register(namespace, pattern string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.patterns == nil {
		r.patterns = make(map[string]map[string]any)
	}
	ns, ok := r.patterns[namespace]
	if !ok {
		ns = make(map[string]any)
		r.patterns[namespace] = ns
	}
	ns[pattern] = value
}

// RegisterDefault stores value under DefaultPattern.
func (r *Registry) RegisterDefault(namespace string, value any) {
	r.Register(namespace, DefaultPattern, value)
}

// Include looks up a registered route list. The optional pattern names the
// list within the namespace and defaults to DefaultPattern.
func (r *Registry) Include(namespace string, pattern ...string) ([]esmerald.Route, error) {
	if !validNamespace(namespace) {
		return nil, fmt.Errorf("%w: The value should be a string with the format <module>.<file>",
			esmerald.ErrImproperlyConfigured)
	}

	name := DefaultPattern
	if len(pattern) > 0 && pattern[0] != "" {
		name = pattern[0]
	}

	r.mu.RLock()
	value, ok := r.patterns[namespace][name]
	r.mu.RUnlock()
	if !ok || isEmpty(value) {
		return nil, fmt.Errorf("%w: There is no pattern %s found in %s. Are you sure you configured it correctly?",
			esmerald.ErrImproperlyConfigured, name, namespace)
	}

	routes, ok := asRoutes(value)
	if !ok {
		return nil, fmt.Errorf("%w: %v should be a list and not %T",
			esmerald.ErrImproperlyConfigured, value, value)
	}
	return routes, nil
}

// MustInclude is like Include but panics on error.
func (r *Registry) MustInclude(namespace string, pattern ...string) []esmerald.Route {
	routes, err := r.Include(namespace, pattern...)
	if err != nil {
		panic(err)
	}
	return routes
}

// Namespaces returns the registered namespaces in sorted order.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.patterns))
	for ns := range r.patterns {
		out = append(out, ns)
	}
	slices.Sort(out)
	return out
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by the package functions.
func Default() *Registry { return defaultRegistry }

// Register stores value in the default registry.
func Register(namespace, pattern string, value any) {
	defaultRegistry.Register(namespace, pattern, value)
}

// RegisterDefault stores value under DefaultPattern in the default registry.
func RegisterDefault(namespace string, value any) {
	defaultRegistry.RegisterDefault(namespace, value)
}

// Include looks up a route list in the default registry.
func Include(namespace string, pattern ...string) ([]esmerald.Route, error) {
	return defaultRegistry.Include(namespace, pattern...)
}

// MustInclude looks up a route list in the default registry and panics on
// error.
func MustInclude(namespace string, pattern ...string) []esmerald.Route {
	return defaultRegistry.MustInclude(namespace, pattern...)
}

// validNamespace accepts module names made of non-empty dotted or slashed
// segments, such as "routes", "accounts.routes" or "accounts/routes".
func validNamespace(ns string) bool {
	if strings.ContainsFunc(ns, unicode.IsSpace) {
		return false
	}
	for _, seg := range strings.Split(strings.ReplaceAll(ns, "/", "."), ".") {
		if seg == "" {
			return false
		}
	}
	return true
}

// isEmpty treats nil, empty slices and empty arrays as missing.
func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface, reflect.Map:
		return v.IsNil()
	}
	return false
}

// asRoutes accepts []esmerald.Route and slices or arrays of any concrete
// route type, such as []*esmerald.Gateway.
func asRoutes(value any) ([]esmerald.Route, bool) {
	if routes, ok := value.([]esmerald.Route); ok {
		return slices.Clone(routes), true
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, false
	}
	if !v.Type().Elem().Implements(routeType) {
		return nil, false
	}
	out := make([]esmerald.Route, v.Len())
	for i := range v.Len() {
		route, ok := v.Index(i).Interface().(esmerald.Route)
		if !ok || route == nil {
			return nil, false
		}
		out[i] = route
	}
	return out, true
}
