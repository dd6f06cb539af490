package esmerald

import (
	"encoding/json"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ServeSpec registers a GET handler at the given path that serves
// the OpenAPI spec as JSON. The document is rebuilt per request so routes
// added later are included.
func (r *Router) ServeSpec(path string) {
	r.mustAdd(Raw([]string{http.MethodGet}, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", jsonMediaType)
		//nolint:errcheck,gosec // best-effort after WriteHeader
		json.NewEncoder(w).Encode(r.Spec())
	}, OperationInfo{Name: "openapi"}, ExcludeFromSchema()))
}

// ServeSpecYAML registers a GET handler at the given path that serves
// the OpenAPI spec as YAML.
func (r *Router) ServeSpecYAML(path string) {
	r.mustAdd(Raw([]string{http.MethodGet}, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", yamlMediaType)
		//nolint:errcheck,gosec // best-effort after WriteHeader
		writeYAML(w, r.Spec())
	}, OperationInfo{Name: "openapi.yaml"}, ExcludeFromSchema()))
}

// WriteSpec writes the OpenAPI spec as indented JSON to w.
func (r *Router) WriteSpec(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Spec())
}

// WriteSpecYAML writes the OpenAPI spec as YAML to w.
func (r *Router) WriteSpecYAML(w io.Writer) error {
	return writeYAML(w, r.Spec())
}

// writeYAML goes through JSON first so that custom MarshalJSON methods,
// such as operation extensions, shape the YAML too.
func writeYAML(w io.Writer, spec OpenAPISpec) error {
	raw, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	plainStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// plainStyle drops the flow and quoting styles a JSON source leaves on
// the nodes. The encoder still quotes strings that need it.
func plainStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		plainStyle(c)
	}
}
