package esmerald

import (
	"cmp"
	"html/template"
	"net/http"
)

const (
	docsStoplight = "stoplight"
	docsSwagger   = "swagger"
	docsRedoc     = "redoc"
)

// DocsOption configures the docs UI.
type DocsOption func(*docsConfig)

type docsConfig struct {
	Title   string
	SpecURL string
	UI      string
}

// WithDocsTitle sets the page title for the docs UI.
func WithDocsTitle(title string) DocsOption {
	return func(c *docsConfig) {
		c.Title = title
	}
}

// WithDocsSpecURL sets the URL the docs UI loads the OpenAPI document from.
// Defaults to /openapi.json.
func WithDocsSpecURL(url string) DocsOption {
	return func(c *docsConfig) {
		c.SpecURL = url
	}
}

// WithDocsUI selects the renderer: "stoplight" (default), "swagger" or
// "redoc". Unknown names fall back to stoplight.
func WithDocsUI(ui string) DocsOption {
	return func(c *docsConfig) {
		c.UI = ui
	}
}

var docsTemplates = map[string]*template.Template{
	docsStoplight: template.Must(template.New(docsStoplight).Parse(stoplightHTML)),
	docsSwagger:   template.Must(template.New(docsSwagger).Parse(swaggerHTML)),
	docsRedoc:     template.Must(template.New(docsRedoc).Parse(redocHTML)),
}

// ServeDocs serves an interactive API documentation UI at the given path,
// pointing at the router's OpenAPI spec. The page is not documented itself.
func (r *Router) ServeDocs(path string, opts ...DocsOption) {
	cfg := &docsConfig{
		Title:   cmp.Or(r.cfg.Title, "API"),
		SpecURL: "/openapi.json",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	tmpl, ok := docsTemplates[cfg.UI]
	if !ok {
		tmpl = docsTemplates[docsStoplight]
	}

	r.mustAdd(Raw([]string{http.MethodGet}, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		//nolint:errcheck,gosec // best-effort template render
		tmpl.Execute(w, cfg)
	}, OperationInfo{Name: "docs"}, ExcludeFromSchema()))
}

const stoplightHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/@stoplight/elements/styles.min.css">
  <script src="https://unpkg.com/@stoplight/elements/web-components.min.js"></script>
</head>
<body>
  <elements-api
    apiDescriptionUrl="{{.SpecURL}}"
    router="hash"
    layout="sidebar"
  />
</body>
</html>`

const swaggerHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: "{{.SpecURL}}",
      dom_id: "#swagger-ui",
      deepLinking: true
    });
  </script>
</body>
</html>`

const redocHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
</head>
<body>
  <redoc spec-url="{{.SpecURL}}"></redoc>
  <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</body>
</html>`
