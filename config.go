package esmerald

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// OpenAPIConfig carries the document-level metadata of the generated spec
// and where the router publishes it. It can be built in code or loaded from
// YAML:
//
//	title: Items API
//	version: 2.0.0
//	servers:
//	  - url: https://api.example.com
//	tags:
//	  - name: items
//	    description: Item management
//	openapi_url: /openapi.json
//	docs_url: /docs
type OpenAPIConfig struct {
	Title          string   `yaml:"title"`
	Version        string   `yaml:"version"`
	OpenAPIVersion string   `yaml:"openapi_version"`
	Summary        string   `yaml:"summary"`
	Description    string   `yaml:"description"`
	TermsOfService string   `yaml:"terms_of_service"`
	Contact        *Contact `yaml:"contact"`
	License        *License `yaml:"license"`
	Servers        []Server `yaml:"servers"`
	Tags           []Tag    `yaml:"tags"`

	// SpecURL, when set, serves the JSON document at this path.
	SpecURL string `yaml:"openapi_url"`

	// DocsURL, when set, serves the interactive docs at this path.
	DocsURL string `yaml:"docs_url"`

	// DocsUI selects the docs renderer: "stoplight" (default), "swagger"
	// or "redoc".
	DocsUI string `yaml:"docs_ui"`
}

// LoadOpenAPIConfig reads an OpenAPIConfig from a YAML file.
func LoadOpenAPIConfig(path string) (OpenAPIConfig, error) {
	b, err := os.ReadFile(path) //nolint:gosec // caller-provided config path
	if err != nil {
		return OpenAPIConfig{}, fmt.Errorf("load openapi config: %w", err)
	}
	cfg, err := ParseOpenAPIConfig(b)
	if err != nil {
		return OpenAPIConfig{}, fmt.Errorf("load openapi config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseOpenAPIConfig decodes YAML into an OpenAPIConfig and validates it.
func ParseOpenAPIConfig(b []byte) (OpenAPIConfig, error) {
	var cfg OpenAPIConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return OpenAPIConfig{}, fmt.Errorf("parse openapi config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return OpenAPIConfig{}, err
	}
	return cfg, nil
}

// Validate reports configuration values the builder cannot honor.
func (c OpenAPIConfig) Validate() error {
	if c.OpenAPIVersion != "" && !strings.HasPrefix(c.OpenAPIVersion, "3.") {
		return fmt.Errorf("%w: unsupported openapi version %q", ErrImproperlyConfigured, c.OpenAPIVersion)
	}
	switch c.DocsUI {
	case "", docsStoplight, docsSwagger, docsRedoc:
	default:
		return fmt.Errorf("%w: unknown docs ui %q", ErrImproperlyConfigured, c.DocsUI)
	}
	if c.License != nil && c.License.Name == "" {
		return fmt.Errorf("%w: license name is required", ErrImproperlyConfigured)
	}
	for i, s := range c.Servers {
		if s.URL == "" {
			return fmt.Errorf("%w: server %d has no url", ErrImproperlyConfigured, i)
		}
	}
	return nil
}

// info returns the document info object for the config.
func (c OpenAPIConfig) info() OpenAPIInfo {
	return OpenAPIInfo{
		Title:          c.Title,
		Summary:        c.Summary,
		Description:    c.Description,
		TermsOfService: c.TermsOfService,
		Contact:        c.Contact,
		License:        c.License,
		Version:        c.Version,
	}
}
