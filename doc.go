// Package esmerald is a generics-first HTTP framework whose route tree is
// also the source of its OpenAPI 3.1 document. Handler types carry the
// truth: request parameters, bodies and responses are Go types, and the
// framework derives binding, validation and the OpenAPI document from them.
//
// The core handler signature removes http.ResponseWriter and *http.Request:
//
//	type Handler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)
//
// Routes are values. Gateways bind a path and methods to a handler, and
// includes mount lists of routes under a prefix:
//
//	r := esmerald.New(esmerald.WithTitle("Items"), esmerald.WithVersion("1.0.0"))
//	err := r.Add(
//	    esmerald.Get("/health", health),
//	    esmerald.NewInclude("/items", []esmerald.Route{
//	        esmerald.Get("/", listItems),
//	        esmerald.Post("/", createItem, esmerald.WithStatus(http.StatusCreated)),
//	        esmerald.Get("/{id}", getItem),
//	    }, esmerald.WithIncludeTags("items")),
//	)
//
// Request types use struct tags for parameters and a Body field for the
// request body:
//
//	type CreateReq struct {
//	    OrgID string `path:"org_id"`
//	    Trace string `header:"X-Trace" openapi:"-"`
//	    Body  struct {
//	        Name string `json:"name" required:"true" minLength:"1"`
//	    }
//	}
//
// Binding and constraint failures answer 422 with a body of the form
// {"detail": [{"loc": [...], "msg": "...", "type": "..."}]}, and every
// operation that takes input documents that response.
//
// The document is built by a SchemaBuilder; Router.Spec wraps one
// configured from the router options:
//
//	r.ServeSpec("/openapi.json")
//	r.ServeDocs("/docs")
//
// Route lists can also be registered by name and composed elsewhere with
// the urls package.
package esmerald
