package esmerald_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sholola-Gbolahan/esmerald"
	"github.com/Sholola-Gbolahan/esmerald/apitest"
)

// serve runs one request through h and returns the recorded response.
func serve(h http.Handler, method, target string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_Add(t *testing.T) {
	t.Parallel()

	t.Run("duplicate route", func(t *testing.T) {
		t.Parallel()

		r := esmerald.New()
		require.NoError(t, r.Add(esmerald.Get("/users", noop)))

		err := r.Add(esmerald.Post("/items", noop), esmerald.NewInclude("/users", []esmerald.Route{
			esmerald.Get("/", noop),
		}))
		require.ErrorIs(t, err, esmerald.ErrDuplicateRoute)
		assert.Contains(t, err.Error(), "GET /users")

		// nothing from the failed call is mounted
		assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/items", nil).Code)
		assert.Len(t, r.Routes(), 1)
	})

	t.Run("duplicate within one call", func(t *testing.T) {
		t.Parallel()

		r := esmerald.New()
		err := r.Add(esmerald.Get("/a", noop), esmerald.Get("/a/", noop))
		require.ErrorIs(t, err, esmerald.ErrDuplicateRoute)
	})

	t.Run("conflicting wildcard names", func(t *testing.T) {
		t.Parallel()

		r := esmerald.New()
		require.NoError(t, r.Add(esmerald.Get("/users/{id}", noop)))

		var err error
		require.NotPanics(t, func() {
			err = r.Add(esmerald.Post("/items", noop), esmerald.Get("/users/{name}", noop))
		})
		require.ErrorIs(t, err, esmerald.ErrDuplicateRoute)
		assert.Contains(t, err.Error(), "/users/{name}")

		assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/items", nil).Code)
		assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/users/7", nil).Code)
		require.NoError(t, r.Add(esmerald.Post("/items", noop)))
	})

	t.Run("conflict within one call", func(t *testing.T) {
		t.Parallel()

		r := esmerald.New()
		var err error
		require.NotPanics(t, func() {
			err = r.Add(esmerald.Get("/files/{a}/x", noop), esmerald.Get("/files/x/{b}", noop))
		})
		require.ErrorIs(t, err, esmerald.ErrDuplicateRoute)
		assert.Empty(t, r.Routes())
	})

	t.Run("same path different methods", func(t *testing.T) {
		t.Parallel()

		r := esmerald.New()
		require.NoError(t, r.Add(esmerald.Get("/a", noop), esmerald.Delete("/a", noop)))
		require.NoError(t, r.Add(esmerald.Put("/a", noop)))
	})

	t.Run("gateway without methods", func(t *testing.T) {
		t.Parallel()

		r := esmerald.New()
		err := r.Add(esmerald.Handle([]string{" "}, "/none", noop))
		require.ErrorIs(t, err, esmerald.ErrImproperlyConfigured)
	})

	t.Run("root matches exactly", func(t *testing.T) {
		t.Parallel()

		r := esmerald.New()
		require.NoError(t, r.Add(esmerald.Get("/", noop)))

		assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", nil).Code)
		assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/other", nil).Code)
	})
}

func TestRouter_specRoutes(t *testing.T) {
	t.Parallel()

	r := esmerald.New(esmerald.WithOpenAPIConfig(esmerald.OpenAPIConfig{
		Title:   "Served",
		Version: "2.0.0",
		SpecURL: "/schema.json",
		DocsURL: "/docs",
		DocsUI:  "swagger",
	}))
	r.ServeSpecYAML("/schema.yaml")
	require.NoError(t, r.Add(esmerald.Get("/users/{id}", getUser)))

	c := apitest.NewClient(t, r)

	spec := apitest.Spec(t, c, "/schema.json")
	assert.Equal(t, "Served", spec.Info.Title)
	assert.Contains(t, spec.Paths, "/users/{id}")
	assert.NotContains(t, spec.Paths, "/schema.json")
	assert.NotContains(t, spec.Paths, "/docs")

	rec := serve(r, http.MethodGet, "/schema.yaml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "openapi: 3.1.0")
	assert.Contains(t, rec.Body.String(), "/users/{id}")

	rec = serve(r, http.MethodGet, "/docs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swagger-ui")
	assert.Contains(t, rec.Body.String(), `url: "\/schema.json"`)
	assert.Contains(t, rec.Body.String(), "<title>Served</title>")
}

func TestRouter_WriteSpec(t *testing.T) {
	t.Parallel()

	r := esmerald.New(esmerald.WithTitle("Written"), esmerald.WithVersion("3.0.0"))
	require.NoError(t, r.Add(esmerald.Get("/ping", ping)))

	var buf bytes.Buffer
	require.NoError(t, r.WriteSpec(&buf))

	var spec esmerald.OpenAPISpec
	require.NoError(t, json.Unmarshal(buf.Bytes(), &spec))
	assert.Equal(t, "3.0.0", spec.Info.Version)
	assert.Contains(t, spec.Paths, "/ping")
	assert.Contains(t, buf.String(), "\n  \"info\"")

	buf.Reset()
	require.NoError(t, r.WriteSpecYAML(&buf))
	assert.Contains(t, buf.String(), "title: Written")
}

type searchReq struct {
	Page   int      `query:"page" default:"1"`
	Limit  int      `query:"limit" required:"true" maximum:"100"`
	Tags   []string `query:"tag"`
	Token  string   `header:"X-Token"`
	Tenant string   `cookie:"tenant"`
	Org    string   `path:"org"`
}

type searchResp struct {
	Page   int      `json:"page"`
	Limit  int      `json:"limit"`
	Tags   []string `json:"tags"`
	Token  string   `json:"token"`
	Tenant string   `json:"tenant"`
	Org    string   `json:"org"`
}

func search(_ context.Context, req *searchReq) (*searchResp, error) {
	return &searchResp{
		Page:   req.Page,
		Limit:  req.Limit,
		Tags:   req.Tags,
		Token:  req.Token,
		Tenant: req.Tenant,
		Org:    req.Org,
	}, nil
}

func TestRouter_paramBinding(t *testing.T) {
	t.Parallel()

	r := esmerald.New()
	require.NoError(t, r.Add(esmerald.Get("/orgs/{org}/search", search)))

	t.Run("every location", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/orgs/acme/search?limit=5&tag=a&tag=b", nil)
		req.Header.Set("X-Token", "secret")
		req.AddCookie(&http.Cookie{Name: "tenant", Value: "blue"})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, searchResp{
			Page:   1,
			Limit:  5,
			Tags:   []string{"a", "b"},
			Token:  "secret",
			Tenant: "blue",
			Org:    "acme",
		}, decodeJSON[searchResp](t, rec))
	})

	t.Run("binding failures", func(t *testing.T) {
		t.Parallel()

		rec := serve(r, http.MethodGet, "/orgs/acme/search?page=two", nil)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"detail":[
			{"loc":["query","page"],"msg":"Input should be a valid integer","type":"type_error"},
			{"loc":["query","limit"],"msg":"Field required","type":"missing"}
		]}`, rec.Body.String())
	})

	t.Run("constraint failures", func(t *testing.T) {
		t.Parallel()

		rec := serve(r, http.MethodGet, "/orgs/acme/search?limit=500", nil)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.JSONEq(t, `{"detail":[
			{"loc":["query","limit"],"msg":"Input should be less than or equal to 100","type":"less_than_equal"}
		]}`, rec.Body.String())
	})
}

func TestRouter_bindErrors(t *testing.T) {
	t.Parallel()

	var got error
	r := esmerald.New(esmerald.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(esmerald.ErrorStatus(err))
	}))
	require.NoError(t, r.Add(esmerald.Get("/orgs/{org}/search", search)))

	rec := serve(r, http.MethodGet, "/orgs/acme/search?limit=x", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.ErrorIs(t, got, esmerald.ErrBindQuery)
	assert.NotErrorIs(t, got, esmerald.ErrBindHeader)

	var verr *esmerald.HTTPValidationError
	require.ErrorAs(t, got, &verr)
	require.Len(t, verr.Detail, 1)
	assert.Equal(t, []any{"query", "limit"}, verr.Detail[0].Loc)
}

type createUserReq struct {
	Org  string `path:"org"`
	Body struct {
		Name  string `json:"name" required:"true" minLength:"2"`
		Email string `json:"email" pattern:"^[^@]+@[^@]+$"`
		Role  string `json:"role" enum:"admin,member"`
	}
}

type createdUser struct {
	Org  string `json:"org"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func createUser(_ context.Context, req *createUserReq) (*createdUser, error) {
	if req.Body.Name == "taken" {
		return nil, esmerald.Error(http.StatusConflict, "name already taken")
	}
	return &createdUser{Org: req.Org, Name: req.Body.Name, Role: req.Body.Role}, nil
}

func TestRouter_bodyBinding(t *testing.T) {
	t.Parallel()

	r := esmerald.New()
	require.NoError(t, r.Add(
		esmerald.Post("/orgs/{org}/users", createUser, esmerald.WithStatus(http.StatusCreated)),
		esmerald.Put("/orgs/{org}/users", createUser, esmerald.WithBodyLimit(16)),
	))
	c := apitest.NewClient(t, r)

	type body struct {
		Name  string `json:"name"`
		Email string `json:"email,omitempty"`
		Role  string `json:"role,omitempty"`
	}

	t.Run("created", func(t *testing.T) {
		t.Parallel()

		resp := apitest.Post[body, createdUser](t, c, "/orgs/acme/users", &body{Name: "ada", Role: "admin"})

		require.Equal(t, http.StatusCreated, resp.Status)
		require.NotNil(t, resp.Body)
		assert.Equal(t, createdUser{Org: "acme", Name: "ada", Role: "admin"}, *resp.Body)
	})

	t.Run("constraint failures", func(t *testing.T) {
		t.Parallel()

		resp := apitest.Post[body, createdUser](t, c, "/orgs/acme/users",
			&body{Name: "a", Email: "nope", Role: "owner"})

		require.Equal(t, http.StatusUnprocessableEntity, resp.Status)
		require.NotNil(t, resp.Validation)
		assert.Equal(t, []esmerald.ValidationError{
			{Loc: []any{"body", "name"}, Msg: "String should have at least 2 characters", Type: "string_too_short"},
			{Loc: []any{"body", "email"}, Msg: "String should match pattern '^[^@]+@[^@]+$'", Type: "string_pattern_mismatch"},
			{Loc: []any{"body", "role"}, Msg: "Input should be one of [admin,member]", Type: "enum"},
		}, resp.Validation.Detail)
	})

	t.Run("empty optional strings are absent", func(t *testing.T) {
		t.Parallel()

		resp := apitest.Post[body, createdUser](t, c, "/orgs/acme/users", &body{Name: "bob"})
		assert.Equal(t, http.StatusCreated, resp.Status)
	})

	t.Run("missing body", func(t *testing.T) {
		t.Parallel()

		rec := serve(r, http.MethodPost, "/orgs/acme/users", nil)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.JSONEq(t, `{"detail":[{"loc":["body"],"msg":"Field required","type":"missing"}]}`, rec.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		rec := serve(r, http.MethodPost, "/orgs/acme/users", strings.NewReader(`{"name":`),
			"Content-Type", "application/json")

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		verr := decodeJSON[esmerald.HTTPValidationError](t, rec)
		require.Len(t, verr.Detail, 1)
		assert.Equal(t, "body_invalid", verr.Detail[0].Type)
	})

	t.Run("yaml body", func(t *testing.T) {
		t.Parallel()

		rec := serve(r, http.MethodPost, "/orgs/acme/users", strings.NewReader("name: grace\nrole: member\n"),
			"Content-Type", "application/x-yaml")

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "grace", decodeJSON[createdUser](t, rec).Name)
	})

	t.Run("unsupported media type", func(t *testing.T) {
		t.Parallel()

		rec := serve(r, http.MethodPost, "/orgs/acme/users", strings.NewReader("<user/>"),
			"Content-Type", "application/xml")

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})

	t.Run("body too large", func(t *testing.T) {
		t.Parallel()

		rec := serve(r, http.MethodPut, "/orgs/acme/users",
			strings.NewReader(`{"name":"a very long name indeed"}`), "Content-Type", "application/json")

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("handler error", func(t *testing.T) {
		t.Parallel()

		resp := apitest.Post[body, createdUser](t, c, "/orgs/acme/users", &body{Name: "taken"})

		require.Equal(t, http.StatusConflict, resp.Status)
		require.NotNil(t, resp.Problem)
		assert.Equal(t, esmerald.ProblemDetail{
			Type:   "about:blank",
			Title:  "Conflict",
			Status: http.StatusConflict,
			Detail: "name already taken",
		}, *resp.Problem)
	})
}

type lookupReq struct {
	ID string `path:"id"`
}

func (r *lookupReq) Validate() error {
	if r.ID == "0" {
		return esmerald.FieldError("Input should not be zero", "value_error", "path", "id")
	}
	return nil
}

func TestRouter_validators(t *testing.T) {
	t.Parallel()

	handler := func(_ context.Context, req *lookupReq) (*User, error) {
		return &User{ID: req.ID}, nil
	}

	r := esmerald.New(esmerald.WithValidator(esmerald.ValidatorFunc(func(req any) error {
		if lr, ok := req.(*lookupReq); ok && lr.ID == "blocked" {
			return &esmerald.ProblemDetail{Status: http.StatusForbidden, Title: "Forbidden"}
		}
		return nil
	})))
	require.NoError(t, r.Add(esmerald.Get("/things/{id}", handler)))

	rec := serve(r, http.MethodGet, "/things/0", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"detail":[{"loc":["path","id"],"msg":"Input should not be zero","type":"value_error"}]}`,
		rec.Body.String())

	rec = serve(r, http.MethodGet, "/things/blocked", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = serve(r, http.MethodGet, "/things/7", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_responseNegotiation(t *testing.T) {
	t.Parallel()

	r := esmerald.New()
	require.NoError(t, r.Add(
		esmerald.Get("/ping", ping),
		esmerald.Get("/ping.yaml", ping, esmerald.WithMediaType("application/yaml")),
	))

	tests := map[string]struct {
		path   string
		accept string
		want   string
	}{
		"default":        {path: "/ping", want: "application/json"},
		"wildcard":       {path: "/ping", accept: "*/*", want: "application/json"},
		"yaml preferred": {path: "/ping", accept: "application/json;q=0.5, application/yaml", want: "application/yaml"},
		"unknown":        {path: "/ping", accept: "text/csv", want: "application/json"},
		"route type":     {path: "/ping.yaml", accept: "application/json", want: "application/yaml"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := serve(r, http.MethodGet, tt.path, nil, "Accept", tt.accept)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Content-Type"))
		})
	}
}

type sessionResp struct {
	Token string `json:"token"`
}

func (sessionResp) Cookies() []*http.Cookie {
	return []*http.Cookie{{Name: "session", Value: "abc"}}
}

func (sessionResp) SetHeaders(h http.Header) { h.Set("X-Session", "new") }

func (sessionResp) StatusCode() int { return http.StatusAccepted }

func TestRouter_responseHooks(t *testing.T) {
	t.Parallel()

	r := esmerald.New()
	require.NoError(t, r.Add(
		esmerald.Post("/sessions", func(context.Context, *esmerald.Void) (*sessionResp, error) {
			return &sessionResp{Token: "t"}, nil
		}),
		esmerald.Get("/old", func(context.Context, *esmerald.Void) (*esmerald.Redirect, error) {
			return &esmerald.Redirect{URL: "/new", Status: http.StatusMovedPermanently}, nil
		}),
	))

	rec := serve(r, http.MethodPost, "/sessions", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "new", rec.Header().Get("X-Session"))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "session=abc")
	assert.JSONEq(t, `{"token":"t"}`, rec.Body.String())

	rec = serve(r, http.MethodGet, "/old", nil)
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/new", rec.Header().Get("Location"))
}

func TestRouter_postCreated(t *testing.T) {
	t.Parallel()

	r := esmerald.New()
	require.NoError(t, r.Add(
		esmerald.Post("/pings", ping),
		esmerald.Post("/pings/check", ping, esmerald.WithStatus(http.StatusOK)),
	))

	rec := serve(r, http.MethodPost, "/pings", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/pings/check", nil).Code)
}

func TestRouter_rawRequest(t *testing.T) {
	t.Parallel()

	type rawReq struct {
		esmerald.RawRequest
		ID string `path:"id"`
	}
	type rawResp struct {
		Method string `json:"method"`
		ID     string `json:"id"`
	}

	r := esmerald.New()
	require.NoError(t, r.Add(
		esmerald.Handle([]string{"get", "post"}, "/raw/{id}", func(_ context.Context, req *rawReq) (*rawResp, error) {
			return &rawResp{Method: req.Request.Method, ID: req.ID}, nil
		}),
		esmerald.Raw([]string{http.MethodGet}, "/plain", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}, esmerald.OperationInfo{Name: "plain"}),
	))

	rec := serve(r, http.MethodPost, "/raw/9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, rawResp{Method: http.MethodPost, ID: "9"}, decodeJSON[rawResp](t, rec))

	assert.Equal(t, http.StatusTeapot, serve(r, http.MethodGet, "/plain", nil).Code)
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want int
	}{
		"plain":      {err: errors.New("boom"), want: http.StatusInternalServerError},
		"http error": {err: esmerald.Errorf(http.StatusNotFound, "user %d", 7), want: http.StatusNotFound},
		"problem":    {err: &esmerald.ProblemDetail{Status: http.StatusGone}, want: http.StatusGone},
		"validation": {err: esmerald.FieldError("bad", "value_error", "body"), want: http.StatusUnprocessableEntity},
		"wrapped":    {err: errors.Join(errors.New("ctx"), esmerald.Error(http.StatusConflict, "x")), want: http.StatusConflict},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, esmerald.ErrorStatus(tt.err))
		})
	}
}

func TestHTTPValidationError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "validation failed", (&esmerald.HTTPValidationError{}).Error())
	assert.Equal(t, "validation failed: bad", esmerald.FieldError("bad", "value_error", "body").Error())

	pd := &esmerald.ProblemDetail{Title: "Gone"}
	assert.Equal(t, "Gone", pd.Error())
	pd.Detail = "user removed"
	assert.Equal(t, "user removed", pd.Error())
}
