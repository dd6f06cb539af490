// Package apitest provides typed test helpers for esmerald routers.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sholola-Gbolahan/esmerald"
)

// Client wraps an httptest.Server for convenient API testing.
type Client struct {
	Server *httptest.Server

	// Header is sent with every request.
	Header http.Header
}

// NewClient serves r for the duration of the test.
func NewClient(t testing.TB, r *esmerald.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &Client{Server: srv, Header: make(http.Header)}
}

// Response holds a decoded API response. Exactly one of Body, Problem and
// Validation is set when the response carried content.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Body    *T

	// Problem is the problem details body of an error response.
	Problem *esmerald.ProblemDetail

	// Validation is the body of a 422 response.
	Validation *esmerald.HTTPValidationError

	Raw *http.Response
}

// RequestOption adjusts a request before it is sent.
type RequestOption func(*http.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithBearer sets a bearer token.
func WithBearer(token string) RequestOption {
	return WithHeader("Authorization", "Bearer "+token)
}

// Get sends a typed GET request.
func Get[Resp any](t testing.TB, c *Client, path string, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodGet, path, nil, opts)
}

// Post sends a typed POST request with a JSON body.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPost, path, body, opts)
}

// Put sends a typed PUT request with a JSON body.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPut, path, body, opts)
}

// Patch sends a typed PATCH request with a JSON body.
func Patch[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPatch, path, body, opts)
}

// Delete sends a typed DELETE request.
func Delete[Resp any](t testing.TB, c *Client, path string, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodDelete, path, nil, opts)
}

// Spec fetches the JSON document a router serves at path.
func Spec(t testing.TB, c *Client, path string) esmerald.OpenAPISpec {
	t.Helper()
	resp := Get[esmerald.OpenAPISpec](t, c, path)
	if resp.Status != http.StatusOK || resp.Body == nil {
		t.Fatalf("apitest: fetch spec %s: status %d", path, resp.Status)
	}
	return *resp.Body
}

func do[Resp any](t testing.TB, c *Client, method, path string, body any, opts []RequestOption) *Response[Resp] {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("apitest: marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("apitest: create request: %v", err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("apitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("apitest: close body: %v", closeErr)
		}
	}()

	result := &Response[Resp]{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Raw:     resp,
	}
	if resp.StatusCode == http.StatusNoContent || resp.ContentLength == 0 {
		return result
	}

	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	dec := json.NewDecoder(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity && mt == "application/json":
		result.Validation = decodeInto[esmerald.HTTPValidationError](t, dec)
	case mt == "application/problem+json":
		result.Problem = decodeInto[esmerald.ProblemDetail](t, dec)
	default:
		result.Body = decodeInto[Resp](t, dec)
	}
	return result
}

func decodeInto[T any](t testing.TB, dec *json.Decoder) *T {
	t.Helper()
	var v T
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		t.Fatalf("apitest: decode response: %v", err)
	}
	return &v
}
