package esmerald

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

type requestID string

// maxRequestIDLen bounds client-supplied IDs before they reach logs.
const maxRequestIDLen = 128

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header    string        // default: "X-Request-ID"
	Generator func() string // default: 32 random hex characters
}

// RequestID tags every request with an ID. A well-formed ID sent by the client
// in the configured header is kept; anything else is replaced by a fresh one.
// The ID is echoed on the response and is available through GetRequestID.
func RequestID(cfg ...RequestIDConfig) Middleware {
	var c RequestIDConfig
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.Header == "" {
		c.Header = "X-Request-ID"
	}
	if c.Generator == nil {
		c.Generator = randomHex
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(c.Header)
			if !validRequestID(id) {
				id = c.Generator()
			}
			w.Header().Set(c.Header, id)
			if st, ok := GetValue[*requestState](r.Context()); ok {
				st.requestID = id
			}
			next.ServeHTTP(w, SetValue(r, requestID(id)))
		})
	}
}

// GetRequestID returns the ID RequestID assigned, or "".
func GetRequestID(r *http.Request) string {
	id, _ := GetValue[requestID](r.Context())
	return string(id)
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := range len(id) {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

func randomHex() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
