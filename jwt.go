package esmerald

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BearerSchemeName is the security scheme name BearerScheme is usually
// registered under.
const BearerSchemeName = "bearerAuth"

// BearerScheme describes JWT bearer authentication for the OpenAPI document.
func BearerScheme() SecurityScheme {
	return SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
}

// BearerConfig configures the BearerAuth middleware. Exactly one of Secret
// (HMAC) or PublicKey (RSA) must be set.
type BearerConfig struct {
	Secret    []byte
	PublicKey *rsa.PublicKey

	// Issuer and Audience, when set, must match the token claims.
	Issuer   string
	Audience string

	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration

	// Skip lets requests through without a token.
	Skip func(r *http.Request) bool
}

// BearerAuth returns middleware that requires a valid JWT in the
// Authorization header. Verified claims are available to handlers through
// BearerClaims. Failures answer 401 with a problem details body.
func BearerAuth(cfg BearerConfig) Middleware {
	methods := []string{"HS256", "HS384", "HS512"}
	var key any = cfg.Secret
	if cfg.PublicKey != nil {
		methods = []string{"RS256", "RS384", "RS512"}
		key = cfg.PublicKey
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithIssuedAt()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	parser := jwt.NewParser(opts...)

	keyFunc := func(*jwt.Token) (any, error) {
		if cfg.PublicKey == nil && len(cfg.Secret) == 0 {
			return nil, errors.New("no verification key configured")
		}
		return key, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := bearerToken(r)
			if err != nil {
				unauthorized(w, err)
				return
			}

			claims := jwt.MapClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
				unauthorized(w, fmt.Errorf("invalid token: %w", err))
				return
			}

			next.ServeHTTP(w, SetValue(r, claims))
		})
	}
}

// BearerClaims returns the claims BearerAuth verified for this request.
func BearerClaims(ctx context.Context) (jwt.MapClaims, bool) {
	return GetValue[jwt.MapClaims](ctx)
}

func bearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", errors.New("missing authorization header")
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errors.New("authorization header is not a bearer token")
	}
	return strings.TrimSpace(token), nil
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeErrorResponse(w, &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusUnauthorized),
		Status: http.StatusUnauthorized,
		Detail: err.Error(),
	})
}
