package esmerald

import (
	"net"
	"net/http"
	"strings"
)

// TrustedHostConfig configures the TrustedHosts middleware.
type TrustedHostConfig struct {
	// AllowedHosts lists accepted Host values. "*" accepts any host and a
	// leading "*." accepts any subdomain, e.g. "*.example.com".
	AllowedHosts []string

	// WWWRedirect redirects example.com to www.example.com when
	// www.example.com is listed exactly. Wildcards never trigger it.
	WWWRedirect bool
}

// TrustedHosts returns middleware that rejects requests whose Host header
// is not allowed with 400 "Invalid host header".
func TrustedHosts(cfg TrustedHostConfig) Middleware {
	var (
		exact     = make(map[string]bool)
		wildcards []string
		anyHost   bool
	)
	for _, h := range cfg.AllowedHosts {
		h = strings.ToLower(h)
		switch {
		case h == "*":
			anyHost = true
		case strings.HasPrefix(h, "*."):
			wildcards = append(wildcards, h[1:])
		default:
			exact[h] = true
		}
	}

	matches := func(host string) bool {
		if anyHost || exact[host] {
			return true
		}
		for _, suffix := range wildcards {
			if strings.HasSuffix(host, suffix) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := strings.ToLower(r.Host)
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}

			if matches(host) {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.WWWRedirect && !strings.HasPrefix(host, "www.") && exact["www."+host] {
				u := *r.URL
				u.Scheme = "http"
				if r.TLS != nil {
					u.Scheme = "https"
				}
				u.Host = "www." + r.Host
				http.Redirect(w, r, u.String(), http.StatusMovedPermanently)
				return
			}

			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusBadRequest)
			//nolint:errcheck,gosec // best-effort after WriteHeader
			w.Write([]byte("Invalid host header"))
		})
	}
}
