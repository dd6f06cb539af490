package esmerald

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	Rate            float64                                      // requests per second
	Burst           int                                          // max burst
	KeyFunc         func(r *http.Request) string                 // default: remote IP
	OnLimit         func(w http.ResponseWriter, r *http.Request) // default: 429 problem details
	CleanupInterval time.Duration                                // default: 1m
	MaxIdle         time.Duration                                // default: 5m
}

// RateLimit returns middleware that applies a token bucket per key. The
// buckets live in the middleware itself, so one RateLimit shared by several
// routers or includes shares its budget.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = remoteHost
	}
	if cfg.OnLimit == nil {
		cfg.OnLimit = tooManyRequests
	}
	store := &limiterStore{
		limit:   rate.Limit(cfg.Rate),
		burst:   cfg.Burst,
		every:   cmpOr(cfg.CleanupInterval, time.Minute),
		maxIdle: cmpOr(cfg.MaxIdle, 5*time.Minute),
		buckets: make(map[string]*bucket),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if wait, ok := store.take(cfg.KeyFunc(r), time.Now()); !ok {
				w.Header().Set("Retry-After", retryAfter(wait))
				cfg.OnLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterStore struct {
	limit   rate.Limit
	burst   int
	every   time.Duration
	maxIdle time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

// take spends one token for key. When none is available it reports how long
// the caller would have had to wait.
func (s *limiterStore) take(key string, now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	if now.Sub(s.swept) >= s.every {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > s.maxIdle {
				delete(s.buckets, k)
			}
		}
		s.swept = now
	}
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	s.mu.Unlock()

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return 0, false
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		return wait, false
	}
	return 0, true
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func tooManyRequests(w http.ResponseWriter, _ *http.Request) {
	writeErrorResponse(w, &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusTooManyRequests),
		Status: http.StatusTooManyRequests,
		Detail: "rate limit exceeded",
	})
}

func cmpOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// retryAfter rounds a delay up to whole seconds, never below one.
func retryAfter(d time.Duration) string {
	secs := int64(math.Ceil(d.Seconds()))
	return strconv.FormatInt(max(secs, 1), 10)
}
