package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JanssenProject/jans-sub050/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is one token-bucket profile.
type RateLimitConfig struct {
	// Requests is the number of requests refilled per Window.
	Requests int `koanf:"requests"`
	// Window is the refill period.
	Window time.Duration `koanf:"window"`
	// Burst is the bucket size.
	Burst int `koanf:"burst"`
}

func (c RateLimitConfig) limit() rate.Limit {
	if c.Window <= 0 || c.Requests <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.Requests) / c.Window.Seconds())
}

// RateLimits groups the profiles the router assigns to endpoints.
type RateLimits struct {
	// Strict guards backchannel authentication and device registration.
	Strict RateLimitConfig `koanf:"strict"`
	// Moderate guards consent decisions and revocation.
	Moderate RateLimitConfig `koanf:"moderate"`
	// Lenient guards token polling and health probes.
	Lenient RateLimitConfig `koanf:"lenient"`
	// Public guards the JWKS document.
	Public RateLimitConfig `koanf:"public"`
}

// DefaultRateLimits returns the production profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   RateLimitConfig{Requests: 5, Window: time.Minute, Burst: 5},
		Moderate: RateLimitConfig{Requests: 20, Window: time.Minute, Burst: 20},
		Lenient:  RateLimitConfig{Requests: 100, Window: time.Minute, Burst: 100},
		Public:   RateLimitConfig{Requests: 1000, Window: time.Minute, Burst: 1000},
	}
}

// KeyExtractor names the bucket a request draws from. An empty key skips
// limiting.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor returns the caller's address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then RemoteAddr.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// ClientIDKeyExtractor returns the client_id placed on the context by
// ClaimedClient.
func ClientIDKeyExtractor(r *http.Request) string {
	return ClientIDFromContext(r.Context())
}

// FormFieldKeyExtractor returns a query or urlencoded body parameter.
func FormFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err != nil {
			return ""
		}
		return r.FormValue(field)
	}
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep,
// e.g. "client-123:192.0.2.1".
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one bucket per key and forgets keys idle for
// longer than idleAfter.
type limiterPool struct {
	cfg       RateLimitConfig
	idleAfter time.Duration

	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

func newLimiterPool(cfg RateLimitConfig) *limiterPool {
	idle := 10 * cfg.Window
	if idle < 5*time.Minute {
		idle = 5 * time.Minute
	}
	return &limiterPool{
		cfg:       cfg,
		idleAfter: idle,
		buckets:   make(map[string]*bucket),
		nextSweep: time.Now().Add(idle),
	}
}

func (p *limiterPool) get(key string, now time.Time) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if now.After(p.nextSweep) {
		for k, b := range p.buckets {
			if now.Sub(b.lastSeen) > p.idleAfter {
				delete(p.buckets, k)
			}
		}
		p.nextSweep = now.Add(p.idleAfter)
	}

	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(p.cfg.limit(), p.cfg.Burst)}
		p.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// RateLimitMiddleware answers 429 with Retry-After once the bucket named
// by extract is empty.
func RateLimitMiddleware(cfg RateLimitConfig, extract KeyExtractor) Middleware {
	pool := newLimiterPool(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extract(r)
			if key == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key for request", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			res := pool.get(key, now).ReserveN(now, 1)
			if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
				res.CancelAt(now)

				retryAfter := max(int(delay.Round(time.Second)/time.Second), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
				w.Header().Set("X-RateLimit-Window", cfg.Window.String())

				slogx.FromContext(r.Context()).Warn("rate limit exceeded",
					"key", key,
					"path", r.URL.Path,
					"retry_after", retryAfter,
				)
				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limit_exceeded",
					"error_description": "too many requests, retry after " + strconv.Itoa(retryAfter) + "s",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP keys on the caller's address.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByClient keys on the claimed client and the caller's address.
// Requests without a client_id share their address's bucket.
func RateLimitByClient(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", ClientIDKeyExtractor, IPKeyExtractor))
}

// RateLimitByIPAndFormField keys on the caller's address and one request
// parameter, such as auth_req_id for token polling.
func RateLimitByIPAndFormField(cfg RateLimitConfig, field string) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", IPKeyExtractor, FormFieldKeyExtractor(field)))
}
