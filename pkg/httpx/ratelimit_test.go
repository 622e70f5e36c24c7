package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/JanssenProject/jans-sub050/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestKeyExtractors(t *testing.T) {
	t.Parallel()

	t.Run("ip from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/bc-authorize", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		require.Equal(t, "10.0.0.1", httpx.IPKeyExtractor(req))
	})

	t.Run("ip prefers first X-Forwarded-For entry", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/bc-authorize", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		require.Equal(t, "203.0.113.9", httpx.IPKeyExtractor(req))
	})

	t.Run("ip falls back to X-Real-IP", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/bc-authorize", nil)
		req.Header.Set("X-Real-IP", "203.0.113.10")
		require.Equal(t, "203.0.113.10", httpx.IPKeyExtractor(req))
	})

	t.Run("form field from POST body", func(t *testing.T) {
		form := url.Values{"login_hint": {"alice"}}
		req := httptest.NewRequest(http.MethodPost, "/bc-authorize", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		require.Equal(t, "alice", httpx.FormFieldKeyExtractor("login_hint")(req))
	})

	t.Run("client id from context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/token", nil)
		require.Empty(t, httpx.ClientIDKeyExtractor(req))

		req = req.WithContext(httpx.WithClientID(req.Context(), "client-1"))
		require.Equal(t, "client-1", httpx.ClientIDKeyExtractor(req))
	})

	t.Run("composite skips empty parts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/token", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		extractor := httpx.CompositeKeyExtractor(":", httpx.ClientIDKeyExtractor, httpx.IPKeyExtractor)
		require.Equal(t, "10.0.0.1", extractor(req))

		req = req.WithContext(httpx.WithClientID(req.Context(), "client-1"))
		require.Equal(t, "client-1:10.0.0.1", extractor(req))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("blocks after burst and sets headers", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{Requests: 2, Window: time.Minute, Burst: 2}
		h := httpx.RateLimitMiddleware(cfg, httpx.IPKeyExtractor)(okHandler())

		for i := range 2 {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = "10.0.0.1:1"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		}

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	})

	t.Run("keys are isolated", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitMiddleware(cfg, httpx.IPKeyExtractor)(okHandler())

		for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("empty key is allowed through", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitMiddleware(cfg, func(*http.Request) string { return "" })(okHandler())

		for range 3 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestRateLimitByIPAndFormField(t *testing.T) {
	t.Parallel()

	cfg := httpx.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 1}
	h := httpx.RateLimitByIPAndFormField(cfg, "login_hint")(okHandler())

	send := func(hint string) int {
		req := httptest.NewRequest(http.MethodGet, "/?login_hint="+hint, nil)
		req.RemoteAddr = "10.0.0.1:1"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send("alice"))
	require.Equal(t, http.StatusTooManyRequests, send("alice"))
	require.Equal(t, http.StatusOK, send("bob"))
}

func TestRateLimitMiddleware_Unlimited(t *testing.T) {
	t.Parallel()

	// A profile without requests does not limit.
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{})(okHandler())
	for range 10 {
		req := httptest.NewRequest(http.MethodGet, "/livez", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestDefaultRateLimits(t *testing.T) {
	t.Parallel()

	limits := httpx.DefaultRateLimits()
	require.Equal(t, 5, limits.Strict.Burst)
	require.Less(t, limits.Strict.Requests, limits.Moderate.Requests)
	require.Less(t, limits.Moderate.Requests, limits.Lenient.Requests)
	require.Less(t, limits.Lenient.Requests, limits.Public.Requests)
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}
