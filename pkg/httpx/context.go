package httpx

import (
	"context"
	"net/http"
	"net/url"
)

type ctxKey string

const (
	CtxKeyClientID ctxKey = "client_id"
)

// WithClientID stores the client identifier on the context.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, CtxKeyClientID, clientID)
}

// ClientIDFromContext returns the client identifier, if any.
func ClientIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyClientID).(string); ok {
		return v
	}
	return ""
}

// ClientCredentials returns the client_id and client_secret presented on the
// request. HTTP Basic credentials (RFC 6749 section 2.3.1, form-encoded)
// take precedence over the client_id and client_secret form fields.
func ClientCredentials(r *http.Request) (clientID, secret string) {
	if user, pass, ok := r.BasicAuth(); ok {
		id, err1 := url.QueryUnescape(user)
		sec, err2 := url.QueryUnescape(pass)
		if err1 == nil && err2 == nil {
			return id, sec
		}
		return user, pass
	}
	if err := r.ParseForm(); err != nil {
		return "", ""
	}
	return r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
}

// ClaimedClient stores the client_id the request claims to be on the
// context, before it is authenticated, so rate limiters can key on it.
func ClaimedClient() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, _ := ClientCredentials(r); id != "" {
				r = r.WithContext(WithClientID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
