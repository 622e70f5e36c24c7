package http

import (
	"net/http"
	"strings"

	"github.com/JanssenProject/jans-sub050/internal/auth/service"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

// parseForm enforces the urlencoded content type and parses the body,
// writing the error response itself when it returns false.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return false
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return false
	}
	return true
}

// writeError answers with the client-visible error carried by err. Anything
// else is logged and reported as invalid_request without internals.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if ce, ok := service.AsCIBAError(err); ok {
		ce.OAuth2().WriteError(w)
		return
	}
	slogx.FromContext(r.Context()).Error(op+" failed", "err", err)
	authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
		"the request could not be processed").WriteError(w)
}

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
