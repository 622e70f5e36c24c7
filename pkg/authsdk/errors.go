package authsdk

import (
	"encoding/json"
	"net/http"

	"github.com/JanssenProject/jans-sub050/pkg/httpx"
)

// Error codes from RFC 6749, RFC 7009 and OpenID CIBA Core.
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeUnauthorizedClient   = "unauthorized_client"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeUnsupportedTokenType = "unsupported_token_type"
	ErrorCodeInvalidScope         = "invalid_scope"
	ErrorCodeServerError          = "server_error"
	ErrorCodeAccessDenied         = "access_denied"

	// Backchannel authentication endpoint.
	ErrorCodeExpiredLoginHintToken     = "expired_login_hint_token"
	ErrorCodeUnknownUserID             = "unknown_user_id"
	ErrorCodeMissingUserCode           = "missing_user_code"
	ErrorCodeInvalidUserCode           = "invalid_user_code"
	ErrorCodeInvalidBindingMessage     = "invalid_binding_message"
	ErrorCodeUnauthorizedEndUserDevice = "unauthorized_end_user_device"

	// Token endpoint, CIBA grant.
	ErrorCodeAuthorizationPending = "authorization_pending"
	ErrorCodeSlowDown             = "slow_down"
	ErrorCodeExpiredToken         = "expired_token"
)

// OAuth2Error is an error response as sent on the wire. The server writes
// it with WriteError and the SDK returns it from every call that got a
// non-2xx answer.
type OAuth2Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// NewOAuth2Error returns an error with the given status, code and description.
func NewOAuth2Error(statusCode int, code, description string) *OAuth2Error {
	return &OAuth2Error{StatusCode: statusCode, Code: code, Description: description}
}

func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// Is compares error codes only, so errors.Is(err, ErrSlowDown) holds for
// any slow_down answer whatever its description.
func (e *OAuth2Error) Is(target error) bool {
	t, ok := target.(*OAuth2Error)
	return ok && t.Code == e.Code
}

// WriteError sends e as a JSON error body. Failed client authentication
// carries the Basic challenge of RFC 6749 section 5.2.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	if e.StatusCode == http.StatusUnauthorized && e.Code == ErrorCodeInvalidClient {
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
	}
	httpx.WriteJSON(w, e.StatusCode, ErrorResponse{Error: e.Code, ErrorDescription: e.Description})
}

var (
	ErrInvalidRequest       = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "the request is malformed or missing required parameters")
	ErrInvalidClient        = NewOAuth2Error(http.StatusUnauthorized, ErrorCodeInvalidClient, "client authentication failed")
	ErrInvalidGrant         = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidGrant, "invalid grant")
	ErrUnauthorizedClient   = NewOAuth2Error(http.StatusBadRequest, ErrorCodeUnauthorizedClient, "the client may not use this grant type")
	ErrUnsupportedGrantType = NewOAuth2Error(http.StatusBadRequest, ErrorCodeUnsupportedGrantType, "grant type not supported")
	ErrInvalidScope         = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidScope, "requested scope is invalid")
	ErrServerError          = NewOAuth2Error(http.StatusInternalServerError, ErrorCodeServerError, "internal server error")
	ErrAccessDenied         = NewOAuth2Error(http.StatusForbidden, ErrorCodeAccessDenied, "access denied")

	// ErrInvalidContentType answers a body that is not urlencoded.
	ErrInvalidContentType = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "content-type must be application/x-www-form-urlencoded")
	ErrInvalidFormBody    = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid form body")

	// Polling answers for an open backchannel request.
	ErrAuthorizationPending = NewOAuth2Error(http.StatusBadRequest, ErrorCodeAuthorizationPending, "the end-user has not decided yet")
	ErrSlowDown             = NewOAuth2Error(http.StatusBadRequest, ErrorCodeSlowDown, "polling too frequently, increase the interval")
	ErrExpiredToken         = NewOAuth2Error(http.StatusBadRequest, ErrorCodeExpiredToken, "the auth_req_id has expired")
)

// parseErrorResponse returns nil for a 2xx answer and an *OAuth2Error for
// anything else. Bodies without an error member map to server_error.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var er ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		return NewOAuth2Error(resp.StatusCode, er.Error, er.ErrorDescription)
	}
	return NewOAuth2Error(resp.StatusCode, ErrorCodeServerError, resp.Status)
}
