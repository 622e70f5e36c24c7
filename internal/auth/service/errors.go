package service

import (
	"errors"
	"net/http"

	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
)

var (
	ErrInvalidClient            = errors.New("invalid_client")
	ErrMissingNotificationToken = errors.New("missing notification token")
	ErrTokensAlreadyDelivered   = errors.New("auth_req_id is no longer available")
)

// CIBAError is a client-visible failure of a backchannel operation. Kind is
// the OAuth2 error code and Status the HTTP status to answer with.
type CIBAError struct {
	Kind   string
	Reason string
	Status int

	// Cause lets callers tell apart failures sharing a Kind.
	Cause error
}

func (e *CIBAError) Error() string {
	if e.Reason == "" {
		return e.Kind
	}
	return e.Kind + ": " + e.Reason
}

func (e *CIBAError) Unwrap() error { return e.Cause }

// OAuth2 converts the error to its wire form.
func (e *CIBAError) OAuth2() *authsdk.OAuth2Error {
	return authsdk.NewOAuth2Error(e.Status, e.Kind, e.Reason)
}

func cibaError(status int, kind, reason string) *CIBAError {
	return &CIBAError{Kind: kind, Reason: reason, Status: status}
}

func errInvalidRequest(reason string) *CIBAError {
	return cibaError(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, reason)
}

func errUnknownUser(reason string) *CIBAError {
	return cibaError(http.StatusBadRequest, authsdk.ErrorCodeUnknownUserID, reason)
}

var (
	errCIBADisabled = cibaError(http.StatusForbidden, authsdk.ErrorCodeAccessDenied,
		"backchannel authentication is disabled")
	errClientAuth = &CIBAError{
		Kind:   authsdk.ErrorCodeInvalidClient,
		Reason: "client authentication failed",
		Status: http.StatusUnauthorized,
		Cause:  ErrInvalidClient,
	}
	errUnauthorizedClient = cibaError(http.StatusForbidden, authsdk.ErrorCodeUnauthorizedClient,
		"client is not registered for backchannel authentication")
	errNoDevice = cibaError(http.StatusUnauthorized, authsdk.ErrorCodeUnauthorizedEndUserDevice,
		"the end-user has no registered device")
)

// AsCIBAError returns the client-visible error wrapped in err, if any.
func AsCIBAError(err error) (*CIBAError, bool) {
	var ce *CIBAError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
