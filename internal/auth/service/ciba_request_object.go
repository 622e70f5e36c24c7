package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/httpx"
	"github.com/JanssenProject/jans-sub050/pkg/jwtx"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
	"github.com/golang-jwt/jwt/v5"
)

// RequestObjectVerifier checks signed backchannel authentication requests
// against the client's JWKS. Issuer is the audience they must name.
type RequestObjectVerifier struct {
	Keys   KeyFetcher
	Issuer string
	Now    func() time.Time
}

// requestClaims are the backchannel parameters a request object can carry.
type requestClaims struct {
	jwt.RegisteredClaims

	ClientID                string         `json:"client_id,omitempty"`
	Scope                   string         `json:"scope,omitempty"`
	ClientNotificationToken string         `json:"client_notification_token,omitempty"`
	ACRValues               string         `json:"acr_values,omitempty"`
	LoginHintToken          string         `json:"login_hint_token,omitempty"`
	IDTokenHint             string         `json:"id_token_hint,omitempty"`
	LoginHint               string         `json:"login_hint,omitempty"`
	BindingMessage          string         `json:"binding_message,omitempty"`
	UserCode                string         `json:"user_code,omitempty"`
	RequestedExpiry         flexibleString `json:"requested_expiry,omitempty"`
}

// flexibleString accepts a JSON string or number.
type flexibleString string

func (f *flexibleString) UnmarshalJSON(b []byte) error {
	*f = flexibleString(strings.Trim(string(b), `"`))
	return nil
}

func errInvalidRequestObject(reason string, cause error) *CIBAError {
	return &CIBAError{
		Kind:   authsdk.ErrorCodeInvalidRequest,
		Reason: reason,
		Status: http.StatusBadRequest,
		Cause:  cause,
	}
}

// Apply verifies req.Request and returns req with every parameter the
// request object sets replaced by its value.
func (v *RequestObjectVerifier) Apply(ctx context.Context, client domain.Client, req BackchannelRequest) (BackchannelRequest, error) {
	if v == nil {
		return req, errInvalidRequest("request objects are not supported")
	}
	if client.JWKSURI == "" {
		return req, errInvalidRequest("client has no jwks_uri to verify the request object")
	}

	var c requestClaims
	_, err := jwtx.Verify(ctx, req.Request, &c, fetcherSource{keys: v.Keys, uri: client.JWKSURI}, jwtx.VerifyOptions{
		Audience: v.Issuer,
		Leeway:   clockSkew,
		Now:      v.Now,
	})
	if err != nil {
		slogx.FromContext(ctx).Info("request object rejected",
			slog.String("client_id", client.ID),
			slog.Any("err", err),
		)
		return req, errInvalidRequestObject("request object is invalid", err)
	}
	if (c.Issuer != "" && c.Issuer != client.ID) || (c.ClientID != "" && c.ClientID != client.ID) {
		return req, errInvalidRequestObject("request object was issued for another client", nil)
	}

	override := func(dst *string, claim string) {
		if claim != "" {
			*dst = claim
		}
	}
	if c.Scope != "" {
		req.Scopes = httpx.SpaceList(c.Scope)
	}
	if c.ACRValues != "" {
		req.ACRValues = httpx.SpaceList(c.ACRValues)
	}
	override(&req.ClientNotificationToken, c.ClientNotificationToken)
	override(&req.LoginHintToken, c.LoginHintToken)
	override(&req.IDTokenHint, c.IDTokenHint)
	override(&req.LoginHint, c.LoginHint)
	override(&req.BindingMessage, c.BindingMessage)
	override(&req.UserCode, c.UserCode)
	override(&req.RequestedExpiry, string(c.RequestedExpiry))
	return req, nil
}
