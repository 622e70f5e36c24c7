package authsdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// GrantTypeCIBA is the grant_type for redeeming an auth_req_id.
const GrantTypeCIBA = "urn:openid:params:grant-type:ciba"

// slowDownStep is added to the poll interval after each slow_down answer.
const slowDownStep = 5 * time.Second

// BackchannelAuthorize starts a backchannel authentication request on
// behalf of the configured client.
func (c *SDKClient) BackchannelAuthorize(ctx context.Context, req BackchannelAuthRequest) (*BackchannelAuthResponse, error) {
	form := url.Values{}
	set := func(key, value string) {
		if value != "" {
			form.Set(key, value)
		}
	}
	set("scope", strings.Join(req.Scopes, " "))
	set("client_notification_token", req.ClientNotificationToken)
	set("acr_values", strings.Join(req.ACRValues, " "))
	set("login_hint_token", req.LoginHintToken)
	set("id_token_hint", req.IDTokenHint)
	set("login_hint", req.LoginHint)
	set("binding_message", req.BindingMessage)
	set("user_code", req.UserCode)
	set("request", req.Request)
	if req.RequestedExpiry > 0 {
		form.Set("requested_expiry", strconv.Itoa(req.RequestedExpiry))
	}

	var out BackchannelAuthResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/bc-authorize", form: form, asClient: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PollCIBAToken makes one token request for authReqID. While the end-user
// has not decided it returns ErrAuthorizationPending or ErrSlowDown, which
// can be matched with errors.Is.
func (c *SDKClient) PollCIBAToken(ctx context.Context, authReqID string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":  {GrantTypeCIBA},
		"auth_req_id": {authReqID},
	}

	var out TokenResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/token", form: form, asClient: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForCIBAToken polls the token endpoint at the interval the server
// announced until the request is decided, expires or ctx ends. Each
// slow_down answer widens the interval by five seconds.
func (c *SDKClient) WaitForCIBAToken(ctx context.Context, auth *BackchannelAuthResponse) (*TokenResponse, error) {
	interval := 5 * time.Second
	if auth.Interval != nil && *auth.Interval > 0 {
		interval = time.Duration(*auth.Interval) * time.Second
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		tok, err := c.PollCIBAToken(ctx, auth.AuthReqID)
		switch {
		case err == nil:
			return tok, nil
		case errors.Is(err, ErrSlowDown):
			interval += slowDownStep
		case errors.Is(err, ErrAuthorizationPending):
		default:
			return nil, err
		}
		timer.Reset(interval)
	}
}

// RegisterDevice binds the end-user named by idTokenHint to the push token
// of their authentication device.
func (c *SDKClient) RegisterDevice(ctx context.Context, idTokenHint, deviceToken string) error {
	form := url.Values{
		"id_token_hint":             {idTokenHint},
		"device_registration_token": {deviceToken},
	}

	return c.do(ctx, call{method: http.MethodPost, path: "/bc-deviceRegistration", form: form, asClient: true}, nil)
}

// BeginConsent fetches a pending request for display on the device
// identified by deviceToken.
func (c *SDKClient) BeginConsent(ctx context.Context, deviceToken, authReqID string) (*ConsentResponse, error) {
	var out ConsentResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/bc-consent/begin",
		form:   url.Values{"auth_req_id": {authReqID}},
		bearer: deviceToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Consent records the end-user's decision on authReqID.
func (c *SDKClient) Consent(ctx context.Context, deviceToken, authReqID string, approve bool) error {
	decision := "deny"
	if approve {
		decision = "approve"
	}

	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/bc-consent",
		form:   url.Values{"auth_req_id": {authReqID}, "decision": {decision}},
		bearer: deviceToken,
		want:   http.StatusNoContent,
	}, nil)
}

// RevokeToken revokes a refresh token together with every token of its
// grant. Unknown tokens are not an error.
func (c *SDKClient) RevokeToken(ctx context.Context, refreshToken string) error {
	form := url.Values{
		"token":           {refreshToken},
		"token_type_hint": {"refresh_token"},
	}

	return c.do(ctx, call{method: http.MethodPost, path: "/revoke", form: form, asClient: true}, nil)
}
