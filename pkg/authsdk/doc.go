/*
Package authsdk is the client SDK for the backchannel authentication server.

# Overview

The server implements OpenID Connect Client-Initiated Backchannel
Authentication (CIBA). A relying party asks the server to authenticate an
end-user it can only name (by login_hint, id_token_hint or a signed
login_hint_token); the server contacts the end-user's registered device and
the relying party later collects the tokens.

Two kinds of callers use the SDK:

  - Relying parties: BackchannelAuthorize, PollCIBAToken, WaitForCIBAToken,
    RegisterDevice and RevokeToken, authenticated with client credentials.
  - Authentication devices: BeginConsent and Consent, authenticated with the
    device registration token.

# Relying Party Flow

	rp := authsdk.NewSDKClient("https://op.example").
		WithClientCredentials("rp-1", secret)

	auth, err := rp.BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{
		Scopes:         []string{"openid", "profile"},
		LoginHint:      "alice@example.com",
		BindingMessage: "W4SCT",
	})

	tokens, err := rp.WaitForCIBAToken(ctx, auth)

WaitForCIBAToken honours the announced interval and backs off on slow_down.
Ping-mode clients instead wait for the server to POST {"auth_req_id": ...}
to their notification endpoint and then call PollCIBAToken once. Push-mode
clients receive the TokenResponse itself, plus auth_req_id.

# Device Flow

	view, err := dev.BeginConsent(ctx, deviceToken, authReqID)
	// show view.BindingMessage and view.Scopes to the end-user
	err = dev.Consent(ctx, deviceToken, authReqID, true)

# Errors

Non-2xx responses are returned as *OAuth2Error and match the predefined
errors by code:

	if errors.Is(err, authsdk.ErrExpiredToken) {
		// start over with a new request
	}

The same type writes error responses on the server side (WriteError), so
both ends agree on the wire format {"error", "error_description"}.
*/
package authsdk
