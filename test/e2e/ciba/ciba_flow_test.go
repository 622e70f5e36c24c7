package ciba_test

import (
	"encoding/json"
	"testing"

	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestPollFlow runs the full poll-mode flow: the relying party opens a
// request, alice approves it on her device and the relying party polls
// the tokens, which verify against the published JWKS.
func TestPollFlow(t *testing.T) {
	e := setupAuthService(t)
	ctx := t.Context()
	rp := e.client("poll-rp")

	auth, err := rp.BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{
		Scopes:         []string{"openid", "profile"},
		LoginHint:      "alice@example.com",
		BindingMessage: "W4SCT",
	})
	require.NoError(t, err)
	require.NotEmpty(t, auth.AuthReqID)
	require.NotNil(t, auth.Interval)
	require.Equal(t, 1, *auth.Interval)

	_, err = rp.PollCIBAToken(ctx, auth.AuthReqID)
	require.ErrorIs(t, err, authsdk.ErrAuthorizationPending)

	view, err := e.device().BeginConsent(ctx, aliceDevice, auth.AuthReqID)
	require.NoError(t, err)
	require.Equal(t, "poll-rp", view.ClientID)
	require.Equal(t, "Poll RP", view.ClientName)
	require.Equal(t, "W4SCT", view.BindingMessage)

	require.NoError(t, e.device().Consent(ctx, aliceDevice, auth.AuthReqID, true))

	tokens, err := rp.WaitForCIBAToken(ctx, auth)
	require.NoError(t, err)
	assertTokenResponse(t, tokens)

	claims := verifyIDToken(t, e, tokens.IDToken, "poll-rp")
	require.Equal(t, "u-alice", claims.Subject)
	require.NotNil(t, claims.AuthTime)

	// Tokens are handed out once.
	_, err = rp.WaitForCIBAToken(ctx, auth)
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)
}

func TestPollFlow_Denied(t *testing.T) {
	e := setupAuthService(t)
	ctx := t.Context()
	rp := e.client("poll-rp")

	auth, err := rp.BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{
		Scopes:    []string{"openid"},
		LoginHint: "alice",
	})
	require.NoError(t, err)

	require.NoError(t, e.device().Consent(ctx, aliceDevice, auth.AuthReqID, false))

	_, err = rp.WaitForCIBAToken(ctx, auth)
	require.ErrorIs(t, err, authsdk.ErrAccessDenied)
}

func TestBackchannelAuthorize_Rejections(t *testing.T) {
	e := setupAuthService(t)
	ctx := t.Context()

	_, err := e.client("poll-rp").BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{
		Scopes:    []string{"openid"},
		LoginHint: "bob",
	})
	var oerr *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, authsdk.ErrorCodeUnauthorizedEndUserDevice, oerr.Code)

	_, err = e.client("poll-rp").BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{
		Scopes:    []string{"profile"},
		LoginHint: "alice",
	})
	require.ErrorIs(t, err, authsdk.ErrInvalidScope)

	_, err = e.client("poll-rp").BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{
		Scopes:         []string{"openid"},
		LoginHint:      "alice",
		BindingMessage: "<script>",
	})
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, authsdk.ErrorCodeInvalidBindingMessage, oerr.Code)

	_, err = authsdk.NewSDKClient(e.baseURL).WithClientCredentials("poll-rp", "wrong").
		BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{Scopes: []string{"openid"}, LoginHint: "alice"})
	require.ErrorIs(t, err, authsdk.ErrInvalidClient)
}

// TestPingFlow checks that a ping client is called back with its
// notification token once alice decides, and then fetches the tokens.
func TestPingFlow(t *testing.T) {
	e := setupAuthService(t)
	ctx := t.Context()
	rp := e.client("ping-rp")

	auth, err := rp.BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{
		Scopes:                  []string{"openid", "profile"},
		LoginHint:               "alice",
		ClientNotificationToken: "ping-cnt-1",
	})
	require.NoError(t, err)

	require.NoError(t, e.device().Consent(ctx, aliceDevice, auth.AuthReqID, true))

	bearer, body := e.rp.await(t, 1)
	require.Equal(t, "Bearer ping-cnt-1", bearer)

	var ping struct {
		AuthReqID string `json:"auth_req_id"`
	}
	require.NoError(t, json.Unmarshal(body, &ping))
	require.Equal(t, auth.AuthReqID, ping.AuthReqID)

	tokens, err := rp.PollCIBAToken(ctx, ping.AuthReqID)
	require.NoError(t, err)
	assertTokenResponse(t, tokens)
}

// TestPingFlow_Expiry lets a short-lived request lapse and expects the
// housekeeping sweep to ping the client.
func TestPingFlow_Expiry(t *testing.T) {
	e := setupAuthService(t)
	ctx := t.Context()
	rp := e.client("ping-rp")

	auth, err := rp.BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{
		Scopes:                  []string{"openid"},
		LoginHint:               "alice",
		ClientNotificationToken: "ping-cnt-2",
		RequestedExpiry:         1,
	})
	require.NoError(t, err)
	require.Equal(t, 1, auth.ExpiresIn)

	_, body := e.rp.await(t, 1)
	require.Contains(t, string(body), auth.AuthReqID)

	_, err = rp.PollCIBAToken(ctx, auth.AuthReqID)
	require.ErrorIs(t, err, authsdk.ErrExpiredToken)
}

// TestPushFlow expects the tokens themselves at the push endpoint, with
// the auth_req_id bound into the ID token.
func TestPushFlow(t *testing.T) {
	e := setupAuthService(t)
	ctx := t.Context()
	rp := e.client("push-rp")

	auth, err := rp.BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{
		Scopes:                  []string{"openid"},
		LoginHint:               "alice",
		ClientNotificationToken: "push-cnt-1",
	})
	require.NoError(t, err)
	require.Nil(t, auth.Interval)

	require.NoError(t, e.device().Consent(ctx, aliceDevice, auth.AuthReqID, true))

	bearer, body := e.rp.await(t, 1)
	require.Equal(t, "Bearer push-cnt-1", bearer)

	var pushed struct {
		authsdk.TokenResponse
		AuthReqID string `json:"auth_req_id"`
	}
	require.NoError(t, json.Unmarshal(body, &pushed))
	require.Equal(t, auth.AuthReqID, pushed.AuthReqID)
	require.NotEmpty(t, pushed.AccessToken)

	claims := verifyIDToken(t, e, pushed.IDToken, "push-rp")
	require.Equal(t, auth.AuthReqID, claims.AuthReqID)

	// Push clients never poll.
	_, err = rp.PollCIBAToken(ctx, auth.AuthReqID)
	require.ErrorIs(t, err, authsdk.ErrUnauthorizedClient)
}

// TestDeviceRegistration replaces alice's device using an ID token from a
// completed flow and checks that only the new device can consent.
func TestDeviceRegistration(t *testing.T) {
	e := setupAuthService(t)
	ctx := t.Context()
	rp := e.client("poll-rp")

	first, err := rp.BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{Scopes: []string{"openid"}, LoginHint: "alice"})
	require.NoError(t, err)
	require.NoError(t, e.device().Consent(ctx, aliceDevice, first.AuthReqID, true))
	tokens, err := rp.WaitForCIBAToken(ctx, first)
	require.NoError(t, err)

	const newDevice = "alice-new-phone"
	require.NoError(t, rp.RegisterDevice(ctx, tokens.IDToken, newDevice))

	second, err := rp.BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{
		Scopes:      []string{"openid"},
		IDTokenHint: tokens.IDToken,
	})
	require.NoError(t, err)

	_, err = e.device().BeginConsent(ctx, aliceDevice, second.AuthReqID)
	var oerr *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, authsdk.ErrorCodeUnauthorizedEndUserDevice, oerr.Code)

	view, err := e.device().BeginConsent(ctx, newDevice, second.AuthReqID)
	require.NoError(t, err)
	require.Equal(t, second.AuthReqID, view.AuthReqID)
}

func TestRevokeAndHealth(t *testing.T) {
	e := setupAuthService(t)
	ctx := t.Context()
	rp := e.client("poll-rp")

	auth, err := rp.BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{Scopes: []string{"openid"}, LoginHint: "alice"})
	require.NoError(t, err)
	require.NoError(t, e.device().Consent(ctx, aliceDevice, auth.AuthReqID, true))
	tokens, err := rp.WaitForCIBAToken(ctx, auth)
	require.NoError(t, err)

	require.NoError(t, rp.RevokeToken(ctx, tokens.RefreshToken))
	require.NoError(t, rp.RevokeToken(ctx, tokens.RefreshToken), "revocation is idempotent")

	// The revoked grant's ID token no longer names a user.
	_, err = rp.BackchannelAuthorize(ctx, authsdk.BackchannelAuthRequest{
		Scopes:      []string{"openid"},
		IDTokenHint: tokens.IDToken,
	})
	var oerr *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, authsdk.ErrorCodeUnknownUserID, oerr.Code)

	ready, err := rp.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Cache)

	jwks, err := rp.GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
}
