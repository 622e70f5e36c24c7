package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"testing"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signRequest(t *testing.T, key *ecdsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	tk := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	tk.Header["kid"] = "rp-key"
	s, err := tk.SignedString(key)
	require.NoError(t, err)
	return s
}

// requestObject returns the claims of a valid request object from clientID
// for alice.
func requestObject(f *fixture, clientID string) jwt.MapClaims {
	now := f.clock.Now()
	return jwt.MapClaims{
		"iss":             clientID,
		"aud":             "https://op.example",
		"iat":             now.Unix(),
		"nbf":             now.Unix(),
		"exp":             now.Add(5 * time.Minute).Unix(),
		"jti":             "jti-1",
		"scope":           "openid profile",
		"login_hint":      "alice",
		"binding_message": "1234",
	}
}

func TestBackchannelAuthorize_RequestObject(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	key, uri := jwksHost(t)
	secretHash, err := f.hasher.Hash(testSecret)
	require.NoError(t, err)
	for _, c := range []domain.Client{
		{ID: "jar-poll", DeliveryMode: domain.DeliveryPoll},
		{ID: "jar-ping", DeliveryMode: domain.DeliveryPing, NotificationEndpoint: "https://rp.example/ping"},
	} {
		c.SecretHash = secretHash
		c.Scopes = []string{"openid", "profile"}
		c.GrantTypes = []domain.GrantType{domain.GrantCIBA}
		c.JWKSURI = uri
		require.NoError(t, f.store.Clients().CreateClient(ctx, c))
	}

	t.Run("claims replace form parameters", func(t *testing.T) {
		claims := requestObject(f, "jar-poll")
		claims["requested_expiry"] = 120

		req := request("jar-poll", "bob")
		req.BindingMessage = "FORM"
		req.Request = signRequest(t, key, claims)
		resp := f.authorize(t, req)
		require.Equal(t, 120, resp.ExpiresIn)
		require.Equal(t, aliceDevice, f.notifier.deviceFor(resp.AuthReqID))

		snap, err := f.cache.Get(ctx, resp.AuthReqID)
		require.NoError(t, err)
		require.Equal(t, "1234", snap.BindingMessage)
		require.Equal(t, []string{"openid", "profile"}, snap.Scopes)
	})

	t.Run("ping mode", func(t *testing.T) {
		claims := requestObject(f, "jar-ping")
		claims["client_notification_token"] = "cnt-jwt"
		claims["requested_expiry"] = "90"

		req := request("jar-ping", "")
		req.Request = signRequest(t, key, claims)
		resp := f.authorize(t, req)
		require.Equal(t, 90, resp.ExpiresIn)

		snap, err := f.cache.Get(ctx, resp.AuthReqID)
		require.NoError(t, err)
		require.Equal(t, "cnt-jwt", snap.ClientNotificationToken)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)

		req := request("jar-poll", "")
		req.Request = signRequest(t, other, requestObject(f, "jar-poll"))
		_, err = f.svc.BackchannelAuthorize(ctx, req)
		ce := requireCIBAError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
		require.ErrorIs(t, ce, jwtx.ErrInvalidSig)
	})

	t.Run("missing audience", func(t *testing.T) {
		claims := requestObject(f, "jar-poll")
		delete(claims, "aud")

		req := request("jar-poll", "")
		req.Request = signRequest(t, key, claims)
		_, err := f.svc.BackchannelAuthorize(ctx, req)
		requireCIBAError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})

	t.Run("issued by another client", func(t *testing.T) {
		req := request("jar-poll", "")
		req.Request = signRequest(t, key, requestObject(f, "jar-ping"))
		_, err := f.svc.BackchannelAuthorize(ctx, req)
		requireCIBAError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})

	t.Run("claims are validated", func(t *testing.T) {
		claims := requestObject(f, "jar-poll")
		claims["binding_message"] = "(/)=&/(%&"

		req := request("jar-poll", "")
		req.Request = signRequest(t, key, claims)
		_, err := f.svc.BackchannelAuthorize(ctx, req)
		requireCIBAError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidBindingMessage)
	})

	t.Run("client without jwks_uri", func(t *testing.T) {
		req := request("poll-client", "")
		req.Request = signRequest(t, key, requestObject(f, "poll-client"))
		_, err := f.svc.BackchannelAuthorize(ctx, req)
		requireCIBAError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})
}
