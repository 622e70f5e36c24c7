package service

import (
	"strings"
	"testing"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/cryptox"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestRequestValidator(t *testing.T) {
	t.Parallel()

	v, err := NewRequestValidator("", time.Hour, 2*time.Hour)
	require.NoError(t, err)

	ping := domain.Client{ID: "c", DeliveryMode: domain.DeliveryPing}
	req := BackchannelRequest{LoginHint: "alice", ClientNotificationToken: "cnt"}

	d, err := v.Validate(ping, req)
	require.NoError(t, err)
	require.Equal(t, time.Hour, d)

	t.Run("notification token too long", func(t *testing.T) {
		r := req
		r.ClientNotificationToken = strings.Repeat("x", 1025)
		_, err := v.Validate(ping, r)
		ce, ok := AsCIBAError(err)
		require.True(t, ok)
		require.Equal(t, authsdk.ErrorCodeInvalidRequest, ce.Kind)
	})

	t.Run("binding message", func(t *testing.T) {
		for msg, ok := range map[string]bool{
			"W4SCT":                    true,
			"Pay 10 EUR":               true,
			"twenty one characters!":   false,
			"exactly twenty chars":     true,
			"semi;colon":               false,
			"this one is far too long": false,
		} {
			r := req
			r.BindingMessage = msg
			_, err := v.Validate(ping, r)
			if ok {
				require.NoError(t, err, msg)
				continue
			}
			ce, isCE := AsCIBAError(err)
			require.True(t, isCE, msg)
			require.Equal(t, authsdk.ErrorCodeInvalidBindingMessage, ce.Kind, msg)
		}
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := NewRequestValidator("([", time.Hour, time.Hour)
		require.Error(t, err)
	})
}

func TestUserCodePolicy(t *testing.T) {
	t.Parallel()

	now := time.Now()
	hasher := cryptox.NewHasher("")
	p := UserCodePolicy{Hasher: hasher}

	t.Run("totp", func(t *testing.T) {
		key, err := totp.Generate(totp.GenerateOpts{Issuer: "op", AccountName: "alice"})
		require.NoError(t, err)
		secret := key.Secret()
		u := domain.User{TOTPSecret: &secret}

		code, err := totp.GenerateCode(secret, now)
		require.NoError(t, err)
		require.True(t, p.CheckUserCode(u, code, now))
		require.False(t, p.CheckUserCode(u, code, now.Add(5*time.Minute)))
		require.False(t, p.CheckUserCode(u, "", now))
	})

	t.Run("static", func(t *testing.T) {
		hash, err := hasher.Hash("1234")
		require.NoError(t, err)
		u := domain.User{UserCodeHash: &hash}
		require.True(t, p.CheckUserCode(u, " 1234 ", now))
		require.False(t, p.CheckUserCode(u, "4321", now))
	})

	t.Run("none enrolled", func(t *testing.T) {
		require.False(t, p.CheckUserCode(domain.User{}, "1234", now))
	})
}

func TestGrantedScopes(t *testing.T) {
	t.Parallel()

	client := domain.Client{Scopes: []string{"openid", "profile", "email"}}

	got, err := grantedScopes(ClientScopePolicy{}, client, []string{"openid", "profile", "openid", "admin"})
	require.NoError(t, err)
	require.Equal(t, []string{"openid", "profile"}, got)

	_, err = grantedScopes(ClientScopePolicy{}, client, []string{"profile"})
	ce, ok := AsCIBAError(err)
	require.True(t, ok)
	require.Equal(t, authsdk.ErrorCodeInvalidScope, ce.Kind)

	_, err = grantedScopes(ClientScopePolicy{}, domain.Client{Scopes: []string{"profile"}}, []string{"openid", "profile"})
	require.Error(t, err, "openid must be granted, not only requested")
}
