package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("AUTH_CONFIG_FILE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "memory", cfg.Cache.Driver)
	require.True(t, cfg.CIBA.Enabled)
	require.Equal(t, time.Hour, cfg.CIBA.ExpiresIn)
	require.Equal(t, 2*time.Second, cfg.CIBA.Interval)
	require.Equal(t, []string{"mail", "uid"}, cfg.CIBA.LoginHintClaims)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
issuer: https://op.example
port: 9000
cache:
  driver: valkey
  valkey_addr: localhost:6379
ciba:
  interval: 5s
  login_hint_claims: [uid]
`), 0o600))

	t.Setenv("AUTH_CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("CIBA_EXPIRES_IN", "10m")
	t.Setenv("CIBA_LOGIN_HINT_CLAIMS", "mail,phone")
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "1000")
	t.Setenv("RATELIMIT_STRICT_WINDOW", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "https://op.example", cfg.Issuer)
	require.Equal(t, 9100, cfg.Port, "environment overrides the file")
	require.Equal(t, "valkey", cfg.Cache.Driver)
	require.Equal(t, "localhost:6379", cfg.Cache.ValkeyAddr)
	require.Equal(t, "ciba:", cfg.Cache.ValkeyPrefix, "unset keys keep their default")
	require.Equal(t, 5*time.Second, cfg.CIBA.Interval)
	require.Equal(t, 10*time.Minute, cfg.CIBA.ExpiresIn)
	require.Equal(t, []string{"mail", "phone"}, cfg.CIBA.LoginHintClaims)
	require.Equal(t, 1000, cfg.RateLimit.Strict.Requests)
	require.Equal(t, 30*time.Second, cfg.RateLimit.Strict.Window)
	require.Equal(t, 5, cfg.RateLimit.Strict.Burst, "unset fields keep their default")
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("AUTH_CONFIG_FILE", "")

	t.Run("unknown cache driver", func(t *testing.T) {
		t.Setenv("AUTH_CACHE_DRIVER", "memcached")
		_, err := LoadConfig()
		require.ErrorContains(t, err, "unknown cache driver")
	})

	t.Run("valkey without address", func(t *testing.T) {
		t.Setenv("AUTH_CACHE_DRIVER", "valkey")
		_, err := LoadConfig()
		require.ErrorContains(t, err, "valkey_addr")
	})

	t.Run("expiry above maximum", func(t *testing.T) {
		t.Setenv("CIBA_EXPIRES_IN", "3h")
		_, err := LoadConfig()
		require.ErrorContains(t, err, "expires_in")
	})

	for _, interval := range []string{"0s", "500ms", "1500ms"} {
		t.Run("interval "+interval, func(t *testing.T) {
			t.Setenv("CIBA_INTERVAL", interval)
			_, err := LoadConfig()
			require.ErrorContains(t, err, "ciba.interval")
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("AUTH_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := LoadConfig()
		require.Error(t, err)
	})
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
clients:
  - id: rp-1
    name: Relying Party
    secret: s3cret
    scopes: [openid, profile]
    grant_types: ["urn:openid:params:grant-type:ciba"]
    delivery_mode: ping
    notification_endpoint: https://rp.example/cb
users:
  - uid: alice
    mail: alice@example.com
    user_code: "4711"
`), 0o600))

	seed, err := loadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Clients, 1)
	require.Equal(t, "rp-1", seed.Clients[0].ID)
	require.Equal(t, "ping", seed.Clients[0].DeliveryMode)
	require.Equal(t, []string{"openid", "profile"}, seed.Clients[0].Scopes)
	require.Len(t, seed.Users, 1)
	require.Equal(t, "4711", seed.Users[0].UserCode)
}
