package ciba_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/app"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Shared setup for the backchannel end-to-end tests: a Valkey container
 * backing the grant cache, the auth service running in-process on a real
 * listener, and a relying-party callback endpoint for ping and push.
 */

const (
	issuer      = "https://op.e2e.test"
	rpSecret    = "rp-secret-12345"
	aliceDevice = "alice-phone-token"
)

// startValkey runs a throwaway Valkey container and returns its address.
func startValkey(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "valkey/valkey:8-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

// callback is a relying-party notification endpoint that records what the
// auth service delivers to it.
type callback struct {
	*httptest.Server

	mu       sync.Mutex
	bearers  []string
	payloads []json.RawMessage
}

func newCallback(t *testing.T) *callback {
	t.Helper()
	cb := &callback{}
	cb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cb.mu.Lock()
		cb.bearers = append(cb.bearers, r.Header.Get("Authorization"))
		cb.payloads = append(cb.payloads, body)
		cb.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(cb.Close)
	return cb
}

// await waits for the n-th delivery and returns its bearer header and body.
func (cb *callback) await(t *testing.T, n int) (string, json.RawMessage) {
	t.Helper()
	require.Eventually(t, func() bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()
		return len(cb.payloads) >= n
	}, 10*time.Second, 50*time.Millisecond, "no callback delivered")

	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.bearers[n-1], cb.payloads[n-1]
}

// env is one running auth service.
type env struct {
	baseURL string
	rp      *callback
}

// client returns an SDK client authenticated as clientID.
func (e *env) client(clientID string) *authsdk.SDKClient {
	return authsdk.NewSDKClient(e.baseURL).WithClientCredentials(clientID, rpSecret)
}

// device returns an SDK client for the end-user's authentication device.
func (e *env) device() *authsdk.SDKClient {
	return authsdk.NewSDKClient(e.baseURL)
}

// writeSeed provisions poll-rp, ping-rp and push-rp, the latter two
// calling back to rpURL, plus alice with a registered device and bob
// without one.
func writeSeed(t *testing.T, rpURL string) string {
	t.Helper()
	seed := fmt.Sprintf(`
clients:
  - id: poll-rp
    name: Poll RP
    secret: %[1]s
    scopes: [openid, profile]
    grant_types: ["urn:openid:params:grant-type:ciba"]
  - id: ping-rp
    name: Ping RP
    secret: %[1]s
    scopes: [openid, profile]
    grant_types: ["urn:openid:params:grant-type:ciba"]
    delivery_mode: ping
    notification_endpoint: %[2]s/ping
  - id: push-rp
    name: Push RP
    secret: %[1]s
    scopes: [openid]
    grant_types: ["urn:openid:params:grant-type:ciba"]
    delivery_mode: push
    notification_endpoint: %[2]s/push
users:
  - id: u-alice
    uid: alice
    mail: alice@example.com
    device_token: %[3]s
  - id: u-bob
    uid: bob
    mail: bob@example.com
`, rpSecret, rpURL, aliceDevice)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))
	return path
}

// setupAuthService starts the auth service against a fresh Valkey and
// database and stops it when the test ends.
func setupAuthService(t *testing.T) *env {
	t.Helper()
	valkeyAddr := startValkey(t)
	rp := newCallback(t)
	dir := t.TempDir()

	t.Setenv("AUTH_ISSUER", issuer)
	t.Setenv("AUTH_ALGORITHM", "ES256")
	t.Setenv("AUTH_NUM_KEYS", "1")
	t.Setenv("AUTH_DATABASE_FILE", filepath.Join(dir, "auth.db"))
	t.Setenv("AUTH_PEPPER_FILE", filepath.Join(dir, "pepper"))
	t.Setenv("AUTH_SEED_FILE", writeSeed(t, rp.URL))
	t.Setenv("AUTH_CACHE_DRIVER", "valkey")
	t.Setenv("AUTH_CACHE_VALKEY_ADDR", valkeyAddr)
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("CIBA_INTERVAL", "1s")
	t.Setenv("CIBA_CALLBACK_TIMEOUT", "2s")
	t.Setenv("HOUSEKEEPING_INTERVAL", "1s")
	// Relax the strict profile so tests can open many requests quickly.
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "1000")
	t.Setenv("RATELIMIT_STRICT_BURST", "1000")

	cfg, err := app.LoadConfig()
	require.NoError(t, err)

	application, err := app.New(cfg)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- application.Serve(ln) }()

	e := &env{baseURL: "http://" + ln.Addr().String(), rp: rp}
	require.Eventually(t, func() bool {
		_, err := e.client("poll-rp").GetLiveness(context.Background())
		return err == nil
	}, 10*time.Second, 50*time.Millisecond, "auth service did not come up")

	t.Cleanup(func() {
		require.NoError(t, application.Shutdown())
		require.ErrorIs(t, <-served, http.ErrServerClosed)
	})
	return e
}

// verifyIDToken checks the ID token against the published JWKS and
// returns its claims.
func verifyIDToken(t *testing.T, e *env, idToken, clientID string) jwtx.IDClaims {
	t.Helper()
	keys := jwtx.NewRemoteJWKS(nil, time.Minute).For(e.baseURL + "/.well-known/jwks.json")

	var claims jwtx.IDClaims
	_, err := jwtx.Verify(context.Background(), idToken, &claims, keys, jwtx.VerifyOptions{
		Issuer:   issuer,
		Audience: clientID,
		Leeway:   5 * time.Second,
	})
	require.NoError(t, err)
	return claims
}

// assertTokenResponse verifies a token response has all required fields.
func assertTokenResponse(t *testing.T, resp *authsdk.TokenResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, resp.RefreshToken, "Refresh token should not be empty")
	require.NotEmpty(t, resp.IDToken, "ID token should not be empty")
	require.Equal(t, "Bearer", resp.TokenType, "Token type should be Bearer")
	require.Positive(t, resp.ExpiresIn)
}
