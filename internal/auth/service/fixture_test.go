package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store/drivers/memory"
	"github.com/JanssenProject/jans-sub050/internal/auth/store/drivers/sqlite"
	"github.com/JanssenProject/jans-sub050/pkg/cryptox"
	"github.com/JanssenProject/jans-sub050/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "client-secret"
	aliceDevice  = "alice-device-token"
	carolDevice  = "carol-device-token"
	carolCode    = "4711"
	testInterval = 5 * time.Second
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls map[string]string
}

func (n *recordingNotifier) Notify(_ context.Context, authReqID, deviceToken string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[authReqID] = deviceToken
}

func (n *recordingNotifier) deviceFor(authReqID string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[authReqID]
}

type pushCall struct {
	Endpoint string
	Token    string
	Payload  any
}

type recordingCallbacks struct {
	mu     sync.Mutex
	pings  []string
	pushes []pushCall
}

func (c *recordingCallbacks) Ping(_ context.Context, _, _, authReqID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings = append(c.pings, authReqID)
}

func (c *recordingCallbacks) Push(_ context.Context, endpoint, token string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushes = append(c.pushes, pushCall{Endpoint: endpoint, Token: token, Payload: payload})
}

func (c *recordingCallbacks) snapshot() ([]string, []pushCall) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.pings...), append([]pushCall(nil), c.pushes...)
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (a *recordingAuditor) Record(_ context.Context, ev AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *recordingAuditor) last() AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.events[len(a.events)-1]
}

type fixture struct {
	svc       *CIBAService
	store     *sqlite.Store
	cache     *memory.Cache
	clock     *fakeClock
	km        *jwtx.KeyManager
	notifier  *recordingNotifier
	callbacks *recordingCallbacks
	auditor   *recordingAuditor
	hasher    *cryptox.Hasher
}

// newFixture wires a CIBAService over an in-memory database with clients
// poll-client, ping-client, push-client, code-client and plain-client, and
// users alice (device), bob (no device) and carol (device, user code).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations())
	t.Cleanup(func() { _ = db.Close() })

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmES256,
		Issuer:    "https://op.example",
		NumKeys:   1,
	})
	require.NoError(t, err)

	clock := &fakeClock{t: time.Now().Truncate(time.Millisecond)}
	hasher := cryptox.NewHasher("pepper")
	cache := memory.NewCache(clock.Now)

	f := &fixture{
		store:     db,
		cache:     cache,
		clock:     clock,
		km:        km,
		notifier:  &recordingNotifier{calls: map[string]string{}},
		callbacks: &recordingCallbacks{},
		auditor:   &recordingAuditor{},
		hasher:    hasher,
	}

	secretHash, err := hasher.Hash(testSecret)
	require.NoError(t, err)
	ciba := []domain.GrantType{domain.GrantCIBA}
	scopes := []string{"openid", "profile"}
	for _, c := range []domain.Client{
		{ID: "poll-client", DeliveryMode: domain.DeliveryPoll},
		{ID: "ping-client", DeliveryMode: domain.DeliveryPing, NotificationEndpoint: "https://rp.example/ping"},
		{ID: "push-client", DeliveryMode: domain.DeliveryPush, NotificationEndpoint: "https://rp.example/push"},
		{ID: "code-client", DeliveryMode: domain.DeliveryPoll, UserCodeParameter: true},
		{ID: "plain-client", DeliveryMode: domain.DeliveryPoll, GrantTypes: []domain.GrantType{domain.GrantAuthorizationCode}},
	} {
		c.Name = c.ID
		c.SecretHash = secretHash
		c.Scopes = scopes
		if c.GrantTypes == nil {
			c.GrantTypes = ciba
		}
		c.CreatedAt, c.UpdatedAt = clock.Now(), clock.Now()
		require.NoError(t, db.Clients().CreateClient(ctx, c))
	}

	codeHash, err := hasher.Hash(carolCode)
	require.NoError(t, err)
	for _, u := range []domain.User{
		{ID: "u-alice", UID: "alice", Mail: "alice@example.com"},
		{ID: "u-bob", UID: "bob", Mail: "bob@example.com"},
		{ID: "u-carol", UID: "carol", Mail: "carol@example.com", UserCodeHash: &codeHash},
	} {
		u.CreatedAt, u.UpdatedAt = clock.Now(), clock.Now()
		require.NoError(t, db.Users().CreateUser(ctx, u))
	}
	for user, token := range map[string]string{"u-alice": aliceDevice, "u-carol": carolDevice} {
		require.NoError(t, db.Devices().SetDeviceToken(ctx, domain.DeviceRegistration{
			UserID:      user,
			Token:       token,
			Fingerprint: cryptox.FingerprintToken(token),
			CreatedAt:   clock.Now(),
			UpdatedAt:   clock.Now(),
		}))
	}

	validator, err := NewRequestValidator("", time.Hour, 2*time.Hour)
	require.NoError(t, err)

	// Token lifetimes follow the wall clock so issued JWTs verify.
	tokens := &TokenService{
		KeyManager: km,
		Store:      db,
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		IDTokenTTL: time.Hour,
	}

	keys := jwtx.NewRemoteJWKS(nil, time.Minute)
	f.svc = &CIBAService{
		Config: CIBAConfig{
			Enabled:      true,
			ExpiresIn:    time.Hour,
			MaxExpiresIn: 2 * time.Hour,
			Interval:     testInterval,
		},
		Store:     db,
		Cache:     cache,
		Clients:   &ClientAuthenticator{Store: db, Hasher: hasher},
		Validator: validator,
		Resolver:  &UserResolver{Store: db, Grants: tokens, Keys: keys, Now: clock.Now},
		Requests:  &RequestObjectVerifier{Keys: keys, Issuer: km.Issuer(), Now: clock.Now},
		UserCodes: UserCodePolicy{Hasher: hasher},
		Tokens:    tokens,
		Notifier:  f.notifier,
		Callbacks: f.callbacks,
		Auditor:   f.auditor,
		Now:       clock.Now,
	}
	return f
}

func request(clientID, loginHint string) BackchannelRequest {
	return BackchannelRequest{
		ClientID:     clientID,
		ClientSecret: testSecret,
		Scopes:       []string{"openid", "profile", "email"},
		LoginHint:    loginHint,
	}
}

// authorize opens a request and fails the test on error.
func (f *fixture) authorize(t *testing.T, req BackchannelRequest) BackchannelResponse {
	t.Helper()
	resp, err := f.svc.BackchannelAuthorize(context.Background(), req)
	require.NoError(t, err)
	return resp
}

// grant opens a request for alice and has her approve it.
func (f *fixture) grant(t *testing.T, clientID string) string {
	t.Helper()
	req := request(clientID, "alice")
	if clientID != "poll-client" {
		req.ClientNotificationToken = "cnt-" + clientID
	}
	resp := f.authorize(t, req)
	require.NoError(t, f.svc.Decide(context.Background(), aliceDevice, resp.AuthReqID, true))
	return resp.AuthReqID
}

func requireCIBAError(t *testing.T, err error, status int, kind string) *CIBAError {
	t.Helper()
	require.Error(t, err)
	ce, ok := AsCIBAError(err)
	require.True(t, ok, "expected a CIBAError, got %v", err)
	require.Equal(t, kind, ce.Kind, ce.Reason)
	require.Equal(t, status, ce.Status, ce.Reason)
	return ce
}
