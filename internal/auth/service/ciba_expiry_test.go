package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/stretchr/testify/require"
)

var errCacheDown = errors.New("cache unavailable")

// flakyCache fails the next failUpdates updates and can report a decode
// error alongside the records PopExpired returns.
type flakyCache struct {
	store.GrantCache

	mu          sync.Mutex
	failUpdates int
	popErr      error
}

func (c *flakyCache) Update(ctx context.Context, key string, fn func(*domain.CIBACacheGrant) error) (domain.CIBACacheGrant, error) {
	c.mu.Lock()
	if c.failUpdates > 0 {
		c.failUpdates--
		c.mu.Unlock()
		return domain.CIBACacheGrant{}, errCacheDown
	}
	c.mu.Unlock()
	return c.GrantCache.Update(ctx, key, fn)
}

func (c *flakyCache) PopExpired(ctx context.Context, now time.Time, limit int) ([]store.ExpiredGrant, error) {
	recs, err := c.GrantCache.PopExpired(ctx, now, limit)
	if err != nil {
		return recs, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	popErr := c.popErr
	c.popErr = nil
	return recs, popErr
}

func pingRequest(t *testing.T, f *fixture) string {
	t.Helper()
	req := request("ping-client", "alice")
	req.ClientNotificationToken = "cnt"
	req.RequestedExpiry = "60"
	return f.authorize(t, req).AuthReqID
}

func TestSweepExpired_RetriesFailedUpdate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	cache := &flakyCache{GrantCache: f.cache, failUpdates: 1}
	f.svc.Cache = cache

	authReqID := pingRequest(t, f)
	f.clock.Advance(59 * time.Second)

	// Due on the sweep clock while the cache entry is still live.
	f.svc.Now = func() time.Time { return f.clock.Now().Add(2 * time.Second) }

	n, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	pings, _ := f.callbacks.snapshot()
	require.Empty(t, pings)

	n, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	pings, _ = f.callbacks.snapshot()
	require.Equal(t, []string{authReqID}, pings)

	snap, err := f.cache.Get(ctx, authReqID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusExpired, snap.RequestStatus)

	n, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "each request expires once")
}

func TestSweepExpired_PartialDecode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	decodeErr := errors.New("decode expiry record")
	f.svc.Cache = &flakyCache{GrantCache: f.cache, popErr: decodeErr}

	authReqID := pingRequest(t, f)
	f.clock.Advance(61 * time.Second)

	n, err := f.svc.SweepExpired(ctx)
	require.ErrorIs(t, err, decodeErr)
	require.Equal(t, 1, n, "records that decoded are still expired")

	pings, _ := f.callbacks.snapshot()
	require.Equal(t, []string{authReqID}, pings)
}
