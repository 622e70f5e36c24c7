package store

import (
	"context"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
)

// GrantCache holds backchannel grant snapshots with a TTL. Values are
// copied in and out; callers never share memory with the cache.
type GrantCache interface {
	// Get returns ErrNotFound for missing or evicted keys.
	Get(ctx context.Context, key string) (domain.CIBACacheGrant, error)

	// Put stores a new entry and fails with ErrAlreadyExists if key is
	// taken. Non-terminal entries are tracked in the expiry index.
	Put(ctx context.Context, key string, ttl time.Duration, g domain.CIBACacheGrant) error

	// Update atomically applies fn to the current entry and writes the
	// result, keeping the remaining TTL and bumping Version. If fn returns
	// an error nothing is written and the error is returned together with
	// the unmodified entry. Entries reaching a terminal status leave the
	// expiry index.
	Update(ctx context.Context, key string, fn func(g *domain.CIBACacheGrant) error) (domain.CIBACacheGrant, error)

	// PopExpired removes and returns up to limit index records whose grant
	// expired at or before now without reaching a terminal status. Each
	// record is handed to exactly one caller.
	PopExpired(ctx context.Context, now time.Time, limit int) ([]ExpiredGrant, error)

	// Requeue puts a popped record back into the expiry index so a later
	// sweep picks it up again.
	Requeue(ctx context.Context, rec ExpiredGrant) error

	Ping(ctx context.Context) error
	Close() error
}

// ExpiredGrant is an expiry index record. It carries what is needed to
// tell the client even after the cache entry itself has been evicted.
type ExpiredGrant struct {
	Key                     string              `json:"key"`
	ClientID                string              `json:"client_id"`
	DeliveryMode            domain.DeliveryMode `json:"delivery_mode"`
	ClientNotificationToken string              `json:"client_notification_token,omitempty"`
	ExpiresAt               int64               `json:"expires_at"`
}

// ExpiryRecord builds the index record for a snapshot.
func ExpiryRecord(g domain.CIBACacheGrant) ExpiredGrant {
	return ExpiredGrant{
		Key:                     g.CacheKey(),
		ClientID:                g.ClientID,
		DeliveryMode:            g.DeliveryMode,
		ClientNotificationToken: g.ClientNotificationToken,
		ExpiresAt:               g.ExpiresAt,
	}
}
