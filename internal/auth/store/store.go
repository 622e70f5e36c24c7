package store

import (
	"context"
	"errors"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrAmbiguous     = errors.New("store: more than one match")
	ErrConflict      = errors.New("store: concurrent update conflict")
)

// Store is the root data access interface for durable data. Concrete
// drivers implement it and expose sub-repositories so a transaction can
// hand out the same repos bound to itself.
type Store interface {
	Users() Users
	Clients() Clients
	Devices() Devices
	Tokens() Tokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// FindUniqueUser looks value up against each attribute in attrs and
	// returns the single matching user. It fails with ErrNotFound when
	// nothing matches and ErrAmbiguous when more than one user does.
	FindUniqueUser(ctx context.Context, attrs []string, value string) (domain.User, error)

	CreateUser(ctx context.Context, u domain.User) error
}

type Clients interface {
	GetClientByID(ctx context.Context, id string) (domain.Client, error)
	CreateClient(ctx context.Context, c domain.Client) error
}

// Devices stores the out-of-band notification token of each user.
type Devices interface {
	// GetDeviceToken returns ErrNotFound when the user never registered.
	GetDeviceToken(ctx context.Context, userID string) (domain.DeviceRegistration, error)

	// SetDeviceToken creates or replaces the user's registration.
	SetDeviceToken(ctx context.Context, reg domain.DeviceRegistration) error

	// GetByFingerprint finds the registration whose token fingerprint is fp.
	GetByFingerprint(ctx context.Context, fp string) (domain.DeviceRegistration, error)
}

// Tokens stores issued refresh and ID tokens.
type Tokens interface {
	CreateToken(ctx context.Context, t domain.IssuedToken) error

	// GetTokenByFingerprint returns ErrNotFound for unknown fingerprints.
	GetTokenByFingerprint(ctx context.Context, kind domain.TokenKind, fp string) (domain.IssuedToken, error)

	// RevokeGrant revokes every token issued under grantID.
	RevokeGrant(ctx context.Context, grantID string) (int64, error)

	// DeleteExpiredTokens removes tokens whose expiry is before now.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}
