package domain

import (
	"math"
	"time"
)

// Token is an unguessable code with an expiry clock. Backchannel
// authentication request IDs and issued tokens are built on it.
type Token struct {
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
	Expired   bool
	Revoked   bool
}

// NewToken returns a token valid for lifetime starting at now.
func NewToken(code string, lifetime time.Duration, now time.Time) Token {
	return Token{
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}
}

// CheckExpired flags the token as expired once now reaches its expiry and
// reports the flag. The flag never reverts.
func (t *Token) CheckExpired(now time.Time) bool {
	if !t.Expired && !now.Before(t.ExpiresAt) {
		t.Expired = true
	}
	return t.Expired
}

// Revoke permanently invalidates the token.
func (t *Token) Revoke() { t.Revoked = true }

// IsValid reports whether the token is neither revoked nor expired at now.
func (t Token) IsValid(now time.Time) bool {
	return !t.Revoked && !t.Expired && now.Before(t.ExpiresAt)
}

// ExpiresIn returns the whole seconds left at now, rounded up, never
// negative.
func (t Token) ExpiresIn(now time.Time) int {
	left := t.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// TokenKind tells issued tokens apart.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access_token"
	TokenKindRefresh TokenKind = "refresh_token"
	TokenKindID      TokenKind = "id_token"
)

// IssuedToken is the durable record of a token issued under a grant. Only
// the fingerprint of the token value is kept.
type IssuedToken struct {
	ID          string
	GrantID     string
	GrantType   GrantType
	Kind        TokenKind
	Fingerprint string
	UserID      string
	ClientID    string
	Scopes      []string
	AuthReqID   string
	AuthTime    time.Time
	ExpiresAt   time.Time
	Revoked     bool
	CreatedAt   time.Time
}

// IsLive reports whether the record is unrevoked and unexpired at now.
func (t IssuedToken) IsLive(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// TokenSet is what a successful token issuance hands back to the client.
type TokenSet struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int
	RefreshToken string
	IDToken      string
	Scope        string
}
