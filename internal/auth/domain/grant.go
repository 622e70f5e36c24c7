package domain

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrRefreshTokenNotAllowed = errors.New("grant type does not allow refresh tokens")
	ErrGrantRevoked           = errors.New("grant has been revoked")
)

// GrantType is the closed set of OAuth2 grant variants.
type GrantType string

const (
	GrantAuthorizationCode     GrantType = "authorization_code"
	GrantImplicit              GrantType = "implicit"
	GrantClientCredentials     GrantType = "client_credentials"
	GrantResourceOwnerPassword GrantType = "password"
	GrantDeviceCode            GrantType = "urn:ietf:params:oauth:grant-type:device_code"
	GrantCIBA                  GrantType = "urn:openid:params:grant-type:ciba"
)

// Valid reports whether g is one of the known grant types.
func (g GrantType) Valid() bool {
	switch g {
	case GrantAuthorizationCode, GrantImplicit, GrantClientCredentials,
		GrantResourceOwnerPassword, GrantDeviceCode, GrantCIBA:
		return true
	}
	return false
}

// AllowsRefreshToken reports whether grants of this type may carry refresh
// tokens.
func (g GrantType) AllowsRefreshToken() bool {
	switch g {
	case GrantClientCredentials, GrantImplicit:
		return false
	}
	return g.Valid()
}

// AuthorizationGrant is the lifecycle shared by every grant type. It owns
// the tokens issued under it and revoking it revokes them all.
type AuthorizationGrant struct {
	ID       string
	UserID   string
	ClientID string
	AuthTime time.Time
	Scopes   []string
	ACR      string

	// CachedWithNoPersistence marks grants whose only home is the grant
	// cache rather than the database.
	CachedWithNoPersistence bool

	grantType GrantType
	tokens    []IssuedToken
	revoked   bool
}

// NewAuthorizationGrant creates a grant of type t. The type cannot change
// afterwards.
func NewAuthorizationGrant(t GrantType, id, userID, clientID string, scopes []string, authTime time.Time) AuthorizationGrant {
	return AuthorizationGrant{
		ID:        id,
		UserID:    userID,
		ClientID:  clientID,
		AuthTime:  authTime,
		Scopes:    slices.Clone(scopes),
		grantType: t,
	}
}

func (g *AuthorizationGrant) Type() GrantType         { return g.grantType }
func (g *AuthorizationGrant) IsRevoked() bool        { return g.revoked }
func (g *AuthorizationGrant) HasScope(s string) bool { return slices.Contains(g.Scopes, s) }

// Tokens returns a copy of the tokens issued under the grant.
func (g *AuthorizationGrant) Tokens() []IssuedToken {
	return slices.Clone(g.tokens)
}

// CreateAccessToken records an access token issued under the grant.
func (g *AuthorizationGrant) CreateAccessToken(id, fingerprint string, ttl time.Duration, now time.Time) (IssuedToken, error) {
	return g.issue(TokenKindAccess, id, fingerprint, ttl, now)
}

// CreateIDToken records an ID token issued under the grant.
func (g *AuthorizationGrant) CreateIDToken(id, fingerprint string, ttl time.Duration, now time.Time) (IssuedToken, error) {
	return g.issue(TokenKindID, id, fingerprint, ttl, now)
}

// CreateRefreshToken records a refresh token, failing with
// ErrRefreshTokenNotAllowed for grant types that may not hold one.
func (g *AuthorizationGrant) CreateRefreshToken(id, fingerprint string, ttl time.Duration, now time.Time) (IssuedToken, error) {
	if !g.grantType.AllowsRefreshToken() {
		return IssuedToken{}, ErrRefreshTokenNotAllowed
	}
	return g.issue(TokenKindRefresh, id, fingerprint, ttl, now)
}

func (g *AuthorizationGrant) issue(kind TokenKind, id, fingerprint string, ttl time.Duration, now time.Time) (IssuedToken, error) {
	if g.revoked {
		return IssuedToken{}, ErrGrantRevoked
	}
	t := IssuedToken{
		ID:          id,
		GrantID:     g.ID,
		GrantType:   g.grantType,
		Kind:        kind,
		Fingerprint: fingerprint,
		UserID:      g.UserID,
		ClientID:    g.ClientID,
		Scopes:      slices.Clone(g.Scopes),
		AuthTime:    g.AuthTime,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
	g.tokens = append(g.tokens, t)
	return t, nil
}

// Revoke revokes the grant and every token issued under it.
func (g *AuthorizationGrant) Revoke() {
	g.revoked = true
	for i := range g.tokens {
		g.tokens[i].Revoked = true
	}
}
