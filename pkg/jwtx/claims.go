package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimAuthReqID carries the backchannel authentication request ID in ID
// tokens delivered to Ping and Push clients.
const ClaimAuthReqID = "urn:openid:params:jwt:claim:auth_req_id"

// AccessClaims are the claims of a JWT access token.
type AccessClaims struct {
	jwt.RegisteredClaims

	ClientID string `json:"client_id"`
	Scope    string `json:"scope,omitempty"`
}

// NewAccessClaims builds access-token claims valid from now for ttl.
func NewAccessClaims(issuer, subject, clientID string, scopes []string, ttl time.Duration, now time.Time) AccessClaims {
	return AccessClaims{
		RegisteredClaims: registered(issuer, subject, clientID, ttl, now),
		ClientID:         clientID,
		Scope:            strings.Join(scopes, " "),
	}
}

// IDClaims are the claims of an OpenID Connect ID token.
type IDClaims struct {
	jwt.RegisteredClaims

	AuthTime  *jwt.NumericDate `json:"auth_time,omitempty"`
	ACR       string           `json:"acr,omitempty"`
	AtHash    string           `json:"at_hash,omitempty"`
	RtHash    string           `json:"urn:openid:params:jwt:claim:rt_hash,omitempty"`
	AuthReqID string           `json:"urn:openid:params:jwt:claim:auth_req_id,omitempty"`
}

// NewIDClaims builds ID-token claims for subject with the client as the
// audience.
func NewIDClaims(issuer, subject, clientID string, authTime time.Time, ttl time.Duration, now time.Time) IDClaims {
	return IDClaims{
		RegisteredClaims: registered(issuer, subject, clientID, ttl, now),
		AuthTime:         jwt.NewNumericDate(authTime),
	}
}

func registered(issuer, subject, audience string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
