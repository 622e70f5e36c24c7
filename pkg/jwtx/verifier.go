package jwtx

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed      = errors.New("jwtx: malformed token")
	ErrUnsupportedAlg = errors.New("jwtx: unsupported algorithm")
	ErrUnknownKID     = errors.New("jwtx: unknown kid")
	ErrInvalidSig     = errors.New("jwtx: invalid signature")
	ErrExpired        = errors.New("jwtx: token expired")
	ErrInvalidClaim   = errors.New("jwtx: invalid claims")
)

// VerifyOptions captures the expectations a token must satisfy.
type VerifyOptions struct {
	// Issuer the token must carry. Empty means "don't care".
	Issuer string

	// Audience the token must contain. Empty means "don't care".
	Audience string

	// Leeway for exp/nbf/iat clock skew.
	Leeway time.Duration

	// AllowedAlgs restricts the accepted "alg" header values. Empty allows
	// every algorithm FamilyForAlg knows about.
	AllowedAlgs []string

	// Now is the clock time-based claims are checked against. Nil means
	// time.Now.
	Now func() time.Time
}

// Header is the part of the JOSE header a verifier relies on.
type Header struct {
	Alg string
	Kid string
}

// ParseHeader reads alg and kid without verifying the token. Both are
// mandatory.
func ParseHeader(token string) (Header, error) {
	t, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	alg, _ := t.Header["alg"].(string)
	kid, _ := t.Header["kid"].(string)
	if alg == "" || kid == "" {
		return Header{}, fmt.Errorf("%w: alg and kid headers are required", ErrMalformed)
	}
	return Header{Alg: alg, Kid: kid}, nil
}

// Verify checks the token signature against keys, picking the key by the
// header's kid and the family implied by its alg, and decodes the payload
// into claims. Errors wrap one of the package sentinels.
func Verify(ctx context.Context, token string, claims jwt.Claims, keys KeySource, opts VerifyOptions) (Header, error) {
	h, err := ParseHeader(token)
	if err != nil {
		return Header{}, err
	}
	if len(opts.AllowedAlgs) > 0 && !slices.Contains(opts.AllowedAlgs, h.Alg) {
		return h, fmt.Errorf("%w: %q", ErrUnsupportedAlg, h.Alg)
	}
	family, err := FamilyForAlg(h.Alg)
	if err != nil {
		return h, err
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{h.Alg}),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}
	if opts.Now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(opts.Now))
	}

	_, err = jwt.NewParser(parserOpts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return keys.PublicKey(ctx, h.Kid, family)
	})
	if err != nil {
		return h, classify(err)
	}
	return h, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnknownKID):
		return fmt.Errorf("%w: %w", ErrUnknownKID, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %w", ErrInvalidClaim, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
