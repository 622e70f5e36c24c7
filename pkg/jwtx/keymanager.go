package jwtx

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/JanssenProject/jans-sub050/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// KeyManager owns the server's signing keys. Keys are generated in memory
// at start-up and never persisted, so tokens from a previous process stop
// verifying after a restart.
type KeyManager struct {
	KeySet *KeySet

	issuer    string
	algorithm string
	signers   []Signer
}

// KeyManagerOptions configures NewEphemeralKeyManager.
type KeyManagerOptions struct {
	// Algorithm is one of RS256/384/512, PS256/384/512 or ES256/384/512.
	Algorithm string

	// Issuer is enforced when verifying tokens this server issued.
	Issuer string

	// RSABits defaults to 4096 and must be at least 2048.
	RSABits int

	// NumKeys defaults to 3 and is capped at 10.
	NumKeys int
}

// NewEphemeralKeyManager generates opts.NumKeys signing keys.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	n := opts.NumKeys
	if n <= 0 {
		n = 3
	}
	n = min(n, 10)

	km := &KeyManager{
		KeySet:    NewKeySet(),
		issuer:    opts.Issuer,
		algorithm: opts.Algorithm,
		signers:   make([]Signer, 0, n),
	}

	for i := range n {
		kid, err := cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key ID: %w", err)
		}

		signer, err := generateSigner(opts.Algorithm, "ciba-"+kid, opts.RSABits)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate signer %d: %w", i+1, err)
		}
		if err := km.KeySet.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add signer %d to keyset: %w", i+1, err)
		}
		km.signers = append(km.signers, signer)
	}

	return km, nil
}

func generateSigner(algorithm, kid string, rsaBits int) (Signer, error) {
	sa, err := lookupAlg(algorithm)
	if err != nil {
		return nil, err
	}

	var pemBytes []byte
	if sa.curve != nil {
		pemBytes, err = cryptox.GenerateECKey(sa.curve)
	} else {
		if rsaBits == 0 {
			rsaBits = 4096
		}
		pemBytes, err = cryptox.GenerateRSAKey(rsaBits)
	}
	if err != nil {
		return nil, err
	}
	return NewSigner(algorithm, kid, pemBytes)
}

// Algorithm returns the signing algorithm in use.
func (km *KeyManager) Algorithm() string { return km.algorithm }

// Issuer returns the issuer stamped on and required of server tokens.
func (km *KeyManager) Issuer() string { return km.issuer }

// IsReady reports whether signing keys are loaded.
func (km *KeyManager) IsReady() bool { return km.KeySet.IsReady() }

// GetSigner returns a randomly selected signer.
func (km *KeyManager) GetSigner() Signer {
	return km.signers[rand.IntN(len(km.signers))]
}

// Sign signs claims with a randomly selected key.
func (km *KeyManager) Sign(claims jwt.Claims) (string, error) {
	return km.GetSigner().Sign(claims)
}

// Verify checks a token issued by this server. audience may be empty.
func (km *KeyManager) Verify(ctx context.Context, token string, claims jwt.Claims, audience string) error {
	_, err := Verify(ctx, token, claims, km.KeySet, VerifyOptions{
		Issuer:      km.issuer,
		Audience:    audience,
		AllowedAlgs: []string{km.algorithm},
	})
	return err
}
