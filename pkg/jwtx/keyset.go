package jwtx

import (
	"context"
	"crypto"
	"fmt"
	"sync"
)

// KeySource resolves a verification key by key ID and family.
type KeySource interface {
	PublicKey(ctx context.Context, kid string, family KeyFamily) (crypto.PublicKey, error)
}

// KeySet holds the server's own public verification keys. It backs the
// published JWKS and the verification of tokens this server issued.
type KeySet struct {
	mu   sync.RWMutex
	jwks JWKS
	pub  map[string]crypto.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]crypto.PublicKey)}
}

// AddSigner registers a Signer's public JWK.
func (k *KeySet) AddSigner(s Signer) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK parses and adds a JWK.
func (k *KeySet) AddJWK(j JWK) error {
	key, err := j.PublicKey()
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub[j.Kid] = key
	k.jwks.Keys = append(k.jwks.Keys, j)
	return nil
}

// PublicKey implements KeySource.
func (k *KeySet) PublicKey(_ context.Context, kid string, family KeyFamily) (crypto.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	for _, j := range k.jwks.Keys {
		if j.Kid == kid {
			if j.Family() != family {
				return nil, fmt.Errorf("%w: kid %q is not an %s key", ErrUnknownKID, kid, family)
			}
			return k.pub[kid], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
}

// PublicJWKS returns a copy of the key set for publishing.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	keys := make([]JWK, len(k.jwks.Keys))
	copy(keys, k.jwks.Keys)
	return JWKS{Keys: keys}
}

// IsReady reports whether at least one key is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}
