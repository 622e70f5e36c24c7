package jwtx

import (
	"context"
	"crypto"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// maxJWKSBytes bounds how much of a remote JWKS document is read.
const maxJWKSBytes = 1 << 20

// RemoteJWKS fetches and caches key sets published by clients. A key ID
// missing from a cached set triggers one refetch so clients can rotate
// keys without waiting for the TTL.
type RemoteJWKS struct {
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]remoteEntry
}

type remoteEntry struct {
	set     JWKS
	fetched time.Time
}

// NewRemoteJWKS returns a RemoteJWKS. A nil client uses a client with a
// ten second timeout.
func NewRemoteJWKS(client *http.Client, ttl time.Duration) *RemoteJWKS {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteJWKS{
		client:  client,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]remoteEntry),
	}
}

// FetchPublicKey returns the key identified by kid and family from the set
// published at jwksURI.
func (r *RemoteJWKS) FetchPublicKey(ctx context.Context, jwksURI, kid string, family KeyFamily) (crypto.PublicKey, error) {
	set, cached, err := r.load(ctx, jwksURI, false)
	if err != nil {
		return nil, err
	}

	if j, ok := set.Find(kid, family); ok {
		return j.PublicKey()
	}

	if cached {
		if set, _, err = r.load(ctx, jwksURI, true); err != nil {
			return nil, err
		}
		if j, ok := set.Find(kid, family); ok {
			return j.PublicKey()
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
}

// For binds the fetcher to one JWKS URI so it can be used as a KeySource.
func (r *RemoteJWKS) For(jwksURI string) KeySource {
	return boundJWKS{r: r, uri: jwksURI}
}

type boundJWKS struct {
	r   *RemoteJWKS
	uri string
}

func (b boundJWKS) PublicKey(ctx context.Context, kid string, family KeyFamily) (crypto.PublicKey, error) {
	return b.r.FetchPublicKey(ctx, b.uri, kid, family)
}

// load returns the set for uri and whether it came from the cache.
func (r *RemoteJWKS) load(ctx context.Context, uri string, force bool) (JWKS, bool, error) {
	if !force {
		r.mu.Lock()
		e, ok := r.entries[uri]
		r.mu.Unlock()
		if ok && r.now().Sub(e.fetched) < r.ttl {
			return e.set, true, nil
		}
	}

	set, err := r.fetch(ctx, uri)
	if err != nil {
		return JWKS{}, false, err
	}

	r.mu.Lock()
	r.entries[uri] = remoteEntry{set: set, fetched: r.now()}
	r.mu.Unlock()

	return set, false, nil
}

func (r *RemoteJWKS) fetch(ctx context.Context, uri string) (JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return JWKS{}, fmt.Errorf("jwtx: build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return JWKS{}, fmt.Errorf("jwtx: fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return JWKS{}, fmt.Errorf("jwtx: fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var set JWKS
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBytes)).Decode(&set); err != nil {
		return JWKS{}, fmt.Errorf("jwtx: decode jwks: %w", err)
	}
	return set, nil
}
