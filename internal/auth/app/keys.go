package app

import (
	"fmt"
	"log/slog"

	"github.com/JanssenProject/jans-sub050/pkg/jwtx"
)

// InitAuthKeys generates the signing keys for ID tokens and access tokens.
//
// Keys live in memory only, so every token issued before a restart stops
// verifying. Relying parties refetch the JWKS on an unknown kid.
//
// Any RS, PS or ES algorithm may be configured. NumKeys signers are generated with
// random key IDs and one is picked at random per signature.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	logger.Info("initializing signing keys",
		"algorithm", cfg.Algorithm,
		"num_keys", cfg.NumKeys,
	)

	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
		RSABits:   cfg.RSABits,
		NumKeys:   cfg.NumKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key manager: %w", err)
	}

	logger.Info("generated signing keys",
		"algorithm", keyManager.Algorithm(),
		"num_keys", len(keyManager.KeySet.PublicJWKS().Keys),
		"issuer", keyManager.Issuer(),
	)
	return keyManager, nil
}
