package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/JanssenProject/jans-sub050/pkg/cryptox"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

// ClientAuthenticator checks client_id/client_secret pairs. Backchannel
// endpoints only serve confidential clients.
type ClientAuthenticator struct {
	Store  store.Store
	Hasher *cryptox.Hasher
}

// Authenticate returns the client or a 401 invalid_client CIBAError.
// Unexpected store failures are returned as is.
func (a *ClientAuthenticator) Authenticate(ctx context.Context, clientID, secret string) (domain.Client, error) {
	if clientID == "" || secret == "" {
		return domain.Client{}, errClientAuth
	}

	client, err := a.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, errClientAuth
		}
		return domain.Client{}, err
	}

	if !client.IsConfidential() || a.Hasher.Verify(secret, client.SecretHash) != nil {
		slogx.FromContext(ctx).Info("client authentication failed", slog.String("client_id", clientID))
		return domain.Client{}, errClientAuth
	}
	return client, nil
}
