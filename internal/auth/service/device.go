package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/JanssenProject/jans-sub050/pkg/cryptox"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

// RegisterDevice binds deviceToken to the end-user identified by an ID
// token previously issued to the calling client. A later registration
// replaces the earlier one.
func (s *CIBAService) RegisterDevice(ctx context.Context, clientID, clientSecret, idTokenHint, deviceToken string) (err error) {
	ev := AuditEvent{Name: AuditDeviceRegistration, ClientID: clientID}
	defer func() { auditOutcome(ctx, s.Auditor, ev, err) }()

	if !s.Config.Enabled {
		return errCIBADisabled
	}

	client, err := s.Clients.Authenticate(ctx, clientID, clientSecret)
	if err != nil {
		return err
	}
	if !client.AllowsGrantType(domain.GrantCIBA) {
		return errUnauthorizedClient
	}
	if idTokenHint == "" {
		return errInvalidRequest("id_token_hint is required")
	}
	if deviceToken == "" {
		return errInvalidRequest("device_registration_token is required")
	}

	rec, err := s.Tokens.FindGrantByIDToken(ctx, idTokenHint)
	if err != nil {
		slogx.FromContext(ctx).Info("device registration hint rejected",
			slog.String("client_id", client.ID), slog.Any("err", err))
		return errUnknownUser("id_token_hint does not identify a user")
	}
	if rec.ClientID != client.ID {
		return errUnknownUser("id_token_hint was issued to another client")
	}
	ev.UserID = rec.UserID

	now := s.now()
	err = s.Store.Devices().SetDeviceToken(ctx, domain.DeviceRegistration{
		UserID:      rec.UserID,
		Token:       deviceToken,
		Fingerprint: cryptox.FingerprintToken(deviceToken),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return errInvalidRequest("device_registration_token is already in use")
		}
		return fmt.Errorf("store device token: %w", err)
	}

	slogx.FromContext(ctx).Info("device registered",
		slog.String("client_id", client.ID),
		slog.String("user_id", rec.UserID),
	)
	return nil
}
