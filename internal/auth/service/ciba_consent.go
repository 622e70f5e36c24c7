package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/cryptox"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

var (
	errDeviceAuth = cibaError(http.StatusUnauthorized, authsdk.ErrorCodeUnauthorizedEndUserDevice,
		"device is not registered")
	errNotYourRequest = cibaError(http.StatusForbidden, authsdk.ErrorCodeAccessDenied,
		"auth_req_id belongs to another end-user")
	errConsentExpired = cibaError(http.StatusBadRequest, authsdk.ErrorCodeExpiredToken,
		"the auth_req_id has expired")
	errAlreadyDecided = cibaError(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
		"the request has already been decided")

	// errUnchanged aborts a cache update that has nothing to write.
	errUnchanged = errors.New("unchanged")
)

// ConsentView is what the end-user's device shows before deciding.
type ConsentView struct {
	AuthReqID      string   `json:"auth_req_id"`
	ClientID       string   `json:"client_id"`
	ClientName     string   `json:"client_name,omitempty"`
	Scopes         []string `json:"scopes"`
	ACRValues      []string `json:"acr_values,omitempty"`
	BindingMessage string   `json:"binding_message,omitempty"`
	ExpiresIn      int      `json:"expires_in"`
}

// authenticateDevice finds the registration the presented device token
// belongs to.
func (s *CIBAService) authenticateDevice(ctx context.Context, deviceToken string) (domain.DeviceRegistration, error) {
	if deviceToken == "" {
		return domain.DeviceRegistration{}, errDeviceAuth
	}
	reg, err := s.Store.Devices().GetByFingerprint(ctx, cryptox.FingerprintToken(deviceToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DeviceRegistration{}, errDeviceAuth
		}
		return domain.DeviceRegistration{}, fmt.Errorf("load device: %w", err)
	}
	return reg, nil
}

// consentError maps what an update returned when the grant could not be
// decided on.
func consentError(err error) error {
	switch {
	case err == nil, errors.Is(err, errUnchanged):
		return nil
	case errors.Is(err, store.ErrNotFound):
		return errConsentExpired
	case errors.Is(err, store.ErrConflict):
		return cibaError(http.StatusConflict, authsdk.ErrorCodeInvalidRequest, "concurrent decision, retry")
	case errors.Is(err, domain.ErrInvalidTransition):
		return errAlreadyDecided
	}
	if _, ok := AsCIBAError(err); ok {
		return err
	}
	return fmt.Errorf("update grant: %w", err)
}

// BeginConsent marks the request as being looked at by the end-user and
// returns what they are asked to approve. Repeating it is harmless.
func (s *CIBAService) BeginConsent(ctx context.Context, deviceToken, authReqID string) (view ConsentView, err error) {
	ev := AuditEvent{Name: AuditConsentBegin, AuthReqID: authReqID}
	defer func() { auditOutcome(ctx, s.Auditor, ev, err) }()

	if !s.Config.Enabled {
		return view, errCIBADisabled
	}
	device, err := s.authenticateDevice(ctx, deviceToken)
	if err != nil {
		return view, err
	}
	ev.UserID = device.UserID
	if authReqID == "" {
		return view, errInvalidRequest("auth_req_id is required")
	}

	now := s.now()
	snap, err := s.Cache.Update(ctx, authReqID, func(c *domain.CIBACacheGrant) error {
		if c.UserID != device.UserID {
			return errNotYourRequest
		}
		g := domain.FromSnapshot(*c)
		switch g.CurrentStatus(now) {
		case domain.StatusPending:
			if err := g.Transition(domain.StatusInProcess, now); err != nil {
				return err
			}
		case domain.StatusInProcess:
			return errUnchanged
		case domain.StatusExpired:
			return errConsentExpired
		default:
			return errAlreadyDecided
		}
		*c = g.ToSnapshot()
		return nil
	})
	if err := consentError(err); err != nil {
		return view, err
	}
	ev.ClientID = snap.ClientID

	view = ConsentView{
		AuthReqID:      snap.AuthReqID,
		ClientID:       snap.ClientID,
		Scopes:         snap.Scopes,
		ACRValues:      snap.ACRValues,
		BindingMessage: snap.BindingMessage,
		ExpiresIn:      domain.FromSnapshot(snap).ExpiresIn(now),
	}
	if client, err := s.Store.Clients().GetClientByID(ctx, snap.ClientID); err == nil {
		view.ClientName = client.Name
	}
	return view, nil
}

// Decide records the end-user's answer and then informs ping and push
// clients. A request still pending is moved through IN_PROCESS first.
func (s *CIBAService) Decide(ctx context.Context, deviceToken, authReqID string, approve bool) (err error) {
	ev := AuditEvent{Name: AuditConsentDecision, AuthReqID: authReqID}
	defer func() { auditOutcome(ctx, s.Auditor, ev, err) }()

	if !s.Config.Enabled {
		return errCIBADisabled
	}
	device, err := s.authenticateDevice(ctx, deviceToken)
	if err != nil {
		return err
	}
	ev.UserID = device.UserID
	if authReqID == "" {
		return errInvalidRequest("auth_req_id is required")
	}

	target := domain.StatusDenied
	if approve {
		target = domain.StatusGranted
	}

	now := s.now()
	snap, err := s.Cache.Update(ctx, authReqID, func(c *domain.CIBACacheGrant) error {
		if c.UserID != device.UserID {
			return errNotYourRequest
		}
		g := domain.FromSnapshot(*c)
		switch g.CurrentStatus(now) {
		case domain.StatusPending:
			if err := g.Transition(domain.StatusInProcess, now); err != nil {
				return err
			}
		case domain.StatusInProcess:
		case domain.StatusExpired:
			return errConsentExpired
		default:
			return errAlreadyDecided
		}
		if err := g.Transition(target, now); err != nil {
			return err
		}
		if approve {
			g.AuthTime = now
		}
		*c = g.ToSnapshot()
		return nil
	})
	if err := consentError(err); err != nil {
		return err
	}
	ev.ClientID = snap.ClientID

	slogx.FromContext(ctx).Info("backchannel request decided",
		slog.String("auth_req_id", snap.AuthReqID),
		slog.String("client_id", snap.ClientID),
		slog.String("status", string(snap.RequestStatus)),
	)

	s.notifyClient(ctx, snap)
	return nil
}
