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
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

// Token endpoint failures are always 400.
var (
	errPollDisabled = cibaError(http.StatusBadRequest, authsdk.ErrorCodeUnsupportedGrantType,
		"backchannel authentication is disabled")
	errPollUnauthorized = cibaError(http.StatusBadRequest, authsdk.ErrorCodeUnauthorizedClient,
		"client is not registered for backchannel authentication")
	errPollPush = cibaError(http.StatusBadRequest, authsdk.ErrorCodeUnauthorizedClient,
		"push clients receive tokens at their notification endpoint")
	errPollOtherClient = cibaError(http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant,
		"auth_req_id was issued to another client")
	errPollDelivered = &CIBAError{
		Kind:   authsdk.ErrorCodeInvalidGrant,
		Reason: ErrTokensAlreadyDelivered.Error(),
		Status: http.StatusBadRequest,
		Cause:  ErrTokensAlreadyDelivered,
	}
	errPollDenied = cibaError(http.StatusBadRequest, authsdk.ErrorCodeAccessDenied,
		"the end-user denied the request")
	errPollExpired = cibaError(http.StatusBadRequest, authsdk.ErrorCodeExpiredToken,
		"the auth_req_id has expired")
	errPollPending = cibaError(http.StatusBadRequest, authsdk.ErrorCodeAuthorizationPending,
		"the end-user has not decided yet")
	errPollSlowDown = &CIBAError{
		Kind:   authsdk.ErrorCodeSlowDown,
		Reason: "polling too fast",
		Status: http.StatusBadRequest,
		Cause:  domain.ErrSlowDown,
	}
)

// PollToken answers a token request with the backchannel grant type. The
// grant is claimed for delivery with a compare-and-swap before any token
// is minted, so concurrent polls get tokens at most once.
func (s *CIBAService) PollToken(ctx context.Context, clientID, clientSecret, authReqID string) (set domain.TokenSet, err error) {
	ev := AuditEvent{Name: AuditTokenPoll, ClientID: clientID, AuthReqID: authReqID}
	defer func() { auditOutcome(ctx, s.Auditor, ev, err) }()

	if !s.Config.Enabled {
		return set, errPollDisabled
	}

	client, err := s.Clients.Authenticate(ctx, clientID, clientSecret)
	if err != nil {
		return set, err
	}
	if !client.AllowsGrantType(domain.GrantCIBA) {
		return set, errPollUnauthorized
	}
	if client.DeliveryMode == domain.DeliveryPush {
		return set, errPollPush
	}
	if authReqID == "" {
		return set, errInvalidRequest("auth_req_id is required")
	}

	now := s.now()
	snap, err := s.Cache.Update(ctx, authReqID, func(c *domain.CIBACacheGrant) error {
		if c.ClientID != client.ID {
			return errPollOtherClient
		}
		g := domain.FromSnapshot(*c)
		if g.TokensDelivered {
			return errPollDelivered
		}
		if err := g.CheckPollInterval(now); err != nil {
			return errPollSlowDown
		}

		switch g.CurrentStatus(now) {
		case domain.StatusPending, domain.StatusInProcess:
		case domain.StatusGranted:
			if g.IsExpired(now) {
				return errPollExpired
			}
			if err := g.MarkTokensDelivered(); err != nil {
				return err
			}
		case domain.StatusDenied:
			return errPollDenied
		default:
			return errPollExpired
		}

		*c = g.ToSnapshot()
		return nil
	})
	ev.UserID = snap.UserID
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return set, errPollExpired
		case errors.Is(err, store.ErrConflict):
			return set, errPollSlowDown
		case errors.Is(err, domain.ErrTokensDelivered):
			return set, errPollDelivered
		}
		if _, ok := AsCIBAError(err); ok {
			return set, err
		}
		return set, fmt.Errorf("update grant: %w", err)
	}

	if !snap.TokensDelivered {
		return set, errPollPending
	}
	set, err = s.Tokens.IssueCIBATokens(ctx, domain.FromSnapshot(snap), false)
	if err != nil {
		s.releaseDelivery(ctx, snap)
		return set, err
	}
	return set, nil
}

// releaseDelivery undoes a delivery claim whose tokens could not be issued,
// so a later poll or push can try again.
func (s *CIBAService) releaseDelivery(ctx context.Context, claimed domain.CIBACacheGrant) {
	_, err := s.Cache.Update(ctx, claimed.CacheKey(), func(c *domain.CIBACacheGrant) error {
		if c.Version != claimed.Version || !c.TokensDelivered {
			return errUnchanged
		}
		c.TokensDelivered = false
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		slogx.FromContext(ctx).Error("failed to release token delivery",
			slog.String("auth_req_id", claimed.AuthReqID),
			slog.Any("err", err),
		)
	}
}
