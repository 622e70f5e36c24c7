package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/JanssenProject/jans-sub050/pkg/cryptox"
	"github.com/JanssenProject/jans-sub050/pkg/idx"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

// CIBAConfig holds the backchannel authentication settings.
type CIBAConfig struct {
	Enabled bool

	// ExpiresIn is the default auth_req_id lifetime and MaxExpiresIn the
	// largest requested_expiry honoured.
	ExpiresIn    time.Duration
	MaxExpiresIn time.Duration

	// Interval is the minimum time between token polls.
	Interval time.Duration
}

// CIBAService runs backchannel authentication: request intake, the token
// poll, end-user consent, device registration and the expiry sweep.
type CIBAService struct {
	Config    CIBAConfig
	Store     store.Store
	Cache     store.GrantCache
	Clients   *ClientAuthenticator
	Validator *RequestValidator
	Resolver  *UserResolver
	Requests  *RequestObjectVerifier
	UserCodes UserCodeChecker
	Scopes    ScopePolicy
	Tokens    *TokenService
	Notifier  Notifier
	Callbacks ClientNotifier
	Auditor   Auditor
	Now       func() time.Time
}

func (s *CIBAService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *CIBAService) scopePolicy() ScopePolicy {
	if s.Scopes == nil {
		return ClientScopePolicy{}
	}
	return s.Scopes
}

// CheckEnabled fails with 403 access_denied when backchannel
// authentication is switched off. Endpoints call it before reading the
// request.
func (s *CIBAService) CheckEnabled() error {
	if !s.Config.Enabled {
		return errCIBADisabled
	}
	return nil
}

// BackchannelResponse is the successful answer to a backchannel
// authentication request. Interval is nil for push clients.
type BackchannelResponse struct {
	AuthReqID string
	ExpiresIn int
	Interval  *int
}

// BackchannelAuthorize validates a backchannel authentication request,
// opens a pending grant for the identified user and notifies the user's
// device. Client-visible failures are *CIBAError; anything else is an
// internal failure.
func (s *CIBAService) BackchannelAuthorize(ctx context.Context, req BackchannelRequest) (resp BackchannelResponse, err error) {
	ev := AuditEvent{Name: AuditBackchannelAuthorize, ClientID: req.ClientID}
	defer func() { auditOutcome(ctx, s.Auditor, ev, err) }()

	if err := s.CheckEnabled(); err != nil {
		return resp, err
	}

	client, err := s.Clients.Authenticate(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return resp, err
	}
	if !client.AllowsGrantType(domain.GrantCIBA) {
		return resp, errUnauthorizedClient
	}
	if req.Request != "" {
		if req, err = s.Requests.Apply(ctx, client, req); err != nil {
			return resp, err
		}
	}

	expiresIn, err := s.Validator.Validate(client, req)
	if err != nil {
		return resp, err
	}
	scopes, err := grantedScopes(s.scopePolicy(), client, req.Scopes)
	if err != nil {
		return resp, err
	}

	user, err := s.Resolver.Resolve(ctx, client, req)
	if err != nil {
		return resp, err
	}
	ev.UserID = user.ID

	now := s.now()
	if client.UserCodeParameter && (s.UserCodes == nil || !s.UserCodes.CheckUserCode(user, req.UserCode, now)) {
		return resp, errInvalidUserCode()
	}

	device, err := s.Store.Devices().GetDeviceToken(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return resp, errNoDevice
		}
		return resp, fmt.Errorf("load device token: %w", err)
	}

	authReqID, err := cryptox.GenerateHexToken(cryptox.TokenSize128)
	if err != nil {
		return resp, err
	}

	g := domain.NewCIBAGrant(domain.CIBAGrantParams{
		GrantID:                 idx.NewAt(now).String(),
		AuthReqID:               authReqID,
		UserID:                  user.ID,
		ClientID:                client.ID,
		Scopes:                  scopes,
		ClientNotificationToken: req.ClientNotificationToken,
		DeliveryMode:            client.DeliveryMode,
		BindingMessage:          req.BindingMessage,
		ACRValues:               req.ACRValues,
		ExpiresIn:               expiresIn,
		Interval:                s.Config.Interval,
	}, now)
	if len(req.ACRValues) > 0 {
		g.ACR = req.ACRValues[0]
	}

	snap := g.ToSnapshot()
	if err := s.Cache.Put(ctx, snap.CacheKey(), expiresIn, snap); err != nil {
		return resp, fmt.Errorf("store grant: %w", err)
	}
	ev.AuthReqID = authReqID

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, authReqID, device.Token)
	}

	slogx.FromContext(ctx).Info("backchannel request created",
		slog.String("client_id", client.ID),
		slog.String("user_id", user.ID),
		slog.String("auth_req_id", authReqID),
		slog.String("delivery_mode", string(client.DeliveryMode)),
	)

	resp = BackchannelResponse{AuthReqID: authReqID, ExpiresIn: g.ExpiresIn(now)}
	if g.Interval > 0 {
		secs := int(g.Interval.Seconds())
		resp.Interval = &secs
	}
	return resp, nil
}

// notifyClient tells a ping or push client about a grant that reached a
// final status. Failures are logged; the status change stands regardless.
func (s *CIBAService) notifyClient(ctx context.Context, snap domain.CIBACacheGrant) {
	if s.Callbacks == nil || snap.DeliveryMode == domain.DeliveryPoll {
		return
	}
	l := slogx.FromContext(ctx).With(slog.String("auth_req_id", snap.AuthReqID), slog.String("client_id", snap.ClientID))

	client, err := s.Store.Clients().GetClientByID(ctx, snap.ClientID)
	if err != nil {
		l.Error("failed to load client for callback", slog.Any("err", err))
		return
	}

	switch snap.DeliveryMode {
	case domain.DeliveryPing:
		s.Callbacks.Ping(ctx, client.NotificationEndpoint, snap.ClientNotificationToken, snap.AuthReqID)

	case domain.DeliveryPush:
		payload, err := s.pushPayload(ctx, snap)
		if err != nil {
			l.Error("failed to prepare push result", slog.Any("err", err))
			return
		}
		s.Callbacks.Push(ctx, client.NotificationEndpoint, snap.ClientNotificationToken, payload)
	}
}

// pushPayload builds the push-mode result. For a granted request the
// tokens are claimed with the same compare-and-swap as a token poll, so
// they are issued at most once.
func (s *CIBAService) pushPayload(ctx context.Context, snap domain.CIBACacheGrant) (any, error) {
	switch snap.RequestStatus {
	case domain.StatusDenied:
		return PushErrorResult{AuthReqID: snap.AuthReqID, Error: "access_denied", ErrorDescription: "the end-user denied the request"}, nil
	case domain.StatusExpired:
		return PushErrorResult{AuthReqID: snap.AuthReqID, Error: "expired_token", ErrorDescription: "the auth_req_id has expired"}, nil
	case domain.StatusGranted:
	default:
		return nil, fmt.Errorf("no push result for status %s", snap.RequestStatus)
	}

	claimed, err := s.Cache.Update(ctx, snap.CacheKey(), func(c *domain.CIBACacheGrant) error {
		g := domain.FromSnapshot(*c)
		if err := g.MarkTokensDelivered(); err != nil {
			return err
		}
		*c = g.ToSnapshot()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim tokens: %w", err)
	}

	set, err := s.Tokens.IssueCIBATokens(ctx, domain.FromSnapshot(claimed), true)
	if err != nil {
		s.releaseDelivery(ctx, claimed)
		return nil, err
	}
	return PushTokenResult{
		AuthReqID:    claimed.AuthReqID,
		AccessToken:  set.AccessToken,
		TokenType:    set.TokenType,
		ExpiresIn:    set.ExpiresIn,
		RefreshToken: set.RefreshToken,
		IDToken:      set.IDToken,
	}, nil
}
