package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrInvalidTransition = errors.New("invalid backchannel request status transition")
	ErrSlowDown          = errors.New("polled before the interval elapsed")
	ErrNotGranted        = errors.New("backchannel request has not been granted")
	ErrTokensDelivered   = errors.New("tokens already delivered")
)

// CIBARequestStatus is the end-user outcome of a backchannel request.
type CIBARequestStatus string

const (
	StatusPending   CIBARequestStatus = "AUTHORIZATION_PENDING"
	StatusInProcess CIBARequestStatus = "AUTHORIZATION_IN_PROCESS"
	StatusGranted   CIBARequestStatus = "AUTHORIZATION_GRANTED"
	StatusDenied    CIBARequestStatus = "AUTHORIZATION_DENIED"
	StatusExpired   CIBARequestStatus = "AUTHORIZATION_EXPIRED"
)

// IsTerminal reports whether the status can no longer change.
func (s CIBARequestStatus) IsTerminal() bool {
	return s == StatusGranted || s == StatusDenied || s == StatusExpired
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s CIBARequestStatus) CanTransitionTo(next CIBARequestStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusInProcess || next == StatusExpired
	case StatusInProcess:
		return next == StatusGranted || next == StatusDenied || next == StatusExpired
	default:
		return false
	}
}

// DeliveryMode is how a client learns about the outcome of its request.
type DeliveryMode string

const (
	DeliveryPoll DeliveryMode = "poll"
	DeliveryPing DeliveryMode = "ping"
	DeliveryPush DeliveryMode = "push"
)

func (m DeliveryMode) Valid() bool {
	return m == DeliveryPoll || m == DeliveryPing || m == DeliveryPush
}

// RequiresNotificationToken reports whether the server calls the client
// back and therefore needs a client_notification_token.
func (m DeliveryMode) RequiresNotificationToken() bool {
	return m == DeliveryPing || m == DeliveryPush
}

// CIBAGrant is the live, mutable form of a backchannel authentication
// grant. It is never shared between requests; the cache stores
// CIBACacheGrant snapshots instead.
type CIBAGrant struct {
	AuthorizationGrant

	AuthReqID               Token
	ClientNotificationToken string
	DeliveryMode            DeliveryMode
	Status                  CIBARequestStatus
	BindingMessage          string
	ACRValues               []string

	// Interval is the minimum time between token polls. Zero for push.
	Interval                  time.Duration
	LastAccessPollFlowControl time.Time

	TokensDelivered bool

	// Version increases on every stored mutation and guards
	// compare-and-swap updates in the grant cache.
	Version int64
}

// CIBAGrantParams carries what is needed to open a backchannel request.
type CIBAGrantParams struct {
	GrantID                 string
	AuthReqID               string
	UserID                  string
	ClientID                string
	Scopes                  []string
	ClientNotificationToken string
	DeliveryMode            DeliveryMode
	BindingMessage          string
	ACRValues               []string
	ExpiresIn               time.Duration
	Interval                time.Duration
}

// PollInterval rounds d up to whole seconds, the unit clients are told and
// the cache stores, with a floor of one second.
func PollInterval(d time.Duration) time.Duration {
	if d <= time.Second {
		return time.Second
	}
	return (d + time.Second - 1).Truncate(time.Second)
}

// NewCIBAGrant builds a pending grant created at now. The poll clock starts
// at the creation instant.
func NewCIBAGrant(p CIBAGrantParams, now time.Time) *CIBAGrant {
	base := NewAuthorizationGrant(GrantCIBA, p.GrantID, p.UserID, p.ClientID, p.Scopes, now)
	base.CachedWithNoPersistence = true

	var interval time.Duration
	if p.DeliveryMode != DeliveryPush {
		interval = PollInterval(p.Interval)
	}

	return &CIBAGrant{
		AuthorizationGrant:        base,
		AuthReqID:                 NewToken(p.AuthReqID, p.ExpiresIn, now),
		ClientNotificationToken:   p.ClientNotificationToken,
		DeliveryMode:              p.DeliveryMode,
		Status:                    StatusPending,
		BindingMessage:            p.BindingMessage,
		ACRValues:                 slices.Clone(p.ACRValues),
		Interval:                  interval,
		LastAccessPollFlowControl: now,
	}
}

// CurrentStatus applies lazy expiry: a non-terminal grant whose
// auth_req_id has lapsed becomes EXPIRED regardless of cache eviction.
func (g *CIBAGrant) CurrentStatus(now time.Time) CIBARequestStatus {
	expired := g.AuthReqID.CheckExpired(now)
	if expired && !g.Status.IsTerminal() {
		g.Status = StatusExpired
	}
	return g.Status
}

// IsExpired reports whether the auth_req_id has lapsed at now, whatever the
// status.
func (g *CIBAGrant) IsExpired(now time.Time) bool {
	return g.AuthReqID.CheckExpired(now)
}

// Transition moves the grant to next, after applying lazy expiry.
func (g *CIBAGrant) Transition(next CIBARequestStatus, now time.Time) error {
	cur := g.CurrentStatus(now)
	if !cur.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, next)
	}
	g.Status = next
	return nil
}

// CheckPollInterval enforces the minimum poll interval. A poll arriving too
// early gets ErrSlowDown and leaves the poll clock untouched; an accepted
// poll moves the clock to now.
func (g *CIBAGrant) CheckPollInterval(now time.Time) error {
	if g.Interval > 0 && now.Sub(g.LastAccessPollFlowControl) < g.Interval {
		return ErrSlowDown
	}
	g.LastAccessPollFlowControl = now
	return nil
}

// MarkTokensDelivered records the single permitted token issuance.
func (g *CIBAGrant) MarkTokensDelivered() error {
	if g.Status != StatusGranted {
		return ErrNotGranted
	}
	if g.TokensDelivered {
		return ErrTokensDelivered
	}
	g.TokensDelivered = true
	return nil
}

// ExpiresIn returns the seconds left on the auth_req_id.
func (g *CIBAGrant) ExpiresIn(now time.Time) int {
	return g.AuthReqID.ExpiresIn(now)
}

// CIBACacheGrant is the self-contained, serialisable snapshot of a
// CIBAGrant held in the grant cache. Timestamps are epoch milliseconds.
type CIBACacheGrant struct {
	GrantID                 string            `json:"grant_id"`
	AuthReqID               string            `json:"auth_req_id,omitempty"`
	UserID                  string            `json:"user_id"`
	ClientID                string            `json:"client_id"`
	Scopes                  []string          `json:"scopes"`
	ClientNotificationToken string            `json:"client_notification_token,omitempty"`
	DeliveryMode            DeliveryMode      `json:"delivery_mode"`
	BindingMessage          string            `json:"binding_message,omitempty"`
	ACRValues               []string          `json:"acr_values,omitempty"`
	ACR                     string            `json:"acr,omitempty"`
	AuthTime                int64             `json:"auth_time"`
	CreatedAt               int64             `json:"created_at"`
	ExpiresAt               int64             `json:"expires_at"`
	ExpiresIn               int               `json:"expires_in"`
	Interval                int               `json:"interval"`
	LastAccessControl       int64             `json:"last_access_control"`
	RequestStatus           CIBARequestStatus `json:"request_status"`
	TokensDelivered         bool              `json:"tokens_delivered"`
	Version                 int64             `json:"version"`
}

// CacheKey is the auth_req_id when set, otherwise the grant ID, so both
// identifiers can address the same entry.
func (s CIBACacheGrant) CacheKey() string {
	if s.AuthReqID != "" {
		return s.AuthReqID
	}
	return s.GrantID
}

// TTL returns how long the entry should live from now.
func (s CIBACacheGrant) TTL(now time.Time) time.Duration {
	return time.UnixMilli(s.ExpiresAt).Sub(now)
}

// ToSnapshot copies the grant into its cache form.
func (g *CIBAGrant) ToSnapshot() CIBACacheGrant {
	return CIBACacheGrant{
		GrantID:                 g.ID,
		AuthReqID:               g.AuthReqID.Code,
		UserID:                  g.UserID,
		ClientID:                g.ClientID,
		Scopes:                  slices.Clone(g.Scopes),
		ClientNotificationToken: g.ClientNotificationToken,
		DeliveryMode:            g.DeliveryMode,
		BindingMessage:          g.BindingMessage,
		ACRValues:               slices.Clone(g.ACRValues),
		ACR:                     g.ACR,
		AuthTime:                g.AuthTime.UnixMilli(),
		CreatedAt:               g.AuthReqID.CreatedAt.UnixMilli(),
		ExpiresAt:               g.AuthReqID.ExpiresAt.UnixMilli(),
		ExpiresIn:               int(g.AuthReqID.ExpiresAt.Sub(g.AuthReqID.CreatedAt).Seconds()),
		Interval:                int(g.Interval.Seconds()),
		LastAccessControl:       g.LastAccessPollFlowControl.UnixMilli(),
		RequestStatus:           g.Status,
		TokensDelivered:         g.TokensDelivered,
		Version:                 g.Version,
	}
}

// FromSnapshot rebuilds a live grant from its cache form.
func FromSnapshot(s CIBACacheGrant) *CIBAGrant {
	base := NewAuthorizationGrant(GrantCIBA, s.GrantID, s.UserID, s.ClientID, s.Scopes, time.UnixMilli(s.AuthTime))
	base.CachedWithNoPersistence = true
	base.ACR = s.ACR

	return &CIBAGrant{
		AuthorizationGrant: base,
		AuthReqID: Token{
			Code:      s.AuthReqID,
			CreatedAt: time.UnixMilli(s.CreatedAt),
			ExpiresAt: time.UnixMilli(s.ExpiresAt),
			Expired:   s.RequestStatus == StatusExpired,
		},
		ClientNotificationToken:   s.ClientNotificationToken,
		DeliveryMode:              s.DeliveryMode,
		Status:                    s.RequestStatus,
		BindingMessage:            s.BindingMessage,
		ACRValues:                 slices.Clone(s.ACRValues),
		Interval:                  time.Duration(s.Interval) * time.Second,
		LastAccessPollFlowControl: time.UnixMilli(s.LastAccessControl),
		TokensDelivered:           s.TokensDelivered,
		Version:                   s.Version,
	}
}
