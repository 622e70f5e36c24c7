package service

import (
	"context"
	"log/slog"

	"github.com/JanssenProject/jans-sub050/pkg/slogx"
	"github.com/google/uuid"
)

// Audit event names.
const (
	AuditBackchannelAuthorize = "backchannel_authorize"
	AuditDeviceRegistration   = "backchannel_device_registration"
	AuditConsentBegin         = "backchannel_consent_begin"
	AuditConsentDecision      = "backchannel_consent_decision"
	AuditTokenPoll            = "backchannel_token_poll"
	AuditGrantExpired         = "backchannel_grant_expired"
)

// AuditEvent describes one backchannel attempt, successful or not.
type AuditEvent struct {
	Name      string
	Success   bool
	ClientID  string
	UserID    string
	AuthReqID string

	// ErrorCode is the OAuth2 error returned to the caller on failure.
	ErrorCode string
}

type Auditor interface {
	Record(ctx context.Context, ev AuditEvent)
}

// SlogAuditor writes each event as a structured log line.
type SlogAuditor struct {
	Logger *slog.Logger
}

func (a SlogAuditor) Record(ctx context.Context, ev AuditEvent) {
	l := a.Logger
	if l == nil {
		l = slogx.FromContext(ctx)
	}

	result := "success"
	if !ev.Success {
		result = "failure"
	}

	l.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("kind", "audit"),
		slog.String("event_id", uuid.NewString()),
		slog.String("event", ev.Name),
		slog.String("result", result),
		slog.String("client_id", ev.ClientID),
		slog.String("user_id", ev.UserID),
		slog.String("auth_req_id", ev.AuthReqID),
		slog.String("error", ev.ErrorCode),
	)
}

// auditOutcome fills the result fields of ev from err and records it.
func auditOutcome(ctx context.Context, a Auditor, ev AuditEvent, err error) {
	if a == nil {
		return
	}
	ev.Success = err == nil
	if err != nil {
		if ce, ok := AsCIBAError(err); ok {
			ev.ErrorCode = ce.Kind
		} else {
			ev.ErrorCode = "internal"
		}
	}
	a.Record(ctx, ev)
}
