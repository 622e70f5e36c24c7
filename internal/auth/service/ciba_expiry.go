package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

const sweepBatch = 100

// SweepExpired marks every backchannel request that ran out of time
// undecided as EXPIRED and tells ping and push clients. It returns how many
// requests it expired. Records that could not be updated go back into the
// expiry index for the next sweep.
func (s *CIBAService) SweepExpired(ctx context.Context) (int, error) {
	l := slogx.FromContext(ctx)
	now := s.now()

	var expired int
	for {
		// Records that decoded are handled even when others did not.
		recs, popErr := s.Cache.PopExpired(ctx, now, sweepBatch)

		var requeued bool
		for _, rec := range recs {
			snap, err := s.Cache.Update(ctx, rec.Key, func(c *domain.CIBACacheGrant) error {
				if c.RequestStatus.IsTerminal() {
					return errUnchanged
				}
				g := domain.FromSnapshot(*c)
				if g.CurrentStatus(now) != domain.StatusExpired {
					return errUnchanged
				}
				*c = g.ToSnapshot()
				return nil
			})
			switch {
			case err == nil:
			case errors.Is(err, store.ErrNotFound):
				// Evicted already; the index record still names the client.
				snap = domain.CIBACacheGrant{
					AuthReqID:               rec.Key,
					ClientID:                rec.ClientID,
					DeliveryMode:            rec.DeliveryMode,
					ClientNotificationToken: rec.ClientNotificationToken,
					RequestStatus:           domain.StatusExpired,
				}
			case errors.Is(err, errUnchanged):
				continue
			default:
				l.Error("failed to expire backchannel request", slog.String("auth_req_id", rec.Key), slog.Any("err", err))
				if err := s.Cache.Requeue(ctx, rec); err != nil {
					l.Error("failed to requeue backchannel request", slog.String("auth_req_id", rec.Key), slog.Any("err", err))
				}
				requeued = true
				continue
			}

			expired++
			if s.Auditor != nil {
				s.Auditor.Record(ctx, AuditEvent{
					Name:      AuditGrantExpired,
					Success:   true,
					ClientID:  snap.ClientID,
					UserID:    snap.UserID,
					AuthReqID: snap.AuthReqID,
				})
			}
			s.notifyClient(ctx, snap)
		}

		if popErr != nil {
			return expired, popErr
		}
		if requeued || len(recs) < sweepBatch {
			return expired, nil
		}
	}
}
