package sqlite

import (
	"context"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
)

type devicesRepo struct {
	db dbtx
}

func (r *devicesRepo) get(ctx context.Context, where string, arg string) (domain.DeviceRegistration, error) {
	var (
		d                domain.DeviceRegistration
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, token, fingerprint, created_at, updated_at FROM device_registrations WHERE `+where+` = ?`, arg,
	).Scan(&d.UserID, &d.Token, &d.Fingerprint, &created, &updated)
	if err != nil {
		return domain.DeviceRegistration{}, mapNotFound(err)
	}
	d.CreatedAt = fromMillis(created)
	d.UpdatedAt = fromMillis(updated)
	return d, nil
}

func (r *devicesRepo) GetDeviceToken(ctx context.Context, userID string) (domain.DeviceRegistration, error) {
	return r.get(ctx, "user_id", userID)
}

func (r *devicesRepo) GetByFingerprint(ctx context.Context, fp string) (domain.DeviceRegistration, error) {
	return r.get(ctx, "fingerprint", fp)
}

func (r *devicesRepo) SetDeviceToken(ctx context.Context, reg domain.DeviceRegistration) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_registrations (user_id, token, fingerprint, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			token = excluded.token,
			fingerprint = excluded.fingerprint,
			updated_at = excluded.updated_at`,
		reg.UserID, reg.Token, reg.Fingerprint, toMillis(reg.CreatedAt), toMillis(reg.UpdatedAt),
	)
	return mapConstraint(err)
}
