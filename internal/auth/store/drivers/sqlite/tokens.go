package sqlite

import (
	"context"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
)

type tokensRepo struct {
	db dbtx
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.IssuedToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO issued_tokens (
			id, grant_id, grant_type, kind, fingerprint, user_id, client_id,
			scopes, auth_req_id, auth_time, expires_at, revoked, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.GrantID, string(t.GrantType), string(t.Kind), t.Fingerprint, t.UserID, t.ClientID,
		joinStrings(t.Scopes), t.AuthReqID, toMillis(t.AuthTime), toMillis(t.ExpiresAt), t.Revoked, toMillis(t.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *tokensRepo) GetTokenByFingerprint(ctx context.Context, kind domain.TokenKind, fp string) (domain.IssuedToken, error) {
	var (
		t                              domain.IssuedToken
		grantType, k, scopes           string
		authTime, expiresAt, createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, grant_id, grant_type, kind, fingerprint, user_id, client_id,
			scopes, auth_req_id, auth_time, expires_at, revoked, created_at
		FROM issued_tokens WHERE kind = ? AND fingerprint = ?`,
		string(kind), fp,
	).Scan(
		&t.ID, &t.GrantID, &grantType, &k, &t.Fingerprint, &t.UserID, &t.ClientID,
		&scopes, &t.AuthReqID, &authTime, &expiresAt, &t.Revoked, &createdAt,
	)
	if err != nil {
		return domain.IssuedToken{}, mapNotFound(err)
	}
	t.GrantType = domain.GrantType(grantType)
	t.Kind = domain.TokenKind(k)
	t.Scopes = splitAndFilter(scopes)
	t.AuthTime = fromMillis(authTime)
	t.ExpiresAt = fromMillis(expiresAt)
	t.CreatedAt = fromMillis(createdAt)
	return t, nil
}

func (r *tokensRepo) RevokeGrant(ctx context.Context, grantID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE issued_tokens SET revoked = 1 WHERE grant_id = ? AND revoked = 0`, grantID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM issued_tokens WHERE expires_at < ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
