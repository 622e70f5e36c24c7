package sqlite

import (
	"context"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
)

const clientColumns = `id, name, secret_hash, scopes, grant_types, delivery_mode,
	notification_endpoint, jwks_uri, user_code_parameter, accepted_hints, created_at, updated_at`

type clientsRepo struct {
	db dbtx
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	var (
		c                                   domain.Client
		scopes, grantTypes, hints, delivery string
		created, updated                    int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id).Scan(
		&c.ID, &c.Name, &c.SecretHash, &scopes, &grantTypes, &delivery,
		&c.NotificationEndpoint, &c.JWKSURI, &c.UserCodeParameter, &hints, &created, &updated,
	)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}

	c.Scopes = splitAndFilter(scopes)
	c.GrantTypes = splitAs[domain.GrantType](grantTypes)
	c.DeliveryMode = domain.DeliveryMode(delivery)
	c.AcceptedHints = splitAs[domain.HintType](hints)
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	delivery := c.DeliveryMode
	if delivery == "" {
		delivery = domain.DeliveryPoll
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (`+clientColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.SecretHash, joinStrings(c.Scopes), joinStrings(c.GrantTypes), string(delivery),
		c.NotificationEndpoint, c.JWKSURI, c.UserCodeParameter, joinStrings(c.AcceptedHints),
		toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	return mapConstraint(err)
}
