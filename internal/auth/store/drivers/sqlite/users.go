package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
)

// Directory attributes a hint may be matched against, mapped to columns.
var userAttrColumns = map[string]string{
	domain.AttrUID:   "uid",
	domain.AttrMail:  "mail",
	domain.AttrPhone: "phone",
}

const userColumns = `id, uid, mail, phone, totp_secret, user_code_hash, created_at, updated_at`

type usersRepo struct {
	db dbtx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                  domain.User
		totp, userCodeHash sql.NullString
		created, updated   int64
	)
	if err := row.Scan(&u.ID, &u.UID, &u.Mail, &u.Phone, &totp, &userCodeHash, &created, &updated); err != nil {
		return domain.User{}, err
	}
	u.TOTPSecret = mapNullString(totp)
	u.UserCodeHash = mapNullString(userCodeHash)
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) FindUniqueUser(ctx context.Context, attrs []string, value string) (domain.User, error) {
	if len(attrs) == 0 || value == "" {
		return domain.User{}, store.ErrNotFound
	}

	conds := make([]string, 0, len(attrs))
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		col, ok := userAttrColumns[a]
		if !ok {
			return domain.User{}, fmt.Errorf("sqlite: unknown user attribute %q", a)
		}
		conds = append(conds, col+" = ?")
		args = append(args, value)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+strings.Join(conds, " OR ")+` LIMIT 2`, args...)
	if err != nil {
		return domain.User{}, err
	}
	defer rows.Close()

	var found []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return domain.User{}, err
		}
		found = append(found, u)
	}
	if err := rows.Err(); err != nil {
		return domain.User{}, err
	}

	switch len(found) {
	case 0:
		return domain.User{}, store.ErrNotFound
	case 1:
		return found[0], nil
	default:
		return domain.User{}, store.ErrAmbiguous
	}
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.UID, u.Mail, u.Phone,
		mapOptionalString(u.TOTPSecret), mapOptionalString(u.UserCodeHash),
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	return mapConstraint(err)
}
