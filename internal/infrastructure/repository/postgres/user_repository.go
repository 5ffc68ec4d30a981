package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qazdocs/docsign/internal/core/domain"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, iin, bin, full_name, organization, email, created_at, updated_at`

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+userColumns+` FROM users WHERE id = $1
`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrUserNotFound, "get user", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpsertByIIN creates the user on first login and refreshes the
// certificate-derived fields on every subsequent one.
func (r *UserRepository) UpsertByIIN(ctx context.Context, user *domain.User) (*domain.User, error) {
	id := user.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()

	row := r.db.QueryRowContext(ctx, `
INSERT INTO users (id, iin, bin, full_name, organization, email, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
ON CONFLICT (iin) DO UPDATE SET
	bin = EXCLUDED.bin,
	full_name = EXCLUDED.full_name,
	organization = EXCLUDED.organization,
	updated_at = EXCLUDED.updated_at
RETURNING `+userColumns+`
`, id, user.IIN, nullable(user.BIN), nullable(user.FullName), nullable(user.Organization),
		nullable(user.Email), now)

	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateEmail(ctx context.Context, id, email string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users SET email = $2, updated_at = $3 WHERE id = $1
`, id, email, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrUserNotFound, "update email", fmt.Errorf("id %s", id))
	}
	return nil
}

// SearchPartners finds candidate co-signers by fuzzy match on name,
// organization or identity numbers. Relies on the pg_trgm extension.
func (r *UserRepository) SearchPartners(ctx context.Context, query string, limit int, excludeID string) ([]domain.User, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id <> $2
	AND (
		similarity(coalesce(full_name, ''), $1) > 0.2
		OR similarity(coalesce(organization, ''), $1) > 0.2
		OR iin LIKE $1 || '%'
		OR coalesce(bin, '') LIKE $1 || '%'
	)
ORDER BY greatest(similarity(coalesce(full_name, ''), $1), similarity(coalesce(organization, ''), $1)) DESC
LIMIT $3
`, query, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var bin, fullName, organization, email sql.NullString

	err := row.Scan(&u.ID, &u.IIN, &bin, &fullName, &organization, &email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.BIN = bin.String
	u.FullName = fullName.String
	u.Organization = organization.String
	u.Email = email.String
	return &u, nil
}
