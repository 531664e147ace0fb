package pgparcel

import (
	"context"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// UpsertUser inserts a new user with the default role, or refreshes
// last_log_in of an existing one. inserted reports which happened.
func (s *Storage) UpsertUser(ctx context.Context, email string, lastLogIn *time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE users SET last_log_in = $2 WHERE email = $1
`, email, lastLogIn)
	if err != nil {
		return false, errors.Wrap(err, "update user login")
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	tag, err = s.db.Exec(ctx, `
INSERT INTO users (id, email, role, created_at, last_log_in)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email) DO UPDATE SET last_log_in = EXCLUDED.last_log_in
`, uuid.NewString(), email, models.RoleUser, s.now(), lastLogIn)
	if err != nil {
		return false, errors.Wrap(err, "insert user")
	}
	return true, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `
SELECT id, email, role, created_at, last_log_in, role_updated_at
FROM users
WHERE email = $1
`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "select user")
	}
	return u, nil
}

// SearchUsers matches the fragment literally anywhere in the email,
// case-insensitively. An empty fragment matches everyone.
func (s *Storage) SearchUsers(ctx context.Context, emailFragment string, limit int) ([]*models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.db.Query(ctx, `
SELECT id, email, role, created_at, last_log_in, role_updated_at
FROM users
WHERE strpos(lower(email), lower($1)) > 0
ORDER BY created_at DESC
LIMIT $2
`, emailFragment, limit)
	if err != nil {
		return nil, errors.Wrap(err, "search users")
	}
	defer rows.Close()

	out := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		out = append(out, u)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// SetUserRole reports whether a row actually changed. A change stamps
// role_updated_at so later rider approvals cannot override it.
func (s *Storage) SetUserRole(ctx context.Context, id string, role models.Role) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE users SET role = $2, role_updated_at = $3
WHERE id = $1 AND role <> $2
`, id, role, s.now())
	if err != nil {
		return false, errors.Wrap(err, "update user role")
	}
	return tag.RowsAffected() > 0, nil
}

// PromoteToRider grants the rider role for an approval made at approvedAt.
// Only plain users are promoted, and only when their role was not changed
// after the approval.
func (s *Storage) PromoteToRider(ctx context.Context, email string, approvedAt time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE users SET role = $2, role_updated_at = $4
WHERE email = $1 AND role = $3 AND (role_updated_at IS NULL OR role_updated_at < $4)
`, email, models.RoleRider, models.RoleUser, approvedAt)
	if err != nil {
		return false, errors.Wrap(err, "promote user to rider")
	}
	return tag.RowsAffected() > 0, nil
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &role, &u.CreatedAt, &u.LastLogIn, &u.RoleUpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}
