package pgparcel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const riderColumns = `
  id, email, name, contact, region, district, age, nid,
  bike_brand, bike_registration, status, created_at, updated_at`

func (s *Storage) CreateRider(ctx context.Context, r *models.Rider) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO riders (`+riderColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`, r.ID, r.Email, r.Name, r.Contact, r.Region, r.District, r.Age, r.NID,
		r.BikeBrand, r.BikeRegistration, r.Status, r.CreatedAt, r.UpdatedAt)
	return errors.Wrap(err, "insert rider")
}

func (s *Storage) GetRider(ctx context.Context, id string) (*models.Rider, error) {
	row := s.db.QueryRow(ctx, `SELECT `+riderColumns+` FROM riders WHERE id = $1`, id)
	r, err := scanRider(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Rider not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "select rider")
	}
	return r, nil
}

func (s *Storage) ListRiders(ctx context.Context, f models.RiderFilter) ([]*models.Rider, error) {
	var where []string
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Name != "" {
		args = append(args, f.Name)
		where = append(where, fmt.Sprintf("name ILIKE '%%' || $%d || '%%'", len(args)))
	}

	q := `SELECT ` + riderColumns + ` FROM riders`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select riders")
	}
	defer rows.Close()

	out := []*models.Rider{}
	for rows.Next() {
		r, err := scanRider(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan rider")
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// SetRiderStatus moves a rider from one status to another. The from guard
// makes the update a match-then-set on a single row; matched is false when
// the rider is missing or was not in from.
func (s *Storage) SetRiderStatus(ctx context.Context, id string, from, to models.RiderStatus, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE riders SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2
`, id, from, to, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "update rider status")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Storage) CountRidersByStatus(ctx context.Context, status models.RiderStatus) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM riders WHERE status = $1`, status).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count riders")
	}
	return n, nil
}

// ListRidersAwaitingRole returns approved riders whose user still carries the
// plain user role and whose role was not changed after the approval, i.e.
// approvals whose role elevation never landed.
func (s *Storage) ListRidersAwaitingRole(ctx context.Context, limit int) ([]*models.Rider, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
SELECT `+prefixed("r", riderColumns)+`
FROM riders r
JOIN users u ON u.email = r.email
WHERE r.status = $1 AND u.role = $2
  AND (u.role_updated_at IS NULL OR u.role_updated_at < r.updated_at)
ORDER BY r.updated_at ASC NULLS FIRST
LIMIT $3
`, models.RiderApproved, models.RoleUser, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select riders awaiting role")
	}
	defer rows.Close()

	out := []*models.Rider{}
	for rows.Next() {
		r, err := scanRider(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan rider")
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func scanRider(row scanner) (*models.Rider, error) {
	var r models.Rider
	var status string
	if err := row.Scan(
		&r.ID, &r.Email, &r.Name, &r.Contact, &r.Region, &r.District, &r.Age, &r.NID,
		&r.BikeBrand, &r.BikeRegistration, &status, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.Status = models.RiderStatus(status)
	return &r, nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
