package pgparcel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const parcelColumns = `
  id, tracking_id, created_by, cost, payment_status, delivery_status,
  assigned_rider, details, creation_date, updated_at`

func (s *Storage) CreateParcel(ctx context.Context, p *models.Parcel) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	details, err := json.Marshal(p.Details)
	if err != nil {
		return errors.Wrap(err, "marshal parcel details")
	}
	rider, err := snapshotParam(p.AssignedRider)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
INSERT INTO parcels (`+parcelColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, p.ID, p.TrackingID, p.CreatedBy, p.Cost, p.PaymentStatus, p.DeliveryStatus,
		rider, string(details), p.CreationDate.UTC(), p.UpdatedAt)
	return errors.Wrap(err, "insert parcel")
}

func (s *Storage) GetParcel(ctx context.Context, id string) (*models.Parcel, error) {
	row := s.db.QueryRow(ctx, `SELECT `+parcelColumns+` FROM parcels WHERE id = $1`, id)
	p, err := scanParcel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Parcel not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "select parcel")
	}
	return p, nil
}

// parcelWhere renders the filter as a WHERE clause (empty when nothing
// filters) and its positional args.
func parcelWhere(f models.ParcelFilter) (string, []any) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CreatedBy != "" {
		add("created_by = $%d", f.CreatedBy)
	}
	if f.PaymentStatus != "" {
		add("payment_status = $%d", string(f.PaymentStatus))
	}
	if len(f.DeliveryStatuses) > 0 {
		statuses := make([]string, 0, len(f.DeliveryStatuses))
		for _, st := range f.DeliveryStatuses {
			statuses = append(statuses, string(st))
		}
		add("delivery_status = ANY($%d)", statuses)
	}
	if f.RiderEmail != "" {
		add("assigned_rider->>'email' = $%d", f.RiderEmail)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (s *Storage) ListParcels(ctx context.Context, f models.ParcelFilter) ([]*models.Parcel, error) {
	where, args := parcelWhere(f)
	q := `SELECT ` + parcelColumns + ` FROM parcels` + where
	switch f.OrderBy {
	case models.OrderByUpdatedDesc:
		q += " ORDER BY updated_at DESC NULLS LAST, creation_date DESC"
	default:
		q += " ORDER BY creation_date DESC"
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select parcels")
	}
	defer rows.Close()

	out := []*models.Parcel{}
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan parcel")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) ParcelStats(ctx context.Context, f models.ParcelFilter) (models.ParcelStats, error) {
	where, args := parcelWhere(f)
	args = append(args,
		string(models.PaymentUnpaid), string(models.PaymentPaid),
		string(models.DeliveryDelivered), string(models.DeliveryNotCollected))
	n := len(args)
	q := fmt.Sprintf(`
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE payment_status = $%[1]d),
  COUNT(*) FILTER (WHERE delivery_status = $%[3]d),
  COUNT(*) FILTER (WHERE payment_status = $%[2]d AND delivery_status = $%[4]d),
  COALESCE(SUM(cost) FILTER (WHERE payment_status = $%[2]d), 0)
FROM parcels`, n-3, n-2, n-1, n) + where

	var st models.ParcelStats
	if err := s.db.QueryRow(ctx, q, args...).Scan(
		&st.Total, &st.Unpaid, &st.Delivered, &st.PaidNotCollected, &st.PaidCost,
	); err != nil {
		return models.ParcelStats{}, errors.Wrap(err, "parcel stats")
	}
	return st, nil
}

func (s *Storage) CountParcelsByStatus(ctx context.Context, f models.ParcelFilter) (map[models.DeliveryStatus]int64, error) {
	where, args := parcelWhere(f)
	rows, err := s.db.Query(ctx, `SELECT delivery_status, COUNT(*) FROM parcels`+where+` GROUP BY delivery_status`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "count parcels by status")
	}
	defer rows.Close()

	out := map[models.DeliveryStatus]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, "scan status count")
		}
		out[models.DeliveryStatus(status)] = n
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// SetDeliveryStatus is the unconditional low-level status write. The parcels
// CHECK constraint still refuses rows that would break the rider invariant.
func (s *Storage) SetDeliveryStatus(ctx context.Context, id string, status models.DeliveryStatus, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE parcels SET delivery_status = $2, updated_at = $3 WHERE id = $1
`, id, status, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "update delivery status")
	}
	return tag.RowsAffected() > 0, nil
}

// AssignRider stores the snapshot and moves the parcel to assigned, but only
// while the parcel is still assignable (not_collected or assigned).
func (s *Storage) AssignRider(ctx context.Context, id string, rider models.RiderSnapshot, at time.Time) (bool, error) {
	snap, err := snapshotParam(&rider)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `
UPDATE parcels SET delivery_status = $2, assigned_rider = $3, updated_at = $4
WHERE id = $1 AND delivery_status IN ($5, $2)
`, id, models.DeliveryAssigned, snap, at.UTC(), models.DeliveryNotCollected)
	if err != nil {
		return false, errors.Wrap(err, "assign rider")
	}
	return tag.RowsAffected() > 0, nil
}

// AdvanceDeliveryStatus moves the parcel from one status to the next; matched
// is false when the parcel is missing or no longer in from.
func (s *Storage) AdvanceDeliveryStatus(ctx context.Context, id string, from, to models.DeliveryStatus, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE parcels SET delivery_status = $3, updated_at = $4
WHERE id = $1 AND delivery_status = $2
`, id, from, to, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "advance delivery status")
	}
	return tag.RowsAffected() > 0, nil
}

// SetAssignment writes the delivery status and rider snapshot together; a nil
// snapshot clears the assignment.
func (s *Storage) SetAssignment(ctx context.Context, id string, status models.DeliveryStatus, rider *models.RiderSnapshot, at time.Time) (bool, error) {
	snap, err := snapshotParam(rider)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `
UPDATE parcels SET delivery_status = $2, assigned_rider = $3, updated_at = $4 WHERE id = $1
`, id, status, snap, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "update parcel assignment")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Storage) SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE parcels SET payment_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return false, errors.Wrap(err, "update payment status")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Storage) DeleteParcel(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM parcels WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "delete parcel")
	}
	return tag.RowsAffected() > 0, nil
}

func scanParcel(row scanner) (*models.Parcel, error) {
	var p models.Parcel
	var payment, delivery string
	var rider, details []byte
	if err := row.Scan(
		&p.ID, &p.TrackingID, &p.CreatedBy, &p.Cost, &payment, &delivery,
		&rider, &details, &p.CreationDate, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.PaymentStatus = models.PaymentStatus(payment)
	p.DeliveryStatus = models.DeliveryStatus(delivery)
	if len(rider) > 0 {
		var snap models.RiderSnapshot
		if err := json.Unmarshal(rider, &snap); err != nil {
			return nil, errors.Wrap(err, "decode assigned rider")
		}
		p.AssignedRider = &snap
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &p.Details); err != nil {
			return nil, errors.Wrap(err, "decode parcel details")
		}
	}
	return &p, nil
}

func snapshotParam(rider *models.RiderSnapshot) (any, error) {
	if rider == nil {
		return nil, nil
	}
	b, err := json.Marshal(rider)
	if err != nil {
		return nil, errors.Wrap(err, "marshal rider snapshot")
	}
	return string(b), nil
}
