package pgparcel

import (
	"context"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// InsertTrackingEvent appends to the ledger. There is no update or delete
// counterpart: events are write-once.
func (s *Storage) InsertTrackingEvent(ctx context.Context, e *models.TrackingEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO tracking_events (id, parcel_id, tracking_id, status, message, updated_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, e.ID, e.ParcelID, e.TrackingID, e.Status, e.Message, e.UpdatedBy, e.CreatedAt.UTC())
	return errors.Wrap(err, "insert tracking event")
}

func (s *Storage) ListTrackingEvents(ctx context.Context, parcelID string) ([]*models.TrackingEvent, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, parcel_id, tracking_id, status, message, updated_by, created_at
FROM tracking_events
WHERE parcel_id = $1
ORDER BY created_at ASC, id ASC
`, parcelID)
	if err != nil {
		return nil, errors.Wrap(err, "select tracking events")
	}
	defer rows.Close()

	out := []*models.TrackingEvent{}
	for rows.Next() {
		var e models.TrackingEvent
		if err := rows.Scan(&e.ID, &e.ParcelID, &e.TrackingID, &e.Status, &e.Message, &e.UpdatedBy, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan tracking event")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
