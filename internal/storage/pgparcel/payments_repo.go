package pgparcel

import (
	"context"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func (s *Storage) InsertPayment(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = s.now()
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO payments (id, parcel_id, email, amount, transaction_id, method, status, paid_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, p.ID, p.ParcelID, p.Email, p.Amount, p.TransactionID, p.Method, p.Status, p.PaidAt.UTC())
	return errors.Wrap(err, "insert payment")
}

func (s *Storage) ListPaymentsByEmail(ctx context.Context, email string) ([]*models.Payment, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, parcel_id, email, amount, transaction_id, method, status, paid_at
FROM payments
WHERE email = $1
ORDER BY paid_at DESC
`, email)
	if err != nil {
		return nil, errors.Wrap(err, "select payments")
	}
	defer rows.Close()

	out := []*models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.ParcelID, &p.Email, &p.Amount, &p.TransactionID, &p.Method, &p.Status, &p.PaidAt); err != nil {
			return nil, errors.Wrap(err, "scan payment")
		}
		out = append(out, &p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
