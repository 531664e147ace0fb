// Package memstore is an in-process implementation of the pgparcel storage
// methods. It mirrors their ordering, filtering and not-found semantics and
// backs service and handler tests that do not need a database.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrRiderInvariant mirrors the parcels CHECK constraint of the Postgres schema.
var ErrRiderInvariant = errors.New("assigned rider does not match delivery status")

type Store struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	users    map[string]*userRow // by email
	riders   map[string]*riderRow
	parcels  map[string]*parcelRow
	payments []*models.Payment
	events   []*models.TrackingEvent
}

type userRow struct {
	u   models.User
	seq int64
}

type riderRow struct {
	r   models.Rider
	seq int64
}

type parcelRow struct {
	p   models.Parcel
	seq int64
}

func New() *Store {
	return &Store{
		now:     func() time.Time { return time.Now().UTC() },
		users:   map[string]*userRow{},
		riders:  map[string]*riderRow{},
		parcels: map[string]*parcelRow{},
	}
}

// WithClock replaces the time source used for generated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

// users

func (s *Store) UpsertUser(_ context.Context, email string, lastLogIn *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.users[email]; ok {
		row.u.LastLogIn = copyTime(lastLogIn)
		return false, nil
	}
	s.users[email] = &userRow{
		u: models.User{
			ID:        uuid.NewString(),
			Email:     email,
			Role:      models.RoleUser,
			CreatedAt: s.now(),
			LastLogIn: copyTime(lastLogIn),
		},
		seq: s.next(),
	}
	return true, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.users[email]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	u := row.u
	u.LastLogIn = copyTime(u.LastLogIn)
	u.RoleUpdatedAt = copyTime(u.RoleUpdatedAt)
	return &u, nil
}

func (s *Store) SearchUsers(_ context.Context, emailFragment string, limit int) ([]*models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	frag := strings.ToLower(emailFragment)
	var rows []*userRow
	for _, row := range s.users {
		if strings.Contains(strings.ToLower(row.u.Email), frag) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	out := []*models.User{}
	for _, row := range rows {
		if len(out) == limit {
			break
		}
		u := row.u
		out = append(out, &u)
	}
	return out, nil
}

func (s *Store) SetUserRole(_ context.Context, id string, role models.Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.users {
		if row.u.ID == id {
			if row.u.Role == role {
				return false, nil
			}
			at := s.now()
			row.u.Role = role
			row.u.RoleUpdatedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) PromoteToRider(_ context.Context, email string, approvedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.users[email]
	if !ok || !awaitingRole(&row.u, approvedAt) {
		return false, nil
	}
	at := approvedAt
	row.u.Role = models.RoleRider
	row.u.RoleUpdatedAt = &at
	return true, nil
}

func awaitingRole(u *models.User, approvedAt time.Time) bool {
	return u.Role == models.RoleUser && (u.RoleUpdatedAt == nil || u.RoleUpdatedAt.Before(approvedAt))
}

// riders

func (s *Store) CreateRider(_ context.Context, r *models.Rider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	cp := *r
	cp.UpdatedAt = copyTime(r.UpdatedAt)
	s.riders[r.ID] = &riderRow{r: cp, seq: s.next()}
	return nil
}

func (s *Store) GetRider(_ context.Context, id string) (*models.Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.riders[id]
	if !ok {
		return nil, apperr.NotFound("Rider not found")
	}
	return cloneRider(&row.r), nil
}

func (s *Store) ListRiders(_ context.Context, f models.RiderFilter) ([]*models.Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name := strings.ToLower(f.Name)
	var rows []*riderRow
	for _, row := range s.riders {
		if f.Status != "" && row.r.Status != f.Status {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(row.r.Name), name) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].r.CreatedAt.Equal(rows[j].r.CreatedAt) {
			return rows[i].r.CreatedAt.After(rows[j].r.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]*models.Rider, 0, len(rows))
	for _, row := range rows {
		out = append(out, cloneRider(&row.r))
	}
	return out, nil
}

func (s *Store) SetRiderStatus(_ context.Context, id string, from, to models.RiderStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.riders[id]
	if !ok || row.r.Status != from {
		return false, nil
	}
	row.r.Status = to
	at = at.UTC()
	row.r.UpdatedAt = &at
	return true, nil
}

func (s *Store) CountRidersByStatus(_ context.Context, status models.RiderStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, row := range s.riders {
		if row.r.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListRidersAwaitingRole(_ context.Context, limit int) ([]*models.Rider, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []*riderRow
	for _, row := range s.riders {
		if row.r.Status != models.RiderApproved {
			continue
		}
		u, ok := s.users[row.r.Email]
		approvedAt := row.r.CreatedAt
		if row.r.UpdatedAt != nil {
			approvedAt = *row.r.UpdatedAt
		}
		if !ok || !awaitingRole(&u.u, approvedAt) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := []*models.Rider{}
	for _, row := range rows {
		if len(out) == limit {
			break
		}
		out = append(out, cloneRider(&row.r))
	}
	return out, nil
}

// parcels

func (s *Store) CreateParcel(_ context.Context, p *models.Parcel) error {
	if (p.AssignedRider != nil) != p.DeliveryStatus.RequiresRider() {
		return errors.Wrap(ErrRiderInvariant, "insert parcel")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.parcels[p.ID] = &parcelRow{p: *cloneParcel(p), seq: s.next()}
	return nil
}

func (s *Store) GetParcel(_ context.Context, id string) (*models.Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.parcels[id]
	if !ok {
		return nil, apperr.NotFound("Parcel not found")
	}
	return cloneParcel(&row.p), nil
}

func (s *Store) matchingParcels(f models.ParcelFilter) []*parcelRow {
	var rows []*parcelRow
	for _, row := range s.parcels {
		p := &row.p
		if f.CreatedBy != "" && p.CreatedBy != f.CreatedBy {
			continue
		}
		if f.PaymentStatus != "" && p.PaymentStatus != f.PaymentStatus {
			continue
		}
		if len(f.DeliveryStatuses) > 0 && !containsStatus(f.DeliveryStatuses, p.DeliveryStatus) {
			continue
		}
		if f.RiderEmail != "" && (p.AssignedRider == nil || p.AssignedRider.Email != f.RiderEmail) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *Store) ParcelStats(_ context.Context, f models.ParcelFilter) (models.ParcelStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st models.ParcelStats
	for _, row := range s.matchingParcels(f) {
		p := &row.p
		st.Total++
		switch p.PaymentStatus {
		case models.PaymentUnpaid:
			st.Unpaid++
		case models.PaymentPaid:
			st.PaidCost += p.Cost
			if p.DeliveryStatus == models.DeliveryNotCollected {
				st.PaidNotCollected++
			}
		}
		if p.DeliveryStatus == models.DeliveryDelivered {
			st.Delivered++
		}
	}
	return st, nil
}

func (s *Store) CountParcelsByStatus(_ context.Context, f models.ParcelFilter) (map[models.DeliveryStatus]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[models.DeliveryStatus]int64{}
	for _, row := range s.matchingParcels(f) {
		out[row.p.DeliveryStatus]++
	}
	return out, nil
}

func (s *Store) ListParcels(_ context.Context, f models.ParcelFilter) ([]*models.Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.matchingParcels(f)

	byCreation := func(a, b *parcelRow) bool {
		if !a.p.CreationDate.Equal(b.p.CreationDate) {
			return a.p.CreationDate.After(b.p.CreationDate)
		}
		return a.seq > b.seq
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if f.OrderBy == models.OrderByUpdatedDesc {
			switch {
			case a.p.UpdatedAt != nil && b.p.UpdatedAt == nil:
				return true
			case a.p.UpdatedAt == nil && b.p.UpdatedAt != nil:
				return false
			case a.p.UpdatedAt != nil && !a.p.UpdatedAt.Equal(*b.p.UpdatedAt):
				return a.p.UpdatedAt.After(*b.p.UpdatedAt)
			}
		}
		return byCreation(a, b)
	})

	out := make([]*models.Parcel, 0, len(rows))
	for _, row := range rows {
		out = append(out, cloneParcel(&row.p))
	}
	return out, nil
}

func (s *Store) SetDeliveryStatus(_ context.Context, id string, status models.DeliveryStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.parcels[id]
	if !ok {
		return false, nil
	}
	if (row.p.AssignedRider != nil) != status.RequiresRider() {
		return false, errors.Wrap(ErrRiderInvariant, "update delivery status")
	}
	row.p.DeliveryStatus = status
	at = at.UTC()
	row.p.UpdatedAt = &at
	return true, nil
}

func (s *Store) AssignRider(_ context.Context, id string, rider models.RiderSnapshot, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.parcels[id]
	if !ok || !row.p.DeliveryStatus.Assignable() {
		return false, nil
	}
	row.p.DeliveryStatus = models.DeliveryAssigned
	row.p.AssignedRider = &rider
	at = at.UTC()
	row.p.UpdatedAt = &at
	return true, nil
}

func (s *Store) AdvanceDeliveryStatus(_ context.Context, id string, from, to models.DeliveryStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.parcels[id]
	if !ok || row.p.DeliveryStatus != from {
		return false, nil
	}
	if (row.p.AssignedRider != nil) != to.RequiresRider() {
		return false, errors.Wrap(ErrRiderInvariant, "advance delivery status")
	}
	row.p.DeliveryStatus = to
	at = at.UTC()
	row.p.UpdatedAt = &at
	return true, nil
}

func (s *Store) SetAssignment(_ context.Context, id string, status models.DeliveryStatus, rider *models.RiderSnapshot, at time.Time) (bool, error) {
	if (rider != nil) != status.RequiresRider() {
		return false, errors.Wrap(ErrRiderInvariant, "update parcel assignment")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.parcels[id]
	if !ok {
		return false, nil
	}
	row.p.DeliveryStatus = status
	row.p.AssignedRider = copySnapshot(rider)
	at = at.UTC()
	row.p.UpdatedAt = &at
	return true, nil
}

func (s *Store) SetPaymentStatus(_ context.Context, id string, status models.PaymentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.parcels[id]
	if !ok {
		return false, nil
	}
	row.p.PaymentStatus = status
	return true, nil
}

func (s *Store) DeleteParcel(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parcels[id]; !ok {
		return false, nil
	}
	delete(s.parcels, id)
	return true, nil
}

// payments

func (s *Store) InsertPayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = s.now()
	}
	cp := *p
	s.payments = append(s.payments, &cp)
	return nil
}

func (s *Store) ListPaymentsByEmail(_ context.Context, email string) ([]*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Payment{}
	// newest insert first among equal timestamps
	for i := len(s.payments) - 1; i >= 0; i-- {
		if s.payments[i].Email == email {
			cp := *s.payments[i]
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return out, nil
}

// tracking

func (s *Store) InsertTrackingEvent(_ context.Context, e *models.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	cp := *e
	s.events = append(s.events, &cp)
	return nil
}

func (s *Store) ListTrackingEvents(_ context.Context, parcelID string) ([]*models.TrackingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.TrackingEvent{}
	for _, e := range s.events {
		if e.ParcelID == parcelID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func containsStatus(list []models.DeliveryStatus, s models.DeliveryStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cloneParcel(p *models.Parcel) *models.Parcel {
	cp := *p
	cp.AssignedRider = copySnapshot(p.AssignedRider)
	cp.UpdatedAt = copyTime(p.UpdatedAt)
	return &cp
}

func cloneRider(r *models.Rider) *models.Rider {
	cp := *r
	cp.UpdatedAt = copyTime(r.UpdatedAt)
	return &cp
}

func copySnapshot(s *models.RiderSnapshot) *models.RiderSnapshot {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := t.UTC()
	return &cp
}
