package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/storage/memstore"
	"github.com/stretchr/testify/suite"
)

type ServiceSuite struct {
	suite.Suite

	store *memstore.Store
	svc   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.store = memstore.New()
	s.svc = New(s.store)
}

func (s *ServiceSuite) TestUpsert_InsertThenRefresh() {
	ctx := context.Background()
	inserted, err := s.svc.Upsert(ctx, "ann@example.com", nil)
	s.Require().NoError(err)
	s.True(inserted)

	login := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	inserted, err = s.svc.Upsert(ctx, "ann@example.com", &login)
	s.Require().NoError(err)
	s.False(inserted)

	u, err := s.store.GetUserByEmail(ctx, "ann@example.com")
	s.Require().NoError(err)
	s.Equal(models.RoleUser, u.Role)
	s.Require().NotNil(u.LastLogIn)
	s.True(login.Equal(*u.LastLogIn))
}

func (s *ServiceSuite) TestUpsert_EmailRequired() {
	_, err := s.svc.Upsert(context.Background(), "  ", nil)
	s.ErrorIs(err, apperr.ErrInvalidInput)
}

func (s *ServiceSuite) TestRole() {
	ctx := context.Background()
	_, err := s.svc.Role(ctx, "ghost@example.com")
	s.ErrorIs(err, apperr.ErrNotFound)

	_, _ = s.svc.Upsert(ctx, "ann@example.com", nil)
	role, err := s.svc.Role(ctx, "ann@example.com")
	s.Require().NoError(err)
	s.Equal(models.RoleUser, role)
}

func (s *ServiceSuite) TestSearch_CapsAtTen() {
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, _ = s.svc.Upsert(ctx, fmt.Sprintf("user%02d@example.com", i), nil)
	}
	_, _ = s.svc.Upsert(ctx, "other@test.org", nil)

	out, err := s.svc.Search(ctx, "EXAMPLE")
	s.Require().NoError(err)
	s.Len(out, 10)
	s.Equal("user11@example.com", out[0].Email)
}

func (s *ServiceSuite) TestSetRole() {
	ctx := context.Background()
	_, _ = s.svc.Upsert(ctx, "ann@example.com", nil)
	u, _ := s.store.GetUserByEmail(ctx, "ann@example.com")

	s.ErrorIs(s.svc.SetRole(ctx, u.ID, models.RoleRider), apperr.ErrInvalidInput)
	s.ErrorIs(s.svc.SetRole(ctx, u.ID, models.Role("root")), apperr.ErrInvalidInput)
	s.ErrorIs(s.svc.SetRole(ctx, u.ID, models.RoleUser), apperr.ErrNotFound)
	s.ErrorIs(s.svc.SetRole(ctx, "missing", models.RoleAdmin), apperr.ErrNotFound)

	s.Require().NoError(s.svc.SetRole(ctx, u.ID, models.RoleAdmin))
	role, _ := s.svc.Role(ctx, "ann@example.com")
	s.Equal(models.RoleAdmin, role)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
