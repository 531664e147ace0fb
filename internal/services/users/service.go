package users

import (
	"context"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
)

type Repository interface {
	UpsertUser(ctx context.Context, email string, lastLogIn *time.Time) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SearchUsers(ctx context.Context, emailFragment string, limit int) ([]*models.User, error)
	SetUserRole(ctx context.Context, id string, role models.Role) (bool, error)
}

const searchLimit = 10

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Upsert registers a user on first sight and refreshes last_log_in afterwards.
func (s *Service) Upsert(ctx context.Context, email string, lastLogIn *time.Time) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, apperr.InvalidInput("email is required")
	}
	inserted, err := s.repo.UpsertUser(ctx, email, lastLogIn)
	if err != nil {
		return false, apperr.Upstream(err, "upsert user")
	}
	return inserted, nil
}

func (s *Service) Role(ctx context.Context, email string) (models.Role, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", apperr.Upstream(err, "get user")
	}
	if u.Role == "" {
		return models.RoleUser, nil
	}
	return u.Role, nil
}

func (s *Service) Search(ctx context.Context, emailFragment string) ([]*models.User, error) {
	out, err := s.repo.SearchUsers(ctx, strings.TrimSpace(emailFragment), searchLimit)
	if err != nil {
		return nil, apperr.Upstream(err, "search users")
	}
	return out, nil
}

// SetRole only grants user or admin; the rider role comes from rider approval.
func (s *Service) SetRole(ctx context.Context, id string, role models.Role) error {
	if !role.Assignable() {
		return apperr.InvalidInput("Invalid role")
	}
	changed, err := s.repo.SetUserRole(ctx, id, role)
	if err != nil {
		return apperr.Upstream(err, "set user role")
	}
	if !changed {
		return apperr.NotFound("User not found or role unchanged")
	}
	return nil
}
