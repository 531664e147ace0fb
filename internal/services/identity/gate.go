package identity

import (
	"context"
	"strings"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
)

type UserReader interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Gate authenticates bearer tokens and checks roles. Roles are read from the
// user record on every check, never from the token.
type Gate struct {
	verifier *Verifier
	users    UserReader
}

func NewGate(v *Verifier, users UserReader) *Gate {
	return &Gate{verifier: v, users: users}
}

// Authenticate takes the raw Authorization header value.
func (g *Gate) Authenticate(header string) (Principal, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return Principal{}, apperr.Unauthenticated("Unauthorized Access!!")
	}
	return g.verifier.Verify(token)
}

// Authorize returns the principal's current role if it is one of roles.
func (g *Gate) Authorize(ctx context.Context, p Principal, roles ...models.Role) (models.Role, error) {
	u, err := g.users.GetUserByEmail(ctx, p.Email)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return "", apperr.Forbidden("Forbidden Access")
	}
	if err != nil {
		return "", apperr.Upstream(err, "Failed to fetch user role")
	}
	role := u.Role
	if role == "" {
		role = models.RoleUser
	}
	for _, r := range roles {
		if r == role {
			return role, nil
		}
	}
	return "", apperr.Forbidden("Forbidden Access")
}
