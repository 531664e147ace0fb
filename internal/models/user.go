package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleRider Role = "rider"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleRider || r == RoleAdmin
}

// Assignable reports whether an admin may set this role directly. The rider
// role is only granted through rider approval.
func (r Role) Assignable() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogIn *time.Time `json:"last_log_in,omitempty"`
	// RoleUpdatedAt is the last admin role change or rider promotion.
	RoleUpdatedAt *time.Time `json:"role_updated_at,omitempty"`
}
