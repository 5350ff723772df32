package model

import (
	"strings"
	"time"
)

// Role is the administrative level of an admin account.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// Admin is a dashboard account. PasswordHash never leaves the process.
type Admin struct {
	ID           string    `json:"_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizeEmail lower-cases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identity is what a validated bearer token says about its holder.
type Identity struct {
	AdminID string `json:"adminId"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
}

// IsSuperadmin reports whether the identity may manage other admins.
func (i *Identity) IsSuperadmin() bool {
	return i != nil && i.Role == RoleSuperadmin
}
