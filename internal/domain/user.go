package domain

import "time"

// Role is the capability level carried in a user's token
type Role string

const (
	RoleUser    Role = "User"    // Customer: shops, owns a cart and orders
	RoleManager Role = "Manager" // Catalog admin: manages products and sees every order
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleManager
}

// User Model
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`                          // Primary key
	Username     string    `gorm:"size:100;uniqueIndex;not null" json:"username"` // Unique username
	Email        string    `gorm:"size:150;uniqueIndex;not null" json:"email"`    // Unique email, used to log in
	PasswordHash string    `gorm:"not null" json:"-"`                             // bcrypt hash
	Role         Role      `gorm:"size:20;not null;default:User" json:"role"`     // User or Manager
	CreatedAt    time.Time `json:"createdAt"`                                     // Registration time
}

// Principal is the authenticated caller decoded from a bearer token
type Principal struct {
	UserID uint
	Role   Role
}

// Require returns Forbidden unless the principal holds one of roles.
func (p Principal) Require(roles ...Role) error {
	if p.UserID == 0 {
		return Unauthorized("authentication required")
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return Forbidden("insufficient permissions")
}
