// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Role is the closed set of user roles. There is no third role: admins are
// created by toggling an existing user, never by a separate signup path.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// Toggle flips between the two role variants.
func (r Role) Toggle() Role {
	if r == RoleAdmin {
		return RoleUser
	}
	return RoleAdmin
}

// Valid reports whether r is one of the known variants.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered account.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:50;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Website      string `gorm:"size:30" json:"website,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
	Role         Role   `gorm:"size:10;not null;default:User" json:"role"`

	EmailConfirmed       bool       `json:"email_confirmed"`
	ConfirmationToken    string     `gorm:"size:100" json:"-"`
	ConfirmationExpires  *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor is the authenticated identity threaded through every mutating call.
// It is populated from verified token claims by the auth middleware and never
// read from ambient state.
type Actor struct {
	ID   uint `json:"id"`
	Role Role `json:"role"`
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanMutate is the authorization guard predicate: admins may mutate anything,
// everyone else only resources they own.
func (a Actor) CanMutate(ownerID uint) bool {
	return a.IsAdmin() || a.ID == ownerID
}
