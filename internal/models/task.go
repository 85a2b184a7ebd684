package models

import (
	"time"
)

// Task is an entry in a user's personal todo list. Tasks are visible to and
// mutable by their owner only.
type Task struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Title      string    `gorm:"not null" json:"title"`
	DueAt      time.Time `json:"due_at"`
	AssignedAt time.Time `json:"assigned_at"`
	Completed  bool      `gorm:"not null;default:false" json:"completed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
