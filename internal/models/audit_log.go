package models

import (
	"time"
)

// AuditLog is one best-effort record of a mutating API call. Writes to this
// table never block or fail the operation they describe.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Endpoint  string    `gorm:"not null" json:"endpoint"`
	Payload   string    `gorm:"type:text" json:"payload"`
	Response  string    `gorm:"type:text" json:"response"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the table name the ops tooling expects.
func (AuditLog) TableName() string {
	return "api_logs"
}
