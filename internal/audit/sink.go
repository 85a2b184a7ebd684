// Package audit records mutating API calls to the api_logs table.
//
// Auditing is strictly best-effort: a failed write is logged and swallowed so
// it can never fail or roll back the operation it describes.
package audit

import (
	"context"
	"log/slog"

	"quill/internal/models"

	"gorm.io/gorm"
)

// Sink accepts audit records.
type Sink interface {
	// Record writes one audit row. It never returns an error and never
	// panics; failures are logged and dropped.
	Record(ctx context.Context, endpoint, payload, response string, userID *uint)
}

// DBSink writes audit rows through GORM.
type DBSink struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewDBSink creates a database-backed sink.
func NewDBSink(db *gorm.DB, log *slog.Logger) *DBSink {
	if log == nil {
		log = slog.Default()
	}
	return &DBSink{db: db, log: log}
}

func (s *DBSink) Record(ctx context.Context, endpoint, payload, response string, userID *uint) {
	entry := models.AuditLog{
		Endpoint: endpoint,
		Payload:  payload,
		Response: response,
		UserID:   userID,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.WarnContext(ctx, "audit write failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
	}
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) Record(ctx context.Context, endpoint, payload, response string, userID *uint) {}
