package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kaupskip/email-service/internal/core/domain/emaillog"
	"github.com/kaupskip/email-service/internal/core/ports"
	"github.com/kaupskip/email-service/internal/infrastructure/db"
)

type emailLogRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewEmailLogRepository creates a new instance of EmailLogRepository
func NewEmailLogRepository(database *db.Database, logger *logrus.Logger) ports.EmailLogRepository {
	return &emailLogRepository{
		db:     database,
		logger: logger,
	}
}

// Create inserts a new send-log entry into the database
func (r *emailLogRepository) Create(ctx context.Context, log *emaillog.EmailLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	var metadataJSON []byte
	var err error
	if log.Metadata != nil {
		metadataJSON, err = json.Marshal(log.Metadata)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO email_logs (
			id, email_to, email_type, status, metadata, sent_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	_, err = r.db.DB.ExecContext(ctx, query,
		log.ID,
		log.EmailTo,
		log.EmailType,
		log.Status,
		metadataJSON,
		log.SentAt,
		log.CreatedAt,
	)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"email_to": log.EmailTo, "email_type": log.EmailType}).WithError(err).Error("db: failed to insert email log")
		}
		return err
	}
	return nil
}

// List retrieves send-log entries, newest first
func (r *emailLogRepository) List(ctx context.Context, filter *emaillog.Filter) ([]*emaillog.EmailLog, error) {
	limit := 100
	offset := 0
	if filter != nil {
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		if filter.Offset > 0 {
			offset = filter.Offset
		}
	}

	query := `
		SELECT id, email_to, email_type, status, metadata, sent_at, created_at
		FROM email_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to list email logs")
		}
		return nil, err
	}
	defer rows.Close()

	var logs []*emaillog.EmailLog
	for rows.Next() {
		log := &emaillog.EmailLog{}
		var metadataJSON sql.NullString

		err := rows.Scan(
			&log.ID,
			&log.EmailTo,
			&log.EmailType,
			&log.Status,
			&metadataJSON,
			&log.SentAt,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &log.Metadata); err != nil && r.logger != nil {
				r.logger.WithFields(logrus.Fields{"id": log.ID}).WithError(err).Warn("db: unreadable email log metadata")
			}
		}

		logs = append(logs, log)
	}

	return logs, rows.Err()
}
