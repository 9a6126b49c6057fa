package ports

import (
	"context"

	"github.com/kaupskip/email-service/internal/core/domain/emaillog"
)

// EmailLogRepository persists the durable send log.
type EmailLogRepository interface {
	Create(ctx context.Context, log *emaillog.EmailLog) error
	List(ctx context.Context, filter *emaillog.Filter) ([]*emaillog.EmailLog, error)
}
