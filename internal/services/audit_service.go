package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/checkflow/internal/metrics"
	"github.com/baharkarakas/checkflow/internal/models"
	repo "github.com/baharkarakas/checkflow/internal/repository"
	"github.com/baharkarakas/checkflow/internal/worker"
)

const auditWriteTimeout = 5 * time.Second

// AuditService persists history entries off the request path. Write failures
// are logged and counted, never surfaced to the caller.
type AuditService struct {
	r   repo.AuditLogs
	wp  *worker.Pool
	log *slog.Logger
}

func NewAuditService(r repo.AuditLogs, wp *worker.Pool, log *slog.Logger) *AuditService {
	if log == nil {
		log = slog.Default()
	}
	return &AuditService{r: r, wp: wp, log: log}
}

// Record queues the write on the pool. With no pool, a stopped pool or a
// full queue the entry is written inline.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLog) {
	ctx = context.WithoutCancel(ctx)
	task := func() { s.write(ctx, entry) }
	if s.wp == nil || !s.wp.TrySubmit(task) {
		task()
	}
}

func (s *AuditService) write(ctx context.Context, entry models.AuditLog) {
	ctx, cancel := context.WithTimeout(ctx, auditWriteTimeout)
	defer cancel()
	if err := s.r.Create(ctx, entry); err != nil {
		metrics.AuditWriteFailures.Inc()
		s.log.Error("audit write failed",
			"err", err,
			"user_id", entry.UserID,
			"operation", entry.OperationType,
		)
	}
}

func (s *AuditService) History(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.r.ListByUser(ctx, userID, limit)
}
