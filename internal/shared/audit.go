package shared

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// AuditLog represents a single recorded state change.
type AuditLog struct {
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log AuditLog) error
}

var errAuditIncomplete = errors.New("audit log requires action/entity/entity_id")

// MemoryAuditLog keeps audit entries in memory in append order.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditLog
}

// NewMemoryAuditLog returns an empty MemoryAuditLog.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

// Record appends the log entry.
func (l *MemoryAuditLog) Record(_ context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errAuditIncomplete
	}
	l.mu.Lock()
	l.entries = append(l.entries, log)
	l.mu.Unlock()
	return nil
}

// Entries returns a copy of the recorded entries.
func (l *MemoryAuditLog) Entries() []AuditLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditLog, len(l.entries))
	copy(out, l.entries)
	return out
}

// SlogAuditLog writes audit entries to a structured logger.
type SlogAuditLog struct {
	logger *slog.Logger
}

// NewSlogAuditLog wraps logger.
func NewSlogAuditLog(logger *slog.Logger) *SlogAuditLog {
	return &SlogAuditLog{logger: LoggerOrDiscard(logger)}
}

// Record logs the entry at info level.
func (l *SlogAuditLog) Record(ctx context.Context, log AuditLog) error {
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errAuditIncomplete
	}
	attrs := []any{
		slog.String("action", log.Action),
		slog.String("entity", log.Entity),
		slog.String("entity_id", log.EntityID),
	}
	if len(log.Meta) > 0 {
		attrs = append(attrs, slog.Any("meta", log.Meta))
	}
	l.logger.InfoContext(ctx, "audit", attrs...)
	return nil
}

// RecordAudit records log through port when one is configured, logging
// failures instead of returning them.
func RecordAudit(ctx context.Context, port AuditPort, logger *slog.Logger, log AuditLog) {
	if port == nil {
		return
	}
	if err := port.Record(ctx, log); err != nil {
		LoggerOrDiscard(logger).Warn("audit record", slog.String("action", log.Action), slog.Any("error", err))
	}
}
