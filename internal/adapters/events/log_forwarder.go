package events

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

// LogForwarder writes a one-line summary of every audit entry to the
// process log.
type LogForwarder struct {
	log logr.Logger
}

func NewLogForwarder(log logr.Logger) *LogForwarder {
	return &LogForwarder{log: log.WithName("audit-forward")}
}

func (f *LogForwarder) Forward(_ context.Context, e domain.AuditLogEntry) error {
	f.log.Info("audit",
		"id", e.ID,
		"event_id", e.EventID,
		"status", e.StatusCode,
		"user_email", e.UserEmail,
		"latency_ms", e.LatencyMS,
	)
	return nil
}
