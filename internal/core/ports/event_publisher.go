package ports

import (
	"context"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

// AuditForwarder ships persisted audit entries to an external sink.
type AuditForwarder interface {
	Forward(ctx context.Context, entry domain.AuditLogEntry) error
}
