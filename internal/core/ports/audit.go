package ports

import (
	"context"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

type AuditLogRepository interface {
	Create(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error)
	Get(ctx context.Context, id int64) (domain.AuditLogEntry, error)
	// List applies filter identically to the page and the total count.
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, int64, error)
}
