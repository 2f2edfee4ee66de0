package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/ports"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 200
)

type AuditService struct {
	repo ports.AuditLogRepository
	log  logr.Logger
	now  func() time.Time
}

func NewAuditService(repo ports.AuditLogRepository, log logr.Logger) *AuditService {
	return &AuditService{repo: repo, log: log.WithName("audit"), now: time.Now}
}

// Record persists entry. Failures are logged and reported to the caller only
// as a boolean so that audit storage can never fail a business request.
func (s *AuditService) Record(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, bool) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = s.now()
	}
	entry.OccurredAt = entry.OccurredAt.UTC()
	entry.OccurredAtISO = entry.OccurredAt.Format(time.RFC3339Nano)
	entry.OccurredAtGMT = entry.OccurredAt.Format(time.RFC1123)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = recordTime(s.now())
	}

	stored, err := s.repo.Create(ctx, entry)
	if err != nil {
		s.log.Error(err, "audit entry not persisted", "event_id", entry.EventID, "status", entry.StatusCode)
		return entry, false
	}
	return stored, true
}

func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	filter.ModuleName = strings.TrimSpace(filter.ModuleName)
	filter.UserEmail = strings.TrimSpace(filter.UserEmail)
	filter.EventID = strings.TrimSpace(filter.EventID)
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Limit <= 0 {
		filter.Limit = DefaultAuditLimit
	}
	if filter.Limit > MaxAuditLimit {
		filter.Limit = MaxAuditLimit
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []domain.AuditLogEntry{}
	}
	return items, total, nil
}

func (s *AuditService) Get(ctx context.Context, id int64) (domain.AuditLogEntry, error) {
	if id <= 0 {
		return domain.AuditLogEntry{}, domain.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}
