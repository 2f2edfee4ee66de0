package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/envadmin/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

type auditLogModel struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EventID         string    `gorm:"column:event_id;not null"`
	EventName       string    `gorm:"column:event_name;not null"`
	ModuleName      string    `gorm:"column:module_name;not null"`
	Method          string    `gorm:"column:method;not null"`
	RoutePath       string    `gorm:"column:route_path;not null"`
	QueryParams     *string   `gorm:"column:query_params"`
	RequestPayload  *string   `gorm:"column:request_payload"`
	ResponsePayload *string   `gorm:"column:response_payload"`
	StatusCode      int       `gorm:"column:status_code;not null"`
	OccurredAt      time.Time `gorm:"column:occurred_at;not null"`
	OccurredAtISO   string    `gorm:"column:occurred_at_iso;not null"`
	OccurredAtGMT   string    `gorm:"column:occurred_at_gmt;not null"`
	UserID          string    `gorm:"column:user_id;not null"`
	SessionID       string    `gorm:"column:session_id;not null"`
	UserEmail       string    `gorm:"column:user_email;not null"`
	ClientIP        string    `gorm:"column:client_ip;not null"`
	UserAgent       string    `gorm:"column:user_agent;not null"`
	LatencyMS       float64   `gorm:"column:latency_ms;not null"`
	ErrorDetail     string    `gorm:"column:error_detail;not null"`
	Extra           *string   `gorm:"column:extra"`
	CreatedAt       time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
}

func (auditLogModel) TableName() string {
	return "admin_audit_logs"
}

type AuditLogRepository struct {
	db *gormsqlite.DB
}

func NewAuditLogRepository(db *gormsqlite.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error) {
	model, err := toAuditLogModel(entry)
	if err != nil {
		return domain.AuditLogEntry{}, err
	}
	if err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	}); err != nil {
		return domain.AuditLogEntry{}, fmt.Errorf("insert audit log: %w", err)
	}
	entry.ID = model.ID
	return entry, nil
}

func (r *AuditLogRepository) Get(ctx context.Context, id int64) (domain.AuditLogEntry, error) {
	var model auditLogModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AuditLogEntry{}, domain.ErrNotFound
		}
		return domain.AuditLogEntry{}, fmt.Errorf("get audit log: %w", err)
	}
	return toAuditLogEntry(model), nil
}

// List returns one page of matching entries and the number of all matching
// entries. Both queries run in one read transaction with the same scope.
func (r *AuditLogRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, int64, error) {
	var rows []auditLogModel
	var total int64
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Model(&auditLogModel{}).Scopes(auditFilterScope(filter)).Count(&total).Error; err != nil {
			return fmt.Errorf("count: %w", err)
		}
		return tx.Model(&auditLogModel{}).
			Scopes(auditFilterScope(filter)).
			Order("occurred_at DESC").
			Order("id DESC").
			Offset(filter.Skip).
			Limit(filter.Limit).
			Find(&rows).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	result := make([]domain.AuditLogEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, toAuditLogEntry(row))
	}
	return result, total, nil
}

func auditFilterScope(filter domain.AuditFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.ModuleName != "" {
			db = db.Where("module_name = ?", filter.ModuleName)
		}
		if filter.UserEmail != "" {
			db = db.Where("user_email = ?", filter.UserEmail)
		}
		if filter.EventID != "" {
			db = db.Where("event_id = ?", filter.EventID)
		}
		if filter.StatusCode != 0 {
			db = db.Where("status_code = ?", filter.StatusCode)
		}
		if filter.OccurredFrom != nil {
			db = db.Where("occurred_at >= ?", filter.OccurredFrom.UTC())
		}
		if filter.OccurredTo != nil {
			db = db.Where("occurred_at <= ?", filter.OccurredTo.UTC())
		}
		if filter.Search != "" {
			pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
			db = db.Where(
				`(lower(event_name) LIKE ? ESCAPE '\' OR lower(route_path) LIKE ? ESCAPE '\' OR lower(user_email) LIKE ? ESCAPE '\' OR lower(module_name) LIKE ? ESCAPE '\')`,
				pattern, pattern, pattern, pattern,
			)
		}
		return db
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func toAuditLogModel(e domain.AuditLogEntry) (auditLogModel, error) {
	query, err := marshalOptional(e.QueryParams)
	if err != nil {
		return auditLogModel{}, fmt.Errorf("encode query params: %w", err)
	}
	req, err := marshalOptional(e.RequestPayload)
	if err != nil {
		return auditLogModel{}, fmt.Errorf("encode request payload: %w", err)
	}
	resp, err := marshalOptional(e.ResponsePayload)
	if err != nil {
		return auditLogModel{}, fmt.Errorf("encode response payload: %w", err)
	}
	extra, err := marshalOptional(e.Extra)
	if err != nil {
		return auditLogModel{}, fmt.Errorf("encode extra: %w", err)
	}

	return auditLogModel{
		EventID:         e.EventID,
		EventName:       e.EventName,
		ModuleName:      e.ModuleName,
		Method:          e.Method,
		RoutePath:       e.RoutePath,
		QueryParams:     query,
		RequestPayload:  req,
		ResponsePayload: resp,
		StatusCode:      e.StatusCode,
		OccurredAt:      e.OccurredAt.UTC(),
		OccurredAtISO:   e.OccurredAtISO,
		OccurredAtGMT:   e.OccurredAtGMT,
		UserID:          e.UserID,
		SessionID:       e.SessionID,
		UserEmail:       e.UserEmail,
		ClientIP:        e.ClientIP,
		UserAgent:       e.UserAgent,
		LatencyMS:       e.LatencyMS,
		ErrorDetail:     e.ErrorDetail,
		Extra:           extra,
		CreatedAt:       e.CreatedAt.UTC(),
	}, nil
}

func toAuditLogEntry(m auditLogModel) domain.AuditLogEntry {
	e := domain.AuditLogEntry{
		ID:              m.ID,
		EventID:         m.EventID,
		EventName:       m.EventName,
		ModuleName:      m.ModuleName,
		Method:          m.Method,
		RoutePath:       m.RoutePath,
		RequestPayload:  unmarshalOptional(m.RequestPayload),
		ResponsePayload: unmarshalOptional(m.ResponsePayload),
		StatusCode:      m.StatusCode,
		OccurredAt:      m.OccurredAt.UTC(),
		OccurredAtISO:   m.OccurredAtISO,
		OccurredAtGMT:   m.OccurredAtGMT,
		UserID:          m.UserID,
		SessionID:       m.SessionID,
		UserEmail:       m.UserEmail,
		ClientIP:        m.ClientIP,
		UserAgent:       m.UserAgent,
		LatencyMS:       m.LatencyMS,
		ErrorDetail:     m.ErrorDetail,
		CreatedAt:       m.CreatedAt.UTC(),
	}
	if q, ok := unmarshalOptional(m.QueryParams).(map[string]any); ok {
		e.QueryParams = q
	}
	if x, ok := unmarshalOptional(m.Extra).(map[string]any); ok {
		e.Extra = x
	}
	return e
}

func marshalOptional(v any) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func unmarshalOptional(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(*s), &v); err != nil {
		return *s
	}
	return v
}
