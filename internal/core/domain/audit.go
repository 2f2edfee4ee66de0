package domain

import "time"

// AuditLogEntry describes one inbound request/response cycle. Payload fields
// hold the masked, size-bounded snapshot produced at capture time.
type AuditLogEntry struct {
	ID              int64          `json:"id"`
	EventID         string         `json:"event_id"`
	EventName       string         `json:"event_name"`
	ModuleName      string         `json:"module_name"`
	Method          string         `json:"method"`
	RoutePath       string         `json:"route_path"`
	QueryParams     map[string]any `json:"query_params,omitempty"`
	RequestPayload  any            `json:"request_payload,omitempty"`
	ResponsePayload any            `json:"response_payload,omitempty"`
	StatusCode      int            `json:"status_code"`
	OccurredAt      time.Time      `json:"occurred_at"`
	OccurredAtISO   string         `json:"occurred_at_iso"`
	OccurredAtGMT   string         `json:"occurred_at_gmt"`
	UserID          string         `json:"user_id,omitempty"`
	SessionID       string         `json:"session_id,omitempty"`
	UserEmail       string         `json:"user_email,omitempty"`
	ClientIP        string         `json:"client_ip,omitempty"`
	UserAgent       string         `json:"user_agent,omitempty"`
	LatencyMS       float64        `json:"latency_ms"`
	ErrorDetail     string         `json:"error_detail,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

type AuditFilter struct {
	ModuleName   string
	UserEmail    string
	EventID      string
	StatusCode   int
	OccurredFrom *time.Time
	OccurredTo   *time.Time
	Search       string
	Skip         int
	Limit        int
}

func (f AuditFilter) Validate() error {
	if f.Skip < 0 || f.StatusCode < 0 {
		return ErrInvalidFilter
	}
	if f.OccurredFrom != nil && f.OccurredTo != nil && f.OccurredTo.Before(*f.OccurredFrom) {
		return ErrInvalidFilter
	}
	return nil
}
