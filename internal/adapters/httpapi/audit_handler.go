package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/usecase"
)

type auditListResponse struct {
	Items []domain.AuditLogEntry `json:"items"`
	Total int64                  `json:"total"`
	Skip  int                    `json:"skip"`
	Limit int                    `json:"limit"`
}

func (h *Handler) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseAuditFilter(w, r)
	if !ok {
		return
	}

	items, total, err := h.audit.List(r.Context(), filter)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, auditListResponse{
		Items: items,
		Total: total,
		Skip:  filter.Skip,
		Limit: effectiveAuditLimit(filter.Limit),
	})
}

func (h *Handler) getAuditLog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.handleDomainError(w, r, domain.ErrNotFound)
		return
	}

	entry, err := h.audit.Get(r.Context(), id)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func parseAuditFilter(w http.ResponseWriter, r *http.Request) (domain.AuditFilter, bool) {
	q := r.URL.Query()
	filter := domain.AuditFilter{
		ModuleName: q.Get("module_name"),
		UserEmail:  q.Get("user_email"),
		EventID:    q.Get("event_id"),
		Search:     q.Get("search"),
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"status_code", &filter.StatusCode},
		{"skip", &filter.Skip},
		{"limit", &filter.Limit},
	}
	for _, p := range ints {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, p.name+" must be integer")
			return domain.AuditFilter{}, false
		}
		*p.dst = n
	}

	var err error
	if filter.OccurredFrom, err = parseDateParam(q.Get("date_from"), false); err != nil {
		writeError(w, http.StatusBadRequest, "date_from must be RFC3339 or YYYY-MM-DD")
		return domain.AuditFilter{}, false
	}
	if filter.OccurredTo, err = parseDateParam(q.Get("date_to"), true); err != nil {
		writeError(w, http.StatusBadRequest, "date_to must be RFC3339 or YYYY-MM-DD")
		return domain.AuditFilter{}, false
	}
	return filter, true
}

// parseDateParam accepts a full timestamp or a bare date. A bare upper bound
// covers the whole day.
func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func effectiveAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return usecase.DefaultAuditLimit
	case limit > usecase.MaxAuditLimit:
		return usecase.MaxAuditLimit
	default:
		return limit
	}
}
