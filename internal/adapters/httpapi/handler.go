package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/pagination"
	"github.com/atvirokodosprendimai/envadmin/internal/core/snapshot"
	"github.com/atvirokodosprendimai/envadmin/internal/core/usecase"
	"github.com/atvirokodosprendimai/envadmin/internal/metrics"
)

const (
	timeFormat      = "2006-01-02T15:04:05.999999999Z07:00"
	maxJSONBodySize = 1 << 20
)

// AuditSink accepts captured exchanges. *usecase.AuditRecorder implements it.
type AuditSink interface {
	Enqueue(job usecase.AuditJob) bool
}

type Deps struct {
	Vehicles  *usecase.VehicleService
	Emissions *usecase.EmissionService
	Audit     *usecase.AuditService
	Auth      *usecase.AuthService
	Sessions  *usecase.SessionService
	Schemas   *usecase.PayloadValidator

	AuditSink AuditSink
	Masker    *snapshot.Masker
	// ResolveSessions forwards X-Session-Token to the audit sink.
	ResolveSessions bool
	SessionTTL      time.Duration

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	Log            logr.Logger
}

type Handler struct {
	vehicles  *usecase.VehicleService
	emissions *usecase.EmissionService
	audit     *usecase.AuditService
	auth      *usecase.AuthService
	sessions  *usecase.SessionService
	schemas   *usecase.PayloadValidator

	auditSink       AuditSink
	masker          *snapshot.Masker
	resolveSessions bool
	sessionTTL      time.Duration

	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	log            logr.Logger
}

func NewHandler(d Deps) *Handler {
	masker := d.Masker
	if masker == nil {
		masker = snapshot.NewMasker(nil, 0)
	}
	ttl := d.SessionTTL
	if ttl <= 0 {
		ttl = usecase.DefaultSessionTTL
	}
	return &Handler{
		vehicles:        d.Vehicles,
		emissions:       d.Emissions,
		audit:           d.Audit,
		auth:            d.Auth,
		sessions:        d.Sessions,
		schemas:         d.Schemas,
		auditSink:       d.AuditSink,
		masker:          masker,
		resolveSessions: d.ResolveSessions,
		sessionTTL:      ttl,
		httpMetrics:     d.HTTPMetrics,
		metricsHandler:  d.MetricsHandler,
		log:             d.Log.WithName("http"),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	if h.httpMetrics != nil {
		r.Use(h.httpMetrics.Middleware)
	}
	r.Use(h.captureAudit)

	r.Get("/healthz", h.healthz)
	r.Get("/openapi.json", h.openapi)
	if h.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", h.metricsHandler)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(h.authenticate)

		pr.With(h.require(usecase.PermVehiclesWrite)).Post("/v1/vehicles", h.createVehicle)
		pr.With(h.require(usecase.PermVehiclesRead)).Get("/v1/vehicles", h.listVehicles)
		pr.With(h.require(usecase.PermVehiclesRead)).Get("/v1/vehicles/{id}", h.getVehicle)
		pr.With(h.require(usecase.PermVehiclesWrite)).Patch("/v1/vehicles/{id}", h.patchVehicle)

		pr.With(h.require(usecase.PermEmissionsWrite)).Post("/v1/vehicles/{id}/emission-tests", h.createEmissionTest)
		pr.With(h.require(usecase.PermEmissionsRead)).Get("/v1/vehicles/{id}/emission-tests", h.listEmissionTests)

		pr.With(h.require(usecase.PermAuditRead)).Get("/v1/audit-logs", h.listAuditLogs)
		pr.With(h.require(usecase.PermAuditRead)).Get("/v1/audit-logs/{id}", h.getAuditLog)

		if h.sessions != nil {
			pr.Post("/v1/sessions", h.openSession)
			pr.Delete("/v1/sessions/current", h.revokeCurrentSession)
		}
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) openapi(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, openapiSpec())
}

// readJSONBody reads a bounded body and checks it is syntactically valid JSON.
func readJSONBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid json body")
		return nil, false
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return nil, false
	}
	return body, true
}

// decodeStrict decodes exactly one JSON value with no unknown fields.
func decodeStrict(body []byte, dst any) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return ensureEOF(decoder)
}

// parsePageRequest reads cursor and limit. A malformed limit is rejected; an
// out of range one is clamped.
func parsePageRequest(w http.ResponseWriter, r *http.Request) (pagination.Request, bool) {
	var limit *int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be integer")
			return pagination.Request{}, false
		}
		limit = &parsed
	}
	page, err := pagination.NewRequest(r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidCursor.Error())
		return pagination.Request{}, false
	}
	return page, true
}

func nextCursor(c *pagination.Cursor) *string {
	if c == nil {
		return nil
	}
	token := pagination.EncodeCursor(*c)
	return &token
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// handleDomainError maps core errors to HTTP responses. Unknown errors are
// logged and hidden behind a 500.
func (h *Handler) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var schemaErr *domain.ErrSchemaViolation
	var fieldErr *domain.FieldError
	switch {
	case errors.As(err, &schemaErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "validation failed",
			"details": schemaErr.Errors,
		})
	case errors.As(err, &fieldErr):
		writeError(w, http.StatusBadRequest, fieldErr.Error())
	case errors.Is(err, domain.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, domain.ErrInvalidCursor.Error())
	case errors.Is(err, domain.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, domain.ErrInvalidFilter.Error())
	case errors.Is(err, domain.ErrInvalidReading):
		writeError(w, http.StatusBadRequest, domain.ErrInvalidReading.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, domain.ErrConflict.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, domain.ErrForbidden.Error())
	default:
		h.log.Error(err, "request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}

func openapiSpec() map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "envadmin",
			"version": "1.0.0",
		},
		"paths": map[string]any{
			"/v1/vehicles": map[string]any{
				"get":  map[string]any{"summary": "List vehicles (keyset paginated)"},
				"post": map[string]any{"summary": "Register vehicle"},
			},
			"/v1/vehicles/{id}": map[string]any{
				"get":   map[string]any{"summary": "Get vehicle"},
				"patch": map[string]any{"summary": "Update vehicle"},
			},
			"/v1/vehicles/{id}/emission-tests": map[string]any{
				"get":  map[string]any{"summary": "List emission tests of a vehicle (keyset paginated)"},
				"post": map[string]any{"summary": "Record emission test"},
			},
			"/v1/audit-logs": map[string]any{
				"get": map[string]any{"summary": "Search audit log"},
			},
			"/v1/audit-logs/{id}": map[string]any{
				"get": map[string]any{"summary": "Get audit log entry"},
			},
			"/v1/sessions": map[string]any{
				"post": map[string]any{"summary": "Open session"},
			},
			"/v1/sessions/current": map[string]any{
				"delete": map[string]any{"summary": "Revoke current session"},
			},
		},
	}
}
