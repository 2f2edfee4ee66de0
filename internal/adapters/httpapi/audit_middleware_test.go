package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/snapshot"
	"github.com/atvirokodosprendimai/envadmin/internal/core/usecase"
)

func TestAuditCaptureRecordsMaskedExchange(t *testing.T) {
	env := newTestEnv()
	sink := &recordingSink{}
	env.sink = sink
	h := env.router(t)

	body := `{"plate_number":"abc-123","password":"hunter2","nested":{"Token":"t-1"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/vehicles?api_key=k-1&dry_run=true", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("User-Agent", "lane-terminal/2.1")
	withToken(req, adminToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	e := sink.only(t).Entry
	if e.EventID != "POST_V1_VEHICLES" || e.EventName != "POST /v1/vehicles" || e.ModuleName != "vehicles" {
		t.Fatalf("unexpected event metadata: %q %q %q", e.EventID, e.EventName, e.ModuleName)
	}
	if e.Method != http.MethodPost || e.RoutePath != "/v1/vehicles" || e.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected request metadata: %+v", e)
	}
	if e.UserID != "admin-1" || e.UserEmail != "admin@example.lt" {
		t.Fatalf("actor not captured: %q %q", e.UserID, e.UserEmail)
	}
	if e.ClientIP != "203.0.113.7" || e.UserAgent != "lane-terminal/2.1" {
		t.Fatalf("client not captured: %q %q", e.ClientIP, e.UserAgent)
	}
	if e.ErrorDetail != "validation failed" {
		t.Fatalf("unexpected error detail: %q", e.ErrorDetail)
	}
	if e.LatencyMS < 0 || e.OccurredAt.IsZero() {
		t.Fatalf("timing not captured: %v %v", e.LatencyMS, e.OccurredAt)
	}
	if e.Extra["request_id"] == nil {
		t.Fatal("request id not captured")
	}

	if e.QueryParams["api_key"] != snapshot.MaskToken || e.QueryParams["dry_run"] != "true" {
		t.Fatalf("query not masked: %v", e.QueryParams)
	}
	payload, ok := e.RequestPayload.(map[string]any)
	if !ok {
		t.Fatalf("request payload not parsed: %#v", e.RequestPayload)
	}
	if payload["password"] != snapshot.MaskToken || payload["plate_number"] != "abc-123" {
		t.Fatalf("request payload not masked: %v", payload)
	}
	if nested := payload["nested"].(map[string]any); nested["Token"] != snapshot.MaskToken {
		t.Fatalf("nested key not masked: %v", nested)
	}
	if resp, ok := e.ResponsePayload.(map[string]any); !ok || resp["error"] != "validation failed" {
		t.Fatalf("response payload not captured: %#v", e.ResponsePayload)
	}
}

func TestAuditCaptureLeavesBodyIntactForHandler(t *testing.T) {
	env := newTestEnv()
	env.sink = &recordingSink{}
	var stored domain.Vehicle
	env.vehicles.createFn = func(_ context.Context, v domain.Vehicle) (domain.Vehicle, error) {
		stored = v
		return v, nil
	}

	rec := serve(env.router(t), http.MethodPost, "/v1/vehicles", adminToken, validVehicleBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if stored.VIN != "WVWZZZ1JZXW000001" {
		t.Fatalf("handler did not receive the full body: %+v", stored)
	}
}

func TestAuditCaptureUsesRoutePattern(t *testing.T) {
	env := newTestEnv()
	sink := &recordingSink{}
	env.sink = sink

	id := uuid.NewString()
	rec := serve(env.router(t), http.MethodGet, "/v1/vehicles/"+id+"/emission-tests", inspectorToken, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	e := sink.only(t).Entry
	if e.RoutePath != "/v1/vehicles/{id}/emission-tests" {
		t.Fatalf("expected route pattern, got %q", e.RoutePath)
	}
	if e.EventID != "GET_V1_VEHICLES_ID_EMISSION_TESTS" {
		t.Fatalf("unexpected event id %q", e.EventID)
	}
	if e.ErrorDetail != "not found" {
		t.Fatalf("unexpected error detail %q", e.ErrorDetail)
	}
}

func TestAuditCaptureUnauthenticatedRequest(t *testing.T) {
	env := newTestEnv()
	sink := &recordingSink{}
	env.sink = sink

	rec := serve(env.router(t), http.MethodGet, "/v1/audit-logs", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	e := sink.only(t).Entry
	if e.UserID != "" || e.UserEmail != "" {
		t.Fatalf("unauthenticated request must not carry an actor: %+v", e)
	}
	if e.StatusCode != http.StatusUnauthorized || e.ErrorDetail != "unauthorized" {
		t.Fatalf("unexpected status/detail: %d %q", e.StatusCode, e.ErrorDetail)
	}
}

func TestAuditCaptureSkipsOperationalEndpoints(t *testing.T) {
	env := newTestEnv()
	sink := &recordingSink{}
	env.sink = sink
	h := env.router(t)

	for _, path := range []string{"/healthz", "/openapi.json"} {
		if rec := serve(h, http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
	if len(sink.jobs) != 0 {
		t.Fatalf("expected no audit jobs, got %d", len(sink.jobs))
	}
}

func TestAuditCaptureTruncatesOversizedPayloads(t *testing.T) {
	env := newTestEnv()
	sink := &recordingSink{}
	env.sink = sink
	env.masker = snapshot.NewMasker(nil, 16)

	rec := serve(env.router(t), http.MethodPost, "/v1/vehicles", adminToken, validVehicleBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	e := sink.only(t).Entry
	want := map[string]any{"truncated": true, "max_chars": 16}
	for name, got := range map[string]any{"request": e.RequestPayload, "response": e.ResponsePayload} {
		m, ok := got.(map[string]any)
		if !ok || m["truncated"] != want["truncated"] || m["max_chars"] != want["max_chars"] {
			t.Fatalf("%s payload not truncated: %#v", name, got)
		}
	}
}

func TestAuditCaptureFormBody(t *testing.T) {
	env := newTestEnv()
	sink := &recordingSink{}
	env.sink = sink

	form := url.Values{"username": {"ona"}, "password": {"hunter2"}}
	req := httptest.NewRequest(http.MethodPost, "/v1/vehicles", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	withToken(req, adminToken)
	env.router(t).ServeHTTP(httptest.NewRecorder(), req)

	payload, ok := sink.only(t).Entry.RequestPayload.(map[string]any)
	if !ok || payload["username"] != "ona" || payload["password"] != snapshot.MaskToken {
		t.Fatalf("form body not parsed and masked: %#v", sink.only(t).Entry.RequestPayload)
	}
}

func TestAuditCaptureSessionTokenFlag(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		env := newTestEnv()
		sink := &recordingSink{}
		env.sink = sink
		env.resolve = enabled

		req := httptest.NewRequest(http.MethodGet, "/v1/vehicles", nil)
		withToken(req, adminToken)
		req.Header.Set(sessionTokenHeader, "opaque-session")
		env.router(t).ServeHTTP(httptest.NewRecorder(), req)

		job := sink.only(t)
		if enabled && job.SessionToken != "opaque-session" {
			t.Fatalf("session token not forwarded: %q", job.SessionToken)
		}
		if !enabled && job.SessionToken != "" {
			t.Fatalf("session token forwarded while disabled: %q", job.SessionToken)
		}
	}
}

func TestAuditCaptureRecordsPanics(t *testing.T) {
	env := newTestEnv()
	sink := &recordingSink{}
	env.sink = sink
	env.vehicles.getFn = func(context.Context, string) (domain.Vehicle, error) {
		panic("corrupted row")
	}

	rec := serve(env.router(t), http.MethodGet, "/v1/vehicles/"+uuid.NewString(), adminToken, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	e := sink.only(t).Entry
	if e.StatusCode != http.StatusInternalServerError || !strings.HasPrefix(e.ErrorDetail, "panic") {
		t.Fatalf("panic not recorded: %d %q", e.StatusCode, e.ErrorDetail)
	}
}

func TestFailingAuditStoreDoesNotAffectResponse(t *testing.T) {
	env := newTestEnv()
	env.audit.createFn = func(context.Context, domain.AuditLogEntry) (domain.AuditLogEntry, error) {
		return domain.AuditLogEntry{}, errors.New("database is locked")
	}
	recorder := usecase.NewAuditRecorder(usecase.NewAuditService(env.audit, logr.Discard()), logr.Discard(), usecase.AuditRecorderOptions{})
	env.sink = recorder

	rec := serve(env.router(t), http.MethodPost, "/v1/vehicles", adminToken, validVehicleBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 despite audit failure, got %d", rec.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := recorder.Close(ctx); err != nil {
		t.Fatalf("close recorder: %v", err)
	}
	if m := recorder.Metrics(); m.Enqueued != 1 || m.WriteErrors != 1 || m.Written != 0 {
		t.Fatalf("unexpected recorder metrics: %+v", m)
	}
}

func TestCaptureBufferBounds(t *testing.T) {
	b := captureBuffer{limit: 4}
	n, err := b.Write([]byte("abc"))
	if n != 3 || err != nil || b.overflow {
		t.Fatalf("unexpected first write: %d %v %v", n, err, b.overflow)
	}
	n, _ = b.Write([]byte("def"))
	if n != 3 || b.buf.String() != "abcd" || !b.overflow {
		t.Fatalf("unexpected bounded state: %q overflow=%v", b.buf.String(), b.overflow)
	}
}
