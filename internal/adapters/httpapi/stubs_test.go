package httpapi

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/pagination"
	"github.com/atvirokodosprendimai/envadmin/internal/core/snapshot"
	"github.com/atvirokodosprendimai/envadmin/internal/core/usecase"
)

const (
	adminToken     = "admin-token"
	auditorToken   = "auditor-token"
	inspectorToken = "inspector-token"
)

var testPrincipals = map[string]domain.Principal{
	adminToken:     {Subject: "admin-1", Email: "admin@example.lt", Roles: []string{"admin"}},
	auditorToken:   {Subject: "auditor-1", Email: "auditor@example.lt", Roles: []string{"auditor"}},
	inspectorToken: {Subject: "inspector-1", Email: "inspector@example.lt", Roles: []string{"inspector"}},
}

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, raw string) (domain.Principal, error) {
	p, ok := testPrincipals[raw]
	if !ok {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return p, nil
}

type stubVehicleRepo struct {
	createFn func(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)
	getFn    func(ctx context.Context, id string) (domain.Vehicle, error)
	updateFn func(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)
	listFn   func(ctx context.Context, filter domain.VehicleFilter, page pagination.Request) ([]domain.Vehicle, error)
}

func (s *stubVehicleRepo) Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	if s.createFn != nil {
		return s.createFn(ctx, v)
	}
	return v, nil
}

func (s *stubVehicleRepo) Get(ctx context.Context, id string) (domain.Vehicle, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return domain.Vehicle{}, domain.ErrNotFound
}

func (s *stubVehicleRepo) Update(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, v)
	}
	return v, nil
}

func (s *stubVehicleRepo) List(ctx context.Context, filter domain.VehicleFilter, page pagination.Request) ([]domain.Vehicle, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter, page)
	}
	return nil, nil
}

type stubEmissionRepo struct {
	createFn func(ctx context.Context, t domain.EmissionTest) (domain.EmissionTest, error)
	listFn   func(ctx context.Context, vehicleID string, page pagination.Request) ([]domain.EmissionTest, error)
}

func (s *stubEmissionRepo) Create(ctx context.Context, t domain.EmissionTest) (domain.EmissionTest, error) {
	if s.createFn != nil {
		return s.createFn(ctx, t)
	}
	return t, nil
}

func (s *stubEmissionRepo) ListByVehicle(ctx context.Context, vehicleID string, page pagination.Request) ([]domain.EmissionTest, error) {
	if s.listFn != nil {
		return s.listFn(ctx, vehicleID, page)
	}
	return nil, nil
}

type stubAuditRepo struct {
	createFn func(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error)
	getFn    func(ctx context.Context, id int64) (domain.AuditLogEntry, error)
	listFn   func(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, int64, error)
}

func (s *stubAuditRepo) Create(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error) {
	if s.createFn != nil {
		return s.createFn(ctx, entry)
	}
	entry.ID = 1
	return entry, nil
}

func (s *stubAuditRepo) Get(ctx context.Context, id int64) (domain.AuditLogEntry, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return domain.AuditLogEntry{}, domain.ErrNotFound
}

func (s *stubAuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, int64, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, 0, nil
}

type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func (s *stubSessionRepo) Create(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions == nil {
		s.sessions = map[string]domain.Session{}
	}
	s.sessions[sess.TokenHash] = sess
	return nil
}

func (s *stubSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *stubSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[tokenHash]
	delete(s.sessions, tokenHash)
	return ok, nil
}

// recordingSink keeps every enqueued job in order.
type recordingSink struct {
	mu   sync.Mutex
	jobs []usecase.AuditJob
}

func (s *recordingSink) Enqueue(job usecase.AuditJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return true
}

func (s *recordingSink) only(t *testing.T) usecase.AuditJob {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs) != 1 {
		t.Fatalf("expected exactly one audit job, got %d", len(s.jobs))
	}
	return s.jobs[0]
}

type testEnv struct {
	vehicles  *stubVehicleRepo
	emissions *stubEmissionRepo
	audit     *stubAuditRepo
	sessions  *stubSessionRepo
	sink      AuditSink
	masker    *snapshot.Masker
	resolve   bool
}

func newTestEnv() *testEnv {
	return &testEnv{
		vehicles:  &stubVehicleRepo{},
		emissions: &stubEmissionRepo{},
		audit:     &stubAuditRepo{},
		sessions:  &stubSessionRepo{},
	}
}

func (e *testEnv) router(t *testing.T) http.Handler {
	t.Helper()
	schemas, err := usecase.NewPayloadValidator()
	if err != nil {
		t.Fatalf("compile schemas: %v", err)
	}
	return NewHandler(Deps{
		Vehicles:        usecase.NewVehicleService(e.vehicles),
		Emissions:       usecase.NewEmissionService(e.vehicles, e.emissions),
		Audit:           usecase.NewAuditService(e.audit, logr.Discard()),
		Auth:            usecase.NewAuthService(stubVerifier{}),
		Sessions:        usecase.NewSessionService(e.sessions, nil, logr.Discard()),
		Schemas:         schemas,
		AuditSink:       e.sink,
		Masker:          e.masker,
		ResolveSessions: e.resolve,
		Log:             logr.Discard(),
	}).Router()
}

func withToken(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

func storedVehicle(id string, createdAt time.Time) domain.Vehicle {
	return domain.Vehicle{
		ID:          id,
		PlateNumber: "ABC-123",
		VIN:         "WVWZZZ1JZXW000001",
		Make:        "Volkswagen",
		Model:       "Golf",
		Year:        2015,
		FuelType:    "gasoline",
		Status:      domain.VehicleStatusRegistered,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}
