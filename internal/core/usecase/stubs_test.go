package usecase

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/pagination"
)

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
	sessions map[string]domain.Session
	finds    int
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: map[string]domain.Session{}}
}

func (s *stubSessionRepo) Create(_ context.Context, sess domain.Session) error {
	s.sessions[sess.TokenHash] = sess
	return nil
}

func (s *stubSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (domain.Session, error) {
	s.finds++
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *stubSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) (bool, error) {
	_, ok := s.sessions[tokenHash]
	delete(s.sessions, tokenHash)
	return ok, nil
}

type stubSessionCache struct {
	entries map[string]domain.Session
	ttls    map[string]time.Duration
}

func newStubSessionCache() *stubSessionCache {
	return &stubSessionCache{entries: map[string]domain.Session{}, ttls: map[string]time.Duration{}}
}

func (c *stubSessionCache) Get(_ context.Context, tokenHash string) (domain.Session, bool, error) {
	sess, ok := c.entries[tokenHash]
	return sess, ok, nil
}

func (c *stubSessionCache) Set(_ context.Context, sess domain.Session, ttl time.Duration) error {
	c.entries[sess.TokenHash] = sess
	c.ttls[sess.TokenHash] = ttl
	return nil
}

func (c *stubSessionCache) Delete(_ context.Context, tokenHash string) error {
	delete(c.entries, tokenHash)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
