package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/pagination"
	"github.com/atvirokodosprendimai/envadmin/internal/core/ports"
)

type EmissionService struct {
	vehicles ports.VehicleRepository
	tests    ports.EmissionTestRepository
	now      func() time.Time
}

func NewEmissionService(vehicles ports.VehicleRepository, tests ports.EmissionTestRepository) *EmissionService {
	return &EmissionService{vehicles: vehicles, tests: tests, now: time.Now}
}

// Record stores a lane measurement for an existing vehicle. The pass/fail
// result is always computed here, never taken from the caller.
func (s *EmissionService) Record(ctx context.Context, vehicleID string, t domain.EmissionTest) (domain.EmissionTest, error) {
	vehicleID, err := canonicalID(vehicleID)
	if err != nil {
		return domain.EmissionTest{}, err
	}
	vehicle, err := s.vehicles.Get(ctx, vehicleID)
	if err != nil {
		return domain.EmissionTest{}, err
	}

	t.Inspector = strings.TrimSpace(t.Inspector)
	if err := t.Validate(); err != nil {
		return domain.EmissionTest{}, err
	}
	result, err := domain.EvaluateEmission(vehicle.FuelType, t.EmissionReading)
	if err != nil {
		return domain.EmissionTest{}, err
	}

	now := recordTime(s.now())
	t.ID = uuid.NewString()
	t.VehicleID = vehicle.ID
	t.Result = result
	t.CreatedAt = now
	if t.TestedAt.IsZero() {
		t.TestedAt = now
	} else {
		t.TestedAt = recordTime(t.TestedAt)
	}
	return s.tests.Create(ctx, t)
}

func (s *EmissionService) ListByVehicle(ctx context.Context, vehicleID string, page pagination.Request) (pagination.Page[domain.EmissionTest], error) {
	vehicleID, err := canonicalID(vehicleID)
	if err != nil {
		return pagination.Page[domain.EmissionTest]{}, err
	}
	if _, err := s.vehicles.Get(ctx, vehicleID); err != nil {
		return pagination.Page[domain.EmissionTest]{}, err
	}
	if page.Limit < 1 {
		page.Limit = pagination.SanitizeLimit(nil)
	}

	rows, err := s.tests.ListByVehicle(ctx, vehicleID, page)
	if err != nil {
		return pagination.Page[domain.EmissionTest]{}, fmt.Errorf("list emission tests: %w", err)
	}
	return pagination.BuildPage(rows, page.Limit, func(t domain.EmissionTest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	}), nil
}
