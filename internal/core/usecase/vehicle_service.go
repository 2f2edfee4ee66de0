package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/pagination"
	"github.com/atvirokodosprendimai/envadmin/internal/core/ports"
)

type VehicleService struct {
	repo ports.VehicleRepository
	now  func() time.Time
}

func NewVehicleService(repo ports.VehicleRepository) *VehicleService {
	return &VehicleService{repo: repo, now: time.Now}
}

func (s *VehicleService) Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	v.PlateNumber = strings.ToUpper(strings.TrimSpace(v.PlateNumber))
	v.VIN = strings.ToUpper(strings.TrimSpace(v.VIN))
	if v.Status == "" {
		v.Status = domain.VehicleStatusRegistered
	}
	if err := v.Validate(); err != nil {
		return domain.Vehicle{}, err
	}

	now := recordTime(s.now())
	v.ID = uuid.NewString()
	v.CreatedAt = now
	v.UpdatedAt = now
	return s.repo.Create(ctx, v)
}

func (s *VehicleService) Get(ctx context.Context, id string) (domain.Vehicle, error) {
	id, err := canonicalID(id)
	if err != nil {
		return domain.Vehicle{}, err
	}
	return s.repo.Get(ctx, id)
}

// Patch applies a partial update. Only fields known to domain.ApplyVehiclePatch
// may appear in patch.
func (s *VehicleService) Patch(ctx context.Context, id string, patch map[string]json.RawMessage) (domain.Vehicle, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return domain.Vehicle{}, err
	}
	normalized := make(map[string]json.RawMessage, len(patch))
	for field, raw := range patch {
		normalized[field] = raw
	}
	if raw, ok := normalized["plate_number"]; ok {
		var plate string
		if json.Unmarshal(raw, &plate) == nil {
			normalized["plate_number"], _ = json.Marshal(strings.ToUpper(strings.TrimSpace(plate)))
		}
	}

	updated, err := domain.ApplyVehiclePatch(existing, normalized)
	if err != nil {
		return domain.Vehicle{}, err
	}
	updated.UpdatedAt = recordTime(s.now())
	return s.repo.Update(ctx, updated)
}

func (s *VehicleService) List(ctx context.Context, filter domain.VehicleFilter, page pagination.Request) (pagination.Page[domain.Vehicle], error) {
	if err := filter.Validate(); err != nil {
		return pagination.Page[domain.Vehicle]{}, err
	}
	if page.Limit < 1 {
		page.Limit = pagination.SanitizeLimit(nil)
	}

	rows, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return pagination.Page[domain.Vehicle]{}, fmt.Errorf("list vehicles: %w", err)
	}
	return pagination.BuildPage(rows, page.Limit, vehicleCursor), nil
}

func vehicleCursor(v domain.Vehicle) pagination.Cursor {
	return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
}

// recordTime is the timestamp stored on new rows: UTC at microsecond
// precision so the value survives a database round trip unchanged.
func recordTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func canonicalID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", domain.ErrNotFound
	}
	return parsed.String(), nil
}
