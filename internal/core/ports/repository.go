package ports

import (
	"context"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/pagination"
)

// VehicleRepository lists in (created_at DESC, id DESC) order and returns up
// to page.FetchSize() rows so the caller can detect a following page.
type VehicleRepository interface {
	Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)
	Get(ctx context.Context, id string) (domain.Vehicle, error)
	Update(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)
	List(ctx context.Context, filter domain.VehicleFilter, page pagination.Request) ([]domain.Vehicle, error)
}

type EmissionTestRepository interface {
	Create(ctx context.Context, t domain.EmissionTest) (domain.EmissionTest, error)
	ListByVehicle(ctx context.Context, vehicleID string, page pagination.Request) ([]domain.EmissionTest, error)
}
