package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/envadmin/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/pagination"
)

type vehicleModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	PlateNumber string    `gorm:"column:plate_number;not null"`
	VIN         string    `gorm:"column:vin;not null"`
	Make        string    `gorm:"column:make;not null"`
	Model       string    `gorm:"column:model;not null"`
	Year        int       `gorm:"column:year;not null"`
	FuelType    string    `gorm:"column:fuel_type;not null"`
	OwnerName   string    `gorm:"column:owner_name;not null"`
	Status      string    `gorm:"column:status;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (vehicleModel) TableName() string {
	return "fleet_vehicles"
}

type VehicleRepository struct {
	db *gormsqlite.DB
}

func NewVehicleRepository(db *gormsqlite.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	model := toVehicleModel(v)
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("insert vehicle: %w", translateWriteError(err))
	}
	return toVehicle(model), nil
}

func (r *VehicleRepository) Get(ctx context.Context, id string) (domain.Vehicle, error) {
	var model vehicleModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Vehicle{}, domain.ErrNotFound
		}
		return domain.Vehicle{}, fmt.Errorf("get vehicle: %w", err)
	}
	return toVehicle(model), nil
}

// Update rewrites the mutable columns. id, vin and created_at never change.
func (r *VehicleRepository) Update(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	model := toVehicleModel(v)
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&vehicleModel{}).Where("id = ?", v.ID).Updates(map[string]any{
			"plate_number": model.PlateNumber,
			"make":         model.Make,
			"model":        model.Model,
			"year":         model.Year,
			"fuel_type":    model.FuelType,
			"owner_name":   model.OwnerName,
			"status":       model.Status,
			"updated_at":   model.UpdatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return tx.Where("id = ?", v.ID).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Vehicle{}, domain.ErrNotFound
		}
		return domain.Vehicle{}, fmt.Errorf("update vehicle: %w", translateWriteError(err))
	}
	return toVehicle(model), nil
}

func (r *VehicleRepository) List(ctx context.Context, filter domain.VehicleFilter, page pagination.Request) ([]domain.Vehicle, error) {
	var rows []vehicleModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&vehicleModel{})
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.FuelType != "" {
			query = query.Where("fuel_type = ?", filter.FuelType)
		}
		return query.Scopes(keysetPage(page)).Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}

	result := make([]domain.Vehicle, 0, len(rows))
	for _, row := range rows {
		result = append(result, toVehicle(row))
	}
	return result, nil
}

func toVehicleModel(v domain.Vehicle) vehicleModel {
	return vehicleModel{
		ID:          v.ID,
		PlateNumber: v.PlateNumber,
		VIN:         v.VIN,
		Make:        v.Make,
		Model:       v.Model,
		Year:        v.Year,
		FuelType:    v.FuelType,
		OwnerName:   v.OwnerName,
		Status:      v.Status,
		CreatedAt:   v.CreatedAt.UTC(),
		UpdatedAt:   v.UpdatedAt.UTC(),
	}
}

func toVehicle(m vehicleModel) domain.Vehicle {
	return domain.Vehicle{
		ID:          m.ID,
		PlateNumber: m.PlateNumber,
		VIN:         m.VIN,
		Make:        m.Make,
		Model:       m.Model,
		Year:        m.Year,
		FuelType:    m.FuelType,
		OwnerName:   m.OwnerName,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}
