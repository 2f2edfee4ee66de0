package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/envadmin/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/pagination"
)

type emissionTestModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	VehicleID string    `gorm:"column:vehicle_id;not null"`
	CO        float64   `gorm:"column:co_percent;not null"`
	HC        float64   `gorm:"column:hc_ppm;not null"`
	NOx       float64   `gorm:"column:nox_ppm;not null"`
	Opacity   float64   `gorm:"column:opacity_m;not null"`
	Result    string    `gorm:"column:result;not null"`
	Inspector string    `gorm:"column:inspector;not null"`
	Notes     string    `gorm:"column:notes;not null"`
	TestedAt  time.Time `gorm:"column:tested_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
}

func (emissionTestModel) TableName() string {
	return "emission_tests"
}

type EmissionTestRepository struct {
	db *gormsqlite.DB
}

func NewEmissionTestRepository(db *gormsqlite.DB) *EmissionTestRepository {
	return &EmissionTestRepository{db: db}
}

func (r *EmissionTestRepository) Create(ctx context.Context, t domain.EmissionTest) (domain.EmissionTest, error) {
	model := emissionTestModel{
		ID:        t.ID,
		VehicleID: t.VehicleID,
		CO:        t.CO,
		HC:        t.HC,
		NOx:       t.NOx,
		Opacity:   t.Opacity,
		Result:    t.Result,
		Inspector: t.Inspector,
		Notes:     t.Notes,
		TestedAt:  t.TestedAt.UTC(),
		CreatedAt: t.CreatedAt.UTC(),
	}
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.EmissionTest{}, fmt.Errorf("insert emission test: %w", translateWriteError(err))
	}
	return toEmissionTest(model), nil
}

func (r *EmissionTestRepository) ListByVehicle(ctx context.Context, vehicleID string, page pagination.Request) ([]domain.EmissionTest, error) {
	var rows []emissionTestModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Model(&emissionTestModel{}).
			Where("vehicle_id = ?", vehicleID).
			Scopes(keysetPage(page)).
			Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list emission tests: %w", err)
	}

	result := make([]domain.EmissionTest, 0, len(rows))
	for _, row := range rows {
		result = append(result, toEmissionTest(row))
	}
	return result, nil
}

func toEmissionTest(m emissionTestModel) domain.EmissionTest {
	return domain.EmissionTest{
		ID:        m.ID,
		VehicleID: m.VehicleID,
		EmissionReading: domain.EmissionReading{
			CO:      m.CO,
			HC:      m.HC,
			NOx:     m.NOx,
			Opacity: m.Opacity,
		},
		Result:    m.Result,
		Inspector: m.Inspector,
		Notes:     m.Notes,
		TestedAt:  m.TestedAt.UTC(),
		CreatedAt: m.CreatedAt.UTC(),
	}
}
