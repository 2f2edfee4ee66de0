package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/pagination"
)

func validVehicle() domain.Vehicle {
	return domain.Vehicle{
		PlateNumber: " abc-123 ",
		VIN:         "wvwzzz1kzaw000001",
		Make:        "Volkswagen",
		Model:       "Golf",
		Year:        2010,
		FuelType:    "diesel",
		OwnerName:   "Jonas",
	}
}

func TestVehicleServiceCreateAssignsIdentityAndTime(t *testing.T) {
	clock := time.Date(2024, 4, 1, 12, 0, 0, 123456789, time.FixedZone("EEST", 3*3600))
	svc := NewVehicleService(&stubVehicleRepo{})
	svc.now = fixedClock(clock)

	v, err := svc.Create(context.Background(), validVehicle())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := uuid.Parse(v.ID); err != nil {
		t.Fatalf("expected uuid id, got %q", v.ID)
	}
	if v.PlateNumber != "ABC-123" || v.VIN != "WVWZZZ1KZAW000001" {
		t.Fatalf("expected normalized plate and vin, got %q %q", v.PlateNumber, v.VIN)
	}
	if v.Status != domain.VehicleStatusRegistered {
		t.Fatalf("expected default status, got %q", v.Status)
	}
	want := clock.UTC().Truncate(time.Microsecond)
	if !v.CreatedAt.Equal(want) || v.CreatedAt.Location() != time.UTC || v.CreatedAt.Nanosecond()%1000 != 0 {
		t.Fatalf("unexpected created_at %v", v.CreatedAt)
	}
}

func TestVehicleServiceCreateRejectsInvalid(t *testing.T) {
	svc := NewVehicleService(&stubVehicleRepo{createFn: func(context.Context, domain.Vehicle) (domain.Vehicle, error) {
		t.Fatal("repository must not be called")
		return domain.Vehicle{}, nil
	}})
	v := validVehicle()
	v.FuelType = "steam"

	_, err := svc.Create(context.Background(), v)
	var fe *domain.FieldError
	if !errors.As(err, &fe) || fe.Field != "fuel_type" {
		t.Fatalf("expected fuel_type field error, got %v", err)
	}
}

func TestVehicleServiceGetMalformedIDIsNotFound(t *testing.T) {
	svc := NewVehicleService(&stubVehicleRepo{})
	if _, err := svc.Get(context.Background(), "42"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVehicleServicePatch(t *testing.T) {
	id := uuid.NewString()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := validVehicle()
	existing.ID = id
	existing.PlateNumber = "ABC-123"
	existing.VIN = "WVWZZZ1KZAW000001"
	existing.Status = domain.VehicleStatusRegistered
	existing.CreatedAt = created
	existing.UpdatedAt = created

	var stored domain.Vehicle
	repo := &stubVehicleRepo{
		getFn: func(_ context.Context, got string) (domain.Vehicle, error) {
			if got != id {
				t.Fatalf("unexpected id %s", got)
			}
			return existing, nil
		},
		updateFn: func(_ context.Context, v domain.Vehicle) (domain.Vehicle, error) {
			stored = v
			return v, nil
		},
	}
	svc := NewVehicleService(repo)
	svc.now = fixedClock(created.Add(time.Hour))

	patch := map[string]json.RawMessage{
		"plate_number": json.RawMessage(`"xyz-9"`),
		"status":       json.RawMessage(`"suspended"`),
	}
	v, err := svc.Patch(context.Background(), id, patch)
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if v.PlateNumber != "XYZ-9" || v.Status != domain.VehicleStatusSuspended {
		t.Fatalf("unexpected patched vehicle: %+v", v)
	}
	if stored.Make != "Volkswagen" || !stored.CreatedAt.Equal(created) || !stored.UpdatedAt.Equal(created.Add(time.Hour)) {
		t.Fatalf("unexpected stored vehicle: %+v", stored)
	}
	if string(patch["plate_number"]) != `"xyz-9"` {
		t.Fatal("caller patch must not be modified")
	}
}

func TestVehicleServicePatchRejectsImmutableField(t *testing.T) {
	existing := validVehicle()
	existing.PlateNumber = "ABC-123"
	existing.VIN = "WVWZZZ1KZAW000001"
	existing.Status = domain.VehicleStatusRegistered
	svc := NewVehicleService(&stubVehicleRepo{
		getFn: func(context.Context, string) (domain.Vehicle, error) { return existing, nil },
		updateFn: func(context.Context, domain.Vehicle) (domain.Vehicle, error) {
			t.Fatal("update must not be called")
			return domain.Vehicle{}, nil
		},
	})

	_, err := svc.Patch(context.Background(), uuid.NewString(), map[string]json.RawMessage{"vin": json.RawMessage(`"X"`)})
	var fe *domain.FieldError
	if !errors.As(err, &fe) || fe.Field != "vin" {
		t.Fatalf("expected vin field error, got %v", err)
	}
}

func TestVehicleServiceListBuildsPage(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []domain.Vehicle{
		{ID: "c", CreatedAt: base.Add(2 * time.Second)},
		{ID: "b", CreatedAt: base.Add(time.Second)},
		{ID: "a", CreatedAt: base},
	}
	svc := NewVehicleService(&stubVehicleRepo{listFn: func(_ context.Context, filter domain.VehicleFilter, page pagination.Request) ([]domain.Vehicle, error) {
		if filter.FuelType != "diesel" {
			t.Fatalf("filter not forwarded: %+v", filter)
		}
		if page.FetchSize() != 3 {
			t.Fatalf("expected fetch size 3, got %d", page.FetchSize())
		}
		return rows, nil
	}})

	page, err := svc.List(context.Background(), domain.VehicleFilter{FuelType: "diesel"}, pagination.Request{Limit: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == nil || page.NextCursor.ID != "b" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if !page.NextCursor.CreatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("cursor must point at last included row: %+v", page.NextCursor)
	}
}

func TestVehicleServiceListRejectsBadFilter(t *testing.T) {
	svc := NewVehicleService(&stubVehicleRepo{})
	_, err := svc.List(context.Background(), domain.VehicleFilter{Status: "stolen"}, pagination.Request{Limit: 5})
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("expected invalid filter, got %v", err)
	}
}
