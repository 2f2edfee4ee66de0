package domain

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

const (
	VehicleStatusRegistered = "registered"
	VehicleStatusSuspended  = "suspended"
	VehicleStatusRetired    = "retired"
)

var (
	platePattern = regexp.MustCompile(`^[A-Z0-9-]{2,12}$`)
	vinPattern   = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

	fuelTypes = map[string]struct{}{
		"gasoline": {}, "diesel": {}, "lpg": {}, "cng": {}, "hybrid": {}, "electric": {},
	}
	vehicleStatuses = map[string]struct{}{
		VehicleStatusRegistered: {}, VehicleStatusSuspended: {}, VehicleStatusRetired: {},
	}
)

type Vehicle struct {
	ID          string
	PlateNumber string
	VIN         string
	Make        string
	Model       string
	Year        int
	FuelType    string
	OwnerName   string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (v Vehicle) Validate() error {
	if !platePattern.MatchString(v.PlateNumber) {
		return &FieldError{Field: "plate_number", Reason: "must be 2-12 uppercase letters, digits or dashes"}
	}
	if !vinPattern.MatchString(v.VIN) {
		return &FieldError{Field: "vin", Reason: "must be a 17 character VIN"}
	}
	if strings.TrimSpace(v.Make) == "" {
		return &FieldError{Field: "make", Reason: "required"}
	}
	if strings.TrimSpace(v.Model) == "" {
		return &FieldError{Field: "model", Reason: "required"}
	}
	if v.Year < 1950 || v.Year > time.Now().UTC().Year()+1 {
		return &FieldError{Field: "year", Reason: "out of range"}
	}
	if !ValidFuelType(v.FuelType) {
		return &FieldError{Field: "fuel_type", Reason: "unknown fuel type"}
	}
	if _, ok := vehicleStatuses[v.Status]; !ok {
		return &FieldError{Field: "status", Reason: "unknown status"}
	}
	return nil
}

func ValidFuelType(fuelType string) bool {
	_, ok := fuelTypes[fuelType]
	return ok
}

func ValidVehicleStatus(status string) bool {
	_, ok := vehicleStatuses[status]
	return ok
}

// VehicleFilter narrows a keyset listing. It never participates in the
// cursor comparison.
type VehicleFilter struct {
	Status   string
	FuelType string
}

func (f VehicleFilter) Validate() error {
	if f.Status != "" && !ValidVehicleStatus(f.Status) {
		return ErrInvalidFilter
	}
	if f.FuelType != "" && !ValidFuelType(f.FuelType) {
		return ErrInvalidFilter
	}
	return nil
}

// vehiclePatchFields lists every field a partial update may touch.
var vehiclePatchFields = map[string]func(v *Vehicle, raw json.RawMessage) error{
	"plate_number": func(v *Vehicle, raw json.RawMessage) error {
		return decodeField("plate_number", raw, &v.PlateNumber)
	},
	"make": func(v *Vehicle, raw json.RawMessage) error {
		return decodeField("make", raw, &v.Make)
	},
	"model": func(v *Vehicle, raw json.RawMessage) error {
		return decodeField("model", raw, &v.Model)
	},
	"year": func(v *Vehicle, raw json.RawMessage) error {
		return decodeField("year", raw, &v.Year)
	},
	"fuel_type": func(v *Vehicle, raw json.RawMessage) error {
		return decodeField("fuel_type", raw, &v.FuelType)
	},
	"owner_name": func(v *Vehicle, raw json.RawMessage) error {
		return decodeField("owner_name", raw, &v.OwnerName)
	},
	"status": func(v *Vehicle, raw json.RawMessage) error {
		return decodeField("status", raw, &v.Status)
	},
}

// ApplyVehiclePatch merges patch into a copy of existing. Every key must name
// a known mutable field; the result is validated as a whole.
func ApplyVehiclePatch(existing Vehicle, patch map[string]json.RawMessage) (Vehicle, error) {
	updated := existing
	for field, raw := range patch {
		apply, ok := vehiclePatchFields[field]
		if !ok {
			return Vehicle{}, &FieldError{Field: field, Reason: "unknown or immutable field"}
		}
		if err := apply(&updated, raw); err != nil {
			return Vehicle{}, err
		}
	}
	if err := updated.Validate(); err != nil {
		return Vehicle{}, err
	}
	return updated, nil
}

func decodeField(field string, raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return &FieldError{Field: field, Reason: "must not be null"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &FieldError{Field: field, Reason: "wrong type"}
	}
	return nil
}
