package domain

import (
	"strings"
	"time"
)

const (
	EmissionResultPass = "pass"
	EmissionResultFail = "fail"
)

// Static limits applied at the test lane. Spark-ignition engines are judged
// on CO and HC at idle, compression-ignition engines on smoke opacity.
const (
	MaxCOPercent    = 3.5
	MaxHCPPM        = 1000.0
	MaxOpacityPerM  = 2.5
	MaxNOxPPMDiesel = 1500.0
)

type EmissionReading struct {
	CO      float64
	HC      float64
	NOx     float64
	Opacity float64
}

type EmissionTest struct {
	ID        string
	VehicleID string
	EmissionReading
	Result    string
	Inspector string
	Notes     string
	TestedAt  time.Time
	CreatedAt time.Time
}

func (t EmissionTest) Validate() error {
	if strings.TrimSpace(t.Inspector) == "" {
		return &FieldError{Field: "inspector", Reason: "required"}
	}
	if t.CO < 0 || t.HC < 0 || t.NOx < 0 || t.Opacity < 0 {
		return ErrInvalidReading
	}
	return nil
}

// EvaluateEmission judges a reading against the limits for fuelType.
// Electric vehicles have no tailpipe test and are rejected.
func EvaluateEmission(fuelType string, r EmissionReading) (string, error) {
	switch fuelType {
	case "gasoline", "lpg", "cng", "hybrid":
		if r.CO > MaxCOPercent || r.HC > MaxHCPPM {
			return EmissionResultFail, nil
		}
		return EmissionResultPass, nil
	case "diesel":
		if r.Opacity > MaxOpacityPerM || r.NOx > MaxNOxPPMDiesel {
			return EmissionResultFail, nil
		}
		return EmissionResultPass, nil
	default:
		return "", &FieldError{Field: "fuel_type", Reason: "no emission test for " + fuelType}
	}
}
