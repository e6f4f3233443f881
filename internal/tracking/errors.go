package tracking

import (
	"errors"

	"github.com/banshee-data/radar-tracker/internal/tracking/kalman"
)

var (
	// ErrConfiguration is returned before any scan is processed when the
	// engine configuration is unknown or inconsistent.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidMeasurement marks a detection that cannot be used against the
	// configured state model. Such detections are dropped, not fatal.
	ErrInvalidMeasurement = kalman.ErrInvalidMeasurement
	// ErrNumericInstability marks a per-track estimator or solver failure that
	// was recovered locally.
	ErrNumericInstability = kalman.ErrNumericInstability
)
