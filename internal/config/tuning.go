package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/radar-tracker/internal/units"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tracker.defaults.json"

// Range is an inclusive [Min, Max] interval. In JSON it is a two-element
// array, matching the (low, high) pairs the operator panel edits.
type Range [2]float64

// Min returns the lower bound.
func (r Range) Min() float64 { return r[0] }

// Max returns the upper bound.
func (r Range) Max() float64 { return r[1] }

// Contains reports whether v lies within the range, bounds included.
func (r Range) Contains(v float64) bool { return v >= r[0] && v <= r[1] }

// TuningConfig is the root configuration for a tracking run. Every field is
// optional: a nil pointer means "use the default", which the Get* methods
// supply. The same JSON shape is stored alongside each run in the results DB.
type TuningConfig struct {
	// Engine selection
	TrackMode   *string `json:"track_mode,omitempty"`   // "3-state", "5-state", "7-state"
	Association *string `json:"association,omitempty"`  // "JPDA" or "Munkres"
	MotionModel *string `json:"motion_model,omitempty"` // "CV", "CA", "CT"

	// Motion model params
	PlantNoise *float64 `json:"plant_noise,omitempty"` // process noise intensity q
	TurnRate   *float64 `json:"turn_rate,omitempty"`   // assumed CT turn rate (rad/s)

	// Detection validation bounds
	TargetSpeed    *Range `json:"target_speed,omitempty"`    // m/s
	TargetAltitude *Range `json:"target_altitude,omitempty"` // metres
	RangeGate      *Range `json:"range_gate,omitempty"`      // metres
	AzimuthGate    *Range `json:"azimuth_gate,omitempty"`    // degrees
	ElevationGate  *Range `json:"elevation_gate,omitempty"`  // degrees

	// Gating and association
	GateProbability      *float64 `json:"gate_probability,omitempty"`
	DetectionProbability *float64 `json:"detection_probability,omitempty"`
	ClutterDensity       *float64 `json:"clutter_density,omitempty"` // false alarms per m³
	MaxJPDAHypotheses    *int     `json:"max_jpda_hypotheses,omitempty"`

	// Lifecycle
	HitsToConfirm         *int     `json:"hits_to_confirm,omitempty"`
	MaxMisses             *int     `json:"max_misses,omitempty"`
	MaxMissesConfirmed    *int     `json:"max_misses_confirmed,omitempty"`
	MaxTracks             *int     `json:"max_tracks,omitempty"`
	OcclusionCovInflation *float64 `json:"occlusion_cov_inflation,omitempty"`

	// Measurement and initiation noise
	SigmaRange                  *float64 `json:"sigma_range,omitempty"`         // metres
	SigmaAzimuthDeg             *float64 `json:"sigma_azimuth_deg,omitempty"`   // degrees
	SigmaElevationDeg           *float64 `json:"sigma_elevation_deg,omitempty"` // degrees
	MinMeasurementVariance      *float64 `json:"min_measurement_variance,omitempty"`
	InitialVelocityVariance     *float64 `json:"initial_velocity_variance,omitempty"`
	InitialAccelerationVariance *float64 `json:"initial_acceleration_variance,omitempty"`
	MaxPredictDt                *float64 `json:"max_predict_dt,omitempty"` // seconds

	// Scan processing
	ScanWindow *float64 `json:"scan_window,omitempty"` // seconds
	Workers    *int     `json:"workers,omitempty"`

	// Reporting
	SpeedUnits *string `json:"speed_units,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrRange(lo, hi float64) *Range {
	r := Range{lo, hi}
	return &r
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the Get* defaults. Useful as a template for writing a config file.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	speed, alt, rng, az, el := e.GetTargetSpeed(), e.GetTargetAltitude(), e.GetRangeGate(), e.GetAzimuthGate(), e.GetElevationGate()
	return &TuningConfig{
		TrackMode:                   ptrString(e.GetTrackMode()),
		Association:                 ptrString(e.GetAssociation()),
		MotionModel:                 ptrString(e.GetMotionModel()),
		PlantNoise:                  ptrFloat64(e.GetPlantNoise()),
		TurnRate:                    ptrFloat64(e.GetTurnRate()),
		TargetSpeed:                 ptrRange(speed.Min(), speed.Max()),
		TargetAltitude:              ptrRange(alt.Min(), alt.Max()),
		RangeGate:                   ptrRange(rng.Min(), rng.Max()),
		AzimuthGate:                 ptrRange(az.Min(), az.Max()),
		ElevationGate:               ptrRange(el.Min(), el.Max()),
		GateProbability:             ptrFloat64(e.GetGateProbability()),
		DetectionProbability:        ptrFloat64(e.GetDetectionProbability()),
		ClutterDensity:              ptrFloat64(e.GetClutterDensity()),
		MaxJPDAHypotheses:           ptrInt(e.GetMaxJPDAHypotheses()),
		HitsToConfirm:               ptrInt(e.GetHitsToConfirm()),
		MaxMisses:                   ptrInt(e.GetMaxMisses()),
		MaxMissesConfirmed:          ptrInt(e.GetMaxMissesConfirmed()),
		MaxTracks:                   ptrInt(e.GetMaxTracks()),
		OcclusionCovInflation:       ptrFloat64(e.GetOcclusionCovInflation()),
		SigmaRange:                  ptrFloat64(e.GetSigmaRange()),
		SigmaAzimuthDeg:             ptrFloat64(e.GetSigmaAzimuthDeg()),
		SigmaElevationDeg:           ptrFloat64(e.GetSigmaElevationDeg()),
		MinMeasurementVariance:      ptrFloat64(e.GetMinMeasurementVariance()),
		InitialVelocityVariance:     ptrFloat64(e.GetInitialVelocityVariance()),
		InitialAccelerationVariance: ptrFloat64(e.GetInitialAccelerationVariance()),
		MaxPredictDt:                ptrFloat64(e.GetMaxPredictDt()),
		ScanWindow:                  ptrFloat64(e.GetScanWindow()),
		Workers:                     ptrInt(e.GetWorkers()),
		SpeedUnits:                  ptrString(e.GetSpeedUnits()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/tracking/gate/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// ToJSON serialises the config for storage alongside a run.
func (c *TuningConfig) ToJSON() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tuning config: %w", err)
	}
	return string(b), nil
}

// Validate checks that the configuration values are valid. Engine selection
// strings are checked where they are parsed, since only the engine knows
// which mode/model pairs are compatible.
func (c *TuningConfig) Validate() error {
	ranges := []struct {
		name string
		r    *Range
	}{
		{"target_speed", c.TargetSpeed},
		{"target_altitude", c.TargetAltitude},
		{"range_gate", c.RangeGate},
		{"azimuth_gate", c.AzimuthGate},
		{"elevation_gate", c.ElevationGate},
	}
	for _, rr := range ranges {
		if rr.r != nil && rr.r.Min() > rr.r.Max() {
			return fmt.Errorf("%s min %g exceeds max %g", rr.name, rr.r.Min(), rr.r.Max())
		}
	}
	if c.TargetSpeed != nil && c.TargetSpeed.Max() <= 0 {
		return fmt.Errorf("target_speed max must be positive, got %g", c.TargetSpeed.Max())
	}
	if c.RangeGate != nil && c.RangeGate.Min() < 0 {
		return fmt.Errorf("range_gate min must be non-negative, got %g", c.RangeGate.Min())
	}

	probs := []struct {
		name string
		v    *float64
	}{
		{"gate_probability", c.GateProbability},
		{"detection_probability", c.DetectionProbability},
	}
	for _, p := range probs {
		if p.v != nil && (*p.v <= 0 || *p.v >= 1) {
			return fmt.Errorf("%s must be in (0, 1), got %g", p.name, *p.v)
		}
	}

	positives := []struct {
		name string
		v    *float64
	}{
		{"plant_noise", c.PlantNoise},
		{"clutter_density", c.ClutterDensity},
		{"sigma_range", c.SigmaRange},
		{"sigma_azimuth_deg", c.SigmaAzimuthDeg},
		{"sigma_elevation_deg", c.SigmaElevationDeg},
		{"min_measurement_variance", c.MinMeasurementVariance},
		{"initial_velocity_variance", c.InitialVelocityVariance},
		{"initial_acceleration_variance", c.InitialAccelerationVariance},
		{"max_predict_dt", c.MaxPredictDt},
	}
	for _, p := range positives {
		if p.v != nil && *p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %g", p.name, *p.v)
		}
	}
	if c.OcclusionCovInflation != nil && *c.OcclusionCovInflation < 0 {
		return fmt.Errorf("occlusion_cov_inflation must be non-negative, got %g", *c.OcclusionCovInflation)
	}
	if c.ScanWindow != nil && *c.ScanWindow < 0 {
		return fmt.Errorf("scan_window must be non-negative, got %g", *c.ScanWindow)
	}

	counts := []struct {
		name string
		v    *int
		min  int
	}{
		{"hits_to_confirm", c.HitsToConfirm, 1},
		{"max_misses", c.MaxMisses, 1},
		{"max_misses_confirmed", c.MaxMissesConfirmed, 0},
		{"max_tracks", c.MaxTracks, 1},
		{"max_jpda_hypotheses", c.MaxJPDAHypotheses, 1},
		{"workers", c.Workers, 0},
	}
	for _, n := range counts {
		if n.v != nil && *n.v < n.min {
			return fmt.Errorf("%s must be at least %d, got %d", n.name, n.min, *n.v)
		}
	}

	if c.SpeedUnits != nil && !units.IsValid(*c.SpeedUnits) {
		return fmt.Errorf("speed_units must be one of %s, got %q", units.GetValidUnitsString(), *c.SpeedUnits)
	}

	return nil
}
