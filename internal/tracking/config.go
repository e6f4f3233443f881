package tracking

import (
	"fmt"
	"runtime"

	"github.com/banshee-data/radar-tracker/internal/config"
	"github.com/banshee-data/radar-tracker/internal/tracking/assoc"
	"github.com/banshee-data/radar-tracker/internal/tracking/motion"
)

// Config is the immutable engine configuration threaded through the
// Manager, the gate and the motion model.
type Config struct {
	Layout      motion.Layout
	Model       motion.Kind
	Association assoc.Kind

	Motion motion.Params
	Assoc  assoc.Params

	HitsToConfirm         int     // consecutive hits for Tentative → Confirmed
	MaxMisses             int     // consecutive misses before tentative deletion
	MaxMissesConfirmed    int     // consecutive misses before confirmed/coasting deletion (0 = MaxMisses)
	MaxTracks             int     // active track cap
	OcclusionCovInflation float64 // added to position variances per coasting scan

	MaxSpeed     float64 // m/s, velocity clamp and implied-speed gate
	MaxPredictDt float64 // seconds

	MinVariance                 float64
	InitialVelocityVariance     float64
	InitialAccelerationVariance float64

	Workers int // parallel predict/gate goroutines; 0 = GOMAXPROCS
}

// DefaultConfig returns the engine configuration implied by the built-in
// tuning defaults.
func DefaultConfig() Config {
	cfg, err := ConfigFromTuning(config.EmptyTuningConfig())
	if err != nil {
		panic(fmt.Sprintf("built-in tracking defaults are invalid: %v", err))
	}
	return cfg
}

// ConfigFromTuning builds a validated Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) (Config, error) {
	layout, err := motion.ParseLayout(cfg.GetTrackMode())
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	kind, err := motion.ParseKind(cfg.GetMotionModel())
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	association, err := assoc.ParseKind(cfg.GetAssociation())
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	c := Config{
		Layout:      layout,
		Model:       kind,
		Association: association,
		Motion: motion.Params{
			PlantNoise: cfg.GetPlantNoise(),
			TurnRate:   cfg.GetTurnRate(),
		},
		Assoc: assoc.Params{
			DetectionProbability: cfg.GetDetectionProbability(),
			GateProbability:      cfg.GetGateProbability(),
			ClutterDensity:       cfg.GetClutterDensity(),
			MaxHypotheses:        cfg.GetMaxJPDAHypotheses(),
		},
		HitsToConfirm:               cfg.GetHitsToConfirm(),
		MaxMisses:                   cfg.GetMaxMisses(),
		MaxMissesConfirmed:          cfg.GetMaxMissesConfirmed(),
		MaxTracks:                   cfg.GetMaxTracks(),
		OcclusionCovInflation:       cfg.GetOcclusionCovInflation(),
		MaxSpeed:                    cfg.GetTargetSpeed().Max(),
		MaxPredictDt:                cfg.GetMaxPredictDt(),
		MinVariance:                 cfg.GetMinMeasurementVariance(),
		InitialVelocityVariance:     cfg.GetInitialVelocityVariance(),
		InitialAccelerationVariance: cfg.GetInitialAccelerationVariance(),
		Workers:                     cfg.GetWorkers(),
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports inconsistent settings, wrapping ErrConfiguration.
func (c Config) Validate() error {
	if _, err := motion.New(c.Model, c.Layout, c.Motion); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if _, err := assoc.New(c.Association, c.Assoc); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if c.Assoc.GateProbability <= 0 || c.Assoc.GateProbability >= 1 {
		return fmt.Errorf("%w: gate probability %v outside (0, 1)", ErrConfiguration, c.Assoc.GateProbability)
	}
	if c.HitsToConfirm < 1 {
		return fmt.Errorf("%w: hits_to_confirm must be at least 1", ErrConfiguration)
	}
	if c.MaxMisses < 1 {
		return fmt.Errorf("%w: max_misses must be at least 1", ErrConfiguration)
	}
	if c.MaxMissesConfirmed < 0 {
		return fmt.Errorf("%w: max_misses_confirmed must not be negative", ErrConfiguration)
	}
	if c.MaxTracks < 1 {
		return fmt.Errorf("%w: max_tracks must be at least 1", ErrConfiguration)
	}
	if c.Motion.PlantNoise < 0 || c.OcclusionCovInflation < 0 || c.MaxSpeed < 0 {
		return fmt.Errorf("%w: noise, inflation and speed limits must not be negative", ErrConfiguration)
	}
	if c.InitialVelocityVariance <= 0 || c.InitialAccelerationVariance <= 0 {
		return fmt.Errorf("%w: initial variances must be positive", ErrConfiguration)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrConfiguration)
	}
	return nil
}

// missLimit returns the consecutive-miss count that deletes a track in
// status s.
func (c Config) missLimit(s Status) int {
	if (s == StatusConfirmed || s == StatusCoasting) && c.MaxMissesConfirmed > 0 {
		return c.MaxMissesConfirmed
	}
	return c.MaxMisses
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
