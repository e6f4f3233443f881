package config

// GetTrackMode returns the track_mode value or the default.
func (c *TuningConfig) GetTrackMode() string {
	if c.TrackMode == nil {
		return "5-state"
	}
	return *c.TrackMode
}

// GetAssociation returns the association value or the default.
func (c *TuningConfig) GetAssociation() string {
	if c.Association == nil {
		return "JPDA"
	}
	return *c.Association
}

// GetMotionModel returns the motion_model value or the default.
func (c *TuningConfig) GetMotionModel() string {
	if c.MotionModel == nil {
		return "CV"
	}
	return *c.MotionModel
}

// GetPlantNoise returns the plant_noise value or the default.
func (c *TuningConfig) GetPlantNoise() float64 {
	if c.PlantNoise == nil {
		return 20
	}
	return *c.PlantNoise
}

// GetTurnRate returns the turn_rate value or the default.
func (c *TuningConfig) GetTurnRate() float64 {
	if c.TurnRate == nil {
		return 0
	}
	return *c.TurnRate
}

// GetTargetSpeed returns the target_speed bounds or the default.
func (c *TuningConfig) GetTargetSpeed() Range {
	if c.TargetSpeed == nil {
		return Range{0, 100}
	}
	return *c.TargetSpeed
}

// GetTargetAltitude returns the target_altitude bounds or the default.
func (c *TuningConfig) GetTargetAltitude() Range {
	if c.TargetAltitude == nil {
		return Range{0, 10000}
	}
	return *c.TargetAltitude
}

// GetRangeGate returns the range_gate bounds or the default.
func (c *TuningConfig) GetRangeGate() Range {
	if c.RangeGate == nil {
		return Range{0, 1000}
	}
	return *c.RangeGate
}

// GetAzimuthGate returns the azimuth_gate bounds or the default.
func (c *TuningConfig) GetAzimuthGate() Range {
	if c.AzimuthGate == nil {
		return Range{0, 360}
	}
	return *c.AzimuthGate
}

// GetElevationGate returns the elevation_gate bounds or the default.
func (c *TuningConfig) GetElevationGate() Range {
	if c.ElevationGate == nil {
		return Range{0, 90}
	}
	return *c.ElevationGate
}

// GetGateProbability returns the gate_probability value or the default.
func (c *TuningConfig) GetGateProbability() float64 {
	if c.GateProbability == nil {
		return 0.99
	}
	return *c.GateProbability
}

// GetDetectionProbability returns the detection_probability value or the default.
func (c *TuningConfig) GetDetectionProbability() float64 {
	if c.DetectionProbability == nil {
		return 0.9
	}
	return *c.DetectionProbability
}

// GetClutterDensity returns the clutter_density value or the default.
func (c *TuningConfig) GetClutterDensity() float64 {
	if c.ClutterDensity == nil {
		return 1e-6
	}
	return *c.ClutterDensity
}

// GetMaxJPDAHypotheses returns the max_jpda_hypotheses value or the default.
func (c *TuningConfig) GetMaxJPDAHypotheses() int {
	if c.MaxJPDAHypotheses == nil {
		return 10000
	}
	return *c.MaxJPDAHypotheses
}

// GetHitsToConfirm returns the hits_to_confirm value or the default.
func (c *TuningConfig) GetHitsToConfirm() int {
	if c.HitsToConfirm == nil {
		return 3
	}
	return *c.HitsToConfirm
}

// GetMaxMisses returns the max_misses value or the default.
func (c *TuningConfig) GetMaxMisses() int {
	if c.MaxMisses == nil {
		return 3
	}
	return *c.MaxMisses
}

// GetMaxMissesConfirmed returns the max_misses_confirmed value or the default.
func (c *TuningConfig) GetMaxMissesConfirmed() int {
	if c.MaxMissesConfirmed == nil {
		return 5
	}
	return *c.MaxMissesConfirmed
}

// GetMaxTracks returns the max_tracks value or the default.
func (c *TuningConfig) GetMaxTracks() int {
	if c.MaxTracks == nil {
		return 500
	}
	return *c.MaxTracks
}

// GetOcclusionCovInflation returns the occlusion_cov_inflation value or the default.
func (c *TuningConfig) GetOcclusionCovInflation() float64 {
	if c.OcclusionCovInflation == nil {
		return 0.5
	}
	return *c.OcclusionCovInflation
}

// GetSigmaRange returns the sigma_range value or the default.
func (c *TuningConfig) GetSigmaRange() float64 {
	if c.SigmaRange == nil {
		return 1.0
	}
	return *c.SigmaRange
}

// GetSigmaAzimuthDeg returns the sigma_azimuth_deg value or the default.
func (c *TuningConfig) GetSigmaAzimuthDeg() float64 {
	if c.SigmaAzimuthDeg == nil {
		return 0.2
	}
	return *c.SigmaAzimuthDeg
}

// GetSigmaElevationDeg returns the sigma_elevation_deg value or the default.
func (c *TuningConfig) GetSigmaElevationDeg() float64 {
	if c.SigmaElevationDeg == nil {
		return 0.2
	}
	return *c.SigmaElevationDeg
}

// GetMinMeasurementVariance returns the min_measurement_variance value or the default.
func (c *TuningConfig) GetMinMeasurementVariance() float64 {
	if c.MinMeasurementVariance == nil {
		return 1e-6
	}
	return *c.MinMeasurementVariance
}

// GetInitialVelocityVariance returns the initial_velocity_variance value or the default.
func (c *TuningConfig) GetInitialVelocityVariance() float64 {
	if c.InitialVelocityVariance == nil {
		return 400
	}
	return *c.InitialVelocityVariance
}

// GetInitialAccelerationVariance returns the initial_acceleration_variance value or the default.
func (c *TuningConfig) GetInitialAccelerationVariance() float64 {
	if c.InitialAccelerationVariance == nil {
		return 25
	}
	return *c.InitialAccelerationVariance
}

// GetMaxPredictDt returns the max_predict_dt value or the default.
func (c *TuningConfig) GetMaxPredictDt() float64 {
	if c.MaxPredictDt == nil {
		return 60
	}
	return *c.MaxPredictDt
}

// GetScanWindow returns the scan_window value or the default.
func (c *TuningConfig) GetScanWindow() float64 {
	if c.ScanWindow == nil {
		return 0
	}
	return *c.ScanWindow
}

// GetWorkers returns the workers value or the default. Zero means one
// worker per available CPU.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetSpeedUnits returns the speed_units value or the default.
func (c *TuningConfig) GetSpeedUnits() string {
	if c.SpeedUnits == nil {
		return "mps"
	}
	return *c.SpeedUnits
}
