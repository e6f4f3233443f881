package tracking

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/radar-tracker/internal/monitoring"
	"github.com/banshee-data/radar-tracker/internal/tracking/assoc"
	"github.com/banshee-data/radar-tracker/internal/tracking/gate"
	"github.com/banshee-data/radar-tracker/internal/tracking/kalman"
	"github.com/banshee-data/radar-tracker/internal/tracking/motion"
)

// Observation is one detection of a scan converted to the measurement space.
type Observation struct {
	DetectionID int
	Measurement kalman.Measurement
}

// DebugCollector receives algorithm internals for instrumentation. It is
// called from the scan goroutine only, after the predict/gate barrier.
type DebugCollector interface {
	IsEnabled() bool
	RecordPrediction(id TrackID, state []float64)
	RecordAssociation(detectionID int, id TrackID, distance2 float64, accepted bool)
}

// Manager owns the track arena and runs the per-scan pipeline. Scans must be
// fed in increasing time order.
type Manager struct {
	cfg      Config
	filter   kalman.Filter
	gate     gate.Gate
	strategy assoc.Strategy

	// arena[id-1] is track id; deleted tracks stay for their history.
	arena  []*Track
	active []TrackID // ascending
	scans  int

	// DebugCollector captures per-scan internals (optional).
	DebugCollector DebugCollector

	mu sync.RWMutex
}

// NewManager builds the motion model and association strategy named by cfg.
// Inconsistent configuration returns an error wrapping ErrConfiguration.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, err := motion.New(cfg.Model, cfg.Layout, cfg.Motion)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	strategy, err := assoc.New(cfg.Association, cfg.Assoc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	filter := kalman.Filter{Model: model, MaxDt: cfg.MaxPredictDt, MinVariance: cfg.MinVariance}
	return &Manager{
		cfg:      cfg,
		filter:   filter,
		gate:     gate.New(filter, cfg.Assoc.GateProbability, cfg.MaxSpeed),
		strategy: strategy,
	}, nil
}

// Config returns the configuration the Manager was built with.
func (m *Manager) Config() Config { return m.cfg }

// Reset clears all tracks and restarts ID assignment at 1.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arena = nil
	m.active = nil
	m.scans = 0
}

type prediction struct {
	x        *mat.VecDense
	P        *mat.SymDense
	dt       float64
	finite   bool
	gateErrs int
}

// ProcessScan advances every active track to time now and applies one scan
// of observations: predict, gate, associate, update, lifecycle, initiate.
// Only context cancellation is returned as an error; per-track failures are
// logged and counted in the report.
func (m *Manager) ProcessScan(ctx context.Context, now float64, obs []Observation) (*ScanReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := &ScanReport{Index: m.scans, Time: now, Detections: len(obs)}
	active := make([]*Track, len(m.active))
	for i, id := range m.active {
		active[i] = m.arena[id-1]
	}

	// Step 1+2: predict and gate each track in parallel. Each goroutine
	// writes only its own slot; association waits for all of them.
	preds := make([]prediction, len(active))
	cands := gate.NewCandidates(len(active), len(obs), m.gate.Threshold)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.workers())
	for i, tr := range active {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dt := m.clampDt(now - tr.Time)
			x, P := m.filter.Predict(tr.State, tr.Covariance, dt)
			p := prediction{x: x, P: P, dt: dt, finite: kalman.IsFinite(x) && kalman.IsFinite(P)}
			var row []gate.Candidate
			if p.finite {
				for j, o := range obs {
					res, err := m.gate.Evaluate(x, P, o.Measurement, dt)
					if err != nil {
						p.gateErrs++
						continue
					}
					if res.Passed {
						row = append(row, gate.Candidate{Detection: j, Distance2: res.Distance2, Likelihood: res.Likelihood})
					}
				}
			}
			preds[i] = p
			cands.SetRow(i, row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Step 3: associate against the complete candidate set.
	res, err := m.strategy.Associate(cands)
	if err != nil {
		report.Warnings++
		monitoring.Warnf("Tracker", "scan %d: association fallback: %v", m.scans, err)
	}
	m.recordDebug(active, preds, cands, res, obs)

	// Step 4+5: update associated tracks, then apply lifecycle rules.
	for i, tr := range active {
		p := preds[i]
		out := Outcome{Track: tr.ID, Before: tr.Status, DetectionID: -1, Distance2: math.NaN()}
		if p.gateErrs > 0 {
			report.Warnings++
			monitoring.Warnf("Tracker", "track %d: %d detections could not be gated", tr.ID, p.gateErrs)
		}
		if !p.finite {
			report.Warnings++
			monitoring.Warnf("Tracker", "track %d: non-finite prediction, deleting", tr.ID)
			tr.Status = StatusDeleted
			tr.Misses++
			out.Event = EventDelete
			out.After = tr.Status
			tr.History = append(tr.History, tr.snapshot(-1))
			report.Outcomes = append(report.Outcomes, out)
			continue
		}

		tr.State, tr.Covariance, tr.Time = p.x, p.P, now
		hit := res.Hard[i] >= 0
		if hit || (res.Soft() && len(cands.Rows[i]) > 0) {
			if err := m.update(tr, i, cands, res, obs); err != nil {
				report.Warnings++
				monitoring.Warnf("Tracker", "track %d: update rejected, keeping prediction: %v", tr.ID, err)
				tr.State, tr.Covariance = p.x, p.P
				hit = false
				out.Event = EventRejected
			}
		}

		if hit {
			j := res.Hard[i]
			out.DetectionID = obs[j].DetectionID
			if c, ok := cands.Lookup(i, j); ok {
				out.Distance2 = c.Distance2
			}
			m.hit(tr, now)
			out.Event = EventUpdate
		} else {
			m.miss(tr)
			if out.Event == "" {
				out.Event = EventMiss
			}
			if tr.Status == StatusDeleted {
				out.Event = EventDelete
			}
		}
		m.clampVelocity(tr)
		out.After = tr.Status
		tr.History = append(tr.History, tr.snapshot(out.DetectionID))
		report.Outcomes = append(report.Outcomes, out)
	}

	m.compactActive()
	for _, out := range report.Outcomes {
		if out.After == StatusDeleted {
			report.Deleted = append(report.Deleted, out.Track)
		}
	}

	// Step 6: initiate tentative tracks from detections nobody claimed.
	for j, o := range obs {
		if res.Claimed[j] {
			continue
		}
		if len(m.active) >= m.cfg.MaxTracks {
			report.Warnings++
			monitoring.Warnf("Tracker", "scan %d: max_tracks %d reached, detection %d not initiated",
				m.scans, m.cfg.MaxTracks, o.DetectionID)
			continue
		}
		tr, err := m.initTrack(o, now)
		if err != nil {
			report.Warnings++
			monitoring.Warnf("Tracker", "detection %d: %v", o.DetectionID, err)
			continue
		}
		report.Spawned = append(report.Spawned, tr.ID)
		report.Outcomes = append(report.Outcomes, Outcome{
			Track:       tr.ID,
			Before:      "",
			After:       tr.Status,
			DetectionID: o.DetectionID,
			Distance2:   math.NaN(),
			Event:       EventInit,
		})
	}

	for i := range report.Outcomes {
		report.Outcomes[i].State = vecData(m.arena[report.Outcomes[i].Track-1].State)
	}
	m.scans++
	return report, nil
}

func (m *Manager) clampDt(dt float64) float64 {
	if dt < 0 {
		return 0
	}
	if m.cfg.MaxPredictDt > 0 && dt > m.cfg.MaxPredictDt {
		return m.cfg.MaxPredictDt
	}
	return dt
}

// update applies the association result for active track i.
func (m *Manager) update(tr *Track, i int, cands *gate.Candidates, res assoc.Result, obs []Observation) error {
	if res.Soft() {
		row := cands.Rows[i]
		weighted := make([]kalman.WeightedMeasurement, 0, len(row))
		for k, c := range row {
			weighted = append(weighted, kalman.WeightedMeasurement{
				Measurement: obs[c.Detection].Measurement,
				Beta:        res.Weights[i][k],
			})
		}
		x, P, err := m.filter.UpdateWeighted(tr.State, tr.Covariance, weighted, res.Beta0[i])
		if err != nil {
			return err
		}
		tr.State, tr.Covariance = x, P
		return nil
	}
	x, P, _, err := m.filter.Update(tr.State, tr.Covariance, obs[res.Hard[i]].Measurement)
	if err != nil {
		return err
	}
	tr.State, tr.Covariance = x, P
	return nil
}

func (m *Manager) hit(tr *Track, now float64) {
	tr.Hits++
	tr.Misses = 0
	tr.Updates++
	tr.LastUpdate = now
	switch tr.Status {
	case StatusTentative:
		if tr.Hits >= m.cfg.HitsToConfirm {
			tr.Status = StatusConfirmed
			tr.Confirmed = true
		}
	case StatusCoasting:
		tr.Status = StatusConfirmed
	}
}

func (m *Manager) miss(tr *Track) {
	tr.Misses++
	tr.Hits = 0
	if tr.Status == StatusConfirmed {
		tr.Status = StatusCoasting
	}
	if tr.Status == StatusCoasting && m.cfg.OcclusionCovInflation > 0 {
		// Widen the gate so the target is easier to reacquire.
		for _, k := range []int{motion.X, motion.Y, motion.Z} {
			tr.Covariance.SetSym(k, k, tr.Covariance.At(k, k)+m.cfg.OcclusionCovInflation)
		}
	}
	if tr.Misses >= m.cfg.missLimit(tr.Status) {
		tr.Status = StatusDeleted
	}
}

// clampVelocity scales vx, vy so the horizontal speed does not exceed
// MaxSpeed.
func (m *Manager) clampVelocity(tr *Track) {
	if m.cfg.MaxSpeed <= 0 || !tr.Layout.HasVelocity() {
		return
	}
	speed := tr.Speed()
	if speed > m.cfg.MaxSpeed {
		scale := m.cfg.MaxSpeed / speed
		tr.State.SetVec(motion.VX, tr.State.AtVec(motion.VX)*scale)
		tr.State.SetVec(motion.VY, tr.State.AtVec(motion.VY)*scale)
	}
}

// initTrack creates a tentative track at the observation's position. The
// initiating detection counts as the first hit.
func (m *Manager) initTrack(o Observation, now float64) (*Track, error) {
	if err := o.Measurement.Validate(); err != nil {
		return nil, err
	}
	n := m.cfg.Layout.Dim()
	x := mat.NewVecDense(n, nil)
	P := mat.NewSymDense(n, nil)
	for i := 0; i < kalman.MeasDim; i++ {
		x.SetVec(i, o.Measurement.Z.AtVec(i))
		for j := i; j < kalman.MeasDim; j++ {
			P.SetSym(i, j, o.Measurement.R.At(i, j))
		}
	}
	if m.cfg.Layout.HasVelocity() {
		P.SetSym(motion.VX, motion.VX, m.cfg.InitialVelocityVariance)
		P.SetSym(motion.VY, motion.VY, m.cfg.InitialVelocityVariance)
	}
	if m.cfg.Layout.HasAcceleration() {
		P.SetSym(motion.AX, motion.AX, m.cfg.InitialAccelerationVariance)
		P.SetSym(motion.AY, motion.AY, m.cfg.InitialAccelerationVariance)
	}
	if floored, ok := kalman.FloorEigen(P, m.cfg.MinVariance); ok {
		P = floored
	}

	tr := &Track{
		ID:         TrackID(len(m.arena) + 1),
		Layout:     m.cfg.Layout,
		Model:      m.cfg.Model,
		State:      x,
		Covariance: P,
		Status:     StatusTentative,
		Hits:       1,
		Updates:    1,
		Created:    now,
		LastUpdate: now,
		Time:       now,
	}
	if tr.Hits >= m.cfg.HitsToConfirm {
		tr.Status = StatusConfirmed
		tr.Confirmed = true
	}
	tr.History = append(tr.History, tr.snapshot(o.DetectionID))
	m.arena = append(m.arena, tr)
	m.active = append(m.active, tr.ID)
	return tr, nil
}

func (m *Manager) compactActive() {
	kept := m.active[:0]
	for _, id := range m.active {
		if m.arena[id-1].Status != StatusDeleted {
			kept = append(kept, id)
		}
	}
	m.active = kept
}

func (m *Manager) recordDebug(active []*Track, preds []prediction, cands *gate.Candidates, res assoc.Result, obs []Observation) {
	if m.DebugCollector == nil || !m.DebugCollector.IsEnabled() {
		return
	}
	for i, tr := range active {
		if preds[i].x != nil {
			m.DebugCollector.RecordPrediction(tr.ID, vecData(preds[i].x))
		}
		for _, c := range cands.Rows[i] {
			m.DebugCollector.RecordAssociation(obs[c.Detection].DetectionID, tr.ID, c.Distance2, res.Hard[i] == c.Detection)
		}
	}
}

// Active returns the IDs of non-deleted tracks in ascending order.
func (m *Manager) Active() []TrackID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]TrackID(nil), m.active...)
}

// Track returns a copy of track id, including deleted tracks.
func (m *Manager) Track(id TrackID) (TrackRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id == 0 || int(id) > len(m.arena) {
		return TrackRecord{}, false
	}
	return m.arena[id-1].record(), true
}

// Tracks returns every track ever created, deleted ones included, sorted by
// ID. Records are deep copies.
func (m *Manager) Tracks() []TrackRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TrackRecord, len(m.arena))
	for i, tr := range m.arena {
		out[i] = tr.record()
	}
	return out
}

// Counts returns the number of tracks in each status.
func (m *Manager) Counts() (tentative, confirmed, coasting, deleted int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tr := range m.arena {
		switch tr.Status {
		case StatusTentative:
			tentative++
		case StatusConfirmed:
			confirmed++
		case StatusCoasting:
			coasting++
		case StatusDeleted:
			deleted++
		}
	}
	return
}
