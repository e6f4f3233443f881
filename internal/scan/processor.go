package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/radar-tracker/internal/monitoring"
	"github.com/banshee-data/radar-tracker/internal/timeutil"
	"github.com/banshee-data/radar-tracker/internal/tracking"
)

// RunInfo describes a run to its sinks before the first scan.
type RunInfo struct {
	ID      string
	Started time.Time
	Source  string // dataset path or name, informational
	Config  tracking.Config
	Tuning  string // JSON of the tuning file the config was built from, if any
}

// ScanSink receives a run's output as it is produced. Sink errors abort the
// run.
type ScanSink interface {
	BeginRun(info RunInfo) error
	WriteScan(scan Scan, report *tracking.ScanReport) error
	EndRun(res *Result) error
}

// Result is the output of one Run.
type Result struct {
	RunID      string
	Tracks     []tracking.TrackRecord // ascending ID
	Scans      int                    // scans processed
	Detections int                    // detections accepted
	Dropped    int                    // detections failing validation
	Warnings   int                    // per-track warnings across all scans
	Complete   bool                   // false when the run was cancelled
	Started    time.Time
	Finished   time.Time
}

// Processor runs the track manager over a detection dataset.
type Processor struct {
	Config tracking.Config
	Bounds Bounds
	Noise  Noise
	Window float64 // scan grouping window, seconds

	Source string
	Tuning string

	Clock timeutil.Clock
	Sinks []ScanSink

	// DebugCollector is installed on the run's Manager when set.
	DebugCollector tracking.DebugCollector
}

// Run validates dets, groups them into scans and processes the scans in
// time order. Configuration errors are returned before any scan runs. On
// cancellation the partial result is returned together with ctx.Err().
func (p *Processor) Run(ctx context.Context, dets []Detection) (*Result, error) {
	mgr, err := tracking.NewManager(p.Config)
	if err != nil {
		return nil, err
	}
	mgr.DebugCollector = p.DebugCollector

	clock := p.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	res := &Result{RunID: uuid.NewString(), Started: clock.Now()}

	valid := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if err := d.Validate(p.Bounds); err != nil {
			monitoring.Warnf("Scan", "dropping detection: %v", err)
			res.Dropped++
			continue
		}
		valid = append(valid, d)
	}
	res.Detections = len(valid)

	info := RunInfo{ID: res.RunID, Started: res.Started, Source: p.Source, Config: p.Config, Tuning: p.Tuning}
	for _, s := range p.Sinks {
		if err := s.BeginRun(info); err != nil {
			return nil, fmt.Errorf("begin run: %w", err)
		}
	}

	var runErr error
	for _, sc := range GroupScans(valid, p.Window) {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		obs := make([]tracking.Observation, len(sc.Detections))
		for i, d := range sc.Detections {
			obs[i] = tracking.Observation{DetectionID: d.ID, Measurement: d.Measurement(p.Noise)}
		}
		report, err := mgr.ProcessScan(ctx, sc.Time, obs)
		if err != nil {
			runErr = err
			break
		}
		res.Scans++
		res.Warnings += report.Warnings
		for _, s := range p.Sinks {
			if err := s.WriteScan(sc, report); err != nil {
				return nil, fmt.Errorf("scan %d: %w", sc.Index, err)
			}
		}
	}

	res.Tracks = mgr.Tracks()
	res.Complete = runErr == nil
	res.Finished = clock.Now()
	for _, s := range p.Sinks {
		if err := s.EndRun(res); err != nil {
			return nil, fmt.Errorf("end run: %w", err)
		}
	}
	if runErr != nil {
		return res, fmt.Errorf("run %s stopped after %d scans: %w", res.RunID, res.Scans, runErr)
	}
	return res, nil
}
