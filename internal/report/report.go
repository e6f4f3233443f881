// Package report writes a tracking run's results as CSV files: a per-scan
// detailed log and a per-track summary.
package report

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/radar-tracker/internal/monitoring"
	"github.com/banshee-data/radar-tracker/internal/scan"
	"github.com/banshee-data/radar-tracker/internal/tracking"
	"github.com/banshee-data/radar-tracker/internal/tracking/motion"
	"github.com/banshee-data/radar-tracker/internal/units"
)

// Output file names inside the report directory.
const (
	DetailedLogFile  = "detailed_log.csv"
	TrackSummaryFile = "track_summary.csv"
)

// DetailedLogHeader is the column layout of detailed_log.csv.
var DetailedLogHeader = []string{
	"scan", "time", "track_id", "status_before", "status_after", "detection_id",
	"distance2", "x", "y", "z", "vx", "vy", "event",
}

// TrackSummaryHeader is the column layout of track_summary.csv.
var TrackSummaryHeader = []string{
	"track_id", "model", "layout", "status", "confirmed", "first_time", "last_time",
	"updates", "misses_total", "length_m", "mean_speed_mps", "final_x", "final_y", "final_z",
}

// Writer is a scan.ScanSink that writes DetailedLogFile while the run
// progresses and TrackSummaryFile when it ends.
type Writer struct {
	Dir string
	// SpeedUnits adds a mean_speed_<units> summary column when not mps.
	SpeedUnits string

	detailed     *csvWriter
	layout       motion.Layout
	detailedRows uint64
	summaryRows  uint64
}

// NewWriter returns a Writer for dir. The directory is created on BeginRun.
func NewWriter(dir, speedUnits string) *Writer {
	return &Writer{Dir: dir, SpeedUnits: speedUnits}
}

// BeginRun creates the output directory and opens the detailed log.
func (w *Writer) BeginRun(info scan.RunInfo) error {
	if w.SpeedUnits != "" && !units.IsValid(w.SpeedUnits) {
		return fmt.Errorf("invalid speed units %q, want one of %s", w.SpeedUnits, units.GetValidUnitsString())
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	cw, err := newCSVWriter(filepath.Join(w.Dir, DetailedLogFile), DetailedLogHeader)
	if err != nil {
		return err
	}
	w.detailed = cw
	w.layout = info.Config.Layout
	return nil
}

// WriteScan appends one row per track outcome.
func (w *Writer) WriteScan(sc scan.Scan, r *tracking.ScanReport) error {
	if w.detailed == nil {
		return errors.New("report writer: WriteScan before BeginRun")
	}
	for _, o := range r.Outcomes {
		if err := w.detailed.WriteRow(detailedRow(r, o, w.layout)); err != nil {
			return fmt.Errorf("%s: %w", DetailedLogFile, err)
		}
	}
	return w.detailed.Flush()
}

// EndRun closes the detailed log and writes the track summary.
func (w *Writer) EndRun(res *scan.Result) error {
	if err := w.Close(); err != nil {
		return err
	}
	header := TrackSummaryHeader
	if w.converting() {
		header = append(append([]string(nil), header...), "mean_speed_"+w.SpeedUnits)
	}
	cw, err := newCSVWriter(filepath.Join(w.Dir, TrackSummaryFile), header)
	if err != nil {
		return err
	}
	for _, rec := range res.Tracks {
		row := summaryRow(rec)
		if w.converting() {
			row = append(row, formatFloat(units.ConvertSpeed(rec.Summarize().MeanSpeed, w.SpeedUnits)))
		}
		if err := cw.WriteRow(row); err != nil {
			cw.Close()
			return fmt.Errorf("%s: %w", TrackSummaryFile, err)
		}
	}
	w.summaryRows = cw.Rows()
	if err := cw.Close(); err != nil {
		return err
	}
	monitoring.Logf("report: %d detailed rows and %d track summaries written to %s",
		w.detailedRows, w.summaryRows, w.Dir)
	return nil
}

// Rows returns the number of data rows written to each file, excluding
// headers. The detailed count is final once the detailed log is closed.
func (w *Writer) Rows() (detailed, summary uint64) {
	return w.detailedRows, w.summaryRows
}

// Close releases the detailed log if it is still open. It is safe to call
// more than once.
func (w *Writer) Close() error {
	if w.detailed == nil {
		return nil
	}
	w.detailedRows = w.detailed.Rows()
	err := w.detailed.Close()
	w.detailed = nil
	return err
}

func (w *Writer) converting() bool {
	return w.SpeedUnits != "" && w.SpeedUnits != units.MPS
}

func detailedRow(r *tracking.ScanReport, o tracking.Outcome, layout motion.Layout) []string {
	det, d2 := "", ""
	if o.DetectionID >= 0 {
		det = strconv.Itoa(o.DetectionID)
	}
	if !math.IsNaN(o.Distance2) {
		d2 = formatFloat(o.Distance2)
	}
	vx, vy := "", ""
	if layout.HasVelocity() && len(o.State) > motion.VY {
		vx, vy = formatFloat(o.State[motion.VX]), formatFloat(o.State[motion.VY])
	}
	return []string{
		strconv.Itoa(r.Index),
		formatFloat(r.Time),
		strconv.FormatUint(uint64(o.Track), 10),
		string(o.Before),
		string(o.After),
		det,
		d2,
		formatFloat(o.State[motion.X]),
		formatFloat(o.State[motion.Y]),
		formatFloat(o.State[motion.Z]),
		vx,
		vy,
		string(o.Event),
	}
}

func summaryRow(rec tracking.TrackRecord) []string {
	s := rec.Summarize()
	return []string{
		strconv.FormatUint(uint64(rec.ID), 10),
		rec.Model.String(),
		rec.Layout.String(),
		string(rec.FinalStatus),
		strconv.FormatBool(rec.Confirmed),
		formatFloat(s.FirstTime),
		formatFloat(s.LastTime),
		strconv.Itoa(s.Updates),
		strconv.Itoa(s.MissesTotal),
		formatFloat(s.Length),
		formatFloat(s.MeanSpeed),
		formatFloat(s.Final[0]),
		formatFloat(s.Final[1]),
		formatFloat(s.Final[2]),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
