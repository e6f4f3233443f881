package tracking

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/radar-tracker/internal/tracking/motion"
)

// TrackID identifies a track. IDs are assigned sequentially from 1 and are
// never reused within a Manager.
type TrackID uint64

// Status represents the lifecycle state of a track.
type Status string

const (
	StatusTentative Status = "tentative" // new track, needs confirmation
	StatusConfirmed Status = "confirmed" // associated on enough consecutive scans
	StatusCoasting  Status = "coasting"  // confirmed but missed; predicted only
	StatusDeleted   Status = "deleted"   // removed from the active set
)

// HistoryEntry is one scan's estimate for a track.
type HistoryEntry struct {
	Time        float64
	State       []float64
	Covariance  []float64 // row-major, Dim×Dim
	DetectionID int       // -1 when no detection was associated
	Status      Status
}

// Track is the Manager's live record for one target. It is owned by the
// Manager and must not be mutated by callers.
type Track struct {
	ID     TrackID
	Layout motion.Layout
	Model  motion.Kind

	State      *mat.VecDense
	Covariance *mat.SymDense
	Status     Status

	Hits      int // consecutive associations
	Misses    int // consecutive misses
	Updates   int // total associations, including initiation
	Confirmed bool

	Created    float64
	LastUpdate float64 // time of the most recent association
	Time       float64 // time the state is valid for

	History []HistoryEntry
}

// Position returns the estimated [x y z].
func (t *Track) Position() [3]float64 {
	return [3]float64{t.State.AtVec(motion.X), t.State.AtVec(motion.Y), t.State.AtVec(motion.Z)}
}

// Speed returns the horizontal speed estimate, or 0 for a position-only layout.
func (t *Track) Speed() float64 {
	if !t.Layout.HasVelocity() {
		return 0
	}
	return math.Hypot(t.State.AtVec(motion.VX), t.State.AtVec(motion.VY))
}

func (t *Track) snapshot(detectionID int) HistoryEntry {
	n := t.Layout.Dim()
	cov := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cov[i*n+j] = t.Covariance.At(i, j)
		}
	}
	return HistoryEntry{
		Time:        t.Time,
		State:       vecData(t.State),
		Covariance:  cov,
		DetectionID: detectionID,
		Status:      t.Status,
	}
}

// TrackRecord is the output form of a track: its identity, final status and
// full history.
type TrackRecord struct {
	ID          TrackID
	Layout      motion.Layout
	Model       motion.Kind
	FinalStatus Status
	Confirmed   bool // ever reached Confirmed
	Updates     int
	History     []HistoryEntry
}

func (t *Track) record() TrackRecord {
	hist := make([]HistoryEntry, len(t.History))
	for i, h := range t.History {
		hist[i] = HistoryEntry{
			Time:        h.Time,
			State:       append([]float64(nil), h.State...),
			Covariance:  append([]float64(nil), h.Covariance...),
			DetectionID: h.DetectionID,
			Status:      h.Status,
		}
	}
	return TrackRecord{
		ID:          t.ID,
		Layout:      t.Layout,
		Model:       t.Model,
		FinalStatus: t.Status,
		Confirmed:   t.Confirmed,
		Updates:     t.Updates,
		History:     hist,
	}
}

func vecData(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
