package tracking

import (
	"math"

	"github.com/banshee-data/radar-tracker/internal/tracking/motion"
)

// Summary condenses a track's history into per-track statistics.
type Summary struct {
	FirstTime   float64
	LastTime    float64
	Updates     int
	MissesTotal int     // history entries without an associated detection
	Length      float64 // path length through the estimated positions, metres
	MeanSpeed   float64 // Length over the track's duration, m/s
	Final       [3]float64
}

// Summarize computes the Summary of r. A record with no history yields the
// zero Summary.
func (r TrackRecord) Summarize() Summary {
	s := Summary{Updates: r.Updates}
	if len(r.History) == 0 {
		return s
	}
	first, last := r.History[0], r.History[len(r.History)-1]
	s.FirstTime, s.LastTime = first.Time, last.Time

	var prev [3]float64
	for i, h := range r.History {
		if h.DetectionID < 0 {
			s.MissesTotal++
		}
		p := [3]float64{h.State[motion.X], h.State[motion.Y], h.State[motion.Z]}
		if i > 0 {
			s.Length += math.Sqrt((p[0]-prev[0])*(p[0]-prev[0]) + (p[1]-prev[1])*(p[1]-prev[1]) + (p[2]-prev[2])*(p[2]-prev[2]))
		}
		prev = p
	}
	s.Final = prev
	if d := s.LastTime - s.FirstTime; d > 0 {
		s.MeanSpeed = s.Length / d
	}
	return s
}
