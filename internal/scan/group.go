package scan

import "sort"

// Scan is the set of detections processed together at one time.
type Scan struct {
	Index      int
	Time       float64 // time of the scan's first detection
	Detections []Detection
}

// GroupScans orders detections by time, ties broken by input order, and
// splits them into scans. A detection joins the current scan when its time
// is within window seconds of the scan's first detection; window 0 groups
// identical timestamps only. dets is not modified.
func GroupScans(dets []Detection, window float64) []Scan {
	if len(dets) == 0 {
		return nil
	}
	sorted := append([]Detection(nil), dets...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var scans []Scan
	for _, d := range sorted {
		if n := len(scans); n > 0 && d.Time-scans[n-1].Time <= window {
			scans[n-1].Detections = append(scans[n-1].Detections, d)
			continue
		}
		scans = append(scans, Scan{Index: len(scans), Time: d.Time, Detections: []Detection{d}})
	}
	return scans
}
