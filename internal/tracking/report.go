package tracking

// Event names what happened to a track during one scan.
type Event string

const (
	EventInit     Event = "init"     // created from an unclaimed detection
	EventUpdate   Event = "update"   // associated and updated
	EventMiss     Event = "miss"     // no association; predicted only
	EventRejected Event = "rejected" // associated but the update failed; counted as a miss
	EventDelete   Event = "delete"   // removed from the active set this scan
)

// Outcome is one track's result for one scan.
type Outcome struct {
	Track       TrackID
	Before      Status // empty for a track created this scan
	After       Status
	DetectionID int     // -1 when none
	Distance2   float64 // NaN when no detection was associated
	Event       Event
	State       []float64 // estimate after the scan
}

// ScanReport summarises one ProcessScan call.
type ScanReport struct {
	Index      int
	Time       float64
	Detections int
	Outcomes   []Outcome // existing tracks by ascending ID, then new tracks
	Spawned    []TrackID
	Deleted    []TrackID
	Warnings   int
}
