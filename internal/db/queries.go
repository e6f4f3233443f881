package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Run is one row of the runs table.
type Run struct {
	ID          string
	StartedAt   string
	FinishedAt  string
	Source      string
	Layout      string
	Model       string
	Association string
	ConfigJSON  string
	Scans       int
	Detections  int
	Dropped     int
	Warnings    int
	Complete    bool
}

// TrackRow is one row of the tracks table.
type TrackRow struct {
	TrackID      int64
	Model        string
	Layout       string
	Status       string
	Confirmed    bool
	FirstTime    float64
	LastTime     float64
	Updates      int
	MissesTotal  int
	LengthM      float64
	MeanSpeedMPS float64
	Final        [3]float64
}

// HistoryRow is one decoded track_history entry. DetectionID is -1 when the
// scan had no associated detection.
type HistoryRow struct {
	Seq         int
	Time        float64
	Status      string
	DetectionID int
	State       []float64
	Covariance  []float64
}

// Runs returns all runs, most recent first.
func (db *DB) Runs() ([]Run, error) {
	rows, err := db.Query(`SELECT run_id, started_at, COALESCE(finished_at, ''), source, layout, model,
			association, config_json, scans, detections, dropped, warnings, complete
		FROM runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Source, &r.Layout, &r.Model,
			&r.Association, &r.ConfigJSON, &r.Scans, &r.Detections, &r.Dropped, &r.Warnings, &r.Complete); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunTracks returns the track summaries of a run by ascending track ID.
func (db *DB) RunTracks(runID string) ([]TrackRow, error) {
	rows, err := db.Query(`SELECT track_id, model, layout, status, confirmed, first_time, last_time,
			updates, misses_total, length_m, mean_speed_mps, final_x, final_y, final_z
		FROM tracks WHERE run_id = ? ORDER BY track_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackRow
	for rows.Next() {
		var t TrackRow
		if err := rows.Scan(&t.TrackID, &t.Model, &t.Layout, &t.Status, &t.Confirmed, &t.FirstTime,
			&t.LastTime, &t.Updates, &t.MissesTotal, &t.LengthM, &t.MeanSpeedMPS,
			&t.Final[0], &t.Final[1], &t.Final[2]); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TrackHistory returns the decoded history of one track in scan order.
func (db *DB) TrackHistory(runID string, trackID int64) ([]HistoryRow, error) {
	rows, err := db.Query(`SELECT seq, time, status, detection_id, state_json, covariance_json
		FROM track_history WHERE run_id = ? AND track_id = ? ORDER BY seq`, runID, trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var (
			h           HistoryRow
			det         sql.NullInt64
			state, covs string
		)
		if err := rows.Scan(&h.Seq, &h.Time, &h.Status, &det, &state, &covs); err != nil {
			return nil, err
		}
		h.DetectionID = -1
		if det.Valid {
			h.DetectionID = int(det.Int64)
		}
		if err := json.Unmarshal([]byte(state), &h.State); err != nil {
			return nil, fmt.Errorf("track %d seq %d state: %w", trackID, h.Seq, err)
		}
		if err := json.Unmarshal([]byte(covs), &h.Covariance); err != nil {
			return nil, fmt.Errorf("track %d seq %d covariance: %w", trackID, h.Seq, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ScanLogCount returns the number of scan_log rows recorded for a run.
func (db *DB) ScanLogCount(runID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM scan_log WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
