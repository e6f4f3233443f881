package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/radar-tracker/internal/scan"
	"github.com/banshee-data/radar-tracker/internal/tracking"
)

// Store is a scan.ScanSink that records a run in the results database.
type Store struct {
	db    *DB
	runID string
}

// NewStore returns a sink writing to db.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// BeginRun inserts the runs row.
func (s *Store) BeginRun(info scan.RunInfo) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, started_at, source, layout, model, association, config_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Started.UTC().Format(time.RFC3339Nano), info.Source,
		info.Config.Layout.String(), info.Config.Model.String(), info.Config.Association.String(),
		info.Tuning,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	s.runID = info.ID
	return nil
}

// WriteScan records every track outcome of one scan in a single transaction.
func (s *Store) WriteScan(_ scan.Scan, r *tracking.ScanReport) error {
	if s.runID == "" {
		return errors.New("store: WriteScan before BeginRun")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO scan_log (
			run_id, scan, time, track_id, status_before, status_after,
			detection_id, distance2, x, y, z, event
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range r.Outcomes {
		if _, err := stmt.Exec(
			s.runID, r.Index, r.Time, int64(o.Track), string(o.Before), string(o.After),
			nullInt(o.DetectionID), nullFloat(o.Distance2),
			o.State[0], o.State[1], o.State[2], string(o.Event),
		); err != nil {
			return fmt.Errorf("insert scan_log scan %d track %d: %w", r.Index, o.Track, err)
		}
	}
	return tx.Commit()
}

// EndRun writes the track summaries and histories and closes the runs row.
func (s *Store) EndRun(res *scan.Result) error {
	if s.runID == "" {
		return errors.New("store: EndRun before BeginRun")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range res.Tracks {
		if err := insertTrack(tx, s.runID, rec); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		`UPDATE runs SET finished_at = ?, scans = ?, detections = ?, dropped = ?, warnings = ?, complete = ?
		WHERE run_id = ?`,
		res.Finished.UTC().Format(time.RFC3339Nano), res.Scans, res.Detections, res.Dropped,
		res.Warnings, res.Complete, s.runID,
	); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return tx.Commit()
}

func insertTrack(tx *sql.Tx, runID string, rec tracking.TrackRecord) error {
	sum := rec.Summarize()
	if _, err := tx.Exec(
		`INSERT INTO tracks (
			run_id, track_id, model, layout, status, confirmed, first_time, last_time,
			updates, misses_total, length_m, mean_speed_mps, final_x, final_y, final_z
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, int64(rec.ID), rec.Model.String(), rec.Layout.String(), string(rec.FinalStatus),
		rec.Confirmed, sum.FirstTime, sum.LastTime, sum.Updates, sum.MissesTotal,
		sum.Length, sum.MeanSpeed, sum.Final[0], sum.Final[1], sum.Final[2],
	); err != nil {
		return fmt.Errorf("insert track %d: %w", rec.ID, err)
	}

	for seq, h := range rec.History {
		state, err := json.Marshal(h.State)
		if err != nil {
			return err
		}
		cov, err := json.Marshal(h.Covariance)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO track_history (run_id, track_id, seq, time, status, detection_id, state_json, covariance_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, int64(rec.ID), seq, h.Time, string(h.Status), nullInt(h.DetectionID),
			string(state), string(cov),
		); err != nil {
			return fmt.Errorf("insert history track %d seq %d: %w", rec.ID, seq, err)
		}
	}
	return nil
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v >= 0}
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}
