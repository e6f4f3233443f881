package db

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/radar-tracker/internal/config"
	"github.com/banshee-data/radar-tracker/internal/monitoring"
	"github.com/banshee-data/radar-tracker/internal/scan"
	"github.com/banshee-data/radar-tracker/internal/testutil"
	"github.com/banshee-data/radar-tracker/internal/timeutil"
	"github.com/banshee-data/radar-tracker/internal/tracking"
)

func init() {
	monitoring.SetLogger(nil)
}

func TestNewDB_CreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"runs", "tracks", "track_history", "scan_log"} {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s", table)
	}

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.MigrateUp())
}

func TestMigrateDownAndUp(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.MigrateDown())

	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name='runs'`).Scan(&n))
	assert.Zero(t, n)

	require.NoError(t, db.MigrateUp())
}

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	var out bytes.Buffer

	require.NoError(t, RunMigrateCommand([]string{"up"}, path, &out))
	assert.Contains(t, out.String(), "Current version: 1")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"status"}, path, &out))
	assert.Contains(t, out.String(), "dirty: false")

	assert.Error(t, RunMigrateCommand(nil, path, &out))
	assert.Error(t, RunMigrateCommand([]string{"sideways"}, path, &out))
	assert.Error(t, RunMigrateCommand([]string{"force"}, path, &out))
}

func runIntoStore(t *testing.T, db *DB) *scan.Result {
	t.Helper()
	rows := testutil.ScanRows(6, 1,
		testutil.Target{X: -250, Y: 500, Z: 30, VX: 4},
		testutil.Target{X: 250, Y: 500, Z: 30, VY: -4},
	)
	dets, err := scan.ReadDetectionsFile(testutil.WriteDataset(t, rows))
	require.NoError(t, err)

	tuning := config.EmptyTuningConfig()
	js, err := tuning.ToJSON()
	require.NoError(t, err)
	p := &scan.Processor{
		Config: tracking.DefaultConfig(),
		Bounds: scan.BoundsFromTuning(tuning),
		Noise:  scan.NoiseFromTuning(tuning),
		Source: "two-targets.csv",
		Tuning: js,
		Clock:  timeutil.NewMockClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)),
		Sinks:  []scan.ScanSink{NewStore(db)},
	}
	res, err := p.Run(context.Background(), dets)
	require.NoError(t, err)
	return res
}

func TestStore_RecordsRun(t *testing.T) {
	db := setupTestDB(t)
	res := runIntoStore(t, db)

	runs, err := db.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, res.RunID, r.ID)
	assert.Equal(t, "two-targets.csv", r.Source)
	assert.Equal(t, "5-state", r.Layout)
	assert.Equal(t, "CV", r.Model)
	assert.Equal(t, "2026-05-01T09:00:00Z", r.StartedAt)
	assert.NotEmpty(t, r.FinishedAt)
	assert.NotEmpty(t, r.ConfigJSON)
	assert.Equal(t, 6, r.Scans)
	assert.Equal(t, 12, r.Detections)
	assert.True(t, r.Complete)

	tracks, err := db.RunTracks(res.RunID)
	require.NoError(t, err)
	require.Len(t, tracks, len(res.Tracks))
	for i, tr := range tracks {
		rec := res.Tracks[i]
		sum := rec.Summarize()
		assert.Equal(t, int64(rec.ID), tr.TrackID)
		assert.Equal(t, string(rec.FinalStatus), tr.Status)
		assert.Equal(t, rec.Confirmed, tr.Confirmed)
		assert.Equal(t, sum.Updates, tr.Updates)
		assert.InDelta(t, sum.MeanSpeed, tr.MeanSpeedMPS, 1e-9)

		hist, err := db.TrackHistory(res.RunID, tr.TrackID)
		require.NoError(t, err)
		require.Len(t, hist, len(rec.History))
		for k, h := range hist {
			assert.Equal(t, rec.History[k].DetectionID, h.DetectionID)
			assert.Equal(t, rec.History[k].State, h.State)
			assert.Equal(t, rec.History[k].Covariance, h.Covariance)
		}
	}

	n, err := db.ScanLogCount(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestStore_NullDistanceOnInit(t *testing.T) {
	db := setupTestDB(t)
	res := runIntoStore(t, db)

	var nulls int
	err := db.QueryRow(`SELECT COUNT(*) FROM scan_log WHERE run_id = ? AND event = 'init' AND distance2 IS NULL`, res.RunID).Scan(&nulls)
	require.NoError(t, err)
	assert.Equal(t, 2, nulls)
}

func TestStore_RequiresBeginRun(t *testing.T) {
	db := setupTestDB(t)
	s := NewStore(db)
	assert.Error(t, s.WriteScan(scan.Scan{}, &tracking.ScanReport{}))
	assert.Error(t, s.EndRun(&scan.Result{}))
}

func TestNullHelpers(t *testing.T) {
	assert.False(t, nullInt(-1).Valid)
	assert.True(t, nullInt(0).Valid)
	assert.False(t, nullFloat(math.NaN()).Valid)
	assert.True(t, nullFloat(2.5).Valid)
}

func TestAttachAdminRoutes(t *testing.T) {
	db := setupTestDB(t)
	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	req := httptest.NewRequest("GET", "/debug/backup", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}
