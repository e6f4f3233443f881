// Package testutil provides shared test utilities and fixtures: assertion
// shorthands, HTTP recorders, and synthetic targets and datasets for the
// tracking engine.
package testutil

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/radar-tracker/internal/tracking/kalman"
	"github.com/banshee-data/radar-tracker/internal/units"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// Measurement returns a Cartesian measurement with isotropic standard
// deviation sigma on each axis.
func Measurement(x, y, z, sigma float64) kalman.Measurement {
	v := sigma * sigma
	R := mat.NewSymDense(3, []float64{v, 0, 0, 0, v, 0, 0, 0, v})
	return kalman.NewMeasurement([3]float64{x, y, z}, R)
}

// Target is a synthetic constant-velocity target in east/north/up metres.
type Target struct {
	X, Y, Z float64
	VX, VY  float64
}

// At returns the target position at time t seconds.
func (tg Target) At(t float64) [3]float64 {
	return [3]float64{tg.X + tg.VX*t, tg.Y + tg.VY*t, tg.Z}
}

// Row is one dataset line: time, range, azimuth and elevation.
type Row struct {
	Time, Range, Azimuth, Elevation float64
}

// RowAt converts a Cartesian position observed at time t into a dataset row.
func RowAt(t float64, pos [3]float64) Row {
	r, az, el := units.CartesianToSpherical(pos[0], pos[1], pos[2])
	return Row{Time: t, Range: r, Azimuth: az, Elevation: el}
}

// ScanRows samples every target at times 0, dt, 2dt, … for n scans. Rows
// within a scan follow the order of targets.
func ScanRows(n int, dt float64, targets ...Target) []Row {
	rows := make([]Row, 0, n*len(targets))
	for k := 0; k < n; k++ {
		t := float64(k) * dt
		for _, tg := range targets {
			rows = append(rows, RowAt(t, tg.At(t)))
		}
	}
	return rows
}

// WriteDataset writes rows as a CSV detection log with a
// time,range,azimuth,elevation header into a temporary directory and
// returns its path.
func WriteDataset(t testing.TB, rows []Row) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "detections.csv")
	f, err := os.Create(path)
	AssertNoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	AssertNoError(t, w.Write([]string{"time", "range", "azimuth", "elevation"}))
	for _, r := range rows {
		AssertNoError(t, w.Write([]string{
			strconv.FormatFloat(r.Time, 'f', -1, 64),
			strconv.FormatFloat(r.Range, 'f', -1, 64),
			strconv.FormatFloat(r.Azimuth, 'f', -1, 64),
			strconv.FormatFloat(r.Elevation, 'f', -1, 64),
		}))
	}
	w.Flush()
	AssertNoError(t, w.Error())
	return path
}
