package testutil

import (
	"errors"
	"math"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/banshee-data/radar-tracker/internal/units"
)

func TestAssertHelpers_NoFailure(t *testing.T) {
	fakeT := &testing.T{}
	AssertStatusCode(fakeT, http.StatusOK, http.StatusOK)
	AssertNoError(fakeT, nil)
	AssertError(fakeT, errors.New("something wrong"))
	if fakeT.Failed() {
		t.Error("expected no failure")
	}
}

func TestNewTestRequest(t *testing.T) {
	req := NewTestRequest(http.MethodPost, "/debug/tailsql/")
	if req.Method != http.MethodPost || req.URL.Path != "/debug/tailsql/" {
		t.Errorf("got %s %s", req.Method, req.URL.Path)
	}
	w := NewTestRecorder()
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Errorf("recorder not clean: %d %d", w.Code, w.Body.Len())
	}
}

func TestMeasurement(t *testing.T) {
	m := Measurement(1, 2, 3, 0.5)
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if m.R.At(1, 1) != 0.25 || m.R.At(0, 1) != 0 {
		t.Errorf("unexpected covariance %v", m.R)
	}
}

func TestRowAtRoundTrip(t *testing.T) {
	pos := Target{X: 100, Y: 200, Z: 50, VX: 3, VY: -1}.At(2)
	row := RowAt(2, pos)
	x, y, z := units.SphericalToCartesian(row.Range, row.Azimuth, row.Elevation)
	for i, got := range []float64{x, y, z} {
		if math.Abs(got-pos[i]) > 1e-9 {
			t.Errorf("component %d: got %v want %v", i, got, pos[i])
		}
	}
}

func TestWriteDataset(t *testing.T) {
	rows := ScanRows(2, 1, Target{X: 10, Y: 10, Z: 5}, Target{X: -10, Y: 10, Z: 5})
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	path := WriteDataset(t, rows)
	data, err := os.ReadFile(path)
	AssertNoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 || lines[0] != "time,range,azimuth,elevation" {
		t.Errorf("unexpected dataset:\n%s", data)
	}
}
