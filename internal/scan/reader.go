package scan

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrInput marks a malformed or unreadable detection dataset. Processing
// does not start when reading fails.
var ErrInput = errors.New("input error")

// ReaderOptions control dataset parsing.
type ReaderOptions struct {
	// Comma is the field delimiter. Zero detects tab, semicolon or comma
	// from the header line.
	Comma rune
}

type column int

const (
	colTime column = iota
	colRange
	colAzimuth
	colElevation
	colSigmaRange
	colSigmaAzimuth
	colSigmaElevation
	numColumns
)

// headerAliases maps lower-cased header names to columns.
var headerAliases = map[string]column{
	"time": colTime, "t": colTime, "mt": colTime, "timestamp": colTime, "time_s": colTime,
	"range": colRange, "r": colRange, "mr": colRange, "range_m": colRange,
	"azimuth": colAzimuth, "az": colAzimuth, "ma": colAzimuth, "azimuth_deg": colAzimuth,
	"elevation": colElevation, "el": colElevation, "me": colElevation, "elevation_deg": colElevation,
	"sigma_range": colSigmaRange, "sigma_r": colSigmaRange,
	"sigma_azimuth": colSigmaAzimuth, "sigma_az": colSigmaAzimuth,
	"sigma_elevation": colSigmaElevation, "sigma_el": colSigmaElevation,
}

// timestampNanos is the nanosecond-timestamp header written by sensor
// loggers; values are converted to seconds.
const timestampNanos = "timestamp_ns"

var requiredColumns = []struct {
	col  column
	name string
}{
	{colTime, "time"},
	{colRange, "range"},
	{colAzimuth, "azimuth"},
	{colElevation, "elevation"},
}

// ReadDetectionsFile reads a delimited detection log from path.
func ReadDetectionsFile(path string) ([]Detection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInput, err)
	}
	defer f.Close()

	dets, err := ReadDetections(f, ReaderOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dets, nil
}

// ReadDetections parses a delimited detection log with a header row.
// Detection IDs follow row order. Unknown columns are ignored.
func ReadDetections(r io.Reader, opts ReaderOptions) ([]Detection, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInput, err)
	}
	if strings.TrimSpace(header) == "" {
		return nil, fmt.Errorf("%w: empty dataset", ErrInput)
	}

	cr := csv.NewReader(io.MultiReader(strings.NewReader(header), br))
	cr.Comma = opts.Comma
	if cr.Comma == 0 {
		cr.Comma = detectComma(header)
	}
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	names, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInput, err)
	}
	index, timeDiv, err := mapHeader(names)
	if err != nil {
		return nil, err
	}

	var dets []Detection
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInput, err)
		}

		var vals [numColumns]float64
		for c := column(0); c < numColumns; c++ {
			i := index[c]
			if i < 0 {
				continue
			}
			field := strings.TrimSpace(rec[i])
			if field == "" && c >= colSigmaRange {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				line, _ := cr.FieldPos(i)
				return nil, fmt.Errorf("%w: line %d column %q: %v", ErrInput, line, names[i], err)
			}
			vals[c] = v
		}
		dets = append(dets, Detection{
			ID:             len(dets),
			Time:           vals[colTime] / timeDiv,
			Range:          vals[colRange],
			Azimuth:        vals[colAzimuth],
			Elevation:      vals[colElevation],
			SigmaRange:     vals[colSigmaRange],
			SigmaAzimuth:   vals[colSigmaAzimuth],
			SigmaElevation: vals[colSigmaElevation],
		})
	}

	if len(dets) == 0 {
		return nil, fmt.Errorf("%w: dataset has no detections", ErrInput)
	}
	return dets, nil
}

func detectComma(header string) rune {
	switch {
	case strings.ContainsRune(header, '\t'):
		return '\t'
	case strings.ContainsRune(header, ';'):
		return ';'
	}
	return ','
}

// mapHeader returns, for each column, its field index or -1.
func mapHeader(names []string) ([numColumns]int, float64, error) {
	var index [numColumns]int
	for i := range index {
		index[i] = -1
	}
	timeDiv := 1.0
	for i, raw := range names {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		if name == timestampNanos {
			name = "time"
			timeDiv = 1e9
		}
		col, ok := headerAliases[name]
		if !ok || index[col] >= 0 {
			continue
		}
		index[col] = i
	}
	for _, req := range requiredColumns {
		if index[req.col] < 0 {
			return index, 0, fmt.Errorf("%w: missing required column %q", ErrInput, req.name)
		}
	}
	return index, timeDiv, nil
}
