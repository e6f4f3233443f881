// Package api serves stored tracking runs as JSON.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/radar-tracker/internal/db"
	"github.com/banshee-data/radar-tracker/internal/monitoring"
	"github.com/banshee-data/radar-tracker/internal/units"
)

type Server struct {
	db    *db.DB
	units string
}

// NewServer returns a Server reading from results. Speeds are reported in
// speedUnits (see units.ValidUnits); an invalid value falls back to m/s.
func NewServer(results *db.DB, speedUnits string) *Server {
	if !units.IsValid(speedUnits) {
		speedUnits = units.MPS
	}
	return &Server{db: results, units: speedUnits}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{run}/tracks", s.listTracks)
	mux.HandleFunc("GET /api/runs/{run}/tracks/{track}", s.showTrackHistory)
	mux.HandleFunc("GET /api/config", s.showConfig)
	return mux
}

// LoggingMiddleware logs each request's method, path, status and latency.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf("[api] %d %s %s %.3fms", lrw.statusCode, r.Method, r.RequestURI,
			float64(time.Since(start).Nanoseconds())/1e6)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// TrackAPI is the JSON form of a track summary.
type TrackAPI struct {
	TrackID     int64      `json:"track_id"`
	Model       string     `json:"model"`
	Layout      string     `json:"layout"`
	Status      string     `json:"status"`
	Confirmed   bool       `json:"confirmed"`
	FirstTime   float64    `json:"first_time"`
	LastTime    float64    `json:"last_time"`
	Updates     int        `json:"updates"`
	MissesTotal int        `json:"misses_total"`
	LengthM     float64    `json:"length_m"`
	MeanSpeed   float64    `json:"mean_speed"`
	Units       string     `json:"units"`
	Final       [3]float64 `json:"final_position"`
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("[api] failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.db.Runs()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.writeJSON(w, runs)
}

func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.RunTracks(r.PathValue("run"))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve tracks: %v", err))
		return
	}
	if len(rows) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no tracks for run")
		return
	}
	out := make([]TrackAPI, len(rows))
	for i, t := range rows {
		out[i] = TrackAPI{
			TrackID:     t.TrackID,
			Model:       t.Model,
			Layout:      t.Layout,
			Status:      t.Status,
			Confirmed:   t.Confirmed,
			FirstTime:   t.FirstTime,
			LastTime:    t.LastTime,
			Updates:     t.Updates,
			MissesTotal: t.MissesTotal,
			LengthM:     t.LengthM,
			MeanSpeed:   units.ConvertSpeed(t.MeanSpeedMPS, s.units),
			Units:       s.units,
			Final:       t.Final,
		}
	}
	s.writeJSON(w, out)
}

func (s *Server) showTrackHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("track"), 10, 64)
	if err != nil || id < 1 {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid track id")
		return
	}
	hist, err := s.db.TrackHistory(r.PathValue("run"), id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve history: %v", err))
		return
	}
	if len(hist) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "track not found")
		return
	}
	s.writeJSON(w, hist)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{"units": s.units})
}
