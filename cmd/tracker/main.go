// Command tracker runs the multi-target tracker over a recorded detection log
// and writes the resulting tracks as CSV and, optionally, to a SQLite results
// database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/radar-tracker/internal/api"
	"github.com/banshee-data/radar-tracker/internal/config"
	"github.com/banshee-data/radar-tracker/internal/db"
	"github.com/banshee-data/radar-tracker/internal/report"
	"github.com/banshee-data/radar-tracker/internal/scan"
	"github.com/banshee-data/radar-tracker/internal/tracking"
	"github.com/banshee-data/radar-tracker/internal/version"
)

var (
	inputPath   = flag.String("input", "", "Detection log to process (CSV with a header row)")
	configPath  = flag.String("config", "", "JSON tuning file (built-in defaults when empty)")
	mode        = flag.String("mode", "", "Track state layout: 3-state, 5-state or 7-state (overrides config)")
	association = flag.String("assoc", "", "Association strategy: JPDA or Munkres (overrides config)")
	model       = flag.String("model", "", "Motion model: CV, CA or CT (overrides config)")
	outDir      = flag.String("out", "output", "Directory for detailed_log.csv and track_summary.csv")
	dbPath      = flag.String("db", "", "SQLite results database (disabled when empty)")
	debugListen = flag.String("debug-listen", "", "After the run, serve the results API, debug routes and tailsql on this address (requires -db)")
	timeout     = flag.Duration("timeout", 0, "Abort processing after this duration (0 = no limit)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: tracker [flags]\n       tracker [-db path] migrate <action>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println("tracker", version.String())
		return
	}

	if flag.Arg(0) == "migrate" {
		if *dbPath == "" {
			log.Fatal("-db is required for migrate")
		}
		if err := db.RunMigrateCommand(flag.Args()[1:], *dbPath, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	if *inputPath == "" {
		flag.Usage()
		log.Fatal("-input is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tuning, err := loadTuning(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var results *db.DB
	if *dbPath != "" {
		results, err = db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open results database: %v", err)
		}
		defer results.Close()
	}

	res, err := run(ctx, tuning, *inputPath, *outDir, results, *timeout)
	if res != nil {
		log.Printf("run %s: %d scans, %d detections (%d dropped), %d tracks, %d warnings",
			res.RunID, res.Scans, res.Detections, res.Dropped, len(res.Tracks), res.Warnings)
	}
	if err != nil {
		log.Fatalf("tracking failed: %v", err)
	}

	if *debugListen != "" && results != nil {
		serveDebug(ctx, *debugListen, results, tuning.GetSpeedUnits())
	}
}

// loadTuning reads path, or returns the built-in defaults when path is
// empty, then applies the command-line overrides.
func loadTuning(path string) (*config.TuningConfig, error) {
	cfg := config.EmptyTuningConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(path); err != nil {
			return nil, err
		}
	}
	if *mode != "" {
		cfg.TrackMode = mode
	}
	if *association != "" {
		cfg.Association = association
	}
	if *model != "" {
		cfg.MotionModel = model
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run reads the dataset and processes it with the report writer and, when
// results is non-nil, the database store attached as sinks.
func run(ctx context.Context, tuning *config.TuningConfig, input, out string, results *db.DB, limit time.Duration) (*scan.Result, error) {
	engineCfg, err := tracking.ConfigFromTuning(tuning)
	if err != nil {
		return nil, err
	}
	dets, err := scan.ReadDetectionsFile(input)
	if err != nil {
		return nil, err
	}
	tuningJSON, err := tuning.ToJSON()
	if err != nil {
		return nil, err
	}

	writer := report.NewWriter(out, tuning.GetSpeedUnits())
	defer writer.Close()
	sinks := []scan.ScanSink{writer}
	if results != nil {
		sinks = append(sinks, db.NewStore(results))
	}

	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	p := &scan.Processor{
		Config: engineCfg,
		Bounds: scan.BoundsFromTuning(tuning),
		Noise:  scan.NoiseFromTuning(tuning),
		Window: tuning.GetScanWindow(),
		Source: input,
		Tuning: tuningJSON,
		Sinks:  sinks,
	}
	return p.Run(ctx, dets)
}

// serveDebug serves the results API, the debug index and tailsql until ctx
// is cancelled.
func serveDebug(ctx context.Context, addr string, results *db.DB, speedUnits string) {
	mux := api.NewServer(results, speedUnits).ServeMux()
	if err := results.AttachAdminRoutes(mux); err != nil {
		log.Fatalf("failed to attach debug routes: %v", err)
	}
	server := &http.Server{Addr: addr, Handler: api.LoggingMiddleware(mux)}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start debug server: %v", err)
		}
	}()
	log.Printf("debug server listening on %s (Ctrl-C to exit)", addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("debug server shutdown error: %v", err)
		server.Close()
	}
}
