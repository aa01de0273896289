// Command markerlab labels a motion-capture trial: it cleans and
// segments the raw trajectories, queries a classifier service for
// per-window label probabilities, solves the per-window assignments,
// and writes the aggregated, verified labels as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gaitworks/markerlab/internal/config"
	"github.com/gaitworks/markerlab/internal/marker"
	"github.com/gaitworks/markerlab/internal/marker/monitor"
	"github.com/gaitworks/markerlab/internal/marker/pipeline"
	"github.com/gaitworks/markerlab/internal/marker/s3infer"
	"github.com/gaitworks/markerlab/internal/marker/s6verify"
	"github.com/gaitworks/markerlab/internal/marker/storage/sqlite"
	"github.com/gaitworks/markerlab/internal/trialio"
	"github.com/gaitworks/markerlab/internal/version"
)

var (
	trialPath     = flag.String("trial", "", "Path to the trial JSON file (required)")
	configPath    = flag.String("config", "", "Path to a tuning JSON file (optional; defaults apply)")
	classifierURL = flag.String("classifier", "http://localhost:8091", "Base URL of the classifier service")
	labelList     = flag.String("labels", "", "Comma-separated marker label set the classifier scores (required)")
	outPath       = flag.String("out", "", "Output path for labeled JSON (default: <trial>.labels.json)")
	dbFile        = flag.String("db", "", "SQLite database for run persistence and priors (optional)")
	migrationsDir = flag.String("migrations", "db/migrations", "Path to migration SQL files")
	plotsDir      = flag.String("plots", "", "Generate trajectory plots under this directory (optional)")
	learnPriors   = flag.Bool("learn-priors", false, "Treat the trial as fully labeled, learn distance priors into -db, and exit")
	verbose       = flag.Bool("verbose", false, "Enable diagnostic logging")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("markerlab %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *trialPath == "" {
		log.Fatal("-trial is required")
	}

	if *learnPriors {
		if err := runLearnPriors(*trialPath, *dbFile, *migrationsDir); err != nil {
			log.Fatalf("Prior learning failed: %v", err)
		}
		return
	}

	labels := splitLabels(*labelList)
	if len(labels) == 0 {
		log.Fatal("-labels is required (comma-separated marker names)")
	}

	if *verbose {
		pipeline.SetLogWriters(os.Stderr, os.Stderr, nil)
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	cfg, err := tuning.PipelineConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	trial, err := trialio.Load(*trialPath)
	if err != nil {
		log.Fatalf("Failed to load trial: %v", err)
	}

	var (
		priors *s6verify.PriorTable
		sink   pipeline.ResultSink
	)
	if *dbFile != "" {
		db, err := sqlite.Open(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()

		if err := db.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}

		priors, err = sqlite.NewPriorStore(db).Load()
		if err != nil {
			log.Fatalf("Failed to load priors: %v", err)
		}
		log.Printf("Loaded %d distance priors", priors.Len())

		sink = sqlite.NewRunStore(db)
	}

	classifier := s3infer.NewHTTPClassifier(*classifierURL, labels, nil)

	rt, err := pipeline.NewRuntime(cfg, classifier, priors, sink)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := rt.Run(ctx, trial)
	if err != nil {
		log.Fatalf("Labeling failed: %v", err)
	}

	labeled := 0
	for _, a := range res.Assignments {
		if !a.Unlabeled() {
			labeled++
		}
	}
	log.Printf("Run %s: %d/%d segments labeled, %d warnings",
		res.RunID, labeled, len(res.Assignments), len(res.Warnings))

	out := trialio.BuildOutput(trial.Name, res.RunID, res.Assignments, res.Warnings)
	dest := *outPath
	if dest == "" {
		dest = defaultOutPath(*trialPath)
	}
	if err := out.Save(dest); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
	log.Printf("Wrote %s", dest)

	if *plotsDir != "" {
		dir := monitor.MakePlotOutputDir(*plotsDir, trial.Name)
		tp := monitor.NewTrajectoryPlotter(dir)
		n, err := tp.GeneratePlots(res.Arena, res.Assignments)
		if err != nil {
			log.Fatalf("Failed to generate plots: %v", err)
		}
		log.Printf("Wrote %d plots to %s", n, dir)
	}
}

// runLearnPriors learns inter-marker distance priors from a trial whose
// slot names are trusted labels, then upserts them into the database.
func runLearnPriors(trialPath, dbFile, migrationsDir string) error {
	if dbFile == "" {
		return fmt.Errorf("-db is required with -learn-priors")
	}

	trial, err := trialio.Load(trialPath)
	if err != nil {
		return fmt.Errorf("load trial: %w", err)
	}

	labeled := make(map[string][]marker.Point3, len(trial.Names))
	for i, name := range trial.Names {
		labeled[name] = trial.Slots[i]
	}
	priors, err := s6verify.LearnPriors(labeled)
	if err != nil {
		return err
	}

	db, err := sqlite.Open(dbFile)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.MigrateUp(migrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if err := sqlite.NewPriorStore(db).Save(priors); err != nil {
		return err
	}
	log.Printf("Learned %d distance priors from %s", priors.Len(), trial.Name)
	return nil
}

func splitLabels(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultOutPath(trialPath string) string {
	ext := filepath.Ext(trialPath)
	return strings.TrimSuffix(trialPath, ext) + ".labels.json"
}
