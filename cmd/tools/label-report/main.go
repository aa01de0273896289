// Command label-report renders an interactive HTML report from a trial
// and its labeled output, for visual review of a labeling run.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaitworks/markerlab/internal/marker/monitor"
	"github.com/gaitworks/markerlab/internal/trialio"
)

var (
	trialPath  = flag.String("trial", "", "Path to the trial JSON file (required)")
	labelsPath = flag.String("labels", "", "Path to the labeled output JSON (default: <trial>.labels.json)")
	outPath    = flag.String("out", "", "Output HTML path (default: <trial>.report.html)")
)

func main() {
	flag.Parse()

	if *trialPath == "" {
		log.Fatal("-trial is required")
	}

	trial, err := trialio.Load(*trialPath)
	if err != nil {
		log.Fatalf("Failed to load trial: %v", err)
	}

	src := *labelsPath
	if src == "" {
		src = replaceExt(*trialPath, ".labels.json")
	}
	labeled, err := loadLabeledOutput(src)
	if err != nil {
		log.Fatalf("Failed to load labeled output: %v", err)
	}

	dest := *outPath
	if dest == "" {
		dest = replaceExt(*trialPath, ".report.html")
	}

	f, err := os.Create(dest)
	if err != nil {
		log.Fatalf("Failed to create report file: %v", err)
	}
	defer f.Close()

	if err := monitor.RenderReport(f, trial, labeled); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	log.Printf("Wrote %s", dest)
}

func loadLabeledOutput(path string) (*trialio.LabeledOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out trialio.LabeledOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func replaceExt(path, newExt string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + newExt
}
