// Command buildchart builds one snow-to-flow chart offline from a site data
// directory and writes the payload as JSON. It runs the same builder the
// service uses, so its output matches what the pipeline would publish.
//
// Usage:
//
//	go run ./cmd/buildchart \
//	  -data-dir data/sitedata \
//	  -request data/requests/09085000_CO_USGS.json \
//	  -out data/charts/09085000_CO_USGS.json \
//	  -today 2023-01-15
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/snow-flow-etl/internal/adapter/sitedata"
	"github.com/couchcryptid/snow-flow-etl/internal/config"
	"github.com/couchcryptid/snow-flow-etl/internal/domain"
	"github.com/couchcryptid/snow-flow-etl/internal/observability"
	"github.com/couchcryptid/snow-flow-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "data/sitedata", "site data directory (<ELEMENT>/<triplet>.json)")
	reqPath := flag.String("request", "", "path to a chart request JSON file")
	outPath := flag.String("out", "", "output path for the chart JSON (stdout when empty)")
	today := flag.String("today", "", "analysis date YYYY-MM-DD (defaults to the current date)")
	verbose := flag.Bool("v", false, "log record loads")
	flag.Parse()

	if *reqPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -request")
	}

	// A fixed date makes the output reproducible.
	if *today != "" {
		day, err := domain.ParseDate(*today)
		if err != nil {
			return fmt.Errorf("parse -today: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(day.Add(12 * time.Hour)))
		defer domain.SetClock(nil)
	}

	data, err := os.ReadFile(*reqPath)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	req, err := domain.ParseChartRequest(data)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		logger = observability.NewLogger(&config.Config{LogLevel: "debug", LogFormat: "text"})
	}

	store := sitedata.NewStore(*dataDir, logger)
	builder := pipeline.NewChartBuilder(store, config.MaxFetchWorkers, logger, observability.NewMetricsForTesting())

	chart, err := builder.Build(context.Background(), req)
	if err != nil {
		return fmt.Errorf("build chart %s: %w", req.ForecastTriplet, err)
	}

	if problems := domain.ValidateChart(chart); len(problems) > 0 {
		for _, p := range problems {
			log.Printf("invalid: %s", p)
		}
		return fmt.Errorf("chart %s failed validation (%d problems)", req.ForecastTriplet, len(problems))
	}

	if err := writeJSON(*outPath, chart); err != nil {
		return fmt.Errorf("writing chart: %w", err)
	}
	if *outPath != "" {
		log.Printf("wrote chart: %s", *outPath)
	}

	printStats(chart)
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printStats(c domain.Chart) {
	below := 0
	for _, tr := range c.SWE.Traces {
		if tr.BelowThreshold {
			below++
		}
	}

	fmt.Fprintf(os.Stderr, "\n=== %s (%s) ===\n", c.Name, c.ForecastTriplet)
	fmt.Fprintf(os.Stderr, "Basin start:   %s\n", c.BasinStart.Format("2006-01-02"))
	fmt.Fprintf(os.Stderr, "Current year:  %d (%d sites)\n", c.CurrentYear, c.CurrentSites)
	fmt.Fprintf(os.Stderr, "Snow sites:    %d used, %d skipped\n", len(c.Sites), len(c.SkippedSites))
	fmt.Fprintf(os.Stderr, "SWE traces:    %d (%d below site threshold)\n", len(c.SWE.Traces), below)
	fmt.Fprintf(os.Stderr, "SWE bands:     %v\n", c.SWE.Bands.Sufficient)
	fmt.Fprintf(os.Stderr, "Flow element:  %s\n", c.FlowElement)
	fmt.Fprintf(os.Stderr, "Flow bands:    %v\n", c.Flow.Bands.Sufficient)
}
