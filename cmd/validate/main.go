// Command validate checks chart payloads produced by the pipeline. It verifies
// payload shape, trace consistency, and, when given the site data directory
// and the originating request, that the bands rebuild identically.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -chart data/charts/09085000_CO_USGS.json \
//	  -data-dir data/sitedata \
//	  -request data/requests/09085000_CO_USGS.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/couchcryptid/snow-flow-etl/internal/adapter/sitedata"
	"github.com/couchcryptid/snow-flow-etl/internal/config"
	"github.com/couchcryptid/snow-flow-etl/internal/domain"
	"github.com/couchcryptid/snow-flow-etl/internal/observability"
	"github.com/couchcryptid/snow-flow-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	skipped bool
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	chartPath := flag.String("chart", "", "path to a chart JSON payload")
	dataDir := flag.String("data-dir", "", "site data directory for the rebuild phase")
	reqPath := flag.String("request", "", "chart request JSON for the rebuild phase")
	flag.Parse()

	if *chartPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*chartPath, *dataDir, *reqPath); code != 0 {
		os.Exit(code)
	}
}

func run(chartPath, dataDir, reqPath string) int {
	fmt.Println("=== Snow/Flow Chart Validation ===")
	fmt.Println()

	chart, err := loadJSON[domain.Chart](chartPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load chart: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateShape(chart),
		validateTraces(chart),
		validateRebuild(chart, dataDir, reqPath),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case p.skipped:
			status = "\033[33mSKIP\033[0m"
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Chart: %s, %d SWE traces, %d flow traces\n",
		chart.ForecastTriplet, len(chart.SWE.Traces), len(chart.Flow.Traces))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

// ── Phase 1: Payload shape ──

func validateShape(c domain.Chart) *phase {
	p := &phase{name: "Phase 1: Payload shape"}
	if c.ForecastTriplet == "" {
		p.errorf("forecast_triplet is empty")
	}
	if len(c.Sites) == 0 {
		p.errorf("no snow sites")
	}
	if c.FlowElement == "" {
		p.errorf("flow_element is empty")
	}
	if c.GeneratedAt.IsZero() {
		p.errorf("generated_at is zero")
	}
	axis := domain.DateAxis()
	for i, d := range c.Dates {
		if i < len(axis) && d != axis[i].Format("2006-01-02") {
			p.errorf("dates[%d] = %s, want %s", i, d, axis[i].Format("2006-01-02"))
			break
		}
	}
	for _, problem := range domain.ValidateChart(c) {
		p.errorf("%s", problem)
	}
	return p
}

// ── Phase 2: Trace consistency ──

func validateTraces(c domain.Chart) *phase {
	p := &phase{name: "Phase 2: Trace consistency"}

	traces := c.SWE.Traces
	if len(traces) == 0 {
		p.errorf("no SWE traces")
		return p
	}
	if !sort.SliceIsSorted(traces, func(i, j int) bool { return traces[i].Year < traces[j].Year }) {
		p.errorf("SWE traces are not in year order")
	}

	last := traces[len(traces)-1]
	if !last.Current || last.Year != c.CurrentYear {
		p.errorf("last SWE trace is %d (current=%v), want current year %d", last.Year, last.Current, c.CurrentYear)
	}
	if last.Sites != c.CurrentSites {
		p.errorf("current trace has %d sites, chart says %d", last.Sites, c.CurrentSites)
	}

	for _, tr := range traces {
		if tr.Sites <= 0 {
			p.errorf("SWE trace %d has %d sites", tr.Year, tr.Sites)
		}
		if tr.BelowThreshold == domain.MeetsThreshold(tr.Sites, c.CurrentSites) && !tr.Current {
			p.errorf("SWE trace %d: below_threshold=%v with %d of %d sites",
				tr.Year, tr.BelowThreshold, tr.Sites, c.CurrentSites)
		}
		if tr.Current && tr.BelowThreshold {
			p.errorf("current trace is marked below threshold")
		}
	}
	return p
}

// ── Phase 3: Rebuild ──

func validateRebuild(c domain.Chart, dataDir, reqPath string) *phase {
	p := &phase{name: "Phase 3: Rebuild from site data"}
	if dataDir == "" || reqPath == "" {
		p.skipped = true
		return p
	}

	data, err := os.ReadFile(reqPath)
	if err != nil {
		p.errorf("read request: %v", err)
		return p
	}
	req, err := domain.ParseChartRequest(data)
	if err != nil {
		p.errorf("parse request: %v", err)
		return p
	}

	// Rebuild as of the day the chart was generated.
	domain.SetClock(clockwork.NewFakeClockAt(c.GeneratedAt))
	defer domain.SetClock(nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := pipeline.NewChartBuilder(sitedata.NewStore(dataDir, logger), config.MaxFetchWorkers,
		logger, observability.NewMetricsForTesting())

	rebuilt, err := builder.Build(context.Background(), req)
	if err != nil {
		p.errorf("rebuild: %v", err)
		return p
	}

	if diff := cmp.Diff(rebuilt.SWE, c.SWE, cmp.AllowUnexported(domain.Value{})); diff != "" {
		p.errorf("SWE panel differs (-rebuilt +chart):\n%s", diff)
	}
	if diff := cmp.Diff(rebuilt.Flow, c.Flow, cmp.AllowUnexported(domain.Value{})); diff != "" {
		p.errorf("flow panel differs (-rebuilt +chart):\n%s", diff)
	}
	return p
}
