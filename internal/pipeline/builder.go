package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/snow-flow-etl/internal/domain"
	"github.com/couchcryptid/snow-flow-etl/internal/observability"
	"golang.org/x/sync/errgroup"
)

// ChartBuilder loads a forecast point's site records and assembles its chart.
// It implements Transformer for the Kafka pipeline and serves HTTP requests
// directly through Build.
type ChartBuilder struct {
	source  domain.SeriesSource
	workers int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewChartBuilder creates a ChartBuilder that loads at most workers records
// concurrently.
func NewChartBuilder(source domain.SeriesSource, workers int, logger *slog.Logger, metrics *observability.Metrics) *ChartBuilder {
	if workers < 1 {
		workers = 1
	}
	return &ChartBuilder{
		source:  source,
		workers: workers,
		logger:  logger,
		metrics: metrics,
	}
}

// Transform decodes a chart request, builds the chart, and serializes it.
func (b *ChartBuilder) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseChartRequest(raw.Value)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	chart, err := b.Build(ctx, req)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	return SerializeChart(chart)
}

// Build assembles the chart for a validated request as of today.
func (b *ChartBuilder) Build(ctx context.Context, req domain.ChartRequest) (domain.Chart, error) {
	if err := req.Validate(); err != nil {
		return domain.Chart{}, err
	}
	start := time.Now()

	snow, err := b.loadSnow(ctx, req.SnowTriplets)
	if err != nil {
		return domain.Chart{}, err
	}
	flow, err := b.loadFlow(ctx, req)
	if err != nil {
		return domain.Chart{}, err
	}

	chart, err := domain.BuildChart(req, snow, flow, domain.Today())
	if err != nil {
		return domain.Chart{}, err
	}

	b.metrics.ChartBuildDuration.Observe(time.Since(start).Seconds())
	b.logger.Info("chart built",
		"forecast_triplet", chart.ForecastTriplet,
		"sites", len(chart.Sites),
		"skipped_sites", len(chart.SkippedSites),
		"current_year", chart.CurrentYear,
		"flow_element", chart.FlowElement,
	)
	return chart, nil
}

// loadSnow fetches the SWE record of every site concurrently. Sites without a
// cached record are dropped; the result keeps request order.
func (b *ChartBuilder) loadSnow(ctx context.Context, triplets []string) ([]domain.DailySeries, error) {
	results := make([]domain.DailySeries, len(triplets))
	found := make([]bool, len(triplets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, triplet := range triplets {
		g.Go(func() error {
			s, err := b.source.Series(gctx, domain.ElementSWE, triplet)
			if errors.Is(err, domain.ErrSeriesNotFound) {
				b.logger.Warn("snow site has no record, skipping", "triplet", triplet)
				return nil
			}
			if err != nil {
				return fmt.Errorf("load %s %s: %w", domain.ElementSWE, triplet, err)
			}
			results[i], found[i] = s, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snow := make([]domain.DailySeries, 0, len(triplets))
	for i, ok := range found {
		if ok {
			snow = append(snow, results[i])
		}
	}
	return snow, nil
}

// loadFlow returns the first flow element, in the request's preference order,
// whose record has any observations.
func (b *ChartBuilder) loadFlow(ctx context.Context, req domain.ChartRequest) (domain.DailySeries, error) {
	for _, element := range req.FlowElements() {
		s, err := b.source.Series(ctx, element, req.ForecastTriplet)
		if errors.Is(err, domain.ErrSeriesNotFound) {
			continue
		}
		if err != nil {
			return domain.DailySeries{}, fmt.Errorf("load %s %s: %w", element, req.ForecastTriplet, err)
		}
		if !domain.HasPresent(s.Values) {
			b.logger.Debug("flow record is empty, trying next element",
				"forecast_triplet", req.ForecastTriplet, "element", element)
			continue
		}
		return s, nil
	}
	return domain.DailySeries{}, fmt.Errorf("%s: %w", req.ForecastTriplet, domain.ErrNoFlowData)
}

// SerializeChart encodes a chart as a sink message keyed by forecast triplet.
func SerializeChart(chart domain.Chart) (domain.OutputEvent, error) {
	data, err := json.Marshal(chart)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize chart %s: %w", chart.ForecastTriplet, err)
	}
	return domain.OutputEvent{
		Key:   []byte(chart.ForecastTriplet),
		Value: data,
		Headers: map[string]string{
			"forecast_triplet": chart.ForecastTriplet,
			"generated_at":     chart.GeneratedAt.Format(time.RFC3339),
		},
	}, nil
}
