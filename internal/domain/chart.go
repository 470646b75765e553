package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// SiteThreshold is the fraction of the current year's site count a historical
// year needs for its SWE to enter the bands.
const SiteThreshold = 0.5

// AWDB element codes.
const (
	ElementSWE          = "WTEQ"
	ElementFlowAdjusted = "SRDOX"
	ElementFlowObserved = "SRDOO"
)

// ChartRequest asks for a snow-to-flow chart for one forecast point. The snow
// sites are those already resolved from the forecast equation.
type ChartRequest struct {
	ForecastTriplet string   `json:"forecast_triplet"`
	Name            string   `json:"name"`
	SnowTriplets    []string `json:"snow_triplets"`
	FlowElement     string   `json:"flow_element,omitempty"`
}

// ParseChartRequest decodes and validates a request. Snow triplets are
// de-duplicated and sorted; an empty name falls back to the triplet.
func ParseChartRequest(data []byte) (ChartRequest, error) {
	var req ChartRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ChartRequest{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	req = req.normalize()
	if err := req.Validate(); err != nil {
		return ChartRequest{}, err
	}
	return req, nil
}

func (r ChartRequest) normalize() ChartRequest {
	r.ForecastTriplet = strings.TrimSpace(r.ForecastTriplet)
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		r.Name = r.ForecastTriplet
	}
	r.FlowElement = strings.ToUpper(strings.TrimSpace(r.FlowElement))

	sites := make([]string, 0, len(r.SnowTriplets))
	for _, t := range r.SnowTriplets {
		if t = strings.TrimSpace(t); t != "" {
			sites = append(sites, t)
		}
	}
	slices.Sort(sites)
	r.SnowTriplets = slices.Compact(sites)
	return r
}

// Validate reports ErrInvalidRequest for a request without a forecast triplet
// and ErrNoSnowSites for one without snow sites.
func (r ChartRequest) Validate() error {
	if r.ForecastTriplet == "" {
		return fmt.Errorf("%w: forecast_triplet is required", ErrInvalidRequest)
	}
	if strings.Count(r.ForecastTriplet, ":") != 2 {
		return fmt.Errorf("%w: forecast_triplet %q is not site:state:network", ErrInvalidRequest, r.ForecastTriplet)
	}
	if len(r.SnowTriplets) == 0 {
		return fmt.Errorf("%s: %w", r.ForecastTriplet, ErrNoSnowSites)
	}
	return nil
}

// FlowElements returns the flow elements to try, in order: the requested one,
// then adjusted, then observed streamflow.
func (r ChartRequest) FlowElements() []string {
	elems := make([]string, 0, 3)
	for _, e := range []string{r.FlowElement, ElementFlowAdjusted, ElementFlowObserved} {
		if e != "" && !slices.Contains(elems, e) {
			elems = append(elems, e)
		}
	}
	return elems
}

// Trace is one water year's curve.
type Trace struct {
	Year           int     `json:"year"`
	Sites          int     `json:"sites"`
	BelowThreshold bool    `json:"below_threshold,omitempty"`
	Current        bool    `json:"current,omitempty"`
	Values         []Value `json:"values"`
}

// Panel is one quantity's bands plus its per-year traces.
type Panel struct {
	Bands  Bands   `json:"bands"`
	Traces []Trace `json:"traces"`
}

// Chart is the payload handed to the renderer. Dates and every value sequence
// have DaysInWaterYear entries and zip positionally.
type Chart struct {
	ForecastTriplet string    `json:"forecast_triplet"`
	Name            string    `json:"name"`
	BasinStart      time.Time `json:"basin_start"`
	CurrentYear     int       `json:"current_year"`
	CurrentSites    int       `json:"current_sites"`
	Sites           []string  `json:"sites"`
	SkippedSites    []string  `json:"skipped_sites,omitempty"`
	FlowElement     string    `json:"flow_element"`
	Dates           []string  `json:"dates"`
	SWE             Panel     `json:"swe"`
	Flow            Panel     `json:"flow"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// BasinStartYear returns the calendar year whose Oct 1 opens the analysis
// window: the year of the earliest begin date, pulled back so the window never
// starts after today.
func BasinStartYear(series []DailySeries, today time.Time) int {
	year := WaterYearOf(today) - 1
	for _, s := range series {
		if !s.BeginDate.IsZero() && s.BeginDate.Year() < year {
			year = s.BeginDate.Year()
		}
	}
	return year
}

// MeetsThreshold reports whether a year with `sites` reporting sites may feed
// the SWE bands given the current year's count.
func MeetsThreshold(sites, current int) bool {
	return float64(sites) >= SiteThreshold*float64(current)
}

// BuildChart aligns the snow and flow records of one forecast point onto the
// window [Oct 1 of the basin start year, today] and derives both panels.
//
// Snow records without begin or end dates are skipped and listed in
// SkippedSites. ErrNoSnowData is returned when no snow record is usable and
// ErrNoFlowData when the flow record has no observations.
func BuildChart(req ChartRequest, snow []DailySeries, flow DailySeries, today time.Time) (Chart, error) {
	today = Day(today)

	usable := make([]DailySeries, 0, len(snow))
	var skipped []string
	for _, s := range snow {
		if s.BeginDate.IsZero() || s.EndDate.IsZero() {
			skipped = append(skipped, s.Triplet)
			continue
		}
		usable = append(usable, s)
	}
	if len(usable) == 0 {
		return Chart{}, fmt.Errorf("%s: %w", req.ForecastTriplet, ErrNoSnowData)
	}
	if !HasPresent(flow.Values) {
		return Chart{}, fmt.Errorf("%s %s: %w", req.ForecastTriplet, flow.Element, ErrNoFlowData)
	}

	startYear := BasinStartYear(usable, today)
	start := WaterYearStart(startYear)

	padded := make([]DailySeries, 0, len(usable))
	sites := make([]string, 0, len(usable))
	for _, s := range usable {
		p, err := Pad(s, start, today)
		if err != nil {
			return Chart{}, fmt.Errorf("pad snow site: %w", err)
		}
		padded = append(padded, p)
		sites = append(sites, s.Triplet)
	}

	swe, err := snowPanel(padded, startYear)
	if err != nil {
		return Chart{}, err
	}

	paddedFlow, err := Pad(flow, start, today)
	if err != nil {
		if errors.Is(err, ErrMissingEndDate) || errors.Is(err, ErrMissingBeginDate) {
			return Chart{}, fmt.Errorf("%s: %w: %w", req.ForecastTriplet, ErrNoFlowData, err)
		}
		return Chart{}, fmt.Errorf("pad flow: %w", err)
	}
	flowYears := ToWaterYears(paddedFlow.Values, startYear)

	// Flow traces follow the SWE traces so every plotted year has both curves.
	flowPanel := Panel{Bands: ComputeBands(flowYears, true)}
	for _, tr := range swe.panel.Traces {
		i := tr.Year - 1 - startYear
		if i < 0 || i >= len(flowYears) {
			continue
		}
		flowPanel.Traces = append(flowPanel.Traces, Trace{
			Year:           tr.Year,
			Sites:          tr.Sites,
			BelowThreshold: tr.BelowThreshold,
			Current:        tr.Current,
			Values:         valuesOf(flowYears[i]),
		})
	}

	return Chart{
		ForecastTriplet: req.ForecastTriplet,
		Name:            req.Name,
		BasinStart:      start,
		CurrentYear:     swe.currentYear,
		CurrentSites:    swe.currentSites,
		Sites:           sites,
		SkippedSites:    skipped,
		FlowElement:     flow.Element,
		Dates:           axisLabels(),
		SWE:             swe.panel,
		Flow:            flowPanel,
		GeneratedAt:     clock.Now().UTC(),
	}, nil
}

type snowResult struct {
	panel        Panel
	currentYear  int
	currentSites int
}

func snowPanel(padded []DailySeries, startYear int) (snowResult, error) {
	mean, counts, err := Aggregate(padded)
	if err != nil {
		return snowResult{}, fmt.Errorf("aggregate snow sites: %w", err)
	}

	years := ToWaterYears(mean, startYear)
	sites := SitesPerWaterYear(counts, startYear)
	last := len(years) - 1
	current := sites[last]

	// The current year rides along at the end so ComputeBands drops it.
	population := make([]WaterYear, 0, len(years))
	below := make([]bool, len(years))
	for i := 0; i < last; i++ {
		if MeetsThreshold(sites[i], current) {
			population = append(population, years[i])
		} else {
			below[i] = true
		}
	}
	population = append(population, years[last])

	panel := Panel{Bands: ComputeBands(population, true)}
	for i := range years {
		if sites[i] == 0 {
			continue
		}
		panel.Traces = append(panel.Traces, Trace{
			Year:           years[i].Label(),
			Sites:          sites[i],
			BelowThreshold: below[i],
			Current:        i == last,
			Values:         valuesOf(years[i]),
		})
	}

	return snowResult{
		panel:        panel,
		currentYear:  years[last].Label(),
		currentSites: current,
	}, nil
}

func valuesOf(wy WaterYear) []Value {
	out := make([]Value, DaysInWaterYear)
	copy(out, wy.Values[:])
	return out
}

func axisLabels() []string {
	axis := DateAxis()
	labels := make([]string, len(axis))
	for i, d := range axis {
		labels[i] = d.Format(dayLayout)
	}
	return labels
}

// ValidateChart checks the invariants a renderer relies on and returns one
// message per violation.
func ValidateChart(c Chart) []string {
	var problems []string
	if len(c.Dates) != DaysInWaterYear {
		problems = append(problems, fmt.Sprintf("dates: %d entries, want %d", len(c.Dates), DaysInWaterYear))
	}

	panels := []struct {
		name  string
		panel Panel
	}{{"swe", c.SWE}, {"flow", c.Flow}}

	for _, p := range panels {
		problems = append(problems, validateBands(p.name, p.panel.Bands)...)
		for _, tr := range p.panel.Traces {
			if len(tr.Values) != DaysInWaterYear {
				problems = append(problems, fmt.Sprintf("%s trace %d: %d values, want %d",
					p.name, tr.Year, len(tr.Values), DaysInWaterYear))
			}
		}
	}

	sweYears := make(map[int]bool, len(c.SWE.Traces))
	for _, tr := range c.SWE.Traces {
		sweYears[tr.Year] = true
	}
	for _, tr := range c.Flow.Traces {
		if !sweYears[tr.Year] {
			problems = append(problems, fmt.Sprintf("flow trace %d has no swe trace", tr.Year))
		}
	}
	return problems
}

func validateBands(panel string, b Bands) []string {
	if !b.Sufficient {
		return nil
	}

	var problems []string
	named := b.Named()
	for _, name := range BandNames {
		vals := named[name]
		if len(vals) != DaysInWaterYear {
			problems = append(problems, fmt.Sprintf("%s band %s: %d values, want %d",
				panel, name, len(vals), DaysInWaterYear))
			continue
		}
		if vals[leapDayIndex] != vals[leapDayIndex-1] {
			problems = append(problems, fmt.Sprintf("%s band %s: Feb 29 %s differs from Feb 28 %s",
				panel, name, vals[leapDayIndex], vals[leapDayIndex-1]))
		}
	}
	if len(problems) > 0 {
		return problems
	}

	for day := 0; day < DaysInWaterYear; day++ {
		prev := Missing
		for _, name := range BandNames {
			cur := named[name][day]
			if cur.IsMissing() {
				continue
			}
			if p, ok := prev.Float(); ok {
				if f, _ := cur.Float(); f < p {
					problems = append(problems, fmt.Sprintf("%s day %d: %s band %v below lower band %v",
						panel, day, name, f, p))
				}
			}
			prev = cur
		}
	}
	return problems
}
