package domain

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
)

// minHistoryYears is the smallest historical population that gets bands.
const minHistoryYears = 2

// Band names as they appear in chart payloads.
const (
	BandMin = "min"
	BandP10 = "10th"
	BandP30 = "30th"
	BandP50 = "50th"
	BandP70 = "70th"
	BandP90 = "90th"
	BandMax = "max"
)

// BandNames lists the bands from lowest to highest.
var BandNames = []string{BandMin, BandP10, BandP30, BandP50, BandP70, BandP90, BandMax}

// Bands holds the per-day percentile curves across historical water years.
// When Sufficient is false there was not enough history and only Range is set.
type Bands struct {
	Sufficient bool         `json:"sufficient"`
	Range      [2]time.Time `json:"range"`

	Min []Value `json:"min,omitempty"`
	P10 []Value `json:"10th,omitempty"`
	P30 []Value `json:"30th,omitempty"`
	P50 []Value `json:"50th,omitempty"`
	P70 []Value `json:"70th,omitempty"`
	P90 []Value `json:"90th,omitempty"`
	Max []Value `json:"max,omitempty"`
}

// Named returns the band curves keyed by BandNames. It is empty when the bands
// are not Sufficient.
func (b Bands) Named() map[string][]Value {
	if !b.Sufficient {
		return map[string][]Value{}
	}
	return map[string][]Value{
		BandMin: b.Min,
		BandP10: b.P10,
		BandP30: b.P30,
		BandP50: b.P50,
		BandP70: b.P70,
		BandP90: b.P90,
		BandMax: b.Max,
	}
}

// ComputeBands reduces water years to per-day percentile bands. With
// excludeLastYear the final (current) water year is left out of the population.
// Missing values are ignored; a day with no values anywhere yields Missing in
// every band. Fewer than two historical years yields only the axis Range.
func ComputeBands(years []WaterYear, excludeLastYear bool) Bands {
	history := years
	if excludeLastYear && len(history) > 0 {
		history = history[:len(history)-1]
	}

	axis := DateAxis()
	b := Bands{Range: [2]time.Time{axis[0], axis[len(axis)-1]}}
	if len(history) < minHistoryYears {
		return b
	}

	rows := transpose(history)
	rows[leapDayIndex] = rows[leapDayIndex-1]

	b.Sufficient = true
	b.Min = MissingValues(DaysInWaterYear)
	b.P10 = MissingValues(DaysInWaterYear)
	b.P30 = MissingValues(DaysInWaterYear)
	b.P50 = MissingValues(DaysInWaterYear)
	b.P70 = MissingValues(DaysInWaterYear)
	b.P90 = MissingValues(DaysInWaterYear)
	b.Max = MissingValues(DaysInWaterYear)

	sorted := make([]float64, 0, len(history))
	for day, row := range rows {
		if len(row) == 0 {
			continue
		}
		sorted = append(sorted[:0], row...)
		slices.Sort(sorted)

		b.Min[day] = Present(floats.Min(row))
		b.P10[day] = Present(percentile(sorted, 10))
		b.P30[day] = Present(percentile(sorted, 30))
		b.P50[day] = Present(percentile(sorted, 50))
		b.P70[day] = Present(percentile(sorted, 70))
		b.P90[day] = Present(percentile(sorted, 90))
		b.Max[day] = Present(floats.Max(row))
	}
	return b
}

// transpose turns years into day-of-year rows holding only present values.
func transpose(years []WaterYear) [][]float64 {
	rows := make([][]float64, DaysInWaterYear)
	for day := range rows {
		row := make([]float64, 0, len(years))
		for i := range years {
			if f, ok := years[i].Values[day].Float(); ok {
				row = append(row, f)
			}
		}
		rows[day] = row
	}
	return rows
}

// percentile returns the p-th percentile (0..100) of ascending values,
// interpolating linearly between the ranks around p/100*(n-1).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}

	idx := p / 100 * float64(n-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= n {
		return sorted[lower]
	}

	frac := idx - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}
