package domain

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Aggregate combines aligned site series into one basin series. For each day
// the mean ignores Missing values (Missing when every site is Missing) and the
// count is the number of sites reporting. Every series must already be padded
// to the same window; differing lengths return ErrRaggedSeries.
func Aggregate(series []DailySeries) ([]Value, []int, error) {
	if len(series) == 0 {
		return nil, nil, nil
	}

	n := len(series[0].Values)
	for _, s := range series[1:] {
		if len(s.Values) != n {
			return nil, nil, fmt.Errorf("%w: %s has %d days, %s has %d",
				ErrRaggedSeries, s.Triplet, len(s.Values), series[0].Triplet, n)
		}
	}

	mean := MissingValues(n)
	counts := make([]int, n)
	day := make([]float64, 0, len(series))
	for d := 0; d < n; d++ {
		day = day[:0]
		for _, s := range series {
			if f, ok := s.Values[d].Float(); ok {
				day = append(day, f)
			}
		}
		counts[d] = len(day)
		if len(day) == 0 {
			continue
		}
		// Summing in value order keeps the mean independent of site order.
		slices.Sort(day)
		mean[d] = Present(stat.Mean(day, nil))
	}
	return mean, counts, nil
}

// SitesPerWaterYear reshapes daily site counts that begin Oct 1 of startYear
// into water years and returns, per year, the median count over the days the
// year actually covers, truncated to an integer. The result lines up with
// ToWaterYears over the same window.
func SitesPerWaterYear(counts []int, startYear int) []int {
	flat := make([]Value, len(counts))
	for i, c := range counts {
		flat[i] = Present(float64(c))
	}

	years := ToWaterYears(flat, startYear)
	sites := make([]int, len(years))
	buf := make([]float64, 0, DaysInWaterYear)
	for i := range years {
		buf = presentFloats(buf[:0], years[i].Values[:])
		if len(buf) == 0 {
			continue
		}
		slices.Sort(buf)
		sites[i] = int(percentile(buf, 50))
	}
	return sites
}
