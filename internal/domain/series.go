package domain

import (
	"fmt"
	"time"
)

// RawSeries is the cached AWDB record as it arrives from the collector.
type RawSeries struct {
	StationTriplet string  `json:"stationTriplet"`
	BeginDate      *string `json:"beginDate"`
	EndDate        *string `json:"endDate"`
	Values         []Value `json:"values"`
}

// DailySeries is one station's record on the day grid. A zero BeginDate or
// EndDate means the record did not report one.
type DailySeries struct {
	Triplet   string
	Element   string
	BeginDate time.Time
	EndDate   time.Time
	Values    []Value
}

// ParseSeries converts a raw record. Null dates become zero dates so that Pad
// can report them; unparseable dates are errors.
func ParseSeries(raw RawSeries) (DailySeries, error) {
	s := DailySeries{
		Triplet: raw.StationTriplet,
		Values:  raw.Values,
	}

	var err error
	if raw.BeginDate != nil && *raw.BeginDate != "" {
		if s.BeginDate, err = ParseDate(*raw.BeginDate); err != nil {
			return DailySeries{}, fmt.Errorf("series %s begin date: %w", raw.StationTriplet, err)
		}
	}
	if raw.EndDate != nil && *raw.EndDate != "" {
		if s.EndDate, err = ParseDate(*raw.EndDate); err != nil {
			return DailySeries{}, fmt.Errorf("series %s end date: %w", raw.StationTriplet, err)
		}
	}
	return s, nil
}
