package domain

import "errors"

var (
	// ErrMissingEndDate marks a record without an end date. The record cannot be
	// aligned and callers skip it.
	ErrMissingEndDate = errors.New("series has no end date")

	// ErrMissingBeginDate marks a record without a begin date.
	ErrMissingBeginDate = errors.New("series has no begin date")

	// ErrMalformedWindow is a caller bug: the target window ends before it starts.
	ErrMalformedWindow = errors.New("malformed target window")

	// ErrRaggedSeries is a caller bug: series handed to Aggregate differ in length.
	ErrRaggedSeries = errors.New("series lengths differ")

	// ErrSeriesNotFound means no record exists for an element and triplet.
	ErrSeriesNotFound = errors.New("series not found")

	ErrInvalidRequest = errors.New("invalid chart request")
	ErrNoSnowSites    = errors.New("no snow sites in forecast")
	ErrNoSnowData     = errors.New("no snow data available")
	ErrNoFlowData     = errors.New("no flow data available")
)

// IsNoChart reports whether err is an expected "no chart can be produced"
// outcome rather than a failure.
func IsNoChart(err error) bool {
	return errors.Is(err, ErrNoSnowSites) ||
		errors.Is(err, ErrNoSnowData) ||
		errors.Is(err, ErrNoFlowData)
}
