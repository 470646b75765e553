package domain

import (
	"fmt"
	"time"
)

// Pad aligns a series to the target window [start, end] on the day grid.
//
// The head and the tail are adjusted independently. At the head, a series that
// begins after start gets Missing values prepended and one that begins before
// start is truncated. At the tail, a series that ends before end gets Missing
// values appended and one that ends after end is truncated. The result always
// has GridDays(start, end) values and carries the window as its dates, even
// when the record's own values do not fill its stated span.
//
// A series without an end (or begin) date returns ErrMissingEndDate
// (ErrMissingBeginDate); callers skip it. A window that ends before it starts
// returns ErrMalformedWindow.
func Pad(s DailySeries, start, end time.Time) (DailySeries, error) {
	if s.EndDate.IsZero() {
		return DailySeries{}, fmt.Errorf("%s: %w", s.Triplet, ErrMissingEndDate)
	}
	if s.BeginDate.IsZero() {
		return DailySeries{}, fmt.Errorf("%s: %w", s.Triplet, ErrMissingBeginDate)
	}

	start, end = Day(start), Day(end)
	if end.Before(start) {
		return DailySeries{}, fmt.Errorf("%w: end %s before start %s",
			ErrMalformedWindow, end.Format(dayLayout), start.Format(dayLayout))
	}

	begin, last := Day(s.BeginDate), Day(s.EndDate)
	n := GridDays(start, end)
	if begin.Equal(start) && last.Equal(end) && len(s.Values) == n {
		return s, nil
	}

	out := MissingValues(n)

	// lead > 0 is the Missing prefix; lead < 0 is the count of leading values dropped.
	lead := gridOffset(start, begin)
	values := s.Values
	if lead < 0 {
		if -lead >= len(values) {
			values = nil
		} else {
			values = values[-lead:]
		}
		lead = 0
	}

	// The tail past `end` is cut by the copy bound; a short tail stays Missing.
	if lead < n {
		copy(out[lead:], values)
	}

	return DailySeries{
		Triplet:   s.Triplet,
		Element:   s.Element,
		BeginDate: start,
		EndDate:   end,
		Values:    out,
	}, nil
}
