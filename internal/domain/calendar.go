package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DaysInWaterYear is the length of every water year on the day grid.
	DaysInWaterYear = 366

	// leapDayIndex is the Feb 29 slot; leapDayIndex-1 is Feb 28.
	leapDayIndex = 151

	awdbLayout = "2006-01-02 15:04:05"
	dayLayout  = "2006-01-02"
)

// axisYear is the nominal water year used for chart x-coordinates. It starts
// Oct 1 2015 so the axis includes Feb 29 2016.
const axisYear = 2015

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an AWDB date ("2006-01-02 15:04:05" or "2006-01-02") and
// drops the time of day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layout := awdbLayout
	if len(s) == len(dayLayout) {
		layout = dayLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Day(t), nil
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// NonLeapYearsBetween counts the non-leap years whose Feb 29 slot falls between
// start and end. The first year counted is start's year, or the next one when
// start is after February; the last is end's year, or the previous one when end
// is before March. Equal dates count zero.
func NonLeapYearsBetween(start, end time.Time) int {
	sYear := start.Year()
	if start.Month() > time.February {
		sYear++
	}
	eYear := end.Year()
	if end.Month() < time.March {
		eYear--
	}

	n := 0
	for y := sYear; y <= eYear; y++ {
		if !isLeap(y) {
			n++
		}
	}
	return n
}

// DaysBetween returns the calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(Day(end).Sub(Day(start)) / (24 * time.Hour))
}

// GridDays returns the number of day-grid slots in [start, end] inclusive.
func GridDays(start, end time.Time) int {
	return DaysBetween(start, end) + 1 + NonLeapYearsBetween(start, end)
}

// gridOffset returns the signed number of grid slots from `from` to `to`.
func gridOffset(from, to time.Time) int {
	if to.Before(from) {
		return -gridOffset(to, from)
	}
	return DaysBetween(from, to) + NonLeapYearsBetween(from, to)
}

// WaterYearStart returns Oct 1 of year.
func WaterYearStart(year int) time.Time {
	return time.Date(year, time.October, 1, 0, 0, 0, 0, time.UTC)
}

// WaterYearOf returns the label of the water year containing t.
func WaterYearOf(t time.Time) int {
	if t.Month() >= time.October {
		return t.Year() + 1
	}
	return t.Year()
}

// DateAxis returns the 366 chart x-coordinates, Oct 1 through Sep 30 of a
// nominal leap water year.
func DateAxis() []time.Time {
	start := WaterYearStart(axisYear)
	axis := make([]time.Time, DaysInWaterYear)
	for i := range axis {
		axis[i] = start.AddDate(0, 0, i)
	}
	return axis
}
