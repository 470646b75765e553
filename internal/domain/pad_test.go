package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []Value {
	out := make([]Value, n)
	for i := range out {
		out[i] = Present(float64(i + 1))
	}
	return out
}

func TestPad(t *testing.T) {
	t.Run("late start gets missing prefix", func(t *testing.T) {
		s := DailySeries{
			Triplet:   "1000:CO:SNTL",
			BeginDate: date(2020, time.October, 5),
			EndDate:   date(2021, time.September, 30),
			Values:    ramp(362),
		}
		start, end := date(2020, time.October, 1), date(2021, time.September, 30)

		got, err := Pad(s, start, end)
		require.NoError(t, err)
		require.Len(t, got.Values, DaysInWaterYear)
		for i := 0; i < 4; i++ {
			assert.True(t, got.Values[i].IsMissing(), "index %d", i)
		}
		assert.Equal(t, s.Values, got.Values[4:])
		assert.Equal(t, start, got.BeginDate)
		assert.Equal(t, end, got.EndDate)
		assert.Equal(t, s.Triplet, got.Triplet)
	})

	t.Run("early start is truncated", func(t *testing.T) {
		s := DailySeries{
			BeginDate: date(2020, time.September, 29),
			EndDate:   date(2020, time.October, 3),
			Values:    ramp(5),
		}
		got, err := Pad(s, date(2020, time.October, 1), date(2020, time.October, 3))
		require.NoError(t, err)
		assert.Equal(t, Floats(3, 4, 5), got.Values)
	})

	t.Run("long tail is truncated", func(t *testing.T) {
		s := DailySeries{
			BeginDate: date(2020, time.October, 1),
			EndDate:   date(2020, time.October, 10),
			Values:    ramp(10),
		}
		got, err := Pad(s, date(2020, time.October, 1), date(2020, time.October, 5))
		require.NoError(t, err)
		assert.Equal(t, Floats(1, 2, 3, 4, 5), got.Values)
	})

	t.Run("short tail gets missing suffix", func(t *testing.T) {
		s := DailySeries{
			BeginDate: date(2020, time.October, 1),
			EndDate:   date(2020, time.October, 3),
			Values:    ramp(3),
		}
		got, err := Pad(s, date(2020, time.October, 1), date(2020, time.October, 5))
		require.NoError(t, err)
		assert.Equal(t, append(Floats(1, 2, 3), Missing, Missing), got.Values)
	})

	t.Run("matching window is returned unchanged", func(t *testing.T) {
		s := DailySeries{
			BeginDate: date(2020, time.October, 1),
			EndDate:   date(2020, time.October, 3),
			Values:    ramp(3),
		}
		got, err := Pad(s, s.BeginDate, s.EndDate)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	})

	t.Run("matching dates with short values are filled to window length", func(t *testing.T) {
		s := DailySeries{
			BeginDate: date(2020, time.October, 1),
			EndDate:   date(2020, time.October, 5),
			Values:    ramp(3),
		}
		got, err := Pad(s, s.BeginDate, s.EndDate)
		require.NoError(t, err)
		assert.Equal(t, append(Floats(1, 2, 3), Missing, Missing), got.Values)
	})

	t.Run("matching dates with surplus values are truncated", func(t *testing.T) {
		s := DailySeries{
			BeginDate: date(2020, time.October, 1),
			EndDate:   date(2020, time.October, 3),
			Values:    ramp(5),
		}
		got, err := Pad(s, s.BeginDate, s.EndDate)
		require.NoError(t, err)
		assert.Equal(t, Floats(1, 2, 3), got.Values)
	})

	t.Run("record wholly outside window", func(t *testing.T) {
		start, end := date(2020, time.October, 1), date(2020, time.October, 3)
		before := DailySeries{BeginDate: date(2020, time.January, 1), EndDate: date(2020, time.January, 5), Values: ramp(5)}
		after := DailySeries{BeginDate: date(2021, time.January, 1), EndDate: date(2021, time.January, 5), Values: ramp(5)}

		for _, s := range []DailySeries{before, after} {
			got, err := Pad(s, start, end)
			require.NoError(t, err)
			assert.Equal(t, MissingValues(3), got.Values)
		}
	})

	t.Run("length spans non-leap feb 29 slots", func(t *testing.T) {
		start, end := WaterYearStart(2016), date(2019, time.June, 1)
		s := DailySeries{BeginDate: start, EndDate: date(2019, time.January, 1), Values: ramp(10)}

		got, err := Pad(s, start, end)
		require.NoError(t, err)
		assert.Len(t, got.Values, GridDays(start, end))
	})

	t.Run("missing end date", func(t *testing.T) {
		s := DailySeries{Triplet: "1000:CO:SNTL", BeginDate: date(2020, time.October, 1), Values: ramp(3)}
		_, err := Pad(s, date(2020, time.October, 1), date(2020, time.October, 3))
		assert.ErrorIs(t, err, ErrMissingEndDate)
	})

	t.Run("missing begin date", func(t *testing.T) {
		s := DailySeries{EndDate: date(2020, time.October, 3), Values: ramp(3)}
		_, err := Pad(s, date(2020, time.October, 1), date(2020, time.October, 3))
		assert.ErrorIs(t, err, ErrMissingBeginDate)
	})

	t.Run("window ends before it starts", func(t *testing.T) {
		s := DailySeries{BeginDate: date(2020, time.October, 1), EndDate: date(2020, time.October, 3), Values: ramp(3)}
		_, err := Pad(s, date(2020, time.October, 3), date(2020, time.October, 1))
		assert.ErrorIs(t, err, ErrMalformedWindow)
	})
}

func TestPad_Idempotent(t *testing.T) {
	begin, end := date(2017, time.January, 15), date(2019, time.May, 1)
	s := DailySeries{
		Triplet:   "1000:CO:SNTL",
		Element:   ElementSWE,
		BeginDate: begin,
		EndDate:   end,
		Values:    ramp(GridDays(begin, end)),
	}

	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"head padded across three non-leap years", date(2016, time.October, 1), date(2020, time.January, 1)},
		{"head truncated to one water year", date(2017, time.March, 1), date(2018, time.February, 28)},
		{"window straddles a non-leap feb 29 slot", date(2018, time.February, 28), date(2018, time.March, 1)},
		{"tail padded past the record", date(2018, time.October, 1), date(2019, time.September, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once, err := Pad(s, tt.start, tt.end)
			require.NoError(t, err)
			require.Len(t, once.Values, GridDays(tt.start, tt.end))

			twice, err := Pad(once, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}
}
