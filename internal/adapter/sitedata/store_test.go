package sitedata

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/snow-flow-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTriplet = "1000:CO:SNTL"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func TestFileName(t *testing.T) {
	assert.Equal(t, "1000_CO_SNTL.json", FileName(testTriplet))
}

func TestStore_Series(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "WTEQ"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "WTEQ", "1000_CO_SNTL.json"), []byte(`{
		"stationTriplet": "1000:CO:SNTL",
		"beginDate": "2020-10-01 00:00:00",
		"endDate": "2020-10-03 00:00:00",
		"values": [1.5, null, 2.5]
	}`), 0o644))

	store := NewStore(dir, discardLogger())

	t.Run("found", func(t *testing.T) {
		s, err := store.Series(context.Background(), "wteq", testTriplet)
		require.NoError(t, err)
		assert.Equal(t, testTriplet, s.Triplet)
		assert.Equal(t, "WTEQ", s.Element)
		assert.Equal(t, time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC), s.BeginDate)
		assert.Equal(t, []domain.Value{domain.Present(1.5), domain.Missing, domain.Present(2.5)}, s.Values)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.Series(context.Background(), "SRDOO", testTriplet)
		assert.ErrorIs(t, err, domain.ErrSeriesNotFound)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := store.Series(ctx, "WTEQ", testTriplet)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStore_SeriesCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "WTEQ"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "WTEQ", "1000_CO_SNTL.json"), []byte(`{not json`), 0o644))

	_, err := NewStore(dir, discardLogger()).Series(context.Background(), "WTEQ", testTriplet)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSeriesNotFound)
}

func TestStore_PutRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), discardLogger())
	raw := domain.RawSeries{
		StationTriplet: testTriplet,
		BeginDate:      strPtr("2020-10-01 00:00:00"),
		EndDate:        nil,
		Values:         domain.Floats(1, 2),
	}
	require.NoError(t, store.Put("SRDOX", raw))

	s, err := store.Series(context.Background(), "SRDOX", testTriplet)
	require.NoError(t, err)
	assert.True(t, s.EndDate.IsZero())
	assert.Equal(t, raw.Values, s.Values)
}
