// Package sitedata reads cached AWDB station records from disk.
//
// Records live at <root>/<ELEMENT>/<triplet>.json with the triplet's colons
// replaced by underscores, each holding one JSON object with stationTriplet,
// beginDate, endDate and a dense values array (null for missing days).
package sitedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/snow-flow-etl/internal/domain"
)

// Store is a domain.SeriesSource backed by a directory tree.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{root: dir, logger: logger}
}

// FileName maps a triplet to its record file name.
func FileName(triplet string) string {
	return strings.ReplaceAll(triplet, ":", "_") + ".json"
}

// Path returns where the record for element and triplet is stored.
func (s *Store) Path(element, triplet string) string {
	return filepath.Join(s.root, strings.ToUpper(element), FileName(triplet))
}

// Series loads and parses one record.
func (s *Store) Series(ctx context.Context, element, triplet string) (domain.DailySeries, error) {
	if err := ctx.Err(); err != nil {
		return domain.DailySeries{}, err
	}

	path := s.Path(element, triplet)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.DailySeries{}, fmt.Errorf("%s %s: %w", element, triplet, domain.ErrSeriesNotFound)
		}
		return domain.DailySeries{}, fmt.Errorf("read %s: %w", path, err)
	}

	var raw domain.RawSeries
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.DailySeries{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if raw.StationTriplet == "" {
		raw.StationTriplet = triplet
	}

	series, err := domain.ParseSeries(raw)
	if err != nil {
		return domain.DailySeries{}, err
	}
	series.Element = strings.ToUpper(element)

	s.logger.Debug("series loaded", "element", series.Element, "triplet", triplet, "days", len(series.Values))
	return series, nil
}

// Version identifies one revision of a record file.
type Version struct {
	ModTime time.Time
	Size    int64
}

// Equal reports whether two versions describe the same file revision.
func (v Version) Equal(o Version) bool {
	return v.ModTime.Equal(o.ModTime) && v.Size == o.Size
}

// Version stats the record file without reading it.
func (s *Store) Version(ctx context.Context, element, triplet string) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	path := s.Path(element, triplet)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Version{}, fmt.Errorf("%s %s: %w", element, triplet, domain.ErrSeriesNotFound)
		}
		return Version{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return Version{ModTime: info.ModTime(), Size: info.Size()}, nil
}

// Put writes a record in the layout Series reads.
func (s *Store) Put(element string, raw domain.RawSeries) error {
	path := s.Path(element, raw.StationTriplet)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode %s: %w", raw.StationTriplet, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
