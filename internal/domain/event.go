package domain

import (
	"context"
	"time"
)

// RawEvent is an unprocessed chart request read from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is a serialized chart destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// SeriesSource loads a station's daily record for one AWDB element
// (WTEQ, SRDOO, SRDOX, ...).
type SeriesSource interface {
	Series(ctx context.Context, element, triplet string) (DailySeries, error)
}
