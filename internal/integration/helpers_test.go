//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/snow-flow-etl/internal/adapter/sitedata"
	"github.com/couchcryptid/snow-flow-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

// Fixture forecast points. cameo has adjusted flow, dolores only observed flow,
// and dry has snow sites but no flow record at all.
const (
	cameo   = "09095500:CO:USGS"
	dolores = "09166500:CO:USGS"
	dry     = "09999999:CO:USGS"

	siteA = "1000:CO:SNTL"
	siteB = "1001:CO:SNTL"
	siteC = "1002:CO:SNTL"
)

var fixtureNow = time.Date(2023, time.January, 15, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	kc, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("snow-flow-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(kc); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := kc.Brokers(ctx)
	require.NoError(t, err, "kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic %s", topic)
}

// freezeClock pins the analysis date so fixture windows are stable.
func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(fixtureNow))
	t.Cleanup(func() { domain.SetClock(nil) })
}

// writeSiteData populates a site data directory with three water years of
// records ending at fixtureNow and returns its path.
func writeSiteData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	store := sitedata.NewStore(dir, discardLogger())

	start := domain.WaterYearStart(2020)
	put := func(element, triplet string, begin time.Time, scale float64) {
		end := domain.Day(fixtureNow)
		vals := make([]domain.Value, domain.GridDays(begin, end))
		for i := range vals {
			vals[i] = domain.Present(scale * float64(i/domain.DaysInWaterYear+1))
		}
		b, e := begin.Format("2006-01-02 15:04:05"), end.Format("2006-01-02 15:04:05")
		require.NoError(t, store.Put(element, domain.RawSeries{
			StationTriplet: triplet, BeginDate: &b, EndDate: &e, Values: vals,
		}))
	}

	put(domain.ElementSWE, siteA, start, 10)
	put(domain.ElementSWE, siteB, start, 14)
	put(domain.ElementSWE, siteC, domain.WaterYearStart(2021), 8)
	put(domain.ElementFlowAdjusted, cameo, start, 900)
	put(domain.ElementFlowObserved, dolores, start, 300)
	return dir
}
