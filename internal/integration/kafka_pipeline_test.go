//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/snow-flow-etl/internal/adapter/kafka"
	"github.com/couchcryptid/snow-flow-etl/internal/adapter/sitedata"
	"github.com/couchcryptid/snow-flow-etl/internal/config"
	"github.com/couchcryptid/snow-flow-etl/internal/domain"
	"github.com/couchcryptid/snow-flow-etl/internal/observability"
	"github.com/couchcryptid/snow-flow-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-chart-requests"
	testSinkTopic   = "test-charts"
)

// chartMessage holds a deserialized message read from the sink topic.
type chartMessage struct {
	Chart   domain.Chart
	Key     string
	Headers map[string]string
}

// readChart reads a single message from the sink consumer and deserializes it.
func readChart(ctx context.Context, t *testing.T, consumer *kafkago.Reader) chartMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var chart domain.Chart
	require.NoError(t, json.Unmarshal(msg.Value, &chart), "unmarshal sink message")

	return chartMessage{Chart: chart, Key: string(msg.Key), Headers: headers}
}

func request(forecast string, sites ...string) kafkago.Message {
	payload := fmt.Sprintf(`{"forecast_triplet":%q,"name":"test","snow_triplets":%s}`, forecast, mustJSON(sites))
	return kafkago.Message{Key: []byte(forecast), Value: []byte(payload)}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (extractor) and
// kafka.Writer (loader) round-trip a chart request and its chart through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	freezeClock(t)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	msg := request(cameo, siteA, siteB)
	require.NoError(t, producer.WriteMessages(ctx, msg))

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte(cameo), raw.Key)
	assert.Equal(t, msg.Value, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	store := sitedata.NewStore(writeSiteData(t), discardLogger())
	builder := pipeline.NewChartBuilder(store, 4, discardLogger(), observability.NewMetricsForTesting())
	out, err := builder.Transform(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.OutputEvent{out}))

	cm := readChart(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, cameo, cm.Key)
	assert.Equal(t, cameo, cm.Headers["forecast_triplet"])
	_, err = time.Parse(time.RFC3339, cm.Headers["generated_at"])
	assert.NoError(t, err, "generated_at should be valid RFC3339")

	assert.Equal(t, []string{siteA, siteB}, cm.Chart.Sites)
	assert.Equal(t, domain.ElementFlowAdjusted, cm.Chart.FlowElement)
	assert.Equal(t, 2023, cm.Chart.CurrentYear)
	assert.Empty(t, domain.ValidateChart(cm.Chart))
}

// TestPipelineEndToEnd wires the full pipeline (Reader, ChartBuilder, Writer)
// with real Kafka and checks every chartable request produces a chart while the
// rest are skipped.
func TestPipelineEndToEnd(t *testing.T) {
	freezeClock(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		request(cameo, siteA, siteB, siteC),
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		request(dry, siteA),
		request(dolores, siteB, "4040:CO:SNTL"),
	))

	source := sitedata.NewCachedSource(sitedata.NewStore(writeSiteData(t), discardLogger()), 16, time.Minute, nil)
	metrics := observability.NewMetricsForTesting()
	builder := pipeline.NewChartBuilder(source, 4, discardLogger(), metrics)

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, builder, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	received := map[string]chartMessage{}
	for len(received) < 2 {
		cm := readChart(ctx, t, consumer)
		received[cm.Key] = cm
	}

	// Nothing else should arrive: the poison pill and the dry basin are skipped.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no third message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)

	require.Contains(t, received, cameo)
	c := received[cameo].Chart
	assert.Equal(t, 3, c.CurrentSites)
	require.Len(t, c.SWE.Traces, 3)
	assert.Equal(t, 2, c.SWE.Traces[0].Sites)
	assert.False(t, c.SWE.Traces[0].BelowThreshold)
	assert.Empty(t, domain.ValidateChart(c))

	require.Contains(t, received, dolores)
	d := received[dolores].Chart
	assert.Equal(t, domain.ElementFlowObserved, d.FlowElement)
	assert.Equal(t, []string{siteB}, d.Sites)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RequestsSkipped.WithLabelValues("invalid")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RequestsSkipped.WithLabelValues("no_flow_data")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.ChartsProduced), 0)
}
