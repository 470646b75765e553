package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// MaxFetchWorkers bounds concurrent site record loads per chart.
const MaxFetchWorkers = 8

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Site record store.
	SiteDataDir     string
	SeriesCacheSize int
	SeriesCacheTTL  time.Duration
	FetchWorkers    int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("SERIES_CACHE_SIZE", "256", 1<<20)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parseCacheTTL()
	if err != nil {
		return nil, err
	}

	workers, err := parsePositiveInt("FETCH_WORKERS", strconv.Itoa(MaxFetchWorkers), MaxFetchWorkers)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "chart-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "snow-flow-charts"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "snow-flow-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		SiteDataDir:     sharedcfg.EnvOrDefault("SITEDATA_DIR", "data/sitedata"),
		SeriesCacheSize: cacheSize,
		SeriesCacheTTL:  cacheTTL,
		FetchWorkers:    workers,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.SiteDataDir == "" {
		return nil, errors.New("SITEDATA_DIR is required")
	}

	return cfg, nil
}

func parsePositiveInt(key, def string, maxVal int) (int, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > maxVal {
		return 0, fmt.Errorf("invalid %s %q: must be between 1 and %d", key, s, maxVal)
	}
	return n, nil
}

// parseCacheTTL reads SERIES_CACHE_TTL. Zero turns off age-based expiry; the
// cache still reloads records whose files change.
func parseCacheTTL() (time.Duration, error) {
	s := sharedcfg.EnvOrDefault("SERIES_CACHE_TTL", "15m")
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid SERIES_CACHE_TTL %q: must be a non-negative duration", s)
	}
	return d, nil
}
