// Package config loads the service configuration from the environment, with
// optional .env support for local runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable of the telemetry services. One struct is
// shared by both binaries; each reads the fields it needs.
type Config struct {
	Brokers []string

	SensorTopic   string
	SnapshotTopic string
	HubTopic      string

	AggregatorGroup string
	HubGroup        string
	SnapshotGroup   string

	PollTimeout    time.Duration
	MaxPollRecords int
	CommitEvery    int

	AggregatorHTTPAddr string
	AnalyzerHTTPAddr   string

	HubRouterURL    string
	DispatchTimeout time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Brokers:            getList("KAFKA_BROKERS", "localhost:9092"),
		SensorTopic:        getString("SENSOR_TOPIC", "telemetry.sensors.v1"),
		SnapshotTopic:      getString("SNAPSHOT_TOPIC", "telemetry.snapshots.v1"),
		HubTopic:           getString("HUB_TOPIC", "telemetry.hubs.v1"),
		AggregatorGroup:    getString("AGGREGATOR_GROUP", "aggregator"),
		HubGroup:           getString("HUB_GROUP", "consumer-client-hub"),
		SnapshotGroup:      getString("SNAPSHOT_GROUP", "consumer-client-snapshot"),
		AggregatorHTTPAddr: getString("AGGREGATOR_HTTP_ADDR", ":8091"),
		AnalyzerHTTPAddr:   getString("ANALYZER_HTTP_ADDR", ":8092"),
		HubRouterURL:       getString("HUB_ROUTER_URL", "http://localhost:59090"),
	}

	var err error
	if cfg.PollTimeout, err = getDuration("POLL_TIMEOUT", 100*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.MaxPollRecords, err = getInt("MAX_POLL_RECORDS", 500); err != nil {
		return Config{}, err
	}
	if cfg.CommitEvery, err = getInt("COMMIT_EVERY", 10); err != nil {
		return Config{}, err
	}
	if cfg.DispatchTimeout, err = getDuration("DISPATCH_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures the configuration is internally consistent before use.
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("at least one kafka broker is required")
	}
	for _, topic := range []string{c.SensorTopic, c.SnapshotTopic, c.HubTopic} {
		if strings.TrimSpace(topic) == "" {
			return errors.New("topic names must not be empty")
		}
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive: %s", c.PollTimeout)
	}
	if c.MaxPollRecords <= 0 {
		return fmt.Errorf("max poll records must be positive: %d", c.MaxPollRecords)
	}
	if c.CommitEvery < 0 {
		return fmt.Errorf("commit every must not be negative: %d", c.CommitEvery)
	}
	if strings.TrimSpace(c.HubRouterURL) == "" {
		return errors.New("hub router url is required")
	}
	return nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getList(key, def string) []string {
	raw := getString(key, def)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
