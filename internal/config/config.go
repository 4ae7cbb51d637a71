// Package config gathers every runtime setting into one Config value that is
// read once at startup and handed to each component's constructor.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/env"
)

// ErrMissingAPIKey is returned by RequireAPIKey when no Maps key is set.
var ErrMissingAPIKey = errors.New("environment variable GOOGLE_MAPS_API_KEY not set")

type Config struct {
	APIKey string

	Root          string
	DropDir       string
	ProcessedDir  string
	AddressesFile string
	ReferenceFile string

	ShelfLife      time.Duration
	PageTokenDelay time.Duration
	QueryDelay     time.Duration
	DetailDelay    time.Duration

	HTTPTimeout  time.Duration
	RetryMax     int
	RetryBackoff time.Duration

	MapMinRating   float64
	MapPriceLevels []int

	// NominatimURL enables the OpenStreetMap fallback for coordinate repair.
	NominatimURL string

	S3       S3Config
	Kafka    KafkaConfig
	Postgres string

	PushgatewayURL string
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Enabled reports whether enough settings exist to reach an object store.
func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

type KafkaConfig struct {
	Broker  string
	Topic   string
	GroupID string
}

func (c KafkaConfig) Enabled() bool {
	return c.Broker != "" && c.Topic != ""
}

// Load reads a .env file if present and then the process environment.
func Load() (*Config, error) {
	env.LoadEnv()

	root := env.String("ROOT", ".")
	cfg := &Config{
		APIKey:         env.String("GOOGLE_MAPS_API_KEY", ""),
		Root:           root,
		DropDir:        env.String("FILE_DROP_PATH", filepath.Join(root, "reports")),
		ProcessedDir:   env.String("PROCESSED_PATH", filepath.Join(root, "reports_processed")),
		AddressesFile:  env.String("ADDRESSES_FILE", filepath.Join(root, "address_secrets.json")),
		ReferenceFile:  env.String("REFERENCE_PLACES_FILE", filepath.Join(root, "address_secrets_restaurants.json")),
		NominatimURL:   env.String("NOMINATIM_URL", ""),
		Postgres:       env.String("PG_DSN", ""),
		PushgatewayURL: env.String("PUSHGATEWAY_URL", ""),
		S3: S3Config{
			Endpoint:  env.String("MINIO_ENDPOINT", ""),
			AccessKey: env.String("MINIO_ACCESS_KEY", ""),
			SecretKey: env.String("MINIO_SECRET_KEY", ""),
			Bucket:    env.String("RUNS_BUCKET", ""),
		},
		Kafka: KafkaConfig{
			Broker:  env.String("KAFKA_BROKER", ""),
			Topic:   env.String("KAFKA_TOPIC", ""),
			GroupID: env.String("KAFKA_GROUP_ID", "restaurant-merger"),
		},
	}

	var errs []error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"SHELF_LIFE", 48 * time.Hour, &cfg.ShelfLife},
		{"PAGE_TOKEN_DELAY", 2 * time.Second, &cfg.PageTokenDelay},
		{"QUERY_DELAY", time.Second, &cfg.QueryDelay},
		{"DETAIL_DELAY", time.Second, &cfg.DetailDelay},
		{"HTTP_TIMEOUT", 30 * time.Second, &cfg.HTTPTimeout},
		{"RETRY_BACKOFF", time.Second, &cfg.RetryBackoff},
	}
	for _, d := range durations {
		v, err := env.Duration(d.key, d.def)
		errs = append(errs, err)
		*d.dst = v
	}

	var err error
	cfg.RetryMax, err = env.Int("RETRY_MAX", 3)
	errs = append(errs, err)
	cfg.MapMinRating, err = env.Float("MAP_MIN_RATING", 4.0)
	errs = append(errs, err)
	cfg.MapPriceLevels, err = env.Ints("MAP_PRICE_LEVELS", []int{3, 4})
	errs = append(errs, err)
	cfg.S3.UseSSL, err = env.Bool("MINIO_USE_SSL", false)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if cfg.RetryMax < 1 {
		return nil, fmt.Errorf("RETRY_MAX must be at least 1, got %d", cfg.RetryMax)
	}
	return cfg, nil
}

// RequireAPIKey fails when the Maps key is absent. Commands that call the
// Maps services treat this as fatal.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// EnsureDirs creates the drop and processed directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DropDir, c.ProcessedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}
	return nil
}

// MapDir is where rendered HTML maps are written.
func (c *Config) MapDir() string {
	return filepath.Join(c.ProcessedDir, "map_files")
}
