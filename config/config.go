package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the daemon configuration.
type Config struct {
	App   AppConfig   `envPrefix:"APP_"`
	HTTP  HTTPConfig  `envPrefix:"HTTP_"`
	Store StoreConfig `envPrefix:"STORE_"`
	Kafka KafkaConfig `envPrefix:"KAFKA_"`
	Pair  PairConfig  `envPrefix:"PAIR_"`
}

// AppConfig represents the application configuration.
type AppConfig struct {
	Name     string `env:"NAME" envDefault:"orderbookd"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
	// RingSize is the capacity of the async publication buffer, a power of two.
	RingSize int64 `env:"RING_SIZE" envDefault:"4096"`
}

// HTTPConfig represents the API server configuration.
type HTTPConfig struct {
	Addr            string   `env:"ADDR" envDefault:":8080"`
	AllowedOrigins  []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	ShutdownTimeout int      `env:"SHUTDOWN_TIMEOUT" envDefault:"10"` // seconds
}

// StoreConfig represents the persistence configuration.
type StoreConfig struct {
	DataDir string `env:"DATA_DIR" envDefault:"./data"`
	// SnapshotEvery saves a snapshot after this many journaled commands; 0 disables it.
	SnapshotEvery uint64 `env:"SNAPSHOT_EVERY" envDefault:"1000"`
}

// KafkaConfig represents the book log publisher configuration.
type KafkaConfig struct {
	Enabled bool     `env:"ENABLED" envDefault:"false"`
	Brokers []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC" envDefault:"book-logs"`
}

// PairConfig optionally initializes the pair at startup when the store is empty.
type PairConfig struct {
	BaseAsset     string `env:"BASE_ASSET"`
	QuoteAsset    string `env:"QUOTE_ASSET"`
	PriceDecimals uint8  `env:"PRICE_DECIMALS" envDefault:"9"`
}

// Bootstrap reports whether the pair should be initialized from configuration.
func (p PairConfig) Bootstrap() bool {
	return p.BaseAsset != "" && p.QuoteAsset != ""
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if c.App.RingSize <= 0 || c.App.RingSize&(c.App.RingSize-1) != 0 {
		return fmt.Errorf("APP_RING_SIZE must be a power of two, got %d", c.App.RingSize)
	}
	if (c.Pair.BaseAsset == "") != (c.Pair.QuoteAsset == "") {
		return fmt.Errorf("PAIR_BASE_ASSET and PAIR_QUOTE_ASSET must be set together")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	return nil
}
