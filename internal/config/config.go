package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"persona-engine/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Detect   DetectConfig   `mapstructure:"detect"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CatalogConfig points at the persona catalog artifact.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// DetectConfig tunes the signal detectors.
type DetectConfig struct {
	Subscription        SubscriptionConfig `mapstructure:"subscription"`
	EssentialCategories []string           `mapstructure:"essential_categories"`
}

// SubscriptionConfig governs recurring-merchant detection.
type SubscriptionConfig struct {
	MinRecurrences       int `mapstructure:"min_recurrences"`
	CadenceToleranceDays int `mapstructure:"cadence_tolerance_days"`
}

// BatchConfig governs batch evaluation runs.
type BatchConfig struct {
	Workers         int   `mapstructure:"workers"`
	AdvisoryLockKey int64 `mapstructure:"advisory_lock_key"`
}

// ScheduleConfig governs the periodic re-evaluation loop.
type ScheduleConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// PublishConfig captures Kafka event publishing.
type PublishConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxRows int `mapstructure:"max_rows"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PERSONAENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "personad")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("catalog.path", "personas.yaml")

	v.SetDefault("detect.subscription.min_recurrences", 3)
	v.SetDefault("detect.subscription.cadence_tolerance_days", 4)

	v.SetDefault("batch.workers", 8)
	v.SetDefault("batch.advisory_lock_key", int64(0x70657273))

	v.SetDefault("schedule.interval", "24h")
	v.SetDefault("schedule.align_to_interval", true)
	v.SetDefault("schedule.startup_delay", "0s")

	v.SetDefault("publish.enabled", false)
	v.SetDefault("publish.topic", "persona.assignments")

	v.SetDefault("export.max_rows", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers must be greater than zero")
	}
	if c.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval must be greater than zero")
	}
	if c.Export.MaxRows <= 0 {
		return fmt.Errorf("export.max_rows must be greater than zero")
	}
	if c.Detect.Subscription.MinRecurrences < 2 {
		return fmt.Errorf("detect.subscription.min_recurrences must be at least 2")
	}
	if c.Detect.Subscription.CadenceToleranceDays < 0 {
		return fmt.Errorf("detect.subscription.cadence_tolerance_days cannot be negative")
	}
	if c.Publish.Enabled {
		if len(c.Publish.Brokers) == 0 {
			return fmt.Errorf("publish.brokers is required when publishing is enabled")
		}
		if c.Publish.Topic == "" {
			return fmt.Errorf("publish.topic is required when publishing is enabled")
		}
	}
	return nil
}
