package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/civimetrics/mives/internal/engine"
)

var validate = validator.New()

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Events   EventsConfig   `yaml:"events"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port" validate:"min=1,max=65535"`
	MetricsPort int    `yaml:"metrics_port" validate:"min=1,max=65535"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	// URL is optional: empty means records live in process memory only.
	URL string `yaml:"url"`
}

type EventsConfig struct {
	// URL is optional: empty means no lifecycle events are published.
	URL string `yaml:"url"`
}

type EngineConfig struct {
	CacheCapacity   int     `yaml:"cache_capacity" validate:"min=0"`
	WeightTolerance float64 `yaml:"weight_tolerance" validate:"gte=0"`
	BatchWorkers    int     `yaml:"batch_workers" validate:"min=1"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Engine: EngineConfig{
			CacheCapacity:   engine.DefaultCacheCapacity,
			WeightTolerance: engine.DefaultWeightTolerance,
			BatchWorkers:    4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MIVES_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("MIVES_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("MIVES_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("MIVES_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("MIVES_EVENTS_URL"); v != "" {
		cfg.Events.URL = v
	}
	if v := os.Getenv("MIVES_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.CacheCapacity = n
		}
	}
	if v := os.Getenv("MIVES_WEIGHT_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.WeightTolerance = f
		}
	}
	if v := os.Getenv("MIVES_BATCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.BatchWorkers = n
		}
	}
	if v := os.Getenv("MIVES_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIVES_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
