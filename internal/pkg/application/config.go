package application

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/diwise/iot-inventory-admin/internal/pkg/application/events"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/repositories/persistence"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/repositories/persistence/cache"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/repositories/persistence/database"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/repositories/persistence/file"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/repositories/persistence/objectstore"
	"github.com/rs/zerolog"
	yaml "gopkg.in/yaml.v2"
)

const (
	BackendFile     string = "file"
	BackendDatabase string = "database"
	BackendS3       string = "s3"
	BackendCache    string = "cache"
	BackendMemory   string = "memory"
)

type FileConfig struct {
	Dir string `yaml:"dir"`
}

type DatabaseConfig struct {
	Driver   string                  `yaml:"driver"`
	DSN      string                  `yaml:"dsn"`
	Postgres database.PostgresConfig `yaml:"postgres"`
}

type CacheConfig struct {
	Durable    string        `yaml:"durable"`
	Expiration time.Duration `yaml:"expiration"`
}

type PersistenceConfig struct {
	Backend  string             `yaml:"backend"`
	File     FileConfig         `yaml:"file"`
	Database DatabaseConfig     `yaml:"database"`
	S3       objectstore.Config `yaml:"s3"`
	Cache    CacheConfig        `yaml:"cache"`
}

type LoginConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	Burst             int `yaml:"burst"`
}

type Config struct {
	Locale         string            `yaml:"locale"`
	AllowedOrigins []string          `yaml:"allowedOrigins"`
	Persistence    PersistenceConfig `yaml:"persistence"`
	Login          LoginConfig       `yaml:"login"`
	Notifications  events.Config     `yaml:",inline"`
}

func defaultConfig() Config {
	return Config{
		Locale: "en",
		Persistence: PersistenceConfig{
			Backend: BackendFile,
			File:    FileConfig{Dir: "/opt/diwise/data"},
		},
		Login: LoginConfig{
			RequestsPerMinute: 10,
			Burst:             5,
		},
	}
}

func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// NewBackend creates the persistence backend selected in cfg.
func NewBackend(ctx context.Context, logger zerolog.Logger, cfg PersistenceConfig) (persistence.Backend, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return file.NewOnDisk(cfg.File.Dir)
	case BackendDatabase:
		if cfg.Database.Driver == "postgres" {
			return database.New(database.NewPostgreSQLConnector(logger, cfg.Database.Postgres))
		}
		return database.New(database.NewSQLiteConnector(logger, cfg.Database.DSN))
	case BackendS3:
		return objectstore.New(ctx, cfg.S3)
	case BackendMemory:
		return cache.New(nil, 0), nil
	case BackendCache:
		if cfg.Cache.Durable == BackendCache {
			return nil, fmt.Errorf("cache backend can not be its own durable store")
		}

		var durable persistence.Backend
		if cfg.Cache.Durable != "" && cfg.Cache.Durable != BackendMemory {
			inner := cfg
			inner.Backend = cfg.Cache.Durable

			var err error
			durable, err = NewBackend(ctx, logger, inner)
			if err != nil {
				return nil, err
			}
		}

		return cache.New(durable, cfg.Cache.Expiration), nil
	}

	return nil, fmt.Errorf("unknown persistence backend %q", cfg.Backend)
}
