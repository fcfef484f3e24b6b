package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/repositories/persistence"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestLoadConfiguration(t *testing.T) {
	is := is.New(t)

	cfg, err := LoadConfiguration(strings.NewReader(configYaml))
	is.NoErr(err)

	is.Equal(cfg.Locale, "sv")
	is.Equal(cfg.AllowedOrigins, []string{"http://localhost:3000"})
	is.Equal(cfg.Persistence.Backend, BackendCache)
	is.Equal(cfg.Persistence.Cache.Durable, BackendFile)
	is.Equal(cfg.Persistence.Cache.Expiration, 5*time.Minute)
	is.Equal(cfg.Persistence.File.Dir, "/tmp/inventory")
	is.Equal(cfg.Persistence.Database.Postgres.Host, "db")
	is.Equal(cfg.Login.RequestsPerMinute, 20)
	is.Equal(cfg.Login.Burst, 5)
	is.Equal(len(cfg.Notifications.Notifications), 1)
	is.Equal(cfg.Notifications.Notifications[0].Subscribers[0].Entities, []string{"devices"})
}

func TestThatEmptyConfigurationGetsDefaults(t *testing.T) {
	is := is.New(t)

	cfg, err := LoadConfiguration(strings.NewReader(""))
	is.NoErr(err)
	is.Equal(cfg.Locale, "en")
	is.Equal(cfg.Persistence.Backend, BackendFile)
	is.Equal(cfg.Login.RequestsPerMinute, 10)
}

func TestMemoryBackend(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	b, err := NewBackend(ctx, zerolog.Nop(), PersistenceConfig{Backend: BackendMemory})
	is.NoErr(err)

	_, err = b.Load(ctx, persistence.UsersBlob)
	is.True(err != nil)

	is.NoErr(b.Save(ctx, persistence.UsersBlob, []byte("[]")))
	data, err := b.Load(ctx, persistence.UsersBlob)
	is.NoErr(err)
	is.Equal(string(data), "[]")
}

func TestCachedFileBackend(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	cfg := PersistenceConfig{
		Backend: BackendCache,
		File:    FileConfig{Dir: t.TempDir()},
		Cache:   CacheConfig{Durable: BackendFile, Expiration: time.Minute},
	}

	b, err := NewBackend(ctx, zerolog.Nop(), cfg)
	is.NoErr(err)
	is.NoErr(b.Save(ctx, persistence.DevicesBlob, []byte(`[{"id":"d1"}]`)))

	cfg.Backend = BackendFile
	durable, err := NewBackend(ctx, zerolog.Nop(), cfg)
	is.NoErr(err)

	data, err := durable.Load(ctx, persistence.DevicesBlob)
	is.NoErr(err)
	is.Equal(string(data), `[{"id":"d1"}]`)
}

func TestUnknownBackend(t *testing.T) {
	is := is.New(t)

	_, err := NewBackend(context.Background(), zerolog.Nop(), PersistenceConfig{Backend: "tape"})
	is.True(err != nil)
}

const configYaml string = `
locale: sv
allowedOrigins:
  - http://localhost:3000
persistence:
  backend: cache
  file:
    dir: /tmp/inventory
  database:
    driver: postgres
    postgres:
      host: db
      user: diwise
  cache:
    durable: file
    expiration: 5m
login:
  requestsPerMinute: 20
notifications:
  - id: inventory
    name: Inventory changes
    type: diwise.inventory.changed
    subscribers:
      - endpoint: http://subscriber/notify
        entities:
          - devices
`
