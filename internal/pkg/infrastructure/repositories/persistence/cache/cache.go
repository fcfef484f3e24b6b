package cache

import (
	"context"
	"slices"
	"time"

	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/repositories/persistence"
	gocache "github.com/patrickmn/go-cache"
)

type cachedStore struct {
	cache   *gocache.Cache
	durable persistence.Backend
}

// New returns a local cache that mirrors durable. Saves go to the durable
// backend first and only reach the cache when that succeeds. With a nil
// durable backend the cache is the only copy and entries never expire.
func New(durable persistence.Backend, expiration time.Duration) persistence.Backend {
	if durable == nil || expiration <= 0 {
		expiration = gocache.NoExpiration
	}

	return &cachedStore{
		cache:   gocache.New(expiration, 10*time.Minute),
		durable: durable,
	}
}

func (s *cachedStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := persistence.ValidateName(name); err != nil {
		return nil, err
	}

	if v, ok := s.cache.Get(name); ok {
		return slices.Clone(v.([]byte)), nil
	}

	if s.durable == nil {
		return nil, persistence.ErrBlobNotFound
	}

	data, err := s.durable.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	s.cache.SetDefault(name, slices.Clone(data))

	return data, nil
}

func (s *cachedStore) Save(ctx context.Context, name string, data []byte) error {
	if err := persistence.ValidateName(name); err != nil {
		return err
	}

	if s.durable != nil {
		if err := s.durable.Save(ctx, name, data); err != nil {
			return err
		}
	}

	s.cache.SetDefault(name, slices.Clone(data))

	return nil
}
