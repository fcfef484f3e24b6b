package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/repositories/persistence"
	"github.com/matryer/is"
)

func TestSaveWritesThroughToDurableBackend(t *testing.T) {
	is, ctx, durable, blobs := setupTest(t)
	c := New(durable, time.Minute)

	is.NoErr(c.Save(ctx, persistence.UsersBlob, []byte(`[1]`)))

	is.Equal(string(blobs[persistence.UsersBlob]), `[1]`)
	is.Equal(len(durable.SaveCalls()), 1)
}

func TestLoadIsServedFromCacheAfterFirstRead(t *testing.T) {
	is, ctx, durable, blobs := setupTest(t)
	blobs[persistence.GroupsBlob] = []byte(`[2]`)
	c := New(durable, time.Minute)

	first, err := c.Load(ctx, persistence.GroupsBlob)
	is.NoErr(err)
	second, err := c.Load(ctx, persistence.GroupsBlob)
	is.NoErr(err)

	is.Equal(string(first), `[2]`)
	is.Equal(string(second), `[2]`)
	is.Equal(len(durable.LoadCalls()), 1)
}

func TestFailedDurableSaveLeavesCacheUntouched(t *testing.T) {
	is, ctx, durable, _ := setupTest(t)
	c := New(durable, time.Minute)

	is.NoErr(c.Save(ctx, persistence.DevicesBlob, []byte(`["old"]`)))

	boom := errors.New("disk full")
	durable.SaveFunc = func(ctx context.Context, name string, data []byte) error {
		return boom
	}

	err := c.Save(ctx, persistence.DevicesBlob, []byte(`["new"]`))
	is.True(errors.Is(err, boom))

	data, err := c.Load(ctx, persistence.DevicesBlob)
	is.NoErr(err)
	is.Equal(string(data), `["old"]`)
}

func TestStandaloneCache(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c := New(nil, time.Millisecond)

	_, err := c.Load(ctx, persistence.UsersBlob)
	is.True(errors.Is(err, persistence.ErrBlobNotFound))

	is.NoErr(c.Save(ctx, persistence.UsersBlob, []byte(`[]`)))
	time.Sleep(5 * time.Millisecond)

	data, err := c.Load(ctx, persistence.UsersBlob)
	is.NoErr(err)
	is.Equal(string(data), `[]`)
}

func setupTest(t *testing.T) (*is.I, context.Context, *persistence.BackendMock, map[string][]byte) {
	is := is.New(t)
	blobs := map[string][]byte{}

	durable := &persistence.BackendMock{
		LoadFunc: func(ctx context.Context, name string) ([]byte, error) {
			if data, ok := blobs[name]; ok {
				return data, nil
			}
			return nil, persistence.ErrBlobNotFound
		},
		SaveFunc: func(ctx context.Context, name string, data []byte) error {
			blobs[name] = data
			return nil
		},
	}

	return is, context.Background(), durable, blobs
}
