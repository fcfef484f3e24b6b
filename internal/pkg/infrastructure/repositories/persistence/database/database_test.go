package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/repositories/persistence"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestThatSaveCreatesAndUpdatesBlob(t *testing.T) {
	is, ctx, b := setupTest(t)

	is.NoErr(b.Save(ctx, persistence.UsersBlob, []byte(`[]`)))
	is.NoErr(b.Save(ctx, persistence.UsersBlob, []byte(`[{"id":"u1"}]`)))

	data, err := b.Load(ctx, persistence.UsersBlob)
	is.NoErr(err)
	is.Equal(string(data), `[{"id":"u1"}]`)
}

func TestThatLoadOfMissingBlobReturnsNotFound(t *testing.T) {
	is, ctx, b := setupTest(t)

	_, err := b.Load(ctx, persistence.GroupsBlob)
	is.True(errors.Is(err, persistence.ErrBlobNotFound))
}

func TestThatBlobsAreKeptApart(t *testing.T) {
	is, ctx, b := setupTest(t)

	is.NoErr(b.Save(ctx, persistence.UsersBlob, []byte(`["u"]`)))
	is.NoErr(b.Save(ctx, persistence.DevicesBlob, []byte(`["d"]`)))

	users, err := b.Load(ctx, persistence.UsersBlob)
	is.NoErr(err)
	devices, err := b.Load(ctx, persistence.DevicesBlob)
	is.NoErr(err)

	is.Equal(string(users), `["u"]`)
	is.Equal(string(devices), `["d"]`)
}

func setupTest(t *testing.T) (*is.I, context.Context, persistence.Backend) {
	is := is.New(t)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	b, err := New(NewSQLiteConnector(zerolog.Logger{}, dsn))
	is.NoErr(err)

	return is, context.Background(), b
}
