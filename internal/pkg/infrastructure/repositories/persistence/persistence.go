package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

//go:generate moq -rm -out backend_mock.go . Backend

// Backend stores opaque named blobs. Implementations do no validation of
// the content, they only need to return what was last saved under a name.
type Backend interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
}

const (
	UsersBlob   string = "users"
	GroupsBlob  string = "groups"
	DevicesBlob string = "devices"
)

var ErrBlobNotFound = fmt.Errorf("blob not found")
var ErrInvalidName = fmt.Errorf("invalid blob name")

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Load reads and decodes a collection. A blob that has never been saved
// is returned as an empty collection.
func Load[T any](ctx context.Context, b Backend, name string) ([]T, error) {
	data, err := b.Load(ctx, name)
	if errors.Is(err, ErrBlobNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	items := []T{}
	if len(data) == 0 {
		return items, nil
	}

	err = json.Unmarshal(data, &items)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	return items, nil
}

func Save[T any](ctx context.Context, b Backend, name string, items []T) error {
	if items == nil {
		items = []T{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	err = b.Save(ctx, name, data)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}

	return nil
}
