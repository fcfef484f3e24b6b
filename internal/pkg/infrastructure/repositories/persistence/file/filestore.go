package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/repositories/persistence"
	"github.com/spf13/afero"
)

type fileStore struct {
	fs  afero.Fs
	dir string
}

// New returns a backend that keeps each blob as <dir>/<name>.json.
func New(filesystem afero.Fs, dir string) (persistence.Backend, error) {
	if dir == "" {
		return nil, fmt.Errorf("a data directory is required")
	}

	err := filesystem.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	return &fileStore{fs: filesystem, dir: dir}, nil
}

func NewOnDisk(dir string) (persistence.Backend, error) {
	return New(afero.NewOsFs(), dir)
}

func (s *fileStore) Load(_ context.Context, name string) ([]byte, error) {
	if err := persistence.ValidateName(name); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.ErrBlobNotFound
	}

	return data, err
}

func (s *fileStore) Save(_ context.Context, name string, data []byte) error {
	if err := persistence.ValidateName(name); err != nil {
		return err
	}

	tmp, err := afero.TempFile(s.fs, s.dir, name+"-*.tmp")
	if err != nil {
		return err
	}

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.fs.Remove(tmp.Name())
		return err
	}

	err = s.fs.Rename(tmp.Name(), s.path(name))
	if err != nil {
		s.fs.Remove(tmp.Name())
		return err
	}

	return nil
}

func (s *fileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
