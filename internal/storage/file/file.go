// Package file stores cart snapshots as files in a directory, one file per
// entry.
package file

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/denim-store/internal/cart"
)

var (
	_ cart.Storage = (*Storage)(nil)
	_ cart.Pinger  = (*Storage)(nil)
)

// Storage implements cart.Storage on the local filesystem. Writes go to a
// temporary file that is renamed over the entry, so readers never observe a
// partial snapshot.
type Storage struct {
	dir string
}

// New creates dir if needed and returns a Storage rooted there.
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}
	return &Storage{dir: dir}, nil
}

// Entry names are hex encoded so any key maps to a safe file name.
func (s *Storage) path(key string) string {
	return filepath.Join(s.dir, hex.EncodeToString([]byte(key))+".json")
}

// Load implements cart.Storage.
func (s *Storage) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "read %q", key)
	}
	return data, nil
}

// Save implements cart.Storage.
func (s *Storage) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %q", key)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "sync %q", key)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %q", key)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return errors.Wrapf(err, "rename %q", key)
	}
	return nil
}

// Ping checks that the directory is still accessible.
func (s *Storage) Ping(context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return errors.Wrap(err, "stat storage dir")
	}
	return nil
}
