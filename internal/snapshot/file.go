package snapshot

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
)

// FileStore persists snapshots as a single pgzip-compressed file. Saves are
// atomic: the snapshot is written to a temp file and renamed into place, so
// a crash mid-write never corrupts the last good snapshot.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the snapshot file. A missing file yields an empty
// snapshot: first startup is not an error.
func (f *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Snapshot{}, nil
		}
		return nil, errors.Wrapf(err, "open %s", f.path)
	}
	defer func() { _ = file.Close() }()

	gz, err := pgzip.NewReader(file)
	if err != nil {
		return nil, errors.Wrapf(err, "gzip reader for %s", f.path)
	}
	defer func() { _ = gz.Close() }()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", f.path)
	}

	return Decode(data)
}

// Save encodes the snapshot, compresses it, and atomically replaces the
// previous file.
func (f *FileStore) Save(ctx context.Context, s *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	gz := pgzip.NewWriter(tmp)
	if _, err := gz.Write(Encode(s)); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write snapshot")
	}
	if err := gz.Close(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "flush gzip")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.Wrapf(err, "rename into %s", f.path)
	}
	return nil
}
