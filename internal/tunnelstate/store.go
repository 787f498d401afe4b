package tunnelstate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
)

// ErrNoState is returned by Load when no record has been saved.
var ErrNoState = errors.New("no tunnel state recorded")

const lockRetryDelay = 50 * time.Millisecond

// Store reads and writes a single state record.
type Store struct {
	path string
	lock *flock.Flock
}

// New returns a store for the record at path. The lock file is path+".lock".
func New(path string) *Store {
	return &Store{path: path, lock: flock.New(path + ".lock")}
}

// Save replaces the stored record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("encode tunnel state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write tunnel state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace tunnel state: %w", err)
	}
	return nil
}

// Load reads the stored record. It returns ErrNoState when nothing has been
// saved.
func (s *Store) Load(ctx context.Context) (Record, error) {
	if _, err := os.Stat(filepath.Dir(s.path)); errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrNoState
	}
	unlock, err := s.acquire(ctx)
	if err != nil {
		return Record{}, err
	}
	defer unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrNoState
	}
	if err != nil {
		return Record{}, fmt.Errorf("read tunnel state: %w", err)
	}
	var rec Record
	if err := toml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse tunnel state %s: %w", s.path, err)
	}
	return rec, nil
}

// Clear removes the stored record. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove tunnel state: %w", err)
	}
	return nil
}

func (s *Store) acquire(ctx context.Context) (func(), error) {
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock tunnel state: %w", err)
	}
	if !ok {
		return nil, errors.New("tunnel state is locked by another process")
	}
	return func() { _ = s.lock.Unlock() }, nil
}
