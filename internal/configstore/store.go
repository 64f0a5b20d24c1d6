// Package configstore persists service configuration records as one
// pretty-printed JSON array on disk. Every mutation is
// read-modify-write: the whole collection is loaded, changed in memory,
// and written back atomically via a temp file and rename. Write failures
// propagate to the caller; a silently lost save would leave the user
// believing configuration exists that does not.
package configstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/varlet-dev/varlet/internal/logging"
	"github.com/varlet-dev/varlet/pkg/types"
)

// DefaultFileName is the collection file created under the store directory.
const DefaultFileName = "service-configs.json"

// Store is the persisted collection of service configuration records.
type Store struct {
	path string
	lock *fileLock
}

// New creates a store persisting to the given file path. The parent
// directory is created on first write.
func New(path string) *Store {
	return &Store{path: path, lock: newFileLock(path)}
}

// NewInDir creates a store using the default file name inside dir.
func NewInDir(dir string) *Store {
	return New(filepath.Join(dir, DefaultFileName))
}

// Path returns the collection file path.
func (s *Store) Path() string {
	return s.path
}

// List returns all records in stored order. A missing collection file is
// an empty collection, not an error.
func (s *Store) List(ctx context.Context) ([]types.ServiceConfig, error) {
	return s.read()
}

// Find returns the record for (service, environment), compared
// case-insensitively, or false when no record matches.
func (s *Store) Find(ctx context.Context, service, environment string) (types.ServiceConfig, bool, error) {
	records, err := s.read()
	if err != nil {
		return types.ServiceConfig{}, false, err
	}
	for _, r := range records {
		if r.Matches(service, environment) {
			return r, true, nil
		}
	}
	return types.ServiceConfig{}, false, nil
}

// FindService returns all records for a service regardless of
// environment, compared case-insensitively.
func (s *Store) FindService(ctx context.Context, service string) ([]types.ServiceConfig, error) {
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	var out []types.ServiceConfig
	for _, r := range records {
		if strings.EqualFold(r.ServiceName, service) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Upsert replaces the record occupying the same (service, environment)
// slot, or appends when none does. Replacement is filter-then-append, so
// at most one record per key exists after every write.
func (s *Store) Upsert(ctx context.Context, record types.ServiceConfig) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire store lock: %w", err)
	}
	defer s.lock.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}

	kept := records[:0]
	for _, r := range records {
		if r.Key() != record.Key() {
			kept = append(kept, r)
		}
	}
	kept = append(kept, record)

	return s.write(kept)
}

// Remove drops every record matching the predicate and returns how many
// were removed.
func (s *Store) Remove(ctx context.Context, match func(types.ServiceConfig) bool) (int, error) {
	if err := s.lock.Lock(); err != nil {
		return 0, fmt.Errorf("failed to acquire store lock: %w", err)
	}
	defer s.lock.Unlock()

	records, err := s.read()
	if err != nil {
		return 0, err
	}

	kept := records[:0]
	removed := 0
	for _, r := range records {
		if match(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	if removed == 0 {
		return 0, nil
	}

	if err := s.write(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// WipeAll empties the collection.
func (s *Store) WipeAll(ctx context.Context) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire store lock: %w", err)
	}
	defer s.lock.Unlock()

	return s.write([]types.ServiceConfig{})
}

func (s *Store) read() ([]types.ServiceConfig, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.ServiceConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read config store: %w", err)
	}

	var records []types.ServiceConfig
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode config store: %w", err)
	}
	return records, nil
}

// write persists the full collection. Temp file plus rename keeps a
// concurrent reader from ever seeing a half-written array.
func (s *Store) write(records []types.ServiceConfig) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config store: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config store: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace config store: %w", err)
	}

	logging.Debug().Str("path", s.path).Int("records", len(records)).Msg("config store written")
	return nil
}
