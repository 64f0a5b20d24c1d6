// Package source merges an ordered list of key/value sources into a
// single flat namespace. Later sources override earlier ones; sources
// that are missing, unreadable, or malformed are skipped so a partial
// namespace is always usable.
package source

import (
	"context"
	"os"
	"sort"

	"github.com/varlet-dev/varlet/internal/deserialize"
	"github.com/varlet-dev/varlet/internal/logging"
)

// Namespace is the merged variable mapping for a document.
type Namespace map[string]any

// Has reports whether name is defined.
func (ns Namespace) Has(name string) bool {
	_, ok := ns[name]
	return ok
}

// Keys returns the defined variable names, sorted.
func (ns Namespace) Keys() []string {
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Loader reads the raw text of one source. The engine uses the local
// filesystem; tests substitute an in-memory implementation.
type Loader interface {
	Load(ctx context.Context, path string) (string, error)
	Exists(path string) bool
}

// FileLoader reads sources from the local filesystem.
type FileLoader struct{}

func (FileLoader) Load(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (FileLoader) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Merger combines sources through a Loader.
type Merger struct {
	loader Loader
}

// NewMerger returns a Merger backed by the given loader. A nil loader
// defaults to the filesystem.
func NewMerger(loader Loader) *Merger {
	if loader == nil {
		loader = FileLoader{}
	}
	return &Merger{loader: loader}
}

// Merge builds one namespace from the ordered source paths. Keys from a
// later source overwrite keys from an earlier one. A source that cannot
// be read or parsed degrades the result instead of failing it; sources
// are applied strictly in list order.
func (m *Merger) Merge(ctx context.Context, paths []string) Namespace {
	ns := make(Namespace)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			logging.Warn().Err(err).Msg("merge canceled, returning partial namespace")
			return ns
		}

		if !m.loader.Exists(path) {
			logging.Warn().Str("path", path).Msg("source file not found, skipping")
			continue
		}

		text, err := m.loader.Load(ctx, path)
		if err != nil {
			logging.Error().Err(err).Str("path", path).Msg("failed to read source, skipping")
			continue
		}

		parsed := deserialize.ByExtension(path, text)
		if parsed == nil {
			// The deserializer already logged the reason.
			continue
		}

		for k, v := range parsed {
			ns[k] = v
		}
		logging.Debug().Str("path", path).Int("keys", len(parsed)).Msg("source merged")
	}
	return ns
}

// Merge is a convenience that merges paths from the local filesystem.
func Merge(ctx context.Context, paths []string) Namespace {
	return NewMerger(nil).Merge(ctx, paths)
}
