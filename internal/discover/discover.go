// Package discover derives service configuration records from a central
// settings tree by naming convention. The tree looks like:
//
//	root/application.yml            global base layer
//	root/application-<env>.yml      global per-environment layer
//	root/<service>/<service>.yml    service base layer
//	root/<service>/<service>-<env>.yml
//
// One record is emitted per service with the sentinel environment "all":
// every environment layer is already bundled into the ordered path list,
// lowest precedence first.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/varlet-dev/varlet/internal/logging"
	"github.com/varlet-dev/varlet/pkg/types"
)

// yamlPattern matches the YAML-like files the tree is made of.
const yamlPattern = "*.{yml,yaml}"

var yamlExts = []string{".yml", ".yaml"}

// Scan walks the root of a central settings tree and returns one record
// per discovered service. A failure to list the root is fatal; a failure
// to list any service subdirectory only skips that service.
func Scan(root string) ([]types.ServiceConfig, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings root %s: %w", root, err)
	}

	globalEnvs := map[string]bool{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if env, ok := environmentOf(entry.Name(), "application"); ok {
			globalEnvs[env] = true
		}
	}

	var records []types.ServiceConfig
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			logging.Warn().Err(err).Str("dir", dir).Msg("failed to list service directory, skipping")
			continue
		}

		if !containsYAML(files) {
			continue
		}

		// Environments visible to this service: global ones plus any
		// declared only inside the service directory.
		envs := map[string]bool{}
		for env := range globalEnvs {
			envs[env] = true
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if env, ok := environmentOf(f.Name(), "application"); ok {
				envs[env] = true
			}
			if env, ok := environmentOf(f.Name(), entry.Name()); ok {
				envs[env] = true
			}
		}

		paths := layerPaths(root, entry.Name(), sortedKeys(envs))
		records = append(records, types.ServiceConfig{
			ServiceName: entry.Name(),
			Environment: types.EnvironmentAll,
			YAMLPaths:   paths,
		})
		logging.Debug().
			Str("service", entry.Name()).
			Strs("paths", paths).
			Msg("service discovered")
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ServiceName < records[j].ServiceName
	})
	return records, nil
}

// layerPaths assembles the ordered source list for one service, lowest
// precedence first. A layer is included only when the file exists.
func layerPaths(root, service string, envs []string) []string {
	var paths []string

	appendExisting := func(candidates ...string) {
		for _, c := range candidates {
			if fileExists(c) {
				paths = append(paths, c)
				return
			}
		}
	}

	// Global base, then global per-environment layers.
	appendExisting(candidates(root, "application")...)
	for _, env := range envs {
		appendExisting(candidates(root, "application-"+env)...)
	}

	// Service base: service-name-prefixed file, falling back to the
	// generic base name.
	dir := filepath.Join(root, service)
	appendExisting(append(candidates(dir, service), candidates(dir, "application")...)...)

	// Service per-environment layers, same fallback rule.
	for _, env := range envs {
		appendExisting(append(candidates(dir, service+"-"+env), candidates(dir, "application-"+env)...)...)
	}

	return paths
}

// candidates expands a base name to every YAML-like extension.
func candidates(dir, base string) []string {
	out := make([]string, 0, len(yamlExts))
	for _, ext := range yamlExts {
		out = append(out, filepath.Join(dir, base+ext))
	}
	return out
}

// environmentOf extracts <env> from "<prefix>-<env>.<yml|yaml>". The
// bare "<prefix>.<ext>" base file is never an environment.
func environmentOf(name, prefix string) (string, bool) {
	ext := filepath.Ext(name)
	if !isYAMLExt(ext) {
		return "", false
	}
	stem := strings.TrimSuffix(name, ext)
	if !strings.HasPrefix(stem, prefix+"-") {
		return "", false
	}
	env := strings.TrimPrefix(stem, prefix+"-")
	if env == "" {
		return "", false
	}
	return env, true
}

func containsYAML(entries []os.DirEntry) bool {
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := doublestar.Match(yamlPattern, e.Name()); ok {
			return true
		}
	}
	return false
}

func isYAMLExt(ext string) bool {
	for _, e := range yamlExts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
