// Package resolve decides which stored configuration applies to a
// document. Service identity is derived from the document's parent
// directory name; a session context supplies the preferred environment.
package resolve

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/varlet-dev/varlet/internal/configstore"
	"github.com/varlet-dev/varlet/internal/logging"
	"github.com/varlet-dev/varlet/pkg/types"
)

// NormalizeServiceName turns a directory name into a service identity:
// lowercased, with underscores, path separators, and dots replaced by
// hyphens.
func NormalizeServiceName(name string) string {
	replacer := strings.NewReplacer(
		"_", "-",
		"/", "-",
		"\\", "-",
		".", "-",
	)
	return replacer.Replace(strings.ToLower(name))
}

// ServiceFromPath derives the service identity for a document path from
// its immediate parent directory.
func ServiceFromPath(docPath string) string {
	return NormalizeServiceName(filepath.Base(filepath.Dir(docPath)))
}

// Resolve looks up the stored record for a document. The lookup prefers
// (service, session environment); when the preferred environment has no
// record it falls back to any record for the service, which includes
// discovery's bundled "all" records. It performs exactly one store read.
func Resolve(ctx context.Context, docPath string, store *configstore.Store, session *Session) (types.ServiceConfig, bool, error) {
	service := ServiceFromPath(docPath)
	if service == "" {
		return types.ServiceConfig{}, false, nil
	}

	records, err := store.List(ctx)
	if err != nil {
		return types.ServiceConfig{}, false, err
	}

	preferred := ""
	if session != nil {
		preferred = session.Environment()
	}

	var fallback *types.ServiceConfig
	for i, r := range records {
		if !strings.EqualFold(r.ServiceName, service) {
			continue
		}
		if preferred != "" && strings.EqualFold(r.Environment, preferred) {
			session.Touch(r.ServiceName, r.Environment)
			return r, true, nil
		}
		if fallback == nil {
			fallback = &records[i]
		}
	}

	if fallback == nil {
		logging.Debug().Str("service", service).Msg("no stored configuration for document")
		return types.ServiceConfig{}, false, nil
	}

	if session != nil {
		session.Touch(fallback.ServiceName, fallback.Environment)
	}
	return *fallback, true, nil
}
