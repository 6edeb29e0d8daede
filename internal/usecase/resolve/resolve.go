// Package resolve maps a loosely-specified document identifier to exactly one
// collection. Callers may hold a full path, a bare filename, a collection id,
// or a name remembered without its extension; matching tries progressively
// looser rules and stops at the first hit.
package resolve

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/quillan-ai/docdex/internal/domain"
)

// Collection resolves identifier against the index and returns the matching
// document name and collection name. Rules, in order: stored full path (exact,
// then case-insensitive); known collection name (exact, then
// case-insensitive); path basename (case-insensitive); basename with the
// extension stripped (case-insensitive). Document names are visited in sorted
// order so resolution is deterministic.
func Collection(idx *domain.Index, identifier string) (docName, collection string, err error) {
	norm := strings.ToLower(strings.TrimSpace(identifier))
	names := idx.Names()

	// Rule 1: stored full path.
	for _, name := range names {
		rec := idx.Documents[name]
		if rec.SourcePath == identifier || strings.ToLower(rec.SourcePath) == norm {
			return name, rec.CollectionName, nil
		}
	}

	// Rule 2: collection name.
	for _, name := range names {
		rec := idx.Documents[name]
		if rec.CollectionName == identifier || strings.ToLower(rec.CollectionName) == norm {
			return name, rec.CollectionName, nil
		}
	}

	// Rule 3: basename of the stored path.
	for _, name := range names {
		rec := idx.Documents[name]
		base := filepath.Base(rec.SourcePath)
		if base == identifier || strings.ToLower(base) == norm {
			return name, rec.CollectionName, nil
		}
	}

	// Rule 4: basename without extension.
	for _, name := range names {
		rec := idx.Documents[name]
		base := filepath.Base(rec.SourcePath)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if stem == identifier || strings.ToLower(stem) == norm {
			return name, rec.CollectionName, nil
		}
	}

	return "", "", fmt.Errorf("identifier %q: %w", identifier, domain.ErrIdentifierNotFound)
}
