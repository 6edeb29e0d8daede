package domain

import (
	"fmt"
	"sort"
	"time"
)

// DocumentRecord is one entry of the knowledge base index: the durable mapping
// from a document's display name to its vector store collection plus file metadata.
type DocumentRecord struct {
	CollectionName string    `json:"collection_name"`
	SourcePath     string    `json:"file_path"`
	FileName       string    `json:"file_name"`
	FileType       string    `json:"file_type"`
	FileSizeBytes  int64     `json:"file_size"`
	TextLength     int       `json:"text_length"`
	IndexedAt      time.Time `json:"indexed_at"`
	ChunkingMethod string    `json:"chunking_method"`
}

// Index is the full persisted knowledge base state: documents keyed by display
// name plus the inverse collection-to-name map. The two maps are kept
// consistent through Put and Remove.
type Index struct {
	Documents   map[string]DocumentRecord `json:"documents"`
	Collections map[string]string         `json:"collections"`
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		Documents:   make(map[string]DocumentRecord),
		Collections: make(map[string]string),
	}
}

// Put inserts or replaces the record for name, maintaining the inverse map.
// Re-indexing the same name reuses its collection, so a replaced record with a
// changed collection also retires the stale inverse entry.
func (x *Index) Put(name string, rec DocumentRecord) {
	if old, ok := x.Documents[name]; ok && old.CollectionName != rec.CollectionName {
		delete(x.Collections, old.CollectionName)
	}
	x.Documents[name] = rec
	x.Collections[rec.CollectionName] = name
}

// Remove deletes both entries for name. Returns false if the name is absent.
func (x *Index) Remove(name string) bool {
	rec, ok := x.Documents[name]
	if !ok {
		return false
	}
	delete(x.Documents, name)
	delete(x.Collections, rec.CollectionName)
	return true
}

// IsIndexed reports whether name has a record.
func (x *Index) IsIndexed(name string) bool {
	_, ok := x.Documents[name]
	return ok
}

// Names returns all document names in sorted order.
func (x *Index) Names() []string {
	names := make([]string, 0, len(x.Documents))
	for name := range x.Documents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CollectionFor returns the collection name for a document name.
func (x *Index) CollectionFor(name string) (string, bool) {
	rec, ok := x.Documents[name]
	if !ok {
		return "", false
	}
	return rec.CollectionName, true
}

// Clone returns a deep copy. Searches work on a snapshot so a concurrent
// reload cannot mutate the maps underneath them.
func (x *Index) Clone() *Index {
	c := NewIndex()
	for name, rec := range x.Documents {
		c.Documents[name] = rec
	}
	for coll, name := range x.Collections {
		c.Collections[coll] = name
	}
	return c
}

// Validate checks that every collection entry points back to a document that
// claims it, and vice versa.
func (x *Index) Validate() error {
	for name, rec := range x.Documents {
		back, ok := x.Collections[rec.CollectionName]
		if !ok {
			return fmt.Errorf("document %q: collection %q missing from inverse map", name, rec.CollectionName)
		}
		if back != name {
			return fmt.Errorf("collection %q maps to %q, expected %q", rec.CollectionName, back, name)
		}
	}
	for coll, name := range x.Collections {
		rec, ok := x.Documents[name]
		if !ok {
			return fmt.Errorf("collection %q: document %q missing", coll, name)
		}
		if rec.CollectionName != coll {
			return fmt.Errorf("document %q holds collection %q, expected %q", name, rec.CollectionName, coll)
		}
	}
	return nil
}

// Status summarizes the knowledge base: what is on disk, what is indexed, and
// what is still pending.
type Status struct {
	TotalDocuments      int      `json:"total_documents"`
	IndexedDocuments    int      `json:"indexed_documents"`
	IndexedList         []string `json:"indexed_documents_list"`
	PendingList         []string `json:"pending_documents_list"`
	SupportedExtensions []string `json:"supported_extensions"`
}
