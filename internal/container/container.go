// Package container classifies document container references.
//
// A document always sits in exactly one container: the unassigned pool,
// a folder, or a pairing row. The pool has two historical sentinel
// spellings and both must be treated as "unassigned".
package container

import "sitedocs/internal/store"

const (
	// Main is the legacy sentinel for the unassigned pool.
	Main = "MAIN"
	// EmptyGUID is the sentinel written by every unassign operation.
	EmptyGUID = "00000000-0000-0000-0000-000000000000"
)

// Sentinels returns both unassigned sentinels in the order they are queried.
func Sentinels() []string {
	return []string{Main, EmptyGUID}
}

// IsUnassigned reports whether c is one of the pool sentinels.
func IsUnassigned(c string) bool {
	return c == Main || c == EmptyGUID
}

// MergeByID concatenates lists and removes duplicate ids. The position of
// the first occurrence is kept while the value of the last occurrence wins.
func MergeByID(lists ...[]store.Document) []store.Document {
	index := make(map[string]int)
	merged := make([]store.Document, 0)
	for _, list := range lists {
		for _, doc := range list {
			if pos, ok := index[doc.ID]; ok {
				merged[pos] = doc
				continue
			}
			index[doc.ID] = len(merged)
			merged = append(merged, doc)
		}
	}
	return merged
}
