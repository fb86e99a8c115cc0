package ordering

import "sitedocs/internal/store"

// Apply arranges items by a saved custom order. Items are first reduced to
// one entry per id, keeping the first occurrence. Ids in orderedIDs come
// first in their saved relative order; items the order does not mention
// follow in their original relative order. Ids with no matching item are
// ignored. Apply is idempotent.
func Apply(items []store.Document, orderedIDs []string) []store.Document {
	unique := make([]store.Document, 0, len(items))
	byID := make(map[string]store.Document, len(items))
	for _, item := range items {
		if _, ok := byID[item.ID]; ok {
			continue
		}
		byID[item.ID] = item
		unique = append(unique, item)
	}
	if len(orderedIDs) == 0 {
		return unique
	}

	out := make([]store.Document, 0, len(unique))
	placed := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		item, ok := byID[id]
		if !ok || placed[id] {
			continue
		}
		placed[id] = true
		out = append(out, item)
	}
	for _, item := range unique {
		if !placed[item.ID] {
			out = append(out, item)
		}
	}
	return out
}

// IDs returns the ids of docs in order.
func IDs(docs []store.Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}

// Reorder moves the element at from to position to and returns a new slice.
// Out-of-range positions are clamped.
func Reorder(ids []string, from, to int) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	if len(out) == 0 {
		return out
	}
	from = clamp(from, len(out)-1)
	to = clamp(to, len(out)-1)
	if from == to {
		return out
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]string{moved}, out[to:]...)...)
	return out
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
