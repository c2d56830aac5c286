package entities

import (
	"snippets-backend/domain/core/valueobjects"
)

// Entry is the provenance-agnostic read view of a node. Both Node[LocalID]
// and Node[RemoteID] implement it, which lets the combined tree hold
// subtrees from both stores side by side.
type Entry interface {
	Key() string
	ParentKey() string
	Provenance() valueobjects.Provenance
	Kind() valueobjects.Kind
	Title() string
	Body() string
	ColorID() valueobjects.ColorID
	OrderIndex() float64
	CreatedAt() string
	Entries() []Entry
}

// Key returns the node id as a string
func (n Node[K]) Key() string {
	return n.id.String()
}

// ParentKey returns the parent id as a string, or "" when absent
func (n Node[K]) ParentKey() string {
	if n.parentID == nil {
		return ""
	}
	return (*n.parentID).String()
}

// Entries returns the children as entries
func (n Node[K]) Entries() []Entry {
	if len(n.children) == 0 {
		return nil
	}
	out := make([]Entry, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// AsEntries converts typed nodes into entries
func AsEntries[K valueobjects.Key](nodes []Node[K]) []Entry {
	out := make([]Entry, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	return out
}

// CountLeaves counts LEAF entries in the given forest
func CountLeaves(entries []Entry) int {
	count := 0
	for _, e := range entries {
		if e.Kind() == valueobjects.KindLeaf {
			count++
		}
		count += CountLeaves(e.Entries())
	}
	return count
}

// FlatEntry is an entry annotated with its depth in a display list
type FlatEntry struct {
	Entry Entry
	Depth int
}

// Flatten lists entries depth-first, parents before children
func Flatten(entries []Entry, depth int) []FlatEntry {
	var out []FlatEntry
	for _, e := range entries {
		out = append(out, FlatEntry{Entry: e, Depth: depth})
		out = append(out, Flatten(e.Entries(), depth+1)...)
	}
	return out
}
