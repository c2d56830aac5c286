package entities

import (
	"snippets-backend/domain/core/valueobjects"
)

// CombinedRootKey is the key of the synthetic root. It is not a valid id in
// either namespace, so it can never collide with a stored node.
const CombinedRootKey = "combined-root"

// CombinedRoot is the synthetic container that holds both namespaces' top
// level items. It has no provenance and is never persisted.
type CombinedRoot struct {
	children []Entry
}

func (r CombinedRoot) Key() string                         { return CombinedRootKey }
func (r CombinedRoot) ParentKey() string                   { return "" }
func (r CombinedRoot) Provenance() valueobjects.Provenance { return "" }
func (r CombinedRoot) Kind() valueobjects.Kind             { return valueobjects.KindContainer }
func (r CombinedRoot) Title() string                       { return "All Snippets" }
func (r CombinedRoot) Body() string                        { return "" }
func (r CombinedRoot) ColorID() valueobjects.ColorID       { return valueobjects.DefaultColorID }
func (r CombinedRoot) OrderIndex() float64                 { return 0 }
func (r CombinedRoot) CreatedAt() string                   { return "" }

// Entries returns a copy of the root's children
func (r CombinedRoot) Entries() []Entry {
	return cloneEntries(r.children)
}

// CombinedTree is the merged, read-only view of both namespaces. Items whose
// parent could not be found in their namespace are kept apart in Detached.
type CombinedTree struct {
	root     CombinedRoot
	detached []Entry
}

// NewCombinedTree builds a tree from the root's children and the detached items
func NewCombinedTree(children, detached []Entry) CombinedTree {
	return CombinedTree{
		root:     CombinedRoot{children: cloneEntries(children)},
		detached: cloneEntries(detached),
	}
}

// Root returns the synthetic root
func (t CombinedTree) Root() CombinedRoot {
	return t.root
}

// Children returns the root's children, local first
func (t CombinedTree) Children() []Entry {
	return t.root.Entries()
}

// Detached returns the items whose parent is missing, local first
func (t CombinedTree) Detached() []Entry {
	return cloneEntries(t.detached)
}

// TopLevel returns the top-level listing: the synthetic root followed by
// detached items
func (t CombinedTree) TopLevel() []Entry {
	out := make([]Entry, 0, 1+len(t.detached))
	out = append(out, t.root)
	return append(out, t.detached...)
}

// IsEmpty reports whether the tree holds no nodes at all
func (t CombinedTree) IsEmpty() bool {
	return len(t.root.children) == 0 && len(t.detached) == 0
}

// LeafCount counts every LEAF in the tree, detached items included
func (t CombinedTree) LeafCount() int {
	return CountLeaves(t.root.children) + CountLeaves(t.detached)
}

// NodeCount counts every node in the tree except the synthetic root
func (t CombinedTree) NodeCount() int {
	return len(Flatten(t.root.children, 0)) + len(Flatten(t.detached, 0))
}

// Walk visits every node depth-first, children of the root at depth 0, then
// detached items at depth 0. Returning false stops the walk.
func (t CombinedTree) Walk(fn func(e Entry, depth int) bool) {
	var visit func(entries []Entry, depth int) bool
	visit = func(entries []Entry, depth int) bool {
		for _, e := range entries {
			if !fn(e, depth) {
				return false
			}
			if !visit(e.Entries(), depth+1) {
				return false
			}
		}
		return true
	}
	if visit(t.root.children, 0) {
		visit(t.detached, 0)
	}
}

// ExportEntry is the flat form of a node handed to companion surfaces
type ExportEntry struct {
	ID         string                  `json:"id"`
	Provenance valueobjects.Provenance `json:"provenance"`
	ParentID   string                  `json:"parentId,omitempty"`
	Kind       valueobjects.Kind       `json:"kind"`
	Title      string                  `json:"title"`
	Body       string                  `json:"body,omitempty"`
	ColorID    valueobjects.ColorID    `json:"colorId"`
	OrderIndex float64                 `json:"orderIndex"`
	Depth      int                     `json:"depth"`
}

// ExportTree is a depth-annotated, display-ordered listing of a combined tree
type ExportTree struct {
	Entries   []ExportEntry `json:"entries"`
	Detached  []ExportEntry `json:"detached"`
	LeafCount int           `json:"leafCount"`
}

// Export flattens the tree for companion surfaces
func (t CombinedTree) Export() ExportTree {
	return ExportTree{
		Entries:   exportEntries(Flatten(t.root.children, 0)),
		Detached:  exportEntries(Flatten(t.detached, 0)),
		LeafCount: t.LeafCount(),
	}
}

func exportEntries(flat []FlatEntry) []ExportEntry {
	out := make([]ExportEntry, 0, len(flat))
	for _, f := range flat {
		e := f.Entry
		ee := ExportEntry{
			ID:         e.Key(),
			Provenance: e.Provenance(),
			ParentID:   e.ParentKey(),
			Kind:       e.Kind(),
			Title:      e.Title(),
			ColorID:    e.ColorID(),
			OrderIndex: e.OrderIndex(),
			Depth:      f.Depth,
		}
		if e.Kind() == valueobjects.KindLeaf {
			ee.Body = e.Body()
		}
		out = append(out, ee)
	}
	return out
}

func cloneEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
