package services

import (
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
	pkgerrors "snippets-backend/pkg/errors"
)

// Forest is one namespace's assembled hierarchy. RootChildren hangs under the
// namespace root sentinel whether or not a root record exists. Detached holds
// subtrees whose top node points at a parent that is missing or is not a
// group. Warnings lists branches dropped because of cycles or excess depth.
type Forest[K valueobjects.Key] struct {
	Root         *entities.Node[K]
	RootChildren []entities.Node[K]
	Detached     []entities.Node[K]
	Warnings     []error
}

// LeafCount counts the leaves reachable in the forest
func (f Forest[K]) LeafCount() int {
	return entities.CountLeaves(entities.AsEntries(f.RootChildren)) +
		entities.CountLeaves(entities.AsEntries(f.Detached))
}

// AssembleForest builds a stamped, ordered hierarchy from flat records. The
// walk from the root tracks visited ids and stops at the namespace depth
// bound, so malformed parent links cannot make it loop. Records left
// unreachable after the walk sit inside a parent cycle; they are excluded and
// reported in Warnings. Duplicate ids keep the first record.
func AssembleForest[K valueobjects.Key](ns valueobjects.Namespace[K], records []entities.Node[K]) Forest[K] {
	a := assembler[K]{
		ns:       ns,
		index:    make(map[K]entities.Node[K], len(records)),
		children: make(map[K][]entities.Node[K]),
		visited:  make(map[K]bool, len(records)),
	}

	var forest Forest[K]
	var order []K
	for _, r := range records {
		id := r.ID()
		if _, dup := a.index[id]; dup {
			continue
		}
		r = r.WithoutChildren()
		a.index[id] = r
		order = append(order, id)
		if ns.IsRoot(id) {
			continue
		}
		parent := r.ParentOrRoot(ns)
		a.children[parent] = append(a.children[parent], r)
	}

	a.visited[ns.Root()] = true
	forest.RootChildren = a.build(ns.Root(), 1)

	for _, id := range order {
		if a.visited[id] {
			continue
		}
		r := a.index[id]
		parent := r.ParentOrRoot(ns)
		if p, ok := a.index[parent]; ok && p.IsContainer() {
			continue
		}
		a.visited[id] = true
		forest.Detached = append(forest.Detached, a.attach(r, 1))
	}

	for _, id := range order {
		if !a.visited[id] && !ns.IsRoot(id) {
			a.warnings = append(a.warnings, pkgerrors.NewCycleDetectedError(ns.Provenance().String(), id.String()))
		}
	}

	forest.RootChildren = StampAndOrder(forest.RootChildren)
	forest.Detached = StampAndOrder(forest.Detached)
	if root, ok := a.index[ns.Root()]; ok {
		root = root.WithProvenance(ns.Provenance()).WithChildren(forest.RootChildren)
		forest.Root = &root
	}
	forest.Warnings = a.warnings
	return forest
}

type assembler[K valueobjects.Key] struct {
	ns       valueobjects.Namespace[K]
	index    map[K]entities.Node[K]
	children map[K][]entities.Node[K]
	visited  map[K]bool
	warnings []error
}

// build returns the subtrees under parent; depth is the depth of those children
func (a *assembler[K]) build(parent K, depth int) []entities.Node[K] {
	var out []entities.Node[K]
	for _, c := range a.children[parent] {
		if a.visited[c.ID()] {
			continue
		}
		if depth > a.ns.MaxDepth() {
			// left unvisited; reported with the cycle members
			continue
		}
		a.visited[c.ID()] = true
		out = append(out, a.attach(c, depth))
	}
	return out
}

func (a *assembler[K]) attach(n entities.Node[K], depth int) entities.Node[K] {
	if !n.IsContainer() {
		return n
	}
	return n.WithChildren(a.build(n.ID(), depth+1))
}
