package services

import (
	"go.uber.org/zap"

	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
	pkgerrors "snippets-backend/pkg/errors"
)

// Destination is a legal target group with its indentation depth
type Destination[K valueobjects.Key] struct {
	Group entities.Node[K]
	Depth int
}

// Plan lists legal destinations in display order. Warnings records groups
// dropped because their ancestry loops or runs past the depth bound.
type Plan[K valueobjects.Key] struct {
	Destinations []Destination[K]
	Warnings     []error
}

// Empty reports that the node has nowhere to go
func (p Plan[K]) Empty() bool {
	return len(p.Destinations) == 0
}

// Contains reports whether id is one of the destinations
func (p Plan[K]) Contains(id K) bool {
	for _, d := range p.Destinations {
		if d.Group.ID() == id {
			return true
		}
	}
	return false
}

// RelocationPlanner computes where a node may be moved within its namespace
type RelocationPlanner[K valueobjects.Key] struct {
	ns     valueobjects.Namespace[K]
	logger *zap.Logger
}

// NewRelocationPlanner creates a planner for one namespace
func NewRelocationPlanner[K valueobjects.Key](ns valueobjects.Namespace[K], logger *zap.Logger) *RelocationPlanner[K] {
	return &RelocationPlanner[K]{ns: ns, logger: logger}
}

// PlanDestinations filters groups down to the legal destinations for node and
// orders them depth-first from the namespace root. The node itself, its
// current parent and, for groups, every descendant are never offered. Depth
// counts the offered ancestors of a destination, so each destination sits one
// level below the closest offered group above it: the root record is 0, and
// the children of an excluded group take that group's place. Legal groups
// whose parent is missing follow at depth 0.
func (p *RelocationPlanner[K]) PlanDestinations(groups []entities.Node[K], node entities.Node[K]) Plan[K] {
	var plan Plan[K]
	current := node.ParentOrRoot(p.ns)

	index := make(map[K]entities.Node[K], len(groups))
	var candidates []entities.Node[K]
	for _, g := range groups {
		if !g.IsContainer() {
			continue
		}
		if _, dup := index[g.ID()]; dup {
			continue
		}
		g = g.WithoutChildren()
		index[g.ID()] = g
		candidates = append(candidates, g)
	}

	excluded := map[K]bool{node.ID(): true, current: true}
	if node.IsContainer() {
		for _, g := range candidates {
			if excluded[g.ID()] {
				continue
			}
			descendant, cycle := p.descendsFrom(g, node.ID(), index)
			if cycle {
				plan.Warnings = append(plan.Warnings, pkgerrors.NewCycleDetectedError(p.ns.Provenance().String(), g.ID().String()))
			}
			if descendant || cycle {
				excluded[g.ID()] = true
			}
		}
	}

	SortSiblings(candidates)
	children := make(map[K][]entities.Node[K])
	for _, g := range candidates {
		if p.ns.IsRoot(g.ID()) {
			continue
		}
		parent := g.ParentOrRoot(p.ns)
		children[parent] = append(children[parent], g)
	}

	w := &displayWalk[K]{
		ns:       p.ns,
		children: children,
		excluded: excluded,
		visited:  make(map[K]bool, len(candidates)),
	}

	root := p.ns.Root()
	w.visited[root] = true
	depth := 0
	if g, ok := index[root]; ok && !excluded[root] {
		w.out = append(w.out, Destination[K]{Group: g, Depth: 0})
		depth = 1
	}
	w.descend(root, depth, 1)

	for _, g := range candidates {
		if w.visited[g.ID()] {
			continue
		}
		if _, ok := index[g.ParentOrRoot(p.ns)]; ok {
			continue
		}
		w.visit(g, 0, 1)
	}

	for _, g := range candidates {
		if !w.visited[g.ID()] && !excluded[g.ID()] {
			plan.Warnings = append(plan.Warnings, pkgerrors.NewCycleDetectedError(p.ns.Provenance().String(), g.ID().String()))
		}
	}

	plan.Destinations = w.out
	for _, warning := range plan.Warnings {
		p.logger.Warn("Excluded group from relocation plan", zap.Error(warning))
	}
	return plan
}

// descendsFrom walks up from g through parent links. It reports whether the
// walk passes through ancestor, or whether it revisits an id or runs past
// the depth bound before reaching the root or a missing parent.
func (p *RelocationPlanner[K]) descendsFrom(g entities.Node[K], ancestor K, index map[K]entities.Node[K]) (descendant, cycle bool) {
	seen := make(map[K]bool)
	cur := g.ID()
	for steps := 0; ; steps++ {
		if cur == ancestor {
			return true, false
		}
		if p.ns.IsRoot(cur) {
			return false, false
		}
		if seen[cur] || steps > p.ns.MaxDepth() {
			return false, true
		}
		seen[cur] = true
		next, ok := index[cur]
		if !ok {
			return false, false
		}
		cur = next.ParentOrRoot(p.ns)
	}
}

type displayWalk[K valueobjects.Key] struct {
	ns       valueobjects.Namespace[K]
	children map[K][]entities.Node[K]
	excluded map[K]bool
	visited  map[K]bool
	out      []Destination[K]
}

// visit emits g at depth unless it is excluded, then descends. An excluded
// group hands its depth to its children. level is the structural distance
// from the root and enforces the namespace bound.
func (w *displayWalk[K]) visit(g entities.Node[K], depth, level int) {
	if w.visited[g.ID()] {
		return
	}
	w.visited[g.ID()] = true
	childDepth := depth
	if !w.excluded[g.ID()] {
		w.out = append(w.out, Destination[K]{Group: g, Depth: depth})
		childDepth = depth + 1
	}
	if level >= w.ns.MaxDepth() {
		return
	}
	w.descend(g.ID(), childDepth, level+1)
}

func (w *displayWalk[K]) descend(parent K, depth, level int) {
	for _, c := range w.children[parent] {
		w.visit(c, depth, level)
	}
}
