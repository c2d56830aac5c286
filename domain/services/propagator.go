package services

import (
	"cmp"
	"slices"

	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
)

// StampAndOrder rebuilds nodes with the provenance of K set on every node and
// descendant, each level stable-sorted by orderIndex. The input is left
// untouched. Applying it twice gives the same result.
func StampAndOrder[K valueobjects.Key](nodes []entities.Node[K]) []entities.Node[K] {
	var zero K
	return stampAndOrder(nodes, zero.Provenance())
}

func stampAndOrder[K valueobjects.Key](nodes []entities.Node[K], p valueobjects.Provenance) []entities.Node[K] {
	if nodes == nil {
		return nil
	}
	out := make([]entities.Node[K], len(nodes))
	for i, n := range nodes {
		stamped := n.WithProvenance(p)
		if n.ChildCount() > 0 {
			stamped = stamped.WithChildren(stampAndOrder(n.Children(), p))
		}
		out[i] = stamped
	}
	SortSiblings(out)
	return out
}

// SortSiblings stable-sorts nodes in place by orderIndex
func SortSiblings[K valueobjects.Key](nodes []entities.Node[K]) {
	slices.SortStableFunc(nodes, func(a, b entities.Node[K]) int {
		return cmp.Compare(a.OrderIndex(), b.OrderIndex())
	})
}
