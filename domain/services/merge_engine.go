package services

import (
	"go.uber.org/zap"

	"snippets-backend/domain/config"
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
)

// MergeEngine combines the local and remote hierarchies under one synthetic
// root. Local items always come first. Merging is pure: the same two inputs
// always give structurally identical trees.
type MergeEngine struct {
	localNS      valueobjects.Namespace[valueobjects.LocalID]
	remoteNS     valueobjects.Namespace[valueobjects.RemoteID]
	dropDetached bool
	logger       *zap.Logger
}

// NewMergeEngine creates a merge engine
func NewMergeEngine(cfg *config.DomainConfig, logger *zap.Logger) *MergeEngine {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &MergeEngine{
		localNS:      cfg.LocalNamespace(),
		remoteNS:     cfg.RemoteNamespace(),
		dropDetached: cfg.DropDetached,
		logger:       logger,
	}
}

// Merge builds the combined tree from two assembled forests. The root
// records themselves are not listed; their children move under the
// synthetic root.
func (m *MergeEngine) Merge(local Forest[valueobjects.LocalID], remote Forest[valueobjects.RemoteID]) entities.CombinedTree {
	m.logWarnings(valueobjects.ProvenanceLocal, local.Warnings)
	m.logWarnings(valueobjects.ProvenanceRemote, remote.Warnings)

	localChildren := StampAndOrder(local.RootChildren)
	remoteChildren := StampAndOrder(remote.RootChildren)

	children := make([]entities.Entry, 0, len(localChildren)+len(remoteChildren))
	children = append(children, entities.AsEntries(localChildren)...)
	children = append(children, entities.AsEntries(remoteChildren)...)

	var detached []entities.Entry
	if n := len(local.Detached) + len(remote.Detached); n > 0 {
		if m.dropDetached {
			m.logger.Warn("Dropping detached items from combined tree", zap.Int("count", n))
		} else {
			detached = append(detached, entities.AsEntries(StampAndOrder(local.Detached))...)
			detached = append(detached, entities.AsEntries(StampAndOrder(remote.Detached))...)
		}
	}

	tree := entities.NewCombinedTree(children, detached)
	m.logger.Debug("Merged snippet trees",
		zap.Int("local_top_level", len(localChildren)),
		zap.Int("remote_top_level", len(remoteChildren)),
		zap.Int("detached", len(detached)),
		zap.Int("leaves", tree.LeafCount()),
	)
	return tree
}

// MergeRoots merges top-level listings as returned by each source. A root
// record's children are lifted under the synthetic root and the record
// itself is dropped; other top-level items under the root sentinel are kept.
func (m *MergeEngine) MergeRoots(localRoots []entities.Node[valueobjects.LocalID], remoteRoots []entities.Node[valueobjects.RemoteID]) entities.CombinedTree {
	return m.Merge(ForestFromRoots(m.localNS, localRoots), ForestFromRoots(m.remoteNS, remoteRoots))
}

// ForestFromRoots sorts already-assembled top-level nodes into a forest
func ForestFromRoots[K valueobjects.Key](ns valueobjects.Namespace[K], roots []entities.Node[K]) Forest[K] {
	var f Forest[K]
	for _, n := range roots {
		switch {
		case ns.IsRoot(n.ID()):
			root := n
			f.Root = &root
			f.RootChildren = append(f.RootChildren, n.Children()...)
		case ns.IsRoot(n.ParentOrRoot(ns)):
			f.RootChildren = append(f.RootChildren, n)
		default:
			f.Detached = append(f.Detached, n)
		}
	}
	return f
}

func (m *MergeEngine) logWarnings(p valueobjects.Provenance, warnings []error) {
	for _, w := range warnings {
		m.logger.Warn("Excluded branch from hierarchy",
			zap.String("provenance", p.String()),
			zap.Error(w),
		)
	}
}
