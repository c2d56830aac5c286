package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/entities/fixtures"
	"snippets-backend/domain/core/valueobjects"
	pkgerrors "snippets-backend/pkg/errors"
)

var (
	localNS  = valueobjects.NewNamespace(valueobjects.LocalID("root"), 0)
	remoteNS = valueobjects.NewNamespace(valueobjects.RemoteID("0"), 0)
)

func TestAssembleForest(t *testing.T) {
	records := []entities.Node[valueobjects.RemoteID]{
		fixtures.Remote("0").Group().Build(),
		fixtures.Remote("2").WithParent("1").WithOrder(1).Build(),
		fixtures.Remote("1").Group().WithParent("0").WithOrder(1).Build(),
		fixtures.Remote("3").WithParent("1").WithOrder(0).Build(),
		fixtures.Remote("4").WithOrder(0).Build(),
	}

	forest := AssembleForest(remoteNS, records)

	require.NotNil(t, forest.Root)
	assert.Equal(t, valueobjects.RemoteID("0"), forest.Root.ID())
	assert.Equal(t, valueobjects.ProvenanceRemote, forest.Root.Provenance())
	assert.Equal(t, 2, forest.Root.ChildCount())

	assert.Equal(t, []valueobjects.RemoteID{"4", "1"}, ids(forest.RootChildren))
	group := forest.RootChildren[1]
	assert.Equal(t, []valueobjects.RemoteID{"3", "2"}, ids(group.Children()))
	assert.Equal(t, valueobjects.ProvenanceRemote, group.Children()[0].Provenance())
	assert.Empty(t, forest.Detached)
	assert.Empty(t, forest.Warnings)
	assert.Equal(t, 3, forest.LeafCount())
}

func TestAssembleForest_WithoutRootRecord(t *testing.T) {
	records := []entities.Node[valueobjects.LocalID]{
		fixtures.Local("a").WithParent("root").Build(),
		fixtures.Local("b").Build(),
	}

	forest := AssembleForest(localNS, records)

	assert.Nil(t, forest.Root)
	assert.Equal(t, []valueobjects.LocalID{"a", "b"}, ids(forest.RootChildren))
}

func TestAssembleForest_Detached(t *testing.T) {
	records := []entities.Node[valueobjects.LocalID]{
		fixtures.Local("child").WithParent("lost").Build(),
		fixtures.Local("lost").Group().WithParent("missing").Build(),
		fixtures.Local("under-leaf").WithParent("leaf").Build(),
		fixtures.Local("leaf").WithParent("root").Build(),
	}

	forest := AssembleForest(localNS, records)

	assert.Equal(t, []valueobjects.LocalID{"leaf"}, ids(forest.RootChildren))
	require.Len(t, forest.Detached, 2)
	assert.Equal(t, []valueobjects.LocalID{"lost", "under-leaf"}, ids(forest.Detached))
	assert.Equal(t, []valueobjects.LocalID{"child"}, ids(forest.Detached[0].Children()))
	assert.Equal(t, valueobjects.ProvenanceLocal, forest.Detached[0].Children()[0].Provenance())
	assert.Empty(t, forest.Warnings)
}

func TestAssembleForest_CycleExcluded(t *testing.T) {
	records := []entities.Node[valueobjects.LocalID]{
		fixtures.Local("ok").WithParent("root").Build(),
		fixtures.Local("x").Group().WithParent("y").Build(),
		fixtures.Local("y").Group().WithParent("x").Build(),
		fixtures.Local("z").WithParent("y").Build(),
	}

	forest := AssembleForest(localNS, records)

	assert.Equal(t, []valueobjects.LocalID{"ok"}, ids(forest.RootChildren))
	assert.Empty(t, forest.Detached)
	require.Len(t, forest.Warnings, 3)
	for _, w := range forest.Warnings {
		assert.True(t, pkgerrors.IsCycleDetected(w))
	}
}

func TestAssembleForest_SelfParent(t *testing.T) {
	records := []entities.Node[valueobjects.LocalID]{
		fixtures.Local("self").Group().WithParent("self").Build(),
	}

	forest := AssembleForest(localNS, records)

	assert.Empty(t, forest.RootChildren)
	require.Len(t, forest.Warnings, 1)
	assert.True(t, pkgerrors.IsCycleDetected(forest.Warnings[0]))
}

func TestAssembleForest_DepthBound(t *testing.T) {
	ns := valueobjects.NewNamespace(valueobjects.LocalID("root"), 3)
	records := chain(5)

	forest := AssembleForest(ns, records)

	// g1..g3 fit within the bound, g4 and g5 are dropped
	depth := 0
	level := forest.RootChildren
	for len(level) > 0 {
		depth++
		level = level[0].Children()
	}
	assert.Equal(t, 3, depth)
	assert.Len(t, forest.Warnings, 2)
}

func TestAssembleForest_DuplicateKeepsFirst(t *testing.T) {
	records := []entities.Node[valueobjects.LocalID]{
		fixtures.Local("a").WithTitle("first").Build(),
		fixtures.Local("a").WithTitle("second").Build(),
	}

	forest := AssembleForest(localNS, records)

	require.Len(t, forest.RootChildren, 1)
	assert.Equal(t, "first", forest.RootChildren[0].Title())
}

// chain builds root > g1 > g2 > ... > gN
func chain(n int) []entities.Node[valueobjects.LocalID] {
	var out []entities.Node[valueobjects.LocalID]
	parent := "root"
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("g%d", i)
		out = append(out, fixtures.Local(id).Group().WithParent(parent).Build())
		parent = id
	}
	return out
}
