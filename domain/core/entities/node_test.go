package entities_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/entities/fixtures"
	"snippets-backend/domain/core/valueobjects"
)

func TestNewNode(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("CET", 3600))
	parent := valueobjects.LocalID("root")
	id := valueobjects.NewLocalID()

	n := entities.NewNode(id, &parent, valueobjects.KindLeaf, "Greeting", "Hello there", "", 2, now)

	assert.Equal(t, id, n.ID())
	assert.Equal(t, valueobjects.DefaultColorID, n.ColorID())
	assert.Equal(t, "2024-05-06T06:08:09Z", n.CreatedAt())
	assert.True(t, n.IsLeaf())
	assert.Equal(t, valueobjects.Provenance(""), n.Provenance())

	p, ok := n.ParentID()
	require.True(t, ok)
	assert.Equal(t, parent, p)

	created, err := n.CreatedTime()
	require.NoError(t, err)
	assert.True(t, created.Equal(now))
}

func TestNode_ParentOrRoot(t *testing.T) {
	ns := valueobjects.NewNamespace(valueobjects.RemoteID("0"), 0)

	orphan := fixtures.Remote("5").Build()
	assert.Equal(t, valueobjects.RemoteID("0"), orphan.ParentOrRoot(ns))

	child := fixtures.Remote("6").WithParent("5").Build()
	assert.Equal(t, valueobjects.RemoteID("5"), child.ParentOrRoot(ns))

	blank := fixtures.Remote("7").WithParent("").Build()
	assert.Equal(t, valueobjects.RemoteID("0"), blank.ParentOrRoot(ns))
}

func TestNode_RebuildersDoNotMutate(t *testing.T) {
	child := fixtures.Local("c").Build()
	group := fixtures.Local("g").Group().WithParent("root").WithChildren(child).Build()

	moved := group.WithParent("other")
	stamped := group.WithProvenance(valueobjects.ProvenanceLocal)
	reordered := group.WithOrderIndex(9)
	stripped := group.WithoutChildren()
	edited := group.WithContent("New", "Body", "red")

	p, _ := group.ParentID()
	assert.Equal(t, valueobjects.LocalID("root"), p)
	p, _ = moved.ParentID()
	assert.Equal(t, valueobjects.LocalID("other"), p)

	assert.Equal(t, valueobjects.Provenance(""), group.Provenance())
	assert.Equal(t, valueobjects.ProvenanceLocal, stamped.Provenance())
	assert.Equal(t, float64(0), group.OrderIndex())
	assert.Equal(t, float64(9), reordered.OrderIndex())
	assert.Equal(t, 1, group.ChildCount())
	assert.Equal(t, 0, stripped.ChildCount())
	assert.Equal(t, "Test Snippet", group.Title())
	assert.Equal(t, valueobjects.ColorID("red"), edited.ColorID())

	kids := group.Children()
	kids[0] = fixtures.Local("x").Build()
	assert.Equal(t, valueobjects.LocalID("c"), group.Children()[0].ID())
}

func TestNode_Attributes(t *testing.T) {
	n := fixtures.Remote("12").WithParent("3").WithTitle("T").WithBody("B").WithOrder(1.5).Build()
	attrs := n.Attributes()

	rebuilt := entities.ReconstructNode(attrs)
	assert.Equal(t, n, rebuilt)

	*attrs.ParentID = "99"
	p, _ := n.ParentID()
	assert.Equal(t, valueobjects.RemoteID("3"), p)
}

func TestEntry(t *testing.T) {
	leaf := fixtures.Remote("2").WithParent("1").Build()
	group := fixtures.Remote("1").Group().WithChildren(leaf).Build()

	var e entities.Entry = group
	assert.Equal(t, "1", e.Key())
	assert.Equal(t, "", e.ParentKey())
	require.Len(t, e.Entries(), 1)
	assert.Equal(t, "1", e.Entries()[0].ParentKey())
	assert.Nil(t, leaf.Entries())
}

func TestCombinedTree(t *testing.T) {
	localLeaf := fixtures.Local("l1").WithParent("root").Build().WithProvenance(valueobjects.ProvenanceLocal)
	localGroup := fixtures.Local("g1").Group().WithParent("root").
		WithChildren(fixtures.Local("l2").WithParent("g1").Build()).
		Build()
	remoteLeaf := fixtures.Remote("4").WithParent("0").Build()
	detached := fixtures.Local("orphan").WithParent("gone").Build()

	tree := entities.NewCombinedTree(
		[]entities.Entry{localLeaf, localGroup, remoteLeaf},
		[]entities.Entry{detached},
	)

	assert.False(t, tree.IsEmpty())
	assert.Equal(t, 4, tree.LeafCount())
	assert.Equal(t, 5, tree.NodeCount())
	assert.Equal(t, entities.CombinedRootKey, tree.Root().Key())
	assert.Equal(t, valueobjects.KindContainer, tree.Root().Kind())

	top := tree.TopLevel()
	require.Len(t, top, 2)
	assert.Equal(t, entities.CombinedRootKey, top[0].Key())
	assert.Equal(t, "orphan", top[1].Key())

	var visited []string
	var depths []int
	tree.Walk(func(e entities.Entry, depth int) bool {
		visited = append(visited, e.Key())
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []string{"l1", "g1", "l2", "4", "orphan"}, visited)
	assert.Equal(t, []int{0, 0, 1, 0, 0}, depths)

	var first []string
	tree.Walk(func(e entities.Entry, depth int) bool {
		first = append(first, e.Key())
		return len(first) < 2
	})
	assert.Equal(t, []string{"l1", "g1"}, first)

	export := tree.Export()
	require.Len(t, export.Entries, 4)
	assert.Equal(t, "l2", export.Entries[2].ID)
	assert.Equal(t, 1, export.Entries[2].Depth)
	assert.Equal(t, "g1", export.Entries[2].ParentID)
	assert.Empty(t, export.Entries[1].Body)
	require.Len(t, export.Detached, 1)
	assert.Equal(t, 4, export.LeafCount)
}

func TestCombinedTree_Empty(t *testing.T) {
	tree := entities.NewCombinedTree(nil, nil)

	assert.True(t, tree.IsEmpty())
	assert.Equal(t, 0, tree.LeafCount())
	assert.Len(t, tree.TopLevel(), 1)
	assert.Empty(t, tree.Export().Entries)
}
