package services

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snippets-backend/domain/config"
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/entities/fixtures"
	"snippets-backend/domain/core/valueobjects"
)

func newMergeEngine(dropDetached bool) *MergeEngine {
	cfg := config.DefaultDomainConfig()
	cfg.DropDetached = dropDetached
	return NewMergeEngine(cfg, zap.NewNop())
}

func keys(entries []entities.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key()
	}
	return out
}

func TestMergeEngine_LocalFirstOrdering(t *testing.T) {
	local := AssembleForest(localNS, []entities.Node[valueobjects.LocalID]{
		fixtures.Local("B").WithParent("root").WithOrder(1).Build(),
		fixtures.Local("A").WithParent("root").WithOrder(0).Build(),
	})
	remote := AssembleForest(remoteNS, []entities.Node[valueobjects.RemoteID]{
		fixtures.Remote("7").WithParent("0").WithOrder(0).WithTitle("C").Build(),
	})

	tree := newMergeEngine(false).Merge(local, remote)

	children := tree.Children()
	require.Len(t, children, 3)
	assert.Equal(t, []string{"A", "B", "7"}, keys(children))
	assert.Equal(t, valueobjects.ProvenanceLocal, children[0].Provenance())
	assert.Equal(t, valueobjects.ProvenanceLocal, children[1].Provenance())
	assert.Equal(t, valueobjects.ProvenanceRemote, children[2].Provenance())
	assert.Equal(t, "C", children[2].Title())
}

func TestMergeEngine_MergeRootsDropsRootRecords(t *testing.T) {
	localRoot := fixtures.Local("root").Group().WithChildren(
		fixtures.Local("B").WithParent("root").WithOrder(1).Build(),
		fixtures.Local("A").WithParent("root").WithOrder(0).Build(),
	).Build()
	remoteRoot := fixtures.Remote("0").Group().WithChildren(
		fixtures.Remote("5").WithParent("0").Build(),
	).Build()
	stray := fixtures.Remote("9").Build()
	orphan := fixtures.Local("orphan").WithParent("deleted-group").Build()

	tree := newMergeEngine(false).MergeRoots(
		[]entities.Node[valueobjects.LocalID]{localRoot, orphan},
		[]entities.Node[valueobjects.RemoteID]{remoteRoot, stray},
	)

	assert.Equal(t, []string{"A", "B", "5", "9"}, keys(tree.Children()))
	assert.Equal(t, []string{"orphan"}, keys(tree.Detached()))
	assert.Equal(t, []string{entities.CombinedRootKey, "orphan"}, keys(tree.TopLevel()))
	tree.Walk(func(e entities.Entry, _ int) bool {
		assert.NotEqual(t, "root", e.Key())
		assert.NotEqual(t, "0", e.Key())
		return true
	})
}

func TestMergeEngine_DropDetached(t *testing.T) {
	local := AssembleForest(localNS, []entities.Node[valueobjects.LocalID]{
		fixtures.Local("kept").Build(),
		fixtures.Local("orphan").WithParent("gone").Build(),
	})

	tree := newMergeEngine(true).Merge(local, Forest[valueobjects.RemoteID]{})

	assert.Equal(t, []string{"kept"}, keys(tree.Children()))
	assert.Empty(t, tree.Detached())
}

func TestMergeEngine_EmptyInputs(t *testing.T) {
	tree := newMergeEngine(false).Merge(Forest[valueobjects.LocalID]{}, Forest[valueobjects.RemoteID]{})

	assert.True(t, tree.IsEmpty())
	assert.Equal(t, 0, tree.LeafCount())
}

func TestMergeEngine_OneSideEmpty(t *testing.T) {
	remote := AssembleForest(remoteNS, []entities.Node[valueobjects.RemoteID]{
		fixtures.Remote("1").Build(),
	})

	tree := newMergeEngine(false).Merge(Forest[valueobjects.LocalID]{}, remote)

	assert.Equal(t, []string{"1"}, keys(tree.Children()))
}

func TestMergeEngine_Properties(t *testing.T) {
	engine := newMergeEngine(false)

	for seed := int64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			localRecords := randomTree(rng, 30, func(i int) string { return fmt.Sprintf("l%d", i) }, "root",
				fixtures.Local)
			remoteRecords := randomTree(rng, 30, func(i int) string { return fmt.Sprintf("%d", i+1) }, "0",
				fixtures.Remote)

			local := AssembleForest(localNS, localRecords)
			remote := AssembleForest(remoteNS, remoteRecords)

			first := engine.Merge(local, remote)
			second := engine.Merge(
				AssembleForest(localNS, localRecords),
				AssembleForest(remoteNS, remoteRecords),
			)

			// leaf count is additive
			assert.Equal(t, countLeafRecords(localRecords)+countLeafRecords(remoteRecords), first.LeafCount())

			// idempotent
			assert.Equal(t, first.Export(), second.Export())

			// no id twice within a provenance, provenance correct at every depth
			seen := map[string]bool{}
			first.Walk(func(e entities.Entry, depth int) bool {
				key := e.Provenance().String() + ":" + e.Key()
				assert.False(t, seen[key], "duplicate %s", key)
				seen[key] = true
				if e.Key()[0] == 'l' {
					assert.Equal(t, valueobjects.ProvenanceLocal, e.Provenance())
				} else {
					assert.Equal(t, valueobjects.ProvenanceRemote, e.Provenance())
				}
				return true
			})
			assert.Len(t, seen, len(localRecords)+len(remoteRecords))
		})
	}
}

// randomTree builds n flat records forming a random tree under root. Every
// third record is a group; the others are leaves.
func randomTree[K valueobjects.Key](
	rng *rand.Rand,
	n int,
	idFor func(int) string,
	root string,
	start func(string) *fixtures.NodeBuilder[K],
) []entities.Node[K] {
	groups := []string{root}
	var out []entities.Node[K]
	for i := 0; i < n; i++ {
		id := idFor(i)
		parent := groups[rng.Intn(len(groups))]
		b := start(id).WithParent(parent).WithOrder(float64(rng.Intn(4)))
		if i%3 == 0 {
			b = b.Group()
			groups = append(groups, id)
		}
		out = append(out, b.Build())
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func countLeafRecords[K valueobjects.Key](records []entities.Node[K]) int {
	count := 0
	for _, r := range records {
		if r.IsLeaf() {
			count++
		}
	}
	return count
}
