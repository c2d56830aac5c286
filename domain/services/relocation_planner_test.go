package services

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/entities/fixtures"
	"snippets-backend/domain/core/valueobjects"
	pkgerrors "snippets-backend/pkg/errors"
)

type destinationRow struct {
	ID    valueobjects.LocalID
	Depth int
}

func rows(plan Plan[valueobjects.LocalID]) []destinationRow {
	out := make([]destinationRow, len(plan.Destinations))
	for i, d := range plan.Destinations {
		out[i] = destinationRow{ID: d.Group.ID(), Depth: d.Depth}
	}
	return out
}

func localPlanner() *RelocationPlanner[valueobjects.LocalID] {
	return NewRelocationPlanner(localNS, zap.NewNop())
}

func group(id, parent string, order float64) entities.Node[valueobjects.LocalID] {
	return fixtures.Local(id).Group().WithParent(parent).WithOrder(order).Build()
}

// root
//
//	X
//	  Y
//	    Z
//	W
func nestedGroups() []entities.Node[valueobjects.LocalID] {
	return []entities.Node[valueobjects.LocalID]{
		group("Z", "Y", 0),
		group("W", "root", 1),
		fixtures.Local("root").Group().Build(),
		group("X", "root", 0),
		group("Y", "X", 0),
	}
}

func TestPlanDestinations_ExcludesDescendantsOfContainer(t *testing.T) {
	x := group("X", "root", 0)

	plan := localPlanner().PlanDestinations(nestedGroups(), x)

	assert.Equal(t, []destinationRow{{"W", 0}}, rows(plan))
	assert.False(t, plan.Contains("X"))
	assert.False(t, plan.Contains("Y"))
	assert.False(t, plan.Contains("Z"))
	assert.False(t, plan.Contains("root"), "current parent is not offered")
	assert.Empty(t, plan.Warnings)
}

func TestPlanDestinations_LeafOnlyExcludesCurrentParent(t *testing.T) {
	s := fixtures.Local("S").WithParent("Y").Build()

	plan := localPlanner().PlanDestinations(nestedGroups(), s)

	assert.Equal(t, []destinationRow{
		{"root", 0},
		{"X", 1},
		{"Z", 2},
		{"W", 1},
	}, rows(plan))
}

func TestPlanDestinations_NestedGroupMove(t *testing.T) {
	y := group("Y", "X", 0)

	plan := localPlanner().PlanDestinations(nestedGroups(), y)

	assert.Equal(t, []destinationRow{
		{"root", 0},
		{"W", 1},
	}, rows(plan))
}

func TestPlanDestinations_RootAbsent(t *testing.T) {
	groups := []entities.Node[valueobjects.LocalID]{
		group("A", "root", 1),
		group("B", "root", 0),
		group("B1", "B", 0),
	}
	leaf := fixtures.Local("S").WithParent("B1").Build()

	plan := localPlanner().PlanDestinations(groups, leaf)

	assert.Equal(t, []destinationRow{
		{"B", 0},
		{"A", 0},
	}, rows(plan))
}

func TestPlanDestinations_TopLevelItemWithoutParent(t *testing.T) {
	leaf := fixtures.Local("S").Build()

	plan := localPlanner().PlanDestinations(nestedGroups(), leaf)

	assert.False(t, plan.Contains("root"))
	assert.Equal(t, []destinationRow{{"X", 0}, {"Y", 1}, {"Z", 2}, {"W", 0}}, rows(plan))
}

func TestPlanDestinations_EmptyPlan(t *testing.T) {
	groups := []entities.Node[valueobjects.LocalID]{
		fixtures.Local("root").Group().Build(),
		group("only", "root", 0),
	}

	plan := localPlanner().PlanDestinations(groups, group("only", "root", 0))

	assert.True(t, plan.Empty())
}

func TestPlanDestinations_IgnoresLeavesAndDuplicates(t *testing.T) {
	groups := []entities.Node[valueobjects.LocalID]{
		group("A", "root", 0),
		fixtures.Local("leaf").WithParent("root").Build(),
		group("A", "elsewhere", 5),
	}

	plan := localPlanner().PlanDestinations(groups, fixtures.Local("S").WithParent("root").Build())

	assert.Equal(t, []destinationRow{{"A", 0}}, rows(plan))
}

func TestPlanDestinations_DetachedGroupsFollowAtDepthZero(t *testing.T) {
	groups := []entities.Node[valueobjects.LocalID]{
		group("A", "root", 0),
		group("lost", "missing", 0),
		group("lost-child", "lost", 0),
	}

	plan := localPlanner().PlanDestinations(groups, fixtures.Local("S").WithParent("root").Build())

	assert.Equal(t, []destinationRow{
		{"A", 0},
		{"lost", 0},
		{"lost-child", 1},
	}, rows(plan))
}

func TestPlanDestinations_PreExistingCycle(t *testing.T) {
	groups := []entities.Node[valueobjects.LocalID]{
		fixtures.Local("root").Group().Build(),
		group("A", "root", 0),
		group("P", "Q", 0),
		group("Q", "P", 0),
	}

	t.Run("container move walks into the cycle", func(t *testing.T) {
		plan := localPlanner().PlanDestinations(groups, group("M", "A", 0))

		assert.Equal(t, []destinationRow{{"root", 0}}, rows(plan))
		require.Len(t, plan.Warnings, 2)
		for _, w := range plan.Warnings {
			assert.True(t, pkgerrors.IsCycleDetected(w))
		}
	})

	t.Run("leaf move still drops unreachable cycle", func(t *testing.T) {
		plan := localPlanner().PlanDestinations(groups, fixtures.Local("S").WithParent("A").Build())

		assert.Equal(t, []destinationRow{{"root", 0}}, rows(plan))
		assert.Len(t, plan.Warnings, 2)
	})
}

func TestPlanDestinations_NodeInsideCycle(t *testing.T) {
	groups := []entities.Node[valueobjects.LocalID]{
		fixtures.Local("root").Group().Build(),
		group("P", "Q", 0),
		group("Q", "P", 0),
	}

	plan := localPlanner().PlanDestinations(groups, group("P", "Q", 0))

	assert.Equal(t, []destinationRow{{"root", 0}}, rows(plan))
}

func TestPlanDestinations_DepthBound(t *testing.T) {
	planner := NewRelocationPlanner(valueobjects.NewNamespace(valueobjects.LocalID("root"), 3), zap.NewNop())

	plan := planner.PlanDestinations(chain(6), group("M", "root", 9))

	assert.Equal(t, []destinationRow{{"g1", 0}, {"g2", 1}, {"g3", 2}}, rows(plan))
	assert.NotEmpty(t, plan.Warnings)
}

func TestPlanDestinations_RemoteNamespace(t *testing.T) {
	groups := []entities.Node[valueobjects.RemoteID]{
		fixtures.Remote("0").Group().Build(),
		fixtures.Remote("10").Group().WithParent("0").Build(),
		fixtures.Remote("11").Group().WithParent("10").Build(),
	}
	planner := NewRelocationPlanner(remoteNS, zap.NewNop())

	plan := planner.PlanDestinations(groups, fixtures.Remote("10").Group().WithParent("0").Build())

	require.Len(t, plan.Destinations, 0)
	assert.True(t, plan.Empty())

	plan = planner.PlanDestinations(groups, fixtures.Remote("12").WithParent("11").Build())
	assert.True(t, plan.Contains("0"))
	assert.True(t, plan.Contains("10"))
	assert.False(t, plan.Contains("11"))
}

func TestPlanDestinations_Deterministic(t *testing.T) {
	groups := nestedGroups()
	leaf := fixtures.Local("S").WithParent("W").Build()

	first := localPlanner().PlanDestinations(groups, leaf)
	second := localPlanner().PlanDestinations(groups, leaf)

	assert.Equal(t, rows(first), rows(second))
}

func TestPlanDestinations_Properties(t *testing.T) {
	planner := localPlanner()

	for seed := int64(1); seed <= 40; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			groups := randomGroups(rng, 25)
			parentOf := map[valueobjects.LocalID]valueobjects.LocalID{}
			for _, g := range groups {
				parentOf[g.ID()] = g.ParentOrRoot(localNS)
			}

			for _, node := range groups {
				plan := planner.PlanDestinations(groups, node)
				current := node.ParentOrRoot(localNS)
				offered := map[valueobjects.LocalID]int{}
				for _, d := range plan.Destinations {
					offered[d.Group.ID()] = d.Depth
				}

				var stack []Destination[valueobjects.LocalID]
				for _, d := range plan.Destinations {
					id := d.Group.ID()
					assert.NotEqual(t, node.ID(), id, "self offered")
					assert.NotEqual(t, current, id, "current parent offered")
					assert.False(t, isDescendant(parentOf, id, node.ID()), "descendant %s of %s offered", id, node.ID())

					// one level below the closest offered ancestor
					above, ok := closestOffered(parentOf, offered, id)
					if ok {
						assert.Equal(t, offered[above]+1, d.Depth, "depth of %s", id)
					} else {
						assert.Equal(t, 0, d.Depth, "depth of %s", id)
					}

					// listed right under that ancestor's subtree
					for len(stack) > 0 && stack[len(stack)-1].Depth >= d.Depth {
						stack = stack[:len(stack)-1]
					}
					if ok {
						require.NotEmpty(t, stack, "%s listed before its ancestor", id)
						assert.Equal(t, above, stack[len(stack)-1].Group.ID())
					}
					stack = append(stack, d)
				}
				assert.Empty(t, plan.Warnings)
			}
		})
	}
}

func randomGroups(rng *rand.Rand, n int) []entities.Node[valueobjects.LocalID] {
	out := []entities.Node[valueobjects.LocalID]{fixtures.Local("root").Group().Build()}
	ids := []string{"root"}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("g%d", i)
		out = append(out, group(id, ids[rng.Intn(len(ids))], float64(rng.Intn(3))))
		ids = append(ids, id)
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func isDescendant(parentOf map[valueobjects.LocalID]valueobjects.LocalID, id, ancestor valueobjects.LocalID) bool {
	for cur := id; cur != "root"; {
		p, ok := parentOf[cur]
		if !ok {
			return false
		}
		if p == ancestor {
			return true
		}
		cur = p
	}
	return false
}

func closestOffered(parentOf map[valueobjects.LocalID]valueobjects.LocalID, offered map[valueobjects.LocalID]int, id valueobjects.LocalID) (valueobjects.LocalID, bool) {
	for cur := id; cur != "root"; {
		cur = parentOf[cur]
		if _, ok := offered[cur]; ok {
			return cur, true
		}
	}
	return "", false
}

// root
//
//	S
//	G (current parent of L)
//	  H
func TestPlanDestinations_ChildOfCurrentParentTakesItsPlace(t *testing.T) {
	groups := []entities.Node[valueobjects.LocalID]{
		fixtures.Local("root").Group().Build(),
		group("S", "root", 0),
		group("G", "root", 1),
		group("H", "G", 0),
	}
	leaf := fixtures.Local("L").WithParent("G").Build()

	plan := localPlanner().PlanDestinations(groups, leaf)

	// H must not indent under S
	assert.Equal(t, []destinationRow{
		{"root", 0},
		{"S", 1},
		{"H", 1},
	}, rows(plan))
}
