package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snippets-backend/application/ports/mocks"
	"snippets-backend/domain/config"
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/entities/fixtures"
	"snippets-backend/domain/core/validators"
	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/infrastructure/persistence/memory"
	pkgerrors "snippets-backend/pkg/errors"
)

var remoteNS = config.DefaultDomainConfig().RemoteNamespace()

// remoteTree seeds: root 0 > group 1 > group 2, leaf 5 in group 1, group 3 at top level
func remoteTree() []entities.Node[valueobjects.RemoteID] {
	return []entities.Node[valueobjects.RemoteID]{
		fixtures.Remote("0").Group().WithTitle("Root").Build(),
		fixtures.Remote("1").Group().WithParent("0").WithTitle("Work").Build(),
		fixtures.Remote("2").Group().WithParent("1").WithTitle("Drafts").Build(),
		fixtures.Remote("3").Group().WithParent("0").WithTitle("Personal").Build(),
		fixtures.Remote("5").WithParent("1").WithTitle("Standup notes").Build(),
	}
}

func newGuardedRemote(t *testing.T, cfg *config.DomainConfig) (*GuardedSource[valueobjects.RemoteID], *memory.NodeStore[valueobjects.RemoteID]) {
	t.Helper()
	store := memory.NewNodeStore(remoteNS, func() valueobjects.RemoteID { return "100" })
	store.Seed(remoteTree()...)
	src := NewGuardedSource[valueobjects.RemoteID](store, remoteNS, cfg, zap.NewNop())
	src.now = func() time.Time { return fixtures.FixedTime }
	return src, store
}

func TestGuardedSource_ReadsAreStampedAndOrdered(t *testing.T) {
	store := memory.NewRemoteNodeStore(remoteNS)
	store.Seed(
		fixtures.Remote("1").WithOrder(2).Build(),
		fixtures.Remote("2").WithOrder(1).Build(),
	)
	src := NewGuardedSource[valueobjects.RemoteID](store, remoteNS, nil, zap.NewNop())

	nodes, err := src.ListChildren(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, valueobjects.RemoteID("2"), nodes[0].ID())
	for _, n := range nodes {
		assert.Equal(t, valueobjects.ProvenanceRemote, n.Provenance())
	}

	one, err := src.GetOne(context.Background(), "1")
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, valueobjects.ProvenanceRemote, one.Provenance())
}

func TestGuardedSource_SaveAssignsIDAndTimestamp(t *testing.T) {
	src, store := newGuardedRemote(t, nil)

	node := entities.ReconstructNode(entities.NodeAttributes[valueobjects.RemoteID]{
		Kind:  valueobjects.KindLeaf,
		Title: "Deploy checklist",
		Body:  "1. tag 2. push",
	})
	saved, err := src.Save(context.Background(), node)

	require.NoError(t, err)
	assert.Equal(t, valueobjects.RemoteID("100"), saved.ID())
	assert.Equal(t, fixtures.FixedTime.Format(time.RFC3339Nano), saved.CreatedAt())
	assert.Equal(t, valueobjects.DefaultColorID, saved.ColorID())
	assert.Equal(t, valueobjects.ProvenanceRemote, saved.Provenance())
	assert.Equal(t, 6, store.Len())
}

func TestGuardedSource_SaveRejectsInvalidNode(t *testing.T) {
	src, store := newGuardedRemote(t, nil)

	node := fixtures.Remote("7").
		WithTitle("This title is far too long to be accepted by the rules!").
		WithBody("").
		WithChildren(fixtures.Remote("8").Build()).
		Build()
	_, err := src.Save(context.Background(), node)

	var ve *pkgerrors.ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{
		validators.RuleTitleLength,
		validators.RuleBodyLength,
		validators.RuleLeafHasChildren,
	}, ve.Codes())
	assert.Equal(t, 5, store.Len())
}

func TestGuardedSource_SaveChecksParent(t *testing.T) {
	tests := []struct {
		name    string
		node    entities.Node[valueobjects.RemoteID]
		wantErr bool
	}{
		{name: "new node at top level", node: fixtures.Remote("9").Build()},
		{name: "new node in group", node: fixtures.Remote("9").WithParent("2").Build()},
		{name: "new node under leaf", node: fixtures.Remote("9").WithParent("5").Build(), wantErr: true},
		{name: "new node under missing group", node: fixtures.Remote("9").WithParent("42").Build(), wantErr: true},
		{name: "existing node keeps parent", node: fixtures.Remote("5").WithParent("1").WithTitle("Edited").Build()},
		{name: "existing node moves to legal group", node: fixtures.Remote("5").WithParent("3").Build()},
		{name: "group moves into own descendant", node: fixtures.Remote("1").Group().WithParent("2").Build(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _ := newGuardedRemote(t, nil)

			_, err := src.Save(context.Background(), tt.node)
			if tt.wantErr {
				assert.True(t, pkgerrors.IsInvalidDestination(err), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGuardedSource_MoveRejectsIllegalDestination(t *testing.T) {
	store := new(mocks.MockNodeStore[valueobjects.RemoteID])
	records := remoteTree()
	group := records[1]
	store.On("GetOne", mock.Anything, valueobjects.RemoteID("1")).Return(&group, nil)
	store.On("ListAll", mock.Anything).Return(records, nil)

	src := NewGuardedSource[valueobjects.RemoteID](store, remoteNS, nil, zap.NewNop())

	for _, dest := range []valueobjects.RemoteID{"1", "2", "0", "5", "404"} {
		err := src.Move(context.Background(), "1", dest)
		assert.True(t, pkgerrors.IsInvalidDestination(err), "destination %s: %v", dest, err)
	}
	store.AssertNotCalled(t, "Move", mock.Anything, mock.Anything, mock.Anything)
}

func TestGuardedSource_MoveLegalDestination(t *testing.T) {
	store := new(mocks.MockNodeStore[valueobjects.RemoteID])
	records := remoteTree()
	leaf := records[4]
	store.On("GetOne", mock.Anything, valueobjects.RemoteID("5")).Return(&leaf, nil)
	store.On("ListAll", mock.Anything).Return(records, nil)
	store.On("Move", mock.Anything, valueobjects.RemoteID("5"), valueobjects.RemoteID("2")).Return(nil)

	src := NewGuardedSource[valueobjects.RemoteID](store, remoteNS, nil, zap.NewNop())

	require.NoError(t, src.Move(context.Background(), "5", "2"))
	store.AssertExpectations(t)
}

func TestGuardedSource_MoveMissingNode(t *testing.T) {
	src, _ := newGuardedRemote(t, nil)

	err := src.Move(context.Background(), "404", "1")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestGuardedSource_DeletePolicy(t *testing.T) {
	ctx := context.Background()

	src, store := newGuardedRemote(t, config.ProductionDomainConfig())
	err := src.Delete(ctx, "1")
	assert.ErrorIs(t, err, pkgerrors.ErrGroupNotEmpty)
	assert.Equal(t, 5, store.Len())

	require.NoError(t, src.Delete(ctx, "2"))
	assert.Equal(t, 4, store.Len())

	src, store = newGuardedRemote(t, config.DefaultDomainConfig())
	require.NoError(t, src.Delete(ctx, "1"))
	assert.Equal(t, 4, store.Len())
}

func TestGuardedSource_StoreFailurePropagates(t *testing.T) {
	src, store := newGuardedRemote(t, nil)
	boom := errors.New("throttled")
	store.FailWith(boom)

	_, err := src.ListAll(context.Background())
	assert.ErrorIs(t, err, boom)

	_, _, err = src.Plan(context.Background(), "5")
	assert.ErrorIs(t, err, boom)
}

func TestGuardedSource_Plan(t *testing.T) {
	src, _ := newGuardedRemote(t, nil)

	node, plan, err := src.Plan(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Work", node.Title())

	var got []string
	for _, d := range plan.Destinations {
		got = append(got, d.Group.Key())
	}
	assert.Equal(t, []string{"3"}, got)
	assert.Empty(t, plan.Warnings)
}

func TestGuardedSource_GroupWithChildrenCannotBecomeLeaf(t *testing.T) {
	src, store := newGuardedRemote(t, nil)
	ctx := context.Background()

	_, err := src.Save(ctx, fixtures.Remote("1").WithParent("0").WithTitle("Work").WithBody("").Build())

	var ve *pkgerrors.ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{validators.RuleBodyLength, validators.RuleLeafHasChildren}, ve.Codes())
	stored, err := store.GetOne(ctx, "1")
	require.NoError(t, err)
	assert.True(t, stored.IsContainer())

	// an empty group may still become a leaf
	saved, err := src.Save(ctx, fixtures.Remote("3").WithParent("0").WithTitle("Personal").Build())
	require.NoError(t, err)
	assert.True(t, saved.IsLeaf())
}

func TestGuardedSource_UpdateKeepsCreationTime(t *testing.T) {
	src, _ := newGuardedRemote(t, nil)
	src.now = func() time.Time { return fixtures.FixedTime.Add(48 * time.Hour) }

	saved, err := src.Save(context.Background(),
		fixtures.Remote("5").WithParent("1").WithTitle("Edited").WithCreatedAt("").Build())

	require.NoError(t, err)
	assert.Equal(t, fixtures.FixedTime.Format(time.RFC3339Nano), saved.CreatedAt())
}

func TestGuardedSource_MoveToTopLevelWithoutRootRecord(t *testing.T) {
	ns := config.DefaultDomainConfig().LocalNamespace()
	store := memory.NewLocalNodeStore(ns)
	store.Seed(
		fixtures.Local("6f1c7c5e-3f55-4d8e-9a43-0d9c2a9a1e01").Group().Build(),
		fixtures.Local("6f1c7c5e-3f55-4d8e-9a43-0d9c2a9a1e02").WithParent("6f1c7c5e-3f55-4d8e-9a43-0d9c2a9a1e01").Build(),
	)
	src := NewGuardedSource[valueobjects.LocalID](store, ns, nil, zap.NewNop())
	ctx := context.Background()
	leaf := valueobjects.LocalID("6f1c7c5e-3f55-4d8e-9a43-0d9c2a9a1e02")

	_, plan, err := src.Plan(ctx, leaf)
	require.NoError(t, err)
	require.Len(t, plan.Destinations, 1)
	assert.Equal(t, ns.Root(), plan.Destinations[0].Group.ID())
	assert.Equal(t, 0, plan.Destinations[0].Depth)

	require.NoError(t, src.Move(ctx, leaf, ns.Root()))
	moved, err := store.GetOne(ctx, leaf)
	require.NoError(t, err)
	assert.Equal(t, ns.Root(), moved.ParentOrRoot(ns))
	assert.Equal(t, 2, store.Len(), "the root stays unsaved")

	// a top-level group has nowhere to go
	_, plan, err = src.Plan(ctx, "6f1c7c5e-3f55-4d8e-9a43-0d9c2a9a1e01")
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}
