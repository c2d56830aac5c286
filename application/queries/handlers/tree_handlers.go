package handlers

import (
	"context"

	"snippets-backend/application/queries"
	"snippets-backend/application/queries/bus"
	"snippets-backend/application/services"
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
)

// TreeReader is the read side of the tree service
type TreeReader interface {
	GetCombinedTree(ctx context.Context) services.CombinedTreeResult
	GetNode(ctx context.Context, ref valueobjects.NodeRef) (entities.Entry, error)
	GetRelocationPlan(ctx context.Context, ref valueobjects.NodeRef) (services.RelocationPlanResult, error)
}

// TreeQueryHandler answers the tree queries
type TreeQueryHandler struct {
	tree TreeReader
}

// NewTreeQueryHandler creates a new tree query handler
func NewTreeQueryHandler(tree TreeReader) *TreeQueryHandler {
	return &TreeQueryHandler{tree: tree}
}

// Register registers every tree query on b
func (h *TreeQueryHandler) Register(b *bus.QueryBus) error {
	if err := b.Register(queries.GetCombinedTreeQuery{}, bus.HandlerFor(h.HandleCombinedTree)); err != nil {
		return err
	}
	if err := b.Register(queries.GetNodeQuery{}, bus.HandlerFor(h.HandleNode)); err != nil {
		return err
	}
	return b.Register(queries.GetRelocationPlanQuery{}, bus.HandlerFor(h.HandleRelocationPlan))
}

// HandleCombinedTree never fails; unavailable sources are reported in the result
func (h *TreeQueryHandler) HandleCombinedTree(ctx context.Context, _ queries.GetCombinedTreeQuery) (services.CombinedTreeResult, error) {
	return h.tree.GetCombinedTree(ctx), nil
}

func (h *TreeQueryHandler) HandleNode(ctx context.Context, q queries.GetNodeQuery) (entities.Entry, error) {
	return h.tree.GetNode(ctx, q.Ref())
}

func (h *TreeQueryHandler) HandleRelocationPlan(ctx context.Context, q queries.GetRelocationPlanQuery) (services.RelocationPlanResult, error) {
	return h.tree.GetRelocationPlan(ctx, q.Ref())
}
