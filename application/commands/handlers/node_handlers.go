package handlers

import (
	"context"

	"go.uber.org/zap"

	"snippets-backend/application/commands"
	"snippets-backend/application/commands/bus"
	"snippets-backend/application/services"
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
)

// TreeWriter is the write side of the tree service
type TreeWriter interface {
	SaveNode(ctx context.Context, provenance valueobjects.Provenance, in services.NodeInput) (entities.Entry, error)
	MoveNode(ctx context.Context, ref valueobjects.NodeRef, destinationID string) error
	DeleteNode(ctx context.Context, ref valueobjects.NodeRef) error
	ApplyChanges(ctx context.Context, changes []services.Change) []services.ChangeResult
}

// NodeCommandHandler handles the node write commands
type NodeCommandHandler struct {
	tree   TreeWriter
	logger *zap.Logger
}

// NewNodeCommandHandler creates a new node command handler
func NewNodeCommandHandler(tree TreeWriter, logger *zap.Logger) *NodeCommandHandler {
	return &NodeCommandHandler{tree: tree, logger: logger}
}

// Register registers every node command on b
func (h *NodeCommandHandler) Register(b *bus.CommandBus) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.SaveNodeCommand{}, bus.HandlerFor(h.HandleSave)},
		{commands.MoveNodeCommand{}, bus.HandlerFor(h.HandleMove)},
		{commands.DeleteNodeCommand{}, bus.HandlerFor(h.HandleDelete)},
		{commands.ApplyChangesCommand{}, bus.HandlerFor(h.HandleApplyChanges)},
	}
	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleSave returns the saved entities.Entry
func (h *NodeCommandHandler) HandleSave(ctx context.Context, cmd commands.SaveNodeCommand) (interface{}, error) {
	saved, err := h.tree.SaveNode(ctx, cmd.Provenance, cmd.Node)
	if err != nil {
		return nil, err
	}
	h.logger.Info("Node saved",
		zap.String("provenance", cmd.Provenance.String()),
		zap.String("node_id", saved.Key()),
	)
	return saved, nil
}

func (h *NodeCommandHandler) HandleMove(ctx context.Context, cmd commands.MoveNodeCommand) (interface{}, error) {
	if err := h.tree.MoveNode(ctx, cmd.Ref(), cmd.DestinationID); err != nil {
		return nil, err
	}
	h.logger.Info("Node moved",
		zap.String("node", cmd.Ref().String()),
		zap.String("destination_id", cmd.DestinationID),
	)
	return nil, nil
}

func (h *NodeCommandHandler) HandleDelete(ctx context.Context, cmd commands.DeleteNodeCommand) (interface{}, error) {
	if err := h.tree.DeleteNode(ctx, cmd.Ref()); err != nil {
		return nil, err
	}
	h.logger.Info("Node deleted", zap.String("node", cmd.Ref().String()))
	return nil, nil
}

// HandleApplyChanges returns []services.ChangeResult. Individual failures are
// reported in the results, never as the handler error.
func (h *NodeCommandHandler) HandleApplyChanges(ctx context.Context, cmd commands.ApplyChangesCommand) (interface{}, error) {
	return h.tree.ApplyChanges(ctx, cmd.Changes), nil
}
