package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
	pkgerrors "snippets-backend/pkg/errors"
)

// ChangeOp names a write in a change batch
type ChangeOp string

const (
	ChangeSave   ChangeOp = "save"
	ChangeMove   ChangeOp = "move"
	ChangeDelete ChangeOp = "delete"
)

// Change is one write of a batch. Save uses Node; move and delete use
// NodeID, and move also uses DestinationID.
type Change struct {
	Op            ChangeOp
	Provenance    valueobjects.Provenance
	NodeID        string
	DestinationID string
	Node          NodeInput
}

// ChangeResult reports the outcome of one change
type ChangeResult struct {
	Index int
	Op    ChangeOp
	Ref   valueobjects.NodeRef
	Node  entities.Entry
	Err   error
}

// OK reports whether the change was applied
func (r ChangeResult) OK() bool {
	return r.Err == nil
}

// ApplyChanges runs each change in order against its owning source. There is
// no cross-store transaction: a failed change is reported in its result and
// the others are neither skipped nor rolled back.
func (s *TreeService) ApplyChanges(ctx context.Context, changes []Change) []ChangeResult {
	results := make([]ChangeResult, len(changes))
	failed := 0
	for i, c := range changes {
		results[i] = s.applyChange(ctx, i, c)
		if results[i].Err != nil {
			failed++
		}
	}
	if failed > 0 {
		s.logger.Info("Change batch partially applied",
			zap.Int("changes", len(changes)),
			zap.Int("failed", failed),
		)
	}
	return results
}

func (s *TreeService) applyChange(ctx context.Context, index int, c Change) ChangeResult {
	r := ChangeResult{Index: index, Op: c.Op, Ref: valueobjects.NodeRef{Provenance: c.Provenance, ID: c.NodeID}}
	switch c.Op {
	case ChangeSave:
		r.Ref.ID = c.Node.ID
		r.Node, r.Err = s.SaveNode(ctx, c.Provenance, c.Node)
		if r.Node != nil {
			r.Ref.ID = r.Node.Key()
		}
	case ChangeMove:
		r.Err = s.MoveNode(ctx, r.Ref, c.DestinationID)
	case ChangeDelete:
		r.Err = s.DeleteNode(ctx, r.Ref)
	default:
		r.Err = pkgerrors.NewValidationError(fmt.Sprintf("unknown change operation %q", c.Op))
	}
	return r
}
