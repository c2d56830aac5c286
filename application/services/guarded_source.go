package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"snippets-backend/application/ports"
	"snippets-backend/domain/config"
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/validators"
	"snippets-backend/domain/core/valueobjects"
	domainservices "snippets-backend/domain/services"
	pkgerrors "snippets-backend/pkg/errors"
)

// GuardedSource fronts a raw store with the write rules: every save is
// validated, every re-parenting is checked against the relocation plan, and
// every read comes back stamped and ordered. Rejected writes never reach the
// store.
type GuardedSource[K valueobjects.Key] struct {
	store        ports.NodeStore[K]
	ns           valueobjects.Namespace[K]
	validator    *validators.NodeValidator[K]
	planner      *domainservices.RelocationPlanner[K]
	deletePolicy config.DeletePolicy
	now          func() time.Time
	logger       *zap.Logger
}

// NewGuardedSource wraps store with validation and plan checks
func NewGuardedSource[K valueobjects.Key](
	store ports.NodeStore[K],
	ns valueobjects.Namespace[K],
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *GuardedSource[K] {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &GuardedSource[K]{
		store:        store,
		ns:           ns,
		validator:    validators.NewNodeValidator(ns, cfg),
		planner:      domainservices.NewRelocationPlanner(ns, logger),
		deletePolicy: cfg.DeletePolicy,
		now:          time.Now,
		logger:       logger,
	}
}

// Namespace returns the id namespace this source serves
func (s *GuardedSource[K]) Namespace() valueobjects.Namespace[K] {
	return s.ns
}

// ListChildren returns the stamped, ordered children of a group
func (s *GuardedSource[K]) ListChildren(ctx context.Context, parentID *K) ([]entities.Node[K], error) {
	nodes, err := s.store.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return domainservices.StampAndOrder(nodes), nil
}

// ListAll returns every record, stamped and ordered
func (s *GuardedSource[K]) ListAll(ctx context.Context) ([]entities.Node[K], error) {
	nodes, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return domainservices.StampAndOrder(nodes), nil
}

// GetOne returns the stamped node, or nil when absent
func (s *GuardedSource[K]) GetOne(ctx context.Context, id K) (*entities.Node[K], error) {
	n, err := s.store.GetOne(ctx, id)
	if err != nil || n == nil {
		return nil, err
	}
	stamped := n.WithProvenance(s.ns.Provenance())
	return &stamped, nil
}

// Save validates the node and writes it. A node without an id gets a fresh
// one from the store. A new node without a creation time is stamped now; an
// update keeps the stored one. A parent change on an existing node must be a
// legal destination, and a group that still holds children cannot become a
// leaf.
func (s *GuardedSource[K]) Save(ctx context.Context, node entities.Node[K]) (entities.Node[K], error) {
	attrs := node.Attributes()
	attrs.Children = nil

	var existing *entities.Node[K]
	if attrs.ID.IsZero() {
		id, err := s.store.NextID(ctx)
		if err != nil {
			return node, fmt.Errorf("failed to reserve id: %w", err)
		}
		attrs.ID = id
	} else {
		var err error
		if existing, err = s.store.GetOne(ctx, attrs.ID); err != nil {
			return node, err
		}
	}

	if attrs.CreatedAt == "" {
		if existing != nil {
			attrs.CreatedAt = existing.CreatedAt()
		} else {
			attrs.CreatedAt = s.now().UTC().Format(time.RFC3339Nano)
		}
	}
	if attrs.ColorID == "" {
		attrs.ColorID = valueobjects.DefaultColorID
	}
	candidate := entities.ReconstructNode(attrs)

	// children are never persisted, but a leaf that would hold any is rejected
	// along with every other violated rule
	children := node.Children()
	if len(children) == 0 && candidate.IsLeaf() && existing != nil && existing.IsContainer() {
		stored, err := s.store.ListChildren(ctx, &attrs.ID)
		if err != nil {
			return node, err
		}
		children = stored
	}
	if len(children) > 0 {
		candidate = candidate.WithChildren(children)
	}
	if _, err := s.validator.Validate(candidate); err != nil {
		return node, err
	}
	candidate = candidate.WithoutChildren()

	if err := s.checkParent(ctx, candidate, existing); err != nil {
		return node, err
	}

	saved, err := s.store.Save(ctx, candidate)
	if err != nil {
		return node, err
	}
	return saved.WithProvenance(s.ns.Provenance()), nil
}

// checkParent enforces that a new node lands in an existing group and that an
// existing node only changes parent to a destination from its plan.
func (s *GuardedSource[K]) checkParent(ctx context.Context, node entities.Node[K], existing *entities.Node[K]) error {
	parent := node.ParentOrRoot(s.ns)

	if existing != nil {
		if existing.ParentOrRoot(s.ns) == parent {
			return nil
		}
		plan, err := s.planFor(ctx, *existing)
		if err != nil {
			return err
		}
		if !plan.Contains(parent) {
			return pkgerrors.NewInvalidDestinationError(node.ID().String(), parent.String())
		}
		return nil
	}

	if s.ns.IsRoot(parent) {
		return nil
	}
	group, err := s.store.GetOne(ctx, parent)
	if err != nil {
		return err
	}
	if group == nil || !group.IsContainer() {
		return pkgerrors.NewInvalidDestinationError(node.ID().String(), parent.String())
	}
	return nil
}

// Delete removes a node, honouring the delete policy for non-empty groups
func (s *GuardedSource[K]) Delete(ctx context.Context, id K) error {
	if s.deletePolicy == config.DeletePolicyRejectNonEmpty {
		children, err := s.store.ListChildren(ctx, &id)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return pkgerrors.NewGroupNotEmptyError(id.String(), len(children))
		}
	}
	return s.store.Delete(ctx, id)
}

// Move re-parents nodeID under destinationGroupID if the destination is in
// the node's current relocation plan. The store is not touched otherwise.
func (s *GuardedSource[K]) Move(ctx context.Context, nodeID, destinationGroupID K) error {
	node, err := s.store.GetOne(ctx, nodeID)
	if err != nil {
		return err
	}
	if node == nil {
		return pkgerrors.NewNodeNotFoundError(valueobjects.RefOf(nodeID).String())
	}

	plan, err := s.planFor(ctx, *node)
	if err != nil {
		return err
	}
	if !plan.Contains(destinationGroupID) {
		s.logger.Info("Rejected move outside relocation plan",
			zap.String("node_id", nodeID.String()),
			zap.String("destination_id", destinationGroupID.String()),
			zap.Int("legal_destinations", len(plan.Destinations)),
		)
		return pkgerrors.NewInvalidDestinationError(nodeID.String(), destinationGroupID.String())
	}

	return s.store.Move(ctx, nodeID, destinationGroupID)
}

// Plan returns the node and its relocation plan
func (s *GuardedSource[K]) Plan(ctx context.Context, nodeID K) (entities.Node[K], domainservices.Plan[K], error) {
	node, err := s.GetOne(ctx, nodeID)
	if err != nil {
		return entities.Node[K]{}, domainservices.Plan[K]{}, err
	}
	if node == nil {
		return entities.Node[K]{}, domainservices.Plan[K]{}, pkgerrors.NewNodeNotFoundError(valueobjects.RefOf(nodeID).String())
	}
	plan, err := s.planFor(ctx, *node)
	return *node, plan, err
}

// planFor plans against every stored group. A namespace without a root
// record is planned as if it had one, so nested nodes can always return to
// the top level.
func (s *GuardedSource[K]) planFor(ctx context.Context, node entities.Node[K]) (domainservices.Plan[K], error) {
	groups, err := s.ListAll(ctx)
	if err != nil {
		return domainservices.Plan[K]{}, err
	}
	if !slices.ContainsFunc(groups, func(g entities.Node[K]) bool { return s.ns.IsRoot(g.ID()) }) {
		groups = append(groups, s.rootPlaceholder())
	}
	return s.planner.PlanDestinations(groups, node), nil
}

// rootPlaceholder stands in for a missing root record. It is never saved;
// stores only record the sentinel as the parent id.
func (s *GuardedSource[K]) rootPlaceholder() entities.Node[K] {
	return entities.ReconstructNode(entities.NodeAttributes[K]{
		ID:      s.ns.Root(),
		Kind:    valueobjects.KindContainer,
		ColorID: valueobjects.DefaultColorID,
	}).WithProvenance(s.ns.Provenance())
}
