package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"snippets-backend/application/ports"
	"snippets-backend/domain/config"
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/domain/events"
	domainservices "snippets-backend/domain/services"
	"snippets-backend/pkg/common"
	pkgerrors "snippets-backend/pkg/errors"
	"snippets-backend/pkg/observability"
)

// CombinedTreeResult is a merged view plus what went wrong building it.
// Source failures never fail the read; they are listed in Unavailable.
type CombinedTreeResult struct {
	Tree        entities.CombinedTree
	Unavailable []valueobjects.Provenance
	Warnings    []error
}

// PlanDestination is one row of a relocation plan, independent of namespace
type PlanDestination struct {
	Group entities.Entry
	Depth int
}

// RelocationPlanResult is the plan for one node
type RelocationPlanResult struct {
	Node         entities.Entry
	Destinations []PlanDestination
	Warnings     []error
}

// Empty reports the explicit "no valid destination" state
func (r RelocationPlanResult) Empty() bool {
	return len(r.Destinations) == 0
}

// NodeInput carries a node to save. IDs are raw strings of the target
// namespace; an empty ID creates a new node and an empty ParentID places it
// at the top level.
type NodeInput struct {
	ID         string
	ParentID   string
	Kind       valueobjects.Kind
	Title      string
	Body       string
	ColorID    valueobjects.ColorID
	OrderIndex float64
	CreatedAt  string
}

// TreeService is the entry point of the hierarchy engine. It fetches both
// sources concurrently, merges them, plans relocations and routes writes to
// the source that owns the node.
type TreeService struct {
	local     *GuardedSource[valueobjects.LocalID]
	remote    *GuardedSource[valueobjects.RemoteID]
	merge     *domainservices.MergeEngine
	publisher ports.EventPublisher
	metrics   *observability.Collector
	tracer    trace.Tracer
	logger    *zap.Logger
}

// NewTreeService creates the service. remoteStore and publisher may be nil:
// without a remote store every caller is served local data only.
func NewTreeService(
	localStore ports.LocalStore,
	remoteStore ports.RemoteStore,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	metrics *observability.Collector,
	tracer trace.Tracer,
	logger *zap.Logger,
) *TreeService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	s := &TreeService{
		local:     NewGuardedSource(localStore, cfg.LocalNamespace(), cfg, logger.Named("local")),
		merge:     domainservices.NewMergeEngine(cfg, logger),
		publisher: publisher,
		metrics:   metrics,
		tracer:    tracer,
		logger:    logger,
	}
	if remoteStore != nil {
		s.remote = NewGuardedSource(remoteStore, cfg.RemoteNamespace(), cfg, logger.Named("remote"))
	}
	return s
}

// remoteEnabled reports whether the caller may see remote data
func (s *TreeService) remoteEnabled(ctx context.Context) bool {
	return s.remote != nil && common.IsAuthenticated(ctx)
}

func (s *TreeService) requireRemote(ctx context.Context) error {
	if !common.IsAuthenticated(ctx) {
		return pkgerrors.NewAuthenticationRequiredError()
	}
	if s.remote == nil {
		return pkgerrors.NewSourceUnavailableError(string(valueobjects.ProvenanceRemote), nil).
			WithDetail("reason", "remote store not configured")
	}
	return nil
}

// GetCombinedTree fetches both sources concurrently and merges them. A
// failing source is treated as empty so the other side is still shown.
func (s *TreeService) GetCombinedTree(ctx context.Context) CombinedTreeResult {
	ctx, span := s.tracer.Start(ctx, "TreeService.GetCombinedTree")
	defer span.End()
	start := time.Now()

	var (
		local     domainservices.Forest[valueobjects.LocalID]
		remote    domainservices.Forest[valueobjects.RemoteID]
		localErr  error
		remoteErr error
	)

	// neither goroutine returns an error, so one failure never cancels the other
	var g errgroup.Group
	g.Go(func() error {
		local, localErr = fetchForest(ctx, s.local)
		return nil
	})
	if s.remoteEnabled(ctx) {
		g.Go(func() error {
			remote, remoteErr = fetchForest(ctx, s.remote)
			return nil
		})
	}
	_ = g.Wait()

	var result CombinedTreeResult
	if localErr != nil {
		result.Unavailable = append(result.Unavailable, valueobjects.ProvenanceLocal)
		result.Warnings = append(result.Warnings, s.sourceFailure(valueobjects.ProvenanceLocal, "list", localErr))
	}
	if remoteErr != nil {
		result.Unavailable = append(result.Unavailable, valueobjects.ProvenanceRemote)
		result.Warnings = append(result.Warnings, s.sourceFailure(valueobjects.ProvenanceRemote, "list", remoteErr))
	}
	s.metrics.RecordCycles(string(valueobjects.ProvenanceLocal), len(local.Warnings))
	s.metrics.RecordCycles(string(valueobjects.ProvenanceRemote), len(remote.Warnings))
	result.Warnings = append(result.Warnings, local.Warnings...)
	result.Warnings = append(result.Warnings, remote.Warnings...)

	result.Tree = s.merge.Merge(local, remote)
	s.metrics.RecordMerge(time.Since(start))

	span.SetAttributes(
		attribute.Int("tree.leaves", result.Tree.LeafCount()),
		attribute.Int("tree.detached", len(result.Tree.Detached())),
		attribute.Int("tree.unavailable_sources", len(result.Unavailable)),
	)
	return result
}

func fetchForest[K valueobjects.Key](ctx context.Context, src *GuardedSource[K]) (domainservices.Forest[K], error) {
	records, err := src.ListAll(ctx)
	if err != nil {
		return domainservices.Forest[K]{}, err
	}
	return domainservices.AssembleForest(src.Namespace(), records), nil
}

// GetNode returns one node with its provenance stamped
func (s *TreeService) GetNode(ctx context.Context, ref valueobjects.NodeRef) (entities.Entry, error) {
	switch ref.Provenance {
	case valueobjects.ProvenanceLocal:
		return getNode(ctx, s, s.local, ref)
	case valueobjects.ProvenanceRemote:
		if err := s.requireRemote(ctx); err != nil {
			return nil, err
		}
		return getNode(ctx, s, s.remote, ref)
	default:
		return nil, pkgerrors.NewValidationError("unknown provenance " + ref.Provenance.String())
	}
}

func getNode[K valueobjects.Key](ctx context.Context, s *TreeService, src *GuardedSource[K], ref valueobjects.NodeRef) (entities.Entry, error) {
	id, err := src.Namespace().ParseRef(ref)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	n, err := src.GetOne(ctx, id)
	if err != nil {
		return nil, s.classify(ref.Provenance, "get", err)
	}
	if n == nil {
		return nil, pkgerrors.NewNodeNotFoundError(ref.String())
	}
	return *n, nil
}

// GetRelocationPlan lists the legal destinations for a node in its own namespace
func (s *TreeService) GetRelocationPlan(ctx context.Context, ref valueobjects.NodeRef) (RelocationPlanResult, error) {
	ctx, span := s.tracer.Start(ctx, "TreeService.GetRelocationPlan",
		trace.WithAttributes(attribute.String("node.ref", ref.String())))
	defer span.End()

	var (
		result RelocationPlanResult
		err    error
	)
	switch ref.Provenance {
	case valueobjects.ProvenanceLocal:
		result, err = planIn(ctx, s, s.local, ref)
	case valueobjects.ProvenanceRemote:
		if err = s.requireRemote(ctx); err == nil {
			result, err = planIn(ctx, s, s.remote, ref)
		}
	default:
		err = pkgerrors.NewValidationError("unknown provenance " + ref.Provenance.String())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RelocationPlanResult{}, err
	}
	span.SetAttributes(attribute.Int("plan.destinations", len(result.Destinations)))
	return result, nil
}

func planIn[K valueobjects.Key](ctx context.Context, s *TreeService, src *GuardedSource[K], ref valueobjects.NodeRef) (RelocationPlanResult, error) {
	id, err := src.Namespace().ParseRef(ref)
	if err != nil {
		return RelocationPlanResult{}, pkgerrors.NewValidationError(err.Error())
	}
	node, plan, err := src.Plan(ctx, id)
	if err != nil {
		return RelocationPlanResult{}, s.classify(ref.Provenance, "plan", err)
	}
	s.metrics.RecordCycles(ref.Provenance.String(), len(plan.Warnings))

	out := RelocationPlanResult{
		Node:         node,
		Destinations: make([]PlanDestination, 0, len(plan.Destinations)),
		Warnings:     plan.Warnings,
	}
	for _, d := range plan.Destinations {
		out.Destinations = append(out.Destinations, PlanDestination{Group: d.Group, Depth: d.Depth})
	}
	return out, nil
}

// SaveNode creates or updates a node in the namespace named by provenance
func (s *TreeService) SaveNode(ctx context.Context, provenance valueobjects.Provenance, in NodeInput) (entities.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "TreeService.SaveNode",
		trace.WithAttributes(attribute.String("node.provenance", provenance.String())))
	defer span.End()

	var (
		saved entities.Entry
		err   error
	)
	switch provenance {
	case valueobjects.ProvenanceLocal:
		saved, err = saveIn(ctx, s, s.local, in)
	case valueobjects.ProvenanceRemote:
		if err = s.requireRemote(ctx); err == nil {
			saved, err = saveIn(ctx, s, s.remote, in)
		}
	default:
		err = pkgerrors.NewValidationError("unknown provenance " + provenance.String())
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return saved, nil
}

func saveIn[K valueobjects.Key](ctx context.Context, s *TreeService, src *GuardedSource[K], in NodeInput) (entities.Entry, error) {
	p := src.Namespace().Provenance()
	var parent *K
	if in.ParentID != "" {
		pid := K(in.ParentID)
		parent = &pid
	}
	node := entities.ReconstructNode(entities.NodeAttributes[K]{
		ID:         K(in.ID),
		ParentID:   parent,
		Kind:       in.Kind,
		Title:      in.Title,
		Body:       in.Body,
		ColorID:    in.ColorID,
		OrderIndex: in.OrderIndex,
		CreatedAt:  in.CreatedAt,
	})

	saved, err := src.Save(ctx, node)
	if err != nil {
		return nil, s.classify(p, "save", err)
	}
	s.metrics.RecordNodeWrite(p.String(), "save")
	s.publish(ctx, events.NewNodeSaved(
		valueobjects.RefOf(saved.ID()),
		saved.ParentOrRoot(src.Namespace()).String(),
		saved.Kind(),
		saved.Title(),
		userID(ctx),
		time.Now(),
	))
	return saved, nil
}

// DeleteNode removes a node through its owning source
func (s *TreeService) DeleteNode(ctx context.Context, ref valueobjects.NodeRef) error {
	switch ref.Provenance {
	case valueobjects.ProvenanceLocal:
		return deleteIn(ctx, s, s.local, ref)
	case valueobjects.ProvenanceRemote:
		if err := s.requireRemote(ctx); err != nil {
			return err
		}
		return deleteIn(ctx, s, s.remote, ref)
	default:
		return pkgerrors.NewValidationError("unknown provenance " + ref.Provenance.String())
	}
}

func deleteIn[K valueobjects.Key](ctx context.Context, s *TreeService, src *GuardedSource[K], ref valueobjects.NodeRef) error {
	id, err := src.Namespace().ParseRef(ref)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	if err := src.Delete(ctx, id); err != nil {
		return s.classify(ref.Provenance, "delete", err)
	}
	s.metrics.RecordNodeWrite(ref.Provenance.String(), "delete")
	s.publish(ctx, events.NewNodeDeleted(ref, userID(ctx), time.Now()))
	return nil
}

// MoveNode re-parents a node within its own namespace
func (s *TreeService) MoveNode(ctx context.Context, ref valueobjects.NodeRef, destinationID string) error {
	ctx, span := s.tracer.Start(ctx, "TreeService.MoveNode",
		trace.WithAttributes(
			attribute.String("node.ref", ref.String()),
			attribute.String("node.destination", destinationID),
		))
	defer span.End()

	var err error
	switch ref.Provenance {
	case valueobjects.ProvenanceLocal:
		err = moveIn(ctx, s, s.local, ref, destinationID)
	case valueobjects.ProvenanceRemote:
		if err = s.requireRemote(ctx); err == nil {
			err = moveIn(ctx, s, s.remote, ref, destinationID)
		}
	default:
		err = pkgerrors.NewValidationError("unknown provenance " + ref.Provenance.String())
	}
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func moveIn[K valueobjects.Key](ctx context.Context, s *TreeService, src *GuardedSource[K], ref valueobjects.NodeRef, destinationID string) error {
	ns := src.Namespace()
	id, err := ns.ParseRef(ref)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	dest, err := ns.Parse(destinationID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	before, err := src.GetOne(ctx, id)
	if err != nil {
		return s.classify(ref.Provenance, "move", err)
	}
	if before == nil {
		return pkgerrors.NewNodeNotFoundError(ref.String())
	}

	if err := src.Move(ctx, id, dest); err != nil {
		return s.classify(ref.Provenance, "move", err)
	}
	s.metrics.RecordNodeWrite(ref.Provenance.String(), "move")
	s.publish(ctx, events.NewNodeMoved(
		ref,
		before.ParentOrRoot(ns).String(),
		dest.String(),
		userID(ctx),
		time.Now(),
	))
	return nil
}

// classify passes domain errors through and wraps everything else as a
// source failure
func (s *TreeService) classify(p valueobjects.Provenance, operation string, err error) error {
	switch {
	case pkgerrors.IsValidationError(err):
		s.metrics.RecordValidationFailure(p.String())
		return err
	case pkgerrors.IsInvalidDestination(err):
		s.metrics.RecordMoveRejected(p.String())
		return err
	case pkgerrors.GetDomainError(err) != nil:
		return err
	default:
		return s.sourceFailure(p, operation, err)
	}
}

func (s *TreeService) sourceFailure(p valueobjects.Provenance, operation string, err error) error {
	s.metrics.RecordSourceFailure(p.String(), operation)
	s.logger.Warn("Snippet source failed",
		zap.String("provenance", p.String()),
		zap.String("operation", operation),
		zap.Error(err),
	)
	if pkgerrors.IsSourceUnavailable(err) {
		return err
	}
	return pkgerrors.NewSourceUnavailableError(p.String(), err)
}

// publish is best effort; a failed publish never fails the write
func (s *TreeService) publish(ctx context.Context, evt events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, []events.DomainEvent{evt}); err != nil {
		s.metrics.RecordEventsPublished("failed", 1)
		s.logger.Warn("Failed to publish change event",
			zap.String("event_type", evt.GetEventType()),
			zap.String("aggregate_id", evt.GetAggregateID()),
			zap.Error(err),
		)
		return
	}
	s.metrics.RecordEventsPublished("ok", 1)
}

func userID(ctx context.Context) string {
	id, _ := common.GetUserID(ctx)
	return id
}
