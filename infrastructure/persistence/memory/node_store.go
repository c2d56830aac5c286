package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
)

// NodeStore keeps nodes in memory. It is used in tests and as the remote
// store when no table is configured.
type NodeStore[K valueobjects.Key] struct {
	mu       sync.RWMutex
	ns       valueobjects.Namespace[K]
	nodes    map[K]entities.Node[K]
	order    []K
	nextID   func() K
	failWith error
}

// NewNodeStore creates an empty store that issues ids with nextID
func NewNodeStore[K valueobjects.Key](ns valueobjects.Namespace[K], nextID func() K) *NodeStore[K] {
	return &NodeStore[K]{
		ns:     ns,
		nodes:  make(map[K]entities.Node[K]),
		nextID: nextID,
	}
}

// NewLocalNodeStore creates a store issuing random UUIDs
func NewLocalNodeStore(ns valueobjects.Namespace[valueobjects.LocalID]) *NodeStore[valueobjects.LocalID] {
	return NewNodeStore(ns, valueobjects.NewLocalID)
}

// NewRemoteNodeStore creates a store issuing increasing sequence numbers from 1
func NewRemoteNodeStore(ns valueobjects.Namespace[valueobjects.RemoteID]) *NodeStore[valueobjects.RemoteID] {
	var seq atomic.Uint64
	return NewNodeStore(ns, func() valueobjects.RemoteID {
		return valueobjects.NewRemoteID(seq.Add(1))
	})
}

// FailWith makes every later call return err; nil restores normal operation
func (s *NodeStore[K]) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Seed stores nodes as-is, bypassing every check
func (s *NodeStore[K]) Seed(nodes ...entities.Node[K]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.put(n)
	}
}

func (s *NodeStore[K]) put(n entities.Node[K]) {
	if _, exists := s.nodes[n.ID()]; !exists {
		s.order = append(s.order, n.ID())
	}
	s.nodes[n.ID()] = n.WithoutChildren().WithProvenance("")
}

// Len returns the number of stored nodes
func (s *NodeStore[K]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

func (s *NodeStore[K]) ListChildren(ctx context.Context, parentID *K) ([]entities.Node[K], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	parent := s.ns.Root()
	if parentID != nil {
		parent = *parentID
	}
	var out []entities.Node[K]
	for _, id := range s.order {
		n := s.nodes[id]
		if s.ns.IsRoot(id) {
			continue
		}
		if n.ParentOrRoot(s.ns) == parent {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *NodeStore[K]) ListAll(ctx context.Context) ([]entities.Node[K], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	out := make([]entities.Node[K], 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out, nil
}

func (s *NodeStore[K]) GetOne(ctx context.Context, id K) (*entities.Node[K], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	n, ok := s.nodes[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (s *NodeStore[K]) Save(ctx context.Context, node entities.Node[K]) (entities.Node[K], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return node, s.failWith
	}

	s.put(node)
	return s.nodes[node.ID()], nil
}

func (s *NodeStore[K]) Delete(ctx context.Context, id K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	if _, ok := s.nodes[id]; !ok {
		return nil
	}
	delete(s.nodes, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *NodeStore[K]) Move(ctx context.Context, nodeID, destinationGroupID K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	n, ok := s.nodes[nodeID]
	if !ok {
		return nil
	}
	s.nodes[nodeID] = n.WithParent(destinationGroupID)
	return nil
}

func (s *NodeStore[K]) NextID(ctx context.Context) (K, error) {
	if err := s.Err(); err != nil {
		var zero K
		return zero, err
	}
	return s.nextID(), nil
}

// Err returns the injected failure, if any
func (s *NodeStore[K]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failWith
}
