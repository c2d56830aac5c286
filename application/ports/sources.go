package ports

import (
	"context"

	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/domain/events"
)

// SourceAdapter is the read/write contract of one backing store. Every
// operation is scoped to a single id namespace.
type SourceAdapter[K valueobjects.Key] interface {
	// ListChildren returns the children of a group, or the top-level items when parentID is nil
	ListChildren(ctx context.Context, parentID *K) ([]entities.Node[K], error)

	// ListAll returns every record in the namespace as flat nodes
	ListAll(ctx context.Context) ([]entities.Node[K], error)

	// GetOne returns the node, or nil when it does not exist
	GetOne(ctx context.Context, id K) (*entities.Node[K], error)

	// Save creates or replaces a node and returns it as stored
	Save(ctx context.Context, node entities.Node[K]) (entities.Node[K], error)

	// Delete removes a node. Deleting a missing node is not an error.
	Delete(ctx context.Context, id K) error

	// Move re-parents a node under destinationGroupID
	Move(ctx context.Context, nodeID, destinationGroupID K) error
}

// NodeStore is a raw store: a source adapter that also issues new ids.
// Stores do not validate; wrap them in a guarded source.
type NodeStore[K valueobjects.Key] interface {
	SourceAdapter[K]

	// NextID reserves a fresh id in the namespace
	NextID(ctx context.Context) (K, error)
}

// LocalStore is the on-device store
type LocalStore = NodeStore[valueobjects.LocalID]

// RemoteStore is the remote service store
type RemoteStore = NodeStore[valueobjects.RemoteID]

// EventPublisher delivers change notifications to companion surfaces
type EventPublisher interface {
	Publish(ctx context.Context, events []events.DomainEvent) error
}
