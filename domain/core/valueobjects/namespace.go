package valueobjects

import "fmt"

// DefaultMaxDepth bounds ancestor walks when no depth is configured
const DefaultMaxDepth = 64

// Namespace describes one provenance's id space: its root sentinel and the
// deepest nesting considered plausible. Walks longer than MaxDepth are treated
// as malformed data.
type Namespace[K Key] struct {
	root     K
	maxDepth int
}

// NewNamespace creates a namespace with the given root sentinel
func NewNamespace[K Key](root K, maxDepth int) Namespace[K] {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return Namespace[K]{root: root, maxDepth: maxDepth}
}

// Root returns the root sentinel id
func (ns Namespace[K]) Root() K {
	return ns.root
}

// MaxDepth returns the walk bound
func (ns Namespace[K]) MaxDepth() int {
	return ns.maxDepth
}

// Provenance returns the provenance this namespace belongs to
func (ns Namespace[K]) Provenance() Provenance {
	var zero K
	return zero.Provenance()
}

// IsRoot reports whether id is the root sentinel
func (ns Namespace[K]) IsRoot(id K) bool {
	return id == ns.root
}

// WellFormed reports whether id is the root sentinel or a well-formed id
func (ns Namespace[K]) WellFormed(id K) bool {
	return id == ns.root || id.wellFormed()
}

// Parse converts raw input into a typed id of this namespace
func (ns Namespace[K]) Parse(raw string) (K, error) {
	id := K(raw)
	if id.IsZero() {
		return id, fmt.Errorf("%s node ID cannot be empty", ns.Provenance())
	}
	if !ns.WellFormed(id) {
		return id, fmt.Errorf("%q is not a well-formed %s node ID", raw, ns.Provenance())
	}
	return id, nil
}

// ParseRef converts a NodeRef into a typed id, checking the provenance matches
func (ns Namespace[K]) ParseRef(ref NodeRef) (K, error) {
	if ref.Provenance != ns.Provenance() {
		var zero K
		return zero, fmt.Errorf("node %s does not belong to the %s namespace", ref, ns.Provenance())
	}
	return ns.Parse(ref.ID)
}
