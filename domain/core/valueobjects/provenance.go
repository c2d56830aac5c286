package valueobjects

import (
	"fmt"
	"strings"
)

// Provenance records which backing store a node belongs to
type Provenance string

const (
	ProvenanceLocal  Provenance = "local"
	ProvenanceRemote Provenance = "remote"
)

// ParseProvenance parses a provenance name, case-insensitively
func ParseProvenance(s string) (Provenance, error) {
	switch p := Provenance(strings.ToLower(strings.TrimSpace(s))); p {
	case ProvenanceLocal, ProvenanceRemote:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provenance %q", s)
	}
}

// IsValid checks if the provenance is one of the two recognized stores
func (p Provenance) IsValid() bool {
	return p == ProvenanceLocal || p == ProvenanceRemote
}

func (p Provenance) String() string {
	return string(p)
}

// NodeRef addresses a node across namespaces where only untyped input is
// available, e.g. URL path segments. Use Namespace.Parse to get a typed id.
type NodeRef struct {
	Provenance Provenance `json:"provenance"`
	ID         string     `json:"id"`
}

// ParseNodeRef builds a NodeRef from raw provenance and id strings
func ParseNodeRef(provenance, id string) (NodeRef, error) {
	p, err := ParseProvenance(provenance)
	if err != nil {
		return NodeRef{}, err
	}
	if strings.TrimSpace(id) == "" {
		return NodeRef{}, fmt.Errorf("node ID is required")
	}
	return NodeRef{Provenance: p, ID: id}, nil
}

// RefOf returns the NodeRef of a typed id
func RefOf[K Key](id K) NodeRef {
	return NodeRef{Provenance: id.Provenance(), ID: id.String()}
}

func (r NodeRef) String() string {
	return fmt.Sprintf("%s:%s", r.Provenance, r.ID)
}
