package valueobjects

// Kind distinguishes snippets from groups
type Kind string

const (
	// KindLeaf holds copyable text
	KindLeaf Kind = "LEAF"
	// KindContainer holds ordered children
	KindContainer Kind = "CONTAINER"
)

// IsValid checks if the kind is recognized
func (k Kind) IsValid() bool {
	return k == KindLeaf || k == KindContainer
}

func (k Kind) String() string {
	return string(k)
}
