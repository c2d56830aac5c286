package validators

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"snippets-backend/domain/config"
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/pkg/errors"
)

// Rule codes, reported in the order the checks run
const (
	RuleIDRequired         = "ID_REQUIRED"
	RuleIDMalformed        = "ID_MALFORMED"
	RuleParentIDMalformed  = "PARENT_ID_MALFORMED"
	RuleKindInvalid        = "KIND_INVALID"
	RuleTitleLength        = "TITLE_LENGTH"
	RuleBodyLength         = "BODY_LENGTH"
	RuleColorUnknown       = "COLOR_UNKNOWN"
	RuleCreatedAtInvalid   = "CREATED_AT_INVALID"
	RuleOrderIndexInfinite = "ORDER_INDEX_NOT_FINITE"
	RuleLeafHasChildren    = "LEAF_HAS_CHILDREN"
)

// NodeValidator checks a node against the structural and content rules of
// its namespace. It is pure and safe for concurrent use.
type NodeValidator[K valueobjects.Key] struct {
	ns             valueobjects.Namespace[K]
	titleMinLength int
	titleMaxLength int
	bodyMinLength  int
	bodyMaxLength  int
}

// NewNodeValidator creates a validator with the limits from cfg
func NewNodeValidator[K valueobjects.Key](ns valueobjects.Namespace[K], cfg *config.DomainConfig) *NodeValidator[K] {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &NodeValidator[K]{
		ns:             ns,
		titleMinLength: cfg.MinTitleLength,
		titleMaxLength: cfg.MaxTitleLength,
		bodyMinLength:  cfg.MinBodyLength,
		bodyMaxLength:  cfg.MaxBodyLength,
	}
}

// Validate returns the node unchanged when every rule holds. Otherwise it
// returns *errors.ValidationErrors listing every violated rule.
func (v *NodeValidator[K]) Validate(node entities.Node[K]) (entities.Node[K], error) {
	ve := errors.NewValidationErrors()

	id := node.ID()
	switch {
	case id.IsZero():
		ve.AddRule("id", RuleIDRequired, "id is required")
	case !v.ns.WellFormed(id):
		ve.AddRule("id", RuleIDMalformed,
			fmt.Sprintf("id %q is not a well-formed %s id", id.String(), v.ns.Provenance()))
	}

	if parent, ok := node.ParentID(); ok && !parent.IsZero() && !v.ns.WellFormed(parent) {
		ve.AddRule("parentId", RuleParentIDMalformed,
			fmt.Sprintf("parent id %q is not a well-formed %s id", parent.String(), v.ns.Provenance()))
	}

	if !node.Kind().IsValid() {
		ve.AddRule("kind", RuleKindInvalid,
			fmt.Sprintf("kind %q must be %s or %s", node.Kind(), valueobjects.KindLeaf, valueobjects.KindContainer))
	}

	if n := utf8.RuneCountInString(node.Title()); n < v.titleMinLength || n > v.titleMaxLength {
		ve.AddRule("title", RuleTitleLength,
			fmt.Sprintf("title must be between %d and %d characters (got %d)", v.titleMinLength, v.titleMaxLength, n))
	}

	if n := utf8.RuneCountInString(node.Body()); n < v.bodyMinLength || n > v.bodyMaxLength {
		ve.AddRule("body", RuleBodyLength,
			fmt.Sprintf("body must be between %d and %d characters (got %d)", v.bodyMinLength, v.bodyMaxLength, n))
	}

	if _, ok := valueobjects.LookupColor(node.ColorID()); !ok {
		ve.AddRule("colorId", RuleColorUnknown,
			fmt.Sprintf("color %q is not in the palette", node.ColorID()))
	}

	if _, err := time.Parse(time.RFC3339Nano, node.CreatedAt()); err != nil {
		ve.AddRule("createdAt", RuleCreatedAtInvalid,
			fmt.Sprintf("createdAt %q is not a valid timestamp", node.CreatedAt()))
	}

	if o := node.OrderIndex(); math.IsNaN(o) || math.IsInf(o, 0) {
		ve.AddRule("orderIndex", RuleOrderIndexInfinite, "orderIndex must be a finite number")
	}

	if node.IsLeaf() && node.ChildCount() > 0 {
		ve.AddRule("children", RuleLeafHasChildren, "a snippet cannot contain other items")
	}

	if ve.HasErrors() {
		return node, ve
	}
	return node, nil
}
