package handlers

import (
	"snippets-backend/application/services"
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
)

// maxBodyBytes bounds request bodies; a full change batch of maximum-length
// bodies stays well below it
const maxBodyBytes = 1 << 20

// NodeResponse is the JSON form of a node and its subtree
type NodeResponse struct {
	ID         string                  `json:"id"`
	Provenance valueobjects.Provenance `json:"provenance,omitempty"`
	ParentID   string                  `json:"parentId,omitempty"`
	Kind       valueobjects.Kind       `json:"kind"`
	Title      string                  `json:"title"`
	Body       string                  `json:"body,omitempty"`
	ColorID    valueobjects.ColorID    `json:"colorId"`
	Color      string                  `json:"color,omitempty"`
	OrderIndex float64                 `json:"orderIndex"`
	CreatedAt  string                  `json:"createdAt,omitempty"`
	Children   []NodeResponse          `json:"children,omitempty"`
}

// TreeResponse is the combined tree
type TreeResponse struct {
	Root      NodeResponse   `json:"root"`
	Detached  []NodeResponse `json:"detached"`
	LeafCount int            `json:"leafCount"`
	NodeCount int            `json:"nodeCount"`
}

// DestinationResponse is one legal move target. Depth is 0 for the root
// and one more than the closest offered group above it otherwise.
type DestinationResponse struct {
	Group NodeResponse `json:"group"`
	Depth int          `json:"depth"`
}

// DestinationsResponse is a relocation plan
type DestinationsResponse struct {
	Node         NodeResponse          `json:"node"`
	Destinations []DestinationResponse `json:"destinations"`
	Empty        bool                  `json:"empty"`
}

// SaveNodeRequest is the body of PUT /nodes/{provenance}. An empty id creates
// a node; an empty parentId files it under the namespace root. Content rules
// are checked by the domain validator so every violation is reported at once.
type SaveNodeRequest struct {
	ID         string               `json:"id"`
	ParentID   string               `json:"parentId"`
	Kind       valueobjects.Kind    `json:"kind"`
	Title      string               `json:"title"`
	Body       string               `json:"body"`
	ColorID    valueobjects.ColorID `json:"colorId"`
	OrderIndex float64              `json:"orderIndex"`
	CreatedAt  string               `json:"createdAt"`
}

// Input converts the request into a service input
func (r SaveNodeRequest) Input() services.NodeInput {
	return services.NodeInput{
		ID:         r.ID,
		ParentID:   r.ParentID,
		Kind:       r.Kind,
		Title:      r.Title,
		Body:       r.Body,
		ColorID:    r.ColorID,
		OrderIndex: r.OrderIndex,
		CreatedAt:  r.CreatedAt,
	}
}

// MoveNodeRequest is the body of POST /nodes/{provenance}/{nodeID}/move
type MoveNodeRequest struct {
	DestinationID string `json:"destinationId" validate:"required"`
}

// ChangeRequest is one write in a change batch
type ChangeRequest struct {
	Op            services.ChangeOp       `json:"op" validate:"required,oneof=save move delete"`
	Provenance    valueobjects.Provenance `json:"provenance" validate:"required,provenance"`
	NodeID        string                  `json:"nodeId" validate:"required_unless=Op save"`
	DestinationID string                  `json:"destinationId" validate:"required_if=Op move"`
	Node          *SaveNodeRequest        `json:"node" validate:"required_if=Op save"`
}

// ChangesRequest is the body of POST /changes
type ChangesRequest struct {
	Changes []ChangeRequest `json:"changes" validate:"required,min=1,max=100,dive"`
}

// ServiceChanges converts the batch into service changes
func (r ChangesRequest) ServiceChanges() []services.Change {
	out := make([]services.Change, 0, len(r.Changes))
	for _, c := range r.Changes {
		change := services.Change{
			Op:            c.Op,
			Provenance:    c.Provenance,
			NodeID:        c.NodeID,
			DestinationID: c.DestinationID,
		}
		if c.Node != nil {
			change.Node = c.Node.Input()
		}
		out = append(out, change)
	}
	return out
}

// ChangeResultResponse reports one change of a batch
type ChangeResultResponse struct {
	Index      int                     `json:"index"`
	Op         services.ChangeOp       `json:"op"`
	Provenance valueobjects.Provenance `json:"provenance"`
	NodeID     string                  `json:"nodeId,omitempty"`
	Status     int                     `json:"status"`
	Node       *NodeResponse           `json:"node,omitempty"`
	Error      interface{}             `json:"error,omitempty"`
}

// ChangesResponse reports a change batch
type ChangesResponse struct {
	Results   []ChangeResultResponse `json:"results"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
}

// ToNodeResponse converts an entry and its subtree
func ToNodeResponse(e entities.Entry) NodeResponse {
	resp := NodeResponse{
		ID:         e.Key(),
		Provenance: e.Provenance(),
		ParentID:   e.ParentKey(),
		Kind:       e.Kind(),
		Title:      e.Title(),
		Body:       e.Body(),
		ColorID:    e.ColorID(),
		OrderIndex: e.OrderIndex(),
		CreatedAt:  e.CreatedAt(),
	}
	if c, ok := valueobjects.LookupColor(e.ColorID()); ok {
		resp.Color = c.Hex
	}
	for _, child := range e.Entries() {
		resp.Children = append(resp.Children, ToNodeResponse(child))
	}
	return resp
}

// ToNodeResponses converts a list of entries
func ToNodeResponses(entries []entities.Entry) []NodeResponse {
	out := make([]NodeResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToNodeResponse(e))
	}
	return out
}

// ToTreeResponse converts a combined tree
func ToTreeResponse(tree entities.CombinedTree) TreeResponse {
	return TreeResponse{
		Root:      ToNodeResponse(tree.Root()),
		Detached:  ToNodeResponses(tree.Detached()),
		LeafCount: tree.LeafCount(),
		NodeCount: tree.NodeCount(),
	}
}

// ToDestinationsResponse converts a relocation plan. Destination groups are
// listed without their subtrees.
func ToDestinationsResponse(plan services.RelocationPlanResult) DestinationsResponse {
	resp := DestinationsResponse{
		Destinations: make([]DestinationResponse, 0, len(plan.Destinations)),
		Empty:        plan.Empty(),
	}
	if plan.Node != nil {
		resp.Node = ToNodeResponse(plan.Node)
		resp.Node.Children = nil
	}
	for _, d := range plan.Destinations {
		group := ToNodeResponse(d.Group)
		group.Children = nil
		resp.Destinations = append(resp.Destinations, DestinationResponse{Group: group, Depth: d.Depth})
	}
	return resp
}
