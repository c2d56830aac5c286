package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"snippets-backend/application/commands"
	"snippets-backend/application/commands/bus"
	"snippets-backend/application/queries"
	querybus "snippets-backend/application/queries/bus"
	"snippets-backend/application/services"
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/pkg/common"
	pkgerrors "snippets-backend/pkg/errors"
	"snippets-backend/pkg/validation"
)

// NodeHandler handles node reads and writes
type NodeHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// GetNode handles GET /nodes/{provenance}/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	query := queries.GetNodeQuery{
		Provenance: valueobjects.Provenance(chi.URLParam(r, "provenance")),
		NodeID:     chi.URLParam(r, "nodeID"),
	}
	node, err := querybus.AskAs[entities.Entry](r.Context(), h.queryBus, query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, ToNodeResponse(node))
}

// GetDestinations handles GET /nodes/{provenance}/{nodeID}/destinations. An
// empty plan is a normal answer: the client shows "no destinations". The
// namespace root is offered to any node not already at the top level, whether
// or not a root record is stored.
func (h *NodeHandler) GetDestinations(w http.ResponseWriter, r *http.Request) {
	query := queries.GetRelocationPlanQuery{
		Provenance: valueobjects.Provenance(chi.URLParam(r, "provenance")),
		NodeID:     chi.URLParam(r, "nodeID"),
	}
	plan, err := querybus.AskAs[services.RelocationPlanResult](r.Context(), h.queryBus, query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	meta := &common.MetaInfo{RequestID: common.ExtractRequestID(r)}
	for _, warning := range plan.Warnings {
		meta.Warnings = append(meta.Warnings, warning.Error())
	}
	common.RespondWithMeta(w, http.StatusOK, ToDestinationsResponse(plan), meta)
}

// SaveNode handles PUT /nodes/{provenance}
func (h *NodeHandler) SaveNode(w http.ResponseWriter, r *http.Request) {
	var req SaveNodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	cmd := commands.SaveNodeCommand{
		Provenance: valueobjects.Provenance(chi.URLParam(r, "provenance")),
		Node:       req.Input(),
	}
	saved, err := bus.Dispatch[entities.Entry](r.Context(), h.commandBus, cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	common.RespondJSON(w, status, ToNodeResponse(saved))
}

// DeleteNode handles DELETE /nodes/{provenance}/{nodeID}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	cmd := commands.DeleteNodeCommand{
		Provenance: valueobjects.Provenance(chi.URLParam(r, "provenance")),
		NodeID:     chi.URLParam(r, "nodeID"),
	}
	if _, err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveNode handles POST /nodes/{provenance}/{nodeID}/move
func (h *NodeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	var req MoveNodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	cmd := commands.MoveNodeCommand{
		Provenance:    valueobjects.Provenance(chi.URLParam(r, "provenance")),
		NodeID:        chi.URLParam(r, "nodeID"),
		DestinationID: req.DestinationID,
	}
	if _, err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyChanges handles POST /changes. The response is 200 when every change
// was applied and 207 when any failed.
func (h *NodeHandler) ApplyChanges(w http.ResponseWriter, r *http.Request) {
	var req ChangesRequest
	if !h.decode(w, r, &req) {
		return
	}

	cmd := commands.ApplyChangesCommand{Changes: req.ServiceChanges()}
	results, err := bus.Dispatch[[]services.ChangeResult](r.Context(), h.commandBus, cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	resp := ChangesResponse{Results: make([]ChangeResultResponse, 0, len(results))}
	requestID := common.ExtractRequestID(r)
	for _, res := range results {
		item := ChangeResultResponse{
			Index:      res.Index,
			Op:         res.Op,
			Provenance: res.Ref.Provenance,
			NodeID:     res.Ref.ID,
			Status:     http.StatusOK,
		}
		if res.Node != nil {
			node := ToNodeResponse(res.Node)
			item.Node = &node
		}
		if res.Err != nil {
			status, body := h.errors.Resolve(res.Err, requestID)
			item.Status = status
			item.Error = body
			resp.Failed++
		} else {
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, item)
	}

	status := http.StatusOK
	if resp.Failed > 0 {
		status = http.StatusMultiStatus
	}
	common.RespondJSON(w, status, resp)
}

// decode parses and validates a JSON body, answering 400 on failure
func (h *NodeHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := common.ParseJSONBody(w, r, v, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("Invalid request body: "+err.Error()))
		return false
	}
	if err := validation.Struct(v); err != nil {
		h.errors.Handle(w, r, err)
		return false
	}
	return true
}
