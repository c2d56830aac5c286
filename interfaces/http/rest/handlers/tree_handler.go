package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"snippets-backend/application/queries"
	querybus "snippets-backend/application/queries/bus"
	"snippets-backend/application/services"
	"snippets-backend/pkg/common"
	pkgerrors "snippets-backend/pkg/errors"
)

// TreeHandler serves the combined tree
type TreeHandler struct {
	queryBus *querybus.QueryBus
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(queryBus *querybus.QueryBus, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *TreeHandler {
	return &TreeHandler{queryBus: queryBus, errors: errorHandler, logger: logger}
}

// GetTree handles GET /tree
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	result, ok := h.combinedTree(w, r)
	if !ok {
		return
	}
	common.RespondWithMeta(w, http.StatusOK, ToTreeResponse(result.Tree), treeMeta(r, result))
}

// ExportTree handles GET /tree/export
func (h *TreeHandler) ExportTree(w http.ResponseWriter, r *http.Request) {
	result, ok := h.combinedTree(w, r)
	if !ok {
		return
	}
	common.RespondWithMeta(w, http.StatusOK, result.Tree.Export(), treeMeta(r, result))
}

func (h *TreeHandler) combinedTree(w http.ResponseWriter, r *http.Request) (services.CombinedTreeResult, bool) {
	result, err := querybus.AskAs[services.CombinedTreeResult](r.Context(), h.queryBus, queries.GetCombinedTreeQuery{})
	if err != nil {
		h.errors.Handle(w, r, err)
		return result, false
	}
	if len(result.Unavailable) > 0 {
		h.logger.Debug("Serving partial tree", zap.Int("unavailable", len(result.Unavailable)))
	}
	return result, true
}

func treeMeta(r *http.Request, result services.CombinedTreeResult) *common.MetaInfo {
	meta := &common.MetaInfo{RequestID: common.ExtractRequestID(r)}
	for _, p := range result.Unavailable {
		meta.Unavailable = append(meta.Unavailable, p.String())
	}
	for _, w := range result.Warnings {
		meta.Warnings = append(meta.Warnings, w.Error())
	}
	return meta
}
