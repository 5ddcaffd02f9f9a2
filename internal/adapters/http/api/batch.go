package api

import (
	"net/http"

	"github.com/okian/semstat/internal/domain/engine"
)

// BatchHandler runs many derivation requests in one call.
type BatchHandler struct {
	deps Dependencies
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(deps Dependencies) *BatchHandler {
	return &BatchHandler{deps: deps}
}

type batchRequest struct {
	Requests []engine.Request `json:"requests"`
}

type batchResponse struct {
	Results []engine.Result `json:"results"`
}

// HandleBatch handles POST /compute/batch requests. Results are returned in
// request order.
func (h *BatchHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req batchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	results, err := h.deps.ComputeBatch(r.Context(), req.Requests)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: results})
}
