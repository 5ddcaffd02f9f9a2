package api

import (
	"fmt"
	"net/http"

	"github.com/okian/semstat/internal/domain/engine"
	"github.com/okian/semstat/internal/domain/stat"
)

// PreviewHandler serves single normalize and derive calls.
type PreviewHandler struct {
	deps Dependencies
}

// NewPreviewHandler creates a new preview handler.
func NewPreviewHandler(deps Dependencies) *PreviewHandler {
	return &PreviewHandler{deps: deps}
}

// normalizeRequest is the body of POST /preview/normalize.
type normalizeRequest struct {
	DefinitionID string             `json:"definition_id"`
	Values       map[string]float64 `json:"values"`
	PackageIDs   []string           `json:"package_ids,omitempty"`
}

type normalizeResponse struct {
	DefinitionID string                `json:"definition_id"`
	Values       map[string]float64    `json:"values"`
	Tiers        map[string]string     `json:"tiers"`
	LevelID      string                `json:"level_id,omitempty"`
	Levels       []string              `json:"levels"`
	Flat         map[string]stat.Value `json:"flat"`
}

// HandleNormalize handles POST /preview/normalize requests.
func (h *PreviewHandler) HandleNormalize(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req normalizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if blank(req.DefinitionID) {
		writeFailure(w, fmt.Errorf("%w: missing definition_id", ErrBadRequest))
		return
	}

	res, err := h.deps.Normalize(r.Context(), req.DefinitionID, req.Values, req.PackageIDs)
	if err != nil {
		writeFailure(w, err)
		return
	}
	levels := res.Levels
	if levels == nil {
		levels = []string{}
	}
	writeJSON(w, http.StatusOK, normalizeResponse{
		DefinitionID: req.DefinitionID,
		Values:       res.Values,
		Tiers:        res.Tiers,
		LevelID:      res.LevelID,
		Levels:       levels,
		Flat:         res.Flatten(),
	})
}

// HandleDerive handles POST /preview/derive requests. The body is a
// derivation request; the response carries derived values and diagnostics.
func (h *PreviewHandler) HandleDerive(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req engine.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	res, err := h.deps.ComputeDerivations(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
