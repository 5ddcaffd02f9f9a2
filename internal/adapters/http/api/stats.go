package api

import (
	"net/http"
)

// StatsProvider reports a point-in-time snapshot of the engine service.
// *service.Service implements it.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler wraps a StatsProvider.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats writes the provider snapshot as a JSON object:
//
//	started           whether the service accepts computations
//	packages          number of registered stat packages
//	registryVersion   version of the registry snapshot, bumped on every
//	                  register, unregister and world config merge
//	computations      derivation passes run since start, batch items included
//	normalizations    successful normalize calls
//	batchConcurrency  goroutines one batch may use
//	maxBatchSize      largest accepted batch
//	uptimeSeconds     present only while started
//
// The snapshot changes between calls, so responses are marked no-store.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats())
}
