package api

import "net/http"

// PackagesHandler lists registered packages.
type PackagesHandler struct {
	deps Dependencies
}

// NewPackagesHandler creates a new packages handler.
func NewPackagesHandler(deps Dependencies) *PackagesHandler {
	return &PackagesHandler{deps: deps}
}

type packagesResponse struct {
	Packages []PackageInfo `json:"packages"`
}

// HandleList handles GET /packages requests.
func (h *PackagesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, packagesResponse{Packages: h.deps.Packages()})
}
