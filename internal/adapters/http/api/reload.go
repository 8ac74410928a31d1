package api

import (
	"context"
	"net/http"
)

// ReloadDependencies defines the operation behind POST /reload.
type ReloadDependencies interface {
	Reload(ctx context.Context) error
}

// ReloadHandler rebuilds the join index from the repository.
type ReloadHandler struct {
	deps ReloadDependencies
}

// NewReloadHandler creates a new reload handler.
func NewReloadHandler(deps ReloadDependencies) *ReloadHandler {
	return &ReloadHandler{deps: deps}
}

// HandleReload handles POST /reload requests.
func (h *ReloadHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.reload"
	if !allowMethod(w, r, op, http.MethodPost) {
		return
	}
	if err := h.deps.Reload(r.Context()); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}
