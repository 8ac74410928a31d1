package api

import (
	"context"
	"net/http"

	"github.com/okian/eras/internal/domain/join"
	"github.com/okian/eras/internal/domain/model"
	"github.com/okian/eras/internal/domain/types"
)

// AnnotateDependencies defines the operation behind POST /annotate.
type AnnotateDependencies interface {
	Annotate(ctx context.Context, records []model.ParticipationRecord) ([]model.AnnotatedRecord, join.Summary, error)
}

// AnnotateHandler handles annotation requests.
type AnnotateHandler struct {
	deps AnnotateDependencies
}

// NewAnnotateHandler creates a new annotate handler.
func NewAnnotateHandler(deps AnnotateDependencies) *AnnotateHandler {
	return &AnnotateHandler{deps: deps}
}

// HandleAnnotate handles POST /annotate requests.
func (h *AnnotateHandler) HandleAnnotate(w http.ResponseWriter, r *http.Request) {
	const op = "api.annotate"
	if !allowMethod(w, r, op, http.MethodPost) {
		return
	}
	records, ok := decodeRecords(w, r, op)
	if !ok {
		return
	}
	out, sum, err := h.deps.Annotate(r.Context(), records)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromAnnotation(out, sum))
}
