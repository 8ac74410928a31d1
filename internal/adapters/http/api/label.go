package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/eras/internal/domain/join"
	"github.com/okian/eras/internal/domain/model"
	"github.com/okian/eras/internal/domain/types"
)

// LabelDependencies defines the operation behind GET /label.
type LabelDependencies interface {
	Label(ctx context.Context, code string, year int) join.Match
}

// LabelHandler resolves single code/year lookups.
type LabelHandler struct {
	deps LabelDependencies
}

// NewLabelHandler creates a new label handler.
func NewLabelHandler(deps LabelDependencies) *LabelHandler {
	return &LabelHandler{deps: deps}
}

// HandleLabel handles GET /label?code=&year= requests.
func (h *LabelHandler) HandleLabel(w http.ResponseWriter, r *http.Request) {
	const op = "api.label"
	if !allowMethod(w, r, op, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "malformed_record",
			WrapKind(op, ErrBadRequest, fmt.Errorf("%w: missing code", model.ErrMalformedRecord)))
		return
	}
	year, err := strconv.Atoi(strings.TrimSpace(q.Get("year")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed_record",
			WrapKind(op, ErrBadRequest, fmt.Errorf("%w: invalid year %q", model.ErrMalformedRecord, q.Get("year"))))
		return
	}

	m := h.deps.Label(r.Context(), code, year)
	writeJSON(w, http.StatusOK, types.LabelResult{
		Code:      code,
		Year:      year,
		Label:     m.Label,
		Found:     m.Found,
		Ambiguous: m.Ambiguous,
	})
}
