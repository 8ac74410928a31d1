package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/eras/internal/domain/model"
	"github.com/okian/eras/internal/domain/types"
)

// PeriodsDependencies defines the operations behind the period routes.
type PeriodsDependencies interface {
	ExtractPeriods(ctx context.Context, records []model.ParticipationRecord) (model.Extraction, error)
	PeriodsFor(code string) []model.LabeledPeriod
}

// PeriodsHandler handles period extraction and lookup.
type PeriodsHandler struct {
	deps PeriodsDependencies
}

// NewPeriodsHandler creates a new periods handler.
func NewPeriodsHandler(deps PeriodsDependencies) *PeriodsHandler {
	return &PeriodsHandler{deps: deps}
}

type recordsRequest struct {
	Records []types.Record `json:"records"`
}

// decodeRecords reads a {"records": [...]} body into domain records.
func decodeRecords(w http.ResponseWriter, r *http.Request, op string) ([]model.ParticipationRecord, bool) {
	var req recordsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		if ferr := recordFieldError(err); ferr != nil {
			writeError(w, http.StatusBadRequest, "malformed_record", WrapKind(op, ErrBadRequest, ferr))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return nil, false
	}
	records, err := types.Records(req.Records)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed_record", WrapKind(op, ErrBadRequest, err))
		return nil, false
	}
	return records, true
}

// recordFieldError reports a JSON type mismatch inside a record, such as a
// fractional or quoted year, as a malformed record. It returns nil for any
// other decoding error.
func recordFieldError(err error) error {
	var te *json.UnmarshalTypeError
	if !errors.As(err, &te) {
		return nil
	}
	field := te.Field
	if !strings.HasPrefix(field, "records.") && field != "year" && field != "entity_code" {
		return nil
	}
	return fmt.Errorf("%w: %s: got %s, want %s", model.ErrMalformedRecord, field, te.Value, te.Type)
}

// HandleExtract handles POST /periods/extract requests.
func (h *PeriodsHandler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	const op = "api.extract_periods"
	if !allowMethod(w, r, op, http.MethodPost) {
		return
	}
	records, ok := decodeRecords(w, r, op)
	if !ok {
		return
	}
	res, err := h.deps.ExtractPeriods(r.Context(), records)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromExtraction(res))
}

// HandleGetPeriods handles GET /periods/{code} requests.
func (h *PeriodsHandler) HandleGetPeriods(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_periods"
	if !allowMethod(w, r, op, http.MethodGet) {
		return
	}
	// Extract path parameter after /periods/
	code := strings.TrimPrefix(r.URL.Path, "/periods/")
	if strings.TrimSpace(code) == "" || strings.Contains(code, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	periods := h.deps.PeriodsFor(code)
	if len(periods) == 0 {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, types.FromLabeled(periods))
}
