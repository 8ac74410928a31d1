package csvio

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

// header maps canonical column names to their position.
type header map[string]int

func newHeader(row []string, aliases map[string][]string) header {
	h := make(header)
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		for canonical, names := range aliases {
			for _, a := range names {
				if _, seen := h[canonical]; !seen && name == a {
					h[canonical] = i
				}
			}
		}
	}
	return h
}

func (h header) require(cols ...string) error {
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	return nil
}

// get returns the trimmed cell for col; "NA" and absent cells are empty.
func (h header) get(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if v == "NA" {
		return ""
	}
	return v
}
