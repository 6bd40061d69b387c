package trace

import (
	"strings"

	"github.com/coffersTech/nanotrace/internal/frame"
)

// Filter selects rows of a loaded trace table. Zero-valued fields match
// everything; set fields require the row to carry the value (a missing
// cell never matches).
type Filter struct {
	Type     string `json:"type"`     // exact match on Type
	Severity string `json:"severity"` // exact match on Severity
	Role     string `json:"role"`     // exact match on As
	Machine  string `json:"machine"`  // exact match on Machine
	Contains string `json:"q"`        // substring match on Details
}

// Match reports whether row of f passes the filter.
func (flt Filter) Match(f *frame.Frame, row int) bool {
	if !matchEqual(f, row, ColumnType, flt.Type) {
		return false
	}
	if !matchEqual(f, row, ColumnSeverity, flt.Severity) {
		return false
	}
	if !matchEqual(f, row, ColumnRole, flt.Role) {
		return false
	}
	if !matchEqual(f, row, ColumnMachine, flt.Machine) {
		return false
	}
	if flt.Contains != "" {
		v, ok := f.Value(row, frame.DetailsKey)
		if !ok || !strings.Contains(v, flt.Contains) {
			return false
		}
	}
	return true
}

// Select returns the records of rows passing the filter, in row order,
// skipping the first offset matches and returning at most limit records.
// limit <= 0 means no cap.
func Select(f *frame.Frame, flt Filter, offset, limit int) []frame.Record {
	var out []frame.Record
	matched := 0
	for row := 0; row < f.Len(); row++ {
		if !flt.Match(f, row) {
			continue
		}
		matched++
		if matched <= offset {
			continue
		}
		out = append(out, f.Row(row))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func matchEqual(f *frame.Frame, row int, col, want string) bool {
	if want == "" {
		return true
	}
	v, ok := f.Value(row, col)
	return ok && v == want
}
