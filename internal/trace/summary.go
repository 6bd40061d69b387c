package trace

import (
	"strconv"

	"github.com/coffersTech/nanotrace/internal/frame"
)

// Summary aggregates one loaded trace table for quick inspection.
type Summary struct {
	Events         int            `json:"events"`
	Columns        int            `json:"columns"`
	SeverityCounts map[string]int `json:"severity_counts,omitempty"`
	TypeCounts     map[string]int `json:"type_counts,omitempty"`
	Roles          []string       `json:"roles,omitempty"`
	Machines       []string       `json:"machines,omitempty"`
	MinTime        float64        `json:"min_time"`
	MaxTime        float64        `json:"max_time"`
}

// Summarize counts severities and event types, lists the distinct roles
// and machines, and finds the time range. Conventional columns that the
// trace does not carry are simply left empty; Summarize never fails.
func Summarize(f *frame.Frame) Summary {
	s := Summary{
		Events:  f.Len(),
		Columns: f.NumColumns(),
	}

	s.SeverityCounts = countColumn(f, ColumnSeverity)
	s.TypeCounts = countColumn(f, ColumnType)
	s.Roles, _ = Roles(f)
	s.Machines, _ = Machines(f)

	first := true
	for row := 0; row < f.Len(); row++ {
		v, ok := f.Value(row, ColumnTime)
		if !ok {
			continue
		}
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		if first || t < s.MinTime {
			s.MinTime = t
		}
		if first || t > s.MaxTime {
			s.MaxTime = t
		}
		first = false
	}

	return s
}

// countColumn tallies the present values of one column; nil when the
// column does not exist or holds nothing.
func countColumn(f *frame.Frame, name string) map[string]int {
	if !f.HasColumn(name) {
		return nil
	}
	counts := make(map[string]int)
	for row := 0; row < f.Len(); row++ {
		if v, ok := f.Value(row, name); ok {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return nil
	}
	return counts
}
