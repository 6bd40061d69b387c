package trace

import (
	"math"
	"sort"
	"strconv"

	"github.com/coffersTech/nanotrace/internal/frame"
)

// HistogramPoint is one time bucket of event counts.
type HistogramPoint struct {
	Time  float64 `json:"time"`
	Count int     `json:"count"`
}

// Histogram buckets the filtered events by the Time column into
// width-second buckets, sorted ascending. Rows without a parseable Time
// are skipped; width <= 0 selects one-second buckets.
func Histogram(f *frame.Frame, flt Filter, width float64) []HistogramPoint {
	if width <= 0 {
		width = 1
	}

	buckets := make(map[float64]int)
	for row := 0; row < f.Len(); row++ {
		if !flt.Match(f, row) {
			continue
		}
		v, ok := f.Value(row, ColumnTime)
		if !ok {
			continue
		}
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		buckets[math.Floor(t/width)*width]++
	}

	points := make([]HistogramPoint, 0, len(buckets))
	for t, c := range buckets {
		points = append(points, HistogramPoint{Time: t, Count: c})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Time < points[j].Time
	})
	return points
}
