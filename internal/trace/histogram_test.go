package trace

import (
	"reflect"
	"strings"
	"testing"
)

func TestHistogram(t *testing.T) {
	doc := `<Trace>
  <Event Time="0.1" Type="A"/>
  <Event Time="0.9" Type="A"/>
  <Event Time="1.2" Type="B"/>
  <Event Time="5.0" Type="A"/>
</Trace>`
	f, err := Load(strings.NewReader(doc), keepDefault())
	if err != nil {
		t.Fatal(err)
	}

	got := Histogram(f, Filter{}, 1.0)
	want := []HistogramPoint{{Time: 0, Count: 2}, {Time: 1, Count: 1}, {Time: 5, Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Histogram = %v, want %v", got, want)
	}
}

func TestHistogramFiltered(t *testing.T) {
	f := filterFixture(t)

	got := Histogram(f, Filter{Type: "Role"}, 10)
	if len(got) != 1 || got[0].Count != 2 {
		t.Errorf("Histogram = %v, want single bucket of 2", got)
	}
}

func TestHistogramDefaultsWidth(t *testing.T) {
	f := filterFixture(t)

	// Zero and negative widths fall back to one-second buckets.
	if got := Histogram(f, Filter{}, 0); len(got) != 4 {
		t.Errorf("Histogram(width=0) = %v", got)
	}
}
