package trace

import (
	"reflect"
	"strings"
	"testing"

	"github.com/coffersTech/nanotrace/internal/frame"
)

func TestSummarize(t *testing.T) {
	f := filterFixture(t)

	s := Summarize(f)
	if s.Events != 4 {
		t.Errorf("Events = %d, want 4", s.Events)
	}
	if s.SeverityCounts["10"] != 2 || s.SeverityCounts["20"] != 1 || s.SeverityCounts["40"] != 1 {
		t.Errorf("SeverityCounts = %v", s.SeverityCounts)
	}
	if s.TypeCounts["Role"] != 2 {
		t.Errorf("TypeCounts = %v", s.TypeCounts)
	}
	if !reflect.DeepEqual(s.Roles, []string{"client", "server"}) {
		t.Errorf("Roles = %v", s.Roles)
	}
	if !reflect.DeepEqual(s.Machines, []string{"m1", "m2"}) {
		t.Errorf("Machines = %v", s.Machines)
	}
	if s.MinTime != 1.0 || s.MaxTime != 4.0 {
		t.Errorf("time span = [%v, %v], want [1, 4]", s.MinTime, s.MaxTime)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(frame.New())
	if s.Events != 0 {
		t.Errorf("Events = %d", s.Events)
	}
	if len(s.Roles) != 0 || len(s.Machines) != 0 {
		t.Errorf("Roles = %v, Machines = %v; want empty", s.Roles, s.Machines)
	}
	if s.MinTime != 0 || s.MaxTime != 0 {
		t.Errorf("time span = [%v, %v], want zeros", s.MinTime, s.MaxTime)
	}
}

func TestSummarizeSkipsBadTimes(t *testing.T) {
	doc := `<Trace>
  <Event Time="not-a-number" Type="A"/>
  <Event Time="2.5" Type="B"/>
</Trace>`
	f, err := Load(strings.NewReader(doc), keepDefault())
	if err != nil {
		t.Fatal(err)
	}

	s := Summarize(f)
	if s.MinTime != 2.5 || s.MaxTime != 2.5 {
		t.Errorf("time span = [%v, %v], want [2.5, 2.5]", s.MinTime, s.MaxTime)
	}
}
