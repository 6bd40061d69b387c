package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleTrace = `<?xml version="1.0"?>
<Trace>
  <Event Severity="10" Time="1.0" Type="Role" As="client" Machine="m1" Op="connect"/>
  <Event Severity="20" Time="2.0" Type="Net2SlowCallback" Machine="m1"/>
  <Event Severity="10" Time="3.0" Type="Role" As="server" Machine="m2"/>
</Trace>
`

func writeTrace(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := runWithArgs(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRolesCommand(t *testing.T) {
	path := writeTrace(t, "trace.xml", sampleTrace)

	code, out, errOut := runCLI(t, "roles", path)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, errOut)
	}
	if out != "client\nserver\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestMachinesCommand(t *testing.T) {
	path := writeTrace(t, "trace.xml", sampleTrace)

	code, out, _ := runCLI(t, "machines", path)
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if out != "m1\nm2\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestRolesMissingColumn(t *testing.T) {
	path := writeTrace(t, "trace.xml", `<Trace><Event Type="GetValue"/></Trace>`)

	code, _, errOut := runCLI(t, "roles", path)
	if code != 1 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(errOut, "no such column") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestColumnsWithKeepOverride(t *testing.T) {
	path := writeTrace(t, "trace.xml", sampleTrace)

	code, out, _ := runCLI(t, "-keep", "As", "columns", path)
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	// Details is created where the first folded attribute (Severity)
	// appeared, so it precedes As.
	if out != "Details\nAs\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestEventsCommand(t *testing.T) {
	path := writeTrace(t, "trace.xml", sampleTrace)

	code, out, _ := runCLI(t, "events", "-type", "Role", path)
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "As=client") || !strings.Contains(lines[1], "As=server") {
		t.Errorf("stdout = %q", out)
	}
}

func TestEventsJSON(t *testing.T) {
	path := writeTrace(t, "trace.xml", sampleTrace)

	code, out, _ := runCLI(t, "-json", "events", "-machine", "m2", path)
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}

	var events []map[string]string
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("bad JSON: %v (%q)", err, out)
	}
	if len(events) != 1 || events[0]["As"] != "server" {
		t.Errorf("events = %v", events)
	}
}

func TestSummaryJSON(t *testing.T) {
	path := writeTrace(t, "trace.xml", sampleTrace)

	code, out, _ := runCLI(t, "-json", "summary", path)
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}

	var s struct {
		Events  int      `json:"events"`
		Roles   []string `json:"roles"`
		MinTime float64  `json:"min_time"`
	}
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if s.Events != 3 || len(s.Roles) != 2 || s.MinTime != 1.0 {
		t.Errorf("summary = %+v", s)
	}
}

func TestExportCSV(t *testing.T) {
	path := writeTrace(t, "trace.xml", sampleTrace)
	out := filepath.Join(t.TempDir(), "trace.csv")

	code, stdout, errOut := runCLI(t, "export", "-o", out, path)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, errOut)
	}
	if !strings.Contains(stdout, "exported 3 events") {
		t.Errorf("stdout = %q", stdout)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Severity,Time,Type,As,Machine,Details\n") {
		t.Errorf("csv header = %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := writeTrace(t, "trace.xml", sampleTrace)
	snap := filepath.Join(t.TempDir(), "trace.ntab")

	code, _, errOut := runCLI(t, "snapshot", "-o", snap, path)
	if code != 0 {
		t.Fatalf("snapshot exit = %d, stderr = %q", code, errOut)
	}

	// Every command accepts a snapshot in place of a trace file.
	code, out, _ := runCLI(t, "roles", snap)
	if code != 0 {
		t.Fatalf("roles exit = %d", code)
	}
	if out != "client\nserver\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestCustomSeparator(t *testing.T) {
	path := writeTrace(t, "trace.xml", `<Trace><Event A="1" B="2"/></Trace>`)

	code, out, _ := runCLI(t, "-sep", "; ", "-json", "events", path)
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}

	var events []map[string]string
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatal(err)
	}
	if events[0]["Details"] != "A: 1; B: 2" {
		t.Errorf("Details = %q", events[0]["Details"])
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "frobnicate")
	if code != 2 {
		t.Errorf("exit = %d", code)
	}
	if !strings.Contains(errOut, "unknown command") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestMissingFile(t *testing.T) {
	code, _, errOut := runCLI(t, "roles", filepath.Join(t.TempDir(), "nope.xml"))
	if code != 1 {
		t.Errorf("exit = %d", code)
	}
	if !strings.Contains(errOut, "error:") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestNoArguments(t *testing.T) {
	if code, _, _ := runCLI(t); code != 2 {
		t.Errorf("exit = %d, want 2", code)
	}
}
