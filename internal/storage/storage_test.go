package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/coffersTech/nanotrace/internal/frame"
)

func newCodec(t *testing.T) (*ColumnWriter, *ColumnReader) {
	t.Helper()
	w, err := NewColumnWriter()
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewColumnReader()
	if err != nil {
		t.Fatal(err)
	}
	return w, r
}

func sampleFrame() *frame.Frame {
	f := frame.New()
	f.AppendRecord(frame.Record{
		{Key: "Type", Value: "Role"},
		{Key: "As", Value: "client"},
		{Key: "Machine", Value: "m1"},
	})
	f.AppendRecord(frame.Record{
		{Key: "Type", Value: "Net2Started"},
		{Key: "Machine", Value: "m1"},
	})
	f.AppendRecord(frame.Record{
		{Key: "Type", Value: "Role"},
		{Key: "As", Value: "server"},
		{Key: "Machine", Value: "m2"},
		{Key: "Details", Value: "Port: 4500"},
	})
	return f
}

func TestSnapshotRoundTrip(t *testing.T) {
	w, r := newCodec(t)
	path := filepath.Join(t.TempDir(), "trace.ntab")

	src := sampleFrame()
	if err := w.WriteSnapshot(path, src); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	got, err := r.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}

	if got.Len() != src.Len() {
		t.Fatalf("Len = %d, want %d", got.Len(), src.Len())
	}
	if !reflect.DeepEqual(got.Columns(), src.Columns()) {
		t.Errorf("Columns = %v, want %v", got.Columns(), src.Columns())
	}
	for row := 0; row < src.Len(); row++ {
		for _, name := range src.Columns() {
			wantV, wantOK := src.Value(row, name)
			gotV, gotOK := got.Value(row, name)
			if wantV != gotV || wantOK != gotOK {
				t.Errorf("cell (%d, %s) = %q/%v, want %q/%v", row, name, gotV, gotOK, wantV, wantOK)
			}
		}
	}

	// Missing cells stay missing.
	if _, ok := got.Value(1, "As"); ok {
		t.Error("absent cell came back present")
	}
}

func TestSnapshotEmptyFrame(t *testing.T) {
	w, r := newCodec(t)
	path := filepath.Join(t.TempDir(), "empty.ntab")

	if err := w.WriteSnapshot(path, frame.New()); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	got, err := r.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if got.Len() != 0 || got.NumColumns() != 0 {
		t.Errorf("empty round-trip: Len=%d NumColumns=%d", got.Len(), got.NumColumns())
	}
}

func TestSnapshotDetectsCorruption(t *testing.T) {
	w, r := newCodec(t)
	path := filepath.Join(t.TempDir(), "trace.ntab")

	if err := w.WriteSnapshot(path, sampleFrame()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip one byte in the middle of the column data.
	data[len(data)/2] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := r.ReadSnapshot(path); !errors.Is(err, ErrChecksum) {
		t.Errorf("err = %v, want ErrChecksum", err)
	}
}

func TestSnapshotRejectsForeignFile(t *testing.T) {
	_, r := newCodec(t)
	path := filepath.Join(t.TempDir(), "not-a-snapshot")

	if err := os.WriteFile(path, []byte("<Trace></Trace>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadSnapshot(path); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("err = %v, want ErrInvalidHeader", err)
	}

	// Too short to even hold the header and footer.
	if err := os.WriteFile(path, []byte("NANOTAB1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadSnapshot(path); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("short file: err = %v, want ErrInvalidHeader", err)
	}
}
