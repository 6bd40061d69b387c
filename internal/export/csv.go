package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/coffersTech/nanotrace/internal/frame"
)

// ToCSV writes the table to a CSV file: one header row of column names,
// then one row per event.
func ToCSV(path string, f *frame.Frame) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv file: %w", err)
	}
	defer out.Close()

	if err := WriteCSV(out, f); err != nil {
		return err
	}
	return out.Close()
}

// WriteCSV streams the table as CSV. Missing cells collapse to the
// empty string, so CSV output cannot distinguish an absent attribute
// from an empty one; use the SQLite export when that matters.
func WriteCSV(w io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(w)

	names := f.Columns()
	if len(names) == 0 {
		cw.Flush()
		return cw.Error()
	}
	if err := cw.Write(names); err != nil {
		return err
	}

	row := make([]string, len(names))
	for i := 0; i < f.Len(); i++ {
		for c, name := range names {
			v, _ := f.Value(i, name)
			row[c] = v
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
