// Package frame provides an ordered-rows, named-columns table with
// possibly-missing cells, plus the record reshaping used to build it.
// It is the tabular container trace files are loaded into and is not tied
// to any external dataframe library.
package frame

import (
	"errors"
	"fmt"
)

// ErrNoColumn is returned when a requested column does not exist in a
// frame that has rows. A zero-row frame has no column set at all, so
// lookups against it yield empty results instead of an error.
var ErrNoColumn = errors.New("frame: no such column")

// Column stores one named column in columnar form: a value per row and a
// presence flag per row. Rows where the source record had no such field
// are marked absent.
type Column struct {
	name    string
	values  []string
	present []bool
}

// Name returns the column name.
func (c *Column) Name() string {
	return c.name
}

// Len returns the number of rows the column spans.
func (c *Column) Len() int {
	return len(c.values)
}

// Value returns the cell at row and whether it is present. Out-of-range
// rows read as absent.
func (c *Column) Value(row int) (string, bool) {
	if row < 0 || row >= len(c.values) {
		return "", false
	}
	if !c.present[row] {
		return "", false
	}
	return c.values[row], true
}

// CountPresent returns how many rows carry a value in this column.
func (c *Column) CountPresent() int {
	n := 0
	for _, ok := range c.present {
		if ok {
			n++
		}
	}
	return n
}

// Frame is an immutable-after-load table: rows keep append order and
// columns keep first-seen order. Appending a record that introduces a new
// column backfills the prior rows as missing.
type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New creates an empty frame.
func New() *Frame {
	return &Frame{index: make(map[string]int)}
}

// NewWithColumns creates an empty frame with a fixed initial column order.
// Used when reconstructing a frame whose column order is known up front
// (e.g. from a snapshot). Duplicate names are rejected.
func NewWithColumns(names ...string) (*Frame, error) {
	f := New()
	for _, n := range names {
		if _, ok := f.index[n]; ok {
			return nil, fmt.Errorf("frame: duplicate column %q", n)
		}
		f.ensure(n)
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return f.rows
}

// NumColumns returns the number of columns.
func (f *Frame) NumColumns() int {
	return len(f.cols)
}

// Columns returns the column names in first-seen order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.name
	}
	return names
}

// HasColumn reports whether name is a column of the frame.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column, or ErrNoColumn if it does not exist.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	return f.cols[i], nil
}

// AppendRecord adds one row. Fields present in rec fill their columns;
// every other column of the frame marks the row absent.
func (f *Frame) AppendRecord(rec Record) {
	for _, c := range f.cols {
		c.values = append(c.values, "")
		c.present = append(c.present, false)
	}
	f.rows++

	row := f.rows - 1
	for _, fd := range rec {
		c := f.ensure(fd.Key)
		c.values[row] = fd.Value
		c.present[row] = true
	}
}

// Value returns the cell at (row, name) and whether it is present.
func (f *Frame) Value(row int, name string) (string, bool) {
	i, ok := f.index[name]
	if !ok {
		return "", false
	}
	return f.cols[i].Value(row)
}

// Row reconstructs row i as a record of its present cells, in column
// order. The per-event attribute order is not retained by the columnar
// layout.
func (f *Frame) Row(i int) Record {
	if i < 0 || i >= f.rows {
		return nil
	}
	rec := make(Record, 0, len(f.cols))
	for _, c := range f.cols {
		if v, ok := c.Value(i); ok {
			rec = append(rec, Field{Key: c.name, Value: v})
		}
	}
	return rec
}

// Distinct returns the distinct non-missing values of the named column in
// first-appearance row order. On a zero-row frame every column reads as
// empty; on a frame with rows a missing column is ErrNoColumn.
func (f *Frame) Distinct(name string) ([]string, error) {
	if f.rows == 0 {
		return nil, nil
	}

	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}

	c := f.cols[i]
	seen := make(map[string]struct{})
	var out []string
	for row := 0; row < f.rows; row++ {
		v, ok := c.Value(row)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// ensure returns the named column, creating it backfilled with absent
// cells when it is new.
func (f *Frame) ensure(name string) *Column {
	if i, ok := f.index[name]; ok {
		return f.cols[i]
	}
	c := &Column{
		name:    name,
		values:  make([]string, f.rows),
		present: make([]bool, f.rows),
	}
	f.index[name] = len(f.cols)
	f.cols = append(f.cols, c)
	return c
}
