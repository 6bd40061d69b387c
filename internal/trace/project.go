package trace

import (
	"github.com/coffersTech/nanotrace/internal/frame"
)

// Column names FoundationDB-style trace events use for their identity
// fields. Role events carry the role name in As; every event names the
// emitting machine in Machine.
const (
	ColumnSeverity = "Severity"
	ColumnTime     = "Time"
	ColumnType     = "Type"
	ColumnID       = "ID"
	ColumnMachine  = "Machine"
	ColumnRole     = "As"
)

// Roles returns the distinct role names observed in the trace, in first
// appearance order. Rows without a role are skipped; a loaded table that
// has rows but no As column at all is frame.ErrNoColumn.
func Roles(f *frame.Frame) ([]string, error) {
	return f.Distinct(ColumnRole)
}

// Machines returns the distinct machine addresses observed in the trace,
// in first appearance order, with the same missing-column semantics as
// Roles.
func Machines(f *frame.Frame) ([]string, error) {
	return f.Distinct(ColumnMachine)
}
