package trace

import (
	"fmt"

	"github.com/coffersTech/nanotrace/internal/frame"
)

// Format identifies the on-disk encoding of a trace file.
type Format int

const (
	// FormatAuto sniffs the format from the filename extension, then from
	// the first non-space byte of the content.
	FormatAuto Format = iota
	// FormatXML is the classic trace format: an XML document whose Event
	// elements carry one attribute set each.
	FormatXML
	// FormatJSON is the line-delimited variant: one JSON object per line
	// with the same attribute names.
	FormatJSON
)

// String returns the format name for logs and errors.
func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatJSON:
		return "json"
	default:
		return "auto"
	}
}

// ParseFormat parses a format name as it appears in config files and
// command-line flags.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "auto":
		return FormatAuto, nil
	case "xml":
		return FormatXML, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatAuto, fmt.Errorf("trace: unknown format %q", s)
}

// DefaultKeepColumns are the attributes kept as standalone columns when
// the caller does not choose their own set: the identity fields every
// FoundationDB-style trace event carries.
var DefaultKeepColumns = []string{
	ColumnSeverity, ColumnTime, ColumnType, ColumnID, ColumnMachine, ColumnRole,
}

// Options configure a load.
type Options struct {
	// KeepColumns are the attribute names kept as individual columns; all
	// other attributes fold into the Details field. An empty slice keeps
	// nothing (everything folds); use DefaultKeepColumns for the usual set.
	KeepColumns []string

	// DetailsSep joins folded "key: value" segments. Empty selects
	// frame.DefaultDetailsSep.
	DetailsSep string

	// Format forces an encoding. FormatAuto sniffs.
	Format Format
}

func (o Options) sep() string {
	if o.DetailsSep == "" {
		return frame.DefaultDetailsSep
	}
	return o.DetailsSep
}
