// Package trace loads FoundationDB-style trace event logs into frames and
// derives role, machine and summary views from them.
package trace

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/coffersTech/nanotrace/internal/frame"
)

// EventTag is the element name holding one trace event. Only these
// elements are consulted; all other document structure is ignored.
const EventTag = "Event"

// ErrUnknownFormat is returned when FormatAuto cannot tell XML from JSON.
var ErrUnknownFormat = errors.New("trace: cannot determine trace format")

// LoadFile parses the trace file at path into a frame, keeping the given
// attribute names as standalone columns and folding everything else into
// Details. Files ending in .gz are decompressed transparently.
func LoadFile(path string, keep []string) (*frame.Frame, error) {
	return LoadFileOptions(path, Options{KeepColumns: keep})
}

// LoadFileOptions is LoadFile with explicit options.
func LoadFileOptions(path string, opts Options) (*frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	name := path
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip trace file %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
		name = strings.TrimSuffix(path, ".gz")
	}

	if opts.Format == FormatAuto {
		opts.Format = formatFromExt(name)
	}
	return LoadOptions(r, opts)
}

// Load parses a trace document from r, keeping the given attribute names
// as standalone columns. The format is sniffed from the content.
func Load(r io.Reader, keep []string) (*frame.Frame, error) {
	return LoadOptions(r, Options{KeepColumns: keep})
}

// LoadOptions is Load with explicit options.
func LoadOptions(r io.Reader, opts Options) (*frame.Frame, error) {
	br := bufio.NewReader(r)

	format := opts.Format
	if format == FormatAuto {
		var err error
		format, err = sniffFormat(br)
		if err != nil {
			return nil, err
		}
	}

	keep := frame.KeepSet(opts.KeepColumns)
	switch format {
	case FormatXML:
		return loadXML(br, keep, opts.sep())
	case FormatJSON:
		return loadJSON(br, keep, opts.sep())
	default:
		return nil, ErrUnknownFormat
	}
}

// loadXML streams XML tokens and appends one row per Event element, in
// document order. Attributes are taken in document order; child elements
// and character data are ignored. The decoder runs to EOF so a syntax
// error anywhere in the document fails the load.
func loadXML(r io.Reader, keep map[string]bool, sep string) (*frame.Frame, error) {
	dec := xml.NewDecoder(r)
	f := frame.New()

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse trace xml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != EventTag {
			continue
		}

		rec := make(frame.Record, 0, len(start.Attr))
		for _, a := range start.Attr {
			rec = append(rec, frame.Field{Key: a.Name.Local, Value: a.Value})
		}
		f.AppendRecord(frame.FoldDetails(rec, keep, sep))
	}

	return f, nil
}

// formatFromExt maps a filename to a format, FormatAuto when the
// extension says nothing.
func formatFromExt(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml":
		return FormatXML
	case ".json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// sniffFormat peeks at the first non-space byte: '<' is XML, '{' is JSON.
func sniffFormat(br *bufio.Reader) (Format, error) {
	peeked, err := br.Peek(512)
	if err != nil && err != io.EOF {
		return FormatAuto, fmt.Errorf("sniff trace format: %w", err)
	}

	trimmed := bytes.TrimLeft(peeked, " \t\r\n")
	if len(trimmed) == 0 {
		// Blank input reads as an empty trace in either format.
		return FormatXML, nil
	}
	switch trimmed[0] {
	case '<':
		return FormatXML, nil
	case '{':
		return FormatJSON, nil
	}
	return FormatAuto, fmt.Errorf("%w: document starts with %q", ErrUnknownFormat, trimmed[0])
}
