package trace

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/valyala/fastjson"

	"github.com/coffersTech/nanotrace/internal/frame"
)

// jsonMaxLine caps a single JSON trace line. FoundationDB events stay well
// under this; anything bigger is a corrupt file.
const jsonMaxLine = 4 * 1024 * 1024

// loadJSON parses the line-delimited JSON trace format: one object per
// line, object members in document order, blank lines skipped. A line that
// is not a JSON object fails the load.
func loadJSON(r io.Reader, keep map[string]bool, sep string) (*frame.Frame, error) {
	f := frame.New()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), jsonMaxLine)

	var p fastjson.Parser
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		v, err := p.ParseBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("parse trace json line %d: %w", line, err)
		}
		obj, err := v.Object()
		if err != nil {
			return nil, fmt.Errorf("parse trace json line %d: %w", line, err)
		}

		rec := make(frame.Record, 0, obj.Len())
		obj.Visit(func(key []byte, v *fastjson.Value) {
			if v.Type() == fastjson.TypeNull {
				return
			}
			rec = append(rec, frame.Field{Key: string(key), Value: scalarString(v)})
		})
		f.AppendRecord(frame.FoldDetails(rec, keep, sep))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trace json: %w", err)
	}

	return f, nil
}

// scalarString renders a JSON value as the attribute string the XML format
// would have carried: strings verbatim, everything else as its JSON text.
func scalarString(v *fastjson.Value) string {
	if v.Type() == fastjson.TypeString {
		return string(v.GetStringBytes())
	}
	return string(v.MarshalTo(nil))
}
