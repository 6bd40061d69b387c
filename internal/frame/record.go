package frame

// DetailsKey is the synthetic field that non-kept keys are folded into.
const DetailsKey = "Details"

// DefaultDetailsSep separates folded entries inside the Details field.
const DefaultDetailsSep = "\n"

// Field is a single named value of a record.
type Field struct {
	Key   string
	Value string
}

// Record holds one event's fields in source order. Loaders never emit
// duplicate keys; when constructed by hand the first occurrence wins on
// lookup.
type Record []Field

// Get returns the value of the first field named key.
func (r Record) Get(key string) (string, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Keys returns the field names in record order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// FoldDetails partitions rec into fields whose keys are in keep, passed
// through unchanged, and everything else, concatenated into a single
// "Details" field as "key: value" segments joined by sep. Field order is
// preserved: kept fields keep their position and Details sits where the
// first non-kept field appeared. An empty rec yields an empty record; if
// every key is kept no Details field is produced.
//
// The output behaves like a map with insertion order: a kept key that
// repeats overwrites its earlier value in place, and a kept field named
// "Details" shares the slot the folded segments accumulate in. sep is used
// verbatim; callers wanting the default pass DefaultDetailsSep.
func FoldDetails(rec Record, keep map[string]bool, sep string) Record {
	out := make(Record, 0, len(rec))
	pos := make(map[string]int, len(rec))

	for _, f := range rec {
		if keep[f.Key] {
			if p, ok := pos[f.Key]; ok {
				out[p].Value = f.Value
			} else {
				pos[f.Key] = len(out)
				out = append(out, f)
			}
			continue
		}

		seg := f.Key + ": " + f.Value
		if p, ok := pos[DetailsKey]; ok {
			out[p].Value += sep + seg
		} else {
			pos[DetailsKey] = len(out)
			out = append(out, Field{Key: DetailsKey, Value: seg})
		}
	}

	return out
}

// KeepSet builds the kept-key set FoldDetails expects from a list of
// column names.
func KeepSet(names []string) map[string]bool {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	return keep
}
