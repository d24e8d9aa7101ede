package explorer

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avro"
)

// flattenSep joins path segments in flattened keys.
const flattenSep = "_"

// Flatten collapses a nested record into a single-level ordered mapping
// suitable for one CSV row:
//
//   - nested mappings join their key paths: {"a": {"b": 1}} -> {"a_b": 1}
//   - a list of mappings is indexed by position: a[0].b -> a_0_b
//   - a list of scalars becomes one comma-joined string field
//
// Key order follows a depth-first walk of the input, so rows from the same
// schema flatten to the same column order.
func Flatten(rec *avro.Record) *avro.Record {
	out := avro.NewRecord(rec.Len())
	flattenInto(out, rec, "")
	return out
}

func flattenInto(out *avro.Record, rec *avro.Record, prefix string) {
	for _, key := range rec.Keys() {
		value, _ := rec.Get(key)
		name := key
		if prefix != "" {
			name = prefix + flattenSep + key
		}

		switch v := value.(type) {
		case *avro.Record:
			flattenInto(out, v, name)
		case []interface{}:
			if len(v) > 0 {
				if _, ok := v[0].(*avro.Record); ok {
					for i, item := range v {
						nested, ok := item.(*avro.Record)
						if !ok {
							// Mixed list: fall back to stringifying.
							out.Set(name+flattenSep+strconv.Itoa(i), formatScalar(item))
							continue
						}
						flattenInto(out, nested, name+flattenSep+strconv.Itoa(i))
					}
					continue
				}
			}
			out.Set(name, joinScalars(v))
		default:
			out.Set(name, value)
		}
	}
}

// joinScalars renders a scalar list as a single ", "-separated string.
func joinScalars(items []interface{}) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = formatScalar(item)
	}
	return strings.Join(parts, ", ")
}

// formatScalar renders one leaf value as text for CSV cells and joined
// lists. Byte sequences have no text form, so they are base64-encoded.
func formatScalar(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	default:
		return fmt.Sprint(x)
	}
}
