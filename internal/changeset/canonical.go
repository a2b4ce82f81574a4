package changeset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/briefcase/internal/ids"
)

// NormalizeValue converts a decoded column value into one of the storage
// types: nil, bool, int64 or string.
//
// Values arrive from several decoders (JSON with UseNumber, YAML, Go
// literals), so the same logical row must normalize identically regardless
// of its origin. Columns named "id" or ending in "_id" also accept entity id
// strings such as "0x10".
func NormalizeValue(column string, v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return val, nil
	case string:
		if isIDColumn(column) && val != "" {
			id, err := ids.ParseEntityID(val)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", column, err)
			}
			return int64(id), nil
		}
		return val, nil
	case ids.EntityID:
		return int64(val), nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint32:
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("column %q: value %d overflows int64", column, val)
		}
		return int64(val), nil
	case json.Number:
		n, err := strconv.ParseInt(string(val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column %q: non-integer number %s", column, val)
		}
		return n, nil
	case float64:
		if val != math.Trunc(val) || math.Abs(val) > 1<<53 {
			return nil, fmt.Errorf("column %q: floats are not storable: %v", column, val)
		}
		return int64(val), nil
	default:
		return nil, fmt.Errorf("column %q: unsupported value type %T", column, v)
	}
}

func isIDColumn(column string) bool {
	return column == "id" || strings.HasSuffix(column, "_id")
}

// marshalCanonical produces canonical JSON for hashing: sorted object keys,
// NFC-normalized strings, no HTML escaping, integers only.
func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case string:
		return marshalCanonicalString(val)
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalCanonical(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalCanonicalString(k)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := marshalCanonical(val[k])
			if err != nil {
				return nil, fmt.Errorf("value for key %q: %w", k, err)
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
