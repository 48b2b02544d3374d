// Package codec converts between local-native record values and the JSON-safe
// document shape the cloud store accepts.
//
// The cloud store has no native date type and rejects absent-as-undefined
// fields, so Encode turns every time.Time into an ISO-8601 string with
// millisecond precision and drops keys whose value would be nil. Decode is
// the inverse: strings matching the exact ISO pattern become time.Time again.
// Both walk values recursively, so nested memory and event lists round-trip
// without any per-field handling at the call sites.
package codec

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/david8015838-create/nexus-mind/internal/apperr"
)

// TimeLayout is the wire format for dates: ISO-8601 with milliseconds, UTC.
const TimeLayout = "2006-01-02T15:04:05.000Z"

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`)

// Encode produces a cloud-safe value from a local record.
//
// time.Time values become ISO-8601 strings, structs become maps keyed by
// their json tags, slices and maps are encoded element-wise, and nil values
// are dropped from maps (never emitted). Scalars pass through unchanged.
func Encode(v any) any {
	if v == nil {
		return nil
	}
	return encodeValue(reflect.ValueOf(v))
}

func encodeValue(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return encodeValue(rv.Elem())
	}

	if t, ok := rv.Interface().(time.Time); ok {
		return t.UTC().Format(TimeLayout)
	}

	switch rv.Kind() {
	case reflect.Struct:
		return encodeStruct(rv)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = encodeValue(rv.Index(i))
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			enc := encodeValue(iter.Value())
			if enc == nil {
				continue
			}
			out[fmt.Sprint(iter.Key().Interface())] = enc
		}
		return out
	default:
		return rv.Interface()
	}
}

func encodeStruct(rv reflect.Value) map[string]any {
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitEmpty := jsonName(field)
		if name == "-" {
			continue
		}
		fv := rv.Field(i)
		if omitEmpty && isEmptyValue(fv) {
			continue
		}
		enc := encodeValue(fv)
		if enc == nil {
			continue
		}
		out[name] = enc
	}
	return out
}

func jsonName(f reflect.StructField) (name string, omitEmpty bool) {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name, false
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = f.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty
}

func isEmptyValue(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	if t, ok := rv.Interface().(time.Time); ok {
		return t.IsZero()
	}
	return false
}

// EncodeRecord encodes a full record and asserts the result is a document.
// Anything that does not encode to a keyed document (for example a nil
// pointer) is reported as apperr.ErrSerialization.
func EncodeRecord(v any) (map[string]any, error) {
	doc, ok := Encode(v).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: record did not encode to a document", apperr.ErrSerialization)
	}
	return doc, nil
}

// Decode restores local-native values from a cloud document value. Strings
// matching the exact ISO-8601-with-milliseconds pattern become time.Time in
// UTC; arrays and maps are decoded element-wise; other scalars pass through.
func Decode(v any) any {
	switch val := v.(type) {
	case string:
		if isoDatePattern.MatchString(val) {
			if t, err := time.Parse(TimeLayout, val); err == nil {
				return t.UTC()
			}
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Decode(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Decode(item)
		}
		return out
	default:
		return v
	}
}

// DecodeInto unmarshals a raw cloud document into a typed record. It expects
// the document as fetched from the cloud store (dates still ISO strings);
// time.Time fields parse them directly. Failures are reported as
// apperr.ErrSerialization with the offending detail attached.
func DecodeInto(doc map[string]any, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: marshal document: %v", apperr.ErrSerialization, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode document: %v", apperr.ErrSerialization, err)
	}
	return nil
}
