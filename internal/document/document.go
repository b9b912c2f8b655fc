// Package document defines the persisted JSON record shared by the stores,
// the auth adapter and the migrations.
//
// A [Document] is an open JSON object. Its schema is tagged by the
// [SchemaVersionField] key; a document without the tag is a legacy document
// at [LegacyVersion].
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/mohae/deepcopy"
)

// SchemaVersionField is the key holding a document's schema version.
const SchemaVersionField = "_schemaVersion"

// TimestampLayout formats timestamps as UTC ISO-8601 with millisecond
// precision, e.g. "2024-01-01T09:30:00.000Z".
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Version is the schema version tag of a document.
type Version int

// LegacyVersion is the version of a document that carries no tag.
const LegacyVersion Version = 1

var (
	// ErrInvalidVersion is returned when the version field is present but
	// not a whole number.
	ErrInvalidVersion = errors.New("invalid schema version")

	// ErrNotObject is returned when JSON data does not hold a single object.
	ErrNotObject = errors.New("document is not a JSON object")
)

// Document is one persisted JSON object.
type Document map[string]any

// VersionOf returns the schema version of doc.
//
// A missing or null version field means [LegacyVersion]. Negative values
// and values that do not fit a Version are [ErrInvalidVersion].
func VersionOf(doc Document) (Version, error) {
	raw, ok := doc[SchemaVersionField]
	if !ok || raw == nil {
		return LegacyVersion, nil
	}

	switch value := raw.(type) {
	case Version:
		return versionFromInt(int64(value))
	case int:
		return versionFromInt(int64(value))
	case int64:
		return versionFromInt(value)
	case float64:
		return versionFromFloat(value)
	case json.Number:
		n, err := strconv.ParseInt(value.String(), 10, 64)
		if err == nil {
			return versionFromInt(n)
		}

		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %s out of range", ErrInvalidVersion, value.String())
		}

		f, err := value.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, value.String())
		}

		return versionFromFloat(f)
	default:
		return 0, fmt.Errorf("%w: %v (%T)", ErrInvalidVersion, raw, raw)
	}
}

func versionFromInt(n int64) (Version, error) {
	if n < 0 || n > math.MaxInt {
		return 0, fmt.Errorf("%w: %d out of range", ErrInvalidVersion, n)
	}

	return Version(n), nil
}

// versionFromFloat rejects anything at or above 2^63, where the int64
// conversion would wrap.
func versionFromFloat(f float64) (Version, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidVersion, f)
	}

	if f < 0 || f >= float64(math.MaxInt64) {
		return 0, fmt.Errorf("%w: %v out of range", ErrInvalidVersion, f)
	}

	return versionFromInt(int64(f))
}

// SetVersion stamps the schema version on doc.
func (d Document) SetVersion(v Version) {
	d[SchemaVersionField] = int(v)
}

// Clone returns a deep copy of d. Nested objects and arrays are not shared
// with the original.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}

	cloned, ok := deepcopy.Copy(d).(Document)
	if !ok || cloned == nil {
		return Document{}
	}

	return cloned
}

// Unmarshal decodes data into a document. Numbers are kept as [json.Number]
// so that fields the caller never touches are written back unchanged.
func Unmarshal(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any

	err := dec.Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	var trailing any

	err = dec.Decode(&trailing)
	if !errors.Is(err, io.EOF) {
		return nil, errors.New("decoding JSON: unexpected data after top-level value")
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNotObject, jsonKind(raw))
	}

	return Document(obj), nil
}

// Marshal encodes doc as compact JSON. A nil document encodes as "{}".
func Marshal(doc Document) ([]byte, error) {
	return encode(doc, "")
}

// MarshalIndent encodes doc as JSON indented by two spaces, with a trailing
// newline. A nil document encodes as "{}".
func MarshalIndent(doc Document) ([]byte, error) {
	return encode(doc, "  ")
}

func encode(doc Document, indent string) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if indent != "" {
		enc.SetIndent("", indent)
	}

	err := enc.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}

	if indent == "" {
		return bytes.TrimRight(buf.Bytes(), "\n"), nil
	}

	return buf.Bytes(), nil
}

// FormatTimestamp formats t with [TimestampLayout].
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Truthy reports whether a decoded JSON value counts as set: null, false,
// empty strings and zero are not.
func Truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != ""
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return true
		}

		return f != 0 && !math.IsNaN(f)
	case float64:
		return value != 0 && !math.IsNaN(value)
	case int:
		return value != 0
	case int64:
		return value != 0
	default:
		return true
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
