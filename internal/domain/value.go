package domain

import "encoding/json"

// Kind classifies the observed shape of a metadata value.
type Kind string

// Kind constants.
const (
	KindString     Kind = "string"
	KindNumber     Kind = "number"
	KindBool       Kind = "boolean"
	KindStringList Kind = "string-list"
	KindArray      Kind = "array"
	KindObject     Kind = "object"
	KindUnknown    Kind = "unknown"
)

// Value is a tagged metadata value. The shape is decided once, when a raw
// backend field crosses into the domain; downstream code switches on Kind()
// instead of re-checking Go types ad hoc.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []string
	raw  any
}

// ValueOf classifies a raw JSON-decoded value.
func ValueOf(v any) Value {
	switch t := v.(type) {
	case string:
		return Value{kind: KindString, str: t}
	case float64:
		return Value{kind: KindNumber, num: t}
	case int:
		return Value{kind: KindNumber, num: float64(t)}
	case int64:
		return Value{kind: KindNumber, num: float64(t)}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{kind: KindUnknown, raw: v}
		}
		return Value{kind: KindNumber, num: f}
	case bool:
		return Value{kind: KindBool, b: t}
	case []string:
		return Value{kind: KindStringList, list: t}
	case []any:
		list := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return Value{kind: KindArray, raw: v}
			}
			list = append(list, s)
		}
		return Value{kind: KindStringList, list: list}
	case map[string]any:
		return Value{kind: KindObject, raw: v}
	case nil:
		return Value{kind: KindUnknown}
	default:
		return Value{kind: KindUnknown, raw: v}
	}
}

// StringValue creates a string Value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// NumberValue creates a number Value.
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Kind returns the value classification.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload (empty unless Kind is string).
func (v Value) Str() string { return v.str }

// Num returns the numeric payload (zero unless Kind is number).
func (v Value) Num() float64 { return v.num }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// List returns the string-list payload.
func (v Value) List() []string { return v.list }

// Raw returns the original representation for JSON round-tripping.
func (v Value) Raw() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindStringList:
		return v.list
	default:
		return v.raw
	}
}

// MarshalJSON emits the original representation.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}

// Metadata is a field-name → tagged-value mapping attached to a search hit.
type Metadata map[string]Value

// MetadataOf classifies every entry of a raw field map.
func MetadataOf(fields map[string]any) Metadata {
	m := make(Metadata, len(fields))
	for k, v := range fields {
		m[k] = ValueOf(v)
	}
	return m
}

// Str returns the value for key if it is a string.
func (m Metadata) Str(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Has reports whether key is present with any kind.
func (m Metadata) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// MergeKind reconciles field kinds observed across samples.
// Unknown yields to anything concrete; string-list wins over the generic
// array/object tags; otherwise the first observation stands.
func MergeKind(prev, next Kind) Kind {
	if prev == next {
		return prev
	}
	if prev == KindUnknown {
		return next
	}
	if next == KindUnknown {
		return prev
	}
	if prev == KindStringList && (next == KindArray || next == KindObject) {
		return KindStringList
	}
	if next == KindStringList && (prev == KindArray || prev == KindObject) {
		return KindStringList
	}
	return prev
}
