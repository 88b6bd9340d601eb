package ir

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Value is a sealed interface over the JSON value kinds a query document can hold.
// Only Null, String, Number, Bool, Array, and Document implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a JSON null.
type Null struct{}

func (Null) value() {}

// String represents a JSON string.
type String string

func (String) value() {}

// Number holds the JSON text of a number exactly as it appeared in the input.
// Keeping the text (rather than a float64) preserves integer precision and lets
// PostgreSQL apply its own numeric comparison to the literal.
type Number string

func (Number) value() {}

// Bool represents a JSON boolean.
type Bool bool

func (Bool) value() {}

// Array represents a JSON array.
type Array []Value

func (Array) value() {}

// Field is one key/value pair of a Document.
type Field struct {
	Key   string
	Value Value
}

// Document is an ordered JSON object. Field order is the order the keys
// appeared in the input and is preserved through every transformation.
type Document []Field

func (Document) value() {}

// NewNumber validates s as a JSON number and returns it as a Number.
func NewNumber(s string) (Number, error) {
	if !json.Valid([]byte(s)) {
		return "", fmt.Errorf("invalid JSON number %q", s)
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		// ParseFloat accepts JSON numbers; range errors still mean s is a number.
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return "", fmt.Errorf("invalid JSON number %q", s)
		}
	}
	return Number(s), nil
}

// Int returns the Number for an int64.
func Int(n int64) Number {
	return Number(strconv.FormatInt(n, 10))
}

// Float returns the Number for a float64 in shortest round-trip form.
// NaN and the infinities produce text that is not a JSON number; FromAny
// rejects them.
func Float(f float64) Number {
	return Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// D is a shorthand for building a Document from alternating keys and values.
// Values are converted with FromAny; D panics on an odd argument count or an
// unsupported value. Intended for tests and literals.
//
//	D("a", D("b", D("$eq", 22)), "c", 44)
func D(kv ...any) Document {
	if len(kv)%2 != 0 {
		panic("ir.D: odd number of arguments")
	}
	doc := make(Document, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("ir.D: key at position %d is %T, not string", i, kv[i]))
		}
		val, err := FromAny(kv[i+1])
		if err != nil {
			panic(fmt.Sprintf("ir.D: key %q: %v", key, err))
		}
		doc = append(doc, Field{Key: key, Value: val})
	}
	return doc
}

// A is a shorthand for building an Array. Values are converted with FromAny.
func A(vals ...any) Array {
	arr := make(Array, len(vals))
	for i, v := range vals {
		val, err := FromAny(v)
		if err != nil {
			panic(fmt.Sprintf("ir.A: index %d: %v", i, err))
		}
		arr[i] = val
	}
	return arr
}

// Len returns the number of fields.
func (d Document) Len() int {
	return len(d)
}

// Keys returns the field keys in document order.
func (d Document) Keys() []string {
	keys := make([]string, len(d))
	for i, f := range d {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the value stored under key.
func (d Document) Get(key string) (Value, bool) {
	for _, f := range d {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// With returns a copy of d with key set to val. An existing key keeps its
// position; a new key is appended.
func (d Document) With(key string, val Value) Document {
	out := make(Document, len(d), len(d)+1)
	copy(out, d)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = val
			return out
		}
	}
	return append(out, Field{Key: key, Value: val})
}

// FromAny converts a Go value into a Value.
//
// Supported inputs: nil, Value, string, bool, all integer kinds, float32/64,
// json.Number, []any, map[string]any. Maps carry no order, so their keys are
// sorted to keep the result deterministic; build a Document directly when order
// matters.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(int64(val)), nil
	case int8:
		return Int(int64(val)), nil
	case int16:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case uint:
		return Number(strconv.FormatUint(uint64(val), 10)), nil
	case uint8:
		return Int(int64(val)), nil
	case uint16:
		return Int(int64(val)), nil
	case uint32:
		return Int(int64(val)), nil
	case uint64:
		return Number(strconv.FormatUint(val, 10)), nil
	case float32:
		return NewNumber(string(Float(float64(val))))
	case float64:
		return NewNumber(string(Float(val)))
	case json.Number:
		return NewNumber(string(val))
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		doc := make(Document, 0, len(keys))
		for _, k := range keys {
			conv, err := FromAny(val[k])
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			doc = append(doc, Field{Key: k, Value: conv})
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToAny converts a Value back into plain Go values: nil, string, json.Number,
// bool, []any, map[string]any. Document order is lost in the map.
func ToAny(v Value) any {
	switch val := v.(type) {
	case Null, nil:
		return nil
	case String:
		return string(val)
	case Number:
		return json.Number(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Document:
		out := make(map[string]any, len(val))
		for _, f := range val {
			out[f.Key] = ToAny(f.Value)
		}
		return out
	default:
		return nil
	}
}

// IsScalar reports whether v is a null, string, number, or boolean.
func IsScalar(v Value) bool {
	switch v.(type) {
	case Null, String, Number, Bool:
		return true
	default:
		return false
	}
}

// Kind returns a short name for the kind of v, for error messages.
func Kind(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case Array:
		return "array"
	case Document:
		return "object"
	case nil:
		return "missing"
	default:
		return fmt.Sprintf("%T", v)
	}
}
