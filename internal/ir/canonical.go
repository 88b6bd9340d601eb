package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// style selects the separators used when serializing.
type style struct {
	item string // between array elements and object members
	pair string // between an object key and its value
}

var (
	compactStyle = style{item: ",", pair: ":"}

	// jsonbStyle matches PostgreSQL's jsonb text output.
	jsonbStyle = style{item: ", ", pair: ": "}
)

// MarshalJSONB serializes v the way PostgreSQL prints a jsonb value:
// ", " between elements and ": " after keys. Object keys keep document order.
// Numbers are written as their source text.
//
// This is the literal form used in predicate fragments, so re-parsing the
// output yields a value JSON-equal to v.
func MarshalJSONB(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, jsonbStyle); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCompact serializes v without insignificant whitespace, keys in
// document order.
func MarshalCompact(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, compactStyle); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value, st style) error {
	switch val := v.(type) {
	case Null:
		buf.WriteString("null")
	case String:
		b, err := marshalString(string(val))
		if err != nil {
			return err
		}
		buf.Write(b)
	case Number:
		if _, err := NewNumber(string(val)); err != nil {
			return err
		}
		buf.WriteString(string(val))
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteString(st.item)
			}
			if err := writeValue(buf, elem, st); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Document:
		buf.WriteByte('{')
		for i, f := range val {
			if i > 0 {
				buf.WriteString(st.item)
			}
			k, err := marshalString(f.Key)
			if err != nil {
				return fmt.Errorf("key %q: %w", f.Key, err)
			}
			buf.Write(k)
			buf.WriteString(st.pair)
			if err := writeValue(buf, f.Value, st); err != nil {
				return fmt.Errorf("value for key %q: %w", f.Key, err)
			}
		}
		buf.WriteByte('}')
	case nil:
		return fmt.Errorf("missing value")
	default:
		return fmt.Errorf("unknown Value type: %T", v)
	}
	return nil
}

// marshalString produces a JSON string literal without HTML escaping
// (<, > and & are written as-is).
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}

	// json.Encoder adds trailing newline, remove it
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
