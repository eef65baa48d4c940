// Package jsonvalue holds decoded JSON documents as a tagged variant.
//
// Objects keep their keys in document order so that compound values render
// back the way the API sent them. A Value is immutable once built: accessors
// return copies of the underlying slices.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind is the JSON type of a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Member is one key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// Value is a JSON value. The zero Value is null.
type Value struct {
	kind    Kind
	b       bool
	s       string // string contents, or the literal text of a number
	elems   []Value
	members []Member
	index   map[string]int
}

// NullValue returns the JSON null.
func NullValue() Value { return Value{} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// NumberValue wraps a number literal.
func NumberValue(n json.Number) Value { return Value{kind: Number, s: n.String()} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: String, s: s} }

// ArrayValue builds an array from the given elements.
func ArrayValue(elems ...Value) Value {
	out := make([]Value, len(elems))
	copy(out, elems)
	return Value{kind: Array, elems: out}
}

// ObjectValue builds an object. A repeated key keeps its first position and
// takes the last value, matching encoding/json.
func ObjectValue(members ...Member) Value {
	v := Value{kind: Object, index: make(map[string]int, len(members))}
	for _, m := range members {
		v.set(m.Key, m.Value)
	}
	return v
}

func (v *Value) set(key string, val Value) {
	if i, ok := v.index[key]; ok {
		v.members[i].Value = val
		return
	}
	v.index[key] = len(v.members)
	v.members = append(v.members, Member{Key: key, Value: val})
}

// Kind reports the JSON type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the JSON null.
func (v Value) IsNull() bool { return v.kind == Null }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == Bool }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == String }

// AsNumber returns the number literal held by v.
func (v Value) AsNumber() (json.Number, bool) { return json.Number(v.s), v.kind == Number }

// Len returns the element count of an array or the member count of an object.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.elems)
	case Object:
		return len(v.members)
	default:
		return 0
	}
}

// Elements returns a copy of the elements of an array.
func (v Value) Elements() []Value {
	if v.kind != Array {
		return nil
	}
	out := make([]Value, len(v.elems))
	copy(out, v.elems)
	return out
}

// Members returns a copy of the members of an object, in document order.
func (v Value) Members() []Member {
	if v.kind != Object {
		return nil
	}
	out := make([]Member, len(v.members))
	copy(out, v.members)
	return out
}

// Get looks up key in an object. It returns false for missing keys and for
// values that are not objects.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	i, ok := v.index[key]
	if !ok {
		return Value{}, false
	}
	return v.members[i].Value, true
}

// Text renders v as a single table cell: strings raw, numbers and booleans as
// their literal, null as empty and compound values as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case Null:
		return ""
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Number, String:
		return v.s
	default:
		b, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Interface converts v into the types encoding/json produces when decoding
// into an interface{} with UseNumber.
func (v Value) Interface() interface{} {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return json.Number(v.s)
	case String:
		return v.s
	case Array:
		out := make([]interface{}, len(v.elems))
		for i, e := range v.elems {
			out[i] = e.Interface()
		}
		return out
	case Object:
		out := make(map[string]interface{}, len(v.members))
		for _, m := range v.members {
			out[m.Key] = m.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether v and o hold the same JSON value. Object key order is
// not significant; numbers compare by literal text.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case Number, String:
		return v.s == o.s
	case Array:
		if len(v.elems) != len(o.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.members) != len(o.members) {
			return false
		}
		for _, m := range v.members {
			other, ok := o.Get(m.Key)
			if !ok || !m.Value.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON encodes v as compact JSON, keeping object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		buf.WriteString(v.s)
	case String:
		return encodeString(buf, v.s)
	case Array:
		buf.WriteByte('[')
		for i, e := range v.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode %s", v.kind)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates with a newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
