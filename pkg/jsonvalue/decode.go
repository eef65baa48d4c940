package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxDepth bounds nesting so hostile payloads cannot exhaust the stack.
const maxDepth = 1000

var (
	// ErrEmpty is returned when the input holds no JSON value at all.
	ErrEmpty = errors.New("empty JSON document")
	// ErrTrailingData is returned when bytes follow the top-level value.
	ErrTrailingData = errors.New("unexpected data after top-level JSON value")
)

// Decode parses exactly one JSON document.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err == io.EOF {
		return Value{}, ErrEmpty
	}
	if err != nil {
		return Value{}, err
	}

	v, err := decodeToken(dec, tok, 0)
	if err != nil {
		return Value{}, err
	}

	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrTrailingData, err)
		}
		return Value{}, ErrTrailingData
	}
	return v, nil
}

// MustDecode is like Decode but panics on error. Intended for literals in
// tests and demos.
func MustDecode(s string) Value {
	v, err := Decode([]byte(s))
	if err != nil {
		panic(fmt.Sprintf("jsonvalue: MustDecode(%q): %v", s, err))
	}
	return v
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}
	return decodeToken(dec, tok, depth)
}

func decodeToken(dec *json.Decoder, tok json.Token, depth int) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return NumberValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Delim:
		if depth >= maxDepth {
			return Value{}, fmt.Errorf("JSON nesting exceeds %d levels", maxDepth)
		}
		switch t {
		case '{':
			return decodeObject(dec, depth+1)
		case '[':
			return decodeArray(dec, depth+1)
		}
		return Value{}, fmt.Errorf("unexpected delimiter %q", rune(t))
	}
	return Value{}, fmt.Errorf("unexpected token %T", tok)
}

func decodeObject(dec *json.Decoder, depth int) (Value, error) {
	v := Value{kind: Object, index: make(map[string]int)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("object key is %T, not string", tok)
		}
		child, err := decodeValue(dec, depth)
		if err != nil {
			return Value{}, err
		}
		v.set(key, child)
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func decodeArray(dec *json.Decoder, depth int) (Value, error) {
	v := Value{kind: Array, elems: []Value{}}
	for dec.More() {
		child, err := decodeValue(dec, depth)
		if err != nil {
			return Value{}, err
		}
		v.elems = append(v.elems, child)
	}
	// closing ']'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}
