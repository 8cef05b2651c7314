// Package jsonq provides a typed optional-chaining accessor over JSON
// documents. Every lookup is total: a missing key, a type mismatch, or an
// out-of-range index yields a null Value instead of an error or panic.
package jsonq

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/tidwall/gjson"
)

// ErrInvalid is returned by Parse for data that is not a JSON document.
var ErrInvalid = errors.New("invalid JSON document")

// Value wraps one node of a JSON document. The zero Value is null.
type Value struct {
	r gjson.Result
}

// Null is the null Value.
var Null = Value{}

// Parse validates data and wraps it as a Value. Numbers keep their textual
// form so that integer ids survive unchanged.
func Parse(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Null, ErrInvalid
	}
	return Value{r: gjson.ParseBytes(data)}, nil
}

// IsNull reports whether the value is absent or JSON null.
func (v Value) IsNull() bool { return !v.r.Exists() || v.r.Type == gjson.Null }

// Raw returns the JSON text of the value, or "" when absent.
func (v Value) Raw() string { return v.r.Raw }

// Key returns the member k of an object, or null. k is matched literally.
func (v Value) Key(k string) Value {
	if !v.r.IsObject() {
		return Null
	}
	var out Value
	v.r.ForEach(func(key, val gjson.Result) bool {
		if key.Str == k {
			out = Value{r: val}
			return false
		}
		return true
	})
	return out
}

// Index returns element i of an array, or null.
func (v Value) Index(i int) Value {
	if !v.r.IsArray() || i < 0 {
		return Null
	}
	return Value{r: v.r.Get(strconv.Itoa(i))}
}

// Get walks a dotted path such as "metadata.dois.0.value". Numeric segments
// index arrays; on objects every segment is a member name.
func (v Value) Get(path string) Value {
	if path == "" || path == "." {
		return v
	}
	if v.IsNull() {
		return Null
	}
	return Value{r: v.r.Get(path)}
}

// Len returns the number of elements of an array or members of an object.
func (v Value) Len() int {
	if !v.r.IsArray() && !v.r.IsObject() {
		return 0
	}
	n := 0
	v.r.ForEach(func(_, _ gjson.Result) bool {
		n++
		return true
	})
	return n
}

// Elements returns the elements of an array, or nil.
func (v Value) Elements() []Value {
	if !v.r.IsArray() {
		return nil
	}
	elems := v.r.Array()
	out := make([]Value, len(elems))
	for i, e := range elems {
		out[i] = Value{r: e}
	}
	return out
}

// String returns the value when it is a JSON string.
func (v Value) String() (string, bool) {
	if v.r.Type != gjson.String {
		return "", false
	}
	return v.r.Str, true
}

// Text returns strings as-is and numbers and booleans in their JSON form.
func (v Value) Text() (string, bool) {
	switch v.r.Type {
	case gjson.String:
		return v.r.Str, true
	case gjson.Number, gjson.True, gjson.False:
		return v.r.Raw, true
	default:
		return "", false
	}
}

// Int returns integral numbers, and strings holding an integer.
func (v Value) Int() (int, bool) {
	var s string
	switch v.r.Type {
	case gjson.Number:
		s = v.r.Raw
	case gjson.String:
		s = v.r.Str
	default:
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bool returns the value when it is a JSON boolean.
func (v Value) Bool() (bool, bool) {
	switch v.r.Type {
	case gjson.True:
		return true, true
	case gjson.False:
		return false, true
	default:
		return false, false
	}
}

// StringPtr returns the text form of the value, or nil when null or not scalar.
func (v Value) StringPtr() *string {
	s, ok := v.Text()
	if !ok {
		return nil
	}
	return &s
}

// IntPtr returns the integer value, or nil.
func (v Value) IntPtr() *int {
	n, ok := v.Int()
	if !ok {
		return nil
	}
	return &n
}

// BoolPtr returns the boolean value, or nil.
func (v Value) BoolPtr() *bool {
	b, ok := v.Bool()
	if !ok {
		return nil
	}
	return &b
}

// MarshalIndent renders the value as indented JSON in document order; null
// renders as "null".
func (v Value) MarshalIndent() string {
	if !v.r.Exists() {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(v.r.Raw), "", "  "); err != nil {
		return v.r.Raw
	}
	return buf.String()
}
