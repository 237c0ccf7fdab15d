package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind is the stored type of a setting. The numeric values are the type tags
// written to disk and must never be reordered.
type Kind int

const (
	KindBool   Kind = 0
	KindInt    Kind = 1
	KindFloat  Kind = 2
	KindString Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Valid reports whether k is a known type tag.
func (k Kind) Valid() bool {
	return k >= KindBool && k <= KindString
}

// Value is a tagged union over bool, int64, float64 and string.
// The zero Value is unset.
type Value struct {
	kind Kind
	set  bool
	b    bool
	i    int64
	f    float64
	s    string
}

func Bool(v bool) Value     { return Value{kind: KindBool, set: true, b: v} }
func Int(v int64) Value     { return Value{kind: KindInt, set: true, i: v} }
func Float(v float64) Value { return Value{kind: KindFloat, set: true, f: v} }
func String(v string) Value { return Value{kind: KindString, set: true, s: v} }

// Kind returns the stored type tag.
func (v Value) Kind() Kind { return v.kind }

// IsSet is false for the zero Value.
func (v Value) IsSet() bool { return v.set }

// Bool returns the boolean payload or ErrTypeMismatch.
func (v Value) Bool() (bool, error) {
	if err := v.expect(KindBool); err != nil {
		return false, err
	}
	return v.b, nil
}

// Int returns the integer payload or ErrTypeMismatch.
func (v Value) Int() (int64, error) {
	if err := v.expect(KindInt); err != nil {
		return 0, err
	}
	return v.i, nil
}

// Float returns the floating-point payload or ErrTypeMismatch.
func (v Value) Float() (float64, error) {
	if err := v.expect(KindFloat); err != nil {
		return 0, err
	}
	return v.f, nil
}

// Str returns the string payload or ErrTypeMismatch.
func (v Value) Str() (string, error) {
	if err := v.expect(KindString); err != nil {
		return "", err
	}
	return v.s, nil
}

func (v Value) expect(k Kind) error {
	if !v.set {
		return ErrNotFound
	}
	if v.kind != k {
		return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, v.kind, k)
	}
	return nil
}

// Interface returns the payload as a plain Go value (nil when unset).
func (v Value) Interface() any {
	if !v.set {
		return nil
	}
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	default:
		return v.s
	}
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	return v.set == o.set && v.kind == o.kind && v.Interface() == o.Interface()
}

func (v Value) String() string {
	if !v.set {
		return "<unset>"
	}
	return fmt.Sprintf("%v(%s)", v.Interface(), v.kind)
}

// Encode returns the type tag and JSON payload used by every backend.
func Encode(v Value) (int, json.RawMessage, error) {
	if !v.set {
		return 0, nil, ErrNotFound
	}
	raw, err := json.Marshal(v.Interface())
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s: %w", v.kind, err)
	}
	return int(v.kind), raw, nil
}

// Decode rebuilds a Value from a type tag and JSON payload.
func Decode(tag int, raw json.RawMessage) (Value, error) {
	k := Kind(tag)
	if !k.Valid() {
		return Value{}, fmt.Errorf("%w: unknown type tag %d", ErrSchema, tag)
	}
	switch k {
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, fmt.Errorf("%w: tag %d: %v", ErrSchema, tag, err)
		}
		return Bool(b), nil
	case KindInt:
		var i int64
		if err := json.Unmarshal(raw, &i); err != nil {
			return Value{}, fmt.Errorf("%w: tag %d: %v", ErrSchema, tag, err)
		}
		return Int(i), nil
	case KindFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, fmt.Errorf("%w: tag %d: %v", ErrSchema, tag, err)
		}
		return Float(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return Value{}, fmt.Errorf("%w: tag %d: %v", ErrSchema, tag, err)
	}
	return String(s), nil
}
