package types

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValueKind enumerates the variants of Value.
type ValueKind uint8

const (
	KindAbsent ValueKind = iota
	KindText
	KindInt
	KindFloat
	KindBool
	KindTime
	KindID
)

var valueKindNames = [...]string{
	KindAbsent: "absent",
	KindText:   "text",
	KindInt:    "int",
	KindFloat:  "float",
	KindBool:   "bool",
	KindTime:   "time",
	KindID:     "id",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "ValueKind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a closed sum type over the primitive kinds stored in records and
// datasets. The zero Value is Absent.
type Value struct {
	kind ValueKind
	s    string // text, id
	n    int64  // int, bool
	f    float64
	t    time.Time
}

// Absent returns the absent value.
func Absent() Value { return Value{} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Int returns an integer value.
func Int(n int64) Value { return Value{kind: KindInt, n: n} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.n = 1
	}
	return v
}

// Time returns a date/time value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// ID returns an identifier value. Identifiers compare like text but are
// never case-folded by conversions.
func ID(s string) Value { return Value{kind: KindID, s: s} }

// Kind reports the variant.
func (v Value) Kind() ValueKind { return v.kind }

// IsAbsent reports whether v is the absent variant.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// IsNumeric reports whether v is an int or float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.n, true
}

// AsFloat returns the numeric payload of int and float values.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.n), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.n != 0, true
}

// AsTime returns the time payload.
func (v Value) AsTime() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.t, true
}

// Same reports whether v and o are the same variant holding the same payload.
func (v Value) Same(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindText, KindID:
		return v.s == o.s
	case KindInt, KindBool:
		return v.n == o.n
	case KindFloat:
		return v.f == o.f || (v.f != v.f && o.f != o.f)
	case KindTime:
		return v.t.Equal(o.t)
	}
	return false
}

// String renders the value as text: absent is empty, bools are
// "true"/"false", times use RFC 3339.
func (v Value) String() string {
	switch v.kind {
	case KindText, KindID:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.n, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.n != 0)
	case KindTime:
		return v.t.Format(time.RFC3339)
	}
	return ""
}

// GoString makes %#v output readable in test failures.
func (v Value) GoString() string {
	if v.kind == KindAbsent {
		return "types.Absent()"
	}
	return fmt.Sprintf("types.Value{%s:%q}", v.kind, v.String())
}

// Native returns the payload as a plain Go value: nil, string, int64,
// float64, bool or time.Time.
func (v Value) Native() any {
	switch v.kind {
	case KindText, KindID:
		return v.s
	case KindInt:
		return v.n
	case KindFloat:
		return v.f
	case KindBool:
		return v.n != 0
	case KindTime:
		return v.t
	}
	return nil
}

// fromUnsigned keeps unsigned integers above math.MaxInt64 exact as text.
func fromUnsigned(n uint64) Value {
	if n > math.MaxInt64 {
		return Text(strconv.FormatUint(n, 10))
	}
	return Int(int64(n))
}

// FromNative converts a plain Go value (as produced by database drivers or
// YAML decoding) into a Value. Unsupported types are rendered with fmt.
// Unsigned integers beyond the int64 range become text.
func FromNative(x any) Value {
	switch n := x.(type) {
	case nil:
		return Absent()
	case Value:
		return n
	case string:
		return Text(n)
	case []byte:
		return Text(string(n))
	case bool:
		return Bool(n)
	case int:
		return Int(int64(n))
	case int8:
		return Int(int64(n))
	case int16:
		return Int(int64(n))
	case int32:
		return Int(int64(n))
	case int64:
		return Int(n)
	case uint:
		return fromUnsigned(uint64(n))
	case uint8:
		return Int(int64(n))
	case uint16:
		return Int(int64(n))
	case uint32:
		return Int(int64(n))
	case uint64:
		return fromUnsigned(n)
	case float32:
		return Float(float64(n))
	case float64:
		return Float(n)
	case time.Time:
		return Time(n)
	default:
		return Text(fmt.Sprint(n))
	}
}
