package types

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestValue_Same(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"absent", Absent(), Absent(), true},
		{"text", Text("a"), Text("a"), true},
		{"text differs", Text("a"), Text("A"), false},
		{"text vs id", Text("a"), ID("a"), false},
		{"int vs float", Int(1), Float(1), false},
		{"nan", Float(math.NaN()), Float(math.NaN()), true},
		{"bool", Bool(true), Bool(true), true},
		{"time zones", Time(ts), Time(ts.In(time.FixedZone("x", 3600))), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Same(tt.b); got != tt.want {
				t.Errorf("%#v.Same(%#v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Absent(), ""},
		{Text("x"), "x"},
		{Int(-4), "-4"},
		{Float(2.5), "2.5"},
		{Bool(false), "false"},
		{Time(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), "2024-03-01T00:00:00Z"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%#v.String() = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestFromNative(t *testing.T) {
	tests := []struct {
		in   any
		want Value
	}{
		{nil, Absent()},
		{"s", Text("s")},
		{[]byte("b"), Text("b")},
		{int32(7), Int(7)},
		{uint8(3), Int(3)},
		{uint64(math.MaxInt64), Int(math.MaxInt64)},
		{uint64(math.MaxUint64), Text("18446744073709551615")},
		{float32(0.5), Float(0.5)},
		{true, Bool(true)},
		{Int(9), Int(9)},
		{struct{ A int }{1}, Text("{1}")},
	}
	for _, tt := range tests {
		if got := FromNative(tt.in); !got.Same(tt.want) {
			t.Errorf("FromNative(%v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}

	for _, v := range []Value{Text("a"), Int(1), Float(1.5), Bool(true), Absent()} {
		if got := FromNative(v.Native()); !got.Same(v) {
			t.Errorf("FromNative(%#v.Native()) = %#v", v, got)
		}
	}
}

func TestParseProperty(t *testing.T) {
	tests := []struct {
		in   string
		want PropertyRef
	}{
		{"", PropertyRef{}},
		{"  status ", Field("status")},
		{"tickets.priority", Column("tickets", "priority")},
	}
	for _, tt := range tests {
		got := ParseProperty(tt.in)
		if got != tt.want {
			t.Errorf("ParseProperty(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if tt.in != "" && got.String() != strings.TrimSpace(tt.in) {
			t.Errorf("ParseProperty(%q).String() = %q", tt.in, got.String())
		}
	}
	if ParseProperty("").IsValid() {
		t.Error("empty property is valid")
	}
}

func TestPropertyRef_String(t *testing.T) {
	if got := RowOf("tickets", 2, TopLevel).String(); got != "tickets[2]" {
		t.Errorf("top level row = %q", got)
	}
	if got := RowOf("tickets", 0, "2/1").String(); got != "tickets[2/1/0]" {
		t.Errorf("child row = %q", got)
	}
	if got := Dataset("tickets").String(); got != "tickets" {
		t.Errorf("dataset = %q", got)
	}
	if got := (PropertyRef{}).String(); got != "<undefined>" {
		t.Errorf("undefined = %q", got)
	}
}

func TestParseOperator(t *testing.T) {
	for op := OpEqual; op <= OpEndsWith; op++ {
		if got, ok := ParseOperator(op.String()); !ok || got != op {
			t.Errorf("ParseOperator(%q) = %v, %v", op.String(), got, ok)
		}
		if got, ok := ParseOperator(op.Script()); !ok || got != op {
			t.Errorf("ParseOperator(%q) = %v, %v", op.Script(), got, ok)
		}
	}
	for _, s := range []string{"", "~", "like"} {
		if _, ok := ParseOperator(s); ok {
			t.Errorf("ParseOperator(%q) ok = true, want false", s)
		}
	}
}

func TestParseConversion(t *testing.T) {
	if got, ok := ParseConversion(""); !ok || got != ConversionDirect {
		t.Errorf("ParseConversion(\"\") = %v, %v", got, ok)
	}
	for c := ConversionDirect; c <= ConversionNameFromLookup; c++ {
		if got, ok := ParseConversion(c.String()); !ok || got != c {
			t.Errorf("ParseConversion(%q) = %v, %v", c.String(), got, ok)
		}
	}
	if _, ok := ParseConversion("undefined"); ok {
		t.Error("ParseConversion(undefined) ok = true")
	}
}

func TestParseDataType(t *testing.T) {
	if got, ok := ParseDataType(" INT "); !ok || got != TypeInteger {
		t.Errorf("ParseDataType(INT) = %v, %v", got, ok)
	}
	if _, ok := ParseDataType("decimal"); ok {
		t.Error("ParseDataType(decimal) ok = true")
	}
}

func TestIDSources(t *testing.T) {
	c := NewCounterSource("n")
	if a, b := c.NewID(), c.NewID(); a != "n1" || b != "n2" {
		t.Errorf("counter ids = %q, %q", a, b)
	}

	id := UUIDSource{}.NewID()
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("uuid.Parse(%q) error = %v", id, err)
	}
	if parsed.Version() != 7 {
		t.Errorf("uuid version = %d, want 7", parsed.Version())
	}
	if !ValidConditionID(id) {
		t.Errorf("ValidConditionID(%q) = false", id)
	}

	if ValidConditionID("") || ValidConditionID(strings.Repeat("x", MaxConditionIDLength+1)) {
		t.Error("ValidConditionID accepted an empty or oversized id")
	}
}
