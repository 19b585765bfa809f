// internal/rules/coercion.go
package rules

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/solatis/filterkeeper/internal/types"
)

/*
 * Value conversion and coercion.
 *
 * Convert applies the text conversions of a condition (upper/lower case,
 * length) to a resolved value. All of them work on the trimmed text
 * rendering, so an absent value converts like the empty string.
 *
 * toNumber is the numeric coercion used by Compare: ints and floats as is,
 * bools as 0/1, text when it parses as a number after trimming. Absent and
 * times never coerce.
 */

// TrimmedText returns the text rendering of v without surrounding whitespace.
func TrimmedText(v types.Value) string {
	return strings.TrimSpace(v.String())
}

// IsBlank reports whether v renders as empty text once trimmed.
func IsBlank(v types.Value) bool {
	return TrimmedText(v) == ""
}

// Convert applies conv to v. NameFromLookup needs a lookup decoder and is
// handled by the resolver; passing it here is a contract violation, as is
// ConversionUndefined.
func (e *Engine) Convert(conv types.ConversionKind, v types.Value) types.Value {
	switch conv {
	case types.ConversionDirect:
		return v
	case types.ConversionUpperCase:
		return types.Text(e.upper.String(TrimmedText(v)))
	case types.ConversionLowerCase:
		return types.Text(e.lower.String(TrimmedText(v)))
	case types.ConversionLength:
		return types.Int(int64(utf8.RuneCountInString(TrimmedText(v))))
	}
	types.Violation("conversion %v cannot be applied without a resolver", conv)
	return types.Absent()
}

// toInteger returns the exact integer of int values and of text holding a
// base 10 integer.
func toInteger(v types.Value) (int64, bool) {
	if n, ok := v.AsInt(); ok {
		return n, true
	}
	if v.Kind() != types.KindText {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// toNumber coerces v to float64 for numeric comparison.
func toNumber(v types.Value) (float64, bool) {
	if f, ok := v.AsFloat(); ok {
		return f, true
	}
	if b, ok := v.AsBool(); ok {
		return float64(boolRank(b)), true
	}
	if v.Kind() != types.KindText {
		return 0, false
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
