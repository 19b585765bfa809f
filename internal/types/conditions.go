// internal/types/conditions.go
package types

import (
	"strconv"
	"strings"
)

/*
 * Enumerations of the condition tree.
 *
 * ConditionKind selects which node fields are legal, ConversionKind is the
 * value transform applied after resolution, CompareOperator the relational
 * operator of Compare nodes and easy filters.
 *
 * Numeric values of the enums are part of the binary stream format and must
 * never be renumbered.
 */

// ConditionKind is the kind of a condition node.
type ConditionKind uint8

const (
	ConditionUndefined ConditionKind = iota
	ConditionAnd
	ConditionOr
	ConditionRequired
	ConditionCompare
)

var conditionKindNames = [...]string{
	ConditionUndefined: "undefined",
	ConditionAnd:       "and",
	ConditionOr:        "or",
	ConditionRequired:  "required",
	ConditionCompare:   "compare",
}

func (k ConditionKind) String() string {
	if int(k) < len(conditionKindNames) {
		return conditionKindNames[k]
	}
	return "ConditionKind(" + strconv.Itoa(int(k)) + ")"
}

// IsLogical reports whether the kind combines children.
func (k ConditionKind) IsLogical() bool {
	return k == ConditionAnd || k == ConditionOr
}

// Known reports whether k is one of the declared kinds.
func (k ConditionKind) Known() bool {
	return k <= ConditionCompare
}

// ConversionKind is the transform applied to a resolved value.
type ConversionKind uint8

const (
	ConversionUndefined ConversionKind = iota
	ConversionDirect
	ConversionUpperCase
	ConversionLowerCase
	ConversionLength
	ConversionNameFromLookup
)

var conversionNames = [...]string{
	ConversionUndefined:      "undefined",
	ConversionDirect:         "direct",
	ConversionUpperCase:      "upper",
	ConversionLowerCase:      "lower",
	ConversionLength:         "length",
	ConversionNameFromLookup: "lookup-name",
}

func (c ConversionKind) String() string {
	if int(c) < len(conversionNames) {
		return conversionNames[c]
	}
	return "ConversionKind(" + strconv.Itoa(int(c)) + ")"
}

// Known reports whether c is one of the declared conversions.
func (c ConversionKind) Known() bool {
	return c <= ConversionNameFromLookup
}

// ParseConversion accepts the names produced by String. Empty input is Direct.
func ParseConversion(s string) (ConversionKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ConversionDirect, true
	}
	for i, name := range conversionNames {
		if name == s && i != int(ConversionUndefined) {
			return ConversionKind(i), true
		}
	}
	return ConversionUndefined, false
}

// CompareOperator is a relational operator.
type CompareOperator uint8

const (
	OpUndefined CompareOperator = iota
	OpEqual
	OpNotEqual
	OpMore
	OpMoreOrEqual
	OpLess
	OpLessOrEqual
	OpContains
	OpStartsWith
	OpEndsWith
)

var operatorText = [...]string{
	OpUndefined:   "",
	OpEqual:       "=",
	OpNotEqual:    "<>",
	OpMore:        ">",
	OpMoreOrEqual: ">=",
	OpLess:        "<",
	OpLessOrEqual: "<=",
	OpContains:    "contains",
	OpStartsWith:  "starts with",
	OpEndsWith:    "ends with",
}

var operatorScript = [...]string{
	OpUndefined:   "",
	OpEqual:       "==",
	OpNotEqual:    "!=",
	OpMore:        ">",
	OpMoreOrEqual: ">=",
	OpLess:        "<",
	OpLessOrEqual: "<=",
	OpContains:    "contains",
	OpStartsWith:  "startsWith",
	OpEndsWith:    "endsWith",
}

// String renders the operator as shown to users ("=", "<>", ...).
func (op CompareOperator) String() string {
	if int(op) < len(operatorText) {
		return operatorText[op]
	}
	return "CompareOperator(" + strconv.Itoa(int(op)) + ")"
}

// Script renders the operator in expression syntax ("==", "!=", ...).
func (op CompareOperator) Script() string {
	if int(op) < len(operatorScript) {
		return operatorScript[op]
	}
	return ""
}

// Known reports whether op is one of the declared operators.
func (op CompareOperator) Known() bool {
	return op <= OpEndsWith
}

// IsPattern reports whether op is a string-pattern operator.
func (op CompareOperator) IsPattern() bool {
	return op == OpContains || op == OpStartsWith || op == OpEndsWith
}

// IsEquality reports whether op is Equal or NotEqual.
func (op CompareOperator) IsEquality() bool {
	return op == OpEqual || op == OpNotEqual
}

// ParseOperator accepts both the user and the script rendering.
func ParseOperator(s string) (CompareOperator, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OpUndefined, false
	}
	for i := range operatorText {
		if i == int(OpUndefined) {
			continue
		}
		if operatorText[i] == s || operatorScript[i] == s {
			return CompareOperator(i), true
		}
	}
	return OpUndefined, false
}
