// Package types provides domain models shared across filterkeeper components.
//
// Everything that crosses a package boundary lives here: property references,
// the Value sum type, condition/operator enums, easy filter and sort rules,
// dependency handles, sentinel errors and id sources. The package imports
// only uuid (ids.go) so that every other package can depend on it freely.
package types

// RowKey addresses the parent of a row inside a hierarchical dataset.
// The empty key is the top level. Keys are opaque to the core; data sources
// choose their own encoding.
type RowKey string

// TopLevel is the RowKey of rows without a parent.
const TopLevel RowKey = ""

// Ordering is the result of a three-way row comparison.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// String returns a short name for the ordering.
func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "equal"
	}
}

// Resource limits enforced by the codec and the easy filter compiler.
const (
	// MaxConditionDepth bounds recursion while decoding trees.
	// 64 levels is far beyond anything built interactively.
	MaxConditionDepth = 64

	// MaxConditionChildren bounds the child count read from a stream so a
	// corrupt length cannot trigger a huge allocation.
	MaxConditionChildren = 4096

	// MaxConditionIDLength bounds ids read from a stream.
	MaxConditionIDLength = 256

	// MaxEasyFilterValues limits the candidate list of one easy filter rule.
	// Matching is linear in the candidate count for every row.
	MaxEasyFilterValues = 256

	// MaxTextLength bounds text values read from a stream.
	MaxTextLength = 1 << 20
)
