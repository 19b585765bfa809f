// internal/types/rules.go
package types

/*
 * Domain types for easy filtering and sorting.
 *
 * Provides EasyFilter and EasySort, the simplified column based rules that
 * internal/filter applies next to (or instead of) a full condition tree.
 *
 * Key types:
 *   - EasyFilter: column + operator + candidate values (match-any)
 *   - EasySort: column + order + role, at most one per dataset
 *   - Role: which representation of a cell is read
 *   - CompareOptions: case sensitivity of text comparisons
 */

// Role selects which representation of a cell a rule reads.
type Role uint8

const (
	// RoleDisplay is the value as rendered, lookup codes decoded.
	RoleDisplay Role = iota
	// RoleEdit is the stored value.
	RoleEdit
	// RoleCheck is the check state of boolean cells.
	RoleCheck
)

func (r Role) String() string {
	switch r {
	case RoleDisplay:
		return "display"
	case RoleEdit:
		return "edit"
	case RoleCheck:
		return "check"
	}
	return "unknown"
}

// Visible reports whether the role reads the rendered value.
func (r Role) Visible() bool {
	return r == RoleDisplay
}

// SortOrder is the direction of an easy sort.
type SortOrder uint8

const (
	Ascending SortOrder = iota
	Descending
)

func (o SortOrder) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// CompareOptions tunes text comparison.
type CompareOptions struct {
	CaseSensitive bool
}

// EasyFilter is a column/operator/values rule. The rule matches a row when
// the cell compares true against any one of Values.
type EasyFilter struct {
	Column   PropertyRef
	Values   []Value
	Operator CompareOperator
	Role     Role
	Options  CompareOptions
}

// EasySort orders the rows of a dataset by one column.
type EasySort struct {
	Column PropertyRef
	Order  SortOrder
	Role   Role
}

// IsSet reports whether the sort names a column.
func (s EasySort) IsSet() bool {
	return s.Column.IsValid()
}
