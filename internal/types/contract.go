package types

import "fmt"

// ContractViolation is the panic value raised when a caller breaks an API
// contract: evaluating an Undefined node, resolving a column without its row
// locator, retyping the tree root to a leaf, using a stale handle.
type ContractViolation struct {
	Msg string
}

func (c *ContractViolation) Error() string {
	return "contract violation: " + c.Msg
}

// Unwrap lets errors.Is(v, ErrContract) match recovered panic values.
func (c *ContractViolation) Unwrap() error {
	return ErrContract
}

// Violation panics with a *ContractViolation built from the format.
func Violation(format string, args ...any) {
	panic(&ContractViolation{Msg: fmt.Sprintf(format, args...)})
}

// Require panics with a *ContractViolation unless cond holds.
func Require(cond bool, format string, args ...any) {
	if !cond {
		Violation(format, args...)
	}
}
