package types

import "errors"

// Sentinel errors for filterkeeper operations.
var (
	// ErrContract marks programming-contract violations. They are raised with
	// panic(*ContractViolation) and are not meant to be recovered at runtime.
	ErrContract = errors.New("contract violation")

	// ErrInvalidCondition indicates a condition node fails its validity rules.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrCorruptStream indicates a condition stream could not be decoded.
	ErrCorruptStream = errors.New("corrupt condition stream")

	// ErrVersionMismatch indicates an unsupported stream version tag.
	// Always reported wrapped together with ErrCorruptStream.
	ErrVersionMismatch = errors.New("condition stream version mismatch")

	// ErrUnknownProperty indicates a property reference the data source does not know.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrValueUnavailable indicates the backing record or model failed to load a value.
	ErrValueUnavailable = errors.New("value unavailable")

	// ErrRowOutOfRange indicates a row index outside the dataset.
	ErrRowOutOfRange = errors.New("row out of range")

	// ErrUnknownLookup indicates a lookup definition naming a missing lookup model.
	ErrUnknownLookup = errors.New("unknown lookup")

	// ErrTooManyValues indicates an easy filter exceeds MaxEasyFilterValues.
	ErrTooManyValues = errors.New("easy filter has too many values")

	// ErrEmptyValues indicates an easy filter without candidate values.
	ErrEmptyValues = errors.New("easy filter has no values")

	// ErrInvalidOperator indicates an unknown or unusable operator.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrNotColumn indicates a rule that must target a dataset column got another property kind.
	ErrNotColumn = errors.New("property is not a dataset column")

	// ErrConditionNotFound indicates a stored condition name does not exist.
	ErrConditionNotFound = errors.New("condition not found")
)
