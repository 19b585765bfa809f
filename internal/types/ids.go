package types

import (
	"strconv"

	"github.com/google/uuid"
)

// IDSource produces condition ids. A tree asks its source for a new id on
// every node creation and never reuses an id after deletion.
type IDSource interface {
	NewID() string
}

// UUIDSource generates UUIDv7 ids. It is the default id source.
type UUIDSource struct{}

// NewID generates a UUIDv7 identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func (UUIDSource) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CounterSource generates deterministic ids "<prefix>1", "<prefix>2", ...
// Intended for tests and reproducible fixtures. Not safe for concurrent use.
type CounterSource struct {
	Prefix string
	next   uint64
}

// NewCounterSource creates a counter id source with the given prefix.
func NewCounterSource(prefix string) *CounterSource {
	return &CounterSource{Prefix: prefix}
}

// NewID returns the next id of the sequence.
func (c *CounterSource) NewID() string {
	c.next++
	return c.Prefix + strconv.FormatUint(c.next, 10)
}

// ValidConditionID reports whether s can serve as a condition id: non-empty
// and within MaxConditionIDLength. Ids coming from a UUIDSource are also
// valid UUIDs, but decoded streams may carry ids from any source.
func ValidConditionID(s string) bool {
	return s != "" && len(s) <= MaxConditionIDLength
}

