package types

// DependencyID identifies a dependency for deduplication.
type DependencyID string

// Dependency is a handle on something still loading, typically a lookup
// model, that must finish before a value can be resolved.
type Dependency interface {
	ID() DependencyID
	// Watch registers callbacks for the end of loading. Exactly one of them
	// runs, at most once: onDone when loading finishes, onCancel when the
	// dependency is torn down first. stop unregisters both.
	Watch(onDone, onCancel func()) (stop func())
}

// Resolution is the outcome of resolving a single value: a value, a set of
// pending dependencies, or an error.
type Resolution struct {
	Value   Value
	Pending []Dependency
	Err     error
}

// Resolved wraps a ready value.
func Resolved(v Value) Resolution { return Resolution{Value: v} }

// PendingOn wraps a not-ready result.
func PendingOn(deps ...Dependency) Resolution { return Resolution{Pending: deps} }

// FailedWith wraps an error.
func FailedWith(err error) Resolution { return Resolution{Err: err} }

// IsPending reports whether the value waits for dependencies.
func (r Resolution) IsPending() bool { return len(r.Pending) > 0 }

// MergeDependencies appends deps to into, skipping ids already present.
func MergeDependencies(into []Dependency, deps ...Dependency) []Dependency {
	for _, d := range deps {
		dup := false
		for _, have := range into {
			if have.ID() == d.ID() {
				dup = true
				break
			}
		}
		if !dup {
			into = append(into, d)
		}
	}
	return into
}
