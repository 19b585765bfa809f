package filter

import (
	"github.com/solatis/filterkeeper/internal/types"
)

// External replaces the default pipeline of the engine while installed. The
// most recently installed External is active. It can fall back on the
// default pipeline through Engine.DefaultAccepts and Engine.DefaultCompare.
type External interface {
	AcceptsRow(f *Engine, dataset string, row types.PropertyRef) (Decision, error)
	// Compare returns types.Equal to fall back on the default order.
	Compare(f *Engine, dataset string, left, right types.PropertyRef) (types.Ordering, error)
}

// InstallExternal makes ext the active external predicate and invalidates
// every dataset.
func (f *Engine) InstallExternal(ext External) {
	f.externals = append(f.externals, ext)
	f.invalidateAll()
}

// RemoveExternal uninstalls ext. The previously installed one, if any,
// becomes active again.
func (f *Engine) RemoveExternal(ext External) {
	for i := len(f.externals) - 1; i >= 0; i-- {
		if f.externals[i] == ext {
			f.externals = append(f.externals[:i:i], f.externals[i+1:]...)
			f.invalidateAll()
			return
		}
	}
}

// External returns the active external predicate.
func (f *Engine) External() External {
	if f.externalsOff > 0 || len(f.externals) == 0 {
		return nil
	}
	return f.externals[len(f.externals)-1]
}

// withoutExternals runs fn with the external predicates disabled.
func (f *Engine) withoutExternals(fn func()) {
	f.externalsOff++
	defer func() { f.externalsOff-- }()
	fn()
}
