package filter

import (
	"sort"

	"github.com/solatis/filterkeeper/internal/types"
)

/*
 * Deferred refilter and resort.
 *
 * When a row cannot be decided or ordered because a lookup model is still
 * loading, the dependency is recorded in the waiting set of the dataset
 * (one set for filtering, one for sorting). Each dependency is watched once
 * for all datasets. When it finishes it leaves every waiting set; a dataset
 * whose set becomes empty is refiltered or resorted, once. A dependency torn
 * down before finishing leaves the sets without triggering anything.
 */

type watch struct {
	stop   func()
	sort   map[string]bool
	filter map[string]bool
}

// RefilterWhenReady registers deps so that dataset is refiltered once they
// have finished loading. External predicates that hide a row for a pending
// value call it.
func (f *Engine) RefilterWhenReady(dataset string, deps []types.Dependency) {
	f.waitFor(dataset, deps, false)
}

// ResortWhenReady registers deps so that dataset is resorted once they have
// finished loading.
func (f *Engine) ResortWhenReady(dataset string, deps []types.Dependency) {
	f.waitFor(dataset, deps, true)
}

func (f *Engine) waitFor(dataset string, deps []types.Dependency, resort bool) {
	st := f.state(dataset)
	for _, dep := range deps {
		id := dep.ID()
		w, ok := f.watches[id]
		if !ok {
			w = &watch{sort: make(map[string]bool), filter: make(map[string]bool)}
			f.watches[id] = w
			w.stop = dep.Watch(func() { f.dependencyDone(id) }, func() { f.dependencyCanceled(id) })
		}
		if resort {
			w.sort[dataset] = true
			st.sortWaiting[id] = true
		} else {
			w.filter[dataset] = true
			st.filterWaiting[id] = true
		}
	}
}

// Waiting reports the number of dependencies dataset waits for before a
// refilter and before a resort.
func (f *Engine) Waiting(dataset string) (refilter, resort int) {
	st, ok := f.datasets[dataset]
	if !ok {
		return 0, 0
	}
	return len(st.filterWaiting), len(st.sortWaiting)
}

func (f *Engine) dependencyDone(id types.DependencyID) {
	w, ok := f.watches[id]
	if !ok {
		return
	}
	delete(f.watches, id)

	for _, ds := range sortedKeys(w.filter) {
		st := f.state(ds)
		delete(st.filterWaiting, id)
		if len(st.filterWaiting) == 0 {
			f.Refilter(ds)
		}
	}
	for _, ds := range sortedKeys(w.sort) {
		st := f.state(ds)
		delete(st.sortWaiting, id)
		if len(st.sortWaiting) == 0 {
			f.Resort(ds)
		}
	}
}

func (f *Engine) dependencyCanceled(id types.DependencyID) {
	w, ok := f.watches[id]
	if !ok {
		return
	}
	delete(f.watches, id)
	for ds := range w.filter {
		delete(f.state(ds).filterWaiting, id)
	}
	for ds := range w.sort {
		delete(f.state(ds).sortWaiting, id)
	}
}

// Close stops watching every pending dependency.
func (f *Engine) Close() {
	for id, w := range f.watches {
		if w.stop != nil {
			w.stop()
		}
		delete(f.watches, id)
	}
	for _, st := range f.datasets {
		st.filterWaiting = make(map[types.DependencyID]bool)
		st.sortWaiting = make(map[types.DependencyID]bool)
		if st.detach != nil {
			st.detach()
			st.detach = nil
		}
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
