package dataset

import (
	"fmt"
	"sort"

	"github.com/solatis/filterkeeper/internal/types"
)

// LoadState is the loading state of a lookup model.
type LoadState uint8

const (
	Loaded LoadState = iota
	Loading
	TornDown
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case TornDown:
		return "torn down"
	}
	return "loaded"
}

type watcher struct {
	onDone   func()
	onCancel func()
}

// LookupModel is a reference dataset mapping codes to display values. It
// implements types.Dependency while loading.
type LookupModel struct {
	id       string
	state    LoadState
	entries  map[string]types.Value
	watchers map[uint64]watcher
	nextID   uint64
}

// NewLookupModel creates a loaded model with the given entries.
func NewLookupModel(id string, entries map[string]types.Value) *LookupModel {
	if entries == nil {
		entries = make(map[string]types.Value)
	}
	return &LookupModel{id: id, entries: entries, watchers: make(map[uint64]watcher)}
}

// ID implements types.Dependency.
func (m *LookupModel) ID() types.DependencyID { return types.DependencyID("lookup:" + m.id) }

// Name returns the model id.
func (m *LookupModel) Name() string { return m.id }

// State returns the load state.
func (m *LookupModel) State() LoadState { return m.state }

// BeginLoad marks the model as loading. Entries stay readable but decoding
// reports the model as a pending dependency until FinishLoad.
func (m *LookupModel) BeginLoad() {
	if m.state == TornDown {
		return
	}
	m.state = Loading
}

// FinishLoad installs entries (nil keeps the current ones), marks the model
// loaded and runs the onDone callback of every watcher.
func (m *LookupModel) FinishLoad(entries map[string]types.Value) {
	if m.state != Loading {
		return
	}
	if entries != nil {
		m.entries = entries
	}
	m.state = Loaded
	for _, w := range m.drain() {
		w.onDone()
	}
}

// TearDown discards the model. Watchers get onCancel.
func (m *LookupModel) TearDown() {
	if m.state == TornDown {
		return
	}
	m.state = TornDown
	m.entries = nil
	for _, w := range m.drain() {
		if w.onCancel != nil {
			w.onCancel()
		}
	}
}

// Watch implements types.Dependency. Watching a model that is not loading
// registers nothing.
func (m *LookupModel) Watch(onDone, onCancel func()) (stop func()) {
	if m.state != Loading {
		return func() {}
	}
	m.nextID++
	id := m.nextID
	m.watchers[id] = watcher{onDone: onDone, onCancel: onCancel}
	return func() { delete(m.watchers, id) }
}

// Watchers returns the number of registered watchers.
func (m *LookupModel) Watchers() int { return len(m.watchers) }

func (m *LookupModel) drain() []watcher {
	ids := make([]uint64, 0, len(m.watchers))
	for id := range m.watchers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]watcher, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.watchers[id])
	}
	m.watchers = make(map[uint64]watcher)
	return out
}

// Lookups is the registry of lookup models and the lookup decoder.
type Lookups struct {
	models map[string]*LookupModel
}

// NewLookups creates a registry.
func NewLookups(models ...*LookupModel) *Lookups {
	l := &Lookups{models: make(map[string]*LookupModel)}
	for _, m := range models {
		l.Add(m)
	}
	return l
}

// Add registers a model, replacing one with the same id.
func (l *Lookups) Add(m *LookupModel) {
	l.models[m.id] = m
}

// Model returns a registered model.
func (l *Lookups) Model(id string) (*LookupModel, bool) {
	m, ok := l.models[id]
	return m, ok
}

// Decode implements resolve.Decoder. Unknown codes decode to absent.
func (l *Lookups) Decode(lookup *types.Lookup, code types.Value) (types.Value, types.Dependency, error) {
	if lookup == nil {
		return types.Absent(), nil, fmt.Errorf("decode %q: %w", code.String(), types.ErrUnknownLookup)
	}
	if lookup.IsList() {
		return lookup.List[code.String()], nil, nil
	}
	m, ok := l.models[lookup.Model]
	if !ok {
		return types.Absent(), nil, fmt.Errorf("lookup model %s: %w", lookup.Model, types.ErrUnknownLookup)
	}
	switch m.state {
	case Loading:
		return types.Absent(), m, nil
	case TornDown:
		return types.Absent(), nil, fmt.Errorf("lookup model %s torn down: %w", m.id, types.ErrValueUnavailable)
	}
	return m.entries[code.String()], nil, nil
}
