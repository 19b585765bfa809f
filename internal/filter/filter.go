// Package filter decides which dataset rows are visible and in which order.
//
// An Engine combines, per dataset, easy filters (column/operator/values
// rules), an optional condition tree, an optional easy sort and the
// predicates installed by the owner. Values that are still loading never
// block: the row is hidden, or compared as absent, and the engine refilters
// or resorts the dataset once the lookup models it waited for are loaded.
// An Engine is not safe for concurrent use.
package filter

import (
	"log/slog"
	"sort"

	"github.com/solatis/filterkeeper/internal/conditions"
	"github.com/solatis/filterkeeper/internal/resolve"
	"github.com/solatis/filterkeeper/internal/rules"
	"github.com/solatis/filterkeeper/internal/signals"
	"github.com/solatis/filterkeeper/internal/types"
)

// Source is the data source of the engine.
type Source interface {
	resolve.Source
	// Datasets lists the dataset ids.
	Datasets() []string
	// RowCount returns the number of rows of dataset under parent.
	RowCount(dataset string, parent types.RowKey) (int, error)
	// ChildKey returns the parent key of the children of a row.
	ChildKey(row types.PropertyRef) types.RowKey
	// IsBlocked reports whether the dataset is on a load or consistency hold.
	IsBlocked(dataset string) bool
}

// Decision is the verdict on one row. Exclude removes the row from the
// hierarchy even when one of its descendants is visible.
type Decision struct {
	Visible bool
	Exclude bool
}

// Predicate decides on a row. It replaces the identity predicate of the
// default pipeline.
type Predicate func(dataset string, row types.PropertyRef) (Decision, error)

// Comparator orders two rows of a dataset. Equal defers to the next rule.
type Comparator func(dataset string, left, right types.PropertyRef) (types.Ordering, error)

type datasetState struct {
	filters       []rules.CompiledFilter
	sort          types.EasySort
	condition     *conditions.Tree
	detach        func()
	sortWaiting   map[types.DependencyID]bool
	filterWaiting map[types.DependencyID]bool
	proxy         map[types.RowKey][]int
}

// Engine filters and sorts dataset rows.
type Engine struct {
	source      Source
	resolver    *resolve.Resolver
	rules       *rules.Engine
	logger      *slog.Logger
	sortOptions types.CompareOptions

	datasets map[string]*datasetState
	watches  map[types.DependencyID]*watch

	externals    []External
	externalsOff int
	predicate    Predicate
	order        Comparator

	refiltered signals.Signal[string]
	resorted   signals.Signal[string]
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for data errors. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Engine) { f.logger = logger }
}

// WithSortOptions sets the comparison options used when sorting.
func WithSortOptions(options types.CompareOptions) Option {
	return func(f *Engine) { f.sortOptions = options }
}

// New creates an engine reading rows from source and decoding lookups
// through decoder.
func New(source Source, decoder resolve.Decoder, engine *rules.Engine, opts ...Option) *Engine {
	f := &Engine{
		source:   source,
		resolver: resolve.New(source, decoder, engine, resolve.Visible),
		rules:    engine,
		logger:   slog.Default(),
		datasets: make(map[string]*datasetState),
		watches:  make(map[types.DependencyID]*watch),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Resolver returns the visible-mode resolver used by the engine.
func (f *Engine) Resolver() *resolve.Resolver { return f.resolver }

// Refiltered notifies the id of every dataset whose visibility must be
// recomputed.
func (f *Engine) Refiltered() *signals.Signal[string] { return &f.refiltered }

// Resorted notifies the id of every dataset whose order must be recomputed.
func (f *Engine) Resorted() *signals.Signal[string] { return &f.resorted }

func (f *Engine) state(dataset string) *datasetState {
	st, ok := f.datasets[dataset]
	if !ok {
		st = &datasetState{
			sortWaiting:   make(map[types.DependencyID]bool),
			filterWaiting: make(map[types.DependencyID]bool),
		}
		f.datasets[dataset] = st
	}
	return st
}

// Refilter drops the cached visibility of dataset and notifies observers.
func (f *Engine) Refilter(dataset string) {
	f.state(dataset).proxy = nil
	f.refiltered.Notify(dataset)
}

// Resort drops the cached order of dataset and notifies observers.
func (f *Engine) Resort(dataset string) {
	f.state(dataset).proxy = nil
	f.resorted.Notify(dataset)
}

// PropertyUnblocked is called by the owner when a hold on dataset is
// released.
func (f *Engine) PropertyUnblocked(dataset string) {
	f.Refilter(dataset)
}

func (f *Engine) invalidateAll() {
	ids := f.source.Datasets()
	for id := range f.datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		f.Refilter(id)
		f.Resort(id)
	}
}

// SetDefaultPredicate overrides the identity predicate of the default
// pipeline. Nil restores the identity.
func (f *Engine) SetDefaultPredicate(p Predicate) {
	f.predicate = p
	f.invalidateAll()
}

// SetDefaultOrder installs a comparator consulted before the sort column.
// Nil removes it.
func (f *Engine) SetDefaultOrder(c Comparator) {
	f.order = c
	f.invalidateAll()
}

// SetCondition attaches a condition tree to dataset; nil detaches it. The
// dataset is refiltered now and whenever the tree changes.
func (f *Engine) SetCondition(dataset string, tree *conditions.Tree) {
	st := f.state(dataset)
	if st.detach != nil {
		st.detach()
		st.detach = nil
	}
	st.condition = tree
	if tree != nil {
		st.detach = tree.Events().Attach(func(conditions.Event) { f.Refilter(dataset) })
	}
	f.Refilter(dataset)
}

// Condition returns the tree attached to dataset.
func (f *Engine) Condition(dataset string) *conditions.Tree {
	if st, ok := f.datasets[dataset]; ok {
		return st.condition
	}
	return nil
}
