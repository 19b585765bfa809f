package filter

import (
	"fmt"

	"github.com/solatis/filterkeeper/internal/rules"
	"github.com/solatis/filterkeeper/internal/types"
)

// SetEasyFilter replaces the easy filters of every dataset mentioned in
// filters with the given rules and refilters those datasets. Nothing
// changes when one rule does not compile.
func (f *Engine) SetEasyFilter(filters ...types.EasyFilter) error {
	compiled := make([]rules.CompiledFilter, 0, len(filters))
	for _, ef := range filters {
		c, err := rules.CompileEasyFilter(ef)
		if err != nil {
			return fmt.Errorf("easy filter on %v: %w", ef.Column, err)
		}
		compiled = append(compiled, c)
	}

	var touched []string
	cleared := make(map[string]bool)
	for _, c := range compiled {
		ds := c.Dataset()
		st := f.state(ds)
		if !cleared[ds] {
			cleared[ds] = true
			touched = append(touched, ds)
			st.filters = nil
		}
		st.filters = append(st.filters, c)
	}
	for _, ds := range touched {
		f.Refilter(ds)
	}
	return nil
}

// SetEasyFilterValues replaces the rule on one column, keeping the rules on
// the other columns of the dataset. No values removes the rule.
func (f *Engine) SetEasyFilterValues(column types.PropertyRef, op types.CompareOperator, role types.Role, values ...types.Value) error {
	var compiled []rules.CompiledFilter
	if len(values) > 0 {
		c, err := rules.CompileEasyFilter(types.EasyFilter{Column: column, Values: values, Operator: op, Role: role})
		if err != nil {
			return err
		}
		compiled = append(compiled, c)
	} else if column.Kind != types.PropertyColumn || !column.IsValid() {
		return fmt.Errorf("easy filter on %v: %w", column, types.ErrNotColumn)
	}

	st := f.state(column.Dataset)
	kept := st.filters[:0:0]
	for _, c := range st.filters {
		if c.Column != column {
			kept = append(kept, c)
		}
	}
	st.filters = append(kept, compiled...)
	f.Refilter(column.Dataset)
	return nil
}

// RemoveEasyFilter drops every easy filter of dataset.
func (f *Engine) RemoveEasyFilter(dataset string) {
	st, ok := f.datasets[dataset]
	if !ok || len(st.filters) == 0 {
		return
	}
	st.filters = nil
	f.Refilter(dataset)
}

// EasyFilters returns the easy filters of dataset.
func (f *Engine) EasyFilters(dataset string) []types.EasyFilter {
	st, ok := f.datasets[dataset]
	if !ok {
		return nil
	}
	out := make([]types.EasyFilter, 0, len(st.filters))
	for _, c := range st.filters {
		out = append(out, c.Source())
	}
	return out
}

// SetEasySort sorts the dataset of column by it. Setting the current sort
// again does nothing.
func (f *Engine) SetEasySort(column types.PropertyRef, order types.SortOrder, role types.Role) error {
	if column.Kind != types.PropertyColumn || !column.IsValid() {
		return fmt.Errorf("easy sort on %v: %w", column, types.ErrNotColumn)
	}
	st := f.state(column.Dataset)
	next := types.EasySort{Column: column, Order: order, Role: role}
	if st.sort == next {
		return nil
	}
	st.sort = next
	f.Resort(column.Dataset)
	return nil
}

// ClearEasySort removes the easy sort of dataset.
func (f *Engine) ClearEasySort(dataset string) {
	st, ok := f.datasets[dataset]
	if !ok || !st.sort.IsSet() {
		return
	}
	st.sort = types.EasySort{}
	f.Resort(dataset)
}

// EasySort returns the easy sort of dataset.
func (f *Engine) EasySort(dataset string) (types.EasySort, bool) {
	st, ok := f.datasets[dataset]
	if !ok || !st.sort.IsSet() {
		return types.EasySort{}, false
	}
	return st.sort, true
}
