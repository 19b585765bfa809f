package filter

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/solatis/filterkeeper/internal/rules"
	"github.com/solatis/filterkeeper/internal/types"
)

// errPending stops easy filter matching at the first pending cell.
var errPending = errors.New("cell pending")

// AcceptsRow reports whether a row is visible and whether it is excluded
// from the hierarchy. Data errors are logged and hide the row.
func (f *Engine) AcceptsRow(dataset string, row int, parent types.RowKey) (visible, exclude bool) {
	d, err := f.Accepts(dataset, row, parent)
	if err != nil {
		f.logger.Warn("row filter failed",
			slog.String("dataset", dataset),
			slog.Int("row", row),
			slog.String("parent", string(parent)),
			slog.Any("error", err))
		return false, false
	}
	return d.Visible, d.Exclude
}

// Accepts decides on a row:
//  1. rows of a blocked dataset are hidden
//  2. an installed external predicate decides alone
//  3. otherwise the default pipeline runs, see DefaultAccepts
func (f *Engine) Accepts(dataset string, row int, parent types.RowKey) (Decision, error) {
	if f.source.IsBlocked(dataset) {
		return Decision{}, nil
	}
	loc := types.RowOf(dataset, row, parent)
	if ext := f.External(); ext != nil {
		return ext.AcceptsRow(f, dataset, loc)
	}
	return f.acceptsDefault(dataset, loc)
}

// DefaultAccepts runs the default pipeline with external predicates
// disabled: every easy filter must match, then the default predicate, then
// the attached condition tree. A pending value hides the row and schedules a
// refilter.
func (f *Engine) DefaultAccepts(dataset string, row types.PropertyRef) (d Decision, err error) {
	f.withoutExternals(func() { d, err = f.acceptsDefault(dataset, row) })
	return d, err
}

func (f *Engine) acceptsDefault(dataset string, loc types.PropertyRef) (Decision, error) {
	st := f.datasets[dataset]

	if st != nil && len(st.filters) > 0 {
		var pending []types.Dependency
		ok, err := f.rules.MatchAll(st.filters, func(rule rules.CompiledFilter) (types.Value, error) {
			res := f.resolver.Cell(loc, rule.Column, rule.Role)
			if res.Err != nil {
				return types.Absent(), res.Err
			}
			if res.IsPending() {
				pending = res.Pending
				return types.Absent(), errPending
			}
			return res.Value, nil
		})
		switch {
		case errors.Is(err, errPending):
			f.RefilterWhenReady(dataset, pending)
			return Decision{}, nil
		case err != nil:
			return Decision{}, fmt.Errorf("easy filter on %v: %w", loc, err)
		case !ok:
			return Decision{}, nil
		}
	}

	d := Decision{Visible: true}
	if f.predicate != nil {
		var err error
		if d, err = f.predicate(dataset, loc); err != nil || !d.Visible {
			return d, err
		}
	}

	if st != nil && st.condition != nil && !st.condition.IsEmpty() {
		o := st.condition.Evaluate([]types.PropertyRef{loc}, f.resolver, f.rules)
		switch {
		case o.Err != nil:
			return Decision{Exclude: d.Exclude}, fmt.Errorf("condition on %v: %w", loc, o.Err)
		case len(o.Deps) > 0:
			f.RefilterWhenReady(dataset, o.Deps)
			return Decision{Exclude: d.Exclude}, nil
		}
		d.Visible = o.Value
	}
	return d, nil
}
