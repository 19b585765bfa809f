package filter

import (
	"fmt"
	"log/slog"

	"github.com/solatis/filterkeeper/internal/types"
)

// Less reports whether left sorts before right. Data errors are logged and
// leave the rows unordered.
func (f *Engine) Less(dataset string, left, right types.PropertyRef) bool {
	o, err := f.Compare(dataset, left, right)
	if err != nil {
		f.logger.Warn("row comparison failed",
			slog.String("dataset", dataset),
			slog.String("left", left.String()),
			slog.String("right", right.String()),
			slog.Any("error", err))
		return false
	}
	return o == types.Less
}

// Compare orders two rows of dataset:
//  1. rows of a blocked dataset are equal
//  2. a non-Equal answer of the installed external predicate wins
//  3. otherwise the default order decides, see DefaultCompare
func (f *Engine) Compare(dataset string, left, right types.PropertyRef) (types.Ordering, error) {
	if f.source.IsBlocked(dataset) {
		return types.Equal, nil
	}
	if ext := f.External(); ext != nil {
		o, err := ext.Compare(f, dataset, left, right)
		if err != nil || o != types.Equal {
			return o, err
		}
	}
	return f.compareDefault(dataset, left, right)
}

// DefaultCompare runs the default order with external predicates disabled:
// the default comparator, then the easy sort, or the default sort column of
// the dataset in ascending order when there is no easy sort or an external
// predicate is installed.
// A pending value compares as absent and schedules a resort.
func (f *Engine) DefaultCompare(dataset string, left, right types.PropertyRef) (o types.Ordering, err error) {
	installed := len(f.externals) > 0
	f.withoutExternals(func() { o, err = f.compareBy(dataset, left, right, installed) })
	return o, err
}

func (f *Engine) compareDefault(dataset string, left, right types.PropertyRef) (types.Ordering, error) {
	return f.compareBy(dataset, left, right, len(f.externals) > 0)
}

func (f *Engine) compareBy(dataset string, left, right types.PropertyRef, external bool) (types.Ordering, error) {
	if f.order != nil {
		o, err := f.order(dataset, left, right)
		if err != nil || o != types.Equal {
			return o, err
		}
	}

	key, err := f.sortKey(dataset, external)
	if err != nil || !key.IsSet() {
		return types.Equal, err
	}

	info, err := f.resolver.Describe(key.Column)
	if err != nil {
		return types.Equal, err
	}

	l := f.sortValue(left, key)
	r := f.sortValue(right, key)
	if l.Err != nil {
		return types.Equal, fmt.Errorf("sort %v: %w", left, l.Err)
	}
	if r.Err != nil {
		return types.Equal, fmt.Errorf("sort %v: %w", right, r.Err)
	}
	lv, rv := l.Value, r.Value
	if l.IsPending() || r.IsPending() {
		f.ResortWhenReady(dataset, types.MergeDependencies(nil, append(l.Pending, r.Pending...)...))
		lv, rv = types.Absent(), types.Absent()
	}
	if info.DataType == types.TypeBool {
		if lv.IsAbsent() {
			lv = types.Bool(false)
		}
		if rv.IsAbsent() {
			rv = types.Bool(false)
		}
	}

	o := f.rules.Order(lv, rv, f.sortOptions)
	if key.Order == types.Descending {
		o = -o
	}
	return o, nil
}

// sortKey returns the easy sort of dataset. Without one, or while an
// external predicate is installed, it is the default sort column of the
// dataset in ascending order.
func (f *Engine) sortKey(dataset string, external bool) (types.EasySort, error) {
	if !external {
		if st, ok := f.datasets[dataset]; ok && st.sort.IsSet() {
			return st.sort, nil
		}
	}
	info, err := f.resolver.Describe(types.Dataset(dataset))
	if err != nil {
		return types.EasySort{}, err
	}
	return types.EasySort{Column: info.SortColumn, Order: types.Ascending, Role: types.RoleDisplay}, nil
}

// sortValue reads the cell a sort key looks at. Display and edit roles read
// the visible value.
func (f *Engine) sortValue(row types.PropertyRef, key types.EasySort) types.Resolution {
	if key.Role == types.RoleCheck {
		return f.resolver.Cell(row, key.Column, types.RoleCheck)
	}
	return f.resolver.Resolve(key.Column, types.ConversionDirect, []types.PropertyRef{row})
}
