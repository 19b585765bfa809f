package filter

import (
	"fmt"
	"sort"

	"github.com/solatis/filterkeeper/internal/types"
)

// Rows lists the visible rows of dataset under parent, as source row
// indexes in sorted order. A row hidden by the filter stays visible when
// one of its descendants is visible, unless it is excluded. The result is
// cached until the dataset is refiltered or resorted.
func (f *Engine) Rows(dataset string, parent types.RowKey) ([]int, error) {
	st := f.state(dataset)
	if rows, ok := st.proxy[parent]; ok {
		return append([]int(nil), rows...), nil
	}

	n, err := f.source.RowCount(dataset, parent)
	if err != nil {
		return nil, fmt.Errorf("rows of %s: %w", dataset, err)
	}
	var rows []int
	for i := 0; i < n; i++ {
		visible, err := f.visibleInHierarchy(dataset, i, parent)
		if err != nil {
			return nil, err
		}
		if visible {
			rows = append(rows, i)
		}
	}

	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		o, err := f.Compare(dataset, types.RowOf(dataset, rows[i], parent), types.RowOf(dataset, rows[j], parent))
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return o == types.Less
	})
	if sortErr != nil {
		return nil, sortErr
	}

	// the filter or sort may have triggered a refilter and dropped the cache
	st = f.state(dataset)
	if st.proxy == nil {
		st.proxy = make(map[types.RowKey][]int)
	}
	st.proxy[parent] = rows
	return append([]int(nil), rows...), nil
}

func (f *Engine) visibleInHierarchy(dataset string, row int, parent types.RowKey) (bool, error) {
	d, err := f.Accepts(dataset, row, parent)
	if err != nil {
		return false, err
	}
	if d.Visible {
		return true, nil
	}
	if d.Exclude {
		return false, nil
	}

	key := f.source.ChildKey(types.RowOf(dataset, row, parent))
	n, err := f.source.RowCount(dataset, key)
	if err != nil {
		return false, fmt.Errorf("rows of %s under %q: %w", dataset, key, err)
	}
	for i := 0; i < n; i++ {
		visible, err := f.visibleInHierarchy(dataset, i, key)
		if err != nil || visible {
			return visible, err
		}
	}
	return false, nil
}

// SourceRow maps a position in the visible rows of dataset under parent to
// the source row index.
func (f *Engine) SourceRow(dataset string, parent types.RowKey, proxyRow int) (int, error) {
	rows, err := f.Rows(dataset, parent)
	if err != nil {
		return 0, err
	}
	if proxyRow < 0 || proxyRow >= len(rows) {
		return 0, fmt.Errorf("proxy row %d of %s: %w", proxyRow, dataset, types.ErrRowOutOfRange)
	}
	return rows[proxyRow], nil
}

// ProxyRow maps a source row index to its position in the visible rows of
// dataset under parent. ok is false for hidden rows.
func (f *Engine) ProxyRow(dataset string, parent types.RowKey, sourceRow int) (pos int, ok bool, err error) {
	rows, err := f.Rows(dataset, parent)
	if err != nil {
		return 0, false, err
	}
	for i, r := range rows {
		if r == sourceRow {
			return i, true, nil
		}
	}
	return 0, false, nil
}
