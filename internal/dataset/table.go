package dataset

import (
	"fmt"
	"strconv"

	"github.com/solatis/filterkeeper/internal/types"
)

// ColumnDef declares one column of a table.
type ColumnDef struct {
	ID     string
	Type   types.DataType
	Lookup *types.Lookup
}

// Table is an in-memory, optionally hierarchical dataset. Rows are grouped
// by parent key; ChildKey derives the key under which a row's children live.
type Table struct {
	id         string
	columns    []ColumnDef
	index      map[string]int
	sortColumn string
	rows       map[types.RowKey][][]types.Value
}

// NewTable creates an empty table. The first column is the default sort column.
func NewTable(id string, columns ...ColumnDef) *Table {
	t := &Table{
		id:      id,
		columns: columns,
		index:   make(map[string]int, len(columns)),
		rows:    make(map[types.RowKey][][]types.Value),
	}
	for i, c := range columns {
		t.index[c.ID] = i
	}
	if len(columns) > 0 {
		t.sortColumn = columns[0].ID
	}
	return t
}

// ID returns the dataset id.
func (t *Table) ID() string { return t.id }

// Columns returns the column definitions.
func (t *Table) Columns() []ColumnDef { return t.columns }

// Column returns the definition of a column.
func (t *Table) Column(id string) (ColumnDef, bool) {
	i, ok := t.index[id]
	if !ok {
		return ColumnDef{}, false
	}
	return t.columns[i], true
}

// SetSortColumn changes the default ordering column.
func (t *Table) SetSortColumn(id string) error {
	if _, ok := t.index[id]; !ok {
		return fmt.Errorf("column %s.%s: %w", t.id, id, types.ErrUnknownProperty)
	}
	t.sortColumn = id
	return nil
}

// Append adds a row under parent and returns its locator. Missing trailing
// values are absent; extra values are an error.
func (t *Table) Append(parent types.RowKey, values ...types.Value) (types.PropertyRef, error) {
	if len(values) > len(t.columns) {
		return types.PropertyRef{}, fmt.Errorf("table %s: %d values for %d columns", t.id, len(values), len(t.columns))
	}
	row := make([]types.Value, len(t.columns))
	copy(row, values)
	t.rows[parent] = append(t.rows[parent], row)
	return types.RowOf(t.id, len(t.rows[parent])-1, parent), nil
}

// Set overwrites one cell.
func (t *Table) Set(row types.PropertyRef, column string, v types.Value) error {
	cells, err := t.row(row)
	if err != nil {
		return err
	}
	i, ok := t.index[column]
	if !ok {
		return fmt.Errorf("column %s.%s: %w", t.id, column, types.ErrUnknownProperty)
	}
	cells[i] = v
	return nil
}

// Get returns one stored cell.
func (t *Table) Get(row types.PropertyRef, column string) (types.Value, error) {
	cells, err := t.row(row)
	if err != nil {
		return types.Absent(), err
	}
	i, ok := t.index[column]
	if !ok {
		return types.Absent(), fmt.Errorf("column %s.%s: %w", t.id, column, types.ErrUnknownProperty)
	}
	return cells[i], nil
}

// RowCount returns the number of rows under parent.
func (t *Table) RowCount(parent types.RowKey) int {
	return len(t.rows[parent])
}

func (t *Table) row(loc types.PropertyRef) ([]types.Value, error) {
	rows := t.rows[loc.Parent]
	if loc.Row < 0 || loc.Row >= len(rows) {
		return nil, fmt.Errorf("%v: %w", loc, types.ErrRowOutOfRange)
	}
	return rows[loc.Row], nil
}

// ChildKey returns the parent key for children of the given row.
func ChildKey(row types.PropertyRef) types.RowKey {
	if row.Parent == types.TopLevel {
		return types.RowKey(strconv.Itoa(row.Row))
	}
	return row.Parent + "/" + types.RowKey(strconv.Itoa(row.Row))
}
