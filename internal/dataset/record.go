// Package dataset provides an in-memory record with fields and tabular
// datasets, lookup models with asynchronous load states, and the lookup
// decoder working on them. It is the data source used by the CLI, the
// server and the tests of the filter engine.
package dataset

import (
	"fmt"
	"sort"

	"github.com/solatis/filterkeeper/internal/types"
)

type field struct {
	typ    types.DataType
	lookup *types.Lookup
	value  types.Value
	err    error
}

// Record holds fields and datasets. Not safe for concurrent use.
type Record struct {
	fields   map[string]*field
	tables   map[string]*Table
	order    []string
	blocked  map[string]bool
	failures map[types.PropertyRef]error
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{
		fields:   make(map[string]*field),
		tables:   make(map[string]*Table),
		blocked:  make(map[string]bool),
		failures: make(map[types.PropertyRef]error),
	}
}

// DefineField declares a field. Redefining keeps the current value.
func (r *Record) DefineField(id string, typ types.DataType, lookup *types.Lookup) {
	if f, ok := r.fields[id]; ok {
		f.typ, f.lookup = typ, lookup
		return
	}
	r.fields[id] = &field{typ: typ, lookup: lookup}
}

// SetField stores a field value.
func (r *Record) SetField(id string, v types.Value) error {
	f, ok := r.fields[id]
	if !ok {
		return fmt.Errorf("field %s: %w", id, types.ErrUnknownProperty)
	}
	f.value = v
	return nil
}

// Fail makes reads of a field or column return err, simulating a backing
// model that failed to load. A nil err clears the failure.
func (r *Record) Fail(ref types.PropertyRef, err error) {
	if err == nil {
		delete(r.failures, ref)
		return
	}
	r.failures[ref] = err
}

// AddTable registers a dataset.
func (r *Record) AddTable(t *Table) {
	if _, ok := r.tables[t.ID()]; !ok {
		r.order = append(r.order, t.ID())
	}
	r.tables[t.ID()] = t
}

// Table returns a registered dataset.
func (r *Record) Table(id string) (*Table, bool) {
	t, ok := r.tables[id]
	return t, ok
}

// Datasets lists dataset ids in registration order.
func (r *Record) Datasets() []string {
	return append([]string(nil), r.order...)
}

// Fields lists field ids in sorted order.
func (r *Record) Fields() []string {
	ids := make([]string, 0, len(r.fields))
	for id := range r.fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Block puts a load/consistency hold on a dataset.
func (r *Record) Block(dataset string) { r.blocked[dataset] = true }

// Unblock releases the hold.
func (r *Record) Unblock(dataset string) { delete(r.blocked, dataset) }

// IsBlocked reports whether the dataset is on hold.
func (r *Record) IsBlocked(dataset string) bool { return r.blocked[dataset] }

// Describe implements resolve.Source.
func (r *Record) Describe(ref types.PropertyRef) (types.PropertyInfo, error) {
	switch ref.Kind {
	case types.PropertyField:
		f, ok := r.fields[ref.ID]
		if !ok {
			break
		}
		return types.PropertyInfo{Ref: ref, DataType: f.typ, Lookup: f.lookup}, nil
	case types.PropertyColumn:
		t, ok := r.tables[ref.Dataset]
		if !ok {
			break
		}
		c, ok := t.Column(ref.ID)
		if !ok {
			break
		}
		return types.PropertyInfo{Ref: ref, DataType: c.Type, Lookup: c.Lookup}, nil
	case types.PropertyDataset:
		t, ok := r.tables[ref.Dataset]
		if !ok {
			break
		}
		info := types.PropertyInfo{Ref: ref}
		for _, c := range t.columns {
			info.Columns = append(info.Columns, types.Column(t.id, c.ID))
		}
		if t.sortColumn != "" {
			info.SortColumn = types.Column(t.id, t.sortColumn)
		}
		return info, nil
	}
	return types.PropertyInfo{}, fmt.Errorf("%v: %w", ref, types.ErrUnknownProperty)
}

// Field implements resolve.Source.
func (r *Record) Field(ref types.PropertyRef) (types.Value, error) {
	if err := r.failures[ref]; err != nil {
		return types.Absent(), err
	}
	f, ok := r.fields[ref.ID]
	if !ok || ref.Kind != types.PropertyField {
		return types.Absent(), fmt.Errorf("%v: %w", ref, types.ErrUnknownProperty)
	}
	return f.value, nil
}

// Cell implements resolve.Source. Display and edit roles return the stored
// value; the check role returns the check state of the cell.
func (r *Record) Cell(row, column types.PropertyRef, role types.Role) (types.Value, error) {
	if err := r.failures[column]; err != nil {
		return types.Absent(), err
	}
	t, ok := r.tables[column.Dataset]
	if !ok {
		return types.Absent(), fmt.Errorf("%v: %w", column.DatasetRef(), types.ErrUnknownProperty)
	}
	v, err := t.Get(row, column.ID)
	if err != nil {
		return types.Absent(), err
	}
	if role == types.RoleCheck {
		return checkState(v), nil
	}
	return v, nil
}

// RowCount returns the number of rows of a dataset under parent.
func (r *Record) RowCount(dataset string, parent types.RowKey) (int, error) {
	t, ok := r.tables[dataset]
	if !ok {
		return 0, fmt.Errorf("dataset %s: %w", dataset, types.ErrUnknownProperty)
	}
	return t.RowCount(parent), nil
}

// ChildKey returns the parent key of the children of row.
func (r *Record) ChildKey(row types.PropertyRef) types.RowKey {
	return ChildKey(row)
}

func checkState(v types.Value) types.Value {
	if b, ok := v.AsBool(); ok {
		return types.Bool(b)
	}
	if f, ok := v.AsFloat(); ok {
		return types.Bool(f != 0)
	}
	return types.Bool(!v.IsAbsent() && v.String() != "")
}
