// Package workspace loads YAML workspaces: a record with fields and
// datasets, lookup models, easy filters and sorts, condition trees per
// dataset and an optional filter expression. The CLI uses it to run the
// filter engine against fixture data.
package workspace

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/solatis/filterkeeper/internal/conditions"
	"github.com/solatis/filterkeeper/internal/dataset"
	"github.com/solatis/filterkeeper/internal/filter"
	"github.com/solatis/filterkeeper/internal/types"
)

// Document is the YAML layout of a workspace.
type Document struct {
	Fields     []FieldDoc           `yaml:"fields"`
	Lookups    []LookupDoc          `yaml:"lookups"`
	Datasets   []DatasetDoc         `yaml:"datasets"`
	Filters    []FilterDoc          `yaml:"filters"`
	Sort       []SortDoc            `yaml:"sort"`
	Conditions map[string]Condition `yaml:"conditions"`
	Expression *ExpressionDoc       `yaml:"expression"`
}

// LookupRef declares the lookup of a field or column: a static list or the
// id of a lookup model.
type LookupRef struct {
	Model string         `yaml:"model"`
	List  map[string]any `yaml:"list"`
}

// FieldDoc declares a record field.
type FieldDoc struct {
	ID     string     `yaml:"id"`
	Type   string     `yaml:"type"`
	Lookup *LookupRef `yaml:"lookup"`
	Value  any        `yaml:"value"`
}

// LookupDoc declares a lookup model. A loading model decodes nothing until
// it is finished.
type LookupDoc struct {
	ID      string         `yaml:"id"`
	Entries map[string]any `yaml:"entries"`
	Loading bool           `yaml:"loading"`
}

// ColumnDoc declares a dataset column.
type ColumnDoc struct {
	ID     string     `yaml:"id"`
	Type   string     `yaml:"type"`
	Lookup *LookupRef `yaml:"lookup"`
}

// RowDoc is one row and its child rows.
type RowDoc struct {
	Values   []any    `yaml:"values"`
	Children []RowDoc `yaml:"children"`
}

// DatasetDoc declares a tabular dataset.
type DatasetDoc struct {
	ID         string      `yaml:"id"`
	SortColumn string      `yaml:"sort_column"`
	Blocked    bool        `yaml:"blocked"`
	Columns    []ColumnDoc `yaml:"columns"`
	Rows       []RowDoc    `yaml:"rows"`
}

// FilterDoc declares an easy filter on a "dataset.column".
type FilterDoc struct {
	Column        string `yaml:"column"`
	Operator      string `yaml:"op"`
	Role          string `yaml:"role"`
	Values        []any  `yaml:"values"`
	CaseSensitive bool   `yaml:"case_sensitive"`
}

// SortDoc declares an easy sort on a "dataset.column".
type SortDoc struct {
	Column string `yaml:"column"`
	Order  string `yaml:"order"`
	Role   string `yaml:"role"`
}

// ExpressionDoc declares an expression filter.
type ExpressionDoc struct {
	Expr     string   `yaml:"expr"`
	Datasets []string `yaml:"datasets"`
}

// Workspace is a loaded workspace.
type Workspace struct {
	Record  *dataset.Record
	Lookups *dataset.Lookups
	Filters []types.EasyFilter
	Sorts   []types.EasySort
	// Conditions holds the condition tree attached to each dataset.
	Conditions map[string]*conditions.Tree
	Expression *ExpressionDoc
}

// Options tunes how a workspace is built.
type Options struct {
	// Validation is the validation mode of the condition trees.
	Validation bool
	// CaseSensitive is the default text comparison of easy filters.
	CaseSensitive bool
	// Trees are extra options for the condition trees.
	Trees []conditions.Option
}

// Load reads and builds the workspace at path.
func Load(path string, opts Options) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace: %w", err)
	}
	return Parse(data, opts)
}

// Parse decodes and builds a workspace.
func Parse(data []byte, opts Options) (*Workspace, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse workspace: %w", err)
	}
	return BuildWorkspace(doc, opts)
}

// BuildWorkspace creates the record, lookups, rules and condition trees of doc.
func BuildWorkspace(doc Document, opts Options) (*Workspace, error) {
	w := &Workspace{
		Record:     dataset.NewRecord(),
		Lookups:    dataset.NewLookups(),
		Conditions: make(map[string]*conditions.Tree),
		Expression: doc.Expression,
	}

	for _, l := range doc.Lookups {
		m := dataset.NewLookupModel(l.ID, values(l.Entries))
		if l.Loading {
			m.BeginLoad()
		}
		w.Lookups.Add(m)
	}

	for _, f := range doc.Fields {
		typ, err := dataType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.ID, err)
		}
		w.Record.DefineField(f.ID, typ, f.Lookup.lookup())
		if err := w.Record.SetField(f.ID, dataset.Coerce(types.FromNative(f.Value), typ)); err != nil {
			return nil, err
		}
	}

	for _, d := range doc.Datasets {
		t, err := table(d)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", d.ID, err)
		}
		w.Record.AddTable(t)
		if d.Blocked {
			w.Record.Block(d.ID)
		}
	}

	for _, f := range doc.Filters {
		ef, err := easyFilter(w.Record, f, opts.CaseSensitive)
		if err != nil {
			return nil, fmt.Errorf("filter on %s: %w", f.Column, err)
		}
		w.Filters = append(w.Filters, ef)
	}

	for _, s := range doc.Sort {
		es, err := easySort(s)
		if err != nil {
			return nil, fmt.Errorf("sort on %s: %w", s.Column, err)
		}
		w.Sorts = append(w.Sorts, es)
	}

	for ds, c := range doc.Conditions {
		tree, err := BuildTree(c, w.Record, opts.Validation, opts.Trees...)
		if err != nil {
			return nil, fmt.Errorf("condition of %s: %w", ds, err)
		}
		w.Conditions[ds] = tree
	}
	return w, nil
}

// Apply installs the rules, condition trees and expression of w on f.
func (w *Workspace) Apply(f *filter.Engine) error {
	if len(w.Filters) > 0 {
		if err := f.SetEasyFilter(w.Filters...); err != nil {
			return err
		}
	}
	for _, s := range w.Sorts {
		if err := f.SetEasySort(s.Column, s.Order, s.Role); err != nil {
			return err
		}
	}
	for ds, tree := range w.Conditions {
		f.SetCondition(ds, tree)
	}
	if w.Expression != nil && w.Expression.Expr != "" {
		x, err := filter.NewExprFilter(w.Expression.Expr, w.Expression.Datasets...)
		if err != nil {
			return err
		}
		f.InstallExternal(x)
	}
	return nil
}

func table(d DatasetDoc) (*dataset.Table, error) {
	columns := make([]dataset.ColumnDef, 0, len(d.Columns))
	for _, c := range d.Columns {
		typ, err := dataType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.ID, err)
		}
		columns = append(columns, dataset.ColumnDef{ID: c.ID, Type: typ, Lookup: c.Lookup.lookup()})
	}
	t := dataset.NewTable(d.ID, columns...)
	if d.SortColumn != "" {
		if err := t.SetSortColumn(d.SortColumn); err != nil {
			return nil, err
		}
	}
	if err := appendRows(t, types.TopLevel, d.Rows); err != nil {
		return nil, err
	}
	return t, nil
}

func appendRows(t *dataset.Table, parent types.RowKey, rows []RowDoc) error {
	columns := t.Columns()
	for _, r := range rows {
		if len(r.Values) > len(columns) {
			return fmt.Errorf("row with %d values for %d columns", len(r.Values), len(columns))
		}
		cells := make([]types.Value, len(r.Values))
		for i, raw := range r.Values {
			cells[i] = dataset.Coerce(types.FromNative(raw), columns[i].Type)
		}
		loc, err := t.Append(parent, cells...)
		if err != nil {
			return err
		}
		if err := appendRows(t, dataset.ChildKey(loc), r.Children); err != nil {
			return err
		}
	}
	return nil
}

func easyFilter(r *dataset.Record, f FilterDoc, caseSensitive bool) (types.EasyFilter, error) {
	column := types.ParseProperty(f.Column)
	op := types.OpEqual
	if f.Operator != "" {
		var ok bool
		if op, ok = types.ParseOperator(f.Operator); !ok {
			return types.EasyFilter{}, fmt.Errorf("operator %q: %w", f.Operator, types.ErrInvalidOperator)
		}
	}
	role, err := parseRole(f.Role)
	if err != nil {
		return types.EasyFilter{}, err
	}

	// edit and check roles compare stored values of the declared type
	var typ types.DataType
	if role != types.RoleDisplay {
		if info, err := r.Describe(column); err == nil {
			typ = info.DataType
		}
	}
	vals := make([]types.Value, 0, len(f.Values))
	for _, raw := range f.Values {
		vals = append(vals, dataset.Coerce(types.FromNative(raw), typ))
	}
	return types.EasyFilter{
		Column:   column,
		Values:   vals,
		Operator: op,
		Role:     role,
		Options:  types.CompareOptions{CaseSensitive: caseSensitive || f.CaseSensitive},
	}, nil
}

func easySort(s SortDoc) (types.EasySort, error) {
	role, err := parseRole(s.Role)
	if err != nil {
		return types.EasySort{}, err
	}
	es := types.EasySort{Column: types.ParseProperty(s.Column), Role: role}
	switch strings.ToLower(s.Order) {
	case "", "asc":
		es.Order = types.Ascending
	case "desc":
		es.Order = types.Descending
	default:
		return types.EasySort{}, fmt.Errorf("unknown sort order %q", s.Order)
	}
	return es, nil
}

func parseRole(s string) (types.Role, error) {
	switch strings.ToLower(s) {
	case "", "display":
		return types.RoleDisplay, nil
	case "edit":
		return types.RoleEdit, nil
	case "check":
		return types.RoleCheck, nil
	}
	return types.RoleDisplay, fmt.Errorf("unknown role %q", s)
}

func dataType(s string) (types.DataType, error) {
	if s == "" {
		return types.TypeText, nil
	}
	typ, ok := types.ParseDataType(s)
	if !ok {
		return types.TypeUndefined, fmt.Errorf("unknown type %q", s)
	}
	return typ, nil
}

func (l *LookupRef) lookup() *types.Lookup {
	if l == nil {
		return nil
	}
	if l.List != nil {
		return &types.Lookup{List: values(l.List)}
	}
	return &types.Lookup{Model: l.Model}
}

func values(raw map[string]any) map[string]types.Value {
	out := make(map[string]types.Value, len(raw))
	for k, v := range raw {
		out[k] = types.FromNative(v)
	}
	return out
}
