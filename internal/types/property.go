package types

import (
	"strconv"
	"strings"
)

// PropertyKind distinguishes what a PropertyRef points at.
type PropertyKind uint8

const (
	PropertyUndefined PropertyKind = iota
	// PropertyField is a single record field.
	PropertyField
	// PropertyDataset is a whole tabular dataset.
	PropertyDataset
	// PropertyColumn is one column of a dataset.
	PropertyColumn
	// PropertyRow is one row of a dataset under a parent; it acts as a row locator.
	PropertyRow
)

// PropertyRef is an opaque, comparable reference to a field, a dataset, a
// dataset column or a dataset row. Usable as a map key.
type PropertyRef struct {
	Kind    PropertyKind
	Dataset string // owning dataset for columns and rows, the dataset itself for PropertyDataset
	ID      string // field or column id
	Row     int    // row index for PropertyRow
	Parent  RowKey // parent row for PropertyRow
}

// Field returns a reference to a record field.
func Field(id string) PropertyRef {
	return PropertyRef{Kind: PropertyField, ID: id}
}

// Dataset returns a reference to a dataset.
func Dataset(id string) PropertyRef {
	return PropertyRef{Kind: PropertyDataset, Dataset: id}
}

// Column returns a reference to a column of a dataset.
func Column(dataset, id string) PropertyRef {
	return PropertyRef{Kind: PropertyColumn, Dataset: dataset, ID: id}
}

// RowOf returns a row locator.
func RowOf(dataset string, row int, parent RowKey) PropertyRef {
	return PropertyRef{Kind: PropertyRow, Dataset: dataset, Row: row, Parent: parent}
}

// IsValid reports whether the reference points at something.
func (p PropertyRef) IsValid() bool {
	switch p.Kind {
	case PropertyField:
		return p.ID != ""
	case PropertyDataset:
		return p.Dataset != ""
	case PropertyColumn:
		return p.Dataset != "" && p.ID != ""
	case PropertyRow:
		return p.Dataset != "" && p.Row >= 0
	}
	return false
}

// DatasetRef returns the dataset owning a column or row reference.
func (p PropertyRef) DatasetRef() PropertyRef {
	return Dataset(p.Dataset)
}

// String renders the reference as "field", "dataset.column", "dataset" or
// "dataset[row]" (with the parent key as "dataset[parent/row]").
func (p PropertyRef) String() string {
	switch p.Kind {
	case PropertyField:
		return p.ID
	case PropertyDataset:
		return p.Dataset
	case PropertyColumn:
		return p.Dataset + "." + p.ID
	case PropertyRow:
		if p.Parent == TopLevel {
			return p.Dataset + "[" + strconv.Itoa(p.Row) + "]"
		}
		return p.Dataset + "[" + string(p.Parent) + "/" + strconv.Itoa(p.Row) + "]"
	}
	return "<undefined>"
}

// ParseProperty parses the "field" or "dataset.column" notation used by
// fixtures and the CLI. Empty input yields the undefined reference.
func ParseProperty(s string) PropertyRef {
	s = strings.TrimSpace(s)
	if s == "" {
		return PropertyRef{}
	}
	if ds, col, ok := strings.Cut(s, "."); ok {
		return Column(ds, col)
	}
	return Field(s)
}

// DataType is the declared type of a field or column.
type DataType uint8

const (
	TypeUndefined DataType = iota
	TypeText
	TypeInteger
	TypeFloat
	TypeBool
	TypeTime
	TypeID
)

var dataTypeNames = map[string]DataType{
	"text":  TypeText,
	"int":   TypeInteger,
	"float": TypeFloat,
	"bool":  TypeBool,
	"time":  TypeTime,
	"id":    TypeID,
}

// ParseDataType maps the fixture names text, int, float, bool, time and id.
func ParseDataType(s string) (DataType, bool) {
	t, ok := dataTypeNames[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// Lookup describes how stored codes of a property decode into display
// values: either a static list or a lookup model loaded asynchronously.
type Lookup struct {
	// List maps code text to display value for static lookups.
	List map[string]Value
	// Model names a lookup model; used when List is nil.
	Model string
}

// IsList reports whether the lookup is a static list.
func (l *Lookup) IsList() bool { return l != nil && l.List != nil }

// PropertyInfo is the metadata a data source reports for a reference.
type PropertyInfo struct {
	Ref      PropertyRef
	DataType DataType
	Lookup   *Lookup
	// Columns lists the columns of a dataset, in display order.
	Columns []PropertyRef
	// SortColumn is the default ordering column of a dataset.
	SortColumn PropertyRef
}

// HasLookup reports whether values of the property are lookup codes.
func (i PropertyInfo) HasLookup() bool { return i.Lookup != nil }
