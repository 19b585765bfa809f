// Package resolve turns property references into concrete values.
//
// A Resolver reads record fields and dataset cells from a Source, decodes
// lookup codes through a Decoder and applies conversions. Resolution never
// blocks: when decoding needs a lookup model that is still loading, the
// result is Pending with the handles of the models to wait for.
package resolve

import (
	"fmt"

	"github.com/solatis/filterkeeper/internal/rules"
	"github.com/solatis/filterkeeper/internal/types"
)

// Mode selects whether values are read as stored or as rendered.
type Mode uint8

const (
	// Raw reads stored values, lookup codes stay codes.
	Raw Mode = iota
	// Visible reads values as rendered, lookup codes decoded to display values.
	Visible
)

func (m Mode) String() string {
	if m == Visible {
		return "visible"
	}
	return "raw"
}

// Source is the record and dataset data source consumed by the resolver.
type Source interface {
	// Describe returns metadata of a field, column or dataset.
	Describe(ref types.PropertyRef) (types.PropertyInfo, error)
	// Field returns the stored value of a record field.
	Field(ref types.PropertyRef) (types.Value, error)
	// Cell returns a cell of the row addressed by the row locator.
	Cell(row, column types.PropertyRef, role types.Role) (types.Value, error)
}

// Decoder decodes lookup codes. A non-nil Dependency means the lookup model
// is still loading and the value is not available yet.
type Decoder interface {
	Decode(lookup *types.Lookup, code types.Value) (types.Value, types.Dependency, error)
}

// Resolver resolves property references with conversions.
type Resolver struct {
	source  Source
	decoder Decoder
	engine  *rules.Engine
	mode    Mode
}

// New creates a resolver.
func New(source Source, decoder Decoder, engine *rules.Engine, mode Mode) *Resolver {
	return &Resolver{source: source, decoder: decoder, engine: engine, mode: mode}
}

// WithMode returns a copy of the resolver reading in another mode.
func (r *Resolver) WithMode(mode Mode) *Resolver {
	c := *r
	c.mode = mode
	return &c
}

// Mode returns the display mode.
func (r *Resolver) Mode() Mode { return r.mode }

// Engine returns the comparison engine used for conversions.
func (r *Resolver) Engine() *rules.Engine { return r.engine }

// Describe returns metadata for ref, wrapping source errors.
func (r *Resolver) Describe(ref types.PropertyRef) (types.PropertyInfo, error) {
	info, err := r.source.Describe(ref)
	if err != nil {
		return types.PropertyInfo{}, fmt.Errorf("describe %v: %w", ref, err)
	}
	return info, nil
}

// Resolve reads ref and applies conv. Column references need a row locator
// of the same dataset in rows.
func (r *Resolver) Resolve(ref types.PropertyRef, conv types.ConversionKind, rows []types.PropertyRef) types.Resolution {
	types.Require(conv != types.ConversionUndefined && conv.Known(), "resolve %v with conversion %v", ref, conv)

	info, err := r.Describe(ref)
	if err != nil {
		return types.FailedWith(err)
	}
	if conv == types.ConversionNameFromLookup {
		types.Require(info.HasLookup(), "conversion %v on %v without lookup", conv, ref)
	}

	res := r.read(ref, info, rows)
	if res.Err != nil || res.IsPending() {
		return res
	}

	switch conv {
	case types.ConversionNameFromLookup:
		if r.mode == Visible {
			// already decorated by read
			return res
		}
		return r.decode(info, res.Value)
	default:
		return types.Resolved(r.engine.Convert(conv, res.Value))
	}
}

// Cell reads one cell for the given role. The display role is decorated
// through the lookup decoder whatever the resolver mode.
func (r *Resolver) Cell(row, column types.PropertyRef, role types.Role) types.Resolution {
	types.Require(row.Kind == types.PropertyRow, "cell of %v needs a row locator, got %v", column, row)
	types.Require(column.Kind == types.PropertyColumn && column.Dataset == row.Dataset,
		"column %v does not belong to row %v", column, row)

	v, err := r.source.Cell(row, column, role)
	if err != nil {
		return types.FailedWith(fmt.Errorf("read %v of %v: %w", column, row, err))
	}
	if !role.Visible() {
		return types.Resolved(v)
	}
	info, err := r.Describe(column)
	if err != nil {
		return types.FailedWith(err)
	}
	return r.decorate(info, v)
}

// DecodeLookup decodes a stored code of a lookup-backed property.
func (r *Resolver) DecodeLookup(ref types.PropertyRef, code types.Value) types.Resolution {
	info, err := r.Describe(ref)
	if err != nil {
		return types.FailedWith(err)
	}
	types.Require(info.HasLookup(), "decode %v without lookup", ref)
	return r.decode(info, code)
}

// read fetches the stored value and decorates it in visible mode.
func (r *Resolver) read(ref types.PropertyRef, info types.PropertyInfo, rows []types.PropertyRef) types.Resolution {
	var (
		v   types.Value
		err error
	)
	switch ref.Kind {
	case types.PropertyField:
		v, err = r.source.Field(ref)
	case types.PropertyColumn:
		row, ok := findRow(rows, ref.Dataset)
		types.Require(ok, "no row locator for dataset %q", ref.Dataset)
		v, err = r.source.Cell(row, ref, types.RoleEdit)
	default:
		types.Violation("cannot resolve property %v", ref)
	}
	if err != nil {
		return types.FailedWith(fmt.Errorf("read %v: %w", ref, err))
	}
	if r.mode == Visible {
		return r.decorate(info, v)
	}
	return types.Resolved(v)
}

// decorate renders a stored value for display.
func (r *Resolver) decorate(info types.PropertyInfo, v types.Value) types.Resolution {
	if !info.HasLookup() || v.IsAbsent() {
		return types.Resolved(v)
	}
	res := r.decode(info, v)
	if res.Err != nil || res.IsPending() {
		return res
	}
	if info.DataType == types.TypeBool && rules.IsBlank(res.Value) {
		return types.Resolved(v)
	}
	return res
}

func (r *Resolver) decode(info types.PropertyInfo, code types.Value) types.Resolution {
	if code.IsAbsent() {
		return types.Resolved(code)
	}
	v, dep, err := r.decoder.Decode(info.Lookup, code)
	if err != nil {
		return types.FailedWith(fmt.Errorf("decode %v: %w", info.Ref, err))
	}
	if dep != nil {
		return types.PendingOn(dep)
	}
	return types.Resolved(v)
}

func findRow(rows []types.PropertyRef, dataset string) (types.PropertyRef, bool) {
	for _, row := range rows {
		if row.Kind == types.PropertyRow && row.Dataset == dataset {
			return row, true
		}
	}
	return types.PropertyRef{}, false
}
