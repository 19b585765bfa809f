package conditions

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/solatis/filterkeeper/internal/types"
)

/*
 * Binary stream format.
 *
 * Integers are protobuf varints (signed ones zigzag encoded), strings are
 * varint length-prefixed, floats are little-endian fixed64. There are no
 * field tags: fields appear in a fixed order.
 *
 *   tree      := version(=TreeStreamVersion) condition
 *   condition := version(=ConditionStreamVersion) id kind isPropertyCompare
 *                sourceConversion source operator targetConversion
 *                targetProperty targetValue childCount condition*
 *   property  := kind dataset id zigzag(row) parent
 *   value     := kind payload
 *
 * Value payloads: text/id string, int zigzag, float fixed64, bool varint,
 * time zigzag(unix seconds) nanos, absent nothing.
 *
 * Node ids are preserved exactly.
 */

const (
	TreeStreamVersion      = 1
	ConditionStreamVersion = 1
)

// Encode returns the binary encoding of t.
func Encode(t *Tree) []byte {
	return AppendTree(nil, t)
}

// AppendTree appends the encoding of t to b.
func AppendTree(b []byte, t *Tree) []byte {
	b = protowire.AppendVarint(b, TreeStreamVersion)
	return t.appendNode(b, t.root)
}

func (t *Tree) appendNode(b []byte, h Handle) []byte {
	n := t.node(h)
	b = protowire.AppendVarint(b, ConditionStreamVersion)
	b = protowire.AppendString(b, n.id)
	b = protowire.AppendVarint(b, uint64(n.kind))
	b = protowire.AppendVarint(b, protowire.EncodeBool(n.fields.IsPropertyCompare))
	b = protowire.AppendVarint(b, uint64(n.fields.SourceConversion))
	b = appendProperty(b, n.fields.Source)
	b = protowire.AppendVarint(b, uint64(n.fields.Operator))
	b = protowire.AppendVarint(b, uint64(n.fields.TargetConversion))
	b = appendProperty(b, n.fields.TargetProperty)
	b = appendValue(b, n.fields.TargetValue)
	b = protowire.AppendVarint(b, uint64(len(n.children)))
	for _, c := range n.children {
		b = t.appendNode(b, c)
	}
	return b
}

func appendProperty(b []byte, p types.PropertyRef) []byte {
	b = protowire.AppendVarint(b, uint64(p.Kind))
	b = protowire.AppendString(b, p.Dataset)
	b = protowire.AppendString(b, p.ID)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(p.Row)))
	return protowire.AppendString(b, string(p.Parent))
}

func appendValue(b []byte, v types.Value) []byte {
	b = protowire.AppendVarint(b, uint64(v.Kind()))
	switch v.Kind() {
	case types.KindText, types.KindID:
		b = protowire.AppendString(b, v.String())
	case types.KindInt:
		n, _ := v.AsInt()
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(n))
	case types.KindFloat:
		f, _ := v.AsFloat()
		b = protowire.AppendFixed64(b, math.Float64bits(f))
	case types.KindBool:
		x, _ := v.AsBool()
		b = protowire.AppendVarint(b, protowire.EncodeBool(x))
	case types.KindTime:
		ts, _ := v.AsTime()
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(ts.Unix()))
		b = protowire.AppendVarint(b, uint64(ts.Nanosecond()))
	}
	return b
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (t *Tree) MarshalBinary() ([]byte, error) {
	return Encode(t), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler with Decode.
func (t *Tree) UnmarshalBinary(data []byte) error {
	return Decode(data, t)
}

// Decode replaces the content of t with the tree encoded in data. Trailing
// bytes are an error. On failure t is left empty and the error wraps
// types.ErrCorruptStream.
func Decode(data []byte, t *Tree) error {
	d := NewDecoder(data)
	if err := d.Decode(t); err != nil {
		return err
	}
	if d.Remaining() > 0 {
		d.err = corrupt("%d trailing bytes", d.Remaining())
		t.resetEmpty()
		return d.err
	}
	return nil
}

// Decoder reads consecutive trees from a byte stream. The first failure is
// sticky: every later Decode resets its target and returns the same error.
type Decoder struct {
	buf []byte
	err error
}

// NewDecoder creates a decoder over data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data}
}

// Err returns the sticky error, if any.
func (d *Decoder) Err() error { return d.err }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) }

type decodedNode struct {
	id       string
	kind     types.ConditionKind
	fields   Fields
	children []*decodedNode
}

// Decode reads the next tree into t. The tree is replaced in one step: a
// single Changed event for the root is emitted on success and on failure.
// Validation is switched off when the decoded tree is invalid.
func (d *Decoder) Decode(t *Tree) error {
	if d.err != nil {
		t.resetEmpty()
		return d.err
	}

	root, err := d.readTree()
	if err != nil {
		d.err = err
		t.resetEmpty()
		return err
	}

	t.reset(root.id, root.kind)
	for _, c := range root.children {
		t.install(t.root, c)
	}
	if t.validation && !t.IsValid() {
		t.validation = false
	}
	t.events.Notify(Event{Kind: Changed, ID: root.id})
	return nil
}

func (t *Tree) install(parent Handle, n *decodedNode) {
	h := t.alloc(n.id, n.kind, n.fields, parent)
	for _, c := range n.children {
		t.install(h, c)
	}
}

// resetEmpty leaves t with an empty And root, keeping the root id.
func (t *Tree) resetEmpty() {
	id := t.newID()
	if t.Contains(t.root) {
		id = t.node(t.root).id
	}
	t.reset(id, types.ConditionAnd)
	t.events.Notify(Event{Kind: Changed, ID: id})
}

func (d *Decoder) readTree() (*decodedNode, error) {
	v, err := d.varint()
	if err != nil {
		return nil, err
	}
	if v != TreeStreamVersion {
		return nil, fmt.Errorf("tree version %d: %w: %w", v, types.ErrVersionMismatch, types.ErrCorruptStream)
	}
	seen := make(map[string]bool)
	root, err := d.readNode(1, seen)
	if err != nil {
		return nil, err
	}
	if !root.kind.IsLogical() {
		return nil, corrupt("root %s is %v", root.id, root.kind)
	}
	return root, nil
}

func (d *Decoder) readNode(depth int, seen map[string]bool) (*decodedNode, error) {
	if depth > types.MaxConditionDepth {
		return nil, corrupt("nesting deeper than %d", types.MaxConditionDepth)
	}
	v, err := d.varint()
	if err != nil {
		return nil, err
	}
	if v != ConditionStreamVersion {
		return nil, fmt.Errorf("condition version %d: %w: %w", v, types.ErrVersionMismatch, types.ErrCorruptStream)
	}

	n := &decodedNode{}
	if n.id, err = d.string(types.MaxConditionIDLength); err != nil {
		return nil, err
	}
	if !types.ValidConditionID(n.id) {
		return nil, corrupt("invalid id %q", n.id)
	}
	if seen[n.id] {
		return nil, corrupt("duplicate id %q", n.id)
	}
	seen[n.id] = true

	kind, err := d.enum(uint64(types.ConditionCompare), "kind")
	if err != nil {
		return nil, err
	}
	n.kind = types.ConditionKind(kind)
	if n.kind == types.ConditionUndefined {
		return nil, corrupt("node %s has undefined kind", n.id)
	}

	f := &n.fields
	if f.IsPropertyCompare, err = d.bool(); err != nil {
		return nil, err
	}
	conv, err := d.enum(uint64(types.ConversionNameFromLookup), "source conversion")
	if err != nil {
		return nil, err
	}
	f.SourceConversion = types.ConversionKind(conv)
	if f.Source, err = d.property(); err != nil {
		return nil, err
	}
	op, err := d.enum(uint64(types.OpEndsWith), "operator")
	if err != nil {
		return nil, err
	}
	f.Operator = types.CompareOperator(op)
	conv, err = d.enum(uint64(types.ConversionNameFromLookup), "target conversion")
	if err != nil {
		return nil, err
	}
	f.TargetConversion = types.ConversionKind(conv)
	if f.TargetProperty, err = d.property(); err != nil {
		return nil, err
	}
	if f.TargetValue, err = d.value(); err != nil {
		return nil, err
	}

	count, err := d.varint()
	if err != nil {
		return nil, err
	}
	if count > types.MaxConditionChildren {
		return nil, corrupt("node %s has %d children", n.id, count)
	}
	if count > 0 && !n.kind.IsLogical() {
		return nil, corrupt("%v node %s has children", n.kind, n.id)
	}
	for i := uint64(0); i < count; i++ {
		c, err := d.readNode(depth+1, seen)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, c)
	}
	return n, nil
}

func (d *Decoder) property() (types.PropertyRef, error) {
	var p types.PropertyRef
	kind, err := d.enum(uint64(types.PropertyRow), "property kind")
	if err != nil {
		return p, err
	}
	p.Kind = types.PropertyKind(kind)
	if p.Dataset, err = d.string(types.MaxTextLength); err != nil {
		return p, err
	}
	if p.ID, err = d.string(types.MaxTextLength); err != nil {
		return p, err
	}
	row, err := d.varint()
	if err != nil {
		return p, err
	}
	r := protowire.DecodeZigZag(row)
	if r < math.MinInt32 || r > math.MaxInt32 {
		return p, corrupt("row index %d out of range", r)
	}
	p.Row = int(r)
	parent, err := d.string(types.MaxTextLength)
	if err != nil {
		return p, err
	}
	p.Parent = types.RowKey(parent)
	return p, nil
}

func (d *Decoder) value() (types.Value, error) {
	kind, err := d.enum(uint64(types.KindID), "value kind")
	if err != nil {
		return types.Absent(), err
	}
	switch types.ValueKind(kind) {
	case types.KindText, types.KindID:
		s, err := d.string(types.MaxTextLength)
		if err != nil {
			return types.Absent(), err
		}
		if types.ValueKind(kind) == types.KindID {
			return types.ID(s), nil
		}
		return types.Text(s), nil
	case types.KindInt:
		n, err := d.varint()
		if err != nil {
			return types.Absent(), err
		}
		return types.Int(protowire.DecodeZigZag(n)), nil
	case types.KindFloat:
		if len(d.buf) < 8 {
			return types.Absent(), corrupt("truncated float")
		}
		bits, n := protowire.ConsumeFixed64(d.buf)
		if n < 0 {
			return types.Absent(), corrupt("bad float: %v", protowire.ParseError(n))
		}
		d.buf = d.buf[n:]
		return types.Float(math.Float64frombits(bits)), nil
	case types.KindBool:
		b, err := d.bool()
		if err != nil {
			return types.Absent(), err
		}
		return types.Bool(b), nil
	case types.KindTime:
		sec, err := d.varint()
		if err != nil {
			return types.Absent(), err
		}
		nsec, err := d.varint()
		if err != nil {
			return types.Absent(), err
		}
		if nsec >= uint64(time.Second) {
			return types.Absent(), corrupt("nanoseconds %d out of range", nsec)
		}
		return types.Time(time.Unix(protowire.DecodeZigZag(sec), int64(nsec)).UTC()), nil
	}
	return types.Absent(), nil
}

func (d *Decoder) varint() (uint64, error) {
	v, n := protowire.ConsumeVarint(d.buf)
	if n < 0 {
		return 0, corrupt("bad varint: %v", protowire.ParseError(n))
	}
	d.buf = d.buf[n:]
	return v, nil
}

func (d *Decoder) enum(max uint64, what string) (uint64, error) {
	v, err := d.varint()
	if err != nil {
		return 0, err
	}
	if v > max {
		return 0, corrupt("unknown %s %d", what, v)
	}
	return v, nil
}

func (d *Decoder) bool() (bool, error) {
	v, err := d.enum(1, "bool")
	if err != nil {
		return false, err
	}
	return protowire.DecodeBool(v), nil
}

func (d *Decoder) string(limit int) (string, error) {
	b, n := protowire.ConsumeBytes(d.buf)
	if n < 0 {
		return "", corrupt("bad string: %v", protowire.ParseError(n))
	}
	if len(b) > limit {
		return "", corrupt("string of %d bytes exceeds %d", len(b), limit)
	}
	d.buf = d.buf[n:]
	return string(b), nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), types.ErrCorruptStream)
}
