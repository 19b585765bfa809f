package conditions

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/solatis/filterkeeper/internal/types"
)

// sampleTree covers every field and value kind.
func sampleTree(t *testing.T) *Tree {
	t.Helper()
	tree := newTestTree()
	if err := tree.UpdateLogical(tree.Root(), types.ConditionOr); err != nil {
		t.Fatalf("UpdateLogical() error = %v, want nil", err)
	}
	and := mustAdd(t)(tree.AddLogical(tree.Root(), types.ConditionAnd))
	mustAdd(t)(tree.AddRequired(and, types.Column("orders", "note"), types.ConversionLowerCase))
	mustAdd(t)(tree.AddCompare(and, fieldA, types.ConversionLength, types.OpMoreOrEqual, types.Int(-3)))
	mustAdd(t)(tree.AddCompare(and, fieldA, types.ConversionDirect, types.OpLess, types.Float(2.5)))
	mustAdd(t)(tree.AddCompare(tree.Root(), fieldB, types.ConversionNameFromLookup, types.OpEqual, types.ID("code-7")))
	mustAdd(t)(tree.AddCompare(tree.Root(), types.Field("flag"), types.ConversionDirect, types.OpNotEqual, types.Bool(true)))
	mustAdd(t)(tree.AddCompare(tree.Root(), types.Field("due"), types.ConversionDirect, types.OpMore,
		types.Time(time.Date(2024, 2, 29, 13, 30, 0, 500, time.UTC))))
	mustAdd(t)(tree.AddPropertyCompare(tree.Root(), fieldA, types.ConversionUpperCase, types.OpContains,
		types.Column("orders", "note"), types.ConversionUpperCase))
	tree.AddEmpty(tree.Root())
	return tree
}

// sameTree compares structure, kinds, fields and ids.
func sameTree(a *Tree, ha Handle, b *Tree, hb Handle) bool {
	if a.Node(ha).ID != b.Node(hb).ID || !sameShape(a, ha, b, hb) {
		return false
	}
	ca, cb := a.Children(ha), b.Children(hb)
	for i := range ca {
		if !sameTree(a, ca[i], b, cb[i]) {
			return false
		}
	}
	return true
}

func TestCodec_RoundTripPreservesIDs(t *testing.T) {
	src := sampleTree(t)
	data := Encode(src)

	dst := New(WithIDSource(types.NewCounterSource("other")))
	events := record(dst)
	if err := Decode(data, dst); err != nil {
		t.Fatalf("Decode() error = %v, want nil", err)
	}
	if !sameTree(src, src.Root(), dst, dst.Root()) {
		t.Fatal("decoded tree differs from the encoded one")
	}
	if dst.IsValid() != src.IsValid() {
		t.Errorf("IsValid() = %v, want %v", dst.IsValid(), src.IsValid())
	}
	if !checkLinks(dst) {
		t.Error("decoded tree has broken links")
	}
	if want := (Event{Kind: Changed, ID: "c1"}); len(*events) != 1 || (*events)[0] != want {
		t.Errorf("events = %v, want [%v]", *events, want)
	}

	// new nodes never collide with decoded ids
	h := mustAdd(t)(dst.AddRequired(dst.Root(), fieldA, types.ConversionDirect))
	if id := dst.Node(h).ID; id == "c2" || id == "c3" {
		t.Errorf("new node got a decoded id %q", id)
	}
}

func TestCodec_BinaryMarshaler(t *testing.T) {
	src := sampleTree(t)
	data, err := src.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v, want nil", err)
	}
	dst := newTestTree()
	if err := dst.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v, want nil", err)
	}
	if !sameTree(src, src.Root(), dst, dst.Root()) {
		t.Fatal("decoded tree differs from the encoded one")
	}
}

func TestCodec_InvalidTreeDisablesValidation(t *testing.T) {
	data := Encode(sampleTree(t))
	dst := newTestTree(WithValidation(true))
	if err := Decode(data, dst); err != nil {
		t.Fatalf("Decode() error = %v, want nil", err)
	}
	if dst.ValidationEnabled() {
		t.Error("validation still enabled on a tree with a placeholder")
	}
}

func assertCorruptAndEmpty(t *testing.T, tree *Tree, err error) {
	t.Helper()
	if !errors.Is(err, types.ErrCorruptStream) {
		t.Fatalf("Decode() error = %v, want ErrCorruptStream", err)
	}
	if !tree.IsEmpty() || tree.Len() != 1 || tree.Node(tree.Root()).Kind != types.ConditionAnd {
		t.Fatalf("tree not reset: Len() = %d, root = %+v", tree.Len(), tree.Node(tree.Root()))
	}
}

func TestCodec_Rejects(t *testing.T) {
	valid := Encode(sampleTree(t))

	leafRoot := protowire.AppendVarint(nil, TreeStreamVersion)
	leafRoot = appendRawNode(leafRoot, "r", types.ConditionRequired, 0)

	dup := protowire.AppendVarint(nil, TreeStreamVersion)
	dup = appendRawNode(dup, "r", types.ConditionAnd, 1)
	dup = appendRawNode(dup, "r", types.ConditionAnd, 0)

	leafWithChild := protowire.AppendVarint(nil, TreeStreamVersion)
	leafWithChild = appendRawNode(leafWithChild, "r", types.ConditionAnd, 1)
	leafWithChild = appendRawNode(leafWithChild, "x", types.ConditionRequired, 1)
	leafWithChild = appendRawNode(leafWithChild, "y", types.ConditionAnd, 0)

	deep := protowire.AppendVarint(nil, TreeStreamVersion)
	for i := 0; i <= types.MaxConditionDepth; i++ {
		deep = appendRawNode(deep, "n"+string(rune('a'+i%26))+string(rune('a'+i/26)), types.ConditionAnd, 1)
	}
	deep = appendRawNode(deep, "leaf", types.ConditionAnd, 0)

	badKind := protowire.AppendVarint(nil, TreeStreamVersion)
	badKind = appendRawNode(badKind, "r", types.ConditionKind(9), 0)

	tests := []struct {
		name    string
		data    []byte
		version bool
	}{
		{"empty stream", nil, false},
		{"tree version", append([]byte{2}, valid[1:]...), true},
		{"condition version", append([]byte{1, 7}, valid[2:]...), true},
		{"trailing bytes", append(append([]byte(nil), valid...), 0), false},
		{"leaf root", leafRoot, false},
		{"duplicate ids", dup, false},
		{"leaf with children", leafWithChild, false},
		{"too deep", deep, false},
		{"unknown kind", badKind, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := sampleTree(t)
			err := Decode(tt.data, tree)
			assertCorruptAndEmpty(t, tree, err)
			if tt.version && !errors.Is(err, types.ErrVersionMismatch) {
				t.Errorf("Decode() error = %v, want ErrVersionMismatch", err)
			}
		})
	}
}

// appendRawNode writes a node with empty leaf fields announcing children
// that the caller appends next.
func appendRawNode(b []byte, id string, kind types.ConditionKind, children int) []byte {
	b = protowire.AppendVarint(b, ConditionStreamVersion)
	b = protowire.AppendString(b, id)
	b = protowire.AppendVarint(b, uint64(kind))
	b = protowire.AppendVarint(b, 0) // isPropertyCompare
	b = protowire.AppendVarint(b, 0) // sourceConversion
	b = appendProperty(b, types.PropertyRef{})
	b = protowire.AppendVarint(b, 0) // operator
	b = protowire.AppendVarint(b, 0) // targetConversion
	b = appendProperty(b, types.PropertyRef{})
	b = appendValue(b, types.Absent())
	return protowire.AppendVarint(b, uint64(children))
}

func TestDecoder_ConsecutiveTreesAndStickyError(t *testing.T) {
	first := sampleTree(t)
	second := newTestTree()
	mustAdd(t)(second.AddRequired(second.Root(), fieldB, types.ConversionDirect))

	data := AppendTree(Encode(first), second)
	data = append(data, 0xff) // garbage where a third tree would start

	d := NewDecoder(data)
	a, b, c, e := newTestTree(), newTestTree(), newTestTree(), newTestTree()
	if err := d.Decode(a); err != nil {
		t.Fatalf("Decode(first) error = %v, want nil", err)
	}
	if err := d.Decode(b); err != nil {
		t.Fatalf("Decode(second) error = %v, want nil", err)
	}
	if !sameTree(first, first.Root(), a, a.Root()) || !sameTree(second, second.Root(), b, b.Root()) {
		t.Fatal("decoded trees differ")
	}

	err := d.Decode(c)
	assertCorruptAndEmpty(t, c, err)

	mustAdd(t)(e.AddRequired(e.Root(), fieldA, types.ConversionDirect))
	if again := d.Decode(e); again != err {
		t.Errorf("Decode() after failure = %v, want sticky %v", again, err)
	}
	assertCorruptAndEmpty(t, e, d.Err())
}

// Property-based test: every truncated prefix is rejected
func TestCodec_PropertyTruncatedStreams(t *testing.T) {
	data := Encode(sampleTree(t))

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("a strict prefix never decodes", prop.ForAll(
		func(n int) bool {
			tree := newTestTree()
			mustAdd(t)(tree.AddRequired(tree.Root(), fieldA, types.ConversionDirect))
			err := Decode(data[:n%len(data)], tree)
			return errors.Is(err, types.ErrCorruptStream) && tree.IsEmpty() && tree.Len() == 1
		},
		gen.IntRange(0, 1<<16),
	))

	properties.TestingRun(t)
}

// Property-based test: encode then decode preserves random trees
func TestCodec_PropertyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(t)) equals t", prop.ForAll(
		func(ops []int) bool {
			src := newTestTree()
			buildRandom(src, ops)
			dst := New(WithIDSource(types.NewCounterSource("d")))
			if err := Decode(Encode(src), dst); err != nil {
				return false
			}
			return sameTree(src, src.Root(), dst, dst.Root()) && dst.IsValid() == src.IsValid() && checkLinks(dst)
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}
