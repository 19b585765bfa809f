package conditions

import (
	"errors"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/filterkeeper/internal/types"
)

var (
	fieldA = types.Field("a")
	fieldB = types.Field("b")
)

func newTestTree(opts ...Option) *Tree {
	return New(append([]Option{WithIDSource(types.NewCounterSource("c"))}, opts...)...)
}

func record(tree *Tree) *[]Event {
	var events []Event
	tree.Events().Attach(func(e Event) { events = append(events, e) })
	return &events
}

func mustPanicContract(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("%s did not panic", name)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, types.ErrContract) {
			t.Fatalf("%s panicked with %v, want contract violation", name, r)
		}
	}()
	fn()
}

func mustAdd(t *testing.T) func(Handle, error) Handle {
	return func(h Handle, err error) Handle {
		t.Helper()
		if err != nil {
			t.Fatalf("add error = %v, want nil", err)
		}
		return h
	}
}

func TestNew_EmptyAndRoot(t *testing.T) {
	tree := newTestTree()
	root := tree.Node(tree.Root())
	if root.Kind != types.ConditionAnd {
		t.Errorf("root kind = %v, want and", root.Kind)
	}
	if root.ID != "c1" {
		t.Errorf("root id = %q, want c1", root.ID)
	}
	if !root.IsRoot() {
		t.Error("root has a parent")
	}
	if !tree.IsEmpty() || !tree.IsValid() {
		t.Errorf("IsEmpty() = %v, IsValid() = %v, want true, true", tree.IsEmpty(), tree.IsValid())
	}
	if err := tree.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestAdd_EventsAndStructure(t *testing.T) {
	tree := newTestTree()
	events := record(tree)

	or := mustAdd(t)(tree.AddLogical(tree.Root(), types.ConditionOr))
	req := mustAdd(t)(tree.AddRequired(or, fieldA, types.ConversionDirect))
	cmp := mustAdd(t)(tree.AddCompare(or, fieldB, types.ConversionDirect, types.OpEqual, types.Text("X")))

	want := []Event{{Inserted, "c2"}, {Inserted, "c3"}, {Inserted, "c4"}}
	if !reflect.DeepEqual(*events, want) {
		t.Errorf("events = %v, want %v", *events, want)
	}
	if got := tree.Children(or); !reflect.DeepEqual(got, []Handle{req, cmp}) {
		t.Errorf("Children(or) = %v, want [%v %v]", got, req, cmp)
	}
	if tree.Parent(cmp) != or || tree.Parent(or) != tree.Root() {
		t.Error("parent links are wrong")
	}
	if h, ok := tree.Find("c4"); !ok || h != cmp {
		t.Errorf("Find(c4) = %v, %v, want %v, true", h, ok, cmp)
	}
	n := tree.Node(cmp)
	if n.Operator != types.OpEqual || !n.TargetValue.Same(types.Text("X")) || n.IsPropertyCompare {
		t.Errorf("Node(cmp) = %+v", n)
	}
	if !tree.IsValid() {
		t.Errorf("IsValid() = false, problems: %v", tree.Validate())
	}
}

func TestAdd_ParentMustBeLogical(t *testing.T) {
	tree := newTestTree()
	req := mustAdd(t)(tree.AddRequired(tree.Root(), fieldA, types.ConversionDirect))
	mustPanicContract(t, "AddRequired under leaf", func() {
		_, _ = tree.AddRequired(req, fieldB, types.ConversionDirect)
	})
	mustPanicContract(t, "AddLogical with leaf kind", func() {
		_, _ = tree.AddLogical(tree.Root(), types.ConditionCompare)
	})
}

func TestAdd_ValidationRejects(t *testing.T) {
	tree := newTestTree(WithValidation(true))
	events := record(tree)

	tests := []struct {
		name string
		add  func() (Handle, error)
	}{
		{"required without source", func() (Handle, error) {
			return tree.AddRequired(tree.Root(), types.PropertyRef{}, types.ConversionDirect)
		}},
		{"compare without value", func() (Handle, error) {
			return tree.AddCompare(tree.Root(), fieldA, types.ConversionDirect, types.OpEqual, types.Absent())
		}},
		{"compare without operator", func() (Handle, error) {
			return tree.AddCompare(tree.Root(), fieldA, types.ConversionDirect, types.OpUndefined, types.Text("x"))
		}},
		{"property compare without target conversion", func() (Handle, error) {
			return tree.AddPropertyCompare(tree.Root(), fieldA, types.ConversionDirect, types.OpEqual, fieldB, types.ConversionUndefined)
		}},
		{"empty logical", func() (Handle, error) {
			return tree.AddLogical(tree.Root(), types.ConditionOr)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.add()
			if !errors.Is(err, types.ErrInvalidCondition) {
				t.Fatalf("add error = %v, want ErrInvalidCondition", err)
			}
		})
	}
	if tree.Len() != 1 || len(*events) != 0 {
		t.Errorf("tree changed: Len() = %d, events = %v", tree.Len(), *events)
	}

	if _, err := tree.AddRequired(tree.Root(), fieldA, types.ConversionDirect); err != nil {
		t.Errorf("AddRequired() error = %v, want nil", err)
	}
}

func TestAddEmpty(t *testing.T) {
	tree := newTestTree()
	h := tree.AddEmpty(tree.Root())
	n := tree.Node(h)
	if n.Kind != types.ConditionCompare || n.Operator != types.OpEqual || n.SourceConversion != types.ConversionDirect {
		t.Errorf("AddEmpty() node = %+v", n)
	}
	if tree.IsValid() {
		t.Error("placeholder tree reported valid")
	}

	validated := newTestTree(WithValidation(true))
	mustPanicContract(t, "AddEmpty with validation", func() { validated.AddEmpty(validated.Root()) })
}

func TestUpdate_RetypeRemovesChildren(t *testing.T) {
	tree := newTestTree()
	or := mustAdd(t)(tree.AddLogical(tree.Root(), types.ConditionOr))
	first := mustAdd(t)(tree.AddRequired(or, fieldA, types.ConversionDirect))
	mustAdd(t)(tree.AddRequired(or, fieldB, types.ConversionDirect))
	events := record(tree)

	if err := tree.UpdateCompare(or, fieldA, types.ConversionUpperCase, types.OpStartsWith, types.Text("AB")); err != nil {
		t.Fatalf("UpdateCompare() error = %v, want nil", err)
	}

	want := []Event{{Removed, "c4"}, {Removed, "c3"}, {Changed, "c2"}}
	if !reflect.DeepEqual(*events, want) {
		t.Errorf("events = %v, want %v", *events, want)
	}
	n := tree.Node(or)
	if len(n.Children) != 0 || n.Kind != types.ConditionCompare {
		t.Errorf("node = %+v, want childless compare", n)
	}
	if tree.Contains(first) {
		t.Error("removed child handle still live")
	}
	mustPanicContract(t, "stale handle", func() { tree.Node(first) })
}

func TestUpdate_RetypeResetsFields(t *testing.T) {
	tree := newTestTree()
	h := mustAdd(t)(tree.AddPropertyCompare(tree.Root(), fieldA, types.ConversionLength, types.OpMore, fieldB, types.ConversionLength))

	if err := tree.UpdateRequired(h, fieldA, types.ConversionDirect); err != nil {
		t.Fatalf("UpdateRequired() error = %v, want nil", err)
	}
	want := Fields{Source: fieldA, SourceConversion: types.ConversionDirect}
	if got := tree.Node(h).Fields; !got.Same(want) {
		t.Errorf("fields = %+v, want %+v", got, want)
	}

	if err := tree.UpdateLogical(tree.Root(), types.ConditionOr); err != nil {
		t.Fatalf("UpdateLogical() error = %v, want nil", err)
	}
	if got := tree.Children(tree.Root()); len(got) != 1 {
		t.Errorf("logical retype dropped children: %v", got)
	}
}

func TestUpdate_NoChangeNoEvent(t *testing.T) {
	tree := newTestTree()
	h := mustAdd(t)(tree.AddCompare(tree.Root(), fieldA, types.ConversionDirect, types.OpEqual, types.Int(3)))
	events := record(tree)

	if err := tree.UpdateCompare(h, fieldA, types.ConversionDirect, types.OpEqual, types.Int(3)); err != nil {
		t.Fatalf("UpdateCompare() error = %v, want nil", err)
	}
	if err := tree.UpdateLogical(tree.Root(), types.ConditionAnd); err != nil {
		t.Fatalf("UpdateLogical() error = %v, want nil", err)
	}
	if len(*events) != 0 {
		t.Errorf("events = %v, want none", *events)
	}

	if err := tree.UpdateCompare(h, fieldA, types.ConversionDirect, types.OpEqual, types.Int(4)); err != nil {
		t.Fatalf("UpdateCompare() error = %v, want nil", err)
	}
	if want := []Event{{Changed, "c2"}}; !reflect.DeepEqual(*events, want) {
		t.Errorf("events = %v, want %v", *events, want)
	}
}

func TestUpdate_RootStaysLogical(t *testing.T) {
	tree := newTestTree()
	mustPanicContract(t, "UpdateRequired(root)", func() {
		_ = tree.UpdateRequired(tree.Root(), fieldA, types.ConversionDirect)
	})
}

func TestUpdate_ValidationLeavesNodeUntouched(t *testing.T) {
	tree := newTestTree(WithValidation(true))
	h := mustAdd(t)(tree.AddRequired(tree.Root(), fieldA, types.ConversionDirect))
	events := record(tree)

	err := tree.UpdateCompare(h, fieldA, types.ConversionDirect, types.OpEqual, types.Absent())
	if !errors.Is(err, types.ErrInvalidCondition) {
		t.Fatalf("UpdateCompare() error = %v, want ErrInvalidCondition", err)
	}
	if n := tree.Node(h); n.Kind != types.ConditionRequired {
		t.Errorf("kind = %v, want required", n.Kind)
	}
	if len(*events) != 0 || !tree.IsValid() {
		t.Errorf("events = %v, IsValid() = %v", *events, tree.IsValid())
	}
}

func TestRemove_SubtreeDeepestFirst(t *testing.T) {
	tree := newTestTree()
	// ids: or c2, and c3, its child c4, second child of or c5, keep c6
	or := mustAdd(t)(tree.AddLogical(tree.Root(), types.ConditionOr))
	and := mustAdd(t)(tree.AddLogical(or, types.ConditionAnd))
	mustAdd(t)(tree.AddRequired(and, fieldA, types.ConversionDirect))
	mustAdd(t)(tree.AddRequired(or, fieldB, types.ConversionDirect))
	keep := mustAdd(t)(tree.AddRequired(tree.Root(), fieldA, types.ConversionDirect))
	events := record(tree)

	tree.Remove(or)

	want := []Event{{Removed, "c5"}, {Removed, "c4"}, {Removed, "c3"}, {Removed, "c2"}}
	if !reflect.DeepEqual(*events, want) {
		t.Errorf("events = %v, want %v", *events, want)
	}
	if tree.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tree.Len())
	}
	if got := tree.Children(tree.Root()); !reflect.DeepEqual(got, []Handle{keep}) {
		t.Errorf("root children = %v, want [%v]", got, keep)
	}
	for _, id := range []string{"c2", "c3", "c4", "c5"} {
		if _, ok := tree.Find(id); ok {
			t.Errorf("Find(%s) still succeeds", id)
		}
	}
	mustPanicContract(t, "Remove(root)", func() { tree.Remove(tree.Root()) })
}

func TestClear(t *testing.T) {
	tree := newTestTree()
	mustAdd(t)(tree.AddRequired(tree.Root(), fieldA, types.ConversionDirect))
	if err := tree.UpdateLogical(tree.Root(), types.ConditionOr); err != nil {
		t.Fatalf("UpdateLogical() error = %v, want nil", err)
	}
	tree.Clear()
	if !tree.IsEmpty() || tree.Node(tree.Root()).Kind != types.ConditionAnd {
		t.Errorf("after Clear() root = %+v", tree.Node(tree.Root()))
	}
}

func TestIDs_NeverReused(t *testing.T) {
	tree := newTestTree()
	h := mustAdd(t)(tree.AddRequired(tree.Root(), fieldA, types.ConversionDirect))
	tree.Remove(h)
	h2 := mustAdd(t)(tree.AddRequired(tree.Root(), fieldA, types.ConversionDirect))
	if tree.Node(h2).ID == "c2" {
		t.Error("id c2 was reused")
	}
	if h == h2 {
		t.Error("handle was reused with the same generation")
	}
}

func TestSetValidation(t *testing.T) {
	tree := newTestTree()
	h := tree.AddEmpty(tree.Root())

	err := tree.SetValidation(true)
	if !errors.Is(err, types.ErrInvalidCondition) {
		t.Fatalf("SetValidation(true) error = %v, want ErrInvalidCondition", err)
	}
	if tree.ValidationEnabled() {
		t.Error("validation enabled on an invalid tree")
	}
	if got := tree.FindInvalid(); !reflect.DeepEqual(got, []Handle{h}) {
		t.Errorf("FindInvalid() = %v, want [%v]", got, h)
	}

	if err := tree.UpdateCompare(h, fieldA, types.ConversionDirect, types.OpEqual, types.Text("x")); err != nil {
		t.Fatalf("UpdateCompare() error = %v, want nil", err)
	}
	if err := tree.SetValidation(true); err != nil {
		t.Fatalf("SetValidation(true) error = %v, want nil", err)
	}
}

func TestValidity_SnapshotMatchesTree(t *testing.T) {
	tree := newTestTree(WithValidation(false))
	root := tree.Node(tree.Root())
	if !root.IsValidSelf() || len(root.Problems()) != 0 {
		t.Errorf("empty root snapshot problems = %v, want none", root.Problems())
	}

	or := mustAdd(t)(tree.AddLogical(tree.Root(), types.ConditionOr))
	for _, h := range []Handle{tree.Root(), or} {
		n := tree.Node(h)
		if got, want := n.IsValidSelf(), tree.IsValidSelf(h); got != want {
			t.Errorf("Node(%v).IsValidSelf() = %v, tree says %v", h, got, want)
		}
		if got, want := n.Problems(), tree.Problems(h); !reflect.DeepEqual(got, want) {
			t.Errorf("Node(%v).Problems() = %v, tree says %v", h, got, want)
		}
	}
	if tree.Node(or).IsValidSelf() {
		t.Error("empty nested logical node is valid")
	}
}

func TestValidity_PerKind(t *testing.T) {
	tests := []struct {
		name     string
		kind     types.ConditionKind
		fields   Fields
		children int
		want     []Problem
	}{
		{"undefined", types.ConditionUndefined, Fields{}, 0, []Problem{ProblemKind}},
		{"and with children", types.ConditionAnd, Fields{}, 2, nil},
		{"empty or", types.ConditionOr, Fields{}, 0, []Problem{ProblemKind}},
		{"and with source", types.ConditionAnd, Fields{Source: fieldA}, 1, []Problem{ProblemSource}},
		{"and with target flag", types.ConditionAnd, Fields{IsPropertyCompare: true}, 1, []Problem{ProblemTarget}},
		{"required ok", types.ConditionRequired, Fields{Source: fieldA, SourceConversion: types.ConversionDirect}, 0, nil},
		{"required with operator", types.ConditionRequired,
			Fields{Source: fieldA, SourceConversion: types.ConversionDirect, Operator: types.OpEqual}, 0, []Problem{ProblemOperator}},
		{"required with value", types.ConditionRequired,
			Fields{Source: fieldA, SourceConversion: types.ConversionDirect, TargetValue: types.Int(1)}, 0, []Problem{ProblemTarget}},
		{"required with children", types.ConditionRequired,
			Fields{Source: fieldA, SourceConversion: types.ConversionDirect}, 1, []Problem{ProblemKind}},
		{"compare value ok", types.ConditionCompare,
			Fields{Source: fieldA, SourceConversion: types.ConversionDirect, Operator: types.OpLess, TargetValue: types.Int(1)}, 0, nil},
		{"compare value with target conversion", types.ConditionCompare,
			Fields{Source: fieldA, SourceConversion: types.ConversionDirect, Operator: types.OpLess, TargetValue: types.Int(1),
				TargetConversion: types.ConversionDirect}, 0, []Problem{ProblemTargetConversion}},
		{"compare value with target property", types.ConditionCompare,
			Fields{Source: fieldA, SourceConversion: types.ConversionDirect, Operator: types.OpLess, TargetValue: types.Int(1),
				TargetProperty: fieldB}, 0, []Problem{ProblemTarget}},
		{"compare property ok", types.ConditionCompare,
			Fields{Source: fieldA, SourceConversion: types.ConversionDirect, Operator: types.OpEqual,
				IsPropertyCompare: true, TargetProperty: fieldB, TargetConversion: types.ConversionDirect}, 0, nil},
		{"compare property with value", types.ConditionCompare,
			Fields{Source: fieldA, SourceConversion: types.ConversionDirect, Operator: types.OpEqual,
				IsPropertyCompare: true, TargetProperty: fieldB, TargetConversion: types.ConversionDirect, TargetValue: types.Int(1)},
			0, []Problem{ProblemTarget}},
		{"compare missing everything", types.ConditionCompare, Fields{}, 0,
			[]Problem{ProblemSource, ProblemSourceConversion, ProblemOperator, ProblemTarget}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := problems(tt.kind, tt.fields, tt.children)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("problems() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCopyFrom(t *testing.T) {
	src := New(WithIDSource(types.NewCounterSource("s")))
	if err := src.UpdateLogical(src.Root(), types.ConditionOr); err != nil {
		t.Fatalf("UpdateLogical() error = %v, want nil", err)
	}
	and := mustAdd(t)(src.AddLogical(src.Root(), types.ConditionAnd))
	mustAdd(t)(src.AddRequired(and, fieldA, types.ConversionDirect))
	mustAdd(t)(src.AddCompare(src.Root(), fieldB, types.ConversionLowerCase, types.OpContains, types.Text("x")))

	t.Run("non-interactive", func(t *testing.T) {
		dst := newTestTree(WithValidation(true))
		mustAdd(t)(dst.AddRequired(dst.Root(), fieldB, types.ConversionDirect))
		events := record(dst)

		dst.CopyFrom(src, false)

		if want := []Event{{Changed, "c1"}}; !reflect.DeepEqual(*events, want) {
			t.Errorf("events = %v, want %v", *events, want)
		}
		if !sameShape(dst, dst.Root(), src, src.Root()) {
			t.Error("copy differs from source")
		}
		if !dst.ValidationEnabled() {
			t.Error("validation not restored on a valid copy")
		}
		if _, ok := dst.Find("s2"); ok {
			t.Error("copied node kept the source id")
		}
	})

	t.Run("interactive", func(t *testing.T) {
		dst := newTestTree()
		events := record(dst)
		dst.CopyFrom(src, true)
		inserted := 0
		for _, e := range *events {
			if e.Kind == Inserted {
				inserted++
			}
		}
		if inserted != 3 {
			t.Errorf("inserted events = %d, want 3 (events %v)", inserted, *events)
		}
	})

	t.Run("invalid source keeps validation off", func(t *testing.T) {
		bad := newTestTree()
		bad.AddEmpty(bad.Root())
		dst := newTestTree(WithValidation(true))
		dst.CopyFrom(bad, false)
		if dst.ValidationEnabled() {
			t.Error("validation enabled on an invalid copy")
		}
	})
}

// sameShape compares kinds, fields and structure, ignoring ids.
func sameShape(a *Tree, ha Handle, b *Tree, hb Handle) bool {
	na, nb := a.Node(ha), b.Node(hb)
	if na.Kind != nb.Kind || !na.Fields.Same(nb.Fields) || len(na.Children) != len(nb.Children) {
		return false
	}
	for i := range na.Children {
		if !sameShape(a, na.Children[i], b, nb.Children[i]) {
			return false
		}
	}
	return true
}

// checkLinks verifies parent/child references and the id index.
func checkLinks(tree *Tree) bool {
	seen := 0
	ok := true
	tree.Walk(func(c Condition) bool {
		seen++
		if h, found := tree.Find(c.ID); !found || h != c.Handle {
			ok = false
		}
		for _, child := range c.Children {
			if tree.Parent(child) != c.Handle {
				ok = false
			}
		}
		if len(c.Children) > 0 && !c.IsLogical() {
			ok = false
		}
		return true
	})
	return ok && seen == tree.Len()
}

// buildRandom applies a sequence of random mutations driven by ops.
func buildRandom(tree *Tree, ops []int) {
	var handles []Handle
	live := func() []Handle {
		out := handles[:0:0]
		for _, h := range handles {
			if tree.Contains(h) {
				out = append(out, h)
			}
		}
		handles = out
		return out
	}
	pickLogical := func(seed int) Handle {
		candidates := []Handle{tree.Root()}
		for _, h := range live() {
			if tree.Node(h).IsLogical() {
				candidates = append(candidates, h)
			}
		}
		return candidates[seed%len(candidates)]
	}
	for i, op := range ops {
		switch op % 6 {
		case 0:
			h, _ := tree.AddLogical(pickLogical(i), types.ConditionOr)
			handles = append(handles, h)
		case 1:
			h, _ := tree.AddRequired(pickLogical(i), fieldA, types.ConversionDirect)
			handles = append(handles, h)
		case 2:
			h, _ := tree.AddCompare(pickLogical(i), fieldB, types.ConversionDirect, types.OpEqual, types.Int(int64(op)))
			handles = append(handles, h)
		case 3:
			if hs := live(); len(hs) > 0 {
				tree.Remove(hs[op%len(hs)])
			}
		case 4:
			if hs := live(); len(hs) > 0 {
				_ = tree.UpdateRequired(hs[op%len(hs)], fieldB, types.ConversionLength)
			}
		case 5:
			if hs := live(); len(hs) > 0 {
				_ = tree.UpdateLogical(hs[op%len(hs)], types.ConditionAnd)
			}
		}
	}
}

// Property-based test: random mutation sequences keep the tree consistent
func TestTree_PropertyMutationsKeepLinks(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("links and id index stay consistent", prop.ForAll(
		func(ops []int) bool {
			tree := newTestTree()
			buildRandom(tree, ops)
			return checkLinks(tree)
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.Property("validity matches the per-node definition", prop.ForAll(
		func(ops []int) bool {
			tree := newTestTree()
			buildRandom(tree, ops)
			all := true
			tree.Walk(func(c Condition) bool {
				if !c.IsRoot() && !c.IsValidSelf() {
					all = false
				}
				return true
			})
			want := tree.IsEmpty() || (all && tree.IsValidSelf(tree.Root()))
			return tree.IsValid() == want && (tree.Validate() == nil) == want
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.Property("removal frees exactly the subtree", prop.ForAll(
		func(ops []int, pick int) bool {
			tree := newTestTree()
			buildRandom(tree, ops)
			children := tree.Children(tree.Root())
			if len(children) == 0 {
				return true
			}
			victim := children[pick%len(children)]
			size := 0
			var count func(h Handle)
			count = func(h Handle) {
				size++
				for _, c := range tree.Children(h) {
					count(c)
				}
			}
			count(victim)

			before := tree.Len()
			removed := 0
			detach := tree.Events().Attach(func(e Event) {
				if e.Kind == Removed {
					removed++
				}
			})
			defer detach()
			tree.Remove(victim)
			return removed == size && tree.Len() == before-size && checkLinks(tree)
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(0, 100),
	))

	properties.Property("validation never admits an invalid tree", prop.ForAll(
		func(ops []int) bool {
			tree := newTestTree(WithValidation(true))
			buildRandom(tree, ops)
			return tree.IsValid()
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}
