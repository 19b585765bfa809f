// Package conditions implements the boolean condition tree used for record
// validation and row filtering, its evaluator and its binary encoding.
//
// A Tree owns an arena of nodes. The root is always logical and never
// removed. Mutations notify observers attached to Events with Inserted,
// Changed and Removed events carrying the node id. A Tree is not safe for
// concurrent use.
package conditions

import (
	"github.com/solatis/filterkeeper/internal/signals"
	"github.com/solatis/filterkeeper/internal/types"
)

// EventKind tells what happened to a node.
type EventKind uint8

const (
	Inserted EventKind = iota
	Changed
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Changed:
		return "changed"
	}
	return "removed"
}

// Event is a change notification for one node.
type Event struct {
	Kind EventKind
	ID   string
}

type node struct {
	gen      uint32
	live     bool
	id       string
	kind     types.ConditionKind
	fields   Fields
	parent   Handle
	children []Handle
}

// Tree is a condition tree.
type Tree struct {
	nodes      []node
	free       []int32
	byID       map[string]Handle
	root       Handle
	ids        types.IDSource
	validation bool
	events     signals.Signal[Event]
}

// Option configures a Tree.
type Option func(*Tree)

// WithIDSource sets the generator of node ids. The default produces UUIDv7.
func WithIDSource(ids types.IDSource) Option {
	return func(t *Tree) { t.ids = ids }
}

// WithValidation enables validation from the start.
func WithValidation(on bool) Option {
	return func(t *Tree) { t.validation = on }
}

// New creates a tree whose root is an empty And node.
func New(opts ...Option) *Tree {
	t := &Tree{
		byID: make(map[string]Handle),
		ids:  types.UUIDSource{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.root = t.alloc(t.newID(), types.ConditionAnd, Fields{}, Handle{})
	return t
}

// Events returns the observer list of node changes.
func (t *Tree) Events() *signals.Signal[Event] { return &t.events }

// ValidationEnabled reports whether mutations are validated.
func (t *Tree) ValidationEnabled() bool { return t.validation }

// Root returns the root handle.
func (t *Tree) Root() Handle { return t.root }

// Len returns the number of nodes, root included.
func (t *Tree) Len() int { return len(t.byID) }

// Contains reports whether h addresses a live node of this tree.
func (t *Tree) Contains(h Handle) bool {
	if h.IsZero() || h.slot < 0 || int(h.slot) >= len(t.nodes) {
		return false
	}
	n := &t.nodes[h.slot]
	return n.live && n.gen == h.gen
}

// Find returns the node with the given id.
func (t *Tree) Find(id string) (Handle, bool) {
	h, ok := t.byID[id]
	return h, ok
}

// Node returns a snapshot of the node at h.
func (t *Tree) Node(h Handle) Condition {
	n := t.node(h)
	return Condition{
		Fields:   n.fields,
		Handle:   h,
		ID:       n.id,
		Kind:     n.kind,
		Parent:   n.parent,
		Children: append([]Handle(nil), n.children...),
	}
}

// Children returns the children of h in order.
func (t *Tree) Children(h Handle) []Handle {
	return append([]Handle(nil), t.node(h).children...)
}

// Parent returns the parent of h, the zero Handle for the root.
func (t *Tree) Parent(h Handle) Handle {
	return t.node(h).parent
}

// Walk visits the nodes in pre-order, children in order. It stops when fn
// returns false.
func (t *Tree) Walk(fn func(c Condition) bool) {
	t.walk(t.root, fn)
}

func (t *Tree) walk(h Handle, fn func(Condition) bool) bool {
	if !fn(t.Node(h)) {
		return false
	}
	for _, c := range t.node(h).children {
		if !t.walk(c, fn) {
			return false
		}
	}
	return true
}

func (t *Tree) node(h Handle) *node {
	types.Require(t.Contains(h), "stale or foreign %v", h)
	return &t.nodes[h.slot]
}

// newID asks the id source for an id not in use in this tree.
func (t *Tree) newID() string {
	for {
		id := t.ids.NewID()
		if _, taken := t.byID[id]; !taken && types.ValidConditionID(id) {
			return id
		}
	}
}

func (t *Tree) alloc(id string, kind types.ConditionKind, f Fields, parent Handle) Handle {
	var slot int32
	if n := len(t.free); n > 0 {
		slot = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		slot = int32(len(t.nodes))
		t.nodes = append(t.nodes, node{})
	}
	n := &t.nodes[slot]
	n.gen++
	if n.gen == 0 {
		n.gen = 1
	}
	n.live = true
	n.id = id
	n.kind = kind
	n.fields = f
	n.parent = parent
	n.children = nil

	h := Handle{slot: slot, gen: n.gen}
	t.byID[id] = h
	if !parent.IsZero() {
		p := t.node(parent)
		p.children = append(p.children, h)
	}
	return h
}

// release frees h and its descendants. The caller detaches h first.
func (t *Tree) release(h Handle) {
	n := t.node(h)
	for _, c := range n.children {
		t.release(c)
	}
	delete(t.byID, n.id)
	n.live = false
	n.children = nil
	n.fields = Fields{}
	t.free = append(t.free, h.slot)
}

func (t *Tree) detach(h Handle) {
	n := t.node(h)
	p := t.node(n.parent)
	for i, c := range p.children {
		if c == h {
			p.children = append(p.children[:i:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = Handle{}
}

// reset discards every node and installs a fresh root without notifying.
// Generations survive so that old handles stay stale.
func (t *Tree) reset(rootID string, kind types.ConditionKind) {
	t.free = t.free[:0]
	for i := len(t.nodes) - 1; i >= 0; i-- {
		n := &t.nodes[i]
		n.live = false
		n.children = nil
		n.fields = Fields{}
		t.free = append(t.free, int32(i))
	}
	t.byID = make(map[string]Handle)
	t.root = t.alloc(rootID, kind, Fields{}, Handle{})
}
