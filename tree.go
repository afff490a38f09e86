// SPDX-License-Identifier: MIT
package treemap

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
)

type (
	// Tree defines an arena of weighted nodes forming one or more n-ary trees.
	//
	// Nodes are addressed by NodeID; a parent link is an index into the arena, ownership flows
	// strictly downward. Synchronization is unnecessary, the type is designed for a single owner
	// mutating sequentially.
	Tree struct {
		// cfg contains a pointer to a [Config] shared by the Tree's operations.
		cfg *Config

		// nodes holds every constructed node, a NodeID is an index into it.
		nodes []node

		// root references the node displayed by default.
		root NodeID
	}

	// node is the unit of a [Tree].
	node struct {
		label Label

		// size is intrinsic for true leaves, the sum of the children's sizes otherwise.
		size int64

		// children holds references to nodes at a lower level, empty nodes included.
		children []NodeID

		// parent references the upper node, NoNode for roots & empty nodes.
		parent NodeID

		color Color
	}

	// NodeID is a stable handle to a node in a [Tree].
	NodeID int

	// Label is an optional node identity; the zero value is absent.
	Label struct {
		value string
		valid bool
	}

	// Color is an RGB triple.
	Color struct {
		R uint8 `json:"r"`
		G uint8 `json:"g"`
		B uint8 `json:"b"`
	}

	// Config defines configuration options for the [Tree]'s operations.
	Config struct {
		// Logger for [Tree] messages.
		//
		// Preferring a public field to allow for sharing.
		Logger logrus.FieldLogger
		Debug  bool

		// Separator joins labels into a display path.
		Separator Separator

		// ColorSource draws a node's color at construction.
		ColorSource func() Color
	}

	// Option defines the Tree functional option type.
	Option func(*Tree)

	// TraverseComm defines a channel to communicate info between [Tree] operations & it's callers.
	TraverseComm struct {
		node     NodeID
		err      error
		newPeers bool
	}
)

// NoNode is the NodeID of an absent node.
const NoNode NodeID = -1

const (
	traverseBufferSize = 10

	notChildErrFmt = "(%v) %w (%v)"
)

// Errors encountered when handling a Tree.
var (
	ErrNotFound = errors.New("not found")

	ErrContract     = errors.New("construction contract violated")
	ErrAlreadyChild = errors.New("is already a child of")
	ErrNotLeaf      = errors.New("is not a leaf")
	ErrEmptyNode    = errors.New("is empty")
	ErrNegativeSize = errors.New("has a negative size")
)

var defConfig = DefConfig()

// DefConfig obtains the package's [Tree] default options.
func DefConfig() *Config {
	return &Config{
		Logger:      logrus.New(),
		Debug:       false,
		Separator:   FileSeparator,
		ColorSource: RandomColor,
	}
}

// RandomColor draws each channel uniformly from [0, 255].
func RandomColor() Color {
	return Color{R: uint8(rand.IntN(256)), G: uint8(rand.IntN(256)), B: uint8(rand.IntN(256))}
}

// NewLabel instantiates a present [Label].
func NewLabel(value string) Label { return Label{value: value, valid: true} }

// Value retrieves the Label's string & whether it is present.
func (l Label) Value() (string, bool) { return l.value, l.valid }

// String implements fmt.Stringer.
func (l Label) String() string {
	if !l.valid {
		return "<empty>"
	}

	return l.value
}

// Hex formats the Color as #rrggbb.
func (c Color) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// New instantiates an empty [Tree].
func New(options ...Option) *Tree {
	t := &Tree{cfg: defConfig, root: NoNode}

	for _, opt := range options {
		opt(t)
	}

	return t
}

// WithConfig configures the [Tree] [Config].
func WithConfig(cfg *Config) Option {
	return func(t *Tree) { t.cfg = cfg }
}

// WithSeparator configures the [Separator] used by [Tree.Path].
//
// The Tree's Config is copied to avoid altering a shared one.
func WithSeparator(sep Separator) Option {
	return func(t *Tree) {
		cfg := *t.cfg
		cfg.Separator = sep
		t.cfg = &cfg
	}
}

// WithColorSource configures the function drawing node colors.
func WithColorSource(src func() Color) Option {
	return func(t *Tree) {
		cfg := *t.cfg
		cfg.ColorSource = src
		t.cfg = &cfg
	}
}

// Config retrieves the [Tree]'s Config.
func (t *Tree) Config() *Config { return t.cfg }

// Len retrieves the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Root retrieves the display root, NoNode if unset.
func (t *Tree) Root() NodeID { return t.root }

// SetRoot for a [Tree].
func (t *Tree) SetRoot(id NodeID) { t.root = id }

// Node constructs a node from its label, children & size, returning its handle.
//
// With children present the size argument is ignored, the node's size being the sum of its
// children's sizes; every non-empty child has its parent set to the new node. Without
// children the size is used verbatim.
//
// An absent label with children, a negative size, an unknown child or a child already owned
// by another node are contract violations & cause a panic.
func (t *Tree) Node(label Label, children []NodeID, size int64) (id NodeID) {
	if !label.valid && len(children) > 0 {
		panic(fmt.Errorf("%w: empty node with %d children", ErrContract, len(children)))
	}

	id = NodeID(len(t.nodes))
	n := node{label: label, parent: NoNode, color: t.cfg.ColorSource()}

	if len(children) < 1 {
		if size < 0 {
			panic(fmt.Errorf("%w: (%v) %w", ErrContract, label, ErrNegativeSize))
		}
		if label.valid {
			n.size = size
		}
		t.nodes = append(t.nodes, n)

		return
	}

	n.children = make([]NodeID, len(children))
	copy(n.children, children)

	seen := make(map[NodeID]struct{}, len(children))
	for _, child := range children {
		c, err := t.at(child)
		if err != nil {
			panic(fmt.Errorf("%w: child %w", ErrContract, err))
		}
		if _, ok := seen[child]; ok {
			panic(fmt.Errorf("%w: child (%d) listed twice", ErrContract, child))
		}
		seen[child] = struct{}{}

		if c.parent != NoNode {
			panic(fmt.Errorf("%w: "+notChildErrFmt, ErrContract, child, ErrAlreadyChild, c.parent))
		}

		n.size += c.size
	}
	t.nodes = append(t.nodes, n)

	for _, child := range children {
		if t.nodes[child].label.valid {
			t.nodes[child].parent = id
		}
	}

	if t.cfg.Debug {
		t.cfg.Logger.Debugf("constructed %d (%v) size %d children %v", id, label, n.size, children)
	}

	return
}

// Leaf constructs a true leaf.
func (t *Tree) Leaf(name string, size int64) NodeID { return t.Node(NewLabel(name), nil, size) }

// Branch constructs an internal node.
func (t *Tree) Branch(name string, children ...NodeID) NodeID {
	return t.Node(NewLabel(name), children, 0)
}

// Empty constructs a canonically empty node.
func (t *Tree) Empty() NodeID { return t.Node(Label{}, nil, 0) }

// at retrieves a node by handle.
func (t *Tree) at(id NodeID) (n *node, err error) {
	if id < 0 || int(id) >= len(t.nodes) {
		err = fmt.Errorf("node (%d) %w", id, ErrNotFound)
		return
	}

	return &t.nodes[id], nil
}

// mustAt retrieves a node by handle, panicking on an unknown handle.
func (t *Tree) mustAt(id NodeID) *node {
	n, err := t.at(id)
	if err != nil {
		panic(err)
	}

	return n
}

// Label retrieves a node's identity.
func (t *Tree) Label(id NodeID) Label { return t.mustAt(id).label }

// Size retrieves a node's aggregate size.
func (t *Tree) Size(id NodeID) int64 { return t.mustAt(id).size }

// Color retrieves a node's color.
func (t *Tree) Color(id NodeID) Color { return t.mustAt(id).color }

// Parent retrieves a node's parent, NoNode for roots & empty nodes.
func (t *Tree) Parent(id NodeID) NodeID { return t.mustAt(id).parent }

// Children lists a node's children in order, holes included.
func (t *Tree) Children(id NodeID) []NodeID {
	n := t.mustAt(id)
	children := make([]NodeID, len(n.children))
	copy(children, n.children)

	return children
}

// IsEmpty reports whether the node's label is absent.
func (t *Tree) IsEmpty(id NodeID) bool { return !t.mustAt(id).label.valid }

// IsLeaf reports whether the node has no children.
func (t *Tree) IsLeaf(id NodeID) bool { return len(t.mustAt(id).children) < 1 }

// Walk performs breadth-first traversal from a node, pushing the handles to its channel
// argument.
//
// Empty children are included. A context.Context is used to terminate the walk operation.
func (t *Tree) Walk(ctx context.Context, id NodeID, traverseChan chan TraverseComm) {
	defer close(traverseChan)

	if _, err := t.at(id); err != nil {
		traverseChan <- TraverseComm{node: NoNode, err: err}
		return
	}

	// Level order traversal.
	queue := []NodeID{id}

	var front NodeID
	for len(queue) > 0 {
		queueLen := len(queue)

		newPeers := true
		for ; queueLen > 0; queueLen-- {
			select {
			case <-ctx.Done():
				traverseChan <- TraverseComm{node: NoNode, err: ctx.Err()}
				return
			default:
			}

			front, queue = queue[0], queue[1:]

			traverseChan <- TraverseComm{node: front, newPeers: newPeers}
			newPeers = false

			queue = append(queue, t.nodes[front].children...)
		}
	}
}

// Nodes lists the handles reachable from a node in level order.
func (t *Tree) Nodes(ctx context.Context, id NodeID) (nodes []NodeID, err error) {
	traverseChan := make(chan TraverseComm, traverseBufferSize)

	go t.Walk(ctx, id, traverseChan)

	for resl := range traverseChan {
		if resl.err != nil {
			err = resl.err
			continue
		}

		nodes = append(nodes, resl.node)
	}

	return
}

// Levels lists the handles reachable from a node grouped by depth.
func (t *Tree) Levels(ctx context.Context, id NodeID) (levels [][]NodeID, err error) {
	traverseChan := make(chan TraverseComm, traverseBufferSize)

	go t.Walk(ctx, id, traverseChan)

	var peers []NodeID
	for resl := range traverseChan {
		if resl.err != nil {
			err = resl.err
			continue
		}

		if !resl.newPeers {
			peers = append(peers, resl.node)
			continue
		}

		if len(peers) > 0 {
			levels = append(levels, peers)
		}
		peers = []NodeID{resl.node}
	}

	if len(peers) > 0 {
		levels = append(levels, peers)
	}

	if t.cfg.Debug {
		t.cfg.Logger.Debugf("walked levels: %+v", levels)
	}

	return
}

// Leaves returns the non-empty true leaves reachable from a node in level order.
func (t *Tree) Leaves(ctx context.Context, id NodeID) (leaves []NodeID, err error) {
	nodes, err := t.Nodes(ctx, id)
	if err != nil {
		return
	}

	for _, n := range nodes {
		if t.nodes[n].label.valid && len(t.nodes[n].children) < 1 {
			leaves = append(leaves, n)
		}
	}

	return
}
