// SPDX-License-Identifier: MIT
package treemap

import "fmt"

// resizeDivisor sets the resize step to one percent of a leaf's size.
const resizeDivisor = 100

// Delete empties a true leaf, subtracting its size from every ancestor.
//
// The emptied node keeps its slot in its parent's children. Ancestors keep their labels even
// when their size drops to 0.
func (t *Tree) Delete(id NodeID) (err error) {
	n, err := t.liveLeaf(id)
	if err != nil {
		return
	}

	delta := n.size
	parent := n.parent

	n.label, n.size = Label{}, 0
	t.propagate(parent, -delta)
	n.parent = NoNode

	if t.cfg.Debug {
		t.cfg.Logger.Debugf("deleted %d (%d) from %d", id, delta, parent)
	}

	return
}

// Resize grows or shrinks a true leaf by one percent of its size, rounded up.
//
// A shrink that would take the leaf below 1 is ignored.
func (t *Tree) Resize(id NodeID, grow bool) (err error) {
	n, err := t.liveLeaf(id)
	if err != nil {
		return
	}

	step := ceilDiv(n.size, resizeDivisor)
	if !grow {
		if n.size-step < 1 {
			return
		}
		step = -step
	}

	n.size += step
	t.propagate(n.parent, step)

	if t.cfg.Debug {
		t.cfg.Logger.Debugf("resized %d by %d to %d", id, step, n.size)
	}

	return
}

// propagate adds delta to a node & its ancestors.
func (t *Tree) propagate(id NodeID, delta int64) {
	for ; id != NoNode; id = t.nodes[id].parent {
		t.nodes[id].size += delta
	}
}

// liveLeaf retrieves a true, non-empty leaf.
func (t *Tree) liveLeaf(id NodeID) (n *node, err error) {
	if n, err = t.at(id); err != nil {
		return
	}

	switch {
	case !n.label.valid:
		err = fmt.Errorf("node (%d) %w", id, ErrEmptyNode)
	case len(n.children) > 0:
		err = fmt.Errorf("node (%d) (%s) %w", id, n.label.value, ErrNotLeaf)
	}
	if err != nil {
		n = nil
	}

	return
}
