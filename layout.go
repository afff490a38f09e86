// SPDX-License-Identifier: MIT
package treemap

type (
	// Rect is an integer rectangle with a top-left origin.
	Rect struct {
		X int `json:"x"`
		Y int `json:"y"`
		W int `json:"w"`
		H int `json:"h"`
	}

	// Tile pairs a rectangle with the color of the leaf occupying it.
	Tile struct {
		Rect  Rect   `json:"rect"`
		Color Color  `json:"color"`
		Node  NodeID `json:"node"`
	}

	// Entry maps a rectangle to the leaf occupying it.
	Entry struct {
		Rect Rect   `json:"rect"`
		Node NodeID `json:"node"`
	}

	// Index is an ordered rectangle to leaf mapping used for picking.
	Index []Entry

	// visitFunc receives each non-empty leaf & its rectangle.
	visitFunc func(id NodeID, r Rect)
)

// Area of the rectangle.
func (r Rect) Area() int { return r.W * r.H }

// Contains reports whether a point lies in the rectangle, edges included.
func (r Rect) Contains(x, y int) bool {
	return r.X <= x && x <= r.X+r.W && r.Y <= y && y <= r.Y+r.H
}

// LayOut runs the treemap algorithm from a node, returning one [Tile] per non-empty leaf.
//
// Rectangles are sliced along the longer side (height on ties), each child but the last taking
// the floor of its share of the remaining length; the last child takes what remains.
func (t *Tree) LayOut(id NodeID, r Rect) (tiles []Tile) {
	t.slice(id, r, func(leaf NodeID, lr Rect) {
		tiles = append(tiles, Tile{Rect: lr, Color: t.nodes[leaf].color, Node: leaf})
	})

	if t.cfg.Debug {
		t.cfg.Logger.Debugf("laid out %d tiles from %d in %+v", len(tiles), id, r)
	}

	return
}

// Index runs the treemap algorithm from a node, mapping each non-empty leaf's rectangle to
// the leaf.
func (t *Tree) Index(id NodeID, r Rect) (index Index) {
	t.slice(id, r, func(leaf NodeID, lr Rect) {
		index = append(index, Entry{Rect: lr, Node: leaf})
	})

	return
}

// slice performs the treemap traversal grunt work.
func (t *Tree) slice(id NodeID, r Rect, visit visitFunc) {
	n := t.mustAt(id)

	// Empty nodes, empty folders & zero sized leaves aren't displayed.
	if n.size == 0 {
		return
	}

	if len(n.children) < 1 {
		visit(id, r)
		return
	}

	vertical := r.W > r.H
	offset, length := r.Y, r.H
	if vertical {
		offset, length = r.X, r.W
	}

	last := len(n.children) - 1
	remaining := n.size
	for _, child := range n.children[:last] {
		// Remaining siblings are all empty.
		if remaining == 0 {
			continue
		}

		size := t.nodes[child].size
		share := int(floorShare(int64(length), size, remaining))

		t.slice(child, sliceRect(r, vertical, offset, share), visit)

		offset += share
		length -= share
		remaining -= size
	}

	t.slice(n.children[last], sliceRect(r, vertical, offset, length), visit)
}

// sliceRect cuts a band from r along the slicing axis.
func sliceRect(r Rect, vertical bool, offset, length int) Rect {
	if vertical {
		return Rect{X: offset, Y: r.Y, W: length, H: r.H}
	}

	return Rect{X: r.X, Y: offset, W: r.W, H: length}
}

// Lookup returns the first leaf whose rectangle contains the point.
func (index Index) Lookup(x, y int) (id NodeID, ok bool) {
	for _, entry := range index {
		if entry.Rect.Contains(x, y) {
			return entry.Node, true
		}
	}

	return NoNode, false
}

// Rect retrieves the rectangle of a leaf in the Index.
func (index Index) Rect(id NodeID) (r Rect, ok bool) {
	for _, entry := range index {
		if entry.Node == id {
			return entry.Rect, true
		}
	}

	return
}
