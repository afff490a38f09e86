// SPDX-License-Identifier: MIT
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"gitlab.com/fisherprime/treemap"
)

// statusHeight is the number of rows reserved below the treemap.
const statusHeight = 1

// session holds the state of an interactive treemap: the display, its pick index & the
// selected leaf.
type session struct {
	tree   *treemap.Tree
	root   treemap.NodeID
	logger logrus.FieldLogger

	display  treemap.Rect
	tiles    []treemap.Tile
	index    treemap.Index
	selected treemap.NodeID
}

func newSession(tree *treemap.Tree, root treemap.NodeID, logger logrus.FieldLogger) *session {
	return &session{tree: tree, root: root, logger: logger, selected: treemap.NoNode}
}

// setSize fits the display to a screen, keeping the bottom rows for the status line.
func (s *session) setSize(width, height int) {
	s.display = treemap.Rect{W: max(width, 0), H: max(height-statusHeight, 0)}
	s.refresh()
}

// refresh recomputes the tiles & the pick index after a change of size or shape.
func (s *session) refresh() {
	s.tiles = s.tree.LayOut(s.root, s.display)
	s.index = s.tree.Index(s.root, s.display)
}

// selectAt toggles the selection of the leaf under a point.
func (s *session) selectAt(x, y int) {
	id, ok := s.index.Lookup(x, y)
	switch {
	case !ok:
	case id == s.selected:
		s.selected = treemap.NoNode
	default:
		s.selected = id
	}
}

// deleteAt deletes the leaf under a point, clearing the selection if it was that leaf.
func (s *session) deleteAt(x, y int) (err error) {
	id, ok := s.index.Lookup(x, y)
	if !ok {
		return
	}

	if err = s.tree.Delete(id); err != nil {
		return
	}
	if id == s.selected {
		s.selected = treemap.NoNode
	}

	s.logger.WithField("node", id).Debug("deleted")
	s.refresh()

	return
}

// resize grows or shrinks the selected leaf.
func (s *session) resize(grow bool) (err error) {
	if s.selected == treemap.NoNode {
		return
	}

	if err = s.tree.Resize(s.selected, grow); err != nil {
		return
	}
	s.refresh()

	return
}

// status describes the selected leaf as its path followed by its size.
func (s *session) status() string {
	if s.selected == treemap.NoNode {
		return ""
	}

	path, err := s.tree.Path(s.selected)
	if err != nil {
		return err.Error()
	}

	return fmt.Sprintf("%s(%d)", path, s.tree.Size(s.selected))
}
