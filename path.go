// SPDX-License-Identifier: MIT
package treemap

import (
	"os"
	"slices"
	"strings"
)

// Separator joins labels, ordered from the root down, into a display path.
type Separator func(labels []string) string

// Path separators of the supported domains.
var (
	FileSeparator       = JoinWith(string(os.PathSeparator))
	PopulationSeparator = JoinWith(`\`)
)

// JoinWith creates a [Separator] placing sep between labels.
func JoinWith(sep string) Separator {
	return func(labels []string) string { return strings.Join(labels, sep) }
}

// Path describes the route from the root to a node using the Tree's [Separator].
//
// Empty nodes are detached, their path is empty.
func (t *Tree) Path(id NodeID) (path string, err error) {
	if _, err = t.at(id); err != nil {
		return
	}

	var labels []string
	for ; id != NoNode; id = t.nodes[id].parent {
		if value, ok := t.nodes[id].label.Value(); ok {
			labels = append(labels, value)
		}
	}

	// Collected leaf first.
	slices.Reverse(labels)

	return t.cfg.Separator(labels), nil
}
