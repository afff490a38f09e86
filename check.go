// SPDX-License-Identifier: MIT
package treemap

import (
	"context"
	"errors"
	"fmt"
)

// Invariant violations reported by [Tree.Check].
var (
	ErrSizeMismatch = errors.New("size differs from the sum of its children")
	ErrBadParent    = errors.New("has an inconsistent parent reference")
	ErrNotCanonical = errors.New("is not in the canonical empty form")
)

// Check verifies the size, emptiness & parent invariants for every node reachable from id.
func (t *Tree) Check(ctx context.Context, id NodeID) (err error) {
	nodes, err := t.Nodes(ctx, id)
	if err != nil {
		return
	}

	var errs []error
	for _, current := range nodes {
		n := &t.nodes[current]

		if n.size < 0 {
			errs = append(errs, fmt.Errorf("node (%d) %w", current, ErrNegativeSize))
		}

		if !n.label.valid && (len(n.children) > 0 || n.size != 0 || n.parent != NoNode) {
			errs = append(errs, fmt.Errorf("node (%d) %w", current, ErrNotCanonical))
		}

		if len(n.children) < 1 {
			continue
		}

		var sum int64
		for _, child := range n.children {
			c := &t.nodes[child]
			sum += c.size

			if c.label.valid && c.parent != current {
				errs = append(errs, fmt.Errorf("node (%d) %w: want %d, got %d", child, ErrBadParent, current, c.parent))
			}
		}
		if sum != n.size {
			errs = append(errs, fmt.Errorf("node (%d) (%v) %w: %d != %d", current, n.label, ErrSizeMismatch, n.size, sum))
		}
	}

	return errors.Join(errs...)
}
