// SPDX-License-Identifier: MIT
package treemap

import "golang.org/x/exp/constraints"

// floorShare computes floor(length * part / total) for non-negative operands.
//
// total must be positive.
func floorShare[T constraints.Integer](length, part, total T) T { return length * part / total }

// ceilDiv computes ceil(n / d) for a non-negative n & a positive d.
func ceilDiv[T constraints.Integer](n, d T) T { return (n + d - 1) / d }
