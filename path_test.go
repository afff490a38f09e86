// SPDX-License-Identifier: MIT
package treemap

import (
	"errors"
	"testing"
)

func TestTree_Path(t *testing.T) {
	tree, ids := newNestedTree()

	tests := []struct {
		name string
		id   NodeID
		want string
	}{
		{"root", ids["R"], "R"},
		{"internal", ids["D1"], "R/D1"},
		{"leaf", ids["b"], "R/D1/b"},
		{"shallow leaf", ids["c"], "R/c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tree.Path(tt.id)
			if err != nil {
				t.Fatalf("Tree.Path() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Tree.Path() = %v, want %v", got, tt.want)
			}
		})
	}

	if err := tree.Delete(ids["a"]); err != nil {
		t.Fatalf("Tree.Delete() error = %v", err)
	}
	if got, _ := tree.Path(ids["a"]); got != "" {
		t.Errorf("Tree.Path() of a deleted leaf = %q, want empty", got)
	}

	if _, err := tree.Path(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Tree.Path() error = %v, want %v", err, ErrNotFound)
	}
}

func TestSeparator(t *testing.T) {
	labels := []string{"World", "South Asia", "Nepal"}

	tests := []struct {
		name string
		sep  Separator
		want string
	}{
		{"population", PopulationSeparator, `World\South Asia\Nepal`},
		{"custom", JoinWith(" > "), "World > South Asia > Nepal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sep(labels); got != tt.want {
				t.Errorf("Separator() = %v, want %v", got, tt.want)
			}
		})
	}

	tree := New(WithSeparator(PopulationSeparator))
	leaf := tree.Leaf("Nepal", 28)
	tree.Branch("World", tree.Branch("South Asia", leaf))

	if got, _ := tree.Path(leaf); got != `World\South Asia\Nepal` {
		t.Errorf("Tree.Path() = %v, want %v", got, `World\South Asia\Nepal`)
	}
}
