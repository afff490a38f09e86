// SPDX-License-Identifier: MIT
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"gitlab.com/fisherprime/treemap"
)

type fixture struct {
	srv           *httptest.Server
	a, f1, f2, f3 treemap.NodeID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tree := treemap.New(
		treemap.WithSeparator(treemap.JoinWith("/")),
		treemap.WithColorSource(func() treemap.Color { return treemap.Color{R: 255} }),
	)

	f := &fixture{}
	f.f1, f.f2, f.f3 = tree.Leaf("f1", 15), tree.Leaf("f2", 5), tree.Leaf("f3", 10)
	f.a = tree.Branch("A", f.f1, f.f2, f.f3)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f.srv = httptest.NewServer(New(tree, f.a, WithLogger(logger)).Routes())
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fixture) do(t *testing.T, method, path string, v any) int {
	t.Helper()

	req, err := http.NewRequest(method, f.srv.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if v != nil && resp.StatusCode < http.StatusBadRequest {
		if err = json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}

	return resp.StatusCode
}

func TestServer_layout(t *testing.T) {
	f := newFixture(t)

	var got LayoutView
	if status := f.do(t, http.MethodGet, "/layout?w=800&h=1000", &got); status != http.StatusOK {
		t.Fatalf("GET /layout status = %d, want %d", status, http.StatusOK)
	}

	want := []treemap.Rect{{X: 0, Y: 0, W: 800, H: 500}, {X: 0, Y: 500, W: 800, H: 166}, {X: 0, Y: 666, W: 800, H: 334}}
	var rects []treemap.Rect
	for _, tile := range got.Tiles {
		rects = append(rects, tile.Rect)
	}
	if !reflect.DeepEqual(rects, want) {
		t.Errorf("GET /layout tiles = %v, want %v", rects, want)
	}
	if got.Size != 30 {
		t.Errorf("GET /layout size = %d, want 30", got.Size)
	}

	if status := f.do(t, http.MethodGet, "/layout?w=wide", nil); status != http.StatusBadRequest {
		t.Errorf("GET /layout status = %d, want %d", status, http.StatusBadRequest)
	}
}

func TestServer_pick(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantPath   string
	}{
		{"inside f2", "x=10&y=600&w=800&h=1000", http.StatusOK, "A/f2"},
		{"shared edge", "x=10&y=500&w=800&h=1000", http.StatusOK, "A/f1"},
		{"default display", "x=1000&y=10", http.StatusOK, "A/f3"},
		{"outside", "x=900&y=10&w=800&h=1000", http.StatusNotFound, ""},
		{"missing y", "x=10", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got NodeView
			if status := f.do(t, http.MethodGet, "/pick?"+tt.query, &got); status != tt.wantStatus {
				t.Fatalf("GET /pick status = %d, want %d", status, tt.wantStatus)
			}
			if got.Path != tt.wantPath {
				t.Errorf("GET /pick path = %v, want %v", got.Path, tt.wantPath)
			}
		})
	}
}

func TestServer_mutations(t *testing.T) {
	f := newFixture(t)

	steps := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"delete leaf", http.MethodDelete, fmt.Sprintf("/nodes/%d", f.f1), http.StatusNoContent},
		{"delete hole", http.MethodDelete, fmt.Sprintf("/nodes/%d", f.f1), http.StatusConflict},
		{"delete internal", http.MethodDelete, fmt.Sprintf("/nodes/%d", f.a), http.StatusConflict},
		{"delete unknown", http.MethodDelete, "/nodes/99", http.StatusNotFound},
		{"delete bad id", http.MethodDelete, "/nodes/abc", http.StatusBadRequest},
		{"grow leaf", http.MethodPost, fmt.Sprintf("/nodes/%d/resize?grow=true", f.f3), http.StatusOK},
		{"shrink leaf", http.MethodPost, fmt.Sprintf("/nodes/%d/resize?grow=false", f.f2), http.StatusOK},
		{"bad direction", http.MethodPost, fmt.Sprintf("/nodes/%d/resize?grow=maybe", f.f3), http.StatusBadRequest},
	}

	for _, step := range steps {
		if status := f.do(t, step.method, step.path, nil); status != step.wantStatus {
			t.Errorf("%s: %s %s status = %d, want %d", step.name, step.method, step.path, status, step.wantStatus)
		}
	}

	var got NodeView
	if status := f.do(t, http.MethodGet, fmt.Sprintf("/nodes/%d", f.a), &got); status != http.StatusOK {
		t.Fatalf("GET /nodes status = %d, want %d", status, http.StatusOK)
	}

	// f1 deleted, f2 5 -> 4, f3 10 -> 11.
	want := NodeView{ID: f.a, Label: "A", Path: "A", Size: 15, Color: "#ff0000"}
	if got != want {
		t.Errorf("GET /nodes = %+v, want %+v", got, want)
	}

	if status := f.do(t, http.MethodGet, fmt.Sprintf("/nodes/%d", f.f1), &got); status != http.StatusOK || !got.Empty {
		t.Errorf("GET /nodes = (%d, %+v), want an empty node", status, got)
	}
}
