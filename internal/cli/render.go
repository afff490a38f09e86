// SPDX-License-Identifier: MIT
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gitlab.com/fisherprime/treemap"
)

// Output formats of the layout command.
const (
	formatJSON    = "json"
	formatText    = "text"
	formatPreview = "preview"
)

// tileView is a tile annotated for output.
type tileView struct {
	treemap.Tile
	Path string `json:"path"`
	Size int64  `json:"size"`
}

var (
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#303030"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
)

const selectedCell = "░"

func annotate(tree *treemap.Tree, tiles []treemap.Tile) (views []tileView) {
	views = make([]tileView, len(tiles))
	for i, tile := range tiles {
		path, _ := tree.Path(tile.Node)
		views[i] = tileView{Tile: tile, Path: path, Size: tree.Size(tile.Node)}
	}

	return
}

// writeTiles prints tiles as JSON or as one line per tile.
func writeTiles(w io.Writer, tree *treemap.Tree, tiles []treemap.Tile, format string) (err error) {
	views := annotate(tree, tiles)

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case formatText:
		for _, v := range views {
			r := v.Rect
			if _, err = fmt.Fprintf(w, "%d %d %d %d %s %s(%d)\n", r.X, r.Y, r.W, r.H, v.Color.Hex(), v.Path, v.Size); err != nil {
				return
			}
		}
		return
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// paint renders tiles on a grid of terminal cells, one cell per display unit.
//
// Cells outside every tile stay blank; the selected leaf is hatched.
func paint(tiles []treemap.Tile, display treemap.Rect, selected treemap.NodeID) string {
	if display.W < 1 || display.H < 1 {
		return ""
	}

	grid := make([][]int, display.H)
	for y := range grid {
		grid[y] = make([]int, display.W)
		for x := range grid[y] {
			grid[y][x] = -1
		}
	}

	for i, tile := range tiles {
		r := tile.Rect
		for y := max(r.Y, display.Y); y < min(r.Y+r.H, display.Y+display.H); y++ {
			for x := max(r.X, display.X); x < min(r.X+r.W, display.X+display.W); x++ {
				grid[y-display.Y][x-display.X] = i
			}
		}
	}

	styles := make([]lipgloss.Style, len(tiles))
	for i, tile := range tiles {
		styles[i] = lipgloss.NewStyle().Background(lipgloss.Color(tile.Color.Hex()))
		if tile.Node == selected {
			styles[i] = selectedStyle.Background(lipgloss.Color(tile.Color.Hex()))
		}
	}

	var b strings.Builder
	for y, row := range grid {
		for x := 0; x < len(row); {
			// Runs of cells sharing a tile are styled once.
			end := x + 1
			for end < len(row) && row[end] == row[x] {
				end++
			}

			switch i := row[x]; {
			case i < 0:
				b.WriteString(strings.Repeat(" ", end-x))
			case tiles[i].Node == selected:
				b.WriteString(styles[i].Render(strings.Repeat(selectedCell, end-x)))
			default:
				b.WriteString(styles[i].Render(strings.Repeat(" ", end-x)))
			}
			x = end
		}

		if y < len(grid)-1 {
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// outline writes the tree below id as an indented list of labels & sizes.
func outline(w io.Writer, tree *treemap.Tree, id treemap.NodeID, depth int) (err error) {
	if _, err = fmt.Fprintf(w, "%s%s (%d)\n", strings.Repeat("  ", depth), tree.Label(id), tree.Size(id)); err != nil {
		return
	}

	for _, child := range tree.Children(id) {
		if err = outline(w, tree, child, depth+1); err != nil {
			return
		}
	}

	return
}
