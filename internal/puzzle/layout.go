// Package puzzle embeds a character sequence as a king-move path on a square
// grid and validates player taps against that path.
package puzzle

import (
	"errors"
	"fmt"
)

// Coord is a 0-indexed grid position.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Adjacent reports whether o is one king move away from c.
func (c Coord) Adjacent(o Coord) bool {
	dr, dc := abs(c.Row-o.Row), abs(c.Col-o.Col)
	return dr <= 1 && dc <= 1 && (dr != 0 || dc != 0)
}

// Cell is a single grid square. TargetIndex is -1 for distractor cells.
type Cell struct {
	Char        string `json:"char"`
	IsTarget    bool   `json:"is_target"`
	TargetIndex int    `json:"target_index"`
}

// Layout is an immutable N×N grid with one segment embedded as a path.
type Layout struct {
	size    int
	segment []rune
	cells   []Cell  // row-major
	path    []Coord // target index -> coordinate
}

var errInvalidLayout = errors.New("puzzle: invalid layout")

// build lays out segment along path and fills the rest with distractor().
// It does not check the path; Verify does.
func build(size int, segment []rune, path []Coord, distractor func() rune) *Layout {
	l := &Layout{
		size:    size,
		segment: segment,
		cells:   make([]Cell, size*size),
		path:    path,
	}
	for i := range l.cells {
		l.cells[i].TargetIndex = -1
	}
	for k, c := range path {
		l.cells[c.Row*size+c.Col] = Cell{Char: string(segment[k]), IsTarget: true, TargetIndex: k}
	}
	for i := range l.cells {
		if !l.cells[i].IsTarget {
			l.cells[i].Char = string(distractor())
		}
	}
	return l
}

// Size returns the grid side N.
func (l *Layout) Size() int { return l.size }

// Len returns the number of characters on the path.
func (l *Layout) Len() int { return len(l.path) }

// Segment returns the embedded sequence.
func (l *Layout) Segment() string { return string(l.segment) }

// Start returns the coordinate of target index 0.
func (l *Layout) Start() Coord { return l.path[0] }

// InBounds reports whether c lies on the grid.
func (l *Layout) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < l.size && c.Col >= 0 && c.Col < l.size
}

// At returns the cell at c.
func (l *Layout) At(c Coord) (Cell, bool) {
	if !l.InBounds(c) {
		return Cell{}, false
	}
	return l.cells[c.Row*l.size+c.Col], true
}

// PathCoord returns the coordinate holding target index k.
func (l *Layout) PathCoord(k int) (Coord, bool) {
	if k < 0 || k >= len(l.path) {
		return Coord{}, false
	}
	return l.path[k], true
}

// Path returns a copy of the solution coordinates in order.
func (l *Layout) Path() []Coord {
	out := make([]Coord, len(l.path))
	copy(out, l.path)
	return out
}

// Chars returns the displayed characters as rows. Target information is not
// included so the result can be sent to players as-is.
func (l *Layout) Chars() [][]string {
	rows := make([][]string, l.size)
	for r := range rows {
		rows[r] = make([]string, l.size)
		for c := range rows[r] {
			rows[r][c] = l.cells[r*l.size+c].Char
		}
	}
	return rows
}

// Verify checks the path invariants: exactly Len() target cells, indices
// 0..Len()-1 each once, and consecutive indices king-adjacent.
func (l *Layout) Verify() error {
	if len(l.path) == 0 || len(l.path) != len(l.segment) {
		return fmt.Errorf("%w: path length %d for %d characters", errInvalidLayout, len(l.path), len(l.segment))
	}

	seen := make([]bool, len(l.path))
	targets := 0
	for i, cell := range l.cells {
		if !cell.IsTarget {
			if cell.TargetIndex != -1 {
				return fmt.Errorf("%w: distractor %d has index %d", errInvalidLayout, i, cell.TargetIndex)
			}
			continue
		}
		targets++
		k := cell.TargetIndex
		if k < 0 || k >= len(seen) || seen[k] {
			return fmt.Errorf("%w: bad or duplicate index %d", errInvalidLayout, k)
		}
		seen[k] = true
		if l.path[k] != (Coord{Row: i / l.size, Col: i % l.size}) {
			return fmt.Errorf("%w: index %d misplaced", errInvalidLayout, k)
		}
		if cell.Char != string(l.segment[k]) {
			return fmt.Errorf("%w: index %d holds %q", errInvalidLayout, k, cell.Char)
		}
	}
	if targets != len(l.path) {
		return fmt.Errorf("%w: %d target cells for path of %d", errInvalidLayout, targets, len(l.path))
	}
	for k := 1; k < len(l.path); k++ {
		if !l.path[k-1].Adjacent(l.path[k]) {
			return fmt.Errorf("%w: indices %d and %d not adjacent", errInvalidLayout, k-1, k)
		}
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
