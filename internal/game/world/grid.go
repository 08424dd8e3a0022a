package world

import (
	"fmt"
	"strings"
)

// Grid is a rectangular tile map of walls and floor.
type Grid struct {
	width  int
	height int
	walls  []bool
}

// NewGrid returns an open grid of width × height floor tiles.
//
// Precondition: width > 0 and height > 0.
func NewGrid(width, height int) *Grid {
	if width <= 0 || height <= 0 {
		panic("world.NewGrid: dimensions must be positive")
	}
	return &Grid{width: width, height: height, walls: make([]bool, width*height)}
}

// ParseGrid builds a grid from rows of text where '#' is a wall and any other rune is floor.
//
// Precondition: rows is non-empty and every row has the same length.
// Postcondition: returns an error describing the first malformed row.
func ParseGrid(rows []string) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("world.ParseGrid: grid must not be empty")
	}
	g := NewGrid(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != g.width {
			return nil, fmt.Errorf("world.ParseGrid: row %d has length %d, want %d", y, len(row), g.width)
		}
		for x, c := range row {
			if c == '#' {
				g.walls[y*g.width+x] = true
			}
		}
	}
	return g, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether p lies on the grid.
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.width && p.Y < g.height
}

// Walkable reports whether p is an in-bounds floor tile.
func (g *Grid) Walkable(p Position) bool {
	return g.InBounds(p) && !g.walls[p.Y*g.width+p.X]
}

// SetWall marks p as wall or floor. Out-of-bounds positions are ignored.
func (g *Grid) SetWall(p Position, wall bool) {
	if g.InBounds(p) {
		g.walls[p.Y*g.width+p.X] = wall
	}
}

// HasLineOfSight reports whether no wall lies strictly between a and b on the
// Bresenham line joining them.
//
// Postcondition: false when either endpoint is out of bounds.
func (g *Grid) HasLineOfSight(a, b Position) bool {
	if !g.InBounds(a) || !g.InBounds(b) {
		return false
	}
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	x, y := a.X, a.Y
	for {
		if x == b.X && y == b.Y {
			return true
		}
		if (x != a.X || y != a.Y) && g.walls[y*g.width+x] {
			return false
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// String renders the grid with '#' for walls and '.' for floor.
func (g *Grid) String() string {
	var sb strings.Builder
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if g.walls[y*g.width+x] {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		if y < g.height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
