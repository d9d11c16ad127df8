// Package grid maps between edge identifiers, their dot-grid coordinates, and
// the boxes they border. All operations are pure; out-of-range identifiers are
// programmer errors and panic.
package grid

import "fmt"

// TeamCount is the number of competing teams.
const TeamCount = 4

// Params fixes the grid geometry for one deployment. Width and Height count
// boxes, not dots.
type Params struct {
	Width  int
	Height int
}

// Validate reports whether the parameters describe a usable grid.
func (p Params) Validate() error {
	if p.Width <= 0 {
		return fmt.Errorf("grid width must be positive, got %d", p.Width)
	}
	if p.Height <= 0 {
		return fmt.Errorf("grid height must be positive, got %d", p.Height)
	}
	return nil
}

// HorizontalCount returns the number of horizontal edges.
func (p Params) HorizontalCount() int { return p.Width * (p.Height + 1) }

// VerticalCount returns the number of vertical edges.
func (p Params) VerticalCount() int { return (p.Width + 1) * p.Height }

// EdgeCount returns the total number of edges.
func (p Params) EdgeCount() int { return p.HorizontalCount() + p.VerticalCount() }

// BoxCount returns the total number of boxes.
func (p Params) BoxCount() int { return p.Width * p.Height }

// Edge locates one edge on the dot grid. A horizontal edge at (x, y) spans dot
// (x, y) to (x+1, y); a vertical edge spans dot (x, y) to (x, y+1).
type Edge struct {
	X          int
	Y          int
	Horizontal bool
}

// EdgeCoords returns the coordinates of an edge. Horizontal edges occupy
// identifiers [0, HorizontalCount) in row-major order; vertical edges follow.
func (p Params) EdgeCoords(edgeID int) Edge {
	p.mustValidEdge(edgeID)
	if edgeID < p.HorizontalCount() {
		return Edge{X: edgeID % p.Width, Y: edgeID / p.Width, Horizontal: true}
	}
	v := edgeID - p.HorizontalCount()
	return Edge{X: v % (p.Width + 1), Y: v / (p.Width + 1)}
}

// CoordsToEdge is the exact inverse of EdgeCoords.
func (p Params) CoordsToEdge(e Edge) int {
	if e.Horizontal {
		if e.X < 0 || e.X >= p.Width || e.Y < 0 || e.Y > p.Height {
			panic(fmt.Sprintf("grid: horizontal edge (%d,%d) out of range for %dx%d grid", e.X, e.Y, p.Width, p.Height))
		}
		return e.Y*p.Width + e.X
	}
	if e.X < 0 || e.X > p.Width || e.Y < 0 || e.Y >= p.Height {
		panic(fmt.Sprintf("grid: vertical edge (%d,%d) out of range for %dx%d grid", e.X, e.Y, p.Width, p.Height))
	}
	return p.HorizontalCount() + e.Y*(p.Width+1) + e.X
}

// AdjacentBoxes returns the boxes bordered by an edge: two for a strictly
// interior edge, one for a boundary edge.
func (p Params) AdjacentBoxes(edgeID int) []int {
	e := p.EdgeCoords(edgeID)
	boxes := make([]int, 0, 2)
	if e.Horizontal {
		if e.Y > 0 {
			boxes = append(boxes, p.boxID(e.X, e.Y-1))
		}
		if e.Y < p.Height {
			boxes = append(boxes, p.boxID(e.X, e.Y))
		}
		return boxes
	}
	if e.X > 0 {
		boxes = append(boxes, p.boxID(e.X-1, e.Y))
	}
	if e.X < p.Width {
		boxes = append(boxes, p.boxID(e.X, e.Y))
	}
	return boxes
}

// BoxEdges returns the four edges bordering a box as [top, bottom, left, right].
func (p Params) BoxEdges(boxID int) [4]int {
	if boxID < 0 || boxID >= p.BoxCount() {
		panic(fmt.Sprintf("grid: box id %d out of range [0, %d)", boxID, p.BoxCount()))
	}
	x := boxID % p.Width
	y := boxID / p.Width
	return [4]int{
		p.CoordsToEdge(Edge{X: x, Y: y, Horizontal: true}),
		p.CoordsToEdge(Edge{X: x, Y: y + 1, Horizontal: true}),
		p.CoordsToEdge(Edge{X: x, Y: y}),
		p.CoordsToEdge(Edge{X: x + 1, Y: y}),
	}
}

// ValidEdge reports whether edgeID addresses an edge on this grid.
func (p Params) ValidEdge(edgeID int) bool {
	return edgeID >= 0 && edgeID < p.EdgeCount()
}

func (p Params) boxID(x, y int) int {
	return y*p.Width + x
}

func (p Params) mustValidEdge(edgeID int) {
	if !p.ValidEdge(edgeID) {
		panic(fmt.Sprintf("grid: edge id %d out of range [0, %d)", edgeID, p.EdgeCount()))
	}
}
