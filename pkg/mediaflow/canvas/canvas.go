// Package canvas provides the pure geometry behind the workspace
// editor: screen/canvas coordinate transforms for an infinite pannable
// surface, and SVG path construction for rendered edges. Nothing here
// touches graph semantics.
package canvas

import (
	"fmt"
	"math"

	"github.com/rmurphy/mediaflow/pkg/mediaflow"
)

// Zoom limits. ZoomAt clamps to this range.
const (
	MinZoom = 0.1
	MaxZoom = 4.0
)

// Point is a position in either coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport maps between screen space (pixels, origin at the top-left of
// the visible area) and canvas space (the infinite surface nodes live
// on). Offset is the canvas-space translation; Zoom the scale factor.
type Viewport struct {
	Offset Point   `json:"offset"`
	Zoom   float64 `json:"zoom"`
}

// NewViewport returns an identity viewport: no pan, 1:1 zoom.
func NewViewport() Viewport {
	return Viewport{Zoom: 1}
}

// ToCanvas converts a screen point to canvas coordinates.
func (v Viewport) ToCanvas(p Point) Point {
	return Point{
		X: (p.X - v.Offset.X) / v.Zoom,
		Y: (p.Y - v.Offset.Y) / v.Zoom,
	}
}

// ToScreen converts a canvas point to screen coordinates.
func (v Viewport) ToScreen(p Point) Point {
	return Point{
		X: p.X*v.Zoom + v.Offset.X,
		Y: p.Y*v.Zoom + v.Offset.Y,
	}
}

// Pan translates the viewport by a screen-space delta.
func (v Viewport) Pan(dx, dy float64) Viewport {
	v.Offset.X += dx
	v.Offset.Y += dy
	return v
}

// ZoomAt scales the viewport by factor, keeping the canvas point under
// the given screen point stationary. The resulting zoom is clamped to
// [MinZoom, MaxZoom].
func (v Viewport) ZoomAt(anchor Point, factor float64) Viewport {
	newZoom := clamp(v.Zoom*factor, MinZoom, MaxZoom)
	if newZoom == v.Zoom {
		return v
	}

	// Solve for the offset that keeps anchor over the same canvas point.
	canvas := v.ToCanvas(anchor)
	v.Zoom = newZoom
	v.Offset.X = anchor.X - canvas.X*newZoom
	v.Offset.Y = anchor.Y - canvas.Y*newZoom
	return v
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

// NodePoint converts a node's stored position to a canvas Point.
func NodePoint(n *mediaflow.Node) Point {
	return Point{X: n.Position.X, Y: n.Position.Y}
}

// EdgePath returns the SVG path for an edge drawn from a source anchor
// to a target anchor in canvas space: a cubic bezier with horizontal
// tangents, matching the left-to-right flow of the editor. The control
// point distance grows with horizontal separation but never collapses,
// so short edges still curve visibly.
func EdgePath(from, to Point) string {
	dist := math.Abs(to.X-from.X) / 2
	if dist < 50 {
		dist = 50
	}

	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		coord(from.X), coord(from.Y),
		coord(from.X+dist), coord(from.Y),
		coord(to.X-dist), coord(to.Y),
		coord(to.X), coord(to.Y),
	)
}

// coord formats a coordinate with minimal digits, trimming trailing zeros.
func coord(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
