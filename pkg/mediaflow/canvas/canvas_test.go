package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rmurphy/mediaflow/pkg/mediaflow"
)

// TestViewport_RoundTrip verifies ToCanvas and ToScreen invert each other.
func TestViewport_RoundTrip(t *testing.T) {
	v := Viewport{Offset: Point{X: 120, Y: -40}, Zoom: 1.5}
	p := Point{X: 333, Y: 777}

	back := v.ToScreen(v.ToCanvas(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
}

// TestViewport_Identity maps points to themselves at default settings.
func TestViewport_Identity(t *testing.T) {
	v := NewViewport()
	p := Point{X: 50, Y: 60}
	assert.Equal(t, p, v.ToCanvas(p))
	assert.Equal(t, p, v.ToScreen(p))
}

// TestViewport_Pan shifts screen coordinates, not canvas content.
func TestViewport_Pan(t *testing.T) {
	v := NewViewport().Pan(100, 50)

	got := v.ToCanvas(Point{X: 100, Y: 50})
	assert.Equal(t, Point{X: 0, Y: 0}, got)
}

// TestViewport_ZoomAt keeps the anchor's canvas point stationary.
func TestViewport_ZoomAt(t *testing.T) {
	v := Viewport{Offset: Point{X: 10, Y: 20}, Zoom: 1}
	anchor := Point{X: 400, Y: 300}
	before := v.ToCanvas(anchor)

	zoomed := v.ZoomAt(anchor, 2)
	after := zoomed.ToCanvas(anchor)

	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
	assert.Equal(t, 2.0, zoomed.Zoom)
}

// TestViewport_ZoomAt_Clamps enforces the zoom range.
func TestViewport_ZoomAt_Clamps(t *testing.T) {
	v := NewViewport()

	for i := 0; i < 20; i++ {
		v = v.ZoomAt(Point{}, 2)
	}
	assert.Equal(t, MaxZoom, v.Zoom)

	for i := 0; i < 40; i++ {
		v = v.ZoomAt(Point{}, 0.5)
	}
	assert.Equal(t, MinZoom, v.Zoom)
}

// TestEdgePath_Shape verifies the cubic bezier structure and horizontal
// tangents.
func TestEdgePath_Shape(t *testing.T) {
	path := EdgePath(Point{X: 0, Y: 0}, Point{X: 400, Y: 200})
	assert.Equal(t, "M 0 0 C 200 0, 200 200, 400 200", path)
}

// TestEdgePath_MinimumCurvature keeps short edges visibly curved.
func TestEdgePath_MinimumCurvature(t *testing.T) {
	path := EdgePath(Point{X: 0, Y: 0}, Point{X: 20, Y: 0})
	assert.Equal(t, "M 0 0 C 50 0, -30 0, 20 0", path)
}

// TestEdgePath_FractionalCoordinates formats non-integer points compactly.
func TestEdgePath_FractionalCoordinates(t *testing.T) {
	path := EdgePath(Point{X: 0.5, Y: 1.25}, Point{X: 300.5, Y: 10})
	assert.Contains(t, path, "M 0.5 1.25")
	assert.Contains(t, path, "300.5 10")
}

// TestNodePoint reads the stored position.
func TestNodePoint(t *testing.T) {
	n := mediaflow.NewNode(mediaflow.NodeImage, "n", mediaflow.Position{X: 7, Y: 9})
	assert.Equal(t, Point{X: 7, Y: 9}, NodePoint(n))
}
