package geometry

import "math"

// Rect is an axis-aligned rectangle in page coordinates.
// A valid Rect has X0 < X1 and Y0 < Y1.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// NewRect creates a rectangle, normalizing corner order.
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{
		X0: math.Min(x0, x1),
		Y0: math.Min(y0, y1),
		X1: math.Max(x0, x1),
		Y1: math.Max(y0, y1),
	}
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// Area returns the area of the rectangle.
func (r Rect) Area() float64 {
	return r.Width() * r.Height()
}

// Valid reports whether the rectangle has positive extent on both axes.
func (r Rect) Valid() bool {
	return r.X0 < r.X1 && r.Y0 < r.Y1
}

// AspectRatio returns width divided by height.
func (r Rect) AspectRatio() float64 {
	h := r.Height()
	if h == 0 {
		return 0
	}
	return r.Width() / h
}

// Intersect returns the intersection of two rectangles. If the rectangles
// do not overlap the result has zero or negative extent and Valid() is false.
func (r Rect) Intersect(other Rect) Rect {
	return Rect{
		X0: math.Max(r.X0, other.X0),
		Y0: math.Max(r.Y0, other.Y0),
		X1: math.Min(r.X1, other.X1),
		Y1: math.Min(r.Y1, other.Y1),
	}
}

// ContainsStrict reports whether other lies strictly inside r on all four
// sides. Shared edges do not count as containment.
func (r Rect) ContainsStrict(other Rect) bool {
	return other.X0 > r.X0 && other.Y0 > r.Y0 &&
		other.X1 < r.X1 && other.Y1 < r.Y1
}

// AreaRatio returns the area of box as a fraction of the page area.
func AreaRatio(box, page Rect) float64 {
	pa := page.Area()
	if pa == 0 {
		return 0
	}
	return box.Area() / pa
}

// OverlapRatio returns the intersection area of a and b divided by the area
// of a and by the area of b. The pair form is deliberate: containment and
// one-sided dominance matter more here than a symmetric IoU.
func OverlapRatio(a, b Rect) (float64, float64) {
	inter := a.Intersect(b)
	if !inter.Valid() {
		return 0, 0
	}
	ia := inter.Area()
	aa, ab := a.Area(), b.Area()
	if aa == 0 || ab == 0 {
		return 0, 0
	}
	return ia / aa, ia / ab
}

// EdgeProximityCoverage estimates how close the box's four edges are, on
// average, to the page's four edges. A box coincident with the page yields
// a value near 1; a small centered box yields a much lower value.
//
// Note this is an edge-closeness heuristic, not true page-area coverage: it
// averages normalized edge distances, so a large box hugging only some edges
// can score lower than its actual coverage, and a large centered box can
// score higher.
func EdgeProximityCoverage(box, page Rect) float64 {
	pw, ph := page.Width(), page.Height()
	if pw == 0 || ph == 0 {
		return 0
	}

	left := math.Abs(box.X0-page.X0) / pw
	right := math.Abs(box.X1-page.X1) / pw
	top := math.Abs(box.Y0-page.Y0) / ph
	bottom := math.Abs(box.Y1-page.Y1) / ph

	avg := (left + right + top + bottom) / 4
	return 1 - avg
}
