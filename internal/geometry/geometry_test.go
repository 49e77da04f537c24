package geometry

import (
	"math"
	"testing"
)

func TestRectBasics(t *testing.T) {
	r := NewRect(400, 500, 100, 200)

	if r.X0 != 100 || r.Y0 != 200 || r.X1 != 400 || r.Y1 != 500 {
		t.Errorf("NewRect did not normalize corners: %+v", r)
	}
	if r.Width() != 300 || r.Height() != 300 {
		t.Errorf("Expected 300x300, got %fx%f", r.Width(), r.Height())
	}
	if r.Area() != 90000 {
		t.Errorf("Expected area 90000, got %f", r.Area())
	}
	if !r.Valid() {
		t.Error("Expected rect to be valid")
	}
}

func TestIntersect(t *testing.T) {
	a := Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}
	b := Rect{X0: 50, Y0: 50, X1: 150, Y1: 150}

	inter := a.Intersect(b)
	if inter.X0 != 50 || inter.Y0 != 50 || inter.X1 != 100 || inter.Y1 != 100 {
		t.Errorf("Unexpected intersection: %+v", inter)
	}

	// Disjoint rectangles produce an invalid intersection
	c := Rect{X0: 200, Y0: 200, X1: 300, Y1: 300}
	if a.Intersect(c).Valid() {
		t.Error("Expected invalid intersection for disjoint rects")
	}
}

func TestContainsStrict(t *testing.T) {
	outer := Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}

	tests := []struct {
		name  string
		inner Rect
		want  bool
	}{
		{"strictly inside", Rect{X0: 10, Y0: 10, X1: 90, Y1: 90}, true},
		{"shared left edge", Rect{X0: 0, Y0: 10, X1: 90, Y1: 90}, false},
		{"identical", outer, false},
		{"overlapping", Rect{X0: 50, Y0: 50, X1: 150, Y1: 150}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outer.ContainsStrict(tt.inner); got != tt.want {
				t.Errorf("ContainsStrict(%+v) = %v, want %v", tt.inner, got, tt.want)
			}
		})
	}
}

func TestAreaRatio(t *testing.T) {
	page := Rect{X0: 0, Y0: 0, X1: 1000, Y1: 1000}
	box := Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}

	if got := AreaRatio(box, page); math.Abs(got-0.01) > 1e-9 {
		t.Errorf("Expected area ratio 0.01, got %f", got)
	}
}

func TestOverlapRatioPair(t *testing.T) {
	a := Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}
	b := Rect{X0: 0, Y0: 0, X1: 200, Y1: 100}

	ra, rb := OverlapRatio(a, b)
	if math.Abs(ra-1.0) > 1e-9 {
		t.Errorf("Expected overlap/area(a) = 1.0, got %f", ra)
	}
	if math.Abs(rb-0.5) > 1e-9 {
		t.Errorf("Expected overlap/area(b) = 0.5, got %f", rb)
	}

	// No overlap
	c := Rect{X0: 500, Y0: 500, X1: 600, Y1: 600}
	ra, rb = OverlapRatio(a, c)
	if ra != 0 || rb != 0 {
		t.Errorf("Expected zero overlap, got %f, %f", ra, rb)
	}
}

func TestEdgeProximityCoverage(t *testing.T) {
	page := Rect{X0: 0, Y0: 0, X1: 1000, Y1: 800}

	// A box equal to the page has coverage 1
	if got := EdgeProximityCoverage(page, page); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Full-page box: expected coverage 1.0, got %f", got)
	}

	// A small centered box scores much lower
	small := Rect{X0: 450, Y0: 350, X1: 550, Y1: 450}
	got := EdgeProximityCoverage(small, page)
	if got > 0.6 {
		t.Errorf("Small centered box: expected coverage well below threshold, got %f", got)
	}

	// A box hugging all four borders scores above the 0.9 rejection threshold
	// even though its area ratio looks article-sized on a tall page.
	hugging := Rect{X0: 10, Y0: 10, X1: 990, Y1: 790}
	got = EdgeProximityCoverage(hugging, page)
	if got <= 0.9 {
		t.Errorf("Border-hugging box: expected coverage > 0.9, got %f", got)
	}
}
