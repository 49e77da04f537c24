package detector

import (
	"fmt"
	"image"

	"github.com/arup/epaper/internal/config"
	"github.com/arup/epaper/internal/geometry"
)

// Technique is one independent binarization feeding the contour extractor.
type Technique interface {
	Name() string
	Binarize(gray *image.Gray, p config.ContourParams) *image.Gray
}

type edgeTechnique struct{}

func (edgeTechnique) Name() string { return SourceEdge }

func (edgeTechnique) Binarize(gray *image.Gray, p config.ContourParams) *image.Gray {
	return sobelEdges(gray, p.EdgeThreshold)
}

type adaptiveTechnique struct{}

func (adaptiveTechnique) Name() string { return SourceAdaptive }

func (adaptiveTechnique) Binarize(gray *image.Gray, p config.ContourParams) *image.Gray {
	return adaptiveThreshold(gray, p.AdaptiveBlockSize, p.AdaptiveConstant)
}

type morphologyTechnique struct{}

func (morphologyTechnique) Name() string { return SourceMorphology }

func (morphologyTechnique) Binarize(gray *image.Gray, p config.ContourParams) *image.Gray {
	return closing(otsuThreshold(gray), p.MorphKernelSize)
}

// Pass is the outcome of one technique on one page. Binary is kept for the
// debug artifacts; Err marks a skipped technique, never a page failure.
type Pass struct {
	Technique  string
	Candidates []Candidate
	Binary     *image.Gray
	Err        error
}

// ContourDetector produces candidates from a rasterized page by running each
// technique's binarization and extracting connected foreground components.
type ContourDetector struct {
	Params     config.ContourParams
	Techniques []Technique
}

// NewContourDetector creates a detector with the configured technique order:
// adaptive first (the consensus primary), then edge, then optionally
// morphology. The order is a deliberate tie-break downstream.
func NewContourDetector(p config.ContourParams) *ContourDetector {
	techniques := []Technique{adaptiveTechnique{}, edgeTechnique{}}
	if p.UseMorphology {
		techniques = append(techniques, morphologyTechnique{})
	}
	return &ContourDetector{Params: p, Techniques: techniques}
}

// Detect runs every technique over the page raster. A technique that fails
// is skipped; its Pass carries the error so the caller can log it. With all
// techniques failed the page simply yields zero candidates.
func (d *ContourDetector) Detect(img image.Image, ignoreHeight int) []Pass {
	gray := maskTop(toGrayscale(img), ignoreHeight)

	passes := make([]Pass, 0, len(d.Techniques))
	for _, tech := range d.Techniques {
		passes = append(passes, d.runTechnique(tech, gray, ignoreHeight))
	}
	return passes
}

func (d *ContourDetector) runTechnique(tech Technique, gray *image.Gray, ignoreHeight int) (pass Pass) {
	pass.Technique = tech.Name()

	// A degenerate raster must cost one technique, not the page.
	defer func() {
		if r := recover(); r != nil {
			pass.Candidates = nil
			pass.Err = fmt.Errorf("technique %s: %v", tech.Name(), r)
		}
	}()

	binary := tech.Binarize(gray, d.Params)
	pass.Binary = binary
	pass.Candidates = d.extract(binary, tech.Name(), ignoreHeight)
	return pass
}

// extract finds connected foreground components and keeps the ones that look
// like article blocks. Components are outermost by construction (nested
// content merges into or is suppressed against its surrounding component by
// the containment stage downstream).
func (d *ContourDetector) extract(binary *image.Gray, technique string, ignoreHeight int) []Candidate {
	bounds := binary.Bounds()
	pageArea := float64(bounds.Dx() * bounds.Dy())
	maxArea := pageArea * 0.9

	visited := make([]bool, bounds.Dx()*bounds.Dy())

	var candidates []Candidate
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			idx := (y-bounds.Min.Y)*bounds.Dx() + (x - bounds.Min.X)
			if visited[idx] || binary.GrayAt(x, y).Y <= 128 {
				continue
			}

			comp := traceComponent(binary, visited, x, y)

			// Block area is measured on the bounding rectangle: article
			// regions are rectangular, and ring-like components (a box
			// border around text) would otherwise undercount.
			area := float64(comp.rect.Dx() * comp.rect.Dy())
			if area < d.Params.MinContourArea || area > maxArea {
				continue
			}
			if float64(comp.perimeter) < d.Params.MinPerimeter {
				continue
			}
			aspect := float64(comp.rect.Dx()) / float64(comp.rect.Dy())
			if aspect < d.Params.MinAspectRatio || aspect > d.Params.MaxAspectRatio {
				continue
			}
			if comp.rect.Min.Y < ignoreHeight {
				continue
			}

			candidates = append(candidates, Candidate{
				Box: geometry.Rect{
					X0: float64(comp.rect.Min.X),
					Y0: float64(comp.rect.Min.Y),
					X1: float64(comp.rect.Max.X),
					Y1: float64(comp.rect.Max.Y),
				},
				Outline: comp.outline,
				Source:  technique,
				Score:   scoreFor(technique),
			})
		}
	}

	return candidates
}

type component struct {
	rect      image.Rectangle
	perimeter int // boundary pixel count, stands in for contour arc length
	outline   []image.Point
}

// traceComponent flood-fills one 4-connected foreground component, tracking
// its bounding rectangle and boundary pixels.
func traceComponent(binary *image.Gray, visited []bool, startX, startY int) component {
	bounds := binary.Bounds()
	w := bounds.Dx()
	minX, minY := startX, startY
	maxX, maxY := startX, startY

	var comp component
	stack := []image.Point{{X: startX, Y: startY}}
	visited[(startY-bounds.Min.Y)*w+(startX-bounds.Min.X)] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := p.X, p.Y

		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}

		boundary := false
		for _, n := range [4]image.Point{{x + 1, y}, {x - 1, y}, {x, y + 1}, {x, y - 1}} {
			if n.X < bounds.Min.X || n.X >= bounds.Max.X || n.Y < bounds.Min.Y || n.Y >= bounds.Max.Y {
				boundary = true
				continue
			}
			if binary.GrayAt(n.X, n.Y).Y <= 128 {
				boundary = true
				continue
			}
			idx := (n.Y-bounds.Min.Y)*w + (n.X - bounds.Min.X)
			if !visited[idx] {
				visited[idx] = true
				stack = append(stack, n)
			}
		}

		if boundary {
			comp.perimeter++
			comp.outline = append(comp.outline, p)
		}
	}

	comp.rect = image.Rect(minX, minY, maxX+1, maxY+1)
	return comp
}
