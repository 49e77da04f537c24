package detector

import (
	"image"

	"github.com/arup/epaper/internal/geometry"
)

// Strategy selects how raw candidates are produced from a page.
type Strategy string

const (
	// MetadataBased reads embedded image and table objects from the page
	// description (a layout sidecar exported by the PDF parser).
	MetadataBased Strategy = "metadata"

	// ContourHybrid rasterizes the page and merges the candidates of
	// several independent contour-extraction techniques.
	ContourHybrid Strategy = "contour"
)

// Candidate source tags. Metadata candidates carry the object kind; contour
// candidates carry the technique that produced them.
const (
	SourceImage      = "image"
	SourceTable      = "table"
	SourceEdge       = "edge"
	SourceAdaptive   = "adaptive"
	SourceMorphology = "morphology"
)

// Candidate is an unfiltered rectangle proposed by a detector, before
// geometric and consensus filtering.
type Candidate struct {
	Box     geometry.Rect
	Outline []image.Point // component boundary, contour strategy only
	Source  string
	Score   float64
}

// scoreFor maps a source tag to its confidence contribution. Directly
// embedded image objects rank highest; inferred regions rank by how
// aggressive the technique is.
func scoreFor(source string) float64 {
	switch source {
	case SourceImage:
		return 1.0
	case SourceTable:
		return 0.9
	case SourceAdaptive:
		return 0.8
	case SourceEdge:
		return 0.7
	case SourceMorphology:
		return 0.6
	default:
		return 0.5
	}
}
