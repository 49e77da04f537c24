package detector

import (
	"github.com/arup/epaper/internal/geometry"
	"github.com/arup/epaper/internal/source"
)

// MetadataDetector turns embedded objects from the page description into
// candidates: one per image object, one per detected table. No pixels are
// touched; the upstream layout parser already did the work.
type MetadataDetector struct{}

// Detect emits image candidates first, then table candidates, preserving the
// sidecar order. The labeler depends on this ordering when numbering regions.
func (MetadataDetector) Detect(objects *source.PageObjects) []Candidate {
	if objects == nil {
		return nil
	}

	candidates := make([]Candidate, 0, len(objects.Images)+len(objects.Tables))
	for _, box := range objects.Images {
		candidates = append(candidates, Candidate{
			Box:    geometry.NewRect(box.X0, box.Y0, box.X1, box.Y1),
			Source: SourceImage,
			Score:  scoreFor(SourceImage),
		})
	}
	for _, box := range objects.Tables {
		candidates = append(candidates, Candidate{
			Box:    geometry.NewRect(box.X0, box.Y0, box.X1, box.Y1),
			Source: SourceTable,
			Score:  scoreFor(SourceTable),
		})
	}
	return candidates
}
