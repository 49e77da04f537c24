package segmenter

import (
	"github.com/arup/epaper/internal/detector"
	"github.com/arup/epaper/internal/geometry"
)

// filtered is a candidate that survived the geometric filter. Box is the
// margin-clamped rectangle used for rendering and links; Original keeps the
// unclamped rectangle for high-fidelity extraction.
type filtered struct {
	Box      geometry.Rect
	Original geometry.Rect
	Source   string
	Score    float64
}

// filterPass applies the geometric filter uniformly, whatever detector
// produced the candidates:
//
//  1. boxes entirely above the margin are dropped;
//  2. boxes straddling the margin are clipped into the visible zone;
//  3. the area ratio must fall inside the configured bounds;
//  4. boxes hugging all four page edges are dropped even when their area
//     ratio looks article-sized.
func (p *Pipeline) filterPass(candidates []detector.Candidate, page Page, topMargin float64) []filtered {
	pageRect := page.rect()

	var kept []filtered
	for _, c := range candidates {
		box := c.Box
		original := c.Box

		if box.Y1 <= topMargin {
			continue
		}
		if box.Y0 < topMargin {
			box.Y0 = topMargin
		}

		ratio := geometry.AreaRatio(box, pageRect)
		if ratio < p.cfg.MinAreaRatio || ratio > p.cfg.MaxAreaRatio {
			continue
		}

		if geometry.EdgeProximityCoverage(box, pageRect) > p.cfg.PageCoverageThreshold {
			continue
		}

		kept = append(kept, filtered{
			Box:      box,
			Original: original,
			Source:   c.Source,
			Score:    c.Score,
		})
	}
	return kept
}
