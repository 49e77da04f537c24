package segmenter

import "github.com/arup/epaper/internal/geometry"

// mergePasses combines the passes into one candidate list. The first pass is
// accepted wholesale (the primary technique wins all conflicts); a later
// pass's box joins only when its overlap ratio against every already-accepted
// box stays at or below the threshold in both directions. Evaluation order is
// the deliberate tie-break between techniques.
func (p *Pipeline) mergePasses(passes [][]filtered) []filtered {
	if len(passes) == 0 {
		return nil
	}

	merged := append([]filtered(nil), passes[0]...)
	for _, pass := range passes[1:] {
		for _, c := range pass {
			if !p.overlapsAny(c, merged) {
				merged = append(merged, c)
			}
		}
	}
	return merged
}

func (p *Pipeline) overlapsAny(c filtered, accepted []filtered) bool {
	for _, a := range accepted {
		ra, rb := geometry.OverlapRatio(c.Box, a.Box)
		if ra > p.cfg.OverlapThreshold || rb > p.cfg.OverlapThreshold {
			return true
		}
	}
	return false
}
