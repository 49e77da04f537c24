package segmenter

// suppressContained removes candidates nested strictly inside another
// candidate of the same detection pass: smaller spurious boxes inside a
// correctly detected article border. Pairwise and quadratic, which is fine
// for the tens of candidates a page produces.
func suppressContained(pass []filtered) []filtered {
	var kept []filtered
	for i, c := range pass {
		contained := false
		for j, other := range pass {
			if i == j {
				continue
			}
			if other.Box.ContainsStrict(c.Box) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, c)
		}
	}
	return kept
}
