// Package segmenter turns raw candidate rectangles into a clean,
// non-overlapping, confidence-ranked list of article regions. Detection is a
// pure function of the page and configuration: no drawing, no I/O, no state
// shared between pages.
package segmenter

import (
	"github.com/arup/epaper/internal/config"
	"github.com/arup/epaper/internal/detector"
	"github.com/arup/epaper/internal/geometry"
)

// Status tracks a page through the pipeline. Done is terminal; reaching it
// resets nothing globally because every counter is page-local.
type Status int

const (
	Unprocessed Status = iota
	CandidatesExtracted
	Filtered
	Merged
	Labeled
	Done
)

func (s Status) String() string {
	switch s {
	case Unprocessed:
		return "unprocessed"
	case CandidatesExtracted:
		return "candidates_extracted"
	case Filtered:
		return "filtered"
	case Merged:
		return "merged"
	case Labeled:
		return "labeled"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Page is the geometric description of one page under processing. Width and
// Height are in the coordinate units the candidates were produced in.
type Page struct {
	Number    int // 1-based
	Width     float64
	Height    float64
	FirstPage bool
}

// TopMargin returns the excluded top-of-page height for this page under the
// given margin percentage.
func (p Page) TopMargin(marginPercent float64) float64 {
	return p.Height * marginPercent / 100
}

func (p Page) rect() geometry.Rect {
	return geometry.Rect{X0: 0, Y0: 0, X1: p.Width, Y1: p.Height}
}

// Region is a final, labeled article bounding box. Regions are immutable
// once emitted; the page owns its list and discards it when processing moves
// on.
type Region struct {
	Score          float64       `yaml:"score"`
	Label          string        `yaml:"label"`
	Source         string        `yaml:"source"`
	SequenceNumber int           `yaml:"sequence_number"`
	Box            geometry.Rect `yaml:"box"`
	OriginalBox    geometry.Rect `yaml:"original_box"`
	URL            string        `yaml:"url"`
}

// Result is the outcome of one page's pipeline. Err marks a page-level
// failure: the page still reaches Done, with zero regions, and the batch
// moves on.
type Result struct {
	PageNumber int
	Status     Status
	Regions    []Region
	Err        error
}

// Failed builds the pass-through result for a page whose pipeline errored.
func Failed(pageNumber int, err error) Result {
	return Result{PageNumber: pageNumber, Status: Done, Err: err}
}

// Pass is one detection pass: all candidates produced together by a single
// detector run (one contour technique, or the whole metadata read).
type Pass struct {
	Name       string
	Candidates []detector.Candidate
}

// Pipeline applies the shared filter, suppression, merge, and labeling
// stages. One Pipeline serves any number of pages; it holds only read-only
// configuration.
type Pipeline struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Run executes the pipeline for one page. The first pass is the consensus
// primary; later passes only contribute boxes that do not substantially
// overlap anything already accepted.
func (p *Pipeline) Run(page Page, passes []Pass) Result {
	res := Result{PageNumber: page.Number, Status: CandidatesExtracted}

	topMargin := page.TopMargin(p.cfg.MarginPercent(page.FirstPage))

	filteredPasses := make([][]filtered, 0, len(passes))
	for _, pass := range passes {
		kept := p.filterPass(pass.Candidates, page, topMargin)
		kept = suppressContained(kept)
		filteredPasses = append(filteredPasses, kept)
	}
	res.Status = Filtered

	merged := p.mergePasses(filteredPasses)
	res.Status = Merged

	res.Regions = p.label(page, merged)
	res.Status = Labeled

	res.Status = Done
	return res
}
