package segmenter

import (
	"fmt"
	"strings"
)

// label assigns stable per-page sequence numbers in detection order and
// derives the publish URL for each surviving candidate. The sequence counter
// is page-local; nothing carries over to the next page.
func (p *Pipeline) label(page Page, merged []filtered) []Region {
	regions := make([]Region, 0, len(merged))
	for i, c := range merged {
		seq := i + 1
		regions = append(regions, Region{
			Score:          c.Score,
			Label:          fmt.Sprintf("article_%d", seq),
			Source:         c.Source,
			SequenceNumber: seq,
			Box:            c.Box,
			OriginalBox:    c.Original,
			URL:            BuildURL(p.cfg.BaseURL, p.cfg.Date, page.Number, seq),
		})
	}
	return regions
}

// BuildURL derives the published location of an article crop. Pure: the same
// date, page, and sequence always produce the same URL.
//
//	{base}/{year}/{yyyymmdd}/page{N}-article{M}.jpg
//
// The date is expected in YYYY-MM-DD form (config validation enforces it);
// anything shorter is used as-is for both path segments.
func BuildURL(base, date string, pageNumber, sequenceNumber int) string {
	yyyymmdd := strings.ReplaceAll(date, "-", "")
	year := yyyymmdd
	if len(year) > 4 {
		year = year[:4]
	}
	return fmt.Sprintf("%s/%s/%s/page%d-article%d.jpg", base, year, yyyymmdd, pageNumber, sequenceNumber)
}
