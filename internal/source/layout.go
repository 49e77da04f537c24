package source

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout is a YAML sidecar describing the structured content of a document:
// the bounding boxes of embedded image objects and detected tables, per page,
// as exported by the upstream PDF layout parser. The metadata detection
// strategy reads candidates straight from it.
type Layout struct {
	Pages []PageObjects `yaml:"pages"`
}

// PageObjects lists the embedded objects of one page, in the coordinate
// units of the page description.
type PageObjects struct {
	Number int     `yaml:"number"` // 1-based
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Images []Box   `yaml:"images"`
	Tables []Box   `yaml:"tables"`
}

// Box is an object bounding box in the sidecar file.
type Box struct {
	X0 float64 `yaml:"x0"`
	Y0 float64 `yaml:"y0"`
	X1 float64 `yaml:"x1"`
	Y1 float64 `yaml:"y1"`
}

// ReadLayout reads a layout sidecar from a YAML file.
func ReadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", path, err)
	}
	return &layout, nil
}

// Page returns the objects of a page by its 1-based number, or nil when the
// sidecar has no entry for it.
func (l *Layout) Page(number int) *PageObjects {
	for i := range l.Pages {
		if l.Pages[i].Number == number {
			return &l.Pages[i]
		}
	}
	return nil
}
