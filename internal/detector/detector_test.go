package detector

import (
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"

	"github.com/arup/epaper/internal/config"
	"github.com/arup/epaper/internal/source"
)

// newspaperPage builds a white page with one solid dark block, simulating a
// bordered article below the masthead.
func newspaperPage(w, h int, block image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	for y := block.Min.Y; y < block.Max.Y; y++ {
		for x := block.Min.X; x < block.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 0})
		}
	}
	return img
}

func TestContourDetectorFindsBlock(t *testing.T) {
	block := image.Rect(100, 300, 400, 700)
	img := newspaperPage(600, 800, block)

	params := config.Default().Contour
	params.UseMorphology = true
	det := NewContourDetector(params)

	passes := det.Detect(img, 100)
	if len(passes) != 3 {
		t.Fatalf("Expected 3 technique passes, got %d", len(passes))
	}

	for _, pass := range passes {
		t.Run(pass.Technique, func(t *testing.T) {
			if pass.Err != nil {
				t.Fatalf("Technique failed: %v", pass.Err)
			}
			if len(pass.Candidates) != 1 {
				t.Fatalf("Expected 1 candidate, got %d", len(pass.Candidates))
			}

			c := pass.Candidates[0]
			const tol = 10.0
			if math.Abs(c.Box.X0-100) > tol || math.Abs(c.Box.Y0-300) > tol ||
				math.Abs(c.Box.X1-400) > tol || math.Abs(c.Box.Y1-700) > tol {
				t.Errorf("Candidate box %+v too far from block %v", c.Box, block)
			}
			if c.Source != pass.Technique {
				t.Errorf("Expected source %s, got %s", pass.Technique, c.Source)
			}
			if c.Score <= 0 || c.Score > 1 {
				t.Errorf("Score out of range: %f", c.Score)
			}
			if len(c.Outline) == 0 {
				t.Error("Expected a non-empty outline")
			}
			t.Logf("%s: box %+v, score %.2f, %d outline points",
				pass.Technique, c.Box, c.Score, len(c.Outline))
		})
	}
}

func TestContourDetectorMarginBlock(t *testing.T) {
	// The block sits entirely above ignoreHeight; the masked raster must
	// yield nothing.
	block := image.Rect(100, 20, 400, 180)
	img := newspaperPage(600, 800, block)

	det := NewContourDetector(config.Default().Contour)
	for _, pass := range det.Detect(img, 200) {
		if len(pass.Candidates) != 0 {
			t.Errorf("%s: expected no candidates above the margin, got %d",
				pass.Technique, len(pass.Candidates))
		}
	}
}

// explodingTechnique stands in for a binarization that chokes on a
// degenerate raster.
type explodingTechnique struct{}

func (explodingTechnique) Name() string { return "exploding" }

func (explodingTechnique) Binarize(gray *image.Gray, p config.ContourParams) *image.Gray {
	panic("degenerate raster")
}

func TestContourDetectorTechniqueFailure(t *testing.T) {
	img := newspaperPage(600, 800, image.Rect(100, 300, 400, 700))

	det := NewContourDetector(config.Default().Contour)
	det.Techniques = append(det.Techniques, explodingTechnique{})

	passes := det.Detect(img, 100)
	if len(passes) != 3 {
		t.Fatalf("Expected 3 passes, got %d", len(passes))
	}

	// The failing technique costs itself, not the page: its pass carries the
	// error, the others still produce candidates.
	last := passes[len(passes)-1]
	if last.Err == nil {
		t.Error("Expected the exploding technique's pass to carry an error")
	}
	if len(last.Candidates) != 0 {
		t.Errorf("Expected no candidates from the failed technique, got %d", len(last.Candidates))
	}
	for _, pass := range passes[:2] {
		if pass.Err != nil {
			t.Errorf("%s: unexpected error: %v", pass.Technique, pass.Err)
		}
		if len(pass.Candidates) != 1 {
			t.Errorf("%s: expected 1 candidate, got %d", pass.Technique, len(pass.Candidates))
		}
	}

	// With every technique failing the page simply yields zero candidates.
	det.Techniques = []Technique{explodingTechnique{}}
	for _, pass := range det.Detect(img, 100) {
		if pass.Err == nil || len(pass.Candidates) != 0 {
			t.Errorf("Expected a failed, empty pass, got err=%v candidates=%d",
				pass.Err, len(pass.Candidates))
		}
	}
}

func TestContourDetectorDeterminism(t *testing.T) {
	img := newspaperPage(600, 800, image.Rect(120, 250, 480, 720))
	det := NewContourDetector(config.Default().Contour)

	first := det.Detect(img, 100)
	second := det.Detect(img, 100)

	if len(first) != len(second) {
		t.Fatalf("Pass counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !reflect.DeepEqual(first[i].Candidates, second[i].Candidates) {
			t.Errorf("Pass %s: candidates differ between runs", first[i].Technique)
		}
	}
}

func TestMetadataDetector(t *testing.T) {
	objects := &source.PageObjects{
		Number: 1,
		Width:  595,
		Height: 842,
		Images: []source.Box{
			{X0: 10, Y0: 150, X1: 300, Y1: 400},
			{X0: 310, Y0: 150, X1: 580, Y1: 500},
		},
		Tables: []source.Box{
			{X0: 10, Y0: 420, X1: 300, Y1: 700},
		},
	}

	candidates := MetadataDetector{}.Detect(objects)
	if len(candidates) != 3 {
		t.Fatalf("Expected 3 candidates, got %d", len(candidates))
	}

	// Images come first and outrank tables
	if candidates[0].Source != SourceImage || candidates[1].Source != SourceImage {
		t.Error("Expected image candidates first")
	}
	if candidates[2].Source != SourceTable {
		t.Error("Expected table candidate last")
	}
	if candidates[0].Score != 1.0 {
		t.Errorf("Expected image score 1.0, got %f", candidates[0].Score)
	}
	if candidates[2].Score != 0.9 {
		t.Errorf("Expected table score 0.9, got %f", candidates[2].Score)
	}

	if (MetadataDetector{}).Detect(nil) != nil {
		t.Error("Expected nil candidates for missing page objects")
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		want    Strategy
		wantErr bool
	}{
		{"metadata", MetadataBased, false},
		{"contour", ContourHybrid, false},
		{"", ContourHybrid, false}, // default
		{"ai", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
