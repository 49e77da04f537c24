package engine

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/arup/epaper/internal/config"
	"github.com/arup/epaper/internal/source"
)

// writeFixturePage creates a white 600x800 page with one solid black block,
// the minimal input every detection technique agrees on.
func writeFixturePage(t *testing.T, dir string) {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 600, 800))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := 300; y < 700; y++ {
		for x := 100; x < 400; x++ {
			img.SetGray(x, y, color.Gray{Y: 0})
		}
	}

	f, err := os.Create(filepath.Join(dir, "page1.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestEngineRun(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeFixturePage(t, inputDir)

	cfg := config.Default()
	cfg.InputPath = inputDir
	cfg.OutputDir = outputDir
	cfg.Date = "2024-05-01"
	cfg.Workers = 1

	src, err := source.NewImageSource(inputDir)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	eng, err := New(cfg, src)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Machine-readable report
	data, err := os.ReadFile(filepath.Join(outputDir, "regions.yaml"))
	if err != nil {
		t.Fatalf("Missing regions.yaml: %v", err)
	}

	var report struct {
		Date  string `yaml:"date"`
		Pages []struct {
			Page    int    `yaml:"page"`
			Status  string `yaml:"status"`
			Error   string `yaml:"error"`
			Regions []struct {
				Label string `yaml:"label"`
				URL   string `yaml:"url"`
			} `yaml:"regions"`
		} `yaml:"pages"`
	}
	if err := yaml.Unmarshal(data, &report); err != nil {
		t.Fatalf("Bad regions.yaml: %v", err)
	}

	if len(report.Pages) != 1 {
		t.Fatalf("Expected 1 page in report, got %d", len(report.Pages))
	}
	p := report.Pages[0]
	if p.Status != "done" || p.Error != "" {
		t.Errorf("Expected clean done page, got status=%s error=%q", p.Status, p.Error)
	}
	if len(p.Regions) != 1 {
		t.Fatalf("Expected 1 region on the fixture page, got %d", len(p.Regions))
	}
	if p.Regions[0].Label != "article_1" {
		t.Errorf("Expected label article_1, got %s", p.Regions[0].Label)
	}
	if !strings.HasSuffix(p.Regions[0].URL, "/2024/20240501/page1-article1.jpg") {
		t.Errorf("Unexpected region URL: %s", p.Regions[0].URL)
	}

	// Per-page artifacts: the crop named after its publish URL and the
	// annotated review image.
	if _, err := os.Stat(filepath.Join(outputDir, "page1", "page1-article1.jpg")); err != nil {
		t.Errorf("Missing article crop: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "page1", "article_boundaries.png")); err != nil {
		t.Errorf("Missing annotated page: %v", err)
	}

	// Document overlay
	html, err := os.ReadFile(filepath.Join(outputDir, "index.html"))
	if err != nil {
		t.Fatalf("Missing index.html: %v", err)
	}
	if !strings.Contains(string(html), "page1/article_boundaries.png") {
		t.Error("Overlay does not reference the annotated page")
	}
}

func TestEngineRunCorruptPage(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeFixturePage(t, inputDir)
	if err := os.WriteFile(filepath.Join(inputDir, "page2.png"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.InputPath = inputDir
	cfg.OutputDir = outputDir
	cfg.Date = "2024-05-01"
	cfg.Workers = 1

	src, err := source.NewImageSource(inputDir)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	eng, err := New(cfg, src)
	if err != nil {
		t.Fatal(err)
	}

	// One corrupt page must not abort the batch.
	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outputDir, "regions.yaml"))
	if err != nil {
		t.Fatalf("Missing regions.yaml: %v", err)
	}
	var report struct {
		Pages []struct {
			Page    int    `yaml:"page"`
			Error   string `yaml:"error"`
			Regions []struct {
				Label string `yaml:"label"`
			} `yaml:"regions"`
		} `yaml:"pages"`
	}
	if err := yaml.Unmarshal(data, &report); err != nil {
		t.Fatalf("Bad regions.yaml: %v", err)
	}
	if len(report.Pages) != 2 {
		t.Fatalf("Expected 2 pages in report, got %d", len(report.Pages))
	}
	if report.Pages[0].Error != "" || len(report.Pages[0].Regions) != 1 {
		t.Errorf("Expected the good page to process normally, got error=%q regions=%d",
			report.Pages[0].Error, len(report.Pages[0].Regions))
	}
	if report.Pages[1].Error == "" {
		t.Error("Expected the corrupt page to carry an error")
	}

	// With no raster to fall back on, the overlay gets a placeholder instead
	// of an empty image reference.
	html, err := os.ReadFile(filepath.Join(outputDir, "index.html"))
	if err != nil {
		t.Fatalf("Missing index.html: %v", err)
	}
	if strings.Contains(string(html), `src=""`) {
		t.Error("Overlay emits an empty img src for the failed page")
	}
	if !strings.Contains(string(html), "Page 2 could not be rendered") {
		t.Error("Overlay missing placeholder for the failed page")
	}
	if !strings.Contains(string(html), "page1/article_boundaries.png") {
		t.Error("Overlay does not reference the good page")
	}
}

func TestEngineRunFailedPageKeepsRaster(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeFixturePage(t, inputDir)

	cfg := config.Default()
	cfg.InputPath = inputDir
	cfg.OutputDir = outputDir
	cfg.Date = "2024-05-01"
	cfg.Workers = 1

	src, err := source.NewImageSource(inputDir)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	eng, err := New(cfg, src)
	if err != nil {
		t.Fatal(err)
	}

	// Cancelling up front fails the page after its raster was read: the page
	// must still be emitted with its original content.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := eng.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outputDir, "regions.yaml"))
	if err != nil {
		t.Fatalf("Missing regions.yaml: %v", err)
	}
	if !strings.Contains(string(data), "error: context canceled") {
		t.Errorf("Expected a canceled page in the report, got:\n%s", data)
	}

	if _, err := os.Stat(filepath.Join(outputDir, "page1", "article_boundaries.png")); err != nil {
		t.Errorf("Failed page should still emit its raster: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "page1", "page1-article1.jpg")); err == nil {
		t.Error("Failed page must not emit article crops")
	}

	html, err := os.ReadFile(filepath.Join(outputDir, "index.html"))
	if err != nil {
		t.Fatalf("Missing index.html: %v", err)
	}
	if !strings.Contains(string(html), "page1/article_boundaries.png") {
		t.Error("Overlay does not reference the failed page's raster")
	}
}

func TestEngineRunMetadataStrategy(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeFixturePage(t, inputDir)

	layoutPath := filepath.Join(inputDir, "layout.yaml")
	layout := `pages:
  - number: 1
    width: 600
    height: 800
    images:
      - {x0: 100, y0: 300, x1: 400, y1: 700}
`
	if err := os.WriteFile(layoutPath, []byte(layout), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.InputPath = inputDir
	cfg.OutputDir = outputDir
	cfg.Strategy = "metadata"
	cfg.LayoutPath = layoutPath
	cfg.Date = "2024-05-01"
	cfg.Workers = 1

	src, err := source.NewImageSource(inputDir)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	eng, err := New(cfg, src)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outputDir, "regions.yaml"))
	if err != nil {
		t.Fatalf("Missing regions.yaml: %v", err)
	}
	if !strings.Contains(string(data), "source: image") {
		t.Error("Expected an image-sourced region from the layout sidecar")
	}
}

func TestEngineRunSaveDebug(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeFixturePage(t, inputDir)

	cfg := config.Default()
	cfg.InputPath = inputDir
	cfg.OutputDir = outputDir
	cfg.Date = "2024-05-01"
	cfg.Workers = 1
	cfg.SaveDebug = true

	src, err := source.NewImageSource(inputDir)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	eng, err := New(cfg, src)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, technique := range []string{"adaptive", "edge"} {
		path := filepath.Join(outputDir, "page1", "debug", technique+".png")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Missing debug binary %s: %v", path, err)
		}
	}
}
