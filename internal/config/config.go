package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is where published article crops are served from.
const DefaultBaseURL = "https://epaper-article-db.s3.ap-south-1.amazonaws.com/epaper-articles"

// Config holds the full configuration for a processing run. It is filled
// from flags (optionally pre-loaded from a YAML file) and treated as
// read-only once validated.
type Config struct {
	InputPath  string `yaml:"input"`
	OutputDir  string `yaml:"output"`
	LayoutPath string `yaml:"layout"` // YAML sidecar with embedded image/table objects

	// Strategy selects the candidate detector: "metadata" or "contour".
	Strategy string `yaml:"strategy"`

	// Date in YYYY-MM-DD format, used only to derive published URLs.
	Date    string `yaml:"date"`
	BaseURL string `yaml:"base_url"`

	MinAreaRatio float64 `yaml:"min_area_ratio"`
	MaxAreaRatio float64 `yaml:"max_area_ratio"`

	// Top-of-page percentage excluded from detection. The first page
	// typically carries a taller masthead.
	FirstPageMarginPercent  float64 `yaml:"first_page_margin_percent"`
	OtherPagesMarginPercent float64 `yaml:"other_pages_margin_percent"`

	// OverlapThreshold rejects a secondary technique's box during the
	// consensus merge when either one-sided overlap ratio exceeds it.
	OverlapThreshold float64 `yaml:"overlap_threshold"`

	// PageCoverageThreshold rejects boxes whose edge-proximity coverage
	// exceeds it (boxes effectively spanning the whole page).
	PageCoverageThreshold float64 `yaml:"page_coverage_threshold"`

	Contour ContourParams `yaml:"contour"`

	DPI     int `yaml:"dpi"`
	Workers int `yaml:"workers"`

	// PageTimeout bounds one page's pipeline; expiry counts as a per-page
	// failure, never a batch abort.
	PageTimeout time.Duration `yaml:"page_timeout"`

	SaveDebug bool `yaml:"save_debug"`
	DrawQR    bool `yaml:"draw_qr"`

	OCR            bool   `yaml:"ocr"`
	OCRLanguage    string `yaml:"ocr_language"`
	TargetLanguage string `yaml:"target_language"`
	TranslateKey   string `yaml:"translate_key"`
}

// ContourParams are the tuning knobs of the pixel-based techniques.
type ContourParams struct {
	EdgeThreshold     float64 `yaml:"edge_threshold"`      // Sobel gradient magnitude cutoff
	AdaptiveBlockSize int     `yaml:"adaptive_block_size"` // local window, must be odd
	AdaptiveConstant  float64 `yaml:"adaptive_constant"`   // subtracted from the local mean
	MorphKernelSize   int     `yaml:"morph_kernel_size"`   // square closing element
	MinContourArea    float64 `yaml:"min_contour_area"`    // pixels², on the bounding rect
	MinPerimeter      float64 `yaml:"min_perimeter"`       // boundary pixels
	MinAspectRatio    float64 `yaml:"min_aspect_ratio"`
	MaxAspectRatio    float64 `yaml:"max_aspect_ratio"`
	UseMorphology     bool    `yaml:"use_morphology"` // third consensus pass
}

// Default returns a Config with the reference defaults.
func Default() *Config {
	return &Config{
		Strategy:                "contour",
		Date:                    time.Now().Format("2006-01-02"),
		BaseURL:                 DefaultBaseURL,
		MinAreaRatio:            0.01,
		MaxAreaRatio:            0.85,
		FirstPageMarginPercent:  14.5,
		OtherPagesMarginPercent: 8.5,
		OverlapThreshold:        0.5,
		PageCoverageThreshold:   0.9,
		Contour: ContourParams{
			EdgeThreshold:     50.0,
			AdaptiveBlockSize: 25,
			AdaptiveConstant:  15.0,
			MorphKernelSize:   25,
			MinContourArea:    30000,
			MinPerimeter:      500,
			MinAspectRatio:    0.2,
			MaxAspectRatio:    5.0,
		},
		DPI:         150,
		Workers:     0, // 0 = sized from the machine
		PageTimeout: 2 * time.Minute,
		OCRLanguage: "eng+tel",
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration. Any error here is fatal at startup;
// nothing is validated per page.
func (c *Config) Validate() error {
	if c.Strategy != "metadata" && c.Strategy != "contour" {
		return fmt.Errorf("unknown strategy: %q", c.Strategy)
	}
	if c.MinAreaRatio <= 0 || c.MaxAreaRatio > 1 || c.MinAreaRatio >= c.MaxAreaRatio {
		return fmt.Errorf("area ratio bounds must satisfy 0 < min < max <= 1, got [%g, %g]",
			c.MinAreaRatio, c.MaxAreaRatio)
	}
	if c.FirstPageMarginPercent < 0 || c.FirstPageMarginPercent >= 100 {
		return fmt.Errorf("first page margin percent out of range: %g", c.FirstPageMarginPercent)
	}
	if c.OtherPagesMarginPercent < 0 || c.OtherPagesMarginPercent >= 100 {
		return fmt.Errorf("other pages margin percent out of range: %g", c.OtherPagesMarginPercent)
	}
	if c.OverlapThreshold <= 0 || c.OverlapThreshold > 1 {
		return fmt.Errorf("overlap threshold out of range: %g", c.OverlapThreshold)
	}
	if c.PageCoverageThreshold <= 0 || c.PageCoverageThreshold > 1 {
		return fmt.Errorf("page coverage threshold out of range: %g", c.PageCoverageThreshold)
	}
	if c.Contour.AdaptiveBlockSize < 3 || c.Contour.AdaptiveBlockSize%2 == 0 {
		return fmt.Errorf("adaptive block size must be odd and >= 3, got %d", c.Contour.AdaptiveBlockSize)
	}
	if c.Contour.MorphKernelSize < 1 {
		return fmt.Errorf("morphology kernel size must be positive, got %d", c.Contour.MorphKernelSize)
	}
	if c.Contour.MinAspectRatio <= 0 || c.Contour.MinAspectRatio >= c.Contour.MaxAspectRatio {
		return fmt.Errorf("aspect ratio bounds must satisfy 0 < min < max, got [%g, %g]",
			c.Contour.MinAspectRatio, c.Contour.MaxAspectRatio)
	}
	if c.DPI <= 0 {
		return fmt.Errorf("dpi must be positive, got %d", c.DPI)
	}
	if _, err := time.Parse("2006-01-02", c.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	if c.Strategy == "metadata" && c.LayoutPath == "" {
		return fmt.Errorf("metadata strategy requires a layout sidecar (-layout)")
	}
	return nil
}

// MarginPercent returns the excluded top-of-page percentage for a page.
func (c *Config) MarginPercent(firstPage bool) float64 {
	if firstPage {
		return c.FirstPageMarginPercent
	}
	return c.OtherPagesMarginPercent
}
