package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/arup/epaper/internal/config"
	"github.com/arup/epaper/internal/engine"
	"github.com/arup/epaper/internal/source"
	"github.com/arup/epaper/internal/system"
)

func main() {
	system.InitResourceLimits()

	for _, d := range []string{"input/pdf", "output"} {
		os.MkdirAll(d, 0755)
	}

	defaults := config.Default()

	configPtr := flag.String("config", "", "YAML config file; flags set on the command line override it")
	inputPtr := flag.String("input", "", "PDF file or directory of page images (default: newest PDF in input/pdf/)")
	outputPtr := flag.String("output", "", "Output directory (default: output/<date>)")
	layoutPtr := flag.String("layout", "", "Layout sidecar YAML with embedded image/table objects (metadata strategy)")
	strategyPtr := flag.String("strategy", defaults.Strategy, "Detection strategy: metadata or contour")
	datePtr := flag.String("date", defaults.Date, "Edition date, YYYY-MM-DD (used for publish URLs)")
	baseURLPtr := flag.String("base-url", defaults.BaseURL, "Base URL article crops are published under")
	dpiPtr := flag.Int("dpi", defaults.DPI, "Rasterization DPI for detection")
	workersPtr := flag.Int("workers", 0, "Concurrent page workers (0 = sized from the machine)")
	minAreaPtr := flag.Float64("min-area", defaults.MinAreaRatio, "Minimum region area as a fraction of the page")
	maxAreaPtr := flag.Float64("max-area", defaults.MaxAreaRatio, "Maximum region area as a fraction of the page")
	firstMarginPtr := flag.Float64("first-margin", defaults.FirstPageMarginPercent, "Masthead margin on page 1, percent of page height")
	otherMarginPtr := flag.Float64("other-margin", defaults.OtherPagesMarginPercent, "Header margin on other pages, percent of page height")
	overlapPtr := flag.Float64("overlap", defaults.OverlapThreshold, "Consensus merge overlap threshold")
	coveragePtr := flag.Float64("coverage", defaults.PageCoverageThreshold, "Edge-proximity coverage rejection threshold")
	morphologyPtr := flag.Bool("morphology", false, "Enable the third (morphological closing) detection pass")
	timeoutPtr := flag.Duration("page-timeout", defaults.PageTimeout, "Per-page processing timeout")
	debugPtr := flag.Bool("save-debug", false, "Save per-technique binarization images")
	qrPtr := flag.Bool("qr", false, "Stamp each region's publish URL as a QR code on the review image")
	ocrPtr := flag.Bool("ocr", false, "Extract text from article crops (requires a build with -tags ocr)")
	ocrLangPtr := flag.String("ocr-lang", defaults.OCRLanguage, "Tesseract language spec, e.g. eng+tel")
	translateToPtr := flag.String("translate-to", "", "Translate recognized text to this language code")
	translateKeyPtr := flag.String("translate-key", os.Getenv("TRANSLATE_API_KEY"), "Google Translate API key")

	flag.Parse()

	cfg := defaults
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Could not load config: %v", err)
		}
		cfg = loaded
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputPath = *inputPtr
		case "output":
			cfg.OutputDir = *outputPtr
		case "layout":
			cfg.LayoutPath = *layoutPtr
		case "strategy":
			cfg.Strategy = *strategyPtr
		case "date":
			cfg.Date = *datePtr
		case "base-url":
			cfg.BaseURL = *baseURLPtr
		case "dpi":
			cfg.DPI = *dpiPtr
		case "workers":
			cfg.Workers = *workersPtr
		case "min-area":
			cfg.MinAreaRatio = *minAreaPtr
		case "max-area":
			cfg.MaxAreaRatio = *maxAreaPtr
		case "first-margin":
			cfg.FirstPageMarginPercent = *firstMarginPtr
		case "other-margin":
			cfg.OtherPagesMarginPercent = *otherMarginPtr
		case "overlap":
			cfg.OverlapThreshold = *overlapPtr
		case "coverage":
			cfg.PageCoverageThreshold = *coveragePtr
		case "morphology":
			cfg.Contour.UseMorphology = *morphologyPtr
		case "page-timeout":
			cfg.PageTimeout = *timeoutPtr
		case "save-debug":
			cfg.SaveDebug = *debugPtr
		case "qr":
			cfg.DrawQR = *qrPtr
		case "ocr":
			cfg.OCR = *ocrPtr
		case "ocr-lang":
			cfg.OCRLanguage = *ocrLangPtr
		case "translate-to":
			cfg.TargetLanguage = *translateToPtr
		case "translate-key":
			cfg.TranslateKey = *translateKeyPtr
		}
	})

	if cfg.InputPath == "" {
		latest, err := system.FindLatestPDF("input/pdf")
		if err != nil {
			log.Fatalf("[-] Error: %v. Drop a PDF into input/pdf/ or pass -input", err)
		}
		cfg.InputPath = latest
		log.Printf("[*] Selected input: %s", cfg.InputPath)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join("output", cfg.Date)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Invalid configuration: %v", err)
	}

	var src source.Source
	var err error
	if strings.HasSuffix(strings.ToLower(cfg.InputPath), ".pdf") {
		src, err = source.NewFitzPDFSource(cfg.InputPath)
	} else {
		src, err = source.NewImageSource(cfg.InputPath)
	}
	if err != nil {
		log.Fatalf("[-] Could not open source: %v", err)
	}
	defer src.Close()

	eng, err := engine.New(cfg, src)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Run(ctx); err != nil {
		log.Fatalf("[-] Run failed: %v", err)
	}

	log.Printf("[+++] Done. Artifacts in %s", cfg.OutputDir)
}
