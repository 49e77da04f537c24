// Package engine drives a full processing run: it fans pages out to workers,
// runs the detection pipeline on each, and writes the per-page and
// batch-level artifacts. Pages are independent; one page failing never stops
// the batch.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/arup/epaper/internal/config"
	"github.com/arup/epaper/internal/detector"
	"github.com/arup/epaper/internal/geometry"
	"github.com/arup/epaper/internal/ocr"
	"github.com/arup/epaper/internal/render"
	"github.com/arup/epaper/internal/segmenter"
	"github.com/arup/epaper/internal/source"
	"github.com/arup/epaper/internal/system"
	"github.com/arup/epaper/internal/translate"
)

// Engine ties a validated configuration to a page source and produces the
// run's artifacts under cfg.OutputDir.
type Engine struct {
	cfg        *config.Config
	src        source.Source
	strategy   detector.Strategy
	layout     *source.Layout // metadata strategy only
	contour    *detector.ContourDetector
	pipeline   *segmenter.Pipeline
	translator translate.Translator
	ocrEnabled bool
}

func New(cfg *config.Config, src source.Source) (*Engine, error) {
	strategy, err := detector.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		src:      src,
		strategy: strategy,
		pipeline: segmenter.New(cfg),
	}

	if strategy == detector.MetadataBased {
		layout, err := source.ReadLayout(cfg.LayoutPath)
		if err != nil {
			return nil, fmt.Errorf("read layout sidecar: %w", err)
		}
		e.layout = layout
	} else {
		e.contour = detector.NewContourDetector(cfg.Contour)
	}

	if cfg.TranslateKey != "" && cfg.TargetLanguage != "" {
		e.translator = translate.NewGoogle(cfg.TranslateKey)
	}
	return e, nil
}

// Run processes every page of the source. The returned error covers
// batch-level problems only; per-page failures are recorded in the report and
// logged.
func (e *Engine) Run(ctx context.Context) error {
	startTime := time.Now()

	pageCount := e.src.PageCount()
	if pageCount == 0 {
		return fmt.Errorf("source contains no pages")
	}

	if err := os.MkdirAll(e.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = system.SuggestWorkers(e.cfg.DPI)
	}
	if workers > pageCount {
		workers = pageCount
	}

	e.ocrEnabled = e.cfg.OCR
	if e.ocrEnabled {
		probe, err := ocr.New(e.cfg.OCRLanguage)
		if err != nil {
			log.Printf("[!] OCR disabled: %v", err)
			e.ocrEnabled = false
		} else {
			probe.Close()
		}
	}

	log.Printf("[*] Source: %s | Pages: %d | Strategy: %s | Workers: %d",
		e.src.Name(), pageCount, e.cfg.Strategy, workers)

	results := make([]segmenter.Result, pageCount)
	overlays := make([]render.OverlayPage, pageCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < pageCount; i++ {
		number := i + 1
		g.Go(func() error {
			pageCtx, cancel := context.WithTimeout(gctx, e.cfg.PageTimeout)
			defer cancel()
			results[number-1], overlays[number-1] = e.processPage(pageCtx, number)
			// Page failures are per-page results, never a batch abort.
			return nil
		})
	}
	g.Wait()

	var regionTotal, failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			log.Printf("[-] Page %d failed: %v", res.PageNumber, res.Err)
			continue
		}
		regionTotal += len(res.Regions)
		log.Printf("[+] Page %d: %d article regions", res.PageNumber, len(res.Regions))
	}

	if err := e.writeReport(results); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	title := fmt.Sprintf("%s (%s)", filepath.Base(e.src.Name()), e.cfg.Date)
	if err := render.WriteOverlay(e.cfg.OutputDir, title, overlays); err != nil {
		return fmt.Errorf("write overlay: %w", err)
	}

	log.Printf("[*] Done in %.1fs: %d regions across %d pages, %d pages failed",
		time.Since(startTime).Seconds(), regionTotal, pageCount, failed)
	return nil
}

// processPage runs one page end to end: render, detect, segment, artifacts.
// Whatever goes wrong becomes a failed Result for this page alone, and the
// page is still emitted untouched when its raster survived.
func (e *Engine) processPage(ctx context.Context, number int) (res segmenter.Result, op render.OverlayPage) {
	op = render.OverlayPage{Number: number}

	var raster image.Image
	defer func() {
		if r := recover(); r != nil {
			res = segmenter.Failed(number, fmt.Errorf("panic: %v", r))
		}
		if res.Err != nil && op.Image == "" && raster != nil {
			e.writeFallbackPage(number, raster, &op)
		}
	}()

	var err error
	raster, err = e.src.RenderPage(number-1, e.cfg.DPI)
	if err != nil {
		return segmenter.Failed(number, fmt.Errorf("render: %w", err)), op
	}
	if err := ctx.Err(); err != nil {
		return segmenter.Failed(number, err), op
	}

	page := segmenter.Page{Number: number, FirstPage: number == 1}
	var passes []segmenter.Pass

	if e.strategy == detector.MetadataBased {
		objects := e.layout.Page(number)
		e.pageUnits(&page, objects, raster)
		passes = []segmenter.Pass{{
			Name:       "metadata",
			Candidates: (detector.MetadataDetector{}).Detect(objects),
		}}
	} else {
		b := raster.Bounds()
		page.Width, page.Height = float64(b.Dx()), float64(b.Dy())
		ignoreHeight := int(page.TopMargin(e.cfg.MarginPercent(page.FirstPage)))

		for _, dp := range e.contour.Detect(raster, ignoreHeight) {
			if dp.Err != nil {
				log.Printf("[!] Page %d: technique skipped: %v", number, dp.Err)
				continue
			}
			if e.cfg.SaveDebug && dp.Binary != nil {
				e.saveDebugBinary(number, dp.Technique, dp.Binary)
			}
			passes = append(passes, segmenter.Pass{Name: dp.Technique, Candidates: dp.Candidates})
		}
	}
	if err := ctx.Err(); err != nil {
		return segmenter.Failed(number, err), op
	}

	res = e.pipeline.Run(page, passes)

	if err := e.writeArtifacts(ctx, number, page, res.Regions, raster, &op); err != nil {
		return segmenter.Failed(number, err), op
	}
	return res, op
}

// pageUnits fixes the coordinate space of a metadata page: the sidecar's own
// page size when present, the document's otherwise, the raster as a last
// resort.
func (e *Engine) pageUnits(page *segmenter.Page, objects *source.PageObjects, raster image.Image) {
	if objects != nil && objects.Width > 0 && objects.Height > 0 {
		page.Width, page.Height = objects.Width, objects.Height
		return
	}
	if w, h, err := e.src.PageDimensions(page.Number - 1); err == nil && w > 0 && h > 0 {
		page.Width, page.Height = w, h
		return
	}
	b := raster.Bounds()
	page.Width, page.Height = float64(b.Dx()), float64(b.Dy())
}

// writeArtifacts produces everything the page leaves behind: article crops
// named to match their publish URLs, the annotated review image, and the OCR
// text files when enabled.
func (e *Engine) writeArtifacts(ctx context.Context, number int, page segmenter.Page, regions []segmenter.Region, raster image.Image, op *render.OverlayPage) error {
	pageDir := filepath.Join(e.cfg.OutputDir, fmt.Sprintf("page%d", number))
	if err := os.MkdirAll(pageDir, 0755); err != nil {
		return err
	}

	// Crops come from a double-resolution render so the published articles
	// stay readable; the detection raster is only review quality.
	cropRaster := raster
	if len(regions) > 0 {
		hires, err := e.src.RenderPage(number-1, e.cfg.DPI*2)
		if err != nil {
			log.Printf("[!] Page %d: high-res render failed, cropping detection raster: %v", number, err)
		} else {
			cropRaster = hires
		}
	}

	var ocrClient *ocr.Client
	if e.ocrEnabled && len(regions) > 0 {
		client, err := ocr.New(e.cfg.OCRLanguage)
		if err != nil {
			log.Printf("[!] Page %d: OCR unavailable: %v", number, err)
		} else {
			ocrClient = client
			defer ocrClient.Close()
		}
	}

	for _, r := range regions {
		if err := ctx.Err(); err != nil {
			return err
		}

		crop := cropRegion(cropRaster, r.OriginalBox, page.Width, page.Height)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, crop, &jpeg.Options{Quality: 90}); err != nil {
			return fmt.Errorf("encode %s: %w", r.Label, err)
		}

		cropName := filepath.Base(r.URL)
		if err := os.WriteFile(filepath.Join(pageDir, cropName), buf.Bytes(), 0644); err != nil {
			return err
		}

		if ocrClient != nil {
			e.recognizeRegion(ctx, ocrClient, pageDir, cropName, buf.Bytes())
		}
	}

	annotated := render.AnnotatePage(raster, regions, page.Width, page.Height, render.Options{
		MarginPercent: e.cfg.MarginPercent(page.FirstPage),
		FirstPage:     page.FirstPage,
		DrawQR:        e.cfg.DrawQR,
	})
	boundariesPath := filepath.Join(pageDir, "article_boundaries.png")
	if err := writePNG(boundariesPath, annotated); err != nil {
		return fmt.Errorf("write boundaries: %w", err)
	}

	op.Image = filepath.ToSlash(filepath.Join(fmt.Sprintf("page%d", number), "article_boundaries.png"))
	op.Width = page.Width
	op.Height = page.Height
	op.Regions = regions
	return nil
}

// recognizeRegion OCRs one crop and writes the text next to it, plus a
// translated copy when a translator is configured. Recognition problems are
// logged and skipped: text extraction is an extra, not a gate.
func (e *Engine) recognizeRegion(ctx context.Context, client *ocr.Client, pageDir, cropName string, imageData []byte) {
	text, err := client.RecognizeImage(imageData)
	if err != nil {
		log.Printf("[!] OCR failed for %s: %v", cropName, err)
		return
	}
	base := strings.TrimSuffix(cropName, filepath.Ext(cropName))
	if err := os.WriteFile(filepath.Join(pageDir, base+".txt"), []byte(text), 0644); err != nil {
		log.Printf("[!] Could not write OCR text for %s: %v", cropName, err)
		return
	}

	if e.translator == nil || text == "" {
		return
	}
	translated, err := e.translator.Translate(ctx, text, e.cfg.TargetLanguage)
	if err != nil {
		log.Printf("[!] Translation failed for %s: %v", cropName, err)
		return
	}
	name := fmt.Sprintf("%s.%s.txt", base, e.cfg.TargetLanguage)
	if err := os.WriteFile(filepath.Join(pageDir, name), []byte(translated), 0644); err != nil {
		log.Printf("[!] Could not write translation for %s: %v", cropName, err)
	}
}

// writeFallbackPage keeps a failed page present in the output: its original,
// unannotated raster becomes the page image so readers still see every page
// of the edition.
func (e *Engine) writeFallbackPage(number int, raster image.Image, op *render.OverlayPage) {
	pageDir := filepath.Join(e.cfg.OutputDir, fmt.Sprintf("page%d", number))
	if err := os.MkdirAll(pageDir, 0755); err != nil {
		log.Printf("[!] Could not create dir for failed page %d: %v", number, err)
		return
	}
	if err := writePNG(filepath.Join(pageDir, "article_boundaries.png"), raster); err != nil {
		log.Printf("[!] Could not write failed page %d image: %v", number, err)
		return
	}

	b := raster.Bounds()
	op.Image = filepath.ToSlash(filepath.Join(fmt.Sprintf("page%d", number), "article_boundaries.png"))
	op.Width = float64(b.Dx())
	op.Height = float64(b.Dy())
}

func (e *Engine) saveDebugBinary(number int, technique string, binary *image.Gray) {
	debugDir := filepath.Join(e.cfg.OutputDir, fmt.Sprintf("page%d", number), "debug")
	if err := os.MkdirAll(debugDir, 0755); err != nil {
		log.Printf("[!] Could not create debug dir: %v", err)
		return
	}
	path := filepath.Join(debugDir, technique+".png")
	if err := writePNG(path, binary); err != nil {
		log.Printf("[!] Could not save debug binary %s: %v", path, err)
	}
}

// pageReport is one page's entry in regions.yaml, the machine-readable run
// report the publishing side consumes.
type pageReport struct {
	Page    int                `yaml:"page"`
	Status  string             `yaml:"status"`
	Error   string             `yaml:"error,omitempty"`
	Regions []segmenter.Region `yaml:"regions,omitempty"`
}

func (e *Engine) writeReport(results []segmenter.Result) error {
	report := struct {
		Date  string       `yaml:"date"`
		Input string       `yaml:"input"`
		Pages []pageReport `yaml:"pages"`
	}{
		Date:  e.cfg.Date,
		Input: filepath.Base(e.src.Name()),
	}

	for _, res := range results {
		pr := pageReport{
			Page:    res.PageNumber,
			Status:  res.Status.String(),
			Regions: res.Regions,
		}
		if res.Err != nil {
			pr.Error = res.Err.Error()
		}
		report.Pages = append(report.Pages, pr)
	}

	data, err := yaml.Marshal(&report)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.cfg.OutputDir, "regions.yaml"), data, 0644)
}

// cropRegion cuts a region out of a raster. The box is in page units;
// pageW/pageH map it onto the raster's pixel grid, whatever resolution it was
// rendered at.
func cropRegion(raster image.Image, box geometry.Rect, pageW, pageH float64) *image.RGBA {
	b := raster.Bounds()
	sx := float64(b.Dx()) / pageW
	sy := float64(b.Dy()) / pageH

	rect := image.Rect(
		b.Min.X+int(box.X0*sx),
		b.Min.Y+int(box.Y0*sy),
		b.Min.X+int(box.X1*sx),
		b.Min.Y+int(box.Y1*sy),
	).Intersect(b)

	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), raster, rect.Min, draw.Src)
	return out
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
