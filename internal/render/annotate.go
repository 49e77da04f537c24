// Package render draws review artifacts from a finished Region list. It runs
// strictly after detection: nothing here feeds back into the pipeline.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/arup/epaper/internal/detector"
	"github.com/arup/epaper/internal/segmenter"
)

// Options control the annotated page rendering.
type Options struct {
	MarginPercent float64
	FirstPage     bool
	DrawQR        bool // stamp each region's publish URL as a QR code
	QRSize        int  // pixels, 0 = default
}

var (
	colorImage      = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	colorTable      = color.RGBA{R: 220, G: 0, B: 0, A: 255}
	colorMorphology = color.RGBA{R: 0, G: 80, B: 220, A: 255}
	colorMargin     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	colorBanner     = color.RGBA{R: 0, G: 0, B: 220, A: 255}
)

// sourceColor matches the reference review palette: green for direct
// detections, red for inferred ones, blue for the morphology pass.
func sourceColor(source string) color.RGBA {
	switch source {
	case detector.SourceImage, detector.SourceAdaptive:
		return colorImage
	case detector.SourceTable, detector.SourceEdge:
		return colorTable
	case detector.SourceMorphology:
		return colorMorphology
	default:
		return colorImage
	}
}

// AnnotatePage renders the human-review image for one page: the margin line,
// a colored rectangle and numbered label per region, and a banner with the
// region count. Region coordinates are in page units; pageW/pageH map them
// onto the raster.
func AnnotatePage(raster image.Image, regions []segmenter.Region, pageW, pageH float64, opts Options) *image.RGBA {
	bounds := raster.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, raster, bounds.Min, draw.Src)

	scaleX := float64(bounds.Dx()) / pageW
	scaleY := float64(bounds.Dy()) / pageH

	// Margin line across the page
	marginY := bounds.Min.Y + int(pageH*(opts.MarginPercent/100)*scaleY)
	drawHLine(out, marginY, colorMargin, 2)

	pageKind := "Other page"
	if opts.FirstPage {
		pageKind = "First page"
	}
	drawLabel(out, bounds.Min.X+10, marginY-24,
		fmt.Sprintf("%s: ignoring top %.1f%%", pageKind, opts.MarginPercent), colorMargin)

	for _, r := range regions {
		rect := image.Rect(
			bounds.Min.X+int(r.Box.X0*scaleX),
			bounds.Min.Y+int(r.Box.Y0*scaleY),
			bounds.Min.X+int(r.Box.X1*scaleX),
			bounds.Min.Y+int(r.Box.Y1*scaleY),
		)
		c := sourceColor(r.Source)
		drawRect(out, rect, c, 3)
		drawLabel(out, rect.Min.X+4, rect.Min.Y+4,
			fmt.Sprintf("Article #%d", r.SequenceNumber), c)

		if opts.DrawQR {
			stampQR(out, rect, r.URL, opts.QRSize)
		}
	}

	if len(regions) > 0 {
		drawLabel(out, bounds.Min.X+10, bounds.Min.Y+10,
			fmt.Sprintf("Detected %d article regions", len(regions)), colorBanner)
	}

	return out
}

// stampQR draws a QR code of the region URL in the region's top-right
// corner, for print-to-web review copies.
func stampQR(dst *image.RGBA, region image.Rectangle, url string, size int) {
	if size <= 0 {
		size = 96
	}
	if region.Dx() < size+8 || region.Dy() < size+8 {
		return // region too small to host the stamp
	}

	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return // malformed URL content; the annotation is best-effort
	}
	img := qr.Image(size)

	target := image.Rect(region.Max.X-size-4, region.Min.Y+4, region.Max.X-4, region.Min.Y+4+size)
	draw.Draw(dst, target, img, img.Bounds().Min, draw.Src)
}

func drawHLine(img *image.RGBA, y int, c color.RGBA, thickness int) {
	bounds := img.Bounds()
	for dy := 0; dy < thickness; dy++ {
		yy := y + dy
		if yy < bounds.Min.Y || yy >= bounds.Max.Y {
			continue
		}
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetRGBA(x, yy, c)
		}
	}
}

func drawRect(img *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for t := 0; t < thickness; t++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			setIfInside(img, x, r.Min.Y+t, c)
			setIfInside(img, x, r.Max.Y-1-t, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			setIfInside(img, r.Min.X+t, y, c)
			setIfInside(img, r.Max.X-1-t, y, c)
		}
	}
}

func setIfInside(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// drawLabel renders text on a filled background rectangle so it stays
// legible over the page content.
func drawLabel(img *image.RGBA, x, y int, text string, bg color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	width := d.MeasureString(text).Ceil()

	pad := 4
	box := image.Rect(x, y, x+width+2*pad, y+face.Height+2*pad)
	draw.Draw(img, box.Intersect(img.Bounds()), image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dot = fixed.P(x+pad, y+pad+face.Ascent)
	d.DrawString(text)
}
