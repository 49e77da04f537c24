package render

import (
	"html/template"
	"os"
	"path/filepath"

	"github.com/arup/epaper/internal/segmenter"
)

// OverlayPage is one page of the document overlay: its review image plus the
// clickable region rectangles, in page units.
type OverlayPage struct {
	Number  int
	Image   string // path relative to the overlay file
	Width   float64
	Height  float64
	Regions []segmenter.Region
}

// linkArea positions one clickable rectangle in CSS percentages so the
// overlay scales with the rendered image.
type linkArea struct {
	URL                      string
	Title                    string
	Left, Top, Width, Height float64
}

type overlayPageView struct {
	Number int
	Image  string
	Areas  []linkArea
}

var overlayTemplate = template.Must(template.New("overlay").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 0 auto; max-width: 1200px; padding: 20px; }
.page { position: relative; margin-bottom: 32px; }
.page img { width: 100%; display: block; }
.page a { position: absolute; border: 2px solid rgba(0, 200, 0, 0.7); }
.page a:hover { background: rgba(0, 200, 0, 0.15); }
h2 { font-size: 16px; color: #444; }
.missing { color: #a00; padding: 24px; border: 1px dashed #a00; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Pages}}
<h2>Page {{.Number}}</h2>
<div class="page">
{{if .Image}}<img src="{{.Image}}" alt="Page {{.Number}}">{{else}}<p class="missing">Page {{.Number}} could not be rendered.</p>{{end}}
{{range .Areas}}<a href="{{.URL}}" title="{{.Title}}" style="left:{{printf "%.2f" .Left}}%;top:{{printf "%.2f" .Top}}%;width:{{printf "%.2f" .Width}}%;height:{{printf "%.2f" .Height}}%;"></a>
{{end}}</div>
{{end}}</body>
</html>
`))

// WriteOverlay writes the document-level overlay: every page image with one
// clickable link per detected region, the HTML stand-in for the PDF link
// annotations the publishing side adds.
func WriteOverlay(dir, title string, pages []OverlayPage) error {
	view := struct {
		Title string
		Pages []overlayPageView
	}{Title: title}

	for _, p := range pages {
		pv := overlayPageView{Number: p.Number, Image: p.Image}
		for _, r := range p.Regions {
			if p.Width == 0 || p.Height == 0 {
				continue
			}
			pv.Areas = append(pv.Areas, linkArea{
				URL:    r.URL,
				Title:  r.Label,
				Left:   r.Box.X0 / p.Width * 100,
				Top:    r.Box.Y0 / p.Height * 100,
				Width:  r.Box.Width() / p.Width * 100,
				Height: r.Box.Height() / p.Height * 100,
			})
		}
		view.Pages = append(view.Pages, pv)
	}

	f, err := os.Create(filepath.Join(dir, "index.html"))
	if err != nil {
		return err
	}
	defer f.Close()

	return overlayTemplate.Execute(f, view)
}
