// Package annotate draws detected layout boxes onto rendered page images and
// assembles them into a multi-page PDF.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/signintech/gopdf"

	"github.com/platinummonkey/scrutable/internal/layout"
	"github.com/platinummonkey/scrutable/internal/logger"
	"github.com/platinummonkey/scrutable/internal/ocr"
)

var (
	blockOutline = color.RGBA{R: 255, A: 255}
	wordOutline  = color.RGBA{R: 180, G: 180, B: 180, A: 255}
)

const (
	blockOutlineWidth = 3
	wordOutlineWidth  = 1
)

// Page bundles one rendered page with its detected layout
type Page struct {
	// PNG is the PNG-encoded page raster
	PNG []byte

	// Words are drawn as thin gray boxes when Config.DrawWords is set
	Words []ocr.Word

	// Blocks are drawn as thick red boxes
	Blocks []layout.Block
}

// Config holds configuration for the annotator
type Config struct {
	// DPI is the resolution the pages were rendered at; it sizes the PDF
	// pages so the output matches the source document's physical dimensions
	DPI int

	// DrawWords enables the thin gray per-word boxes, for eyeballing
	// normalization quality
	DrawWords bool

	// Logger is the structured logger to use
	Logger *logger.Logger
}

// Annotator produces annotated PDF artifacts
type Annotator struct {
	dpi       int
	drawWords bool
	logger    *logger.Logger
}

// New creates an annotator from the configuration
func New(cfg *Config) *Annotator {
	dpi := 200
	drawWords := false
	log := logger.Get()
	if cfg != nil {
		if cfg.DPI > 0 {
			dpi = cfg.DPI
		}
		drawWords = cfg.DrawWords
		if cfg.Logger != nil {
			log = cfg.Logger
		}
	}
	return &Annotator{dpi: dpi, drawWords: drawWords, logger: log}
}

// WritePDF draws every page's boxes and writes the multi-page annotated PDF.
// Annotation is best effort: a page whose PNG does not decode is skipped
// with a warning and the remaining pages still make it into the output.
// Nothing is written when no page survives.
func (a *Annotator) WritePDF(pages []Page, outPath string) error {
	if len(pages) == 0 {
		return nil
	}

	type annotated struct {
		png    []byte
		width  int
		height int
	}
	rendered := make([]annotated, 0, len(pages))

	for i, pg := range pages {
		img, err := png.Decode(bytes.NewReader(pg.PNG))
		if err != nil {
			a.logger.WithPage(i+1).WithError(err).Warn("Skipping unannotatable page")
			continue
		}

		canvas := toRGBA(img)
		for _, b := range pg.Blocks {
			drawRect(canvas, b.BBox, blockOutline, blockOutlineWidth)
		}
		if a.drawWords {
			for _, w := range pg.Words {
				drawRect(canvas, w.BBox, wordOutline, wordOutlineWidth)
			}
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, canvas); err != nil {
			a.logger.WithPage(i+1).WithError(err).Warn("Skipping page that failed to re-encode")
			continue
		}
		bounds := canvas.Bounds()
		rendered = append(rendered, annotated{png: buf.Bytes(), width: bounds.Dx(), height: bounds.Dy()})
	}

	if len(rendered) == 0 {
		a.logger.Warn("No pages could be annotated, skipping PDF output")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Convert pixels to points: pixels * 72 / DPI. Page size follows the
	// first page; pages with other dimensions get their own size.
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{
		PageSize: gopdf.Rect{
			W: pxToPt(rendered[0].width, a.dpi),
			H: pxToPt(rendered[0].height, a.dpi),
		},
	})

	for _, pg := range rendered {
		w := pxToPt(pg.width, a.dpi)
		h := pxToPt(pg.height, a.dpi)
		pdf.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: w, H: h}})

		holder, err := gopdf.ImageHolderByBytes(pg.png)
		if err != nil {
			return fmt.Errorf("failed to load annotated page image: %w", err)
		}
		if err := pdf.ImageByHolder(holder, 0, 0, &gopdf.Rect{W: w, H: h}); err != nil {
			return fmt.Errorf("failed to place annotated page image: %w", err)
		}
	}

	if err := pdf.WritePdf(outPath); err != nil {
		return fmt.Errorf("failed to write annotated PDF: %w", err)
	}

	a.logger.WithFields("output", outPath, "pages", len(rendered)).Info("Wrote annotated PDF")
	return nil
}

func pxToPt(px, dpi int) float64 {
	return float64(px) * 72.0 / float64(dpi)
}

// toRGBA returns img as a mutable RGBA canvas
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	canvas := image.NewRGBA(img.Bounds())
	draw.Draw(canvas, canvas.Bounds(), img, img.Bounds().Min, draw.Src)
	return canvas
}

// drawRect strokes an axis-aligned rectangle outline of the given width,
// clipped to the canvas
func drawRect(canvas *image.RGBA, box ocr.BBox, col color.RGBA, width int) {
	bounds := canvas.Bounds()
	x0, y0 := int(box.X0), int(box.Y0)
	x1, y1 := int(box.X1), int(box.Y1)

	for t := 0; t < width; t++ {
		drawHLine(canvas, bounds, x0, x1, y0+t, col)
		drawHLine(canvas, bounds, x0, x1, y1-t, col)
		drawVLine(canvas, bounds, y0, y1, x0+t, col)
		drawVLine(canvas, bounds, y0, y1, x1-t, col)
	}
}

func drawHLine(canvas *image.RGBA, bounds image.Rectangle, x0, x1, y int, col color.RGBA) {
	if y < bounds.Min.Y || y >= bounds.Max.Y {
		return
	}
	for x := maxInt(x0, bounds.Min.X); x <= minInt(x1, bounds.Max.X-1); x++ {
		canvas.SetRGBA(x, y, col)
	}
}

func drawVLine(canvas *image.RGBA, bounds image.Rectangle, y0, y1, x int, col color.RGBA) {
	if x < bounds.Min.X || x >= bounds.Max.X {
		return
	}
	for y := maxInt(y0, bounds.Min.Y); y <= minInt(y1, bounds.Max.Y-1); y++ {
		canvas.SetRGBA(x, y, col)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
