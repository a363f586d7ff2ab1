// Package render rasterizes PDF pages into PNG images for OCR.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/unidoc/unipdf/v3/common"
	unipdf "github.com/unidoc/unipdf/v3/model"
	unirender "github.com/unidoc/unipdf/v3/render"

	"github.com/platinummonkey/scrutable/internal/logger"
)

// init sets up unidoc licensing (metered mode for free usage)
func init() {
	// For production, set a license key via: common.SetLicenseKey()
	common.SetLogger(common.NewConsoleLogger(common.LogLevelError))
}

// DefaultDPI is the rasterization resolution used when none is configured
const DefaultDPI = 200

// PageImage is one rendered page, PNG-encoded, with its pixel dimensions
type PageImage struct {
	PNG    []byte
	Width  int
	Height int
}

// Config holds configuration for the rasterizer
type Config struct {
	// DPI is the target rasterization resolution (default 200)
	DPI int

	// Logger is the structured logger to use
	Logger *logger.Logger
}

// Rasterizer renders PDF pages to PNG bytes at a fixed DPI
type Rasterizer struct {
	dpi    int
	logger *logger.Logger
}

// New creates a rasterizer from the configuration
func New(cfg *Config) *Rasterizer {
	dpi := DefaultDPI
	log := logger.Get()
	if cfg != nil {
		if cfg.DPI > 0 {
			dpi = cfg.DPI
		}
		if cfg.Logger != nil {
			log = cfg.Logger
		}
	}
	return &Rasterizer{dpi: dpi, logger: log}
}

// DPI returns the configured rasterization resolution
func (r *Rasterizer) DPI() int {
	return r.dpi
}

// Validate checks that the PDF is readable, using relaxed validation to
// accept the slightly malformed files scanners tend to produce
func (r *Rasterizer) Validate(pdfPath string) error {
	conf := pdfcpumodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfcpumodel.ValidationRelaxed

	if err := api.ValidateFile(pdfPath, conf); err != nil {
		return fmt.Errorf("PDF validation failed: %w", err)
	}
	return nil
}

// PageCount returns the number of pages without rendering anything
func (r *Rasterizer) PageCount(pdfPath string) (int, error) {
	ctx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return ctx.PageCount, nil
}

// RenderPages rasterizes every page of the PDF at the configured DPI and
// returns PNG bytes in page order. A zero-page document returns an empty
// slice and no error. Total inability to read the document is the only
// fatal path.
func (r *Rasterizer) RenderPages(ctx context.Context, pdfPath string) ([]PageImage, error) {
	r.logger.WithFields("pdf", pdfPath, "dpi", r.dpi).Debug("Rendering PDF pages")

	// Lightweight page count via pdfcpu before touching the renderer.
	pageCount, err := r.PageCount(pdfPath)
	if err != nil {
		return nil, err
	}
	if pageCount == 0 {
		r.logger.WithFields("pdf", pdfPath).Warn("PDF has no pages")
		return []PageImage{}, nil
	}

	pages := make([]PageImage, pageCount)
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := r.renderPage(pdfPath, i)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i, err)
		}
		pages[i-1] = img
		r.logger.WithPage(i).WithFields("total", pageCount).Debug("Rendered page")
	}

	r.logger.WithFields("page_count", pageCount).Info("Successfully rendered all pages")
	return pages, nil
}

// renderPage rasterizes a single page (1-based) and PNG-encodes it
func (r *Rasterizer) renderPage(pdfPath string, pageNum int) (PageImage, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return PageImage{}, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pdfReader, err := unipdf.NewPdfReaderLazy(f)
	if err != nil {
		return PageImage{}, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return PageImage{}, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageNum < 1 || pageNum > numPages {
		return PageImage{}, fmt.Errorf("invalid page number %d (PDF has %d pages)", pageNum, numPages)
	}

	page, err := pdfReader.GetPage(pageNum)
	if err != nil {
		return PageImage{}, fmt.Errorf("failed to get page %d: %w", pageNum, err)
	}

	device := unirender.NewImageDevice()

	mediaBox, err := page.GetMediaBox()
	if err != nil {
		return PageImage{}, fmt.Errorf("failed to get media box: %w", err)
	}

	// PDF points are 1/72 inch: pixels = points * DPI / 72. Height follows
	// from the aspect ratio.
	pageWidth := mediaBox.Urx - mediaBox.Llx
	device.OutputWidth = int(pageWidth * float64(r.dpi) / 72.0)

	img, err := device.Render(page)
	if err != nil {
		return PageImage{}, fmt.Errorf("failed to render page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return PageImage{}, fmt.Errorf("failed to encode image: %w", err)
	}

	bounds := img.Bounds()
	return PageImage{
		PNG:    buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
