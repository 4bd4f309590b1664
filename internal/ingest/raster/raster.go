// Package raster converts the first page of a PDF document into a raster
// image suitable for OCR. Only the first page is processed; multi-page
// transcription is a stated product limitation.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// ScaleFactor is the fixed upscale applied when rendering a page. OCR
// accuracy degrades sharply below ~150 DPI, so pages are rendered at
// twice the PDF base resolution.
const ScaleFactor = 2

const basePDFDPI = 72

// PageRasterizer renders page 1 of a PDF into an encoded PNG.
type PageRasterizer interface {
	FirstPagePNG(ctx context.Context, pdf []byte) ([]byte, error)
}

// FitzRasterizer implements PageRasterizer on top of MuPDF (go-fitz).
type FitzRasterizer struct{}

func NewFitzRasterizer() *FitzRasterizer {
	return &FitzRasterizer{}
}

// FirstPagePNG renders the document's first page at ScaleFactor times the
// base PDF resolution and encodes it as PNG. Any open/render/encode
// failure is returned for the pipeline to absorb; no partial output is
// produced.
func (r *FitzRasterizer) FirstPagePNG(ctx context.Context, pdf []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	img, err := doc.ImageDPI(0, ScaleFactor*basePDFDPI)
	if err != nil {
		return nil, fmt.Errorf("render page 1: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}

	return buf.Bytes(), nil
}
