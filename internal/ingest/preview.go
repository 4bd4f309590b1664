package ingest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	// Register decoders for the image formats accepted for ingestion.
	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"

	"github.com/dmitrijs2005/notescan/internal/common"
)

// PreviewKind distinguishes a rendered thumbnail from the generic document
// indicator shown for PDFs.
type PreviewKind string

const (
	PreviewImage    PreviewKind = "image"
	PreviewDocument PreviewKind = "document"
)

// Preview is the immediate user feedback for a selected file, produced
// before any OCR work.
type Preview struct {
	Kind PreviewKind
	// DataURI holds a base64 PNG thumbnail for image previews; empty for
	// the document indicator.
	DataURI string
}

// maxPreviewWidth bounds the thumbnail so previews stay cheap to transfer.
const maxPreviewWidth = 480

// buildPreview validates the declared media type and produces the preview
// representation. Unsupported types are rejected here so they never reach
// the recognizer. A broken image still yields a document-indicator preview:
// the recognizer decides whether it can be read.
func buildPreview(src Source) (Preview, error) {
	switch {
	case src.MimeType == pdfMimeType:
		return Preview{Kind: PreviewDocument}, nil
	case strings.HasPrefix(src.MimeType, "image/"):
		uri, err := thumbnailDataURI(src.Data)
		if err != nil {
			return Preview{Kind: PreviewDocument}, nil
		}
		return Preview{Kind: PreviewImage, DataURI: uri}, nil
	default:
		return Preview{}, fmt.Errorf("%w: %s", common.ErrUnsupportedMedia, src.MimeType)
	}
}

func thumbnailDataURI(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode preview image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxPreviewWidth {
		height := bounds.Dy() * maxPreviewWidth / bounds.Dx()
		if height < 1 {
			height = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, maxPreviewWidth, height))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode preview image: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
