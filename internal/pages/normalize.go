package pages

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// ErrUnsupportedFormat indicates an upload that cannot be decomposed into
// pages: an unknown media type, an undecodable image, or a document with
// zero renderable pages.
var ErrUnsupportedFormat = errors.New("unsupported file format")

const (
	// renderDPI is the fixed rasterization resolution for PDF pages.
	// 300 DPI keeps MICR lines and handwriting legible for the model.
	renderDPI = 300

	jpegQuality = 90
)

// Normalizer converts an uploaded artifact into an ordered sequence of
// page images in the canonical encoding.
type Normalizer interface {
	// Normalize returns one JPEG per page of the artifact, in document order
	Normalize(data []byte, mediaType string) ([][]byte, error)
}

// JPEGNormalizer implements Normalizer, re-encoding every page to a
// 3-channel JPEG regardless of the source format.
type JPEGNormalizer struct{}

// NewJPEGNormalizer creates a new JPEGNormalizer
func NewJPEGNormalizer() *JPEGNormalizer {
	return &JPEGNormalizer{}
}

// Normalize converts an upload into canonical page images. Single images
// yield exactly one page; PDFs yield one page per sheet in document order.
// Anything else fails with ErrUnsupportedFormat before any work is done.
func (n *JPEGNormalizer) Normalize(data []byte, mediaType string) ([][]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(mediaType))

	switch {
	case mimeType == "application/pdf":
		return n.pdfPages(data)
	case strings.HasPrefix(mimeType, "image/"):
		page, err := n.imagePage(data, mimeType)
		if err != nil {
			return nil, err
		}
		return [][]byte{page}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mediaType)
	}
}

// imagePage decodes a single image and re-encodes it as canonical JPEG
func (n *JPEGNormalizer) imagePage(data []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	// HEIC/HEIF (common on iPhones) is not covered by the standard image
	// package, so sniff for it before the generic decode path
	if isHEICData(data) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding HEIC image: %v", ErrUnsupportedFormat, err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding image: %v", ErrUnsupportedFormat, err)
		}
	}

	return encodeJPEG(img)
}

// pdfPages rasterizes every sheet of a PDF at a fixed resolution
func (n *JPEGNormalizer) pdfPages(data []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: opening PDF: %v", ErrUnsupportedFormat, err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("%w: PDF contains no pages", ErrUnsupportedFormat)
	}

	result := make([][]byte, 0, numPages)
	for i := 0; i < numPages; i++ {
		img, err := doc.ImageDPI(i, renderDPI)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i+1, err)
		}
		page, err := encodeJPEG(img)
		if err != nil {
			return nil, fmt.Errorf("encoding PDF page %d: %w", i+1, err)
		}
		result = append(result, page)
	}

	return result, nil
}

// encodeJPEG flattens an image onto a white background, forcing a 3-channel
// color model, and encodes it as the canonical JPEG
func encodeJPEG(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICData checks for the HEIC/HEIF ftyp box signature
func isHEICData(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
