// Package ocr recovers text from scanned PDFs by running recognition over
// the raster images embedded in each page.
package ocr

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/tmc/langchaingo/schema"
)

// minImageDimension filters out rules, bullets and other decorative
// artifacts that carry no text.
const minImageDimension = 50

// PageImage is one raster object pulled from a PDF page. Width/Height are
// zero when the dimensions could not be determined.
type PageImage struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// ImageSource enumerates the embedded raster images of a PDF, page by page.
type ImageSource interface {
	PageCount(ctx context.Context, pdfPath string) (int, error)
	// PageImages returns the images referenced by the 0-indexed page.
	PageImages(ctx context.Context, pdfPath string, pageIndex int) ([]PageImage, error)
}

// Recognizer turns one image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

type Engine struct {
	source     ImageSource
	recognizer Recognizer
}

func NewEngine(source ImageSource, recognizer Recognizer) *Engine {
	return &Engine{source: source, recognizer: recognizer}
}

// supportedFormat accepts only compressed image formats the recognizer can
// decode directly. Raw or CCITT-encoded streams would need header
// synthesis this engine does not do.
func supportedFormat(format string) bool {
	switch strings.ToLower(format) {
	case "jpeg", "jpg", "jpx", "jp2":
		return true
	default:
		return false
	}
}

// Extract OCRs a scanned PDF one page at a time. Page failures are logged
// and skipped so partial results survive; a total failure (e.g. the PDF
// cannot be opened) yields an empty result set, which the caller must
// treat as "OCR failed to extract any text".
func (e *Engine) Extract(ctx context.Context, pdfPath, sourceURL string, onProgress func(percent int)) []schema.Document {
	pageCount, err := e.source.PageCount(ctx, pdfPath)
	if err != nil || pageCount == 0 {
		slog.ErrorContext(ctx, "ocr failed to open pdf", "path", pdfPath, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "starting ocr", "pages", pageCount, "source", sourceURL)

	var docs []schema.Document
	for i := 0; i < pageCount; i++ {
		if onProgress != nil {
			onProgress(int(math.Round(float64(i) / float64(pageCount) * 100)))
		}

		pageText, err := e.recognizePage(ctx, pdfPath, i)
		if err != nil {
			slog.WarnContext(ctx, "failed to ocr page", "page", i+1, "error", err)
			continue
		}

		if strings.TrimSpace(pageText) == "" {
			continue
		}

		docs = append(docs, schema.Document{
			PageContent: pageText,
			Metadata: map[string]any{
				"source":       sourceURL,
				"page":         i + 1,
				"total_pages":  pageCount,
				"extracted_by": "ocr",
			},
		})
	}

	slog.InfoContext(ctx, "ocr completed", "pages_with_text", len(docs), "total_pages", pageCount)
	return docs
}

func (e *Engine) recognizePage(ctx context.Context, pdfPath string, pageIndex int) (string, error) {
	images, err := e.source.PageImages(ctx, pdfPath, pageIndex)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, img := range images {
		if !supportedFormat(img.Format) {
			continue
		}
		if dimensionsKnown(img) && (img.Width < minImageDimension || img.Height < minImageDimension) {
			continue
		}

		text, err := e.recognizer.Recognize(ctx, img.Data)
		if err != nil {
			if isTooSmallErr(err) {
				// Expected noise from tiny artifacts, not worth a log line.
				continue
			}
			slog.WarnContext(ctx, "failed to recognize image", "page", pageIndex+1, "error", err)
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func dimensionsKnown(img PageImage) bool {
	return img.Width > 0 && img.Height > 0
}

func isTooSmallErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Image too small") || strings.Contains(msg, "width of 3")
}
