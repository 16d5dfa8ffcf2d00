// Package pdfimage extracts embedded raster images from PDF pages using
// pdfcpu, feeding the OCR engine.
package pdfimage

import (
	"bytes"
	"context"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"studyrag/backend/internal/ocr"
)

type Extractor struct {
	conf *model.Configuration
}

func NewExtractor() *Extractor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Extractor{conf: conf}
}

func (e *Extractor) PageCount(ctx context.Context, pdfPath string) (int, error) {
	return api.PageCountFile(pdfPath)
}

// PageImages returns the raster objects referenced by the 0-indexed page.
// Dimensions are decoded from the JPEG header when possible; other formats
// report zero and leave the size check to the engine.
func (e *Extractor) PageImages(ctx context.Context, pdfPath string, pageIndex int) ([]ocr.PageImage, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages := []string{strconv.Itoa(pageIndex + 1)}
	extracted, err := api.ExtractImagesRaw(f, pages, e.conf)
	if err != nil {
		return nil, err
	}

	var out []ocr.PageImage
	for _, pageImages := range extracted {
		for _, img := range pageImages {
			data, err := io.ReadAll(img)
			if err != nil {
				slog.WarnContext(ctx, "failed to read image stream", "page", pageIndex+1, "error", err)
				continue
			}

			pi := ocr.PageImage{Data: data, Format: img.FileType}
			if cfg, err := jpeg.DecodeConfig(bytes.NewReader(data)); err == nil {
				pi.Width = cfg.Width
				pi.Height = cfg.Height
			}
			out = append(out, pi)
		}
	}
	return out, nil
}
