// Package tesseract adapts the gosseract OCR binding to the engine's
// Recognizer interface.
package tesseract

import (
	"context"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

type Recognizer struct {
	lang string
	// Tesseract is CPU bound; one recognition at a time keeps a scanned
	// upload from starving the rest of the worker.
	mu sync.Mutex
}

func NewRecognizer(lang string) *Recognizer {
	if lang == "" {
		lang = "eng"
	}
	return &Recognizer{lang: lang}
}

// Recognize runs one image through Tesseract. A fresh client per call
// keeps this safe for concurrent pages; gosseract clients are not.
func (r *Recognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.lang); err != nil {
		return "", fmt.Errorf("set tesseract language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
