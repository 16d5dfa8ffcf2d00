// Package document turns a remote course file into ordered text records
// ready for normalization and chunking.
package document

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"

	"studyrag/backend/internal/apperr"
)

// FileType is the closed set of formats the extractor understands. Anything
// else is rejected up front, not silently defaulted.
type FileType string

const (
	FileTypePDF  FileType = ".pdf"
	FileTypeTXT  FileType = ".txt"
	FileTypeDOCX FileType = ".docx"
	FileTypeDOC  FileType = ".doc"
	FileTypeCSV  FileType = ".csv"
)

type loadFunc func(ctx context.Context, localPath, sourceURL string) ([]schema.Document, error)

// Loader downloads a document to a scratch file, sniffs its type and
// dispatches to the matching format loader.
type Loader struct {
	client  *http.Client
	loaders map[FileType]loadFunc
}

func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	l := &Loader{client: client}
	l.loaders = map[FileType]loadFunc{
		FileTypePDF:  loadPDF,
		FileTypeTXT:  loadText,
		FileTypeDOCX: loadDocx,
		FileTypeDOC:  loadDocx,
		FileTypeCSV:  loadCSV,
	}
	return l
}

// SupportedTypes lists the accepted extensions, sorted for stable error
// messages.
func (l *Loader) SupportedTypes() []string {
	types := make([]string, 0, len(l.loaders))
	for t := range l.loaders {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}

// Result holds an extraction outcome. LocalPath stays valid until Close is
// called, which the caller must do on every path; the OCR stage reads the
// scratch PDF through it.
type Result struct {
	Documents []schema.Document
	NeedsOCR  bool
	LocalPath string
}

func (r *Result) Close() error {
	if r.LocalPath == "" {
		return nil
	}
	return os.Remove(r.LocalPath)
}

// Fetch downloads fileURL and extracts its content. For PDFs every page is
// a separate record; other formats use their loader's native granularity.
// A PDF with no extractable text comes back with NeedsOCR set and no
// records.
func (l *Loader) Fetch(ctx context.Context, fileURL string) (*Result, error) {
	ft := fileTypeFromURL(fileURL)

	tmp, err := os.CreateTemp("", "studyrag-doc-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	res := &Result{LocalPath: tmp.Name()}

	contentType, err := l.download(ctx, fileURL, tmp)
	if err != nil {
		_ = res.Close()
		return nil, err
	}

	if ft == "" {
		ft = fileTypeFromContentType(contentType)
	}

	load, ok := l.loaders[ft]
	if !ok {
		_ = res.Close()
		return nil, apperr.NewDocumentProcessingError(fmt.Sprintf(
			"Unsupported file type: %s. Supported types: %s",
			string(ft), strings.Join(l.SupportedTypes(), ", ")))
	}

	docs, err := load(ctx, res.LocalPath, fileURL)
	if err != nil {
		_ = res.Close()
		return nil, err
	}

	if ft == FileTypePDF && NeedsOCR(docs) {
		res.NeedsOCR = true
		return res, nil
	}

	res.Documents = docs
	return res, nil
}

// NeedsOCR reports whether a PDF extraction yielded no usable text: either
// no pages at all, or nothing but whitespace on every page.
func NeedsOCR(docs []schema.Document) bool {
	if len(docs) == 0 {
		return true
	}
	for _, doc := range docs {
		if strings.TrimSpace(doc.PageContent) != "" {
			return false
		}
	}
	return true
}

func (l *Loader) download(ctx context.Context, fileURL string, dst *os.File) (string, error) {
	defer dst.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	// Some file hosts reject requests without a browser user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", apperr.NewExternalAPIError("failed to download file", "FileStorage", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.NewExternalAPIError(
			fmt.Sprintf("failed to download file: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			"FileStorage", nil)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return "", fmt.Errorf("write scratch file: %w", err)
	}

	return resp.Header.Get("Content-Type"), nil
}

func fileTypeFromURL(fileURL string) FileType {
	withoutQuery, _, _ := strings.Cut(fileURL, "?")
	ext := strings.ToLower(path.Ext(withoutQuery))
	if ext == "" || ext == "." {
		return ""
	}
	return FileType(ext)
}

func fileTypeFromContentType(contentType string) FileType {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return FileTypePDF
	case strings.Contains(ct, "msword"),
		strings.Contains(ct, "application/vnd.openxmlformats-officedocument.wordprocessingml"):
		return FileTypeDOCX
	case strings.Contains(ct, "ms-excel"),
		strings.Contains(ct, "application/vnd.openxmlformats-officedocument.spreadsheetml"),
		strings.Contains(ct, "text/csv"):
		return FileTypeCSV
	case strings.Contains(ct, "text/plain"):
		return FileTypeTXT
	case strings.Contains(ct, "application/octet-stream"):
		// Unlabeled binary uploads are almost always PDFs in practice.
		return FileTypePDF
	default:
		return ""
	}
}

func loadPDF(ctx context.Context, localPath, sourceURL string) ([]schema.Document, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}

	docs, err := documentloaders.NewPDF(f, fi.Size()).Load(ctx)
	if err != nil {
		// A parse failure on a PDF usually means a scanned or damaged
		// file; the caller decides whether OCR can rescue it.
		return nil, nil
	}
	return withSource(docs, sourceURL), nil
}

func loadText(ctx context.Context, localPath, sourceURL string) ([]schema.Document, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open text file: %w", err)
	}
	defer f.Close()

	docs, err := documentloaders.NewText(f).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load text file: %w", err)
	}
	return withSource(docs, sourceURL), nil
}

func loadCSV(ctx context.Context, localPath, sourceURL string) ([]schema.Document, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	docs, err := documentloaders.NewCSV(f).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load csv: %w", err)
	}
	return withSource(docs, sourceURL), nil
}

func loadDocx(_ context.Context, localPath, sourceURL string) ([]schema.Document, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat docx: %w", err)
	}

	parsed, err := docx.Parse(f, fi.Size())
	if err != nil {
		return nil, apperr.NewDocumentProcessingError(fmt.Sprintf("failed to parse docx: %v", err))
	}

	var sb strings.Builder
	for _, it := range parsed.Document.Body.Items {
		switch it.(type) {
		case *docx.Paragraph, *docx.Table:
			fmt.Fprintf(&sb, "%v\n", it)
		}
	}

	return []schema.Document{{
		PageContent: sb.String(),
		Metadata:    map[string]any{"source": sourceURL},
	}}, nil
}

func withSource(docs []schema.Document, sourceURL string) []schema.Document {
	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = map[string]any{}
		}
		docs[i].Metadata["source"] = sourceURL
	}
	return docs
}
