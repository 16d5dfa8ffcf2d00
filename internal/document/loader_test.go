package document

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"

	"studyrag/backend/internal/apperr"
)

func TestNeedsOCR(t *testing.T) {
	assert.True(t, NeedsOCR(nil))
	assert.True(t, NeedsOCR([]schema.Document{}))
	assert.True(t, NeedsOCR([]schema.Document{{PageContent: " "}}))
	assert.True(t, NeedsOCR([]schema.Document{{PageContent: " "}, {PageContent: "\n\t"}}))
	assert.False(t, NeedsOCR([]schema.Document{{PageContent: "hi"}}))
	assert.False(t, NeedsOCR([]schema.Document{{PageContent: " "}, {PageContent: "hi"}}))
}

func TestFileTypeFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want FileType
	}{
		{"https://cdn.example.com/files/notes.pdf", FileTypePDF},
		{"https://cdn.example.com/files/notes.PDF?token=abc", FileTypePDF},
		{"https://cdn.example.com/files/data.csv", FileTypeCSV},
		{"https://cdn.example.com/files/essay.docx", FileTypeDOCX},
		{"https://cdn.example.com/files/readme.txt", FileTypeTXT},
		{"https://cdn.example.com/files/blob", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fileTypeFromURL(tt.url), tt.url)
	}
}

func TestFileTypeFromContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want FileType
	}{
		{"application/pdf", FileTypePDF},
		{"application/msword", FileTypeDOCX},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", FileTypeDOCX},
		{"text/csv", FileTypeCSV},
		{"application/vnd.ms-excel", FileTypeCSV},
		{"text/plain; charset=utf-8", FileTypeTXT},
		{"application/octet-stream", FileTypePDF},
		{"image/png", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fileTypeFromContentType(tt.ct), tt.ct)
	}
}

func TestLoader_FetchText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("lecture notes about osmosis"))
	}))
	defer srv.Close()

	l := NewLoader(srv.Client())
	res, err := l.Fetch(context.Background(), srv.URL+"/notes.txt")
	require.NoError(t, err)
	defer res.Close()

	require.Len(t, res.Documents, 1)
	assert.False(t, res.NeedsOCR)
	assert.Equal(t, "lecture notes about osmosis", res.Documents[0].PageContent)
	assert.Equal(t, srv.URL+"/notes.txt", res.Documents[0].Metadata["source"])
}

func TestLoader_FetchSniffsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("no extension here"))
	}))
	defer srv.Close()

	l := NewLoader(srv.Client())
	res, err := l.Fetch(context.Background(), srv.URL+"/download")
	require.NoError(t, err)
	defer res.Close()

	require.Len(t, res.Documents, 1)
	assert.Equal(t, "no extension here", res.Documents[0].PageContent)
}

func TestLoader_FetchCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("week,topic\n1,cells\n2,osmosis\n"))
	}))
	defer srv.Close()

	l := NewLoader(srv.Client())
	res, err := l.Fetch(context.Background(), srv.URL+"/syllabus.csv")
	require.NoError(t, err)
	defer res.Close()

	require.Len(t, res.Documents, 2)
	assert.Contains(t, res.Documents[0].PageContent, "cells")
	assert.Equal(t, srv.URL+"/syllabus.csv", res.Documents[1].Metadata["source"])
}

func TestLoader_FetchUnsupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	defer srv.Close()

	l := NewLoader(srv.Client())
	_, err := l.Fetch(context.Background(), srv.URL+"/diagram.png")
	require.Error(t, err)
	assert.True(t, apperr.IsDocumentProcessing(err))
	assert.Contains(t, err.Error(), "Unsupported file type")
	assert.Contains(t, err.Error(), ".pdf")
	assert.Contains(t, err.Error(), ".csv")
}

func TestLoader_FetchDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := NewLoader(srv.Client())
	_, err := l.Fetch(context.Background(), srv.URL+"/gone.pdf")
	require.Error(t, err)

	var apiErr *apperr.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "FileStorage", apiErr.Provider)
}

func TestLoader_ScratchFileCleanedUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("content"))
	}))
	defer srv.Close()

	l := NewLoader(srv.Client())
	res, err := l.Fetch(context.Background(), srv.URL+"/a.txt")
	require.NoError(t, err)

	_, statErr := os.Stat(res.LocalPath)
	require.NoError(t, statErr)

	require.NoError(t, res.Close())
	_, statErr = os.Stat(res.LocalPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSupportedTypes(t *testing.T) {
	l := NewLoader(nil)
	assert.Equal(t, []string{".csv", ".doc", ".docx", ".pdf", ".txt"}, l.SupportedTypes())
}
