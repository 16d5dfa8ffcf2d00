// Package text holds the normalization pass applied to extracted document
// content before chunking.
package text

import (
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/schema"
)

var (
	unicodeSpaceRe = regexp.MustCompile("[  ᠎ -​  　﻿]")
	hyphenBreakRe  = regexp.MustCompile(`(\w)-\s*\n\s*(\w)`)
	spaceRunRe     = regexp.MustCompile(`[ \t]+`)
	newlineRunRe   = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes raw extracted text. The order matters: hyphen repair
// must see original newlines, and space collapsing must not eat the
// paragraph breaks that newline collapsing preserves.
//
// Clean is idempotent: Clean(Clean(x)) == Clean(x).
func Clean(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\x00", "")
	s = unicodeSpaceRe.ReplaceAllString(s, " ")
	// "embed-\nding" -> "embedding"
	s = hyphenBreakRe.ReplaceAllString(s, "${1}${2}")
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = newlineRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CleanDocuments normalizes every record's content and drops records that
// end up empty, so downstream chunking never sees blank pages.
func CleanDocuments(docs []schema.Document) []schema.Document {
	out := make([]schema.Document, 0, len(docs))
	for _, doc := range docs {
		cleaned := Clean(doc.PageContent)
		if cleaned == "" {
			continue
		}
		doc.PageContent = cleaned
		out = append(out, doc)
	}
	return out
}
