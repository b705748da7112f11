// Package ingest turns uploaded documents into plain text and sizes them up
// for the pipeline. Plain text, Markdown, and HTML are supported; binary
// document formats are rejected with a clear error.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// ErrUnsupportedFormat is returned for file types the extractor cannot read.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// DefaultMaxBytes caps uploaded document size.
const DefaultMaxBytes = 10 << 20 // 10MB

// ExtractText converts an uploaded file to plain text based on its extension.
func ExtractText(filename string, data []byte) (string, error) {
	if len(data) > DefaultMaxBytes {
		return "", fmt.Errorf("file %s exceeds %d byte limit", filename, DefaultMaxBytes)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text", ".md", ".markdown":
		return string(data), nil
	case ".html", ".htm":
		return extractHTMLText(string(data))
	case ".pdf", ".docx", ".doc":
		return "", fmt.Errorf("%w: %s (convert to .txt, .md, or .html first)", ErrUnsupportedFormat, filepath.Ext(filename))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// extractHTMLText parses HTML and returns its visible text.
func extractHTMLText(content string) (string, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	return extractVisibleText(doc), nil
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			// Skip script, style, noscript tags
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.TrimSpace(buf.String())
}

// SizeCategory buckets a document by estimated token count. Categories up to
// medium are processed as one generation call; larger ones are chunked.
type SizeCategory string

const (
	SizeTiny      SizeCategory = "tiny"
	SizeSmall     SizeCategory = "small"
	SizeMedium    SizeCategory = "medium"
	SizeLarge     SizeCategory = "large"
	SizeVeryLarge SizeCategory = "very_large"
)

// TextStats summarizes a document's size.
type TextStats struct {
	Characters      int          `json:"characters"`
	Words           int          `json:"words"`
	Lines           int          `json:"lines"`
	EstimatedTokens int          `json:"estimated_tokens"`
	SizeCategory    SizeCategory `json:"size_category"`
}

// Stats computes size statistics for a blob of text. Tokens are estimated at
// four characters each.
func Stats(text string) TextStats {
	tokens := len(text) / 4
	return TextStats{
		Characters:      len(text),
		Words:           len(strings.Fields(text)),
		Lines:           strings.Count(text, "\n") + 1,
		EstimatedTokens: tokens,
		SizeCategory:    categorize(tokens),
	}
}

// DirectlyProcessable reports whether the document fits one generation call.
func (s TextStats) DirectlyProcessable() bool {
	switch s.SizeCategory {
	case SizeTiny, SizeSmall, SizeMedium:
		return true
	}
	return false
}

func categorize(tokens int) SizeCategory {
	switch {
	case tokens < 500:
		return SizeTiny
	case tokens < 1500:
		return SizeSmall
	case tokens < 3000:
		return SizeMedium
	case tokens < 8000:
		return SizeLarge
	default:
		return SizeVeryLarge
	}
}
