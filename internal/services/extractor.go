package services

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// TextExtractor turns a document on disk into raw text.
type TextExtractor interface {
	Extract(path string) (string, error)
	Supports(path string) bool
}

type textExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractor{}
}

var (
	xmlParagraphEnd = regexp.MustCompile(`</w:p>`)
	xmlTag          = regexp.MustCompile(`<[^>]+>`)
)

// Supports implements TextExtractor.
func (e *textExtractor) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".html", ".htm", ".docx":
		return true
	default:
		return false
	}
}

// Extract implements TextExtractor.
func (e *textExtractor) Extract(path string) (string, error) {
	var (
		text string
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		text, err = extractPDFText(path)
	case ".txt":
		text, err = extractPlainText(path)
	case ".html", ".htm":
		text, err = extractHTMLText(path)
	case ".docx":
		text, err = extractDOCXText(path)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", fmt.Errorf("%w from %s: %v", ErrExtraction, filepath.Base(path), err)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w in %s", ErrEmptyDocument, filepath.Base(path))
	}

	return text, nil
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("failed to buffer PDF text: %w", err)
	}

	return buf.String(), nil
}

func extractPlainText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(content), nil
}

func extractHTMLText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertString(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML: %w", err)
	}
	return markdown, nil
}

func extractDOCXText(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = xmlParagraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	return CleanText(content), nil
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
