package services

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParserService reads PDFs page by page. The metadata heuristics run on
// this text because it keeps each page's lines in reading order.
type PDFParserService interface {
	ExtractText(path string) (string, error)
	ExtractTextWithMetaData(path string) (*PDFContent, error)
}

type PDFContent struct {
	Text      string
	Pages     []string
	PageCount int
	FilePath  string
}

type pdfParserService struct{}

func NewPDFParserService() PDFParserService {
	return &pdfParserService{}
}

// ExtractText implements PDFParserService.
func (p *pdfParserService) ExtractText(path string) (string, error) {
	content, err := p.ExtractTextWithMetaData(path)
	if err != nil {
		return "", err
	}
	return content.Text, nil
}

// ExtractTextWithMetaData implements PDFParserService. A page that fails to
// decode fails the whole document.
func (p *pdfParserService) ExtractTextWithMetaData(path string) (*PDFContent, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no such file %s", ErrExtraction, path)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %v", ErrExtraction, path, err)
	}
	defer f.Close()

	pages, err := readPages(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtraction, path, err)
	}

	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w in PDF %s", ErrEmptyDocument, path)
	}

	return &PDFContent{
		Text:      text,
		Pages:     pages,
		PageCount: r.NumPage(),
		FilePath:  path,
	}, nil
}

func readPages(r *pdf.Reader) ([]string, error) {
	pages := make([]string, 0, r.NumPage())

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	return pages, nil
}
