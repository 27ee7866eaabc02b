package document

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extraction is the text content pulled out of an uploaded file: the full
// text plus per-page records carrying character offsets into it.
type Extraction struct {
	FullText string
	Pages    []Page
}

// ExtractPDF reads a PDF from disk and returns its text page by page.
// Pages that fail text extraction contribute an empty page rather than
// aborting the whole document.
func ExtractPDF(path string) (Extraction, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	n := reader.NumPage()
	texts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, strings.ReplaceAll(text, "\r\n", "\n"))
	}

	return BuildExtraction(texts), nil
}

// BuildExtraction assembles page texts into an Extraction with contiguous
// character offsets. Each page's text is terminated by a single newline in
// the full text; EndChar points at that newline, so ranges never overlap
// and FullText is the ordered concatenation of pages.
func BuildExtraction(pageTexts []string) Extraction {
	var b strings.Builder
	pages := make([]Page, 0, len(pageTexts))
	cursor := 0
	for i, text := range pageTexts {
		start := cursor
		b.WriteString(text)
		b.WriteString("\n")
		cursor += len(text) + 1
		pages = append(pages, Page{
			Number:    i + 1,
			Text:      text,
			StartChar: start,
			EndChar:   cursor - 1,
		})
	}
	return Extraction{FullText: b.String(), Pages: pages}
}
