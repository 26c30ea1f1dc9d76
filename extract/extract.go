// Package extract pulls text and tables out of PDFs with tabula.
package extract

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"pdftools/pdf"
)

// Tabula implements pdf.Extractor.
type Tabula struct {
	log logrus.FieldLogger
}

// New returns a tabula-backed extractor.
func New(log logrus.FieldLogger) *Tabula {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Tabula{log: log}
}

// Markdown renders the document's text as markdown with headings, lists and
// paragraphs detected from layout.
func (t *Tabula) Markdown(input string) (string, error) {
	md, warnings, err := tabula.Open(input).ExcludeHeadersAndFooters().ToMarkdown()
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", input, err)
	}
	if len(warnings) > 0 {
		t.log.WithField("warnings", len(warnings)).Warn("text extraction reported problems")
	}
	return md, nil
}

// pageSource is the part of tabula's reader table detection walks.
type pageSource interface {
	PageCount() (int, error)
	GetPage(index int) (*pages.Page, error)
	ExtractTextFragments(page *pages.Page) ([]text.TextFragment, error)
}

// Tables runs geometric table detection over every page, in page order.
// The document is parsed once.
func (t *Tabula) Tables(input string) ([]pdf.Table, error) {
	r, err := reader.Open(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", input, err)
	}
	defer r.Close()

	return t.detect(r)
}

func (t *Tabula) detect(src pageSource) ([]pdf.Table, error) {
	count, err := src.PageCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	detector := tables.NewGeometricDetector()
	var found []pdf.Table
	for number := 1; number <= count; number++ {
		page, err := src.GetPage(number - 1)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", number, err)
		}
		fragments, err := src.ExtractTextFragments(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", number, err)
		}

		detected, err := detector.Detect(pageModel(number, fragments))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", number, err)
		}
		for _, tbl := range detected {
			if rows := tableRows(tbl); len(rows) > 0 {
				found = append(found, pdf.Table{Page: number, Rows: rows})
			}
		}
	}

	t.log.WithFields(logrus.Fields{"pages": count, "tables": len(found)}).Debug("table detection finished")
	return found, nil
}

func pageModel(number int, fragments []text.TextFragment) *model.Page {
	page := model.NewPage(0, 0)
	page.Number = number
	for _, f := range fragments {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		page.RawText = append(page.RawText, model.TextFragment{
			Text:     f.Text,
			BBox:     model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height},
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}
	return page
}

// tableRows flattens a detected table into trimmed cell text, dropping rows
// that are entirely empty.
func tableRows(tbl *model.Table) [][]string {
	var rows [][]string
	for _, row := range tbl.Rows {
		cells := make([]string, len(row))
		empty := true
		for i, cell := range row {
			cells[i] = strings.TrimSpace(cell.Text)
			if cells[i] != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, cells)
		}
	}
	return rows
}
