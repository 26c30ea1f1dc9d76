// Package office writes the Office Open XML files produced by the PDF
// conversions: Word documents from extracted markdown, slide decks from page
// renders and workbooks from detected tables.
package office

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"pdftools/pdf"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// Writer implements pdf.OfficeWriter.
type Writer struct {
	log logrus.FieldLogger
}

var _ pdf.OfficeWriter = (*Writer)(nil)

// NewWriter returns a Writer that logs to log.
func NewWriter(log logrus.FieldLogger) *Writer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Writer{log: log}
}

// part is one entry of an OPC package.
type part struct {
	name string
	data []byte
}

// writePackage writes parts, in order, as a zip container at path.
func writePackage(path string, parts []part) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	zw := zip.NewWriter(f)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			zw.Close()
			f.Close()
			return fmt.Errorf("failed to add %s: %w", p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			zw.Close()
			f.Close()
			return fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// escape returns s safe for XML text and attribute content.
func escape(s string) string {
	var sb strings.Builder
	// strings.Builder never fails to write
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func relationship(id, typ, target string) string {
	return fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="%s"/>`, id, typ, target)
}

func relationships(rels ...string) []byte {
	return []byte(xmlHeader +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		strings.Join(rels, "") +
		`</Relationships>`)
}

const (
	relOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relSlideMaster    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	relSlideLayout    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	relSlide          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relTheme          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
	relImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)
