package office

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	// listIndent is the left indent per list level, in twips.
	listIndent = 720
	// textWidth is the usable width of a Letter page with 1in margins, in twips.
	textWidth = 9360
	codeFont  = "Courier New"
)

// run is a span of text with uniform formatting.
type run struct {
	text                       string
	bold, italic, code, strike bool
	lineBreak                  bool
}

// docxBuilder renders a markdown AST as WordprocessingML body content.
type docxBuilder struct {
	source     []byte
	body       strings.Builder
	paragraphs int
}

// WriteDocx converts markdown into a Word document at output. Headings,
// lists, block quotes, code and pipe tables keep their structure.
func (w *Writer) WriteDocx(markdown, output string) error {
	src := []byte(markdown)
	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
	doc := md.Parser().Parse(text.NewReader(src))

	b := &docxBuilder{source: src}
	b.blocks(doc, 0, "")
	if b.paragraphs == 0 {
		// a body needs at least one paragraph
		b.paragraph("", 0, nil)
	}

	parts := []part{
		{"[Content_Types].xml", []byte(docxContentTypes)},
		{"_rels/.rels", relationships(relationship("rId1", relOfficeDocument, "word/document.xml"))},
		{"word/_rels/document.xml.rels", relationships(relationship("rId1", relStyles, "styles.xml"))},
		{"word/document.xml", documentXML(b.body.String())},
		{"word/styles.xml", stylesXML()},
	}
	if err := writePackage(output, parts); err != nil {
		return err
	}

	w.log.WithFields(logrus.Fields{"output": output, "paragraphs": b.paragraphs}).Debug("wrote word document")
	return nil
}

func (b *docxBuilder) blocks(node ast.Node, depth int, style string) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		b.block(child, depth, style)
	}
}

func (b *docxBuilder) block(node ast.Node, depth int, style string) {
	switch n := node.(type) {
	case *ast.Heading:
		b.paragraph(fmt.Sprintf("Heading%d", min(n.Level, 6)), 0, b.inlines(n, run{}))
	case *ast.Paragraph, *ast.TextBlock:
		b.paragraph(style, depth, b.inlines(n, run{}))
	case *ast.List:
		b.list(n, depth)
	case *ast.Blockquote:
		b.blocks(n, depth, "Quote")
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			line := strings.TrimRight(string(seg.Value(b.source)), "\r\n")
			b.paragraph("Code", depth, []run{{text: line, code: true}})
		}
	case *ast.ThematicBreak:
		b.paragraph("", 0, nil)
	case *east.Table:
		b.table(n)
	case *ast.HTMLBlock:
	default:
		b.blocks(n, depth, style)
	}
}

func (b *docxBuilder) list(l *ast.List, depth int) {
	number := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "• "
		if l.IsOrdered() {
			marker = fmt.Sprintf("%d%c ", number, l.Marker)
			number++
		}

		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch n := c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				runs := b.inlines(n, run{})
				if first {
					runs = append([]run{{text: marker}}, runs...)
					first = false
				}
				b.paragraph("ListParagraph", depth+1, runs)
			case *ast.List:
				b.list(n, depth+1)
			default:
				b.block(c, depth+1, "ListParagraph")
			}
		}
		if first {
			b.paragraph("ListParagraph", depth+1, []run{{text: marker}})
		}
	}
}

// inlines flattens the inline children of node into runs, layering
// emphasis and code formatting on top of base.
func (b *docxBuilder) inlines(node ast.Node, base run) []run {
	var runs []run
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Text:
			r := base
			r.text = string(n.Segment.Value(b.source))
			runs = append(runs, r)
			if n.HardLineBreak() {
				runs = append(runs, run{lineBreak: true})
			} else if n.SoftLineBreak() {
				sp := base
				sp.text = " "
				runs = append(runs, sp)
			}
		case *ast.String:
			r := base
			r.text = string(n.Value)
			runs = append(runs, r)
		case *ast.Emphasis:
			s := base
			if n.Level >= 2 {
				s.bold = true
			} else {
				s.italic = true
			}
			runs = append(runs, b.inlines(n, s)...)
		case *ast.CodeSpan:
			s := base
			s.code = true
			runs = append(runs, b.inlines(n, s)...)
		case *east.Strikethrough:
			s := base
			s.strike = true
			runs = append(runs, b.inlines(n, s)...)
		case *ast.AutoLink:
			r := base
			r.text = string(n.Label(b.source))
			runs = append(runs, r)
		case *ast.RawHTML:
		default:
			runs = append(runs, b.inlines(n, base)...)
		}
	}
	return runs
}

func (b *docxBuilder) paragraph(style string, indent int, runs []run) {
	b.body.WriteString("<w:p>")
	if style != "" || indent > 0 {
		b.body.WriteString("<w:pPr>")
		if style != "" {
			fmt.Fprintf(&b.body, `<w:pStyle w:val="%s"/>`, style)
		}
		if indent > 0 {
			fmt.Fprintf(&b.body, `<w:ind w:left="%d"/>`, indent*listIndent)
		}
		b.body.WriteString("</w:pPr>")
	}
	for _, r := range runs {
		b.run(r)
	}
	b.body.WriteString("</w:p>")
	b.paragraphs++
}

func (b *docxBuilder) run(r run) {
	b.body.WriteString("<w:r>")
	if r.code || r.bold || r.italic || r.strike {
		b.body.WriteString("<w:rPr>")
		if r.code {
			fmt.Fprintf(&b.body, `<w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s" w:cs="%[1]s"/>`, codeFont)
		}
		if r.bold {
			b.body.WriteString("<w:b/>")
		}
		if r.italic {
			b.body.WriteString("<w:i/>")
		}
		if r.strike {
			b.body.WriteString("<w:strike/>")
		}
		b.body.WriteString("</w:rPr>")
	}
	if r.lineBreak {
		b.body.WriteString("<w:br/>")
	} else {
		b.body.WriteString(`<w:t xml:space="preserve">` + escape(r.text) + `</w:t>`)
	}
	b.body.WriteString("</w:r>")
}

func (b *docxBuilder) table(t *east.Table) {
	cols := len(t.Alignments)
	if cols == 0 {
		cols = 1
	}

	b.body.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/><w:tblW w:w="0" w:type="auto"/></w:tblPr><w:tblGrid>`)
	for i := 0; i < cols; i++ {
		fmt.Fprintf(&b.body, `<w:gridCol w:w="%d"/>`, textWidth/cols)
	}
	b.body.WriteString("</w:tblGrid>")

	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		_, header := row.(*east.TableHeader)
		b.body.WriteString("<w:tr>")
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			fmt.Fprintf(&b.body, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/></w:tcPr>`, textWidth/cols)
			b.paragraph("", 0, b.inlines(cell, run{bold: header}))
			b.body.WriteString("</w:tc>")
		}
		b.body.WriteString("</w:tr>")
	}
	b.body.WriteString("</w:tbl>")

	// Word expects a paragraph between a table and whatever follows it
	b.paragraph("", 0, nil)
}

const docxContentTypes = xmlHeader +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`</Types>`

const wordNamespaces = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

func documentXML(body string) []byte {
	return []byte(xmlHeader +
		`<w:document ` + wordNamespaces + `><w:body>` + body +
		`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`)
}

// headingSizes are the Heading1-6 font sizes in half-points.
var headingSizes = []int{40, 32, 28, 26, 24, 22}

func stylesXML() []byte {
	var sb strings.Builder
	sb.WriteString(xmlHeader + `<w:styles ` + wordNamespaces + `>`)
	sb.WriteString(`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:cs="Calibri"/>` +
		`<w:sz w:val="22"/></w:rPr></w:rPrDefault>` +
		`<w:pPrDefault><w:pPr><w:spacing w:after="160" w:line="259" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>`)
	sb.WriteString(`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>`)
	for i, size := range headingSizes {
		level := i + 1
		fmt.Fprintf(&sb, `<w:style w:type="paragraph" w:styleId="Heading%[1]d"><w:name w:val="heading %[1]d"/>`+
			`<w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/>`+
			`<w:pPr><w:keepNext/><w:spacing w:before="240" w:after="80"/><w:outlineLvl w:val="%[2]d"/></w:pPr>`+
			`<w:rPr><w:b/><w:sz w:val="%[3]d"/></w:rPr></w:style>`, level, i, size)
	}
	sb.WriteString(`<w:style w:type="paragraph" w:styleId="ListParagraph"><w:name w:val="List Paragraph"/>` +
		`<w:basedOn w:val="Normal"/><w:qFormat/><w:pPr><w:spacing w:after="60"/></w:pPr></w:style>`)
	sb.WriteString(`<w:style w:type="paragraph" w:styleId="Quote"><w:name w:val="Quote"/><w:basedOn w:val="Normal"/>` +
		`<w:qFormat/><w:pPr><w:ind w:left="720" w:right="720"/></w:pPr><w:rPr><w:i/></w:rPr></w:style>`)
	fmt.Fprintf(&sb, `<w:style w:type="paragraph" w:styleId="Code"><w:name w:val="Code"/><w:basedOn w:val="Normal"/>`+
		`<w:pPr><w:spacing w:after="0"/></w:pPr><w:rPr><w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s" w:cs="%[1]s"/><w:sz w:val="20"/></w:rPr></w:style>`, codeFont)
	sb.WriteString(`<w:style w:type="table" w:styleId="TableGrid"><w:name w:val="Table Grid"/><w:tblPr><w:tblBorders>` +
		`<w:top w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:left w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:bottom w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:right w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:insideH w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:insideV w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`</w:tblBorders></w:tblPr></w:style>`)
	sb.WriteString(`</w:styles>`)
	return []byte(sb.String())
}
