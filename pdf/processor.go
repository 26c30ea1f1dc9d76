package pdf

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Table is one extracted table, row-major.
type Table struct {
	Page int
	Rows [][]string
}

// Rasterizer renders pages to images.
type Rasterizer interface {
	Rasterize(ctx context.Context, input string, page, dpi int) (image.Image, error)
}

// Compressor shrinks a PDF with an external tool.
type Compressor interface {
	Compress(ctx context.Context, input, output string) error
}

// OfficeConverter turns office documents into PDF.
type OfficeConverter interface {
	ConvertToPDF(ctx context.Context, input, outDir string) (string, error)
}

// Extractor pulls structure out of PDFs.
type Extractor interface {
	Markdown(input string) (string, error)
	Tables(input string) ([]Table, error)
}

// OfficeWriter writes Office Open XML files.
type OfficeWriter interface {
	WriteDocx(markdown, output string) error
	// WriteSlides writes one slide per JPEG image.
	WriteSlides(images [][]byte, output string) error
	// WriteSheets writes one sheet per table, or a notice sheet when there are none.
	WriteSheets(tables []Table, output string) error
}

// Deps are the collaborators a Processor dispatches to.
type Deps struct {
	Engine     Engine
	Crypter    Crypter
	Rasterizer Rasterizer
	Compressor Compressor
	Converter  OfficeConverter
	Extractor  Extractor
	Office     OfficeWriter
	Log        logrus.FieldLogger
}

// Processor runs operations.
type Processor struct {
	deps       Deps
	assembler  *Assembler
	applicator *Applicator
	log        logrus.FieldLogger
}

// NewProcessor wires a Processor from its collaborators.
func NewProcessor(deps Deps) *Processor {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	return &Processor{
		deps:       deps,
		assembler:  NewAssembler(deps.Engine, deps.Log),
		applicator: NewApplicator(deps.Engine, deps.Log),
		log:        deps.Log,
	}
}

// Run validates op and performs it.
func (p *Processor) Run(ctx context.Context, op Operation) (Result, error) {
	if op == nil {
		return Result{}, fmt.Errorf("%w: no operation", ErrInvalidInput)
	}
	if err := op.Validate(); err != nil {
		return Result{}, err
	}

	log := p.log.WithField("op", op.Kind())
	log.Info("operation started")

	var (
		outputs []string
		err     error
	)
	switch o := op.(type) {
	case MergeOp:
		outputs, err = p.merge(o)
	case SplitOp:
		outputs, err = p.split(log, o)
	case CompressOp:
		outputs, err = p.compress(ctx, log, o)
	case PDFToWordOp:
		outputs, err = p.pdfToWord(o)
	case PDFToPPTXOp:
		outputs, err = p.pdfToPPTX(ctx, o)
	case JPGToPDFOp:
		outputs, err = p.jpgToPDF(o)
	case PDFToJPGOp:
		outputs, err = p.pdfToJPG(ctx, o)
	case RotateOp:
		outputs, err = p.rotate(log, o)
	case UnlockOp:
		outputs, err = []string{o.Output}, p.deps.Crypter.Decrypt(o.Input, o.Output, o.Password)
	case ProtectOp:
		outputs, err = []string{o.Output}, p.deps.Crypter.Encrypt(o.Input, o.Output, o.Password, o.Password)
	case ReorderOp:
		outputs, err = p.reorder(o)
	case WatermarkTextOp:
		outputs, err = p.watermarkText(log, o)
	case WatermarkImageOp:
		outputs, err = p.watermarkImage(log, o)
	case PDFToExcelOp:
		outputs, err = p.pdfToExcel(o)
	case OfficeToPDFOp:
		outputs, err = p.officeToPDF(ctx, o)
	case RemovePagesOp:
		outputs, err = p.removePages(log, o)
	default:
		return Result{}, fmt.Errorf("%w: unsupported operation %q", ErrInvalidInput, op.Kind())
	}

	if err != nil {
		log.WithError(err).Error("operation failed")
		return Result{Outputs: outputs}, fmt.Errorf("%s: %w", op.Kind(), err)
	}
	log.WithField("outputs", len(outputs)).Info("operation finished")
	return Result{Outputs: outputs}, nil
}

func warnDiscards(log logrus.FieldLogger, discards []Discard) {
	for _, d := range discards {
		log.WithFields(logrus.Fields{"token": d.Token, "reason": d.Reason}).Warn("ignoring page selection entry")
	}
}

// pageCount opens input just long enough to count its pages.
func (p *Processor) pageCount(input string) (int, error) {
	doc, err := p.deps.Engine.Open(input)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer doc.Close()
	return doc.PageCount(), nil
}

func (p *Processor) merge(o MergeOp) ([]string, error) {
	err := p.assembler.Single(o.Inputs, AllPagesInOrder, o.Output, SaveOptions{})
	return []string{o.Output}, err
}

func (p *Processor) split(log logrus.FieldLogger, o SplitOp) ([]string, error) {
	return p.assembler.PerPage(o.Input, func(n int) []int {
		pages, discards := ParseRanges(o.Ranges, n)
		warnDiscards(log, discards)
		return SplitPages(pages, n)
	}, o.OutDir)
}

func (p *Processor) pdfToWord(o PDFToWordOp) ([]string, error) {
	md, err := p.deps.Extractor.Markdown(o.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	if err := p.deps.Office.WriteDocx(md, o.Output); err != nil {
		return nil, err
	}
	return []string{o.Output}, nil
}

// renderPages rasterizes every page of input to JPEG, calling emit in page order.
func (p *Processor) renderPages(ctx context.Context, input string, emit func(page int, jpg []byte) error) error {
	n, err := p.pageCount(input)
	if err != nil {
		return err
	}
	for page := 1; page <= n; page++ {
		img, err := p.deps.Rasterizer.Rasterize(ctx, input, page, RasterDPI)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		jpg, err := EncodeJPEG(img, JPEGQuality)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		if err := emit(page, jpg); err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
	}
	return nil
}

func (p *Processor) pdfToPPTX(ctx context.Context, o PDFToPPTXOp) ([]string, error) {
	var slides [][]byte
	if err := p.renderPages(ctx, o.Input, func(_ int, jpg []byte) error {
		slides = append(slides, jpg)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := p.deps.Office.WriteSlides(slides, o.Output); err != nil {
		return nil, err
	}
	return []string{o.Output}, nil
}

func (p *Processor) pdfToJPG(ctx context.Context, o PDFToJPGOp) ([]string, error) {
	if err := os.MkdirAll(o.OutDir, DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	var written []string
	err := p.renderPages(ctx, o.Input, func(page int, jpg []byte) error {
		out := filepath.Join(o.OutDir, PageFileName(page, ".jpg"))
		if err := os.WriteFile(out, jpg, 0644); err != nil {
			return err
		}
		written = append(written, out)
		return nil
	})
	return written, err
}

func (p *Processor) jpgToPDF(o JPGToPDFOp) ([]string, error) {
	dir, err := os.MkdirTemp("", "pdftools_images_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	images, err := NormalizeImages(o.Images, dir)
	if err != nil {
		return nil, err
	}
	if err := p.deps.Engine.ImportImages(images, o.Output); err != nil {
		return nil, err
	}
	return []string{o.Output}, nil
}

// transformPages selects pages for a per-page transform and logs discards.
func transformPages(log logrus.FieldLogger, expr string) func(int) []int {
	return func(n int) []int {
		pages, discards := TransformPages(expr, n)
		warnDiscards(log, discards)
		return pages
	}
}

func (p *Processor) rotate(log logrus.FieldLogger, o RotateOp) ([]string, error) {
	err := p.applicator.Apply(o.Input, transformPages(log, o.Ranges), Rotate{Degrees: o.Rotation}, o.Output)
	return []string{o.Output}, err
}

func (p *Processor) reorder(o ReorderOp) ([]string, error) {
	plan := func(docs []Document) ([]PageRef, error) {
		var refs []PageRef
		for _, idx := range ReorderPages(o.Order, docs[0].PageCount()) {
			refs = append(refs, PageRef{Source: 0, Page: idx + 1})
		}
		return refs, nil
	}
	err := p.assembler.Single([]string{o.Input}, plan, o.Output, SaveOptions{})
	return []string{o.Output}, err
}

func (p *Processor) watermarkText(log logrus.FieldLogger, o WatermarkTextOp) ([]string, error) {
	text := o.Text
	if text == "" {
		text = DefaultWatermarkText
	}
	stamp := StampText{Overlay: TextOverlay{
		Text:     text,
		FontName: "Helvetica",
		FontSize: WatermarkFontSize,
		Angle:    WatermarkAngle,
		Color:    WatermarkColor,
		Opacity:  WatermarkOpacity,
	}}
	err := p.applicator.Apply(o.Input, transformPages(log, o.Ranges), stamp, o.Output)
	return []string{o.Output}, err
}

func (p *Processor) watermarkImage(log logrus.FieldLogger, o WatermarkImageOp) ([]string, error) {
	stamp := StampImage{Path: o.Image, Margin: ImageWatermarkMargin, Opacity: WatermarkOpacity}
	err := p.applicator.Apply(o.Input, transformPages(log, o.Ranges), stamp, o.Output)
	return []string{o.Output}, err
}

func (p *Processor) pdfToExcel(o PDFToExcelOp) ([]string, error) {
	tables, err := p.deps.Extractor.Tables(o.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to extract tables: %w", err)
	}
	if err := p.deps.Office.WriteSheets(tables, o.Output); err != nil {
		return nil, err
	}
	return []string{o.Output}, nil
}

func (p *Processor) officeToPDF(ctx context.Context, o OfficeToPDFOp) ([]string, error) {
	if err := os.MkdirAll(o.OutDir, DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := p.deps.Converter.ConvertToPDF(ctx, o.Input, o.OutDir)
	if err != nil {
		return nil, err
	}
	return []string{out}, nil
}
