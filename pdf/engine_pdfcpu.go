package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var errClosed = errors.New("document is closed")

// PDFCPUEngine is the Engine backed by pdfcpu.
type PDFCPUEngine struct {
	conf *model.Configuration
}

// NewPDFCPUEngine returns an engine using pdfcpu's default configuration.
func NewPDFCPUEngine() *PDFCPUEngine {
	return &PDFCPUEngine{conf: model.NewDefaultConfiguration()}
}

// Open reads and validates the document at path.
func (e *PDFCPUEngine) Open(path string) (Document, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, err
	}
	return &pdfcpuDocument{conf: e.conf, path: path, ctx: ctx}, nil
}

// New returns an empty document that collects pages from other documents.
func (e *PDFCPUEngine) New() (Document, error) {
	return &pdfcpuDocument{conf: e.conf}, nil
}

// ImportImages writes one page per image, each page the size of its image.
func (e *PDFCPUEngine) ImportImages(images []string, output string) error {
	imp, err := api.Import("pos:full", types.POINTS)
	if err != nil {
		return err
	}
	return api.ImportImagesFile(images, output, imp, e.conf)
}

// segment is a list of pages collected from one source file.
type segment struct {
	path  string
	pages []string
}

// pdfcpuDocument is either an opened file (ctx set) or a new document that
// is materialized from its segments on Save.
type pdfcpuDocument struct {
	conf     *model.Configuration
	path     string
	ctx      *model.Context
	segments []segment
	pages    int
	closed   bool
}

func (d *pdfcpuDocument) PageCount() int {
	if d.ctx != nil {
		return d.ctx.PageCount
	}
	return d.pages
}

func (d *pdfcpuDocument) pageAttrs(page int) (types.Dict, *model.InheritedPageAttrs, error) {
	if d.closed {
		return nil, nil, errClosed
	}
	if d.ctx == nil {
		return nil, nil, errors.New("new documents have no page dictionaries until saved")
	}
	if page < 1 || page > d.ctx.PageCount {
		return nil, nil, fmt.Errorf("page %d out of range 1-%d", page, d.ctx.PageCount)
	}
	dict, _, inh, err := d.ctx.PageDict(page, false)
	if err != nil {
		return nil, nil, err
	}
	if dict == nil || inh == nil {
		return nil, nil, fmt.Errorf("page %d has no page dictionary", page)
	}
	return dict, inh, nil
}

func (d *pdfcpuDocument) PageRect(page int) (Rect, error) {
	_, inh, err := d.pageAttrs(page)
	if err != nil {
		return Rect{}, err
	}
	box := inh.CropBox
	if box == nil {
		box = inh.MediaBox
	}
	if box == nil {
		return Rect{}, fmt.Errorf("page %d has no media box", page)
	}
	return Rect{X: box.LL.X, Y: box.LL.Y, Width: box.Width(), Height: box.Height()}, nil
}

func (d *pdfcpuDocument) InsertPages(src Document, from, to int) error {
	if d.closed {
		return errClosed
	}
	if d.ctx != nil {
		return errors.New("pages can only be inserted into new documents")
	}
	s, ok := src.(*pdfcpuDocument)
	if !ok || s.path == "" {
		return errors.New("source must be a document opened from a file")
	}
	if from < 1 || to > s.PageCount() || from > to {
		return fmt.Errorf("pages %d-%d out of range 1-%d", from, to, s.PageCount())
	}

	var pages []string
	for p := from; p <= to; p++ {
		pages = append(pages, strconv.Itoa(p))
	}
	if n := len(d.segments); n > 0 && d.segments[n-1].path == s.path {
		d.segments[n-1].pages = append(d.segments[n-1].pages, pages...)
	} else {
		d.segments = append(d.segments, segment{path: s.path, pages: pages})
	}
	d.pages += len(pages)
	return nil
}

func (d *pdfcpuDocument) Rotation(page int) (int, error) {
	_, inh, err := d.pageAttrs(page)
	if err != nil {
		return 0, err
	}
	return inh.Rotate, nil
}

func (d *pdfcpuDocument) SetRotation(page, degrees int) error {
	dict, _, err := d.pageAttrs(page)
	if err != nil {
		return err
	}
	dict.Update("Rotate", types.Integer(NormalizeRotation(degrees)))
	return nil
}

// textDescription renders overlay as a pdfcpu watermark description.
func textDescription(o TextOverlay) string {
	return fmt.Sprintf("font:%s, points:%d, rot:%d, fillc:#%02X%02X%02X, op:%.2f, scalefactor:1 abs, pos:c",
		o.FontName, o.FontSize, o.Angle, o.Color.R, o.Color.G, o.Color.B, o.Opacity)
}

func (d *pdfcpuDocument) DrawText(page int, o TextOverlay) error {
	if _, _, err := d.pageAttrs(page); err != nil {
		return err
	}
	wm, err := api.TextWatermark(o.Text, textDescription(o), true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("invalid text overlay: %w", err)
	}
	return pdfcpu.AddWatermarks(d.ctx, types.IntSet{page: true}, wm)
}

// imageDescription places an image of w x h pixels inside region of a page
// whose visible area is box.
func imageDescription(box, region Rect, w, h int, opacity float64) string {
	fit := FitRect(region, float64(w), float64(h))
	scale := 0.0
	if w > 0 {
		scale = fit.Width / float64(w)
	}
	return fmt.Sprintf("pos:bl, off:%.2f %.2f, scalefactor:%.4f abs, rot:0, op:%.2f",
		fit.X-box.X, fit.Y-box.Y, scale, opacity)
}

func (d *pdfcpuDocument) DrawImage(page int, o ImageOverlay) error {
	box, err := d.PageRect(page)
	if err != nil {
		return err
	}
	w, h, err := imageSize(o.Path)
	if err != nil {
		return err
	}
	wm, err := api.ImageWatermark(o.Path, imageDescription(box, o.Region, w, h, o.Opacity), true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("invalid image overlay: %w", err)
	}
	return pdfcpu.AddWatermarks(d.ctx, types.IntSet{page: true}, wm)
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("unsupported image %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

func (d *pdfcpuDocument) Save(path string, opts SaveOptions) error {
	if d.closed {
		return errClosed
	}

	if d.ctx != nil {
		if opts.Optimize {
			if err := api.OptimizeContext(d.ctx); err != nil {
				return fmt.Errorf("optimize failed: %w", err)
			}
		}
		return api.WriteContextFile(d.ctx, path)
	}

	if len(d.segments) == 0 {
		return errors.New("document has no pages")
	}
	if err := d.saveSegments(path); err != nil {
		return err
	}
	if opts.Optimize {
		return api.OptimizeFile(path, "", d.conf)
	}
	return nil
}

// saveSegments collects each segment in order and merges the results.
func (d *pdfcpuDocument) saveSegments(path string) error {
	if len(d.segments) == 1 {
		s := d.segments[0]
		return api.CollectFile(s.path, path, s.pages, d.conf)
	}

	dir, err := os.MkdirTemp("", "pdftools_assemble_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	parts := make([]string, 0, len(d.segments))
	for i, s := range d.segments {
		part := filepath.Join(dir, fmt.Sprintf("part-%d.pdf", i))
		if err := api.CollectFile(s.path, part, s.pages, d.conf); err != nil {
			return fmt.Errorf("failed to collect pages from %s: %w", s.path, err)
		}
		parts = append(parts, part)
	}
	return api.MergeCreateFile(parts, path, false, d.conf)
}

func (d *pdfcpuDocument) Close() error {
	d.closed = true
	d.ctx = nil
	d.segments = nil
	return nil
}

// PDFCPUCrypter is the Crypter backed by pdfcpu.
type PDFCPUCrypter struct{}

// Decrypt writes an unencrypted copy of input. A file that is not
// encrypted is validated and written back unchanged.
func (PDFCPUCrypter) Decrypt(input, output, password string) error {
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	ctx, err := api.ReadContext(f, passwordConfiguration(password))
	f.Close()
	if err != nil {
		return err
	}

	if ctx.Encrypt == nil {
		if err := api.ValidateContext(ctx); err != nil {
			return err
		}
		return api.WriteContextFile(ctx, output)
	}
	return api.DecryptFile(input, output, passwordConfiguration(password))
}

func passwordConfiguration(password string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	return conf
}

// Encrypt writes an AES-128 encrypted copy of input.
func (PDFCPUCrypter) Encrypt(input, output, ownerPassword, userPassword string) error {
	conf := model.NewAESConfiguration(userPassword, ownerPassword, EncryptionKeyLength)
	return api.EncryptFile(input, output, conf)
}
