// Package pdftest provides a pdf.Engine that stores documents as JSON page
// lists, for tests that exercise operations without real PDFs.
package pdftest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pdftools/pdf"
)

// Letter is the page size WriteFile uses.
var Letter = pdf.Rect{Width: 612, Height: 792}

// Page is one page of a fake document. Source and Number identify where it
// was first created, so tests can follow pages through merges and reorders.
type Page struct {
	Source   string             `json:"source"`
	Number   int                `json:"number"`
	Box      pdf.Rect           `json:"box"`
	Rotation int                `json:"rotation"`
	Texts    []pdf.TextOverlay  `json:"texts,omitempty"`
	Images   []pdf.ImageOverlay `json:"images,omitempty"`
}

// File is the on-disk form of a fake document.
type File struct {
	Pages     []Page `json:"pages"`
	Optimized bool   `json:"optimized,omitempty"`
	Password  string `json:"password,omitempty"`
}

// Label identifies each page as "source:number", in order.
func (f *File) Label() []string {
	labels := make([]string, 0, len(f.Pages))
	for _, p := range f.Pages {
		labels = append(labels, fmt.Sprintf("%s:%d", p.Source, p.Number))
	}
	return labels
}

// WriteFile creates a fake document at path with n Letter pages whose source
// is the base name of path.
func WriteFile(path string, n int) error {
	f := &File{}
	for i := 1; i <= n; i++ {
		f.Pages = append(f.Pages, Page{Source: filepath.Base(path), Number: i, Box: Letter})
	}
	return f.save(path)
}

// ReadFile loads a fake document.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &File{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("%s is not a fake document: %w", path, err)
	}
	return f, nil
}

func (f *File) save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Engine implements pdf.Engine over fake documents. It counts handles so
// tests can check every opened document gets closed.
type Engine struct {
	mu     sync.Mutex
	open   int
	closed int

	// FailSave makes Save fail for these output paths.
	FailSave map[string]bool
}

var _ pdf.Engine = (*Engine)(nil)

// NewEngine returns an empty Engine.
func NewEngine() *Engine {
	return &Engine{FailSave: map[string]bool{}}
}

// Outstanding is the number of documents opened or created but not closed.
func (e *Engine) Outstanding() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open - e.closed
}

func (e *Engine) track() {
	e.mu.Lock()
	e.open++
	e.mu.Unlock()
}

func (e *Engine) Open(path string) (pdf.Document, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	e.track()
	return &Document{engine: e, file: f}, nil
}

func (e *Engine) New() (pdf.Document, error) {
	e.track()
	return &Document{engine: e, file: &File{}}, nil
}

// ImportImages writes one Letter page per image, sourced from the image's
// base name.
func (e *Engine) ImportImages(images []string, output string) error {
	f := &File{}
	for i, img := range images {
		if _, err := os.Stat(img); err != nil {
			return err
		}
		f.Pages = append(f.Pages, Page{Source: filepath.Base(img), Number: i + 1, Box: Letter})
	}
	return f.save(output)
}

// Document is an open fake document.
type Document struct {
	engine *Engine
	file   *File
	closed bool
}

func (d *Document) page(n int) (*Page, error) {
	if n < 1 || n > len(d.file.Pages) {
		return nil, fmt.Errorf("page %d out of range 1-%d", n, len(d.file.Pages))
	}
	return &d.file.Pages[n-1], nil
}

func (d *Document) PageCount() int { return len(d.file.Pages) }

func (d *Document) PageRect(n int) (pdf.Rect, error) {
	p, err := d.page(n)
	if err != nil {
		return pdf.Rect{}, err
	}
	return p.Box, nil
}

func (d *Document) InsertPages(src pdf.Document, from, to int) error {
	s, ok := src.(*Document)
	if !ok {
		return errors.New("source is not a fake document")
	}
	if from < 1 || to > s.PageCount() || from > to {
		return fmt.Errorf("pages %d-%d out of range 1-%d", from, to, s.PageCount())
	}
	for i := from; i <= to; i++ {
		p := s.file.Pages[i-1]
		p.Texts = append([]pdf.TextOverlay(nil), p.Texts...)
		p.Images = append([]pdf.ImageOverlay(nil), p.Images...)
		d.file.Pages = append(d.file.Pages, p)
	}
	return nil
}

func (d *Document) Rotation(n int) (int, error) {
	p, err := d.page(n)
	if err != nil {
		return 0, err
	}
	return p.Rotation, nil
}

func (d *Document) SetRotation(n, degrees int) error {
	p, err := d.page(n)
	if err != nil {
		return err
	}
	p.Rotation = degrees
	return nil
}

func (d *Document) DrawText(n int, overlay pdf.TextOverlay) error {
	p, err := d.page(n)
	if err != nil {
		return err
	}
	p.Texts = append(p.Texts, overlay)
	return nil
}

func (d *Document) DrawImage(n int, overlay pdf.ImageOverlay) error {
	p, err := d.page(n)
	if err != nil {
		return err
	}
	p.Images = append(p.Images, overlay)
	return nil
}

func (d *Document) Save(path string, opts pdf.SaveOptions) error {
	if d.closed {
		return errors.New("document is closed")
	}
	d.engine.mu.Lock()
	fail := d.engine.FailSave[path]
	d.engine.mu.Unlock()
	if fail {
		return fmt.Errorf("cannot write %s", path)
	}
	out := *d.file
	out.Optimized = opts.Optimize
	return out.save(path)
}

func (d *Document) Close() error {
	if d.closed {
		return errors.New("document closed twice")
	}
	d.closed = true
	d.engine.mu.Lock()
	d.engine.closed++
	d.engine.mu.Unlock()
	return nil
}

// Crypter implements pdf.Crypter by recording the password in the file.
type Crypter struct{}

var _ pdf.Crypter = Crypter{}

func (Crypter) Encrypt(input, output, ownerPassword, userPassword string) error {
	f, err := ReadFile(input)
	if err != nil {
		return err
	}
	f.Password = userPassword
	return f.save(output)
}

func (Crypter) Decrypt(input, output, password string) error {
	f, err := ReadFile(input)
	if err != nil {
		return err
	}
	if f.Password != "" && f.Password != password {
		return errors.New("wrong password")
	}
	f.Password = ""
	return f.save(output)
}
