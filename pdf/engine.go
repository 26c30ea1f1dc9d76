package pdf

import (
	"errors"
	"image/color"
)

// ErrInvalidInput marks failures caused by the caller's arguments rather than
// by the documents or the tools processing them.
var ErrInvalidInput = errors.New("invalid input")

// Rect is a rectangle in PDF user space (points, origin bottom-left).
type Rect struct {
	X, Y, Width, Height float64
}

// Inset shrinks r by margin on every side. A margin larger than half the
// rectangle collapses that dimension to zero.
func (r Rect) Inset(margin float64) Rect {
	out := Rect{
		X:      r.X + margin,
		Y:      r.Y + margin,
		Width:  r.Width - 2*margin,
		Height: r.Height - 2*margin,
	}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

// FitRect returns the largest rectangle with the aspect ratio of a w x h
// image that fits inside box, centered in it.
func FitRect(box Rect, w, h float64) Rect {
	if w <= 0 || h <= 0 || box.Width <= 0 || box.Height <= 0 {
		return Rect{X: box.X, Y: box.Y}
	}
	scale := min(box.Width/w, box.Height/h)
	fw, fh := w*scale, h*scale
	return Rect{
		X:      box.X + (box.Width-fw)/2,
		Y:      box.Y + (box.Height-fh)/2,
		Width:  fw,
		Height: fh,
	}
}

// TextOverlay is text drawn on top of a page.
type TextOverlay struct {
	Text     string
	FontName string
	FontSize int
	Angle    int
	Color    color.RGBA
	Opacity  float64
}

// ImageOverlay is an image drawn on top of a page, fitted into Region with its
// aspect ratio preserved.
type ImageOverlay struct {
	Path    string
	Region  Rect
	Opacity float64
}

// SaveOptions control how a document is persisted.
type SaveOptions struct {
	// Optimize drops unused objects and recompresses streams.
	Optimize bool
}

// Document is an open document handle. It is owned by whoever opened it and
// must be closed on every path.
type Document interface {
	PageCount() int
	// PageRect returns the visible area of a 1-based page.
	PageRect(page int) (Rect, error)
	// InsertPages appends pages from..to (1-based, inclusive) of src.
	InsertPages(src Document, from, to int) error
	Rotation(page int) (int, error)
	SetRotation(page, degrees int) error
	DrawText(page int, overlay TextOverlay) error
	DrawImage(page int, overlay ImageOverlay) error
	Save(path string, opts SaveOptions) error
	Close() error
}

// Engine opens and creates documents.
type Engine interface {
	Open(path string) (Document, error)
	New() (Document, error)
	// ImportImages writes a new document with one page per image, each page
	// sized to its image.
	ImportImages(images []string, output string) error
}

// Crypter adds and removes password protection.
type Crypter interface {
	// Decrypt opens input with password and writes it without encryption.
	Decrypt(input, output, password string) error
	// Encrypt writes input encrypted with the given owner and user passwords.
	Encrypt(input, output, ownerPassword, userPassword string) error
}
