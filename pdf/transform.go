package pdf

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// PageTransform mutates a single page of an open document in place.
type PageTransform interface {
	apply(doc Document, page int) error
}

// Rotate turns a page by Degrees on top of whatever rotation it already has.
type Rotate struct {
	Degrees int
}

// NormalizeRotation maps any multiple of 90 into [0, 360).
func NormalizeRotation(degrees int) int {
	return ((degrees % 360) + 360) % 360
}

func (r Rotate) apply(doc Document, page int) error {
	current, err := doc.Rotation(page)
	if err != nil {
		return err
	}
	return doc.SetRotation(page, NormalizeRotation(current+r.Degrees))
}

// StampText draws a text overlay on a page.
type StampText struct {
	Overlay TextOverlay
}

func (s StampText) apply(doc Document, page int) error {
	return doc.DrawText(page, s.Overlay)
}

// StampImage draws an image overlay inside the page inset by Margin.
type StampImage struct {
	Path    string
	Margin  float64
	Opacity float64
}

func (s StampImage) apply(doc Document, page int) error {
	box, err := doc.PageRect(page)
	if err != nil {
		return err
	}
	return doc.DrawImage(page, ImageOverlay{
		Path:    s.Path,
		Region:  box.Inset(s.Margin),
		Opacity: s.Opacity,
	})
}

// Applicator runs a PageTransform over a selection of pages.
type Applicator struct {
	engine Engine
	log    logrus.FieldLogger
}

// NewApplicator returns an Applicator backed by engine.
func NewApplicator(engine Engine, log logrus.FieldLogger) *Applicator {
	return &Applicator{engine: engine, log: log}
}

// Apply opens input, applies t once to each page selectPages picks, and saves
// the whole document to output. Pages outside the selection are left alone.
func (a *Applicator) Apply(input string, selectPages func(pageCount int) []int, t PageTransform, output string) error {
	doc, err := a.engine.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer func() {
		if err := doc.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close document")
		}
	}()

	pages := selectPages(doc.PageCount())
	for _, page := range pages {
		if page < 1 || page > doc.PageCount() {
			continue
		}
		if err := t.apply(doc, page); err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
	}

	a.log.WithField("pages", len(pages)).Debug("transform applied")

	if err := doc.Save(output, SaveOptions{}); err != nil {
		return fmt.Errorf("failed to save %s: %w", output, err)
	}
	return nil
}
