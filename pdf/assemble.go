package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// PageRef points at a 1-based page of one of the assembler's sources.
type PageRef struct {
	Source int
	Page   int
}

// pageRun is a contiguous block of pages from one source.
type pageRun struct {
	source   int
	from, to int
}

// coalesce folds consecutive refs into contiguous runs so each run becomes a
// single insert.
func coalesce(refs []PageRef) []pageRun {
	var runs []pageRun
	for _, ref := range refs {
		if n := len(runs); n > 0 {
			last := &runs[n-1]
			if last.source == ref.Source && last.to+1 == ref.Page {
				last.to = ref.Page
				continue
			}
		}
		runs = append(runs, pageRun{source: ref.Source, from: ref.Page, to: ref.Page})
	}
	return runs
}

// Assembler builds new documents out of pages of existing ones.
type Assembler struct {
	engine Engine
	log    logrus.FieldLogger
}

// NewAssembler returns an Assembler backed by engine.
func NewAssembler(engine Engine, log logrus.FieldLogger) *Assembler {
	return &Assembler{engine: engine, log: log}
}

// openAll opens every source. On failure the ones already opened are closed.
func (a *Assembler) openAll(paths []string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		doc, err := a.engine.Open(p)
		if err != nil {
			closeAll(docs, a.log)
			return nil, fmt.Errorf("failed to open %s: %w", p, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func closeAll(docs []Document, log logrus.FieldLogger) {
	for _, doc := range docs {
		if err := doc.Close(); err != nil {
			log.WithError(err).Warn("failed to close document")
		}
	}
}

// Planner picks the pages of the opened sources that go into the output, in
// output order.
type Planner func(docs []Document) ([]PageRef, error)

// AllPagesInOrder plans every page of every source, sources in order.
func AllPagesInOrder(docs []Document) ([]PageRef, error) {
	var refs []PageRef
	for i, doc := range docs {
		for page := 1; page <= doc.PageCount(); page++ {
			refs = append(refs, PageRef{Source: i, Page: page})
		}
	}
	return refs, nil
}

// Single writes one document to output holding the pages plan picks. Sources
// are opened here and released before returning.
func (a *Assembler) Single(sources []string, plan Planner, output string, opts SaveOptions) error {
	docs, err := a.openAll(sources)
	if err != nil {
		return err
	}
	defer closeAll(docs, a.log)

	refs, err := plan(docs)
	if err != nil {
		return err
	}
	return a.assemble(docs, refs, output, opts)
}

// assemble inserts refs from already opened docs into a fresh document.
func (a *Assembler) assemble(docs []Document, refs []PageRef, output string, opts SaveOptions) error {
	if len(refs) == 0 {
		return fmt.Errorf("%w: no pages selected", ErrInvalidInput)
	}

	dst, err := a.engine.New()
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	defer func() {
		if err := dst.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close document")
		}
	}()

	for _, run := range coalesce(refs) {
		if run.source < 0 || run.source >= len(docs) {
			return fmt.Errorf("page reference to unknown source %d", run.source)
		}
		if err := dst.InsertPages(docs[run.source], run.from, run.to); err != nil {
			return fmt.Errorf("failed to insert pages %d-%d: %w", run.from, run.to, err)
		}
	}

	if err := dst.Save(output, opts); err != nil {
		return fmt.Errorf("failed to save %s: %w", output, err)
	}
	return nil
}

// PageFileName names the single-page file written for a 1-based page.
func PageFileName(page int, ext string) string {
	return fmt.Sprintf("page-%d%s", page, ext)
}

// PerPage writes each page that selectPages picks from source to its own file
// in outDir. Every page is attempted; the paths written are returned together
// with the joined errors of the pages that failed.
func (a *Assembler) PerPage(source string, selectPages func(pageCount int) []int, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	docs, err := a.openAll([]string{source})
	if err != nil {
		return nil, err
	}
	defer closeAll(docs, a.log)

	var (
		written []string
		errs    []error
	)
	for _, page := range selectPages(docs[0].PageCount()) {
		out := filepath.Join(outDir, PageFileName(page, ".pdf"))
		if err := a.assemble(docs, []PageRef{{Source: 0, Page: page}}, out, SaveOptions{}); err != nil {
			a.log.WithError(err).WithField("page", page).Error("failed to write page")
			errs = append(errs, fmt.Errorf("page %d: %w", page, err))
			continue
		}
		written = append(written, out)
	}

	return written, errors.Join(errs...)
}
