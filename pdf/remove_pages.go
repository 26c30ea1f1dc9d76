package pdf

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// removePages rebuilds Input without the pages selected by Ranges. Selecting
// no valid page, or every page, is rejected.
func (p *Processor) removePages(log logrus.FieldLogger, o RemovePagesOp) ([]string, error) {
	plan := func(docs []Document) ([]PageRef, error) {
		total := docs[0].PageCount()

		removed, discards := ParseRanges(o.Ranges, total)
		warnDiscards(log, discards)
		if len(removed) == 0 {
			return nil, fmt.Errorf("%w: no valid pages to remove in %q (document has %d pages)", ErrInvalidInput, o.Ranges, total)
		}

		keep := RemainingPages(removed, total)
		if len(keep) == 0 {
			return nil, fmt.Errorf("%w: cannot remove all %d pages", ErrInvalidInput, total)
		}

		log.WithFields(logrus.Fields{"removed": len(removed), "kept": len(keep)}).Debug("pages selected for removal")

		refs := make([]PageRef, 0, len(keep))
		for _, page := range keep {
			refs = append(refs, PageRef{Source: 0, Page: page})
		}
		return refs, nil
	}

	err := p.assembler.Single([]string{o.Input}, plan, o.Output, SaveOptions{})
	return []string{o.Output}, err
}
