package pdf

import (
	"fmt"
)

// PageInfo describes one page as the engine sees it.
type PageInfo struct {
	Page     int     `json:"page"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"`
}

// Analysis summarizes a document's pages.
type Analysis struct {
	TotalPages int        `json:"total_pages"`
	Pages      []PageInfo `json:"pages"`
}

// Analyze reports page count, visible page size in points and rotation for
// every page of filename.
func Analyze(engine Engine, filename string) (*Analysis, error) {
	doc, err := engine.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer doc.Close()

	analysis := &Analysis{TotalPages: doc.PageCount(), Pages: []PageInfo{}}
	for page := 1; page <= analysis.TotalPages; page++ {
		rect, err := doc.PageRect(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		rotation, err := doc.Rotation(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		analysis.Pages = append(analysis.Pages, PageInfo{
			Page:     page,
			Width:    rect.Width,
			Height:   rect.Height,
			Rotation: rotation,
		})
	}
	return analysis, nil
}
