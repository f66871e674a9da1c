// Package pagemap builds the concatenated match buffer for a page sequence
// and the offset->page-id lookup over it (spec §4.4).
package pagemap

import (
	"sort"
	"strings"

	"github.com/praetorian-inc/arsegment/pkg/types"
)

// Boundary is one page's half-open range [Start, End) in the joined buffer.
// End is the offset of the inserted joiner newline, or the buffer length
// for the last page.
type Boundary struct {
	ID    int64
	Start int
	End   int
}

// PageMap is the derived, per-call artefact described in spec §3: the
// joined buffer plus the boundary table and the binary-search lookup over
// it. Matching always happens against Buffer, regardless of the caller's
// requested pageJoiner — that only affects final segment content.
type PageMap struct {
	Buffer    string
	Boundaries []Boundary
}

// Build concatenates pages with a single '\n' joiner and records each
// page's boundary range. Pages with no content still occupy a zero-length
// range so page-id attribution stays correct.
func Build(pages []types.Page) *PageMap {
	var b strings.Builder
	boundaries := make([]Boundary, 0, len(pages))

	for i, p := range pages {
		start := b.Len()
		b.WriteString(p.Content)
		end := b.Len()
		boundaries = append(boundaries, Boundary{ID: p.ID, Start: start, End: end})
		if i != len(pages)-1 {
			b.WriteByte('\n')
		}
	}

	return &PageMap{Buffer: b.String(), Boundaries: boundaries}
}

// GetID returns the id of the page whose [Start, End] range contains
// offset, via binary search over Boundaries. An offset exactly at a page's
// End (the joiner position) is attributed to that page, matching the
// splitter's inclusive end-of-segment convention. Offsets past the last
// boundary are clamped to the last page.
func (pm *PageMap) GetID(offset int) int64 {
	if len(pm.Boundaries) == 0 {
		return 0
	}
	i := sort.Search(len(pm.Boundaries), func(i int) bool {
		return pm.Boundaries[i].End >= offset
	})
	if i >= len(pm.Boundaries) {
		i = len(pm.Boundaries) - 1
	}
	return pm.Boundaries[i].ID
}

// IndexForID returns the position of id within Boundaries, or -1.
func (pm *PageMap) IndexForID(id int64) int {
	for i, b := range pm.Boundaries {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// IndexForPosition returns the boundary index containing offset, clamped to
// the last page for offsets past the end of the buffer. The breakpoint
// processor does not call it; it attributes positions against its own
// reconstructed per-segment boundaries.
func (pm *PageMap) IndexForPosition(offset int) int {
	if len(pm.Boundaries) == 0 {
		return 0
	}
	i := sort.Search(len(pm.Boundaries), func(i int) bool {
		return pm.Boundaries[i].End >= offset
	})
	if i >= len(pm.Boundaries) {
		return len(pm.Boundaries) - 1
	}
	return i
}

// PageStart returns the buffer offset of the start of the page at idx, or
// len(Buffer) if idx is past the last page.
func (pm *PageMap) PageStart(idx int) int {
	if idx < 0 {
		return 0
	}
	if idx >= len(pm.Boundaries) {
		return len(pm.Buffer)
	}
	return pm.Boundaries[idx].Start
}

// BoundaryIndexAtStart returns the index of the boundary whose Start
// equals offset, or -1 if none does. Used by the page-start guard (spec
// §4.5) to test whether a match begins exactly at a page boundary.
func (pm *PageMap) BoundaryIndexAtStart(offset int) int {
	for i, b := range pm.Boundaries {
		if b.Start == offset {
			return i
		}
	}
	return -1
}

// LastNonWhitespace returns the last non-whitespace rune's byte slice of
// the page preceding idx, used by the page-start guard (spec §4.5). Returns
// "" if idx is 0 (no preceding page) or the preceding page is all
// whitespace.
func (pm *PageMap) LastNonWhitespace(idx int) string {
	if idx <= 0 || idx > len(pm.Boundaries) {
		return ""
	}
	prev := pm.Boundaries[idx-1]
	content := pm.Buffer[prev.Start:prev.End]
	trimmed := strings.TrimRightFunc(content, isSpace)
	if trimmed == "" {
		return ""
	}
	r := []rune(trimmed)
	return string(r[len(r)-1])
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
