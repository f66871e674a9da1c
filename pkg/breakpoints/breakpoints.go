// Package breakpoints implements the breakpoint processor (spec §4.6): it
// takes the first-pass splitter's segments and slices any that exceed
// maxPages or maxContentLength at a pattern boundary, a page boundary, or a
// safe Unicode-cluster-respecting fallback position.
//
// The first-pass splitter has already discarded the exact buffer offsets a
// segment came from by the time it reaches here (spec's Segment carries only
// content + from/to page ids), so this package re-derives page boundaries
// inside a segment's own content by searching for each spanned page's
// leading text near its expected cumulative offset — the same "boundary
// reconstruction" tradeoff titus's chunker.go makes when re-deriving byte
// offsets for overlapping chunks.
package breakpoints

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/praetorian-inc/arsegment/pkg/pagemap"
	"github.com/praetorian-inc/arsegment/pkg/rulecompile"
	"github.com/praetorian-inc/arsegment/pkg/seglog"
	"github.com/praetorian-inc/arsegment/pkg/segerr"
	"github.com/praetorian-inc/arsegment/pkg/types"
)

const (
	// accurateBoundaryPageThreshold is the page-span cutoff below which
	// boundary reconstruction searches for each page's real offset rather
	// than trusting raw cumulative lengths (spec §4.6 step 2, Open Question
	// 2 in DESIGN.md).
	accurateBoundaryPageThreshold = 12
	// boundarySearchTolerance bounds how far a reconstructed boundary may
	// drift from its expected cumulative offset before the search gives up
	// and falls back to the raw estimate.
	boundarySearchTolerance = 2000
	// safeBreakLookback is how far back the fallback searches for a
	// whitespace/punctuation character before giving up and snapping to a
	// grapheme-cluster boundary instead.
	safeBreakLookback = 100
	// maxIterations is the breakpoint loop's progress-safety ceiling.
	maxIterations = 100_000
)

// arabicPunct mirrors pkg/tokens' "tarqim" class: trailing full-stop-like
// markers that close an Arabic sentence or enumerated entry.
const arabicPunct = ".۔؟!:؛،"

// Options carries the subset of SegmentationOptions the breakpoint
// processor needs.
type Options struct {
	MaxPages         uint32
	MaxContentLength *uint32
	Prefer           types.PagePreference
	PageJoiner       types.PageJoiner
}

// Process slices every oversized segment in segs against bps, returning the
// final segment list in emission order. It returns a *segerr.ProgressAborted
// if any single segment's breakpoint loop exceeds its iteration ceiling.
func Process(pm *pagemap.PageMap, segs []types.Segment, bps []*rulecompile.Breakpoint, opts Options, logger seglog.Logger) ([]types.Segment, error) {
	logger = seglog.Or(logger)

	var out []types.Segment
	for _, seg := range segs {
		idxFrom := pm.IndexForID(seg.From)
		idxTo := idxFrom
		if seg.To != nil {
			if i := pm.IndexForID(*seg.To); i >= 0 {
				idxTo = i
			}
		}
		if idxFrom < 0 {
			idxFrom = 0
		}

		if fits(seg, idxFrom, idxTo, pm, bps, opts) {
			out = append(out, finalizeJoiner(seg, pm, idxFrom, idxTo, opts, logger))
			continue
		}

		pieces, err := breakSegment(seg, pm, idxFrom, idxTo, bps, opts, logger)
		if err != nil {
			return out, err
		}
		out = append(out, pieces...)
	}
	return out, nil
}

// fits reports whether seg already satisfies the page-span bound, the
// content-length bound, and carries no breakpoint-excluded page.
func fits(seg types.Segment, idxFrom, idxTo int, pm *pagemap.PageMap, bps []*rulecompile.Breakpoint, opts Options) bool {
	span := seg.Span()
	if span > int64(opts.MaxPages) {
		return false
	}
	if opts.MaxContentLength != nil && uint32(len(seg.Content)) > *opts.MaxContentLength {
		return false
	}
	for p := idxFrom; p <= idxTo; p++ {
		if breakpointsExclude(bps, pm.Boundaries[p].ID) {
			return false
		}
	}
	return true
}

func breakpointsExclude(bps []*rulecompile.Breakpoint, id int64) bool {
	for _, b := range bps {
		if b.Source.Exclude.Contains(id) {
			return true
		}
	}
	return false
}

// breakSegment runs the spec §4.6 loop over one oversized segment.
func breakSegment(seg types.Segment, pm *pagemap.PageMap, idxFrom, idxTo int, bps []*rulecompile.Breakpoint, opts Options, logger seglog.Logger) ([]types.Segment, error) {
	content := seg.Content
	boundaries, pageIDs := reconstructBoundaries(pm, idxFrom, idxTo, content, logger)
	n := len(pageIDs)

	var out []types.Segment
	cursor := 0
	curK := 0
	iterations := 0

	for {
		iterations++
		if iterations > maxIterations {
			return out, &segerr.ProgressAborted{Cursor: cursor, ContentLength: len(content)}
		}

		remainSpan := pageIDs[n-1] - pageIDs[curK]
		remainLen := len(content) - cursor
		remainExcluded := pageRangeExcluded(bps, pageIDs[curK:])
		if remainSpan <= int64(opts.MaxPages) && (opts.MaxContentLength == nil || uint32(remainLen) <= *opts.MaxContentLength) && !remainExcluded {
			joinOffsets := internalPageJoinOffsets(boundaries, curK, n-1, cursor)
			out = append(out, buildPiece(content[cursor:], pageIDs[curK], pageIDs[n-1], seg.Meta, nil, opts.PageJoiner, joinOffsets))
			break
		}

		// Step 1: window computation.
		windowEndK := curK
		for windowEndK+1 < n && pageIDs[windowEndK+1]-pageIDs[curK] <= int64(opts.MaxPages) {
			windowEndK++
		}
		windowEnd := boundaries[windowEndK+1]
		boundedByLength := false
		if opts.MaxContentLength != nil && windowEnd-cursor > int(*opts.MaxContentLength) {
			windowEnd = cursor + int(*opts.MaxContentLength)
			boundedByLength = true
		}
		if windowEndK == curK {
			boundedByLength = true // no further page boundary inside the window
		}

		breakOffset, bp, found := resolveBreak(content, cursor, windowEnd, curK, windowEndK, pageIDs, boundaries, bps, opts, boundedByLength)
		if !found || breakOffset <= cursor {
			breakOffset = safeBreak(content, cursor, windowEnd)
		}
		if breakOffset <= cursor {
			// No candidate break moved the cursor forward; let the
			// iteration ceiling above catch this as ProgressAborted rather
			// than silently truncating.
			continue
		}

		toK := pageIndexForOffset(boundaries, breakOffset-1, n)
		joinOffsets := internalPageJoinOffsets(boundaries, curK, toK, cursor)
		out = append(out, buildPiece(content[cursor:breakOffset], pageIDs[curK], pageIDs[toK], seg.Meta, bp, opts.PageJoiner, joinOffsets))

		newCursor := skipLeadingWhitespace(content, breakOffset)
		if newCursor >= len(content) {
			break
		}
		cursor = newCursor
		curK = pageIndexForOffset(boundaries, cursor, n)
	}

	return out, nil
}

func pageRangeExcluded(bps []*rulecompile.Breakpoint, ids []int64) bool {
	for _, id := range ids {
		if breakpointsExclude(bps, id) {
			return true
		}
	}
	return false
}

// resolveBreak implements steps 3 and 4: an exclusion break takes priority
// over pattern search.
func resolveBreak(content string, cursor, windowEnd, curK, windowEndK int, pageIDs []int64, boundaries []int, bps []*rulecompile.Breakpoint, opts Options, boundedByLength bool) (int, *rulecompile.Breakpoint, bool) {
	for p := curK + 1; p <= windowEndK; p++ {
		if breakpointsExclude(bps, pageIDs[p]) {
			return boundaries[p], nil, true
		}
	}

	for _, b := range bps {
		if !b.Source.Admits(pageIDs[curK]) {
			continue
		}
		if pageRangeExcluded([]*rulecompile.Breakpoint{b}, pageIDs[curK:windowEndK+1]) {
			continue
		}
		if b.SkipWhen != nil {
			if sm, _ := b.SkipWhen.FindStringMatch(content[cursor:]); sm != nil {
				continue
			}
		}

		if b.Source.IsEmptyPattern() {
			if !boundedByLength && windowEndK > curK {
				return boundaries[curK+1], b, true
			}
			continue
		}

		if off, ok := searchPattern(b, content[cursor:windowEnd], opts.Prefer); ok {
			return cursor + off, b, true
		}
	}

	return 0, nil, false
}

// searchPattern runs b's regex over slice and returns the chosen match's
// break offset relative to slice, honoring the longer/shorter preference and
// discarding zero-length matches and matches at offset 0.
func searchPattern(b *rulecompile.Breakpoint, slice string, prefer types.PagePreference) (int, bool) {
	if b.Regex == nil {
		return 0, false
	}
	var chosen int
	found := false
	m, _ := b.Regex.FindStringMatch(slice)
	for m != nil {
		if m.Length > 0 && m.Index > 0 {
			off := m.Index
			if b.Source.EffectiveSplit() == types.SplitAfter {
				off += m.Length
			}
			chosen = off
			found = true
			if prefer != types.PreferLonger {
				break // "shorter": first valid match wins, stop streaming.
			}
		}
		m, _ = b.Regex.FindNextMatch(m)
	}
	return chosen, found
}

// safeBreak implements step 5: search backward up to safeBreakLookback
// characters for whitespace or Arabic punctuation and split after it; if
// nothing qualifies, snap windowEnd forward to the nearest grapheme-cluster
// boundary.
func safeBreak(content string, cursor, windowEnd int) int {
	lo := windowEnd
	for k := 0; k < safeBreakLookback && lo > cursor; k++ {
		_, size := utf8.DecodeLastRuneInString(content[cursor:lo])
		lo -= size
	}
	runes := []rune(content[lo:windowEnd])
	byteOffsets := make([]int, len(runes)+1)
	b := lo
	for i, r := range runes {
		byteOffsets[i] = b
		b += utf8.RuneLen(r)
	}
	byteOffsets[len(runes)] = b

	for i := len(runes) - 1; i >= 0; i-- {
		if isBreakableRune(runes[i]) {
			return byteOffsets[i+1]
		}
	}
	return snapToGraphemeBoundary(content, windowEnd)
}

func isBreakableRune(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(arabicPunct, r)
}

// snapToGraphemeBoundary returns the first grapheme-cluster boundary at or
// after offset, so a forced cut never splits a surrogate pair or severs a
// combining mark/variation selector/joiner from its base rune.
func snapToGraphemeBoundary(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	if offset >= len(s) {
		return len(s)
	}
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		_, end := g.Positions()
		if end >= offset {
			return end
		}
	}
	return len(s)
}

func skipLeadingWhitespace(content string, offset int) int {
	for offset < len(content) {
		r, size := utf8.DecodeRuneInString(content[offset:])
		if !unicode.IsSpace(r) {
			break
		}
		offset += size
	}
	return offset
}

func pageIndexForOffset(boundaries []int, offset int, n int) int {
	k := 0
	for k+1 < n && boundaries[k+1] <= offset {
		k++
	}
	return k
}

// buildPiece materializes one emitted piece from content, applying the
// page-joiner rewrite (if requested) before trimming so join offsets stay
// correctly positioned in content's own coordinate space.
func buildPiece(content string, fromID, toID int64, meta map[string]any, bp *rulecompile.Breakpoint, joiner types.PageJoiner, joinOffsets []int) types.Segment {
	if joiner == types.JoinerSpace {
		content = spaceJoinAt(content, joinOffsets)
	}
	trimmed := strings.TrimSpace(content)
	seg := types.Segment{Content: trimmed, From: fromID, Meta: meta}
	if toID != fromID {
		t := toID
		seg.To = &t
	}
	if bp != nil {
		seg.Meta = types.WithMeta(meta, map[string]any{"breakpoint": bp.Index})
	}
	return seg
}

// internalPageJoinOffsets returns, relative to a piece that starts at
// cursor within the segment's full reconstructed content, the byte offsets
// of every page-start boundary strictly inside the piece spanning page
// indices fromK..toK — i.e. boundaries[fromK+1..toK]. These are the only
// newlines in the piece that are page joiners rather than genuine in-page
// line breaks.
func internalPageJoinOffsets(boundaries []int, fromK, toK, cursor int) []int {
	if toK <= fromK {
		return nil
	}
	abs := boundaries[fromK+1 : toK+1]
	rel := make([]int, len(abs))
	for i, o := range abs {
		rel[i] = o - cursor
	}
	return rel
}

// spaceJoinAt replaces, for each offset in offsets, the single byte
// immediately before it with a space if and only if that byte is '\n'.
// Both bytes are single-byte ASCII, so this never disturbs a multi-byte
// rune on either side.
func spaceJoinAt(content string, offsets []int) string {
	if len(offsets) == 0 {
		return content
	}
	b := []byte(content)
	for _, off := range offsets {
		if off > 0 && off-1 < len(b) && b[off-1] == '\n' {
			b[off-1] = ' '
		}
	}
	return string(b)
}

// reconstructBoundaries derives, for the pages idxFrom..idxTo, the local
// byte offsets within content at which each page's own text begins (spec
// §4.6 step 2). boundaries has len(pageIDs)+1 entries: boundaries[0] == 0,
// boundaries[len-1] == len(content).
func reconstructBoundaries(pm *pagemap.PageMap, idxFrom, idxTo int, content string, logger seglog.Logger) ([]int, []int64) {
	n := idxTo - idxFrom + 1
	pageIDs := make([]int64, n)
	for i := 0; i < n; i++ {
		pageIDs[i] = pm.Boundaries[idxFrom+i].ID
	}

	boundaries := make([]int, 1, n+1)
	boundaries[0] = 0

	if n < accurateBoundaryPageThreshold {
		cum := 0
		for p := idxFrom + 1; p <= idxTo; p++ {
			prevLen := pm.Boundaries[p-1].End - pm.Boundaries[p-1].Start
			cum += prevLen + 1
			pageContent := pm.Buffer[pm.Boundaries[p].Start:pm.Boundaries[p].End]
			if found := searchPagePrefix(content, pageContent, cum, boundarySearchTolerance); found > boundaries[len(boundaries)-1] {
				cum = found
			} else {
				logger.Warn("breakpoints: boundary reconstruction drift for page %d, using raw cumulative offset", pm.Boundaries[p].ID)
				prev := boundaries[len(boundaries)-1]
				if cum <= prev {
					cum = prev + 1
				}
				if cum > len(content) {
					cum = len(content)
				}
			}
			boundaries = append(boundaries, cum)
		}
	} else {
		// Fast path: large segments skip the search and trust cumulative
		// offsets, clamped to strictly increase.
		cum := 0
		for p := idxFrom + 1; p <= idxTo; p++ {
			prevLen := pm.Boundaries[p-1].End - pm.Boundaries[p-1].Start
			cum += prevLen + 1
			prev := boundaries[len(boundaries)-1]
			if cum <= prev {
				cum = prev + 1
			}
			if cum > len(content) {
				cum = len(content)
			}
			boundaries = append(boundaries, cum)
		}
	}

	boundaries = append(boundaries, len(content))
	return boundaries, pageIDs
}

// searchPagePrefix looks for pageContent's leading 80..6 character needle
// within content, near the expected offset, preferring a newline-preceded
// occurrence. Returns -1 if no needle length is found within tolerance.
func searchPagePrefix(content, pageContent string, expected, tolerance int) int {
	for _, n := range []int{80, 60, 40, 20, 10, 6} {
		needle := []rune(pageContent)
		if len(needle) < n {
			continue
		}
		needleStr := string(needle[:n])

		lo := expected - tolerance
		if lo < 0 {
			lo = 0
		}
		hi := expected + tolerance + len(needleStr)
		if hi > len(content) {
			hi = len(content)
		}
		if lo >= hi {
			continue
		}

		if idx := findPreferNewline(content[lo:hi], needleStr); idx >= 0 {
			return lo + idx
		}
	}
	return -1
}

// findPreferNewline returns the byte offset of needle within window,
// preferring an occurrence immediately preceded by '\n' over the first
// occurrence.
func findPreferNewline(window, needle string) int {
	first := -1
	at := 0
	for {
		idx := strings.Index(window[at:], needle)
		if idx < 0 {
			break
		}
		pos := at + idx
		if first < 0 {
			first = pos
		}
		if pos > 0 && window[pos-1] == '\n' {
			return pos
		}
		at = pos + 1
		if at >= len(window) {
			break
		}
	}
	return first
}

// finalizeJoiner applies the page-joiner rewrite to a segment that already
// fit within limits and was emitted unchanged by Process: it reconstructs
// the segment's own page boundaries and replaces only the newline
// immediately preceding each internal page start with a space, leaving
// every genuine in-page newline untouched (spec §4.6's page-joiner
// finalisation pass; matching upstream always runs against '\n').
func finalizeJoiner(seg types.Segment, pm *pagemap.PageMap, idxFrom, idxTo int, opts Options, logger seglog.Logger) types.Segment {
	if opts.PageJoiner != types.JoinerSpace || seg.To == nil {
		return seg
	}
	boundaries, _ := reconstructBoundaries(pm, idxFrom, idxTo, seg.Content, logger)
	n := idxTo - idxFrom + 1
	seg.Content = spaceJoinAt(seg.Content, boundaries[1:n])
	return seg
}
