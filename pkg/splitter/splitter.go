// Package splitter implements the first-pass splitter (spec §4.5): it
// collects split points by scanning the page map's joined buffer with the
// compiled rule set, applies priority/occurrence/dedup selection, and
// materialises first-pass segments between consecutive split points.
package splitter

import (
	"sort"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/praetorian-inc/arsegment/pkg/pagemap"
	"github.com/praetorian-inc/arsegment/pkg/prefilter"
	"github.com/praetorian-inc/arsegment/pkg/rulecompile"
	"github.com/praetorian-inc/arsegment/pkg/seglog"
	"github.com/praetorian-inc/arsegment/pkg/tokens"
	"github.com/praetorian-inc/arsegment/pkg/types"
)

// splitPoint is an internal candidate split offset, carried through
// selection before being materialised into segments.
type splitPoint struct {
	offset             int
	contentStartOffset int
	meta               map[string]any
	ruleIndex          int
}

// Split runs the full first-pass splitter over pm using compiled, and
// returns the materialised (possibly oversized) segments, in emission
// order.
func Split(pm *pagemap.PageMap, compiled *rulecompile.Compiled, logger seglog.Logger) []types.Segment {
	logger = seglog.Or(logger)

	perRule := make(map[int][]splitPoint)

	if compiled.Combined != nil {
		for _, p := range collectCombined(pm, compiled, logger) {
			perRule[p.ruleIndex] = append(perRule[p.ruleIndex], p)
		}
	}

	for _, rule := range compiled.Rules {
		if rule.FastFuzzy || rule.Combinable {
			continue
		}
		perRule[rule.Index] = append(perRule[rule.Index], collectStandalone(pm, rule, logger)...)
	}

	for _, p := range collectFastFuzzy(pm, compiled, logger) {
		perRule[p.ruleIndex] = append(perRule[p.ruleIndex], p)
	}

	var selected []splitPoint
	for _, rule := range compiled.Rules {
		pts := perRule[rule.Index]
		sort.Slice(pts, func(i, j int) bool { return pts[i].offset < pts[j].offset })
		selected = append(selected, selectOccurrence(pts, pm, rule.Source.Occurrence, rule.Source.MaxSpan)...)
	}

	points := dedupByOffset(selected)

	return materialize(pm, compiled, points)
}

// collectCombined runs the single combined alternation over the buffer,
// identifying the winning branch per hit by its r{index}_branch group.
func collectCombined(pm *pagemap.PageMap, compiled *rulecompile.Compiled, logger seglog.Logger) []splitPoint {
	var out []splitPoint
	m, err := compiled.Combined.FindStringMatch(pm.Buffer)
	for m != nil {
		if err != nil {
			logger.Warn("rulecompile: combined regex error: %v", err)
			break
		}
		rule := winningBranch(compiled.CombinedBranches, m)
		if rule != nil {
			if pt, ok := toSplitPoint(pm, rule, m); ok {
				out = append(out, pt)
			}
		}
		m, err = compiled.Combined.FindNextMatch(m)
	}
	if err != nil {
		logger.Warn("rulecompile: combined regex error: %v", err)
	}
	return out
}

func winningBranch(branches []*rulecompile.Rule, m *regexp2.Match) *rulecompile.Rule {
	for _, r := range branches {
		g := m.GroupByName(r.BranchName)
		if g != nil && len(g.Captures) > 0 {
			return r
		}
	}
	return nil
}

// collectStandalone runs one rule's own regex independently over the
// buffer.
func collectStandalone(pm *pagemap.PageMap, rule *rulecompile.Rule, logger seglog.Logger) []splitPoint {
	var out []splitPoint
	m, err := rule.Regex.FindStringMatch(pm.Buffer)
	for m != nil {
		if err != nil {
			logger.Warn("rulecompile: rule %d regex error: %v", rule.Index, err)
			break
		}
		if pt, ok := toSplitPoint(pm, rule, m); ok {
			out = append(out, pt)
		}
		m, err = rule.Regex.FindNextMatch(m)
	}
	if err != nil {
		logger.Warn("rulecompile: rule %d regex error: %v", rule.Index, err)
	}
	return out
}

// toSplitPoint applies the page-start guard and constraint filtering to a
// raw regex hit and, if it survives, converts it to a splitPoint using the
// rule's effective split mode.
func toSplitPoint(pm *pagemap.PageMap, rule *rulecompile.Rule, m *regexp2.Match) (splitPoint, bool) {
	if !pageStartGuardAllows(pm, rule.Guard, m.Index) {
		return splitPoint{}, false
	}
	startPage := pm.GetID(m.Index)
	if !rule.Source.Admits(startPage) {
		return splitPoint{}, false
	}

	meta := captureMeta(m, rule.Captures)
	fullMeta := types.WithMeta(rule.Source.Meta, meta)

	contentStartOffset := 0
	offset := m.Index
	if rule.Source.Kind() == types.RuleLineStartsAfter {
		contentStartOffset = m.Length
	}
	if rule.Source.EffectiveSplit() == types.SplitAfter {
		offset = m.Index + m.Length
	}

	return splitPoint{
		offset:             offset,
		contentStartOffset: contentStartOffset,
		meta:               fullMeta,
		ruleIndex:          rule.Index,
	}, true
}

func pageStartGuardAllows(pm *pagemap.PageMap, guard *regexp2.Regexp, matchIndex int) bool {
	if guard == nil {
		return true
	}
	idx := pm.BoundaryIndexAtStart(matchIndex)
	if idx <= 0 {
		return true
	}
	tail := pm.LastNonWhitespace(idx)
	m, err := guard.FindStringMatch(tail)
	if err != nil || m == nil {
		return false
	}
	return true
}

func captureMeta(m *regexp2.Match, names []string) map[string]any {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]any, len(names))
	for _, name := range names {
		g := m.GroupByName(name)
		if g != nil && len(g.Captures) > 0 {
			out[name] = g.String()
		}
	}
	return out
}

// collectFastFuzzy implements the hand-rolled line scanner of spec §4.5:
// iterate line starts, testing each fast-fuzzy rule's token at that exact
// offset via FindStringMatchStartingAt, accepting only hits anchored
// there. Relies on pkg/prefilter to skip tokens whose skeleton cannot
// possibly appear in the buffer.
func collectFastFuzzy(pm *pagemap.PageMap, compiled *rulecompile.Compiled, logger seglog.Logger) []splitPoint {
	var fastRules []*rulecompile.Rule
	var tokenNames []string
	for _, r := range compiled.Rules {
		if r.FastFuzzy {
			fastRules = append(fastRules, r)
			tokenNames = append(tokenNames, r.FastFuzzyToken)
		}
	}
	if len(fastRules) == 0 {
		return nil
	}

	pf := prefilter.New(tokenNames, tokens.Skeletons)
	relevant := pf.RelevantTokens(pm.Buffer)

	var out []splitPoint
	for _, offset := range lineStarts(pm.Buffer) {
		for _, rule := range fastRules {
			if !relevant[rule.FastFuzzyToken] {
				continue
			}
			startPage := pm.GetID(offset)
			if !rule.Source.Admits(startPage) {
				continue
			}
			m, err := rule.FastRegex.FindStringMatchStartingAt(pm.Buffer, offset)
			if err != nil {
				logger.Warn("splitter: fast-fuzzy token %q error: %v", rule.FastFuzzyToken, err)
				continue
			}
			if m == nil || m.Index != offset {
				continue
			}
			if !pageStartGuardAllows(pm, rule.Guard, offset) {
				continue
			}

			contentStartOffset := 0
			splitOffset := offset
			if rule.Source.Kind() == types.RuleLineStartsAfter {
				contentStartOffset = m.Length
			}
			if rule.Source.EffectiveSplit() == types.SplitAfter {
				splitOffset = offset + m.Length
			}

			out = append(out, splitPoint{
				offset:             splitOffset,
				contentStartOffset: contentStartOffset,
				meta:               rule.Source.Meta,
				ruleIndex:          rule.Index,
			})
		}
	}
	return out
}

// lineStarts returns offset 0 plus the offset immediately after every '\n'
// in buf.
func lineStarts(buf string) []int {
	starts := []int{0}
	for i := 0; i < len(buf); i++ {
		if buf[i] == '\n' && i+1 < len(buf) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// selectOccurrence applies spec §4.5's occurrence/sliding-window rule to
// one rule's own sorted-by-offset matches.
func selectOccurrence(pts []splitPoint, pm *pagemap.PageMap, occurrence types.Occurrence, maxSpan int) []splitPoint {
	if occurrence == "" || occurrence == types.OccurrenceAll || len(pts) == 0 {
		return pts
	}

	var result []splitPoint
	i := 0
	for i < len(pts) {
		headPage := pm.GetID(pts[i].offset)
		j := i
		for j+1 < len(pts) {
			nextPage := pm.GetID(pts[j+1].offset)
			if nextPage-headPage > int64(maxSpan) {
				break
			}
			j++
		}

		chosenIdx := i
		if occurrence == types.OccurrenceLast {
			chosenIdx = j
		}
		result = append(result, pts[chosenIdx])

		chosenPage := pm.GetID(pts[chosenIdx].offset)
		k := j + 1
		for k < len(pts) && pm.GetID(pts[k].offset) <= chosenPage {
			k++
		}
		i = k
	}
	return result
}

// dedupByOffset sorts the combined candidate set by offset and keeps, for
// ties, the point whose rule declared earliest (lowest ruleIndex).
func dedupByOffset(pts []splitPoint) []splitPoint {
	sort.SliceStable(pts, func(i, j int) bool {
		if pts[i].offset != pts[j].offset {
			return pts[i].offset < pts[j].offset
		}
		return pts[i].ruleIndex < pts[j].ruleIndex
	})

	var out []splitPoint
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1].offset == p.offset {
			continue
		}
		out = append(out, p)
	}
	return out
}

// materialize walks the buffer between consecutive split points, trims and
// attributes each slice, and drops empty pieces, per spec §4.5's
// segment-materialisation rule. The implicit leading segment (content
// before the first split point) survives only if some rule with an
// unconstrained (or first-page-admitting) range exists.
func materialize(pm *pagemap.PageMap, compiled *rulecompile.Compiled, points []splitPoint) []types.Segment {
	var segments []types.Segment

	if len(points) == 0 {
		if seg, ok := sliceSegment(pm, 0, 0, len(pm.Buffer), nil); ok {
			segments = append(segments, seg)
		}
		return segments
	}

	if includesImplicitFirstSegment(compiled, pm) {
		if seg, ok := sliceSegment(pm, 0, 0, points[0].offset, nil); ok {
			segments = append(segments, seg)
		}
	}

	for i, p := range points {
		end := len(pm.Buffer)
		if i+1 < len(points) {
			end = points[i+1].offset
		}
		if seg, ok := sliceSegment(pm, p.offset, p.contentStartOffset, end, p.meta); ok {
			segments = append(segments, seg)
		}
	}

	return segments
}

// includesImplicitFirstSegment reports whether any declared split rule has
// no min/max constraint or otherwise admits the sequence's first page,
// which spec §4.5 requires before keeping content preceding the first
// split point.
func includesImplicitFirstSegment(compiled *rulecompile.Compiled, pm *pagemap.PageMap) bool {
	if len(pm.Boundaries) == 0 {
		return false
	}
	firstPage := pm.Boundaries[0].ID
	for _, r := range compiled.Rules {
		if r.Source.Unconstrained() || r.Source.Admits(firstPage) {
			return true
		}
	}
	return false
}

func sliceSegment(pm *pagemap.PageMap, start, contentStartOffset, end int, meta map[string]any) (types.Segment, bool) {
	from := start + contentStartOffset
	if from >= end {
		return types.Segment{}, false
	}
	content := strings.TrimSpace(pm.Buffer[from:end])
	if content == "" {
		return types.Segment{}, false
	}

	fromID := pm.GetID(from)
	toID := pm.GetID(end - 1)
	seg := types.Segment{Content: content, From: fromID, Meta: meta}
	if toID != fromID {
		t := toID
		seg.To = &t
	}
	return seg, true
}
