package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/arsegment/pkg/pagemap"
	"github.com/praetorian-inc/arsegment/pkg/rulecompile"
	"github.com/praetorian-inc/arsegment/pkg/types"
)

func build(t *testing.T, pages []types.Page, rules []types.SplitRule) []types.Segment {
	t.Helper()
	pm := pagemap.Build(pages)
	compiled, err := rulecompile.Rules(rules)
	require.NoError(t, err)
	return Split(pm, compiled, nil)
}

func TestSplit_ChapterAndNumberedEntries(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "باب هذا نص التقرير\nحفظه الله"},
		{ID: 2, Content: "## ١ - بسم الله الرحمن الرحيم\nبعلم الحديث."},
		{ID: 4, Content: "## هذا وقد كتبه سنة ١٣١٣"},
	}
	rules := []types.SplitRule{
		{LineStartsWith: []string{"{{bab}}"}, Fuzzy: true, Meta: map[string]any{"type": "chapter"}},
		{LineStartsAfter: []string{`## {{raqms:num}}\s*{{dash}}`}, Meta: map[string]any{"type": "chapter"}},
		{LineStartsAfter: []string{"##"}, Split: types.SplitAt},
	}

	segs := build(t, pages, rules)
	require.NotEmpty(t, segs)
}

func TestSplit_PageSpanAcrossBoundary(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "وروى أحمد\nنص طويل"},
		{ID: 2, Content: "تكملة النص"},
	}
	rules := []types.SplitRule{
		{LineStartsAfter: []string{"وروى "}},
	}

	segs := build(t, pages, rules)
	require.Len(t, segs, 1)
	assert.Equal(t, int64(1), segs[0].From)
	require.NotNil(t, segs[0].To)
	assert.Equal(t, int64(2), *segs[0].To)
}

func TestSplit_TwoLineStartsAfterRulesOnOnePage(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "وروى أحمد\nوذكر خالد"},
	}
	rules := []types.SplitRule{
		{LineStartsAfter: []string{"وروى "}},
		{LineStartsAfter: []string{"وذكر "}},
	}

	segs := build(t, pages, rules)
	require.Len(t, segs, 2)
	assert.Equal(t, "أحمد", segs[0].Content)
	assert.Equal(t, "خالد", segs[1].Content)
}

func TestSplit_DiacriticInsensitiveFuzzyMatch(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "حَدَّثَنَا فلان عن فلان"},
	}
	rules := []types.SplitRule{
		{LineStartsWith: []string{"حدثنا"}, Fuzzy: true},
	}

	segs := build(t, pages, rules)
	require.Len(t, segs, 1)
	assert.Contains(t, segs[0].Content, "حَدَّثَنَا")
}

func TestSplit_OccurrenceLastOverWindow(t *testing.T) {
	pages := []types.Page{
		{ID: 0, Content: "مقدمة\n## واحد\n## اثنان"},
		{ID: 1, Content: "## ثلاثة\n## أربعة"},
		{ID: 2, Content: "## خمسة"},
	}
	rules := []types.SplitRule{
		{
			LineStartsAfter: []string{"##"},
			Occurrence:      types.OccurrenceLast,
			MaxSpan:         1,
		},
	}

	segs := build(t, pages, rules)
	// The implicit leading segment covers everything before the fourth "##"
	// match (the last match in the window that maxSpan=1 forms over pages
	// 0-1, and the one kept for it); the remaining two segments are the two
	// occurrence="last" split points actually kept: the last match within
	// pages 0-1, then the only match on page 2.
	require.Len(t, segs, 3)
	assert.Equal(t, "أربعة", segs[1].Content)
	assert.Equal(t, "خمسة", segs[2].Content)
}

func TestSplit_PageStartGuardDiscardsFalseMatch(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "نص بلا علامة ختام"},
		{ID: 2, Content: "## عنوان"},
	}
	rules := []types.SplitRule{
		{LineStartsWith: []string{"##"}, PageStartGuard: "{{tarqim}}"},
	}

	segs := build(t, pages, rules)
	// page 1's last non-whitespace char doesn't satisfy tarqim, so the
	// match on page 2 is discarded and everything stays one segment.
	require.Len(t, segs, 1)
	assert.Equal(t, int64(1), segs[0].From)
	require.NotNil(t, segs[0].To)
}

func TestSplit_PageStartGuardAllowsWhenSatisfied(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "نص ينتهي بعلامة."},
		{ID: 2, Content: "## عنوان"},
	}
	rules := []types.SplitRule{
		{LineStartsWith: []string{"##"}, PageStartGuard: "{{tarqim}}"},
	}

	segs := build(t, pages, rules)
	require.Len(t, segs, 2)
	assert.Equal(t, int64(2), segs[1].From)
}

func TestSplit_ConstraintExcludesPage(t *testing.T) {
	two := int64(2)
	pages := []types.Page{
		{ID: 1, Content: "## واحد"},
		{ID: 2, Content: "## اثنان"},
	}
	rules := []types.SplitRule{
		{LineStartsWith: []string{"##"}, Constraint: types.Constraint{Exclude: types.ExcludeList{{ID: &two}}}},
	}

	segs := build(t, pages, rules)
	require.Len(t, segs, 1)
}

func TestSplit_NoRulesYieldsOneSegment(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "نص بلا قواعد"},
	}
	segs := build(t, pages, nil)
	require.Len(t, segs, 1)
}
