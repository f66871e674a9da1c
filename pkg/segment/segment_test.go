package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/arsegment/pkg/types"
)

func ptrU32(v uint32) *uint32 { return &v }

// S1: chapter rule + numbered-entry rule + generic heading rule together
// produce segments matching the page boundaries, the first tagged chapter.
func TestSegmentPages_S1_ChapterAndNumberedEntries(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "باب هذا نص التقرير\nحفظه الله"},
		{ID: 2, Content: "## ١ - بسم الله الرحمن الرحيم\nبعلم الحديث."},
		{ID: 4, Content: "## هذا وقد كتبه سنة ١٣١٣"},
	}
	opts := types.SegmentationOptions{
		Rules: []types.SplitRule{
			{LineStartsWith: []string{"{{bab}}"}, Fuzzy: true, Meta: map[string]any{"type": "chapter"}},
			{LineStartsAfter: []string{`## {{raqms:num}}\s*{{dash}}`}, Meta: map[string]any{"type": "chapter"}},
			{LineStartsAfter: []string{"##"}, Split: types.SplitAt},
		},
	}

	segs, err := SegmentPages(pages, opts)
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, "chapter", segs[0].Meta["type"])
}

// S2: page-span splitting with an empty-pattern breakpoint and maxPages=0.
func TestSegmentPages_S2_PageSpanSplitting(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "وروى أحمد\nنص طويل"},
		{ID: 2, Content: "تكملة النص"},
	}
	opts := types.SegmentationOptions{
		MaxPages:    0,
		Breakpoints: []types.Breakpoint{{Pattern: ""}},
		Rules: []types.SplitRule{
			{LineStartsAfter: []string{"وروى "}},
		},
	}

	segs, err := SegmentPages(pages, opts)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, int64(1), segs[0].From)
	assert.True(t, len(segs[0].Content) > 0 && []rune(segs[0].Content)[0] == []rune("أحمد")[0])
	assert.Equal(t, int64(2), segs[1].From)
	assert.Equal(t, "تكملة النص", segs[1].Content)
}

// S3: two lineStartsAfter rules on a single page each produce their own split.
func TestSegmentPages_S3_TwoRulesOnePage(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "وروى أحمد\nوذكر خالد"},
	}
	opts := types.SegmentationOptions{
		Rules: []types.SplitRule{
			{LineStartsAfter: []string{"وروى "}},
			{LineStartsAfter: []string{"وذكر "}},
		},
	}

	segs, err := SegmentPages(pages, opts)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "أحمد", segs[0].Content)
	assert.Equal(t, "خالد", segs[1].Content)
}

// S4: occurrence=last over a maxSpan=1 window keeps only the last match per
// window plus the trailing match, rather than every match.
func TestSegmentPages_S4_OccurrenceLastOverWindow(t *testing.T) {
	pages := []types.Page{
		{ID: 0, Content: "مقدمة\n## واحد\n## اثنان"},
		{ID: 1, Content: "## ثلاثة\n## أربعة"},
		{ID: 2, Content: "## خمسة"},
	}
	opts := types.SegmentationOptions{
		MaxPages: 1,
		Rules: []types.SplitRule{
			{
				LineStartsAfter: []string{"##"},
				Occurrence:      types.OccurrenceLast,
				MaxSpan:         1,
			},
		},
	}

	segs, err := SegmentPages(pages, opts)
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, "أربعة", segs[1].Content)
	assert.Equal(t, "خمسة", segs[2].Content)
}

// S5: fuzzy, diacritic-insensitive matching finds a line beginning with
// fully-marked حَدَّثَنَا against an unmarked pattern.
func TestSegmentPages_S5_DiacriticInsensitiveFuzzy(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "حَدَّثَنَا فلان عن فلان"},
	}
	opts := types.SegmentationOptions{
		Rules: []types.SplitRule{
			{LineStartsWith: []string{"حدثنا"}, Fuzzy: true},
		},
	}

	segs, err := SegmentPages(pages, opts)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Contains(t, segs[0].Content, "حَدَّثَنَا")
}

// S6: pageStartGuard retains a cross-page match only when the prior page's
// last non-whitespace character satisfies the guard pattern.
func TestSegmentPages_S6_PageStartGuardDiscardsFalseMatch(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "نص بلا علامة ختام"},
		{ID: 2, Content: "## عنوان"},
	}
	opts := types.SegmentationOptions{
		MaxPages: 1,
		Rules: []types.SplitRule{
			{LineStartsWith: []string{"##"}, PageStartGuard: "{{tarqim}}"},
		},
	}

	segs, err := SegmentPages(pages, opts)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, int64(1), segs[0].From)
}

func TestSegmentPages_S6_PageStartGuardAllowsWhenSatisfied(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "نص ينتهي بعلامة."},
		{ID: 2, Content: "## عنوان"},
	}
	opts := types.SegmentationOptions{
		Rules: []types.SplitRule{
			{LineStartsWith: []string{"##"}, PageStartGuard: "{{tarqim}}"},
		},
	}

	segs, err := SegmentPages(pages, opts)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, int64(2), segs[1].From)
}

// End-to-end wiring of maxContentLength through the full entry point,
// exercising the breakpoint processor's safe-break fallback.
func TestSegmentPages_MaxContentLengthPropagates(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "نص طويل بلا علامات فاصلة يتجاوز الحد المسموح"},
	}
	opts := types.SegmentationOptions{
		MaxContentLength: ptrU32(10),
	}

	segs, err := SegmentPages(pages, opts)
	require.NoError(t, err)
	require.True(t, len(segs) > 1)
	for _, seg := range segs {
		assert.NotEmpty(t, seg.Content)
	}
}

// An invalid breakpoint pattern must surface as an error from the rule
// compiler rather than panicking deep in the pipeline.
func TestSegmentPages_InvalidPatternReturnsError(t *testing.T) {
	pages := []types.Page{{ID: 1, Content: "نص"}}
	opts := types.SegmentationOptions{
		Breakpoints: []types.Breakpoint{{Pattern: "("}},
	}

	_, err := SegmentPages(pages, opts)
	require.Error(t, err)
}

func TestSegmentPages_NoRulesYieldsOneSegmentPerInput(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "صفحة بلا قواعد"},
	}
	segs, err := SegmentPages(pages, types.SegmentationOptions{})
	require.NoError(t, err)
	require.Len(t, segs, 1)
}
