package textprep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/arsegment/pkg/segerr"
	"github.com/praetorian-inc/arsegment/pkg/types"
)

func TestApplyReplacements_GlobalRule(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "النص القديم هنا"},
		{ID: 2, Content: "النص القديم أيضا"},
	}
	out, err := ApplyReplacements(pages, []types.ReplaceRule{
		{Pattern: "القديم", Replace: "الجديد"},
	})
	require.NoError(t, err)
	assert.Contains(t, out[0].Content, "الجديد")
	assert.Contains(t, out[1].Content, "الجديد")
}

func TestApplyReplacements_PageIDScoping(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "مرحبا"},
		{ID: 2, Content: "مرحبا"},
	}
	out, err := ApplyReplacements(pages, []types.ReplaceRule{
		{Pattern: "مرحبا", Replace: "أهلا", PageIDs: []int64{2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "مرحبا", out[0].Content)
	assert.Equal(t, "أهلا", out[1].Content)
}

func TestApplyReplacements_CaseInsensitiveFlag(t *testing.T) {
	pages := []types.Page{{ID: 1, Content: "Hello hello HELLO"}}
	out, err := ApplyReplacements(pages, []types.ReplaceRule{
		{Pattern: "hello", Replace: "hi", Flags: "i"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi hi hi", out[0].Content)
}

func TestApplyReplacements_RejectsFlagOutsideWhitelist(t *testing.T) {
	pages := []types.Page{{ID: 1, Content: "x"}}
	_, err := ApplyReplacements(pages, []types.ReplaceRule{
		{Pattern: "x", Replace: "y", Flags: "g"},
	})
	require.Error(t, err)
	var bad *segerr.InvalidFlags
	assert.ErrorAs(t, err, &bad)
}

func TestApplyReplacements_InvalidPattern(t *testing.T) {
	pages := []types.Page{{ID: 1, Content: "x"}}
	_, err := ApplyReplacements(pages, []types.ReplaceRule{
		{Pattern: "(", Replace: "y"},
	})
	require.Error(t, err)
	var bad *segerr.InvalidRegex
	assert.ErrorAs(t, err, &bad)
}

func TestApplyPreprocessToPage_RemoveZeroWidth(t *testing.T) {
	content := "نص\u200bفيه\ufeffحروف"
	got := ApplyPreprocessToPage(content, 1, []types.PreprocessDirective{
		{Name: types.RemoveZeroWidth},
	})
	assert.Equal(t, "نصفيهحروف", got)
}

func TestApplyPreprocessToPage_CondenseEllipsis(t *testing.T) {
	got := ApplyPreprocessToPage("انتظر....ثم", 1, []types.PreprocessDirective{
		{Name: types.CondenseEllipsis},
	})
	assert.Equal(t, "انتظر…ثم", got)
}

func TestApplyPreprocessToPage_FixTrailingWaw(t *testing.T) {
	got := ApplyPreprocessToPage("قال زيد و", 1, []types.PreprocessDirective{
		{Name: types.FixTrailingWaw},
	})
	assert.Equal(t, "قال زيد", got)
}

func TestApplyPreprocessToPage_RespectsPageIDRange(t *testing.T) {
	min := int64(5)
	transforms := []types.PreprocessDirective{
		{Name: types.RemoveZeroWidth, Min: &min},
	}
	untouched := ApplyPreprocessToPage("نص​هنا", 1, transforms)
	assert.Contains(t, untouched, "​")

	touched := ApplyPreprocessToPage("نص​هنا", 5, transforms)
	assert.NotContains(t, touched, "​")
}

func TestApplyPreprocess_AppliesAcrossPages(t *testing.T) {
	pages := []types.Page{
		{ID: 1, Content: "أ​ب"},
		{ID: 2, Content: "ج​د"},
	}
	out := ApplyPreprocess(pages, []types.PreprocessDirective{{Name: types.RemoveZeroWidth}})
	assert.Equal(t, "أب", out[0].Content)
	assert.Equal(t, "جد", out[1].Content)
}
