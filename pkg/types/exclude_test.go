package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcludeEntry_UnmarshalJSON(t *testing.T) {
	var id ExcludeEntry
	require.NoError(t, json.Unmarshal([]byte(`7`), &id))
	require.NotNil(t, id.ID)
	assert.Equal(t, int64(7), *id.ID)
	assert.Nil(t, id.Range)

	var rng ExcludeEntry
	require.NoError(t, json.Unmarshal([]byte(`[3, 9]`), &rng))
	require.NotNil(t, rng.Range)
	assert.Equal(t, int64(3), rng.Range.Lo)
	assert.Equal(t, int64(9), rng.Range.Hi)

	var bad ExcludeEntry
	require.Error(t, json.Unmarshal([]byte(`"nope"`), &bad))
}

func TestExcludeList_Contains(t *testing.T) {
	seven := int64(7)
	list := ExcludeList{
		{ID: &seven},
		{Range: &PageRange{Lo: 10, Hi: 12}},
	}
	assert.True(t, list.Contains(7))
	assert.True(t, list.Contains(11))
	assert.False(t, list.Contains(8))
}

func TestSegmentationOptions_UnmarshalFixture(t *testing.T) {
	raw := `{
		"rules": [{"lineStartsWith": ["{{bab}}"], "fuzzy": true, "meta": {"type": "chapter"}}],
		"breakpoints": [""],
		"maxPages": 1,
		"prefer": "shorter",
		"pageJoiner": "space"
	}`
	var opts SegmentationOptions
	require.NoError(t, json.Unmarshal([]byte(raw), &opts))
	require.Len(t, opts.Rules, 1)
	assert.Equal(t, RuleLineStartsWith, opts.Rules[0].Kind())
	require.Len(t, opts.Breakpoints, 1)
	assert.True(t, opts.Breakpoints[0].IsEmptyPattern())
	assert.Equal(t, PreferShorter, opts.EffectivePrefer())
	assert.Equal(t, JoinerSpace, opts.EffectivePageJoiner())
}
