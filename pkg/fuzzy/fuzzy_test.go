package fuzzy

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compile adapts the regexp2-targeted output to Go's stdlib regexp package
// for test verification: stdlib regexp rejects regexp2's \uXXXX escapes, so
// they are rewritten to the equivalent \x{XXXX} form first; the character
// classes and \s+ in our output need no rewriting. This validates matching
// behavior without pulling regexp2 into the test itself.
func compile(t *testing.T, source string) *regexp.Regexp {
	t.Helper()
	re, err := regexp.Compile(uEscape.ReplaceAllString(source, `\x{$1}`))
	require.NoError(t, err)
	return re
}

var uEscape = regexp.MustCompile(`\\u([0-9A-Fa-f]{4})`)

func TestTransform_DiacriticInsensitive(t *testing.T) {
	src, err := Transform("حدثنا")
	require.NoError(t, err)
	re := compile(t, src)

	assert.True(t, re.MatchString("حَدَّثَنَا"), "must match fully vocalized form")
	assert.True(t, re.MatchString("حدثنا"), "must match undiacritized form")
}

func TestTransform_LetterEquivalence(t *testing.T) {
	src, err := Transform("اخبرنا")
	require.NoError(t, err)
	re := compile(t, src)

	assert.True(t, re.MatchString("أخبرنا"), "hamza-above alif variant")
	assert.True(t, re.MatchString("إخبرنا"), "hamza-below alif variant")
	assert.True(t, re.MatchString("آخبرنا"), "madda alif variant")
}

func TestTransform_TaMarbutaHaClass(t *testing.T) {
	src, err := Transform("الرحمة")
	require.NoError(t, err)
	re := compile(t, src)
	assert.True(t, re.MatchString("الرحمه"))
}

func TestTransform_WhitespaceCollapse(t *testing.T) {
	src, err := Transform("هذا  نص")
	require.NoError(t, err)
	re := compile(t, src)
	assert.True(t, re.MatchString("هذا نص"))
	assert.True(t, re.MatchString("هذا     نص"))
}

func TestTransform_EscapesMetacharacters(t *testing.T) {
	src, err := Transform("(test)")
	require.NoError(t, err)
	re := compile(t, src)
	assert.True(t, re.MatchString("(test)"))
	assert.False(t, re.MatchString("test"))
}

func TestTransform_StripsZeroWidth(t *testing.T) {
	src, err := Transform("ا​ب")
	require.NoError(t, err)
	re := compile(t, src)
	assert.True(t, re.MatchString("اب"))
}
