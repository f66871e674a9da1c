// Package fuzzy turns a literal Arabic phrase into a diacritic-insensitive
// regexp2 pattern: it maps letter-equivalence classes, injects an optional
// harakat run between letters, collapses whitespace, and escapes everything
// else. Grounded on the character-class-mapping shape of
// anvie-gophonetic's soundex/caverphone transforms (map each input rune to
// a class, build the output incrementally), adapted here to emit a regex
// fragment instead of a phonetic code.
package fuzzy

import (
	"strings"
	"unicode"
)

// Harakat is the diacritic-insensitivity class (spec §6): the primary
// tashkeel range U+064B-U+0652 (fatha/damma/kasra, their tanween forms,
// shadda, sukun) plus the superscript alif U+0670.
const Harakat = `[\u064B-\u0652\u0670]*`

// Letter-equivalence classes (spec §4.2): each class matches any of its
// members regardless of which one the rule author wrote.
var equivalenceClasses = []struct {
	members string
	class   string
}{
	{members: "اآأإ", class: `[\u0627\u0622\u0623\u0625]`}, // alif, madda, hamza-above, hamza-below
	{members: "ةه", class: `[\u0629\u0647]`},                             // ta marbuta, ha
	{members: "ىي", class: `[\u0649\u064A]`},                             // alif maqsura, ya
}

// zeroWidth is the set of zero-width control characters stripped from the
// input before mapping (spec §6).
var zeroWidth = func(r rune) bool {
	switch {
	case r >= 0x200B && r <= 0x200F:
		return true
	case r >= 0x202A && r <= 0x202E:
		return true
	case r >= 0x2060 && r <= 0x2064:
		return true
	case r == 0xFEFF:
		return true
	}
	return false
}

func classFor(r rune) (string, bool) {
	for _, c := range equivalenceClasses {
		if strings.ContainsRune(c.members, r) {
			return c.class, true
		}
	}
	return "", false
}

// Transform builds a regexp2 pattern matching any diacritic/letter-variant
// of literal. It never fails in practice (every rune maps to either a known
// class, a letter, a whitespace run, or an escaped literal) but returns an
// error to keep the signature consistent with the rest of the compiler
// pipeline, which always has to report invalid regex somewhere.
func Transform(literal string) (string, error) {
	stripped := strings.Map(func(r rune) rune {
		if zeroWidth(r) {
			return -1
		}
		return r
	}, literal)

	var b strings.Builder
	runes := []rune(stripped)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == ' ' {
			for i+1 < len(runes) && runes[i+1] == ' ' {
				i++
			}
			b.WriteString(`\s+`)
			continue
		}

		if class, ok := classFor(r); ok {
			b.WriteString(class)
			b.WriteString(Harakat)
			continue
		}

		if unicode.IsLetter(r) {
			b.WriteString(escapeRune(r))
			b.WriteString(Harakat)
			continue
		}

		b.WriteString(escapeRune(r))
	}

	return b.String(), nil
}

const metachars = `\.+*?()|[]{}^$`

func escapeRune(r rune) string {
	if strings.ContainsRune(metachars, r) {
		return "\\" + string(r)
	}
	return string(r)
}
