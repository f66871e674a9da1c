// Package tokens implements the closed token/template mini-language spec
// §4.1 describes: a fixed set of named regex fragments ({{name}}), named
// captures ({{name:capture}}), a free-content capture ({{:capture}}), and
// composite tokens built out of other tokens.
package tokens

import (
	"sort"

	"github.com/praetorian-inc/arsegment/pkg/fuzzy"
)

// registry maps a token name to its raw regex fragment. A composite token's
// definition may itself reference other tokens via {{name}} syntax; it is
// resolved transitively by Expand.
//
// Phrase tokens (bab, kitab, fasl, basmala, naql) are built from their
// plain consonantal skeleton run through the fuzzy transformer once, here,
// so they tolerate diacritics and letter-equivalence variation regardless of
// whether the rule that uses them set fuzzy: true — an undiacritized "باب"
// in source text is exactly as valid a chapter marker as a vocalized one.
var registry = map[string]string{
	// Numerals (spec §6: Arabic-Indic numerals U+0660-U+0669).
	"raqm":  `[\u0660-\u0669]`,
	"raqms": `[\u0660-\u0669]+`,

	// Dashes and bullets (spec §6).
	"dash":   `[\-\u2013\u2014\u0640]`,
	"bullet": `[\u2022*\u00B0\-]`,

	// Numbered-entry composite: "٣ - " / "٣- " style markers.
	"numbered": `{{raqms}}\s*{{dash}}\s*`,

	// Tarqim: a trailing full-stop-like marker closing an Arabic
	// enumerated list entry, used as a pageStartGuard anchor.
	"tarqim": `[.\u06D4\u061F!:\u061B\u060C]`,

	// Structural markers.
	"bab":   mustFuzzy("باب"),
	"kitab": mustFuzzy("كتاب"),
	"fasl":  mustFuzzy("فصل"),

	// Basmala (glossary): the opening phrase, consonantal skeleton.
	"basmala": mustFuzzy("بسم الله الرحمن الرحيم"),

	// Naql: narrator-transmission markers.
	"naql": mustFuzzy("حدثنا") + "|" + mustFuzzy("اخبرنا") + "|" + mustFuzzy("انبانا") + "|" + mustFuzzy("سمعت"),

	// Rumuz: a closed alphabet of hadith-transmission abbreviation codes.
	// Longer codes are listed before shorter ones so the alternation
	// prefers the longest applicable match.
	"rumuz": `(?:خت|دت|عس|بخ|مد|ق4|خ4|ع4|خ|م|د|ت|س|ق|ز|ر|4)`,
}

func mustFuzzy(literal string) string {
	pattern, err := fuzzy.Transform(literal)
	if err != nil {
		panic("tokens: invalid built-in phrase " + literal + ": " + err.Error())
	}
	return pattern
}

// skeletons holds the literal spelling(s) behind each phrase token built
// via mustFuzzy. pkg/prefilter uses them as Aho-Corasick keywords to gate
// the fast-fuzzy line scanner: it drops harakat from the buffer and folds
// pkg/fuzzy's letter-equivalence classes (alif variants to bare alif, ta
// marbuta to ha, alif maqsura to ya) before matching, so a bare spelling
// here also stands for its vocalized and letter-variant forms. When none
// of a token's literals occurs in the folded buffer, the scanner skips
// testing that token at every line start.
var skeletons = map[string][]string{
	"bab":     {"باب"},
	"kitab":   {"كتاب"},
	"fasl":    {"فصل"},
	"basmala": {"بسم الله الرحمن الرحيم"},
	"naql":    {"حدثنا", "اخبرنا", "أخبرنا", "انبانا", "أنبأنا", "سمعت"},
}

// Skeletons returns the literal(s) backing a built-in phrase token, and
// whether it has any (numeral/dash/bullet/rumuz tokens do not, since they
// have no stable literal substring to key a prefilter on).
func Skeletons(name string) ([]string, bool) {
	s, ok := skeletons[name]
	return s, ok
}

// Lookup returns a token's raw definition and whether it is registered.
// Exported for rulecompile diagnostics and tests; Expand is the normal
// entry point for resolving a pattern.
func Lookup(name string) (string, bool) {
	def, ok := registry[name]
	return def, ok
}

// Names returns the sorted closed set of registered token names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
