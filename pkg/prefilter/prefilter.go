// Package prefilter gates the first-pass splitter's fast-fuzzy line
// scanner with an Aho-Corasick literal scan, adapted from titus's
// pkg/prefilter: instead of mapping rule keyword lists, it maps the
// skeleton literal(s) behind each fast-fuzzy token name so the scanner can
// skip a token entirely when its skeleton occurs nowhere in the buffer.
package prefilter

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Prefilter answers, for a set of fast-fuzzy token names, which of them
// have their skeleton literal(s) present anywhere in a buffer.
type Prefilter struct {
	matcher        *ahocorasick.Matcher
	keywords       []string            // keyword at each index
	keywordTokens  map[string][]string // keyword -> token names it backs
	alwaysRelevant map[string]bool     // token names with no skeleton: always scan
}

// New builds a prefilter over tokenNames, looking each one's skeleton up
// via lookupSkeletons (pkg/tokens.Skeletons). A token with no registered
// skeleton is always considered relevant, since there is nothing literal
// to gate on.
func New(tokenNames []string, lookupSkeletons func(string) ([]string, bool)) *Prefilter {
	pf := &Prefilter{
		keywordTokens:  make(map[string][]string),
		alwaysRelevant: make(map[string]bool),
	}

	seen := make(map[string]bool)
	for _, name := range tokenNames {
		skels, ok := lookupSkeletons(name)
		if !ok || len(skels) == 0 {
			pf.alwaysRelevant[name] = true
			continue
		}
		for _, s := range skels {
			if !seen[s] {
				seen[s] = true
				pf.keywords = append(pf.keywords, s)
			}
			pf.keywordTokens[s] = append(pf.keywordTokens[s], name)
		}
	}

	if len(pf.keywords) > 0 {
		pf.matcher = ahocorasick.NewStringMatcher(pf.keywords)
	}

	return pf
}

// RelevantTokens returns the subset of registered token names whose
// skeleton appears somewhere in buffer, plus every token that has no
// skeleton to check against. Before matching, buffer is folded the way
// pkg/fuzzy's patterns tolerate variation: harakat (U+064B-U+0652, U+0670)
// are dropped, the alif variants آ أ إ become ا, ta marbuta becomes ha and
// alif maqsura becomes ya, so a bare skeleton spelling also matches
// vocalized and letter-variant text.
func (pf *Prefilter) RelevantTokens(buffer string) map[string]bool {
	relevant := make(map[string]bool, len(pf.alwaysRelevant))
	for name := range pf.alwaysRelevant {
		relevant[name] = true
	}
	if pf.matcher == nil {
		return relevant
	}

	folded := strings.Map(func(r rune) rune {
		switch {
		case (r >= 0x064B && r <= 0x0652) || r == 0x0670:
			return -1
		case r == 'آ' || r == 'أ' || r == 'إ':
			return 'ا'
		case r == 'ة':
			return 'ه'
		case r == 'ى':
			return 'ي'
		}
		return r
	}, buffer)
	hits := pf.matcher.Match([]byte(folded))
	for _, hit := range hits {
		keyword := pf.keywords[hit]
		for _, name := range pf.keywordTokens[keyword] {
			relevant[name] = true
		}
	}
	return relevant
}
