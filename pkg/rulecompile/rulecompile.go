// Package rulecompile turns declared SplitRules and Breakpoints into
// compiled regexp2 artefacts, classifying each rule as fast-fuzzy,
// combinable, or standalone per spec §4.3.
package rulecompile

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/praetorian-inc/arsegment/pkg/segerr"
	"github.com/praetorian-inc/arsegment/pkg/tokens"
	"github.com/praetorian-inc/arsegment/pkg/types"
)

// matchTimeout guards every compiled regex against catastrophic
// backtracking, mirroring the teacher matcher's regexp2 timeout posture.
const matchTimeout = 5 * time.Second

// Rule is one compiled SplitRule artefact (spec §4.3's third bullet).
type Rule struct {
	Index          int
	Source         *types.SplitRule
	FastFuzzy      bool
	FastFuzzyToken string
	// FastRegex is the fast-fuzzy token's own pattern compiled unanchored;
	// the splitter's line scanner tests it with FindStringMatchStartingAt
	// at each candidate offset and only accepts a hit whose Index equals
	// that offset, giving an anchor-at-offset test without needing '^'
	// (which regexp2 ties to the whole-input start, not an arbitrary
	// scan position, outside of Multiline mode).
	FastRegex  *regexp2.Regexp
	Combinable bool
	Regex      *regexp2.Regexp
	Captures   []string
	BranchName string

	// Guard is the compiled PageStartGuard pattern, anchored at the end of
	// the preceding page's trimmed content (spec §4.5's page-start guard).
	Guard *regexp2.Regexp
}

// Breakpoint is one compiled Breakpoint artefact.
type Breakpoint struct {
	Index  int
	Source *types.Breakpoint
	Regex  *regexp2.Regexp
	Words  []string

	SkipWhen *regexp2.Regexp
}

// Compiled is the full set of compiled rule/breakpoint artefacts for one
// segmentPages call, plus the combined alternation over every combinable
// rule.
type Compiled struct {
	Rules       []*Rule
	Breakpoints []*Breakpoint

	Combined        *regexp2.Regexp
	CombinedBranches []*Rule // index i is the rule for branch name r{i}_branch
}

// Rules compiles every declared SplitRule, classifying and expanding each
// per spec §4.3, and builds the combined alternation over the combinable
// subset.
func Rules(rules []types.SplitRule) (*Compiled, error) {
	c := &Compiled{}

	var branches []string
	for i := range rules {
		r := &rules[i]
		if err := r.Validate(); err != nil {
			return nil, err
		}

		guard, err := compileGuard(r.PageStartGuard)
		if err != nil {
			return nil, err
		}

		if tok, ok := fastFuzzyToken(r); ok {
			fre, err := FuzzyTokenRegex(tok)
			if err != nil {
				return nil, &segerr.InvalidRegex{Pattern: tok, Cause: err}
			}
			c.Rules = append(c.Rules, &Rule{
				Index:          i,
				Source:         r,
				FastFuzzy:      true,
				FastFuzzyToken: tok,
				FastRegex:      fre,
				Guard:          guard,
			})
			continue
		}

		expanded, err := expandRule(r)
		if err != nil {
			return nil, err
		}

		compiled := &Rule{
			Index:    i,
			Source:   r,
			Captures: expanded.Captures,
			Guard:    guard,
		}

		if len(expanded.Captures) == 0 {
			branchName := fmt.Sprintf("r%d_branch", i)
			compiled.Combinable = true
			compiled.BranchName = branchName
			branches = append(branches, fmt.Sprintf("(?<%s>%s)", branchName, expanded.Source))
			c.CombinedBranches = append(c.CombinedBranches, compiled)
		} else {
			re, err := compileRegex(expanded.Source)
			if err != nil {
				return nil, &segerr.InvalidRegex{Pattern: expanded.Source, Cause: err}
			}
			compiled.Regex = re
		}

		c.Rules = append(c.Rules, compiled)
	}

	if len(branches) > 0 {
		combinedSource := strings.Join(branches, "|")
		re, err := compileRegex(combinedSource)
		if err != nil {
			return nil, &segerr.InvalidRegex{Pattern: combinedSource, Cause: err}
		}
		c.Combined = re
	}

	return c, nil
}

// compileGuard expands and compiles a rule's PageStartGuard pattern,
// anchoring it at the end of input so it tests the tail of the preceding
// page's trimmed content. Returns nil, nil when guard is empty.
func compileGuard(guard string) (*regexp2.Regexp, error) {
	if guard == "" {
		return nil, nil
	}
	res, err := tokens.Expand(guard, tokens.Options{})
	if err != nil {
		return nil, &segerr.InvalidRegex{Pattern: guard, Cause: err}
	}
	re, err := compileRegex("(?:" + res.Source + ")$")
	if err != nil {
		return nil, &segerr.InvalidRegex{Pattern: guard, Cause: err}
	}
	return re, nil
}

// fastFuzzyToken reports whether r qualifies for the fast-fuzzy path (spec
// §4.3 rule 1): fuzzy=true, exactly one pattern, and that pattern is a bare
// {{token}} reference with no capture and no surrounding text.
func fastFuzzyToken(r *types.SplitRule) (string, bool) {
	if !r.Fuzzy {
		return "", false
	}
	if r.Kind() != types.RuleLineStartsWith && r.Kind() != types.RuleLineStartsAfter {
		return "", false
	}
	patterns := r.Patterns()
	if len(patterns) != 1 {
		return "", false
	}
	p := strings.TrimSpace(patterns[0])
	if !strings.HasPrefix(p, "{{") || !strings.HasSuffix(p, "}}") {
		return "", false
	}
	name := p[2 : len(p)-2]
	if strings.ContainsAny(name, ":{}") {
		return "", false
	}
	if _, ok := tokens.Lookup(name); !ok {
		return "", false
	}
	return name, true
}

// expandRule resolves a rule's pattern(s) through the token expander and
// applies line-start anchoring, per spec §4.3 rule 3.
func expandRule(r *types.SplitRule) (tokens.Result, error) {
	switch r.Kind() {
	case types.RuleLineStartsWith, types.RuleLineStartsAfter:
		patterns := r.Patterns()
		alt := make([]string, 0, len(patterns))
		var allCaptures []string
		st := &tokens.Result{}
		for _, p := range patterns {
			res, err := tokens.Expand(p, tokens.Options{Fuzzy: r.Fuzzy})
			if err != nil {
				return tokens.Result{}, &segerr.InvalidRegex{Pattern: p, Cause: err}
			}
			alt = append(alt, res.Source)
			allCaptures = append(allCaptures, res.Captures...)
		}
		anchored := "^(?:" + strings.Join(alt, "|") + ")"
		st.Source = anchored
		st.Captures = allCaptures
		return *st, nil
	default: // RuleRegex
		res, err := tokens.Expand(r.Regex, tokens.Options{Raw: true})
		if err != nil {
			return tokens.Result{}, &segerr.InvalidRegex{Pattern: r.Regex, Cause: err}
		}
		return res, nil
	}
}

// compileRegex compiles source in RE2 multiline mode first (no
// backtracking, faster), falling back to default Perl-compatible mode for
// patterns using lookaround or backreferences that RE2 mode rejects —
// mirroring the teacher's PortableRegexpMatcher compilation strategy.
func compileRegex(source string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(source, regexp2.RE2|regexp2.Multiline)
	if err != nil {
		re, err = regexp2.Compile(source, regexp2.Multiline)
		if err != nil {
			return nil, err
		}
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}

// Breakpoints compiles every declared Breakpoint's pattern/words/skipWhen
// fields.
func Breakpoints(bps []types.Breakpoint) ([]*Breakpoint, error) {
	compiled := make([]*Breakpoint, 0, len(bps))
	for i := range bps {
		b := &bps[i]
		if err := b.Validate(); err != nil {
			return nil, err
		}

		cb := &Breakpoint{Index: i, Source: b}

		switch {
		case b.IsEmptyPattern():
			// no regex: empty-pattern fallback handled structurally by
			// the breakpoint processor.
		case len(b.Words) > 0:
			escaped := make([]string, 0, len(b.Words))
			for _, w := range b.Words {
				escaped = append(escaped, tokens.EscapeWord(w))
			}
			source := `\s+(?:` + strings.Join(escaped, "|") + `)`
			re, err := compileRegex(source)
			if err != nil {
				return nil, &segerr.InvalidRegex{Pattern: source, Cause: err}
			}
			cb.Regex = re
		case b.Regex != "":
			re, err := compileRegex(b.Regex)
			if err != nil {
				return nil, &segerr.InvalidRegex{Pattern: b.Regex, Cause: err}
			}
			cb.Regex = re
		default: // Pattern, possibly templated/fuzzy-free literal
			res, err := tokens.Expand(b.Pattern, tokens.Options{})
			if err != nil {
				return nil, &segerr.InvalidRegex{Pattern: b.Pattern, Cause: err}
			}
			re, err := compileRegex(res.Source)
			if err != nil {
				return nil, &segerr.InvalidRegex{Pattern: res.Source, Cause: err}
			}
			cb.Regex = re
		}

		if b.SkipWhen != "" {
			re, err := compileRegex(b.SkipWhen)
			if err != nil {
				return nil, &segerr.InvalidRegex{Pattern: b.SkipWhen, Cause: err}
			}
			cb.SkipWhen = re
		}

		compiled = append(compiled, cb)
	}
	return compiled, nil
}

// FuzzyTokenRegex compiles a fast-fuzzy rule's single token body,
// unanchored, for pkg/splitter's line scanner to probe at specific
// offsets via FindStringMatchStartingAt.
func FuzzyTokenRegex(token string) (*regexp2.Regexp, error) {
	def, ok := tokens.Lookup(token)
	if !ok {
		return nil, fmt.Errorf("rulecompile: unknown fast-fuzzy token %q", token)
	}
	re, err := regexp2.Compile("(?:"+def+")", regexp2.RE2)
	if err != nil {
		re, err = regexp2.Compile("(?:"+def+")", regexp2.None)
		if err != nil {
			return nil, err
		}
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}
