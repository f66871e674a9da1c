package tokens

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/praetorian-inc/arsegment/pkg/fuzzy"
)

// Options configures a single Expand call.
type Options struct {
	// Fuzzy routes literal (non-token) text through the fuzzy transformer.
	Fuzzy bool
	// Raw skips the parentheses/brackets auto-escaping normally applied to
	// literal text; used for the regex: rule field (spec §4.1).
	Raw bool
}

// Result is what Expand produces: a raw regex source fragment plus the
// named captures it introduced, in the order they appear.
type Result struct {
	Source   string
	Captures []string
}

// expandState is threaded through recursive token resolution so duplicate
// capture names are detected across the whole call, including names
// introduced while resolving a composite token's nested placeholders.
type expandState struct {
	seen     map[string]int
	captures []string
}

func (s *expandState) nameFor(base string) string {
	s.seen[base]++
	n := s.seen[base]
	if n == 1 {
		s.captures = append(s.captures, base)
		return base
	}
	name := fmt.Sprintf("%s_%d", base, n)
	s.captures = append(s.captures, name)
	return name
}

// Expand resolves {{name}}, {{name:capture}}, and {{:capture}} placeholders
// in pattern into a raw regexp2-syntax regex fragment, per spec §4.1.
func Expand(pattern string, opts Options) (Result, error) {
	st := &expandState{seen: make(map[string]int)}
	src, err := expandTemplate(pattern, opts, st)
	if err != nil {
		return Result{}, err
	}
	return Result{Source: src, Captures: st.captures}, nil
}

// expandTemplate walks pattern, substituting {{...}} placeholders and
// passing the literal text between them through escaping/fuzzy per opts.
func expandTemplate(pattern string, opts Options, st *expandState) (string, error) {
	var b strings.Builder
	rest := pattern
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			lit, err := literalText(rest, opts)
			if err != nil {
				return "", err
			}
			b.WriteString(lit)
			return b.String(), nil
		}

		lit, err := literalText(rest[:start], opts)
		if err != nil {
			return "", err
		}
		b.WriteString(lit)

		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			return "", fmt.Errorf("unterminated token placeholder in %q", pattern)
		}
		end += start

		body := rest[start+2 : end]
		resolved, err := resolvePlaceholder(body, st)
		if err != nil {
			return "", err
		}
		b.WriteString(resolved)

		rest = rest[end+2:]
	}
}

// resolvePlaceholder handles the body of one {{...}} span: "name",
// "name:capture", or ":capture".
func resolvePlaceholder(body string, st *expandState) (string, error) {
	name, capture, hasCapture := strings.Cut(body, ":")

	if name == "" {
		if !hasCapture || capture == "" {
			return "", fmt.Errorf("empty token placeholder {{%s}}", body)
		}
		groupName := st.nameFor(capture)
		return fmt.Sprintf("(?<%s>.+)", groupName), nil
	}

	def, ok := registry[name]
	if !ok {
		return "", fmt.Errorf("unknown token {{%s}}", name)
	}

	raw, err := resolveTokenBody(def, st)
	if err != nil {
		return "", fmt.Errorf("resolving token %q: %w", name, err)
	}

	if !hasCapture {
		return raw, nil
	}
	if capture == "" {
		return "", fmt.Errorf("empty capture name in {{%s}}", body)
	}
	groupName := st.nameFor(capture)
	return fmt.Sprintf("(?<%s>%s)", groupName, raw), nil
}

// resolveTokenBody transitively expands a registered token's own
// definition. Composite tokens (e.g. "numbered") reference other tokens via
// the same {{name}} syntax; their literal text (separators between
// sub-tokens) is treated as already-valid regex, not run through escaping
// or fuzzy again.
func resolveTokenBody(def string, st *expandState) (string, error) {
	if !strings.Contains(def, "{{") {
		return def, nil
	}
	return expandTemplate(def, Options{Raw: true}, st)
}

// literalText escapes or fuzzy-transforms a run of plain text between
// placeholders, per spec §4.1's rules:
//   - Raw mode (regex: field): pass through unchanged.
//   - Fuzzy mode: run through the fuzzy transformer (which does its own
//     full metacharacter escaping).
//   - Default mode: auto-escape only parentheses and brackets.
func literalText(text string, opts Options) (string, error) {
	if text == "" {
		return "", nil
	}
	if opts.Raw {
		return text, nil
	}
	if opts.Fuzzy {
		return fuzzy.Transform(text)
	}
	return escapeParensAndBrackets(text), nil
}

func escapeParensAndBrackets(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '(', ')', '[', ']':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EscapeWord escapes regex metacharacters in a single word for use in a
// words-style breakpoint alternation (spec §3's Breakpoint.Words). Unlike
// literalText's default path, this escapes the full metacharacter set, not
// just parens/brackets, because Words entries are meant to be taken
// completely literally.
func EscapeWord(word string) string {
	var b strings.Builder
	for _, r := range word {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseIntToken is a small helper for tests/debugging: renders the raqms
// token's numeral-class match back to an int, mapping Arabic-Indic digits.
func ParseIntToken(s string) (int, error) {
	var b strings.Builder
	for _, r := range s {
		if r >= '٠' && r <= '٩' {
			b.WriteRune('0' + (r - '٠'))
		} else {
			b.WriteRune(r)
		}
	}
	return strconv.Atoi(b.String())
}
