// Package textprep implements the two external collaborators spec §6
// names but segmentPages itself does not execute: applyReplacements and
// applyPreprocessToPage. Callers run these themselves before handing pages
// to pkg/segment, the same way titus's pkg/rule.Filter is a standalone
// pure transform its callers invoke explicitly rather than something
// pkg/scanner.Core runs internally.
package textprep

import (
	"fmt"
	"regexp"

	"github.com/praetorian-inc/arsegment/pkg/segerr"
	"github.com/praetorian-inc/arsegment/pkg/types"
)

// allowedFlags whitelists the inline regexp flags a ReplaceRule may
// request (spec §7's InvalidFlags kind exists specifically to reject
// anything outside this set).
var allowedFlags = map[rune]bool{
	'i': true, // case-insensitive
	'm': true, // multiline
	's': true, // dot matches newline
}

// ApplyReplacements runs every ReplaceRule over the given pages in
// declaration order, returning a new slice (pages are not mutated in
// place). A rule whose PageIDs is non-empty only touches the listed pages;
// an empty PageIDs applies to every page.
func ApplyReplacements(pages []types.Page, rules []types.ReplaceRule) ([]types.Page, error) {
	compiled := make([]*compiledReplace, 0, len(rules))
	for _, r := range rules {
		cr, err := compileReplace(r)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, cr)
	}

	out := make([]types.Page, len(pages))
	copy(out, pages)
	for i, p := range out {
		content := p.Content
		for _, cr := range compiled {
			if !cr.admits(p.ID) {
				continue
			}
			content = cr.re.ReplaceAllString(content, cr.replace)
		}
		out[i].Content = content
	}
	return out, nil
}

type compiledReplace struct {
	re      *regexp.Regexp
	replace string
	pageIDs map[int64]bool
}

func (cr *compiledReplace) admits(id int64) bool {
	if len(cr.pageIDs) == 0 {
		return true
	}
	return cr.pageIDs[id]
}

func compileReplace(r types.ReplaceRule) (*compiledReplace, error) {
	prefix, err := flagsPrefix(r.Flags)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(prefix + r.Pattern)
	if err != nil {
		return nil, &segerr.InvalidRegex{Pattern: r.Pattern, Cause: err}
	}

	var ids map[int64]bool
	if len(r.PageIDs) > 0 {
		ids = make(map[int64]bool, len(r.PageIDs))
		for _, id := range r.PageIDs {
			ids[id] = true
		}
	}
	return &compiledReplace{re: re, replace: r.Replace, pageIDs: ids}, nil
}

func flagsPrefix(flags string) (string, error) {
	if flags == "" {
		return "", nil
	}
	for _, f := range flags {
		if !allowedFlags[f] {
			return "", &segerr.InvalidFlags{Flags: flags}
		}
	}
	return fmt.Sprintf("(?%s)", flags), nil
}

// zeroWidth matches the zero-width control ranges spec §6 names for
// stripping: U+200B-U+200F, U+202A-U+202E, U+2060-U+2064, U+FEFF.
var zeroWidth = regexp.MustCompile(`[\x{200B}-\x{200F}\x{202A}-\x{202E}\x{2060}-\x{2064}\x{FEFF}]`)

// ellipsisRun collapses three or more '.', or two or more Arabic full stops
// (U+06D4), into a single ellipsis character.
var ellipsisRun = regexp.MustCompile(`\.{3,}|(?:\x{06D4}){2,}`)

// trailingWaw catches a lone "و" stranded at the very end of a page's
// content by a line-wrap, the way titus's filter helpers isolate a single
// concern per compiled pattern.
var trailingWaw = regexp.MustCompile(`\sو\s*$`)

// ApplyPreprocessToPage runs the named transforms whose page-id
// constraints admit pageID, in declaration order, over content.
func ApplyPreprocessToPage(content string, pageID int64, transforms []types.PreprocessDirective) string {
	for _, t := range transforms {
		if !t.Admits(pageID) {
			continue
		}
		switch t.Name {
		case types.RemoveZeroWidth:
			content = zeroWidth.ReplaceAllString(content, "")
		case types.CondenseEllipsis:
			content = ellipsisRun.ReplaceAllString(content, "…")
		case types.FixTrailingWaw:
			content = trailingWaw.ReplaceAllString(content, "")
		}
	}
	return content
}

// ApplyPreprocess runs ApplyPreprocessToPage over every page, returning a
// new slice.
func ApplyPreprocess(pages []types.Page, transforms []types.PreprocessDirective) []types.Page {
	out := make([]types.Page, len(pages))
	copy(out, pages)
	for i, p := range out {
		out[i].Content = ApplyPreprocessToPage(p.Content, p.ID, transforms)
	}
	return out
}
