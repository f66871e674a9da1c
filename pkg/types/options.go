package types

import "github.com/praetorian-inc/arsegment/pkg/seglog"

// PagePreference decides which of two equally valid breakpoint matches to
// keep within a window.
type PagePreference string

const (
	PreferLonger  PagePreference = "longer"
	PreferShorter PagePreference = "shorter"
)

// PageJoiner controls how a page-boundary newline is rendered in the final
// content of a segment that spans pages. Matching always happens against
// '\n' joiners regardless of this setting (spec §3).
type PageJoiner string

const (
	JoinerNewline PageJoiner = "newline"
	JoinerSpace   PageJoiner = "space"
)

// SegmentationOptions configures a single segmentPages call.
type SegmentationOptions struct {
	Rules       []SplitRule  `json:"rules" yaml:"rules"`
	Breakpoints []Breakpoint `json:"breakpoints,omitempty" yaml:"breakpoints,omitempty"`

	// MaxPages bounds a segment's page span (ToID - FromID). 0 means one
	// segment per page.
	MaxPages uint32 `json:"maxPages" yaml:"maxPages"`
	// MaxContentLength, if set, hard-caps a segment's content length.
	MaxContentLength *uint32 `json:"maxContentLength,omitempty" yaml:"maxContentLength,omitempty"`

	Prefer     PagePreference `json:"prefer,omitempty" yaml:"prefer,omitempty"`
	PageJoiner PageJoiner     `json:"pageJoiner,omitempty" yaml:"pageJoiner,omitempty"`

	// Replace and Preprocess are passthrough wire fields for the external
	// collaborators described in spec §6 (applyReplacements,
	// applyPreprocessToPage). segmentPages does not execute them; see
	// pkg/textprep and DESIGN.md for why.
	Replace    []ReplaceRule          `json:"replace,omitempty" yaml:"replace,omitempty"`
	Preprocess []PreprocessDirective `json:"preprocess,omitempty" yaml:"preprocess,omitempty"`

	// Logger receives non-fatal diagnostics. A nil Logger is equivalent to
	// seglog.Noop{}.
	Logger seglog.Logger `json:"-" yaml:"-"`
}

// EffectivePrefer defaults to "longer" (spec is silent on the zero-value
// default; "longer" matches the common case of wanting maximal segments
// before the hard breakpoint ceiling kicks in).
func (o *SegmentationOptions) EffectivePrefer() PagePreference {
	if o.Prefer == "" {
		return PreferLonger
	}
	return o.Prefer
}

// EffectivePageJoiner defaults to "newline".
func (o *SegmentationOptions) EffectivePageJoiner() PageJoiner {
	if o.PageJoiner == "" {
		return JoinerNewline
	}
	return o.PageJoiner
}
