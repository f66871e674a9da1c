package types

import (
	"encoding/json"
	"fmt"

	"github.com/praetorian-inc/arsegment/pkg/segerr"
)

// Breakpoint is a post-hoc constraint that forces an oversized segment to
// be broken further. Per spec §3 it is "either a string pattern or" an
// object with pattern|regex|words fields; UnmarshalJSON below accepts both
// wire shapes.
type Breakpoint struct {
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Regex   string   `json:"regex,omitempty" yaml:"regex,omitempty"`
	Words   []string `json:"words,omitempty" yaml:"words,omitempty"`

	Split SplitMode `json:"split,omitempty" yaml:"split,omitempty"`

	Constraint `yaml:",inline"`

	// SkipWhen is a sibling regex that vetoes the breakpoint if it matches
	// the remaining content.
	SkipWhen string `json:"skipWhen,omitempty" yaml:"skipWhen,omitempty"`
}

// breakpointShape mirrors Breakpoint for JSON decoding without recursing
// back into UnmarshalJSON.
type breakpointShape Breakpoint

// UnmarshalJSON accepts a bare JSON string (interpreted as Pattern) or a
// full object.
func (b *Breakpoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = Breakpoint{Pattern: s}
		return nil
	}

	var shape breakpointShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return fmt.Errorf("breakpoint must be a string pattern or an object: %w", err)
	}
	*b = Breakpoint(shape)
	return nil
}

// IsEmptyPattern reports whether this is the special "" pattern meaning
// "fall back to the next page boundary" (spec §3).
func (b *Breakpoint) IsEmptyPattern() bool {
	return b.Pattern == "" && b.Regex == "" && len(b.Words) == 0
}

// EffectiveSplit defaults to SplitAt when unset.
func (b *Breakpoint) EffectiveSplit() SplitMode {
	if b.Split == "" {
		return SplitAt
	}
	return b.Split
}

// Validate checks the mutual-exclusion rule spec §7 names
// (MutuallyExclusiveOptions): a breakpoint cannot set both Words and
// Pattern, nor Words and Regex.
func (b *Breakpoint) Validate() error {
	switch {
	case b.Pattern != "" && len(b.Words) > 0:
		return &segerr.MutuallyExclusiveOptions{Field1: "pattern", Field2: "words"}
	case b.Regex != "" && len(b.Words) > 0:
		return &segerr.MutuallyExclusiveOptions{Field1: "regex", Field2: "words"}
	case b.Pattern != "" && b.Regex != "":
		return &segerr.MutuallyExclusiveOptions{Field1: "pattern", Field2: "regex"}
	}
	switch b.Split {
	case "", SplitAt, SplitAfter:
	default:
		return fmt.Errorf("breakpoint has unknown split mode %q", b.Split)
	}
	return nil
}
