package types

// ReplaceRule is a regex-based content rewrite, applied before segmentation
// by the external applyReplacements collaborator (spec §6). Declared here
// so SegmentationOptions carries it in wire fixtures even though
// segmentPages itself does not execute it; pkg/textprep implements the
// actual transform for callers that want to run it.
type ReplaceRule struct {
	Pattern string  `json:"pattern" yaml:"pattern"`
	Replace string  `json:"replace" yaml:"replace"`
	Flags   string  `json:"flags,omitempty" yaml:"flags,omitempty"`
	PageIDs []int64 `json:"pageIds,omitempty" yaml:"pageIds,omitempty"`
}

// PreprocessName is one of the named transforms applyPreprocessToPage
// supports.
type PreprocessName string

const (
	RemoveZeroWidth  PreprocessName = "removeZeroWidth"
	CondenseEllipsis PreprocessName = "condenseEllipsis"
	FixTrailingWaw   PreprocessName = "fixTrailingWaw"
)

// PreprocessDirective names one transform and the page-id range it applies
// to (an absent Min/Max means unconstrained).
type PreprocessDirective struct {
	Name PreprocessName `json:"name" yaml:"name"`
	Min  *int64         `json:"min,omitempty" yaml:"min,omitempty"`
	Max  *int64         `json:"max,omitempty" yaml:"max,omitempty"`
}

// Admits reports whether the directive applies to the given page id.
func (d *PreprocessDirective) Admits(id int64) bool {
	if d.Min != nil && id < *d.Min {
		return false
	}
	if d.Max != nil && id > *d.Max {
		return false
	}
	return true
}
