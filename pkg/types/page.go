// Package types holds the wire-format data model shared across the
// segmentation engine: pages in, segments out, and the declarative rules
// that drive the split between them. Types here carry JSON and YAML tags so
// fixtures (spec's canonical test-fixture shape: pages + SegmentationOptions)
// round-trip without a separate decoding layer, the way titus's pkg/types
// doubles as both in-memory and wire representation for Rule/Match. The
// shorthand wire shapes (a bare-string breakpoint, a number or [lo, hi]
// exclude entry) are accepted by custom UnmarshalJSON methods; YAML
// decoding goes through the struct fields only and does not accept them.
package types

// Page is one unit of source content. IDs are arbitrary but strictly
// increasing across a sequence; they need not be dense, so a multi-page
// segment's span is computed by ID arithmetic (ToID - FromID), not by
// counting pages.
type Page struct {
	ID      int64  `json:"id" yaml:"id"`
	Content string `json:"content" yaml:"content"`
}
