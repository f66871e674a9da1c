// Package segment wires the page map, rule compiler, first-pass splitter,
// and breakpoint processor into the single external entry point spec §6
// describes: segmentPages(pages, options) -> Segment[]. Mirrors the
// construct-then-run shape of titus's pkg/scanner.NewCore/Scan, but as a
// pure per-call function rather than a persistent object, since this engine
// keeps no state across calls (spec §5).
package segment

import (
	"github.com/praetorian-inc/arsegment/pkg/breakpoints"
	"github.com/praetorian-inc/arsegment/pkg/pagemap"
	"github.com/praetorian-inc/arsegment/pkg/rulecompile"
	"github.com/praetorian-inc/arsegment/pkg/seglog"
	"github.com/praetorian-inc/arsegment/pkg/splitter"
	"github.com/praetorian-inc/arsegment/pkg/types"
)

// SegmentPages is the engine's single external entry point. It builds the
// page map, compiles the declared rules and breakpoints, runs the
// first-pass splitter, and slices any oversized segment through the
// breakpoint processor.
func SegmentPages(pages []types.Page, opts types.SegmentationOptions) ([]types.Segment, error) {
	logger := seglog.Or(opts.Logger)

	pm := pagemap.Build(pages)

	compiledRules, err := rulecompile.Rules(opts.Rules)
	if err != nil {
		return nil, err
	}
	compiledBreakpoints, err := rulecompile.Breakpoints(opts.Breakpoints)
	if err != nil {
		return nil, err
	}

	firstPass := splitter.Split(pm, compiledRules, logger)
	logger.Debug("segment: first pass produced %d segments", len(firstPass))

	final, err := breakpoints.Process(pm, firstPass, compiledBreakpoints, breakpoints.Options{
		MaxPages:         opts.MaxPages,
		MaxContentLength: opts.MaxContentLength,
		Prefer:           opts.EffectivePrefer(),
		PageJoiner:       opts.EffectivePageJoiner(),
	}, logger)
	if err != nil {
		return final, err
	}

	logger.Debug("segment: breakpoint processor produced %d final segments", len(final))
	return final, nil
}
