package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/arsegment/pkg/fixture"
	"github.com/praetorian-inc/arsegment/pkg/segment"
)

var (
	runFormat string
	runColor  string
)

var runCmd = &cobra.Command{
	Use:   "run <fixture>",
	Short: "Segment a fixture file",
	Long:  "Load a JSON or YAML fixture (pages + options) and print the resulting segments",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runFormat, "format", "human", "Output format: json, human")
	runCmd.Flags().StringVar(&runColor, "color", "auto", "Color output: auto, always, never")
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]

	f, err := fixture.LoadFile(path)
	if err != nil {
		return fmt.Errorf("loading fixture: %w", err)
	}

	switch runColor {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}

	segs, err := segment.SegmentPages(f.Pages, f.Options)
	if err != nil {
		return fmt.Errorf("segmenting: %w", err)
	}

	out := cmd.OutOrStdout()
	if runFormat == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(segs)
	}

	heading := color.New(color.Bold, color.FgHiBlue)
	metadata := color.New(color.FgHiGreen)

	fmt.Fprintf(out, "Found %d segment(s)\n\n", len(segs))
	for i, seg := range segs {
		heading.Fprintf(out, "[%d] pages %d", i+1, seg.From)
		if seg.To != nil {
			heading.Fprintf(out, "-%d", *seg.To)
		}
		heading.Fprintln(out)
		if len(seg.Meta) > 0 {
			metadata.Fprintf(out, "    meta: %v\n", seg.Meta)
		}
		fmt.Fprintf(out, "%s\n\n", seg.Content)
	}
	return nil
}
