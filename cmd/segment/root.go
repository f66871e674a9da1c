package main

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "segment",
	Short: "segment - declarative multi-page Arabic text segmenter",
	Long: `segment splits multi-page Arabic text into segments using declarative
split rules and breakpoints: line-start markers, fuzzy diacritic-insensitive
matching, page-span limits, and content-length caps.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
