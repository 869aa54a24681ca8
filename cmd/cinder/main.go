// Package main implements the cinder CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cinder/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "cinder",
	Short: "Cinder C/C++ semantic analyzer",
	Long:  `Cinder checks C and C++ translation units: name resolution, types, record layout, typed IR, and flow diagnostics`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dumpASTCmd)
	rootCmd.AddCommand(dumpCFGCmd)
	rootCmd.AddCommand(dumpLayoutCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show per-phase timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 256, "maximum number of diagnostics per unit")
	rootCmd.PersistentFlags().String("target", "", "target descriptor file (default x86-64 Linux)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the --color mode against the output stream.
func useColor(cmd *cobra.Command, f *os.File) bool {
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(f)
	}
}
