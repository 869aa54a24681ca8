package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cinder/internal/diagfmt"
	"cinder/internal/driver"
	"cinder/internal/prof"
	"cinder/internal/sema"
	"cinder/internal/target"
)

var (
	checkFormat     string
	checkLang       string
	checkJobs       int
	checkNoFlow     bool
	checkNoIR       bool
	checkCPUProfile string
	checkMemProfile string
)

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "pretty", "diagnostic format (pretty|json)")
	checkCmd.Flags().StringVar(&checkLang, "lang", "c", "input language (c|c++)")
	checkCmd.Flags().IntVar(&checkJobs, "jobs", 0, "number of units compiled in parallel (0 = all CPUs)")
	checkCmd.Flags().BoolVar(&checkNoFlow, "no-flow", false, "skip control flow diagnostics")
	checkCmd.Flags().BoolVar(&checkNoIR, "no-ir", false, "skip IR lowering")
	checkCmd.Flags().StringVar(&checkCPUProfile, "cpuprofile", "", "write a CPU profile to this file")
	checkCmd.Flags().StringVar(&checkMemProfile, "memprofile", "", "write a heap profile to this file")
}

var checkCmd = &cobra.Command{
	Use:   "check [flags] <unit.ast>...",
	Short: "Run semantic and flow analysis over serialized translation units",
	Long:  "Check compiles serialized AST streams through the full pipeline: deserialization, layout, flow checks, and IR lowering. Diagnostics go to stdout; a unit with errors fails the command.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	desc, err := resolveTarget(cmd)
	if err != nil {
		return err
	}
	lang, err := resolveLang(checkLang)
	if err != nil {
		return err
	}
	if checkFormat != "pretty" && checkFormat != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", checkFormat)
	}
	limit, _ := cmd.Flags().GetInt("max-diagnostics")
	quiet, _ := cmd.Flags().GetBool("quiet")
	timings, _ := cmd.Flags().GetBool("timings")

	if checkCPUProfile != "" {
		if err := prof.StartCPU(checkCPUProfile); err != nil {
			return err
		}
		defer prof.StopCPU()
	}

	inputs := make([]driver.Input, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		inputs = append(inputs, driver.Input{Name: path, Stream: bytes.NewReader(data)})
	}

	opts := driver.Options{
		Target:    desc,
		Lang:      lang,
		DiagLimit: limit,
		NoFlow:    checkNoFlow,
		NoIR:      checkNoIR,
	}
	results, err := driver.CompileAll(cmd.Context(), opts, inputs, checkJobs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, res := range results {
		if checkFormat == "json" {
			if err := diagfmt.JSON(out, res.Bag, nil, diagfmt.JSONOpts{Max: limit}); err != nil {
				return err
			}
		} else {
			diagfmt.Pretty(out, res.Bag, nil, diagfmt.PrettyOpts{
				Color:     useColor(cmd, os.Stdout),
				ShowNotes: true,
			})
		}
		if res.Failed() {
			failed++
		} else if !quiet && checkFormat == "pretty" {
			fmt.Fprintf(out, "ok %s\n", res.Name)
		}
		if timings && checkFormat == "pretty" {
			fmt.Fprint(out, res.Timings.Summary())
		}
	}
	if checkMemProfile != "" {
		if err := prof.WriteMem(checkMemProfile); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d units failed", failed, len(results))
	}
	return nil
}

func resolveTarget(cmd *cobra.Command) (*target.Descriptor, error) {
	path, _ := cmd.Flags().GetString("target")
	if path == "" {
		return target.X86_64LinuxGNU(), nil
	}
	return target.LoadFile(path)
}

func resolveLang(s string) (sema.Language, error) {
	switch s {
	case "c":
		return sema.LangC, nil
	case "c++", "cxx":
		return sema.LangCXX, nil
	default:
		return sema.LangC, fmt.Errorf("unsupported language %q (must be c or c++)", s)
	}
}
