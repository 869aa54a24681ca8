package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cinder/internal/ast"
	"cinder/internal/astio"
	"cinder/internal/cfg"
	"cinder/internal/diagfmt"
	"cinder/internal/layout"
)

var dumpASTVerify bool

func init() {
	dumpASTCmd.Flags().BoolVar(&dumpASTVerify, "verify", false, "re-encode the unit and check the round trip")
}

var dumpASTCmd = &cobra.Command{
	Use:   "dump-ast [flags] <unit.ast>",
	Short: "Print the declaration tree of a serialized translation unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		unit, _, err := readUnit(cmd, args[0])
		if err != nil {
			return err
		}
		if dumpASTVerify {
			if err := verifyRoundTrip(cmd, unit); err != nil {
				return err
			}
		}
		return diagfmt.DumpAST(cmd.OutOrStdout(), unit)
	},
}

// verifyRoundTrip re-encodes the unit, decodes the copy, and compares the
// two structurally.
func verifyRoundTrip(cmd *cobra.Command, unit *ast.Unit) error {
	desc, err := resolveTarget(cmd)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := astio.Write(&buf, unit); err != nil {
		return fmt.Errorf("re-encode: %w", err)
	}
	copyUnit, err := astio.Read(&buf, desc)
	if err != nil {
		return fmt.Errorf("re-decode: %w", err)
	}
	if d := astio.Diff(unit, copyUnit); d != "" {
		return fmt.Errorf("round trip diverged: %s", d)
	}
	return nil
}

var dumpCFGFunc string

func init() {
	dumpCFGCmd.Flags().StringVar(&dumpCFGFunc, "func", "", "dump only the named function")
}

var dumpCFGCmd = &cobra.Command{
	Use:   "dump-cfg [flags] <unit.ast>",
	Short: "Print the control flow graph of every defined function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		unit, _, err := readUnit(cmd, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		dumped := 0
		for id := ast.DeclID(1); id <= ast.DeclID(unit.Decls.Len()); id++ {
			d := unit.Decl(id)
			if d == nil || d.Kind != ast.DeclFunction || !d.Fn.Defined || !d.Fn.Body.IsValid() {
				continue
			}
			name := d.Name.String()
			if dumpCFGFunc != "" && name != dumpCFGFunc {
				continue
			}
			fmt.Fprintf(out, "fn %s:\n", name)
			if err := cfg.Dump(out, unit, cfg.Build(unit, id)); err != nil {
				return err
			}
			dumped++
		}
		if dumpCFGFunc != "" && dumped == 0 {
			return fmt.Errorf("no defined function named %q", dumpCFGFunc)
		}
		return nil
	},
}

var dumpLayoutCmd = &cobra.Command{
	Use:   "dump-layout <unit.ast>",
	Short: "Print size, alignment, and field offsets of every record type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		unit, eng, err := readUnit(cmd, args[0])
		if err != nil {
			return err
		}
		return diagfmt.DumpLayouts(cmd.OutOrStdout(), unit, eng)
	},
}

// readUnit deserializes one AST stream and builds a layout engine over its
// type interner.
func readUnit(cmd *cobra.Command, path string) (*ast.Unit, *layout.Engine, error) {
	desc, err := resolveTarget(cmd)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	unit, err := astio.Read(f, desc)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return unit, layout.New(desc, unit.Types), nil
}
