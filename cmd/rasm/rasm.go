// Package rasm implements the rasm command: the assembler/linker
// driver that ties together pkg/token, pkg/assembler, pkg/module and
// pkg/linker, plus the ambient CLI concerns (config, logging,
// diagnostics, listing, browsing) described in SPEC_FULL.md §4.8-4.11.
package rasm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/SapphireAmoeba5/rasm/pkg/assembler"
	"github.com/SapphireAmoeba5/rasm/pkg/browser"
	"github.com/SapphireAmoeba5/rasm/pkg/config"
	"github.com/SapphireAmoeba5/rasm/pkg/diag"
	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/SapphireAmoeba5/rasm/pkg/linker"
	"github.com/SapphireAmoeba5/rasm/pkg/listing"
	"github.com/SapphireAmoeba5/rasm/pkg/module"
	"github.com/SapphireAmoeba5/rasm/pkg/token"
	"github.com/SapphireAmoeba5/rasm/pkg/utils"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var flags struct {
	output  string
	showMap bool
	script  string
	logFile string
	verbose bool
	browse  bool
	listing bool
	noColor bool
}

// Cmd is the rasm root command: `rasm [flags] FILE...`.
var Cmd = &cobra.Command{
	Use:   "rasm [flags] FILE...",
	Short: "Assemble and link a custom 64-bit ISA program",
	RunE:  run,
}

func init() {
	Cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file path (required unless --map)")
	Cmd.Flags().BoolVar(&flags.showMap, "map", false, "dump the opcode table to stdout and exit")
	Cmd.Flags().StringVar(&flags.script, "script", "", "placement script YAML file (default: .entry, .text, *)")
	Cmd.Flags().StringVar(&flags.logFile, "log-file", "", "also log to this file as JSON")
	Cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "raise log level to debug")
	Cmd.Flags().BoolVar(&flags.browse, "browse", false, "open the terminal inspector after a successful build")
	Cmd.Flags().BoolVar(&flags.listing, "listing", false, "print a syntax-highlighted listing of each input file")
	Cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colorized diagnostics")

	viper.BindPFlag("output", Cmd.Flags().Lookup("output"))
	viper.BindPFlag("linker.script", Cmd.Flags().Lookup("script"))
	viper.BindPFlag("log.file", Cmd.Flags().Lookup("log-file"))
	viper.BindPFlag("log.verbose", Cmd.Flags().Lookup("verbose"))
}

// resolve falls back to the rasm config file's setting when the flag
// was left at its zero value.
func resolve(flagValue, configKey string) string {
	if flagValue != "" {
		return flagValue
	}
	return viper.GetString(configKey)
}

func run(cmd *cobra.Command, args []string) error {
	flags.output = resolve(flags.output, "output")
	flags.logFile = resolve(flags.logFile, "log.file")
	if !flags.verbose {
		flags.verbose = viper.GetBool("log.verbose")
	}
	if flags.noColor || (viper.IsSet("color") && !viper.GetBool("color")) {
		color.NoColor = true
	}

	if flags.showMap {
		fmt.Print(isa.Documentation())
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("no input files given")
	}
	if flags.output == "" {
		return fmt.Errorf("--output is required unless --map is given")
	}

	script, err := config.LoadScript(flags.script)
	if err != nil {
		return err
	}

	logger, closeLog, err := diag.NewLogger(flags.logFile, flags.verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Debug("starting build", "inputs", utils.Map(args, filepath.Base))

	var modules []module.Module
	var hadErrors bool

	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		if flags.listing {
			listing.PrintListing(path, string(src), func(line string) { fmt.Fprint(os.Stderr, line) })
		}

		a := assembler.New(path)
		ok := a.Assemble(token.New(string(src)))
		if !ok {
			hadErrors = true
			for _, d := range a.Diagnostics() {
				diag.Print(os.Stderr, d)
			}
			continue
		}

		m, err := module.Build(a, path)
		if err != nil {
			hadErrors = true
			diag.Print(os.Stderr, err)
			continue
		}

		logger.Debug("assembled module", "file", path, "sections", len(m.SectionOrder), "relocations", len(m.Relocations))
		modules = append(modules, m)
	}

	if hadErrors {
		return fmt.Errorf("build failed")
	}

	l := linker.New(script)
	for _, m := range modules {
		l.AddModule(m)
	}

	prog, err := l.Link()
	if err != nil {
		diag.Print(os.Stderr, err)
		return fmt.Errorf("link failed")
	}

	logger.Info("link complete", "bytes", len(prog.Bytes), "modules", len(modules))

	if err := os.WriteFile(flags.output, prog.Bytes, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", flags.output, err)
	}

	if flags.browse {
		if err := browser.Run(modules, prog); err != nil {
			return fmt.Errorf("browser: %w", err)
		}
	}

	return nil
}
