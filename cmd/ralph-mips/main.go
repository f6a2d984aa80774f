package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/raymyers/ralph-mips/pkg/asm"
	"github.com/raymyers/ralph-mips/pkg/cfg"
	"github.com/raymyers/ralph-mips/pkg/codegen"
	"github.com/raymyers/ralph-mips/pkg/config"
	"github.com/raymyers/ralph-mips/pkg/parser"
	"github.com/raymyers/ralph-mips/pkg/regalloc"
	"github.com/raymyers/ralph-mips/pkg/report"
	"github.com/raymyers/ralph-mips/pkg/strategy"
)

var version = "0.1.0"

// Debug flags for dumping analysis results
var (
	dCFG   bool
	dLive  bool
	dAlloc bool
)

// Compilation options; a flag only overrides the configuration when it was
// given on the command line
var (
	outputPath string
	registers  int
	configPath string
	verbose    bool
	logFile    string
)

func main() {
	atexit.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Accept single-dash dump flags (-dcfg) as well as --dcfg
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the dump flags that also accept single-dash style
var debugFlagNames = []string{"dcfg", "dlive", "dalloc"}

// normalizeFlags converts single-dash dump flags like -dcfg to --dcfg
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-mips [file] [naive|intra|global]",
		Short: "ralph-mips lowers three-address IR to MIPS assembly",
		Long: `ralph-mips translates a three-address intermediate representation into
MIPS32 assembly. Variables are kept in memory (naive), cached in
registers per basic block (intra) or assigned registers function-wide
by graph coloring (global).

Schemes: ` + strings.Join(strategy.SchemeNames(), ", "),
		Version:       version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			c, err := loadConfig(cmd, args)
			if err != nil {
				fmt.Fprintf(errOut, "ralph-mips: error: %v\n", err)
				return err
			}
			closeLog, err := setupLogging(c.Verbose, errOut)
			if err != nil {
				fmt.Fprintf(errOut, "ralph-mips: error: %v\n", err)
				return err
			}
			defer closeLog()
			return compile(args[0], c, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVar(&dCFG, "dcfg", false, "Dump the control flow graph")
	rootCmd.Flags().BoolVar(&dLive, "dlive", false, "Dump liveness per instruction and per block")
	rootCmd.Flags().BoolVar(&dAlloc, "dalloc", false, "Dump webs, interference degree and register assignment")

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", config.DefaultOutput, "Write assembly to this file")
	rootCmd.Flags().IntVarP(&registers, "registers", "k", config.DefaultRegisters, "Number of $s registers available to the allocator")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Read settings from a YAML file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log compiler passes to stderr")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Write JSON logs to this file instead of stderr")

	return rootCmd
}

// loadConfig merges the configuration file, the environment and the command
// line, then validates the result
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return c, err
	}
	if len(args) > 1 {
		c.Scheme = args[1]
	}
	flags := cmd.Flags()
	if flags.Changed("output") {
		c.Output = outputPath
	}
	if flags.Changed("registers") {
		c.Registers = registers
	}
	if flags.Changed("verbose") {
		c.Verbose = verbose
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// setupLogging installs the default slog logger. The returned function
// closes the log file, if one was opened; it is also registered to run at
// exit.
func setupLogging(verbose bool, errOut io.Writer) (func(), error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(errOut, opts)))
		return func() {}, nil
	}

	f, err := os.Create(logFile)
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, opts)))
	closed := false
	closeLog := func() {
		if !closed {
			closed = true
			f.Sync()
			f.Close()
		}
	}
	atexit.Register(closeLog)
	return closeLog, nil
}

// compile parses filename, prints any requested dumps to out and writes the
// assembly to the configured output file
func compile(filename string, c config.Config, out, errOut io.Writer) error {
	prog, err := parseFile(filename, errOut)
	if err != nil {
		return err
	}

	if dCFG {
		cfg.NewPrinter(out).PrintProgram(prog)
	}
	if dLive || dAlloc {
		dumpAnalysis(prog, c.Registers, out)
	}

	scheme, err := c.SchemeValue()
	if err != nil {
		fmt.Fprintf(errOut, "ralph-mips: error: %v\n", err)
		return err
	}
	asmProg, err := codegen.Generate(prog, scheme, c.Registers)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-mips: error: %v\n", err)
		return err
	}

	outFile, err := os.Create(c.Output)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-mips: error creating %s: %v\n", c.Output, err)
		return err
	}
	defer outFile.Close()

	asm.NewPrinter(outFile).PrintProgram(asmProg)
	slog.Debug("assembly written", "output", c.Output, "scheme", scheme.String(), "functions", len(asmProg.Functions))
	return nil
}

// parseFile reads and parses an IR file, warning about skipped lines
func parseFile(filename string, errOut io.Writer) (*cfg.Program, error) {
	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-mips: error reading %s: %v\n", filename, err)
		return nil, err
	}
	defer f.Close()

	prog, skipped, err := parser.Parse(f)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-mips: %s: %v\n", filename, err)
		return nil, err
	}
	for _, s := range skipped {
		fmt.Fprintf(errOut, "ralph-mips: warning: %s: skipped %s\n", filename, s)
	}
	return prog, nil
}

// dumpAnalysis prints the liveness and allocation tables of every function
func dumpAnalysis(prog *cfg.Program, k int, out io.Writer) {
	for _, fn := range prog.Functions {
		if dLive {
			report.Liveness(out, fn, regalloc.AnalyzeLiveness(fn))
			report.BlockLiveness(out, fn, regalloc.AnalyzeBlockLiveness(fn))
		}
		if dAlloc {
			report.Allocation(out, prog, fn, regalloc.AllocateFunction(prog, fn, k))
		}
	}
}
