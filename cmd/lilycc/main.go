// Command lilycc is the CLI driver of spec.md §6: it ties the
// preprocessor, parser, per-function lowering pass, and assembler/linker
// into one source-to-binary pipeline for the gr8cpu-r3 and pixie-16
// targets, plus a second --mode=addr2line entry point over the sidecar
// pkg/asm.WriteSidecar produces. Grounded on cmd/ralph-cc/main_test.go's
// expected surface, since the teacher pack never committed an actual
// main.go for its own CLI.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/robotman2412/lily-cc-go/pkg/addr2line"
	"github.com/robotman2412/lily-cc-go/pkg/asm"
	"github.com/robotman2412/lily-cc-go/pkg/ast"
	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
	"github.com/robotman2412/lily-cc-go/pkg/diag"
	"github.com/robotman2412/lily-cc-go/pkg/lower"
	"github.com/robotman2412/lily-cc-go/pkg/parser"
	"github.com/robotman2412/lily-cc-go/pkg/preproc"
	"github.com/robotman2412/lily-cc-go/pkg/scope"
	"github.com/robotman2412/lily-cc-go/pkg/target"
	"github.com/robotman2412/lily-cc-go/pkg/target/gr8cpu"
	"github.com/robotman2412/lily-cc-go/pkg/target/pixie16"
)

// version is set at release time via -ldflags; left non-empty here so a
// plain development build still reports something for --version.
var version = "dev"

// Debug-dump flags. --dparse is implemented; the rest mirror the
// teacher's own debug pipeline stages and are reserved for a backend
// that has not grown that far yet.
var (
	dParse  bool
	dC      bool
	dAsm    bool
	dClight bool
	dCminor bool
	dRTL    bool
	dLTL    bool
	dMach   bool
	dAST    bool
	dTokens bool
)

// ErrNotImplemented is returned, wrapped with the flag name, for every
// debug-dump stage the backend does not yet produce.
var ErrNotImplemented = errors.New("not yet implemented")

// compile-pipeline flags, separate from the debug-dump set above.
var (
	flagMode        string
	flagTarget      string
	flagIncludeDirs []string
	flagOutput      string
	flagLineNumbers string
	flagFFlags      []string
	flagMFlags      []string
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			if be, ok := r.(*diag.BugError); ok {
				fmt.Fprintf(os.Stderr, "lilycc: internal compiler error: %s\n", be.Message)
				os.Exit(2)
			}
			panic(r)
		}
	}()
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the lilycc command tree, writing normal output to out
// and diagnostics/usage errors to errOut.
func newRootCmd(out, errOut io.Writer) *cobra.Command {
	log := logrus.New()
	log.SetOutput(errOut)

	cmd := &cobra.Command{
		Use:           "lilycc [flags] source...",
		Short:         "retargetable C compiler for gr8cpu-r3 and pixie-16",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			return runMain(c, args, out, errOut, log)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.Flags()
	flags.StringVar(&flagMode, "mode", "compile", "operation mode: compile|addr2line")
	flags.StringVarP(&flagTarget, "target", "t", "gr8cpu-r3", "target machine: gr8cpu-r3|pixie-16")
	flags.StringArrayVarP(&flagIncludeDirs, "include", "I", nil, "add a directory to the #include search path")
	flags.StringVarP(&flagOutput, "output", "o", "", "output file path")
	flags.StringVar(&flagLineNumbers, "linenumbers", "", "write (compile mode) or read (addr2line mode) the line-number sidecar")
	flags.StringArrayVarP(&flagFFlags, "fflag", "f", nil, "code-generation flag: pic|no-pic|pie|no-pie")
	flags.StringArrayVarP(&flagMFlags, "mflag", "m", nil, "target-specific machine option, e.g. mentrypoint=<label>")

	flags.BoolVar(&dParse, "dparse", false, "parse and print the AST, writing a <name>.parsed.c sidecar")
	flags.BoolVar(&dAST, "dast", false, "alias of --dparse")
	flags.BoolVar(&dTokens, "dtokens", false, "dump the preprocessed token stream (not yet implemented)")
	flags.BoolVar(&dC, "dc", false, "dump the preprocessed C source (not yet implemented)")
	flags.BoolVar(&dAsm, "dasm", false, "dump the linked assembler output (not yet implemented)")
	flags.BoolVar(&dClight, "dclight", false, "dump the Clight-equivalent IR (not yet implemented)")
	flags.BoolVar(&dCminor, "dcminor", false, "dump the Cminor-equivalent IR (not yet implemented)")
	flags.BoolVar(&dRTL, "drtl", false, "dump the RTL-equivalent IR (not yet implemented)")
	flags.BoolVar(&dLTL, "dltl", false, "dump the LTL-equivalent IR (not yet implemented)")
	flags.BoolVar(&dMach, "dmach", false, "dump the Mach-equivalent IR (not yet implemented)")

	return cmd
}

// notImplemented reports flagName as an unimplemented debug stage to
// errOut and returns an error wrapping ErrNotImplemented.
func notImplemented(errOut io.Writer, flagName string) error {
	msg := fmt.Sprintf("--%s is not yet implemented", flagName)
	fmt.Fprintln(errOut, msg)
	return errors.Wrap(ErrNotImplemented, msg)
}

func runMain(c *cobra.Command, args []string, out, errOut io.Writer, log *logrus.Logger) error {
	for flagName, on := range map[string]bool{
		"dc": dC, "dasm": dAsm, "dclight": dClight, "dcminor": dCminor,
		"drtl": dRTL, "dltl": dLTL, "dmach": dMach, "dtokens": dTokens,
	} {
		if on {
			return notImplemented(errOut, flagName)
		}
	}

	switch flagMode {
	case "addr2line":
		return runAddr2Line(args, out, errOut)
	case "compile", "":
		return runCompile(args, out, errOut, log)
	default:
		return errors.Errorf("unknown --mode %q", flagMode)
	}
}

// runAddr2Line implements spec.md §6's second entry point: a sidecar path
// via --linenumbers plus a list of hex addresses, one "rel_path:line" (or
// "??:0") answer per line of output.
func runAddr2Line(args []string, out, errOut io.Writer) error {
	if flagLineNumbers == "" {
		return errors.New("addr2line mode requires --linenumbers=<sidecar path>")
	}
	f, err := os.Open(flagLineNumbers)
	if err != nil {
		return errors.Wrap(err, "addr2line")
	}
	defer f.Close()

	table, err := addr2line.Parse(bufio.NewReader(f))
	if err != nil {
		return errors.Wrap(err, "addr2line")
	}

	for _, raw := range args {
		addr, err := parseHexAddr(raw)
		if err != nil {
			fmt.Fprintln(errOut, err)
			fmt.Fprintln(out, "??:0")
			continue
		}
		rel, line, ok := table.Lookup(addr)
		fmt.Fprintln(out, addr2line.FormatResult(rel, line, ok))
	}
	return nil
}

func parseHexAddr(raw string) (int, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	v, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid address %q", raw)
	}
	return int(v), nil
}

// runCompile implements the default mode: preprocess, parse, and either
// print the AST (--dparse/--dast) or lower and assemble every source file
// named in args.
func runCompile(args []string, out, errOut io.Writer, log *logrus.Logger) error {
	if len(args) == 0 {
		return errors.New("no input files")
	}

	fOpts, err := parseFFlags(flagFFlags)
	if err != nil {
		return err
	}
	tgt, err := buildTarget(flagTarget, flagMFlags, fOpts, log)
	if err != nil {
		return err
	}

	interner := ctypes.NewInterner(tgt.WordBytes())

	if dParse || dAST {
		for _, src := range args {
			if err := dumpParse(src, tgt, out); err != nil {
				return err
			}
		}
		return nil
	}

	diags := diag.NewBag()
	builder := asm.NewBuilder(wordBytesFor(tgt), !tgt.LittleEndian())

	for _, src := range args {
		if err := compileOne(src, tgt, interner, diags, builder, fOpts.PIE); err != nil {
			return err
		}
	}
	diags.SortStable()
	diags.Emit(errOut)
	if diags.HasErrors() {
		return errors.New("compilation failed")
	}

	linked, err := builder.Link()
	if err != nil {
		return errors.Wrap(err, "link")
	}

	payload, err := emitOutput(tgt, linked, fOpts)
	if err != nil {
		return err
	}

	outPath := flagOutput
	if outPath == "" {
		outPath = "a.out"
	}
	if err := os.WriteFile(outPath, payload, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", outPath)
	}

	if flagLineNumbers != "" {
		sw, err := os.Create(flagLineNumbers)
		if err != nil {
			return errors.Wrapf(err, "writing %s", flagLineNumbers)
		}
		defer sw.Close()
		asm.WriteSidecar(sw, linked, nil)
	}
	return nil
}

func wordBytesFor(tgt target.Target) int {
	wb := tgt.WordBytes()
	if wb < 1 {
		wb = 1
	}
	return wb
}

// fFlagOptions is the parsed form of every -f flag spec.md §6 names.
type fFlagOptions struct {
	PIC, PIE bool
}

func parseFFlags(raw []string) (fFlagOptions, error) {
	var opts fFlagOptions
	for _, f := range raw {
		switch strings.ToLower(f) {
		case "pic":
			opts.PIC = true
		case "no-pic":
			opts.PIC = false
		case "pie":
			opts.PIE = true
		case "no-pie":
			opts.PIE = false
		default:
			return opts, errors.Errorf("unrecognised -f flag %q", f)
		}
	}
	return opts, nil
}

// buildTarget constructs the selected Target, folding -m options into
// pixie-16's Options struct (spec.md §6: only the 16-bit target
// interprets -m). A -m or PIC/PIE flag given alongside gr8cpu-r3, which
// has no such options, is a warning rather than a hard error.
func buildTarget(name string, mFlags []string, fOpts fFlagOptions, log *logrus.Logger) (target.Target, error) {
	switch name {
	case "gr8cpu-r3", "gr8cpu", "":
		if len(mFlags) > 0 {
			log.Warnf("-m options are ignored: gr8cpu-r3 has no machine options")
		}
		if fOpts.PIC || fOpts.PIE {
			log.Warnf("-fpic/-fpie are ignored: gr8cpu-r3 does not support position-independent code")
		}
		return gr8cpu.New(), nil
	case "pixie-16", "pixie16":
		opts, err := parsePixie16MFlags(mFlags)
		if err != nil {
			return nil, err
		}
		opts.PIC = fOpts.PIC
		opts.PIE = fOpts.PIE
		if opts.PIC && opts.PIE {
			log.Warnf("-fpic and -fpie both given; -fpie takes precedence")
		}
		return pixie16.New(opts), nil
	default:
		return nil, errors.Errorf("unknown target %q", name)
	}
}

func parsePixie16MFlags(mFlags []string) (pixie16.Options, error) {
	var opts pixie16.Options
	for _, m := range mFlags {
		name, value, hasValue := strings.Cut(m, "=")
		if !hasValue {
			return opts, errors.Errorf("unrecognised -m flag %q", m)
		}
		switch name {
		case "entrypoint":
			opts.EntryPointName = value
		case "irqhandler":
			opts.IRQHandlerName = value
		case "nmihandler":
			opts.NMIHandlerName = value
		default:
			return opts, errors.Errorf("unrecognised -m flag %q", m)
		}
	}
	return opts, nil
}

func emitOutput(tgt target.Target, linked *asm.Linked, fOpts fFlagOptions) ([]byte, error) {
	// The raw flat binary is the default emitter named in spec.md §6; an
	// ELF32 writer exists as an alternative, currently wired for
	// pixie-16's entry-point convention only.
	if p, ok := tgt.(*pixie16.Target); ok && p.Opts.EntryPointName != "" {
		return asm.EmitELF32(linked, 0, p.Opts.EntryPointName, !tgt.LittleEndian())
	}
	return asm.FlatBinary(linked), nil
}

// dumpParse parses src and prints its AST to out and to a
// <name>.parsed.c sidecar whose contents match out exactly.
func dumpParse(src string, tgt target.Target, out io.Writer) error {
	source, err := readSource(src, tgt)
	if err != nil {
		return err
	}
	interner := ctypes.NewInterner(tgt.WordBytes())
	p := parser.New(source, src, interner)
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(out, e)
		}
		return errors.Errorf("%s: parse failed", src)
	}

	var buf strings.Builder
	printer := ast.NewPrinter(&buf)
	printer.PrintProgram(prog)

	rendered := buf.String()
	if _, err := io.WriteString(out, rendered); err != nil {
		return err
	}

	sidecar := parsedOutputFilename(src)
	return os.WriteFile(sidecar, []byte(rendered), 0644)
}

func readSource(path string, tgt target.Target) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}
	if preproc.NeedsPreprocessing(path) {
		return preproc.PreprocessString(string(data), path, &preproc.Options{
			IncludePaths: flagIncludeDirs,
			TargetName:   tgt.Name(),
			WordBytes:    tgt.WordBytes(),
		})
	}
	return string(data), nil
}

// compileOne preprocesses, parses, and lowers one source file's functions
// and globals into builder.
func compileOne(src string, tgt target.Target, interner *ctypes.Interner, diags *diag.Bag, builder *asm.Builder, pie bool) error {
	source, err := readSource(src, tgt)
	if err != nil {
		return err
	}
	p := parser.New(source, src, interner)
	prog := p.ParseProgram()
	for _, e := range p.Errors() {
		diags.Errorf(diag.KindSyntax, diag.Position{File: src}, "%v", e)
	}
	if diags.HasErrors() {
		return nil
	}

	for _, g := range prog.Globals {
		emitGlobal(builder, g)
	}

	walker := lower.NewWalker(tgt, interner, diags)
	for _, fn := range prog.Funcs {
		if fn.Body == nil {
			continue // declaration only, nothing to lower
		}
		e := &target.Emitter{
			Out:   builder,
			Types: interner,
			PIE:   pie,
			Scope: scope.NewRootScope(tgt.NumRegisters(), fn.Name),
		}
		builder.SelectSection(".text", 1)
		walker.LowerFunction(e, fn)
	}

	builder.SelectSection(".rodata", 1)
	for _, s := range walker.StringLiterals() {
		builder.EmitLabel(s.Label)
		builder.EmitData(append([]byte(s.Value), 0))
	}
	return nil
}

func emitGlobal(builder *asm.Builder, g *ast.GlobalVar) {
	size := 1
	if g.Type != nil && g.Type.Size() > 0 {
		size = g.Type.Size()
	}
	if g.Init == nil {
		builder.SelectSection(".bss", 1)
		builder.EmitLabel(g.Name)
		builder.EmitZero(size)
		return
	}
	builder.SelectSection(".data", 1)
	builder.EmitLabel(g.Name)
	if lit, ok := g.Init.(*ast.IntLit); ok {
		builder.EmitData(intBytes(lit.Value, size))
		return
	}
	builder.EmitZero(size)
}

func intBytes(v int64, size int) []byte {
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		out[i] = byte(v >> uint(i*8))
	}
	return out
}

// parsedOutputFilename replaces input's extension (if any) with
// ".parsed.c", per the --dparse sidecar convention.
func parsedOutputFilename(input string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	return base + ".parsed.c"
}
