package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/cfisynth/arch"
	"github.com/wippyai/cfisynth/emit"
	"github.com/wippyai/cfisynth/ginsn"
	"github.com/wippyai/cfisynth/loader"
	"github.com/wippyai/cfisynth/scfi"
)

type options struct {
	inFile   string
	archName string
	format   string
	funcName string
	workers  int
	werror   bool
}

func main() {
	var (
		inFile      = flag.String("in", "", "Path to the YAML program description")
		archName    = flag.String("arch", "", "Architecture override (amd64, arm64)")
		format      = flag.String("format", "text", "Output format: text, listing or dwarf")
		funcName    = flag.String("func", "", "Only synthesize this function")
		workers     = flag.Int("j", 0, "Functions analyzed in parallel (0 = GOMAXPROCS)")
		werror      = flag.Bool("werror", false, "Treat asymmetric restore warnings as errors")
		verbose     = flag.Bool("v", false, "Debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *inFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: scfi -in <prog.yaml> [-arch name] [-format text|listing|dwarf] [-func name]")
		fmt.Fprintln(os.Stderr, "       scfi -in <prog.yaml> -i  (interactive mode)")
		os.Exit(1)
	}

	log := newLogger(*verbose, *interactive)
	defer log.Sync()
	scfi.SetLogger(log)

	opts := options{
		inFile:   *inFile,
		archName: *archName,
		format:   *format,
		funcName: *funcName,
		workers:  *workers,
		werror:   *werror,
	}

	if *interactive {
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ok, err := run(ctx, os.Stdout, log, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

// newLogger builds a development logger on stderr, colored when stderr is a
// terminal. The TUI owns the terminal, so interactive mode logs nothing.
func newLogger(verbose, interactive bool) *zap.Logger {
	if interactive {
		return zap.NewNop()
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// load reads the input and picks the functions to analyze.
func load(opts options) (*loader.Program, []*ginsn.Function, error) {
	var lopts loader.Options
	if opts.archName != "" {
		a, err := arch.Lookup(opts.archName)
		if err != nil {
			return nil, nil, err
		}
		lopts.Arch = a
	}

	prog, err := loader.LoadFile(opts.inFile, lopts)
	if err != nil {
		return nil, nil, err
	}

	fns := prog.Functions
	if opts.funcName != "" {
		fn := prog.Func(opts.funcName)
		if fn == nil {
			return nil, nil, fmt.Errorf("function %q not found in %s", opts.funcName, opts.inFile)
		}
		fns = []*ginsn.Function{fn}
	}
	return prog, fns, nil
}

// run synthesizes the selected functions and writes them to w. It reports
// false when any function failed, or warned under -werror.
func run(ctx context.Context, w io.Writer, log *zap.Logger, opts options) (bool, error) {
	var mode emit.TextMode
	switch opts.format {
	case "text":
		mode = emit.ModeDirectives
	case "listing":
		mode = emit.ModeListing
	case "dwarf":
	default:
		return false, fmt.Errorf("unknown format %q", opts.format)
	}

	prog, fns, err := load(opts)
	if err != nil {
		return false, err
	}

	s, err := scfi.New(scfi.Config{Arch: prog.Arch, Workers: opts.workers})
	if err != nil {
		return false, err
	}

	// Per-function failures are reported below; only cancellation aborts.
	results, _ := s.SynthesizeAll(ctx, fns)
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ok := true
	for i, res := range results {
		if !res.OK() {
			ok = false
			fmt.Fprintf(os.Stderr, "Error: %v\n", res.Err)
			continue
		}
		if opts.werror && len(res.Warnings) > 0 {
			ok = false
			for _, wn := range res.Warnings {
				fmt.Fprintf(os.Stderr, "Error: %s\n", wn.String())
			}
		}

		if opts.format == "dwarf" {
			err = writeDwarf(w, prog.Arch, fns[i])
		} else {
			err = emit.Text(w, prog.Arch, fns[i], mode)
		}
		if err != nil {
			return false, err
		}
	}

	log.Debug("done",
		zap.String("file", prog.File),
		zap.Int("funcs", len(fns)),
		zap.Bool("ok", ok),
	)
	return ok, nil
}

// writeDwarf prints the encoded CFA instructions of fn as hex, starting at
// the address of its first instruction.
func writeDwarf(w io.Writer, a *arch.Arch, fn *ginsn.Function) error {
	dirs, err := emit.Directives(fn)
	if err != nil {
		return err
	}
	var start uint64
	if first := fn.CFG.Root().First(); first != nil {
		start = first.Addr
	}
	data, err := emit.EncodeProgram(a, dirs, start)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s: % x\n", fn.Name, data)
	return err
}
