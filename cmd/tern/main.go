// Tern CLI - compiles, runs and inspects Tern programs
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/tern/compiler"
	"github.com/chazu/tern/compiler/bound"
	"github.com/chazu/tern/compiler/diag"
	"github.com/chazu/tern/compiler/lower"
	"github.com/chazu/tern/manifest"
	"github.com/chazu/tern/server"
	"github.com/chazu/tern/vm"

	_ "github.com/tliron/commonlog/simple"
)

const imageExt = ".ternc"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: tern <command> [options] [file]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  build   compile a source file to a module image\n")
	fmt.Fprintf(os.Stderr, "  run     compile and run a source file, or run an image\n")
	fmt.Fprintf(os.Stderr, "  check   report diagnostics only\n")
	fmt.Fprintf(os.Stderr, "  dump    print the bound tree, lowered form or disassembly\n")
	fmt.Fprintf(os.Stderr, "  lsp     start the language server on stdio\n")
	fmt.Fprintf(os.Stderr, "  repl    start an interactive session\n")
	fmt.Fprintf(os.Stderr, "\nWithout a file, the entry of the nearest %s is used.\n", manifest.FileName)
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  tern run hello.tern\n")
	fmt.Fprintf(os.Stderr, "  tern build -o out.ternc hello.tern\n")
	fmt.Fprintf(os.Stderr, "  tern dump -lowered -asm hello.tern\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var code int
	switch cmd {
	case "build":
		code = cmdBuild(args)
	case "run":
		code = cmdRun(args)
	case "check":
		code = cmdCheck(args)
	case "dump":
		code = cmdDump(args)
	case "lsp":
		code = cmdLSP(args)
	case "repl":
		code = cmdRepl(args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		code = 2
	}
	os.Exit(code)
}

// configureLogging routes commonlog output to stderr.
func configureLogging(verbose bool) {
	verbosity := 0
	if verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
}

// ---------------------------------------------------------------------------
// Project resolution
// ---------------------------------------------------------------------------

// project is the source file to compile and the settings that apply to it.
type project struct {
	source   string
	manifest *manifest.Manifest // nil when the file was given directly
}

func resolveProject(args []string) (*project, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("expected one source file, got %d", len(args))
	}
	if len(args) == 1 {
		dir := filepath.Dir(args[0])
		m, err := manifest.FindAndLoad(dir)
		if err != nil {
			return nil, err
		}
		return &project{source: args[0], manifest: m}, nil
	}

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("no source file given and no %s found", manifest.FileName)
	}
	return &project{source: m.EntryPath(), manifest: m}, nil
}

func (p *project) options(warningsAsErrors bool) compiler.Options {
	opts := compiler.Options{FileName: p.source, WarningsAsErrors: warningsAsErrors}
	if p.manifest != nil {
		opts.WarningsAsErrors = opts.WarningsAsErrors || p.manifest.Build.WarningsAsErrors
		if p.manifest.EntryPath() == absPath(p.source) {
			opts.ModuleName = p.manifest.Project.Name
		}
	}
	return opts
}

func (p *project) output(override string) string {
	switch {
	case override != "":
		return override
	case p.manifest != nil && p.manifest.EntryPath() == absPath(p.source):
		return p.manifest.OutputPath()
	}
	return strings.TrimSuffix(p.source, filepath.Ext(p.source)) + imageExt
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// compileFile reads and compiles a source file, printing its diagnostics.
func compileFile(path string, opts compiler.Options) (*compiler.Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res := compiler.Compile(string(src), opts)
	printDiagnostics(path, res.Diagnostics)
	return res, nil
}

func printDiagnostics(path string, bag *diag.Bag) {
	for _, d := range bag.Items() {
		fmt.Fprintf(os.Stderr, "%s:%s\n", path, d)
	}
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func cmdBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	output := fs.String("o", "", "output image path")
	werror := fs.Bool("W", false, "treat warnings as errors")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	configureLogging(*verbose)

	p, err := resolveProject(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	res, err := compileFile(p.source, p.options(*werror))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if !res.OK() {
		return 1
	}
	if p.manifest != nil {
		dumpForms(res, p.manifest.Dumps("bound"), p.manifest.Dumps("lowered"), p.manifest.Dumps("asm"))
	}

	out := p.output(*output)
	if err := vm.SaveImage(out, res.Module); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *verbose {
		fmt.Printf("Wrote %s (module %s)\n", out, res.Module.ID)
	}
	return 0
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	seed := fs.Int64("seed", 0, "seed for std.math.random (0 uses the manifest or the clock)")
	werror := fs.Bool("W", false, "treat warnings as errors")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	configureLogging(*verbose)

	var (
		mod  *vm.Module
		opts []vm.Option
	)
	if fs.NArg() == 1 && strings.HasSuffix(fs.Arg(0), imageExt) {
		m, err := vm.LoadImage(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		mod = m
	} else {
		p, err := resolveProject(fs.Args())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		res, err := compileFile(p.source, p.options(*werror))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if !res.OK() {
			return 1
		}
		mod = res.Module
		if p.manifest != nil {
			if p.manifest.Run.Seed != nil {
				opts = append(opts, vm.WithSeed(*p.manifest.Run.Seed))
			}
			if p.manifest.Run.MaxDepth > 0 {
				opts = append(opts, vm.WithMaxDepth(p.manifest.Run.MaxDepth))
			}
		}
	}
	if *seed != 0 {
		opts = append(opts, vm.WithSeed(*seed))
	}

	return execute(mod, opts...)
}

// execute runs a module on the process's standard streams.
func execute(mod *vm.Module, opts ...vm.Option) int {
	machine, err := vm.NewMachine(mod, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	code, err := machine.Run()
	if err != nil {
		var rt *vm.RuntimeError
		if errors.As(err, &rt) {
			fmt.Fprintln(os.Stderr, rt)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return code
}

func cmdCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	werror := fs.Bool("W", false, "treat warnings as errors")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	configureLogging(*verbose)

	p, err := resolveProject(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	res, err := compileFile(p.source, p.options(*werror))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if res.Diagnostics.HasErrors() {
		return 1
	}
	return 0
}

func cmdDump(args []string) int {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	showBound := fs.Bool("bound", false, "print the bound tree")
	showLowered := fs.Bool("lowered", false, "print the lowered form")
	showAsm := fs.Bool("asm", false, "print the disassembled module")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	configureLogging(*verbose)

	if !*showBound && !*showLowered && !*showAsm {
		*showAsm = true
	}

	if fs.NArg() == 1 && strings.HasSuffix(fs.Arg(0), imageExt) {
		mod, err := vm.LoadImage(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Print(vm.DisassembleModule(mod))
		return 0
	}

	p, err := resolveProject(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	res, err := compileFile(p.source, p.options(false))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	dumpForms(res, *showBound, *showLowered, *showAsm)
	if res.Diagnostics.HasErrors() {
		return 1
	}
	return 0
}

// dumpForms prints whichever intermediate forms exist.
func dumpForms(res *compiler.Result, showBound, showLowered, showAsm bool) {
	if showBound && res.Bound != nil {
		fmt.Println("; bound")
		fmt.Print(bound.Print(res.Registry, res.Bound))
	}
	if showLowered && res.Lowered != nil {
		fmt.Println("; lowered")
		fmt.Print(lower.Print(res.Registry, res.Lowered))
	}
	if showAsm && res.Module != nil {
		if id, err := vm.ModuleID(res.Module); err == nil {
			res.Module.ID = id
		}
		fmt.Println("; module")
		fmt.Print(vm.DisassembleModule(res.Module))
	}
}

func cmdLSP(args []string) int {
	fs := flag.NewFlagSet("lsp", flag.ContinueOnError)
	werror := fs.Bool("W", false, "treat warnings as errors")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	configureLogging(*verbose)

	srv := server.NewLSP(compiler.Options{WarningsAsErrors: *werror})
	if err := srv.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}
