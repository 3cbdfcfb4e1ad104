// Package compiler runs the Tern pipeline: parse, bind, lower and, when the
// program is free of errors, generate a module.
package compiler

import (
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/tern/compiler/binder"
	"github.com/chazu/tern/compiler/bound"
	"github.com/chazu/tern/compiler/builtins"
	"github.com/chazu/tern/compiler/codegen"
	"github.com/chazu/tern/compiler/diag"
	"github.com/chazu/tern/compiler/lower"
	"github.com/chazu/tern/compiler/scope"
	"github.com/chazu/tern/compiler/syntax"
	"github.com/chazu/tern/compiler/types"
	"github.com/chazu/tern/vm"
)

var log = commonlog.GetLogger("tern.compiler")

// Options configures one compilation.
type Options struct {
	FileName         string // used for the module name and in logs
	ModuleName       string // defaults to the file name without extension
	WarningsAsErrors bool
}

// Result carries the diagnostics and every intermediate form of one
// compilation. Later forms are nil when an earlier phase stopped the run:
// Bound and Lowered are nil after syntax errors, Module is nil whenever an
// error diagnostic exists.
type Result struct {
	Diagnostics *diag.Bag
	File        *syntax.SourceFile
	Registry    *types.Registry
	Library     *builtins.Library
	Globals     *scope.Scope
	Bound       *bound.Program
	Lowered     *lower.Program
	Module      *vm.Module
}

// OK reports whether the compilation produced a module.
func (r *Result) OK() bool {
	return r.Module != nil
}

// Compile runs the pipeline over one source file.
func Compile(src string, opts Options) *Result {
	res := &Result{Diagnostics: diag.NewBag()}

	file, errs := syntax.Parse(src)
	res.File = file
	for _, e := range errs {
		res.Diagnostics.Errorf(diag.CodeSyntax, e.Span, "%s", e.Message)
	}
	log.Debugf("%s: parsed with %d syntax errors", opts.FileName, len(errs))
	if len(errs) > 0 {
		return res
	}

	res.Registry = types.NewRegistry()
	res.Library = builtins.Load(res.Registry)
	b := binder.New(res.Registry, res.Library, res.Diagnostics)
	res.Bound = b.BindProgram(file)
	res.Globals = b.Global()
	log.Debugf("%s: bound %d functions, %d diagnostics", opts.FileName, len(res.Bound.Functions), res.Diagnostics.Len())

	if opts.WarningsAsErrors {
		res.Diagnostics.PromoteWarnings()
	}

	res.Lowered = lower.Lower(res.Registry, res.Bound)
	if res.Diagnostics.HasErrors() {
		log.Debugf("%s: code generation skipped", opts.FileName)
		return res
	}

	builder := vm.NewModuleBuilder(moduleName(opts))
	codegen.Generate(res.Registry, res.Lowered, builder)
	res.Module = builder.Module()
	log.Debugf("%s: generated %d methods", opts.FileName, len(res.Module.Methods))
	return res
}

func moduleName(opts Options) string {
	if opts.ModuleName != "" {
		return opts.ModuleName
	}
	if opts.FileName == "" {
		return "main"
	}
	base := filepath.Base(opts.FileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
