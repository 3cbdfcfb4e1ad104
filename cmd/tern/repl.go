package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/chazu/tern/compiler"
	"github.com/chazu/tern/compiler/lower"
	"github.com/chazu/tern/compiler/syntax"
	"github.com/chazu/tern/vm"
)

const (
	historyFile = ".tern_history"
	promptMain  = "tern> "
	promptCont  = "....> "
)

// session accumulates the declarations entered so far. Every input is
// compiled after them; declarations are kept only when they compile.
type session struct {
	decls []string
}

func cmdRepl(_ []string) int {
	configureLogging(false)
	fmt.Println("Tern REPL (:help for commands, :quit to exit)")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	s := &session{}
	for {
		code, ok := readInput(ln)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if !s.command(trimmed) {
				return 0
			}
			continue
		}
		s.eval(code, os.Stdout)
	}
	return 0
}

// readInput reads lines until brackets balance.
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if openBrackets(b.String()) <= 0 {
			return b.String(), true
		}
	}
}

// openBrackets counts unclosed braces and parentheses.
func openBrackets(src string) int {
	depth := 0
	for _, tok := range syntax.Tokenize(src) {
		switch tok.Type {
		case syntax.TokenLBrace, syntax.TokenLParen:
			depth++
		case syntax.TokenRBrace, syntax.TokenRParen:
			depth--
		}
	}
	return depth
}

// command handles a meta-command; it returns false to quit.
func (s *session) command(cmd string) bool {
	fields := strings.Fields(cmd)
	switch fields[0] {
	case ":quit", ":q":
		return false
	case ":help", ":h", ":?":
		fmt.Println("  :decls          list the declarations kept so far")
		fmt.Println("  :reset          forget all declarations")
		fmt.Println("  :lowered <src>  show the lowered form of an input")
		fmt.Println("  :asm <src>      show the disassembly of an input")
		fmt.Println("  :quit           exit")
	case ":decls":
		for _, d := range s.decls {
			fmt.Println(d)
		}
	case ":reset":
		s.decls = nil
	case ":lowered", ":asm":
		src := strings.TrimSpace(strings.TrimPrefix(cmd, fields[0]))
		res := s.compile(src)
		if res.Lowered == nil {
			return true
		}
		if fields[0] == ":lowered" {
			fmt.Print(lower.Print(res.Registry, res.Lowered))
		} else if res.Module != nil {
			fmt.Print(vm.DisassembleModule(res.Module))
		}
	default:
		fmt.Printf("unknown command %s. Type :help for a list.\n", fields[0])
	}
	return true
}

// compile compiles src after the kept declarations and prints diagnostics.
func (s *session) compile(src string) *compiler.Result {
	full := strings.Join(append(append([]string(nil), s.decls...), src), "\n")
	res := compiler.Compile(full, compiler.Options{FileName: "repl", ModuleName: "repl"})
	for _, d := range res.Diagnostics.Items() {
		fmt.Fprintln(os.Stderr, d)
	}
	return res
}

// eval compiles one input. Pure declarations are kept for later inputs;
// anything else runs as a script.
func (s *session) eval(src string, out io.Writer) {
	file, errs := syntax.Parse(src)
	declOnly := len(errs) == 0 && len(file.Statements) == 0

	res := s.compile(src)
	if !res.OK() {
		return
	}
	if declOnly {
		s.decls = append(s.decls, src)
		return
	}
	if res.Module.Entry < 0 {
		return
	}

	machine, err := vm.NewMachine(res.Module, vm.WithOutput(out))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if code, err := machine.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	} else if code != 0 {
		fmt.Printf("exit %d\n", code)
	}
}
