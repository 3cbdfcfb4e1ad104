// Package diag holds the diagnostics produced by a compilation.
//
// User-facing problems are accumulated in a Bag owned by the compilation.
// Compiler defects are not diagnostics: they panic with an *InternalError.
package diag

import (
	"fmt"
	"strings"

	"github.com/chazu/tern/compiler/syntax"
)

// Severity of a diagnostic.
type Severity uint8

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Code classifies a diagnostic.
type Code uint8

const (
	CodeSyntax Code = iota
	CodeNameResolution
	CodeType
	CodeAssignment
	CodeImport
	CodeFlow
	CodeUnreachable
	CodeUnused
)

var codeNames = [...]string{
	CodeSyntax:         "syntax",
	CodeNameResolution: "name",
	CodeType:           "type",
	CodeAssignment:     "assignment",
	CodeImport:         "import",
	CodeFlow:           "flow",
	CodeUnreachable:    "unreachable",
	CodeUnused:         "unused",
}

func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("code(%d)", c)
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Span     *syntax.Span // nil when there is no source location
}

func (d Diagnostic) String() string {
	if d.Span == nil {
		return fmt.Sprintf("%s[%s]: %s", d.Severity, d.Code, d.Message)
	}
	pos := d.Span.Start
	return fmt.Sprintf("%d:%d: %s[%s]: %s", pos.Line, pos.Column, d.Severity, d.Code, d.Message)
}

// Bag collects diagnostics in report order.
type Bag struct {
	items []Diagnostic
}

// NewBag creates an empty collector.
func NewBag() *Bag {
	return &Bag{}
}

// Report appends a diagnostic.
func (b *Bag) Report(d Diagnostic) {
	b.items = append(b.items, d)
}

// Errorf records an error at span.
func (b *Bag) Errorf(code Code, span syntax.Span, format string, args ...interface{}) {
	s := span
	b.Report(Diagnostic{Severity: Error, Code: code, Message: fmt.Sprintf(format, args...), Span: &s})
}

// Warnf records a warning at span.
func (b *Bag) Warnf(code Code, span syntax.Span, format string, args ...interface{}) {
	s := span
	b.Report(Diagnostic{Severity: Warning, Code: code, Message: fmt.Sprintf(format, args...), Span: &s})
}

// Items returns the diagnostics in report order.
func (b *Bag) Items() []Diagnostic {
	return append([]Diagnostic(nil), b.items...)
}

// Len returns the number of diagnostics.
func (b *Bag) Len() int {
	return len(b.items)
}

// HasErrors reports whether any diagnostic has error severity.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Count returns how many diagnostics carry the given code.
func (b *Bag) Count(code Code) int {
	n := 0
	for _, d := range b.items {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Errors returns only the error-severity diagnostics.
func (b *Bag) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range b.items {
		if d.Severity == Error {
			out = append(out, d)
		}
	}
	return out
}

// PromoteWarnings turns every warning into an error.
func (b *Bag) PromoteWarnings() {
	for i := range b.items {
		b.items[i].Severity = Error
	}
}

// String renders all diagnostics, one per line.
func (b *Bag) String() string {
	var sb strings.Builder
	for i, d := range b.items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(d.String())
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Internal defects
// ---------------------------------------------------------------------------

// InternalError is a compiler defect. It is raised with panic and never
// recorded in a Bag; continuing would produce a silently wrong module.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return "internal compiler error: " + e.Message
}

// Internalf builds an InternalError for use with panic.
func Internalf(format string, args ...interface{}) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}
