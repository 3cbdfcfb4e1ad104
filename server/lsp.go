// Package server exposes the compiler to editors over the Language Server
// Protocol.
package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/tern/compiler"
	"github.com/chazu/tern/compiler/diag"
	"github.com/chazu/tern/compiler/syntax"
	"github.com/chazu/tern/compiler/types"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "tern-lsp"

var log = commonlog.GetLogger("tern.lsp")

var keywords = []string{
	"as", "break", "const", "continue", "else", "false", "for", "func",
	"if", "import", "new", "return", "true", "var", "while",
}

// document is an open file and the result of its last compilation.
type document struct {
	text   string
	result *compiler.Result
}

// LspServer compiles open documents and answers editor queries from the
// latest compilation.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]*document // URI → document

	options compiler.Options
	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server. opts is the template for every
// compilation; its FileName is replaced by the document URI.
func NewLSP(opts compiler.Options) *LspServer {
	s := &LspServer{
		docs:    make(map[string]*document),
		options: opts,
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("Tern LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	doc := s.update(string(uri), params.TextDocument.Text)
	s.publishDiagnostics(ctx, uri, doc)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			doc := s.update(string(uri), whole.Text)
			s.publishDiagnostics(ctx, uri, doc)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// update recompiles a document and stores the result.
func (s *LspServer) update(uri, text string) *document {
	opts := s.options
	opts.FileName = uri
	doc := &document{text: text, result: compiler.Compile(text, opts)}
	log.Debugf("%s: %d diagnostics", uri, doc.result.Diagnostics.Len())

	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

func (s *LspServer) document(uri protocol.DocumentUri) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[string(uri)]
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}

	prefix := extractPrefix(doc.text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return complete(doc.result, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}

	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return hover(doc.result, word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}

	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	span, ok := definition(doc.result, word)
	if !ok {
		return nil, nil
	}
	return []protocol.Location{{URI: params.TextDocument.URI, Range: toRange(span)}}, nil
}

// complete offers keywords, global names and library paths that start
// with prefix.
func complete(res *compiler.Result, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if !strings.HasPrefix(label, prefix) {
			return
		}
		item := protocol.CompletionItem{Label: label, Kind: &kind}
		if detail != "" {
			item.Detail = &detail
		}
		items = append(items, item)
	}

	for _, kw := range keywords {
		add(kw, protocol.CompletionItemKindKeyword, "")
	}
	if res.Globals != nil {
		names := res.Globals.Names()
		sort.Strings(names)
		for _, name := range names {
			sym := res.Globals.LookupLocal(name)
			kind := protocol.CompletionItemKindVariable
			if sym.Kind == types.SymGroup {
				kind = protocol.CompletionItemKindFunction
			}
			add(name, kind, describe(res.Registry, sym))
		}
	}
	if res.Library != nil {
		for _, path := range res.Library.Paths() {
			add(path, protocol.CompletionItemKindModule, "")
		}
	}
	return items
}

// hover shows the declaration of a global symbol.
func hover(res *compiler.Result, word string) *protocol.Hover {
	if res.Globals == nil {
		return nil
	}
	sym := res.Globals.LookupLocal(word)
	if sym == nil {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: "```tern\n" + describe(res.Registry, sym) + "\n```",
		},
	}
}

// describe renders a symbol as it would be declared.
func describe(reg *types.Registry, sym *types.Symbol) string {
	switch sym.Kind {
	case types.SymGroup:
		members := reg.Members(sym.Type)
		lines := make([]string, len(members))
		for i, c := range members {
			lines[i] = "func " + reg.FullName(c)
		}
		return strings.Join(lines, "\n")
	case types.SymField:
		return fmt.Sprintf("import %s: %s", sym.Path, reg.Name(sym.Type))
	default:
		keyword := "var"
		if sym.Readonly {
			keyword = "const"
		}
		return fmt.Sprintf("%s %s: %s", keyword, sym.Name, reg.Name(sym.Type))
	}
}

// definition finds the declaration of a top-level function or global.
func definition(res *compiler.Result, word string) (syntax.Span, bool) {
	if res.File == nil {
		return syntax.Span{}, false
	}
	for _, fn := range res.File.Funcs {
		if fn.Name == word {
			return fn.Span(), true
		}
	}
	for _, g := range res.File.Globals {
		if g.Name == word {
			return g.Span(), true
		}
	}
	return syntax.Span{}, false
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, doc *document) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: toDiagnostics(doc.result.Diagnostics),
	})
}

func toDiagnostics(bag *diag.Bag) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	source := lspName
	for _, d := range bag.Items() {
		severity := protocol.DiagnosticSeverityError
		if d.Severity == diag.Warning {
			severity = protocol.DiagnosticSeverityWarning
		}
		var rng protocol.Range
		if d.Span != nil {
			rng = toRange(*d.Span)
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    rng,
			Severity: &severity,
			Source:   &source,
			Message:  fmt.Sprintf("%s [%s]", d.Message, d.Code),
		})
	}
	return diagnostics
}

// toRange converts a 1-based source span to a 0-based LSP range.
func toRange(span syntax.Span) protocol.Range {
	return protocol.Range{
		Start: toPosition(span.Start),
		End:   toPosition(span.End),
	}
}

func toPosition(p syntax.Position) protocol.Position {
	line, col := p.Line-1, p.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

// --- Text extraction helpers ---

// extractPrefix returns the word fragment before the cursor for completion.
// Dots are included so qualified library paths complete as a whole.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 {
		ch := rune(line[start-1])
		if isIdentRune(ch) || ch == '.' {
			start--
		} else {
			break
		}
	}

	if start == col {
		return ""
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Find start
	start := col
	for start > 0 && isIdentRune(rune(line[start-1])) {
		start--
	}

	// Find end
	end := col
	for end < len(line) && isIdentRune(rune(line[end])) {
		end++
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func isIdentRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

func boolPtr(b bool) *bool {
	return &b
}
