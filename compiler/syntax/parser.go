package syntax

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Tern syntax
// ---------------------------------------------------------------------------

// Error is a syntax error with its location.
type Error struct {
	Span    Span
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

// Parser parses Tern source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	prevEnd   Position // end of the most recently consumed token
	errors    []Error
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a complete source file.
func Parse(input string) (*SourceFile, []Error) {
	p := NewParser(input)
	file := p.ParseFile()
	return file, p.Errors()
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.prevEnd = p.curToken.End
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
	for p.peekToken.Type == TokenError {
		p.errors = append(p.errors, Error{
			Span:    MakeSpan(p.peekToken.Pos, p.peekToken.End),
			Message: p.peekToken.Literal,
		})
		p.peekToken = p.lexer.NextToken()
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.describeCurrent())
	return false
}

func (p *Parser) describeCurrent() string {
	switch p.curToken.Type {
	case TokenEOF:
		return "end of file"
	case TokenIdentifier, TokenInteger, TokenFloat:
		return fmt.Sprintf("%q", p.curToken.Literal)
	default:
		return p.curToken.Type.String()
	}
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, Error{
		Span:    MakeSpan(p.curToken.Pos, p.curToken.End),
		Message: fmt.Sprintf(format, args...),
	})
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []Error {
	return p.errors
}

// spanFrom builds a span from start to the end of the last consumed token.
func (p *Parser) spanFrom(start Position) Span {
	return MakeSpan(start, p.prevEnd)
}

// synchronize skips tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenSemicolon) {
			p.nextToken()
			return
		}
		switch p.curToken.Type {
		case TokenRBrace, TokenLBrace, TokenVar, TokenConst, TokenFunc, TokenImport,
			TokenIf, TokenWhile, TokenFor, TokenBreak, TokenContinue, TokenReturn:
			return
		}
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseFile parses imports, globals, functions and top-level statements.
func (p *Parser) ParseFile() *SourceFile {
	start := p.curToken.Pos
	file := &SourceFile{}

	for !p.curTokenIs(TokenEOF) {
		before := p.curToken.Pos.Offset
		switch p.curToken.Type {
		case TokenImport:
			if imp := p.parseImport(); imp != nil {
				file.Imports = append(file.Imports, imp)
			}
		case TokenFunc:
			if fn := p.parseFunc(); fn != nil {
				file.Funcs = append(file.Funcs, fn)
			}
		case TokenVar, TokenConst:
			if decl := p.parseVarDecl(); decl != nil {
				file.Globals = append(file.Globals, decl)
			}
		default:
			if stmt := p.ParseStatement(); stmt != nil {
				file.Statements = append(file.Statements, stmt)
			}
		}
		// Guarantee progress on malformed input
		if p.curToken.Pos.Offset == before && !p.curTokenIs(TokenEOF) {
			p.nextToken()
		}
	}

	file.SpanVal = p.spanFrom(start)
	return file
}

// parseQualifiedName parses IDENT { "." IDENT }.
func (p *Parser) parseQualifiedName() string {
	var parts []string
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected name, got %s", p.describeCurrent())
		return ""
	}
	parts = append(parts, p.curToken.Literal)
	p.nextToken()
	for p.curTokenIs(TokenDot) && p.peekTokenIs(TokenIdentifier) {
		p.nextToken()
		parts = append(parts, p.curToken.Literal)
		p.nextToken()
	}
	return strings.Join(parts, ".")
}

// parseImport parses import path [ "(" types ")" [ ":" type ] ] ";".
func (p *Parser) parseImport() *ImportDecl {
	start := p.curToken.Pos
	p.nextToken() // consume import

	path := p.parseQualifiedName()
	if path == "" {
		p.synchronize()
		return nil
	}
	imp := &ImportDecl{Path: path}

	if p.curTokenIs(TokenLParen) {
		imp.Signature = true
		p.nextToken()
		for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
			t := p.parseType()
			if t == nil {
				p.synchronize()
				return nil
			}
			imp.Params = append(imp.Params, t)
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
		if !p.expect(TokenRParen) {
			p.synchronize()
			return nil
		}
		if p.curTokenIs(TokenColon) {
			p.nextToken()
			imp.Result = p.parseType()
		}
	}

	p.expect(TokenSemicolon)
	imp.SpanVal = p.spanFrom(start)
	return imp
}

// parseFunc parses func name(params) [: type] block.
func (p *Parser) parseFunc() *FuncDecl {
	start := p.curToken.Pos
	p.nextToken() // consume func

	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected function name, got %s", p.describeCurrent())
		p.synchronize()
		return nil
	}
	fn := &FuncDecl{Name: p.curToken.Literal}
	p.nextToken()

	if !p.expect(TokenLParen) {
		p.synchronize()
		return nil
	}
	for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
		param := p.parseParam()
		if param == nil {
			p.synchronize()
			return nil
		}
		fn.Params = append(fn.Params, param)
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	if !p.expect(TokenRParen) {
		p.synchronize()
		return nil
	}

	if p.curTokenIs(TokenColon) {
		p.nextToken()
		fn.Result = p.parseType()
	}

	if !p.curTokenIs(TokenLBrace) {
		p.errorf("expected function body, got %s", p.describeCurrent())
		p.synchronize()
		return nil
	}
	fn.Body = p.parseBlock()
	fn.SpanVal = p.spanFrom(start)
	return fn
}

// parseParam parses name: type.
func (p *Parser) parseParam() *Param {
	start := p.curToken.Pos
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected parameter name, got %s", p.describeCurrent())
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()
	if !p.expect(TokenColon) {
		return nil
	}
	t := p.parseType()
	if t == nil {
		return nil
	}
	return &Param{SpanVal: p.spanFrom(start), Name: name, Type: t}
}

// parseType parses a scalar name followed by [] suffixes.
func (p *Parser) parseType() *TypeRef {
	start := p.curToken.Pos
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected type, got %s", p.describeCurrent())
		return nil
	}
	t := &TypeRef{Name: p.curToken.Literal}
	p.nextToken()
	for p.curTokenIs(TokenLBracket) && p.peekTokenIs(TokenRBracket) {
		p.nextToken()
		p.nextToken()
		t.Rank++
	}
	t.SpanVal = p.spanFrom(start)
	return t
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ParseStatement parses a single statement.
func (p *Parser) ParseStatement() Stmt {
	switch p.curToken.Type {
	case TokenLBrace:
		return p.parseBlock()
	case TokenVar, TokenConst:
		return p.parseVarDecl()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenFor:
		return p.parseFor()
	case TokenBreak:
		start := p.curToken.Pos
		p.nextToken()
		p.expect(TokenSemicolon)
		return &Break{SpanVal: p.spanFrom(start)}
	case TokenContinue:
		start := p.curToken.Pos
		p.nextToken()
		p.expect(TokenSemicolon)
		return &Continue{SpanVal: p.spanFrom(start)}
	case TokenReturn:
		return p.parseReturn()
	case TokenSemicolon:
		p.errorf("empty statement")
		p.nextToken()
		return nil
	}

	start := p.curToken.Pos
	expr := p.ParseExpression()
	if expr == nil {
		p.synchronize()
		return nil
	}
	if !p.expect(TokenSemicolon) {
		p.synchronize()
	}
	return &ExprStmt{SpanVal: p.spanFrom(start), Expr: expr}
}

// parseBlock parses { statements }.
func (p *Parser) parseBlock() *Block {
	start := p.curToken.Pos
	p.nextToken() // consume {

	block := &Block{}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		before := p.curToken.Pos.Offset
		if stmt := p.ParseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if p.curToken.Pos.Offset == before && !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
			p.nextToken()
		}
	}
	p.expect(TokenRBrace)
	block.SpanVal = p.spanFrom(start)
	return block
}

// parseVarDecl parses (var|const) name [: type] [= expr] ;
func (p *Parser) parseVarDecl() *VarDecl {
	start := p.curToken.Pos
	decl := &VarDecl{Const: p.curTokenIs(TokenConst)}
	p.nextToken()

	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected variable name, got %s", p.describeCurrent())
		p.synchronize()
		return nil
	}
	decl.Name = p.curToken.Literal
	p.nextToken()

	if p.curTokenIs(TokenColon) {
		p.nextToken()
		decl.Type = p.parseType()
	}
	if p.curTokenIs(TokenAssign) {
		p.nextToken()
		decl.Init = p.ParseExpression()
	}
	if decl.Type == nil && decl.Init == nil {
		p.errorf("declaration of %q needs a type or an initializer", decl.Name)
	}
	if decl.Const && decl.Init == nil {
		p.errorf("constant %q must be initialized", decl.Name)
	}

	if !p.expect(TokenSemicolon) {
		p.synchronize()
	}
	decl.SpanVal = p.spanFrom(start)
	return decl
}

// parseCondition parses "(" expr ")".
func (p *Parser) parseCondition() Expr {
	if !p.expect(TokenLParen) {
		return nil
	}
	cond := p.ParseExpression()
	p.expect(TokenRParen)
	return cond
}

func (p *Parser) parseIf() Stmt {
	start := p.curToken.Pos
	p.nextToken() // consume if

	cond := p.parseCondition()
	then := p.ParseStatement()
	if cond == nil || then == nil {
		return nil
	}
	stmt := &If{Cond: cond, Then: then}
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		stmt.Else = p.ParseStatement()
	}
	stmt.SpanVal = p.spanFrom(start)
	return stmt
}

func (p *Parser) parseWhile() Stmt {
	start := p.curToken.Pos
	p.nextToken() // consume while

	cond := p.parseCondition()
	body := p.ParseStatement()
	if cond == nil || body == nil {
		return nil
	}
	return &While{SpanVal: p.spanFrom(start), Cond: cond, Body: body}
}

// parseFor parses for ( [init] ; [cond] ; [post] ) body.
func (p *Parser) parseFor() Stmt {
	start := p.curToken.Pos
	p.nextToken() // consume for

	if !p.expect(TokenLParen) {
		p.synchronize()
		return nil
	}

	stmt := &For{}
	switch {
	case p.curTokenIs(TokenVar) || p.curTokenIs(TokenConst):
		if decl := p.parseVarDecl(); decl != nil {
			stmt.Init = decl
		}
	case p.curTokenIs(TokenSemicolon):
		p.nextToken()
	default:
		initStart := p.curToken.Pos
		expr := p.ParseExpression()
		if expr != nil {
			stmt.Init = &ExprStmt{SpanVal: p.spanFrom(initStart), Expr: expr}
		}
		p.expect(TokenSemicolon)
	}

	if !p.curTokenIs(TokenSemicolon) {
		stmt.Cond = p.ParseExpression()
	}
	p.expect(TokenSemicolon)

	if !p.curTokenIs(TokenRParen) {
		stmt.Post = p.ParseExpression()
	}
	if !p.expect(TokenRParen) {
		p.synchronize()
		return nil
	}

	stmt.Body = p.ParseStatement()
	if stmt.Body == nil {
		return nil
	}
	stmt.SpanVal = p.spanFrom(start)
	return stmt
}

func (p *Parser) parseReturn() Stmt {
	start := p.curToken.Pos
	p.nextToken() // consume return

	ret := &Return{}
	if !p.curTokenIs(TokenSemicolon) {
		ret.Value = p.ParseExpression()
	}
	if !p.expect(TokenSemicolon) {
		p.synchronize()
	}
	ret.SpanVal = p.spanFrom(start)
	return ret
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// binaryPrecedence maps binary operator tokens to their binding power.
var binaryPrecedence = map[TokenType]int{
	TokenOrOr:      1,
	TokenAndAnd:    2,
	TokenPipe:      3,
	TokenCaret:     4,
	TokenAmp:       5,
	TokenEq:        6,
	TokenNotEq:     6,
	TokenLess:      7,
	TokenLessEq:    7,
	TokenGreater:   7,
	TokenGreaterEq: 7,
	TokenShl:       8,
	TokenShr:       8,
	TokenPlus:      9,
	TokenMinus:     9,
	TokenStar:      10,
	TokenSlash:     10,
	TokenPercent:   10,
}

// ParseExpression parses a full expression including assignment.
func (p *Parser) ParseExpression() Expr {
	return p.parseAssignment()
}

// parseAssignment parses right-associative assignment forms.
func (p *Parser) parseAssignment() Expr {
	start := p.curToken.Pos
	left := p.parseBinary(1)
	if left == nil {
		return nil
	}

	op, compound := compoundOps[p.curToken.Type]
	if !compound && !p.curTokenIs(TokenAssign) {
		return left
	}
	p.nextToken()

	value := p.parseAssignment()
	if value == nil {
		return nil
	}
	return &Assignment{SpanVal: p.spanFrom(start), Target: left, Op: op, Value: value}
}

// parseBinary parses binary operators by precedence climbing.
func (p *Parser) parseBinary(minPrec int) Expr {
	start := p.curToken.Pos
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	for {
		prec, ok := binaryPrecedence[p.curToken.Type]
		if !ok || prec < minPrec {
			return left
		}
		op := p.curToken.Literal
		p.nextToken()
		right := p.parseBinary(prec + 1)
		if right == nil {
			return nil
		}
		left = &Binary{SpanVal: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
}

// parseUnary parses prefix operators.
func (p *Parser) parseUnary() Expr {
	switch p.curToken.Type {
	case TokenMinus, TokenPlus, TokenBang, TokenTilde:
		start := p.curToken.Pos
		op := p.curToken.Literal
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &Unary{SpanVal: p.spanFrom(start), Op: op, Operand: operand}
	}
	return p.parsePostfix()
}

// parsePostfix parses calls, indexing, member access and casts.
func (p *Parser) parsePostfix() Expr {
	start := p.curToken.Pos
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}

	for {
		switch p.curToken.Type {
		case TokenLParen:
			p.nextToken()
			var args []Expr
			for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
				arg := p.ParseExpression()
				if arg == nil {
					return nil
				}
				args = append(args, arg)
				if !p.curTokenIs(TokenComma) {
					break
				}
				p.nextToken()
			}
			if !p.expect(TokenRParen) {
				return nil
			}
			expr = &Call{SpanVal: p.spanFrom(start), Callee: expr, Args: args}

		case TokenLBracket:
			p.nextToken()
			index := p.ParseExpression()
			if index == nil || !p.expect(TokenRBracket) {
				return nil
			}
			expr = &Index{SpanVal: p.spanFrom(start), Target: expr, Index: index}

		case TokenDot:
			p.nextToken()
			if !p.curTokenIs(TokenIdentifier) {
				p.errorf("expected member name, got %s", p.describeCurrent())
				return nil
			}
			name := p.curToken.Literal
			p.nextToken()
			expr = &Member{SpanVal: p.spanFrom(start), Target: expr, Name: name}

		case TokenAs:
			p.nextToken()
			t := p.parseType()
			if t == nil {
				return nil
			}
			expr = &Cast{SpanVal: p.spanFrom(start), Operand: expr, Type: t}

		default:
			return expr
		}
	}
}

// parsePrimary parses literals, names, new-array and parenthesized expressions.
func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	start := tok.Pos

	switch tok.Type {
	case TokenInteger:
		p.nextToken()
		v, err := strconv.ParseUint(strings.ReplaceAll(tok.Literal, "_", ""), 0, 64)
		if err != nil {
			p.errors = append(p.errors, Error{Span: MakeSpan(tok.Pos, tok.End), Message: fmt.Sprintf("invalid integer literal %s", tok.Literal)})
		}
		return &IntLiteral{SpanVal: p.spanFrom(start), Value: v}

	case TokenFloat:
		p.nextToken()
		v, err := strconv.ParseFloat(strings.ReplaceAll(tok.Literal, "_", ""), 64)
		if err != nil {
			p.errors = append(p.errors, Error{Span: MakeSpan(tok.Pos, tok.End), Message: fmt.Sprintf("invalid float literal %s", tok.Literal)})
		}
		return &FloatLiteral{SpanVal: p.spanFrom(start), Value: v}

	case TokenString:
		p.nextToken()
		return &StringLiteral{SpanVal: p.spanFrom(start), Value: tok.Literal}

	case TokenCharacter:
		p.nextToken()
		r := []rune(tok.Literal)
		return &CharLiteral{SpanVal: p.spanFrom(start), Value: r[0]}

	case TokenTrue, TokenFalse:
		p.nextToken()
		return &BoolLiteral{SpanVal: p.spanFrom(start), Value: tok.Type == TokenTrue}

	case TokenIdentifier:
		p.nextToken()
		return &Name{SpanVal: p.spanFrom(start), Name: tok.Literal}

	case TokenNew:
		return p.parseNewArray()

	case TokenLParen:
		p.nextToken()
		expr := p.ParseExpression()
		if expr == nil {
			return nil
		}
		if !p.expect(TokenRParen) {
			return nil
		}
		return expr

	default:
		p.errorf("unexpected %s", p.describeCurrent())
		return nil
	}
}

// parseNewArray parses new T[size]{[]}.
func (p *Parser) parseNewArray() Expr {
	start := p.curToken.Pos
	p.nextToken() // consume new

	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected element type, got %s", p.describeCurrent())
		return nil
	}
	elem := &TypeRef{SpanVal: MakeSpan(p.curToken.Pos, p.curToken.End), Name: p.curToken.Literal}
	p.nextToken()

	if !p.expect(TokenLBracket) {
		return nil
	}
	size := p.ParseExpression()
	if size == nil || !p.expect(TokenRBracket) {
		return nil
	}
	for p.curTokenIs(TokenLBracket) && p.peekTokenIs(TokenRBracket) {
		p.nextToken()
		p.nextToken()
		elem.Rank++
	}
	return &NewArray{SpanVal: p.spanFrom(start), Elem: elem, Size: size}
}
