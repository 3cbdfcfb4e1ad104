package syntax

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Tern source
// ---------------------------------------------------------------------------

// Lexer tokenizes Tern source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // line of the current character (1-based)
	col     int  // column of the current character (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

// Tokenize returns every token of the input, ending with EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	tok := l.scan()
	tok.End = l.position()
	return tok
}

func (l *Lexer) scan() Token {
	if errTok, ok := l.skipWhitespaceAndComments(); !ok {
		return errTok
	}

	pos := l.position()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Literal: "", Pos: pos}

	case l.ch == '"':
		return l.readString(pos)

	case l.ch == '\'':
		return l.readCharacter(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifierOrKeyword(pos)
	}

	if tok, ok := l.readOperator(pos); ok {
		return tok
	}

	ch := l.ch
	l.readChar()
	return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %c", ch), Pos: pos}
}

// operators lists punctuation longest-first so that "<<=" wins over "<<" and "<".
var operators = []struct {
	text string
	typ  TokenType
}{
	{"<<=", TokenShlEq}, {">>=", TokenShrEq},
	{"&&", TokenAndAnd}, {"||", TokenOrOr}, {"==", TokenEq}, {"!=", TokenNotEq},
	{"<=", TokenLessEq}, {">=", TokenGreaterEq}, {"<<", TokenShl}, {">>", TokenShr},
	{"+=", TokenPlusEq}, {"-=", TokenMinusEq}, {"*=", TokenStarEq}, {"/=", TokenSlashEq},
	{"%=", TokenPercentEq}, {"&=", TokenAmpEq}, {"|=", TokenPipeEq}, {"^=", TokenCaretEq},
	{"(", TokenLParen}, {")", TokenRParen}, {"[", TokenLBracket}, {"]", TokenRBracket},
	{"{", TokenLBrace}, {"}", TokenRBrace}, {",", TokenComma}, {";", TokenSemicolon},
	{":", TokenColon}, {".", TokenDot}, {"+", TokenPlus}, {"-", TokenMinus},
	{"*", TokenStar}, {"/", TokenSlash}, {"%", TokenPercent}, {"&", TokenAmp},
	{"|", TokenPipe}, {"^", TokenCaret}, {"~", TokenTilde}, {"!", TokenBang},
	{"<", TokenLess}, {">", TokenGreater}, {"=", TokenAssign},
}

// readOperator reads a punctuation token.
func (l *Lexer) readOperator(pos Position) (Token, bool) {
	rest := l.input[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			for range op.text {
				l.readChar()
			}
			return Token{Type: op.typ, Literal: op.text, Pos: pos}, true
		}
	}
	return Token{}, false
}

// skipWhitespaceAndComments skips whitespace, // line comments and /* */ block
// comments. An unterminated block comment yields an error token.
func (l *Lexer) skipWhitespaceAndComments() (Token, bool) {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			pos := l.position()
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') {
				if l.ch == 0 {
					return Token{Type: TokenError, Literal: "unterminated comment", Pos: pos}, false
				}
				l.readChar()
			}
			l.readChar()
			l.readChar()
			continue
		}

		return Token{}, true
	}
}

// readEscape reads the character after a backslash.
func (l *Lexer) readEscape() (rune, bool) {
	switch l.ch {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\':
		return '\\', true
	case '"':
		return '"', true
	case '\'':
		return '\'', true
	default:
		return 0, false
	}
}

// readString reads a string literal.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // consume opening "

	var sb strings.Builder
	for l.ch != '"' {
		if l.ch == 0 || l.ch == '\n' {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			r, ok := l.readEscape()
			if !ok {
				return Token{Type: TokenError, Literal: fmt.Sprintf("invalid escape: \\%c", l.ch), Pos: pos}
			}
			sb.WriteRune(r)
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing "

	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readCharacter reads a character literal.
func (l *Lexer) readCharacter(pos Position) Token {
	l.readChar() // consume opening '

	ch := l.ch
	switch ch {
	case 0, '\n':
		return Token{Type: TokenError, Literal: "unexpected end of character literal", Pos: pos}
	case '\\':
		l.readChar()
		r, ok := l.readEscape()
		if !ok {
			return Token{Type: TokenError, Literal: fmt.Sprintf("invalid escape: \\%c", l.ch), Pos: pos}
		}
		ch = r
	}
	l.readChar()

	if l.ch != '\'' {
		return Token{Type: TokenError, Literal: "unterminated character literal", Pos: pos}
	}
	l.readChar()

	return Token{Type: TokenCharacter, Literal: string(ch), Pos: pos}
}

// readNumber reads an integer or float literal. Hex (0x) and binary (0b)
// prefixes are integer-only; underscores are allowed as digit separators.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X' || l.peekChar() == 'b' || l.peekChar() == 'B') {
		l.readChar()
		l.readChar()
		digits := 0
		for isHexDigit(l.ch) || l.ch == '_' {
			digits++
			l.readChar()
		}
		if digits == 0 {
			return Token{Type: TokenError, Literal: "malformed number: " + l.input[start:l.pos], Pos: pos}
		}
		return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
	}

	isFloat := false
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			isFloat = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			if !isDigit(l.ch) {
				return Token{Type: TokenError, Literal: "malformed exponent: " + l.input[start:l.pos], Pos: pos}
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	if isFloat {
		return Token{Type: TokenFloat, Literal: l.input[start:l.pos], Pos: pos}
	}
	return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
}

// readIdentifierOrKeyword reads an identifier or reserved word.
func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	ident := l.input[start:l.pos]
	return Token{Type: LookupIdent(ident), Literal: ident, Pos: pos}
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
