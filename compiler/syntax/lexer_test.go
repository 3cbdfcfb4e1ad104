package syntax

import (
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) [ ] { } , ; : . <<= >>= && || == != <= >= << >> += -= = ! ~`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenComma, ","},
		{TokenSemicolon, ";"},
		{TokenColon, ":"},
		{TokenDot, "."},
		{TokenShlEq, "<<="},
		{TokenShrEq, ">>="},
		{TokenAndAnd, "&&"},
		{TokenOrOr, "||"},
		{TokenEq, "=="},
		{TokenNotEq, "!="},
		{TokenLessEq, "<="},
		{TokenGreaterEq, ">="},
		{TokenShl, "<<"},
		{TokenShr, ">>"},
		{TokenPlusEq, "+="},
		{TokenMinusEq, "-="},
		{TokenAssign, "="},
		{TokenBang, "!"},
		{TokenTilde, "~"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		want  string
	}{
		{"42", TokenInteger, "42"},
		{"0", TokenInteger, "0"},
		{"0xFF", TokenInteger, "0xFF"},
		{"0b1010", TokenInteger, "0b1010"},
		{"1_000_000", TokenInteger, "1_000_000"},
		{"3.14", TokenFloat, "3.14"},
		{"1e10", TokenFloat, "1e10"},
		{"1.5e-3", TokenFloat, "1.5e-3"},
		{"2.0E+5", TokenFloat, "2.0E+5"},
		{"0x", TokenError, "malformed number: 0x"},
		{"1e+", TokenError, "malformed exponent: 1e+"},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerMemberAfterInteger(t *testing.T) {
	// "1." is not a float unless a digit follows the dot.
	toks := Tokenize("a[1].b")
	want := []TokenType{TokenIdentifier, TokenLBracket, TokenInteger, TokenRBracket, TokenDot, TokenIdentifier, TokenEOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, typ := range want {
		if toks[i].Type != typ {
			t.Errorf("token[%d] = %v, want %v", i, toks[i].Type, typ)
		}
	}
}

func TestLexerStringsAndChars(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		want  string
	}{
		{`"hello"`, TokenString, "hello"},
		{`""`, TokenString, ""},
		{`"a\nb\t\"c\""`, TokenString, "a\nb\t\"c\""},
		{`"unterminated`, TokenError, "unterminated string"},
		{`"bad \q"`, TokenError, `invalid escape: \q`},
		{`'a'`, TokenCharacter, "a"},
		{`'\n'`, TokenCharacter, "\n"},
		{`'\''`, TokenCharacter, "'"},
		{`'ab'`, TokenError, "unterminated character literal"},
		{`'é'`, TokenCharacter, "é"},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
			continue
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerKeywords(t *testing.T) {
	for word, typ := range reservedWords {
		tok := NewLexer(word).NextToken()
		if tok.Type != typ {
			t.Errorf("Lexer(%q): type = %v, want %v", word, tok.Type, typ)
		}
	}

	for _, ident := range []string{"variable", "_x", "i32", "forever", "main"} {
		tok := NewLexer(ident).NextToken()
		if tok.Type != TokenIdentifier {
			t.Errorf("Lexer(%q): type = %v, want IDENTIFIER", ident, tok.Type)
		}
	}
}

func TestLexerComments(t *testing.T) {
	toks := Tokenize("a // line\n/* block\n comment */ b")
	if len(toks) != 3 {
		t.Fatalf("got %v, want [a b EOF]", toks)
	}
	if toks[0].Literal != "a" || toks[1].Literal != "b" {
		t.Errorf("got %v", toks)
	}

	tok := NewLexer("/* never closed").NextToken()
	if tok.Type != TokenError || tok.Literal != "unterminated comment" {
		t.Errorf("unterminated comment: got %v", tok)
	}
}

func TestLexerPositions(t *testing.T) {
	toks := Tokenize("var x\n  = 1;")
	tests := []struct {
		idx       int
		line, col int
		endCol    int
	}{
		{0, 1, 1, 4}, // var
		{1, 1, 5, 6}, // x
		{2, 2, 3, 4}, // =
		{3, 2, 5, 6}, // 1
		{4, 2, 6, 7}, // ;
	}
	for _, tc := range tests {
		tok := toks[tc.idx]
		if tok.Pos.Line != tc.line || tok.Pos.Column != tc.col {
			t.Errorf("token %v at %d:%d, want %d:%d", tok, tok.Pos.Line, tok.Pos.Column, tc.line, tc.col)
		}
		if tok.End.Column != tc.endCol {
			t.Errorf("token %v ends at column %d, want %d", tok, tok.End.Column, tc.endCol)
		}
	}
}
