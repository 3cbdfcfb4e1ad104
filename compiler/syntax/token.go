package syntax

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Tern lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42, 0xFF, 0b1010
	TokenFloat      // 3.14, 1.5e10
	TokenString     // "hello"
	TokenCharacter  // 'a', '\n'
	TokenIdentifier // foo, Bar

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenSemicolon // ;
	TokenColon     // :
	TokenDot       // .

	// Operators
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenPercent   // %
	TokenAmp       // &
	TokenPipe      // |
	TokenCaret     // ^
	TokenTilde     // ~
	TokenBang      // !
	TokenShl       // <<
	TokenShr       // >>
	TokenAndAnd    // &&
	TokenOrOr      // ||
	TokenEq        // ==
	TokenNotEq     // !=
	TokenLess      // <
	TokenLessEq    // <=
	TokenGreater   // >
	TokenGreaterEq // >=
	TokenAssign    // =
	TokenPlusEq    // +=
	TokenMinusEq   // -=
	TokenStarEq    // *=
	TokenSlashEq   // /=
	TokenPercentEq // %=
	TokenAmpEq     // &=
	TokenPipeEq    // |=
	TokenCaretEq   // ^=
	TokenShlEq     // <<=
	TokenShrEq     // >>=

	// Keywords
	TokenVar
	TokenConst
	TokenFunc
	TokenImport
	TokenIf
	TokenElse
	TokenWhile
	TokenFor
	TokenBreak
	TokenContinue
	TokenReturn
	TokenTrue
	TokenFalse
	TokenNew
	TokenAs
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",
	TokenCharacter:  "CHARACTER",
	TokenIdentifier: "IDENTIFIER",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenComma:      ",",
	TokenSemicolon:  ";",
	TokenColon:      ":",
	TokenDot:        ".",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenAmp:        "&",
	TokenPipe:       "|",
	TokenCaret:      "^",
	TokenTilde:      "~",
	TokenBang:       "!",
	TokenShl:        "<<",
	TokenShr:        ">>",
	TokenAndAnd:     "&&",
	TokenOrOr:       "||",
	TokenEq:         "==",
	TokenNotEq:      "!=",
	TokenLess:       "<",
	TokenLessEq:     "<=",
	TokenGreater:    ">",
	TokenGreaterEq:  ">=",
	TokenAssign:     "=",
	TokenPlusEq:     "+=",
	TokenMinusEq:    "-=",
	TokenStarEq:     "*=",
	TokenSlashEq:    "/=",
	TokenPercentEq:  "%=",
	TokenAmpEq:      "&=",
	TokenPipeEq:     "|=",
	TokenCaretEq:    "^=",
	TokenShlEq:      "<<=",
	TokenShrEq:      ">>=",
	TokenVar:        "var",
	TokenConst:      "const",
	TokenFunc:       "func",
	TokenImport:     "import",
	TokenIf:         "if",
	TokenElse:       "else",
	TokenWhile:      "while",
	TokenFor:        "for",
	TokenBreak:      "break",
	TokenContinue:   "continue",
	TokenReturn:     "return",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenNew:        "new",
	TokenAs:         "as",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
	End     Position // position just past the token
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"var":      TokenVar,
	"const":    TokenConst,
	"func":     TokenFunc,
	"import":   TokenImport,
	"if":       TokenIf,
	"else":     TokenElse,
	"while":    TokenWhile,
	"for":      TokenFor,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"return":   TokenReturn,
	"true":     TokenTrue,
	"false":    TokenFalse,
	"new":      TokenNew,
	"as":       TokenAs,
}

// LookupIdent returns the token type for an identifier,
// checking if it's a reserved word.
func LookupIdent(ident string) TokenType {
	if tok, ok := reservedWords[ident]; ok {
		return tok
	}
	return TokenIdentifier
}

// compoundOps maps a compound assignment token to its underlying binary operator.
var compoundOps = map[TokenType]string{
	TokenPlusEq:    "+",
	TokenMinusEq:   "-",
	TokenStarEq:    "*",
	TokenSlashEq:   "/",
	TokenPercentEq: "%",
	TokenAmpEq:     "&",
	TokenPipeEq:    "|",
	TokenCaretEq:   "^",
	TokenShlEq:     "<<",
	TokenShrEq:     ">>",
}
