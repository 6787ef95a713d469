// Package template renders {{ expr }} expressions embedded in SQL bodies.
// Expressions are Starlark; ref() and source() calls are replaced with opaque
// placeholder tokens and reported to the caller, so resolution can happen
// after the whole project is loaded.
package template

import (
	"strings"
	"unicode/utf8"
)

const (
	exprOpen  = "{{"
	exprClose = "}}"
)

// TokenType classifies a lexed chunk of a model body.
type TokenType int

const (
	TokenText TokenType = iota // raw SQL, passed through untouched
	TokenExpr                  // body of a {{ }} expression
	TokenEOF                   // end of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "text"
	case TokenExpr:
		return "expr"
	case TokenEOF:
		return "eof"
	}
	return "unknown"
}

// Position is a location in a template file, 1-based.
type Position struct {
	File   string
	Line   int
	Column int
}

// Token is one lexed chunk with the position where it began.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

// Lexer splits a model body into raw text and expression tokens.
type Lexer struct {
	input string
	file  string
}

// NewLexer creates a lexer over input; file is used in positions only.
func NewLexer(input, file string) *Lexer {
	return &Lexer{input: input, file: file}
}

// Tokenize splits the whole input. Text between expressions comes back
// byte for byte; expression bodies come back trimmed, without their
// delimiters. The final token is always TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	off := 0
	for off < len(l.input) {
		rel := strings.Index(l.input[off:], exprOpen)
		if rel < 0 {
			tokens = append(tokens, Token{Type: TokenText, Value: l.input[off:], Pos: l.at(off)})
			off = len(l.input)
			break
		}
		if rel > 0 {
			tokens = append(tokens, Token{Type: TokenText, Value: l.input[off : off+rel], Pos: l.at(off)})
		}
		start := off + rel
		body, next, err := l.scanExpr(start)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, Token{Type: TokenExpr, Value: body, Pos: l.at(start)})
		off = next
	}

	tokens = append(tokens, Token{Type: TokenEOF, Pos: l.at(off)})
	return tokens, nil
}

// scanExpr consumes one expression beginning at the opening delimiter and
// returns the trimmed body plus the offset just past the closing one.
// Single braces nest, so a dict literal inside an expression does not
// close it early.
func (l *Lexer) scanExpr(start int) (string, int, error) {
	depth := 0
	for i := start + len(exprOpen); i < len(l.input); i++ {
		switch {
		case depth == 0 && strings.HasPrefix(l.input[i:], exprClose):
			body := l.input[start+len(exprOpen) : i]
			return strings.TrimSpace(body), i + len(exprClose), nil
		case l.input[i] == '{':
			depth++
		case l.input[i] == '}' && depth > 0:
			depth--
		}
	}
	return "", 0, NewLexError(l.at(start), "unclosed expression: missing '}}'")
}

// at converts a byte offset into a 1-based line/column position.
// Columns count runes, not bytes.
func (l *Lexer) at(off int) Position {
	head := l.input[:off]
	line := strings.Count(head, "\n") + 1
	if nl := strings.LastIndexByte(head, '\n'); nl >= 0 {
		head = head[nl+1:]
	}
	return Position{File: l.file, Line: line, Column: utf8.RuneCountInString(head) + 1}
}
