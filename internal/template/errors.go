package template

import "fmt"

// LexError reports a malformed template, such as an unclosed expression.
type LexError struct {
	Pos Position
	Msg string
}

// NewLexError creates a lex error at pos.
func NewLexError(pos Position, msg string) *LexError {
	return &LexError{Pos: pos, Msg: msg}
}

func (e *LexError) Error() string { return prefix(e.Pos) + e.Msg }

// Position reports where in the file the error occurred.
func (e *LexError) Position() Position { return e.Pos }

// RenderError reports a failed expression evaluation.
type RenderError struct {
	Pos   Position
	Msg   string
	Cause error // underlying Starlark error, if any
}

// WrapRenderError wraps an evaluation failure with its file position.
func WrapRenderError(pos Position, msg string, cause error) *RenderError {
	return &RenderError{Pos: pos, Msg: msg, Cause: cause}
}

func (e *RenderError) Error() string {
	s := prefix(e.Pos) + e.Msg
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

// Position reports where in the file the error occurred.
func (e *RenderError) Position() Position { return e.Pos }

func (e *RenderError) Unwrap() error { return e.Cause }

func prefix(pos Position) string {
	if pos.File == "" {
		return fmt.Sprintf("%d:%d: ", pos.Line, pos.Column)
	}
	return fmt.Sprintf("%s:%d:%d: ", pos.File, pos.Line, pos.Column)
}
