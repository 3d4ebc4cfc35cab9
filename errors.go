// errors.go — the compile-error surface and caret-snippet rendering.
//
// Compilation has three internal failure stages — *LexError, *ParseError and
// *BindError — but exactly one error type crosses the host boundary:
// *CompileError{Line, Col, Msg}. The first error wins and aborts the load;
// no partial script is ever returned.
//
// FormatCompileError renders a readable snippet with a caret pointing at the
// offending column, suitable for logs and editor panes:
//
//	compile error at 3:12: unknown function "sinn"
//
//	   2 | @sample
//	   3 | out = sinn(x);
//	     |       ^
//	   4 | spl0 = out;
package sfx

import (
	"fmt"
	"strings"
)

// CompileError is the single structured error Load returns. Line is 1-based,
// Col is 0-based.
type CompileError struct {
	Line int
	Col  int
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error at %d:%d: %s", e.Line, e.Col+1, e.Msg)
}

// asCompileError folds a stage error into the boundary type. Anything else
// is passed through unchanged.
func asCompileError(err error) error {
	switch e := err.(type) {
	case *LexError:
		return &CompileError{Line: e.Line, Col: e.Col, Msg: e.Msg}
	case *ParseError:
		return &CompileError{Line: e.Line, Col: e.Col, Msg: e.Msg}
	case *BindError:
		return &CompileError{Line: e.Line, Col: e.Col, Msg: e.Msg}
	default:
		return err
	}
}

// FormatCompileError renders err with a two-line context window and a caret
// under the offending column of src (the full original source, header
// included). Non-CompileError values render via Error().
func FormatCompileError(err error, src string) string {
	ce, ok := err.(*CompileError)
	if !ok {
		return err.Error()
	}
	return caretSnippet(src, ce.Error(), ce.Line, ce.Col+1)
}

// caretSnippet builds the snippet. line and col are 1-based and clamped to
// the source bounds so rendering never fails.
func caretSnippet(src, header string, line, col int) string {
	lines := strings.Split(src, "\n")
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	if col < 1 {
		col = 1
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
