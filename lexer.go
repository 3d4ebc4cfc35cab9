// lexer.go — tokenizer for SFX effect scripts.
//
// The lexer turns the body of a script (everything from the first @section
// marker onward; the metadata header is handled by header.go) into a flat
// token stream. It tracks 1-based line and 0-based column positions for
// every token so that later stages can produce caret diagnostics.
//
// Token classes:
//   - identifiers and the keyword set (if / else / while)
//   - numeric literals: integer, float, exponent notation, and 0x hex
//   - double-quoted strings with \n \t \r \\ \" escapes
//   - the operator set (+ - * / % ^, compound assignments, comparisons,
//     && || !) and structural punctuation
//   - @section markers (@init, @slider, ... — validated by the parser)
//   - // line comments and /* */ block comments, discarded
//
// Malformed numeric literals and unterminated strings or block comments
// produce a *LexError. Characters the lexer does not recognize become
// ILLEGAL tokens; the parser surfaces those as parse errors rather than
// skipping them silently.
package sfx

import (
	"fmt"
	"strconv"
)

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota
	ILLEGAL

	// Punctuation
	LROUND  // "("
	RROUND  // ")"
	LSQUARE // "["
	RSQUARE // "]"
	LCURLY  // "{"
	RCURLY  // "}"
	SEMI    // ";"
	COMMA   // ","
	COLON   // ":"

	// Operators
	PLUS
	MINUS
	MULT
	DIV
	MOD
	POW          // "^"
	ASSIGN       // "="
	PLUS_ASSIGN  // "+="
	MINUS_ASSIGN // "-="
	MULT_ASSIGN  // "*="
	DIV_ASSIGN   // "/="
	MOD_ASSIGN   // "%="
	EQ           // "=="
	NEQ          // "!="
	LESS
	LESS_EQ
	GREATER
	GREATER_EQ
	AND  // "&&"
	OR   // "||"
	BANG // "!"

	// Literals & identifiers
	ID
	NUMBER
	STRING

	// Section marker: "@" + name, e.g. "@sample"
	SECTION

	// Keywords
	IF
	ELSE
	WHILE
)

// Token is a lexical token. Num holds the parsed value for NUMBER tokens and
// Str the decoded value for STRING tokens.
type Token struct {
	Type   TokenType
	Lexeme string
	Num    float64
	Str    string
	Line   int // 1-based
	Col    int // 0-based
}

var keywords = map[string]TokenType{
	"if":    IF,
	"else":  ELSE,
	"while": WHILE,
}

// Lexer scans an SFX script body into tokens.
type Lexer struct {
	src   string
	start int // start index of current token
	cur   int // current index
	line  int // 1-based
	col   int // 0-based column within line

	tokens []Token

	// precise token start position
	tokStartLine int
	tokStartCol  int
}

// NewLexer creates a lexer for the given source, reporting positions
// starting at line 1.
func NewLexer(src string) *Lexer {
	return NewLexerAt(src, 1)
}

// NewLexerAt creates a lexer whose first line is reported as startLine.
// Load uses this so diagnostics point into the original file even though
// the metadata header has been stripped.
func NewLexerAt(src string, startLine int) *Lexer {
	if startLine < 1 {
		startLine = 1
	}
	return &Lexer{src: src, line: startLine}
}

// ----- errors -----

// LexError is a tokenization failure with a 1-based line and 0-based column.
type LexError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %d:%d: %s", e.Line, e.Col+1, e.Msg)
}

func (l *Lexer) err(msg string) error {
	return &LexError{Line: l.tokStartLine, Col: l.tokStartCol, Msg: msg}
}

// ----- cursor helpers -----

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *Lexer) peekN(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return ch
}

// match consumes the next byte when it equals want.
func (l *Lexer) match(want byte) bool {
	if l.isAtEnd() || l.src[l.cur] != want {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) add(tt TokenType) {
	l.tokens = append(l.tokens, Token{
		Type:   tt,
		Lexeme: l.src[l.start:l.cur],
		Line:   l.tokStartLine,
		Col:    l.tokStartCol,
	})
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
func isAlpha(b byte) bool    { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlphaNum(b byte) bool { return isAlpha(b) || isDigit(b) }

// ----- scanning -----

// Scan tokenizes the whole source and returns the token stream, always
// terminated by an EOF token. The first malformed literal or unterminated
// string/comment aborts the scan with a *LexError.
func (l *Lexer) Scan() ([]Token, error) {
	for {
		if err := l.skipBlanks(); err != nil {
			return nil, err
		}
		l.start = l.cur
		l.tokStartLine = l.line
		l.tokStartCol = l.col
		if l.isAtEnd() {
			l.add(EOF)
			return l.tokens, nil
		}
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}
}

// skipBlanks consumes whitespace and comments. Unterminated block comments
// are an error.
func (l *Lexer) skipBlanks() error {
	for !l.isAtEnd() {
		switch ch := l.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekN(1) == '/':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekN(1) == '*':
			l.tokStartLine = l.line
			l.tokStartCol = l.col
			l.advance() // '/'
			l.advance() // '*'
			closed := false
			for !l.isAtEnd() {
				if l.peek() == '*' && l.peekN(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return l.err("unterminated block comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) scanToken() error {
	ch := l.advance()

	switch ch {
	case '(':
		l.add(LROUND)
	case ')':
		l.add(RROUND)
	case '[':
		l.add(LSQUARE)
	case ']':
		l.add(RSQUARE)
	case '{':
		l.add(LCURLY)
	case '}':
		l.add(RCURLY)
	case ';':
		l.add(SEMI)
	case ',':
		l.add(COMMA)
	case ':':
		l.add(COLON)
	case '^':
		l.add(POW)
	case '+':
		l.addEq(PLUS_ASSIGN, PLUS)
	case '-':
		l.addEq(MINUS_ASSIGN, MINUS)
	case '*':
		l.addEq(MULT_ASSIGN, MULT)
	case '/':
		l.addEq(DIV_ASSIGN, DIV)
	case '%':
		l.addEq(MOD_ASSIGN, MOD)
	case '=':
		l.addEq(EQ, ASSIGN)
	case '!':
		l.addEq(NEQ, BANG)
	case '<':
		l.addEq(LESS_EQ, LESS)
	case '>':
		l.addEq(GREATER_EQ, GREATER)
	case '&':
		if l.match('&') {
			l.add(AND)
		} else {
			l.add(ILLEGAL)
		}
	case '|':
		if l.match('|') {
			l.add(OR)
		} else {
			l.add(ILLEGAL)
		}
	case '"':
		return l.scanString()
	case '@':
		return l.scanSection()
	default:
		switch {
		case isDigit(ch) || (ch == '.' && isDigit(l.peek())):
			return l.scanNumber(ch)
		case isAlpha(ch):
			l.scanIdentifier()
		default:
			l.add(ILLEGAL)
		}
	}
	return nil
}

// addEq emits withEq when the next byte is '=', otherwise plain.
func (l *Lexer) addEq(withEq, plain TokenType) {
	if l.match('=') {
		l.add(withEq)
	} else {
		l.add(plain)
	}
}

func (l *Lexer) scanIdentifier() {
	for !l.isAtEnd() && isAlphaNum(l.peek()) {
		l.advance()
	}
	name := l.src[l.start:l.cur]
	if kw, ok := keywords[name]; ok {
		l.add(kw)
		return
	}
	l.add(ID)
}

// scanSection reads "@name". The parser validates the name against the known
// section set.
func (l *Lexer) scanSection() error {
	if l.isAtEnd() || !isAlpha(l.peek()) {
		return l.err("expected section name after '@'")
	}
	for !l.isAtEnd() && isAlphaNum(l.peek()) {
		l.advance()
	}
	l.add(SECTION)
	return nil
}

// scanNumber reads decimal (with optional fraction and exponent) and 0x hex
// literals. The first byte has already been consumed.
func (l *Lexer) scanNumber(first byte) error {
	if first == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		l.advance() // 'x'
		if !isHex(l.peek()) {
			return l.err("malformed hex literal")
		}
		for !l.isAtEnd() && isHex(l.peek()) {
			l.advance()
		}
		if !l.isAtEnd() && isAlphaNum(l.peek()) {
			return l.err("malformed hex literal")
		}
		v, err := strconv.ParseUint(l.src[l.start+2:l.cur], 16, 64)
		if err != nil {
			return l.err("malformed hex literal")
		}
		l.addNumber(float64(v))
		return nil
	}

	for !l.isAtEnd() && isDigit(l.peek()) {
		l.advance()
	}
	if first != '.' && l.peek() == '.' {
		l.advance()
		for !l.isAtEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if !isDigit(l.peek()) {
			return l.err("malformed exponent")
		}
		for !l.isAtEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}
	if !l.isAtEnd() && isAlpha(l.peek()) {
		return l.err("malformed numeric literal")
	}
	v, err := strconv.ParseFloat(l.src[l.start:l.cur], 64)
	if err != nil {
		return l.err("malformed numeric literal")
	}
	l.addNumber(v)
	return nil
}

func (l *Lexer) addNumber(v float64) {
	l.tokens = append(l.tokens, Token{
		Type:   NUMBER,
		Lexeme: l.src[l.start:l.cur],
		Num:    v,
		Line:   l.tokStartLine,
		Col:    l.tokStartCol,
	})
}

// scanString decodes a double-quoted string literal. The opening quote has
// already been consumed.
func (l *Lexer) scanString() error {
	var out []byte
	for !l.isAtEnd() {
		ch := l.advance()
		switch ch {
		case '"':
			l.tokens = append(l.tokens, Token{
				Type:   STRING,
				Lexeme: l.src[l.start:l.cur],
				Str:    string(out),
				Line:   l.tokStartLine,
				Col:    l.tokStartCol,
			})
			return nil
		case '\\':
			if l.isAtEnd() {
				break
			}
			esc := l.advance()
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '\\':
				out = append(out, '\\')
			case '"':
				out = append(out, '"')
			default:
				out = append(out, esc)
			}
		case '\n':
			return l.err("unterminated string")
		default:
			out = append(out, ch)
		}
	}
	return l.err("unterminated string")
}
