// parser.go — recursive-descent parser for SFX effect scripts.
//
// The parser consumes the token stream from lexer.go and produces exactly
// one Program node holding zero or more Section nodes. Section names are
// validated here; @gfx is accepted and parsed for structural completeness
// but is never bound or executed.
//
// Expression grammar, low to high precedence:
//
//	assignment   = += -= *= /= %=      (right-assoc)
//	logical      ||  then  &&
//	equality     == !=
//	relational   <  <=  >  >=
//	additive     +  -
//	multiplicative  *  /  %
//	power        ^                     (right-assoc, binds under unary)
//	unary        -  !  +
//	postfix      call, array index
//	primary      number, string, identifier, ( expr )
//
// Statements are semicolon-terminated; the semicolon may be omitted where
// the next token cannot continue the expression. To keep newline-terminated
// statements unambiguous, a '+' or '-' that starts a new line never
// continues the previous expression — it starts a new statement.
//
// The first syntax error aborts parsing with a *ParseError; no partial AST
// is ever returned.
package sfx

import "fmt"

// ParseError is a syntax failure with a 1-based line and 0-based column.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col+1, e.Msg)
}

var sectionNames = map[string]bool{
	"@init":   true,
	"@slider": true,
	"@sample": true,
	"@block":  true,
	"@gfx":    true,
}

// Parser builds the AST from a scanned token stream.
type Parser struct {
	toks []Token
	pos  int
}

// NewParser wraps a token stream produced by Lexer.Scan.
func NewParser(toks []Token) *Parser {
	return &Parser{toks: toks}
}

// Parse consumes the whole stream and returns the Program node.
func (p *Parser) Parse() (*Node, error) {
	prog := &Node{Kind: NProgram, Line: 1}
	if len(p.toks) > 0 {
		prog.Line = p.toks[0].Line
	}
	for p.cur().Type != EOF {
		if p.cur().Type != SECTION {
			return nil, p.errAt(p.cur(), "statements must appear inside a @section")
		}
		sec, err := p.parseSection()
		if err != nil {
			return nil, err
		}
		prog.Kids = append(prog.Kids, sec)
	}
	return prog, nil
}

// ----- token helpers -----

func (p *Parser) cur() Token { return p.toks[p.pos] }

func (p *Parser) prev() Token {
	if p.pos == 0 {
		return p.toks[0]
	}
	return p.toks[p.pos-1]
}

func (p *Parser) next() Token {
	t := p.toks[p.pos]
	if t.Type != EOF {
		p.pos++
	}
	return t
}

func (p *Parser) check(tt TokenType) bool { return p.cur().Type == tt }

func (p *Parser) accept(tt TokenType) bool {
	if p.check(tt) {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) expect(tt TokenType, what string) (Token, error) {
	if !p.check(tt) {
		return Token{}, p.errAt(p.cur(), "expected "+what)
	}
	return p.next(), nil
}

func (p *Parser) errAt(t Token, msg string) error {
	if t.Type == ILLEGAL {
		msg = fmt.Sprintf("unexpected character %q", t.Lexeme)
	}
	return &ParseError{Line: t.Line, Col: t.Col, Msg: msg}
}

func nodeAt(kind NodeKind, t Token) *Node {
	return &Node{Kind: kind, Line: t.Line, Col: t.Col}
}

// ----- sections & statements -----

func (p *Parser) parseSection() (*Node, error) {
	t := p.next()
	if !sectionNames[t.Lexeme] {
		return nil, p.errAt(t, fmt.Sprintf("unknown section %q", t.Lexeme))
	}
	sec := nodeAt(NSection, t)
	sec.Name = t.Lexeme
	for !p.check(EOF) && !p.check(SECTION) {
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		sec.Kids = append(sec.Kids, st)
	}
	return sec, nil
}

func (p *Parser) parseStatement() (*Node, error) {
	switch p.cur().Type {
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case LCURLY:
		return p.parseBraceBlock()
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.accept(SEMI)
	return expr, nil
}

func (p *Parser) parseIf() (*Node, error) {
	t := p.next() // 'if'
	if _, err := p.expect(LROUND, "'(' after if"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RROUND, "')' after condition"); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	n := nodeAt(NIf, t)
	n.Kids = []*Node{cond, then}
	if p.accept(ELSE) {
		alt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		n.Kids = append(n.Kids, alt)
	}
	return n, nil
}

func (p *Parser) parseWhile() (*Node, error) {
	t := p.next() // 'while'
	if _, err := p.expect(LROUND, "'(' after while"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RROUND, "')' after condition"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	n := nodeAt(NWhile, t)
	n.Kids = []*Node{cond, body}
	return n, nil
}

func (p *Parser) parseBraceBlock() (*Node, error) {
	t := p.next() // '{'
	n := nodeAt(NBlock, t)
	for !p.check(RCURLY) {
		if p.check(EOF) || p.check(SECTION) {
			return nil, p.errAt(p.cur(), "unterminated block, expected '}'")
		}
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		n.Kids = append(n.Kids, st)
	}
	p.next() // '}'
	return n, nil
}

// ----- expressions -----

func (p *Parser) parseExpr() (*Node, error) { return p.parseAssign() }

func isAssignOp(tt TokenType) bool {
	switch tt {
	case ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN, MULT_ASSIGN, DIV_ASSIGN, MOD_ASSIGN:
		return true
	}
	return false
}

func (p *Parser) parseAssign() (*Node, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !isAssignOp(p.cur().Type) {
		return left, nil
	}
	op := p.next()
	if left.Kind != NVar && left.Kind != NIndex {
		return nil, p.errAt(op, "left side of assignment must be a variable or array element")
	}
	right, err := p.parseAssign() // right-assoc: a = b = c
	if err != nil {
		return nil, err
	}
	n := nodeAt(NAssign, op)
	n.Op = op.Type
	n.Kids = []*Node{left, right}
	return n, nil
}

func (p *Parser) parseOr() (*Node, error) {
	return p.parseBinaryLevel(p.parseAnd, OR)
}

func (p *Parser) parseAnd() (*Node, error) {
	return p.parseBinaryLevel(p.parseEquality, AND)
}

func (p *Parser) parseEquality() (*Node, error) {
	return p.parseBinaryLevel(p.parseRelational, EQ, NEQ)
}

func (p *Parser) parseRelational() (*Node, error) {
	return p.parseBinaryLevel(p.parseAdditive, LESS, LESS_EQ, GREATER, GREATER_EQ)
}

func (p *Parser) parseAdditive() (*Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.check(PLUS) || p.check(MINUS) {
		// A sign starting a new line begins a new statement, not a
		// continuation; this is what makes newline termination work.
		if p.cur().Line > p.prev().Line {
			break
		}
		op := p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = binary(op, left, right)
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (*Node, error) {
	return p.parseBinaryLevel(p.parseUnary, MULT, DIV, MOD)
}

func (p *Parser) parseBinaryLevel(sub func() (*Node, error), ops ...TokenType) (*Node, error) {
	left, err := sub()
	if err != nil {
		return nil, err
	}
	for {
		matched := false
		for _, tt := range ops {
			if p.check(tt) {
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
		op := p.next()
		right, err := sub()
		if err != nil {
			return nil, err
		}
		left = binary(op, left, right)
	}
}

func binary(op Token, left, right *Node) *Node {
	n := nodeAt(NBinary, op)
	n.Op = op.Type
	n.Kids = []*Node{left, right}
	return n
}

func (p *Parser) parseUnary() (*Node, error) {
	switch p.cur().Type {
	case MINUS, BANG, PLUS:
		op := p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := nodeAt(NUnary, op)
		n.Op = op.Type
		n.Kids = []*Node{operand}
		return n, nil
	}
	return p.parsePower()
}

func (p *Parser) parsePower() (*Node, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if !p.check(POW) {
		return left, nil
	}
	op := p.next()
	right, err := p.parseUnary() // right-assoc, allows 2^-3
	if err != nil {
		return nil, err
	}
	return binary(op, left, right), nil
}

func (p *Parser) parsePostfix() (*Node, error) {
	t := p.cur()
	switch t.Type {
	case NUMBER:
		p.next()
		n := nodeAt(NNumber, t)
		n.Num = t.Num
		return n, nil

	case STRING:
		p.next()
		n := nodeAt(NString, t)
		n.Str = t.Str
		return n, nil

	case ID:
		p.next()
		if p.accept(LROUND) {
			return p.parseCallArgs(t)
		}
		if p.accept(LSQUARE) {
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RSQUARE, "']' after array index"); err != nil {
				return nil, err
			}
			n := nodeAt(NIndex, t)
			n.Name = t.Lexeme
			n.Kids = []*Node{idx}
			return n, nil
		}
		n := nodeAt(NVar, t)
		n.Name = t.Lexeme
		return n, nil

	case LROUND:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RROUND, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, p.errAt(t, fmt.Sprintf("unexpected token %q", t.Lexeme))
}

func (p *Parser) parseCallArgs(name Token) (*Node, error) {
	n := nodeAt(NCall, name)
	n.Name = name.Lexeme
	if p.accept(RROUND) {
		return n, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Kids = append(n.Kids, arg)
		if p.accept(COMMA) {
			continue
		}
		if _, err := p.expect(RROUND, "')' after arguments"); err != nil {
			return nil, err
		}
		return n, nil
	}
}
