package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/coralpages/reef/internal/ast"
)

// ParseExpr parses one binding expression into the bounded expression
// AST. The grammar covers literals (strings, numbers, booleans, null,
// arrays), variable references with dotted property access, and binary
// operators with conventional precedence. Nothing else: no calls, no
// assignment, no statements.
func ParseExpr(src string) (ast.Expr, error) {
	ep := &exprParser{input: src}
	expr, err := ep.parseOr()
	if err != nil {
		return nil, err
	}
	ep.skipSpace()
	if ep.pos < len(ep.input) {
		return nil, fmt.Errorf("unexpected %q at offset %d", ep.rest(), ep.pos)
	}
	return expr, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.consumeOp("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.consumeOp("&&") {
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	// Two-char operators first so "<=" is not read as "<".
	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if p.consumeOp(op) {
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &ast.BinaryOp{Op: op, Left: left, Right: right}, nil
		}
	}
	return left, nil
}

func (p *exprParser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.consumeOp("+"):
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryOp{Op: "+", Left: left, Right: right}
		case p.consumeOp("-"):
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryOp{Op: "-", Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.consumeOp("*"):
			op = "*"
		case p.consumeOp("/"):
			op = "/"
		case p.consumeOp("%"):
			op = "%"
		default:
			return left, nil
		}
		right, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) parsePostfix() (ast.Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if !strings.HasPrefix(p.input[p.pos:], ".") {
			return base, nil
		}
		p.pos++
		name := p.readIdent()
		if name == "" {
			return nil, fmt.Errorf("expected property name after '.' at offset %d", p.pos)
		}
		base = &ast.PropertyAccess{Base: base, Name: name}
	}
}

func (p *exprParser) parsePrimary() (ast.Expr, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of expression")
	}

	ch := p.input[p.pos]

	switch {
	case ch == '(':
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil

	case ch == '[':
		return p.parseArray()

	case ch == '"' || ch == '\'':
		return p.parseString(ch)

	case ch >= '0' && ch <= '9':
		return p.parseNumber()

	case unicode.IsLetter(rune(ch)) || ch == '_':
		ident := p.readIdent()
		switch ident {
		case "true":
			return &ast.Literal{Value: true}, nil
		case "false":
			return &ast.Literal{Value: false}, nil
		case "null":
			return &ast.Literal{Value: nil}, nil
		}
		return &ast.VarRef{Name: ident}, nil
	}

	return nil, fmt.Errorf("unexpected character %q at offset %d", ch, p.pos)
}

func (p *exprParser) parseArray() (ast.Expr, error) {
	p.pos++ // consume '['
	arr := &ast.ArrayLit{}
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == ']' {
		p.pos++
		return arr, nil
	}
	for {
		elem, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		arr.Elems = append(arr.Elems, elem)
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("unterminated array literal")
		}
		switch p.input[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return arr, nil
		default:
			return nil, fmt.Errorf("expected ',' or ']' in array literal at offset %d", p.pos)
		}
	}
}

func (p *exprParser) parseString(quote byte) (ast.Expr, error) {
	p.pos++ // consume opening quote
	var sb strings.Builder
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == quote {
			p.pos++
			return &ast.Literal{Value: sb.String()}, nil
		}
		if ch == '\\' && p.pos+1 < len(p.input) {
			p.pos++
			switch p.input[p.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(p.input[p.pos])
			}
			p.pos++
			continue
		}
		sb.WriteByte(ch)
		p.pos++
	}
	return nil, fmt.Errorf("unterminated string literal")
}

func (p *exprParser) parseNumber() (ast.Expr, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if (ch < '0' || ch > '9') && ch != '.' {
			break
		}
		// A '.' followed by a letter is property access on a number
		// literal, which the grammar does not allow; stop before it.
		if ch == '.' && p.pos+1 < len(p.input) && unicode.IsLetter(rune(p.input[p.pos+1])) {
			break
		}
		p.pos++
	}
	text := p.input[start:p.pos]
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", text)
	}
	return &ast.Literal{Value: value}, nil
}

func (p *exprParser) consumeOp(op string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.input[p.pos:], op) {
		// Reject "<" matching the start of "<=" and similar.
		if len(op) == 1 && p.pos+1 < len(p.input) {
			next := p.input[p.pos+1]
			if (op == "<" || op == ">") && next == '=' {
				return false
			}
		}
		p.pos += len(op)
		return true
	}
	return false
}

func (p *exprParser) readIdent() string {
	start := p.pos
	for p.pos < len(p.input) {
		ch := rune(p.input[p.pos])
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '_' {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) rest() string {
	r := p.input[p.pos:]
	if len(r) > 12 {
		r = r[:12] + "..."
	}
	return r
}
