// Package parser turns Reef markup source into an ast.Document. It is a
// single-pass recursive descent parser that enforces the closed tag
// vocabulary and batches every syntax error it can recover from, so an
// author sees all problems in one compile instead of one at a time.
package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/coralpages/reef/internal/ast"
	reeferr "github.com/coralpages/reef/internal/errors"
)

// Parser is a recursive descent parser for Reef markup.
type Parser struct {
	input     string
	pos       int
	line      int
	col       int
	collector *reeferr.ErrorCollector
}

// New creates a parser over the given source text.
func New(input string) *Parser {
	return &Parser{
		input:     input,
		pos:       0,
		line:      1,
		col:       1,
		collector: reeferr.NewErrorCollector(),
	}
}

// Parse parses source markup into a document. On failure it returns nil
// and every syntax error encountered; a non-nil document means zero
// errors. Parsing is deterministic and side-effect free.
func Parse(source string) (*ast.Document, []*reeferr.ReefError) {
	p := New(source)
	nodes := p.parseNodes("")

	if p.collector.HasErrors() {
		return nil, p.collector.Errors()
	}

	return &ast.Document{
		Nodes:             nodes,
		VocabularyVersion: ast.VocabularyVersion,
	}, nil
}

// parseNodes parses a sequence of sibling nodes until EOF or the
// closing tag of the named parent.
func (p *Parser) parseNodes(parentTag string) []*ast.Node {
	var nodes []*ast.Node

	for p.pos < len(p.input) {
		if p.peek("</") {
			// Closing tag belongs to the parent.
			if parentTag == "" {
				p.errorHere(reeferr.ErrCodeMismatchedTag, "unexpected closing tag at top level")
				p.skipPast(">")
				continue
			}
			break
		}

		if p.peek("<") {
			if node := p.parseElement(); node != nil {
				nodes = append(nodes, node)
			}
			continue
		}

		if node := p.parseText(); node != nil {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

// parseElement parses one tag, its attributes, and its children.
// Returns nil after recording an error; the parser resynchronizes at
// the next tag so later errors are still reported.
func (p *Parser) parseElement() *ast.Node {
	startLine, startCol := p.line, p.col

	if !p.consume("<") {
		p.errorHere(reeferr.ErrCodeInternalError, "expected <")
		return nil
	}

	tagName := p.parseTagName()
	if tagName == "" {
		p.errorAt(startLine, startCol, reeferr.ErrCodeBadAttribute, "expected tag name after <")
		p.skipPast(">")
		return nil
	}

	info, known := ast.Lookup(tagName)
	if !known {
		p.collector.Add(reeferr.NewUnknownComponentError(tagName).WithLocation(startLine, startCol))
		// Keep parsing the element so nested errors surface too, but
		// drop the node from the tree.
		info = ast.TagInfo{Name: tagName, Category: ast.CategoryDisplay}
	}

	attrs := p.parseAttributes(info.Name, startLine, startCol)

	node := &ast.Node{
		Tag:      info.Name,
		Category: info.Category,
		Attrs:    attrs,
		Span:     ast.Span{Line: startLine, Column: startCol},
	}

	p.skipSpace()
	if p.consume("/>") {
		node.Span.EndLine, node.Span.EndColumn = p.line, p.col
		if !known {
			return nil
		}
		return node
	}

	if !p.consume(">") {
		p.errorAt(startLine, startCol, reeferr.ErrCodeUnclosedTag,
			fmt.Sprintf("tag <%s> is not closed", info.Name))
		p.skipPast(">")
		return nil
	}

	if info.Void {
		p.errorAt(startLine, startCol, reeferr.ErrCodeBadAttribute,
			fmt.Sprintf("<%s> is self-closing and cannot have children", info.Name))
	}

	node.Children = p.parseNodes(info.Name)

	if !p.consume("</") {
		p.errorAt(startLine, startCol, reeferr.ErrCodeUnclosedTag,
			fmt.Sprintf("missing closing tag for <%s>", info.Name))
		return nil
	}

	closing := p.parseTagName()
	if !strings.EqualFold(closing, info.Name) {
		p.errorHere(reeferr.ErrCodeMismatchedTag,
			fmt.Sprintf("mismatched tags: <%s> closed by </%s>", info.Name, closing))
		p.skipPast(">")
		return nil
	}

	p.skipSpace()
	if !p.consume(">") {
		p.errorHere(reeferr.ErrCodeUnclosedTag, "closing tag is not terminated")
		p.skipPast(">")
		return nil
	}

	node.Span.EndLine, node.Span.EndColumn = p.line, p.col
	if !known {
		return nil
	}
	return node
}

// parseAttributes parses name="value" and name={expr} pairs until the
// end of the open tag.
func (p *Parser) parseAttributes(tag string, tagLine, tagCol int) map[string]ast.AttrValue {
	attrs := make(map[string]ast.AttrValue)

	for {
		p.skipSpace()

		if p.pos >= len(p.input) || p.peek(">") || p.peek("/>") {
			break
		}

		attrLine, attrCol := p.line, p.col
		name := p.parseAttrName()
		if name == "" {
			p.errorAt(attrLine, attrCol, reeferr.ErrCodeBadAttribute,
				fmt.Sprintf("malformed attribute in <%s>", tag))
			p.skipPast(">")
			break
		}

		if _, dup := attrs[name]; dup {
			p.errorAt(attrLine, attrCol, reeferr.ErrCodeBadAttribute,
				fmt.Sprintf("duplicate attribute %q in <%s>", name, tag))
		}

		p.skipSpace()
		if !p.consume("=") {
			// Bare attribute, treated as boolean true.
			attrs[name] = ast.AttrValue{Raw: "true"}
			continue
		}
		p.skipSpace()

		switch {
		case p.consume(`"`):
			value := p.readUntil(`"`)
			if !p.consume(`"`) {
				p.errorAt(attrLine, attrCol, reeferr.ErrCodeBadAttribute,
					fmt.Sprintf("unterminated attribute value for %q", name))
				return attrs
			}
			attrs[name] = ast.AttrValue{Raw: value}

		case p.consume("{"):
			src := p.readBalanced('{', '}')
			expr, err := ParseExpr(src)
			if err != nil {
				p.collector.Add(reeferr.NewSyntaxError(reeferr.ErrCodeBadExpression,
					fmt.Sprintf("invalid expression in %s=%q: %v", name, src, err)).
					WithLocation(attrLine, attrCol).WithComponent(tag))
				continue
			}
			attrs[name] = ast.AttrValue{Raw: src, Binding: true, Expr: expr}

		default:
			p.errorAt(attrLine, attrCol, reeferr.ErrCodeBadAttribute,
				fmt.Sprintf("attribute %q value must be quoted or a {binding}", name))
			p.skipPast(">")
			return attrs
		}
	}

	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// parseText parses plain text until the next tag. Whitespace-only runs
// are discarded.
func (p *Parser) parseText() *ast.Node {
	startLine, startCol := p.line, p.col
	start := p.pos

	for p.pos < len(p.input) && !p.peek("<") {
		p.advance()
	}

	content := p.input[start:p.pos]
	if strings.TrimSpace(content) == "" {
		return nil
	}

	return &ast.Node{
		Tag:  ast.TextTag,
		Text: content,
		Span: ast.Span{Line: startLine, Column: startCol, EndLine: p.line, EndColumn: p.col},
	}
}

// Scanner helpers.

func (p *Parser) peek(s string) bool {
	if p.pos+len(s) > len(p.input) {
		return false
	}
	return p.input[p.pos:p.pos+len(s)] == s
}

func (p *Parser) consume(s string) bool {
	if !p.peek(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		p.advance()
	}
	return true
}

func (p *Parser) advance() {
	if p.pos < len(p.input) {
		if p.input[p.pos] == '\n' {
			p.line++
			p.col = 1
		} else {
			p.col++
		}
		p.pos++
	}
}

func (p *Parser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.advance()
	}
}

// skipPast advances past the next occurrence of delim, for error
// resynchronization.
func (p *Parser) skipPast(delim string) {
	for p.pos < len(p.input) && !p.peek(delim) {
		p.advance()
	}
	p.consume(delim)
}

func (p *Parser) readUntil(delim string) string {
	start := p.pos
	for p.pos < len(p.input) && !p.peek(delim) {
		p.advance()
	}
	return p.input[start:p.pos]
}

// readBalanced reads up to the matching close rune, honoring nesting.
// The opening rune has already been consumed.
func (p *Parser) readBalanced(open, close rune) string {
	start := p.pos
	depth := 1
	for p.pos < len(p.input) {
		ch := rune(p.input[p.pos])
		if ch == open {
			depth++
		} else if ch == close {
			depth--
			if depth == 0 {
				s := p.input[start:p.pos]
				p.advance()
				return s
			}
		}
		p.advance()
	}
	return p.input[start:p.pos]
}

func (p *Parser) parseTagName() string {
	start := p.pos
	for p.pos < len(p.input) {
		ch := rune(p.input[p.pos])
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) {
			break
		}
		p.advance()
	}
	return p.input[start:p.pos]
}

func (p *Parser) parseAttrName() string {
	start := p.pos
	for p.pos < len(p.input) {
		ch := rune(p.input[p.pos])
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '-' && ch != '_' {
			break
		}
		p.advance()
	}
	return p.input[start:p.pos]
}

func (p *Parser) errorHere(code, msg string) {
	p.errorAt(p.line, p.col, code, msg)
}

func (p *Parser) errorAt(line, col int, code, msg string) {
	p.collector.Add(reeferr.NewSyntaxError(code, msg).WithLocation(line, col))
}
