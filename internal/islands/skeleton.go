package islands

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/coralpages/reef/internal/ast"
	"github.com/coralpages/reef/internal/props"
)

// elementFor maps vocabulary tags to the HTML element they render as in
// the static skeleton. Tags without an entry render as a div carrying a
// reef-<tag> class so themes can target them.
var elementFor = map[string]string{
	"Text":           "span",
	"Paragraph":      "p",
	"Heading":        "h2",
	"Subheading":     "h3",
	"Title":          "h1",
	"Caption":        "figcaption",
	"Label":          "label",
	"Quote":          "q",
	"Blockquote":     "blockquote",
	"Code":           "code",
	"CodeBlock":      "pre",
	"Preformatted":   "pre",
	"Bold":           "strong",
	"Italic":         "em",
	"Underline":      "u",
	"Strikethrough":  "s",
	"Link":           "a",
	"Anchor":         "a",
	"Image":          "img",
	"Photo":          "img",
	"LineBreak":      "br",
	"HorizontalRule": "hr",
	"Section":        "section",
	"Header":         "header",
	"Footer":         "footer",
	"Sidebar":        "aside",
	"MainContent":    "main",
	"List":           "ul",
	"UnorderedList":  "ul",
	"OrderedList":    "ol",
	"ListItem":       "li",
	"Table":          "table",
	"TableHead":      "thead",
	"TableBody":      "tbody",
	"TableRow":       "tr",
	"TableCell":      "td",
	"TableHeaderCell": "th",
	"Form":           "form",
	"Button":         "button",
	"Details":        "details",
	"Summary":        "summary",
	"Figure":         "figure",
	"FigureCaption":  "figcaption",
}

// voidElements are HTML elements with no closing tag.
var voidElements = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true,
}

// ElementFor returns the HTML element a vocabulary tag renders as and
// whether an explicit mapping exists. Unmapped tags render as div. The
// hydration runtime shares this mapping so island content matches the
// skeleton's markup conventions.
func ElementFor(tag string) (string, bool) {
	elem, ok := elementFor[tag]
	if !ok {
		return "div", false
	}
	return elem, true
}

// IsVoidElement reports whether the HTML element has no closing tag.
func IsVoidElement(elem string) bool { return voidElements[elem] }

// renderStatic renders a fully static subtree into the skeleton.
// Literal attributes pass through escaped; constant bindings are
// folded to their final value here so viewers never pay for them.
func renderStatic(sb *strings.Builder, n *ast.Node) {
	if n.IsText() {
		sb.WriteString(html.EscapeString(n.Text))
		return
	}

	elem := openTag(sb, n)
	if voidElements[elem] {
		return
	}
	if attr, ok := n.Attr("value"); ok && len(n.Children) == 0 {
		value := attr.Raw
		if attr.IsBinding() {
			if folded, fok := props.Fold(attr.Expr); fok {
				value = props.Stringify(folded)
			}
		}
		sb.WriteString(html.EscapeString(value))
	}
	for _, c := range n.Children {
		renderStatic(sb, c)
	}
	closeTag(sb, n)
}

// openTag writes the element open tag with attributes and returns the
// HTML element name used.
func openTag(sb *strings.Builder, n *ast.Node) string {
	elem, mapped := elementFor[n.Tag]
	if !mapped {
		elem = "div"
	}

	sb.WriteByte('<')
	sb.WriteString(elem)
	if !mapped {
		sb.WriteString(` class="reef-`)
		sb.WriteString(strings.ToLower(n.Tag))
		sb.WriteByte('"')
	}

	for _, name := range n.AttrNames() {
		attr := n.Attrs[name]
		value := attr.Raw
		if attr.IsBinding() {
			folded, ok := props.Fold(attr.Expr)
			if !ok {
				// Non-constant bindings never reach the skeleton; the
				// island detector cuts an island above this node.
				continue
			}
			value = props.Stringify(folded)
		}
		sb.WriteByte(' ')
		sb.WriteString(strings.ToLower(name))
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(value))
		sb.WriteByte('"')
	}

	sb.WriteByte('>')
	return elem
}

func closeTag(sb *strings.Builder, n *ast.Node) {
	elem, mapped := elementFor[n.Tag]
	if !mapped {
		elem = "div"
	}
	if voidElements[elem] {
		return
	}
	sb.WriteString("</")
	sb.WriteString(elem)
	sb.WriteByte('>')
}
