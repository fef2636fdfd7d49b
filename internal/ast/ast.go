// Package ast defines the parsed representation of Reef page markup:
// the node tree produced by the parser, the small expression language
// allowed in attribute bindings, and the closed tag vocabulary that
// every node must belong to.
//
// The tree is plain data. It carries no behavior beyond classification
// helpers; compilation passes (limits, islands, props) and the hydration
// runtime all consume it read-only.
package ast

import (
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// TextTag is the pseudo-tag used for text nodes. Text nodes have no
// attributes and no children.
const TextTag = "#text"

// Span identifies a region of the original source, 1-based.
type Span struct {
	Line      int `json:"line" msgpack:"line"`
	Column    int `json:"column" msgpack:"column"`
	EndLine   int `json:"end_line,omitempty" msgpack:"end_line,omitempty"`
	EndColumn int `json:"end_column,omitempty" msgpack:"end_column,omitempty"`
}

// AttrValue is an attribute value: either a literal string or a parsed
// binding expression. When Binding is set the attribute was written as
// a {...} binding: Raw holds the binding source and Expr its parsed
// form. Expr is not serialized; artifact decoding re-parses it from Raw
// so persisted templates stay plain data.
type AttrValue struct {
	Raw     string `json:"raw" msgpack:"raw"`
	Binding bool   `json:"binding,omitempty" msgpack:"binding,omitempty"`
	Expr    Expr   `json:"-" msgpack:"-"`
}

// IsBinding reports whether the attribute is a bound expression rather
// than a literal string.
func (v AttrValue) IsBinding() bool { return v.Binding }

// IsConstant reports whether the attribute's value is fully knowable at
// compile time: a literal string, or a binding with no free variables.
func (v AttrValue) IsConstant() bool {
	if !v.Binding || v.Expr == nil {
		return !v.Binding
	}
	return len(FreeVars(v.Expr)) == 0
}

// AttrMap holds a node's attributes by name. It carries a custom
// msgpack encoder: the generic encoder only orders keys of untyped
// string maps, and artifact encoding must be byte-identical for
// identical input in every codec.
type AttrMap map[string]AttrValue

var _ msgpack.CustomEncoder = AttrMap(nil)

// EncodeMsgpack writes the attributes with keys in sorted order.
func (m AttrMap) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(m)); err != nil {
		return err
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := enc.EncodeString(name); err != nil {
			return err
		}
		if err := enc.Encode(m[name]); err != nil {
			return err
		}
	}
	return nil
}

// Node is a single parsed markup node. Text nodes use TextTag and keep
// their content in Text; all other nodes carry a tag from the closed
// vocabulary.
type Node struct {
	Tag      string   `json:"tag" msgpack:"tag"`
	Category Category `json:"category" msgpack:"category"`
	Attrs    AttrMap  `json:"attrs,omitempty" msgpack:"attrs,omitempty"`
	Children []*Node  `json:"children,omitempty" msgpack:"children,omitempty"`
	Text     string   `json:"text,omitempty" msgpack:"text,omitempty"`
	Span     Span     `json:"span" msgpack:"span"`
}

// Document is the root of a parsed template.
type Document struct {
	Nodes []*Node `json:"nodes" msgpack:"nodes"`
	// VocabularyVersion records the tag catalog the document was parsed
	// against, for forward compatibility of persisted artifacts.
	VocabularyVersion string `json:"vocabulary_version" msgpack:"vocabulary_version"`
}

// IsText reports whether the node is a text node.
func (n *Node) IsText() bool { return n.Tag == TextTag }

// Attr returns the named attribute and whether it was present.
func (n *Node) Attr(name string) (AttrValue, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// AttrNames returns the node's attribute names in sorted order. Passes
// that serialize or fold attributes iterate in this order so compilation
// stays deterministic.
func (n *Node) AttrNames() []string {
	if len(n.Attrs) == 0 {
		return nil
	}
	names := make([]string, 0, len(n.Attrs))
	for name := range n.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsDynamic reports whether the node itself requires runtime behavior:
// it belongs to a runtime category, or any attribute reads a variable.
// Descendant dynamism is the island detector's concern, not the node's.
func (n *Node) IsDynamic() bool {
	switch n.Category {
	case CategoryState, CategoryConditional, CategoryLoop, CategoryEvent, CategoryAction:
		return true
	}
	for _, v := range n.Attrs {
		if v.IsBinding() && !v.IsConstant() {
			return true
		}
	}
	return false
}

// Walk visits n and all descendants depth-first, children in order.
// The visitor returning false prunes the subtree below that node.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visit)
	}
}

// CountNodes returns the number of non-text nodes under roots, roots
// included.
func CountNodes(roots []*Node) int {
	count := 0
	for _, root := range roots {
		Walk(root, func(n *Node) bool {
			if !n.IsText() {
				count++
			}
			return true
		})
	}
	return count
}

// NormalizeTag case-folds a tag name for vocabulary lookup. Matching is
// case-insensitive with the catalog holding canonical casing.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
