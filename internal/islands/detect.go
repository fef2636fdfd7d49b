// Package islands splits a parsed template into a static skeleton and
// the minimal set of subtrees that require client-side hydration.
//
// The boundary rule: walking each sibling list, fully static subtrees
// are hoisted into the skeleton, containers whose dynamism comes only
// from descendants stay in the skeleton as shells around the recursion,
// and a maximal run of consecutive intrinsically dynamic siblings is
// cut into ONE island. Run grouping is what keeps sibling state tags
// and their consumers correct: <Var/> followed by the <ForEach/> that
// reads it must share a variable store, and an If chain has no meaning
// when split from its ElseIf and Else links. Dynamic subtrees separated
// by static content, or living under different parents, become separate
// islands so each loads and fails in isolation.
package islands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coralpages/reef/internal/ast"
	"github.com/coralpages/reef/internal/props"
)

// Island is one hydration root cut out of the template.
type Island struct {
	// ID is derived from the first node's structural position, so it
	// stays stable across recompiles of unchanged input.
	ID string `json:"id" msgpack:"id"`
	// Component is the canonical tag of the island's first renderable
	// node; the registry loads the component of this name before
	// hydration.
	Component string `json:"component" msgpack:"component"`
	// Nodes is the island's sibling run in document order.
	Nodes []*ast.Node `json:"nodes" msgpack:"nodes"`
	// Path is the child-index path from the document root to the
	// island's first node.
	Path []int `json:"path" msgpack:"path"`
}

// Result is the output of detection: the static skeleton rendered to
// HTML with one mount marker per island, and the islands in document
// order.
type Result struct {
	SkeletonHTML string
	Islands      []Island
}

// Detect walks the document, classifies each subtree, and returns the
// skeleton plus minimal islands. Detection is pure: the same document
// always yields the same result, island order and IDs included. A
// fully static document yields zero islands.
func Detect(doc *ast.Document) *Result {
	d := &detector{dynamic: make(map[*ast.Node]bool)}

	for _, root := range doc.Nodes {
		d.classify(root)
	}

	var sb strings.Builder
	islands := d.emitSiblings(&sb, doc.Nodes, nil, nil)

	return &Result{SkeletonHTML: sb.String(), Islands: islands}
}

type detector struct {
	dynamic map[*ast.Node]bool
}

// classify computes subtree dynamism bottom-up: a node's subtree is
// dynamic if the node itself is or any child subtree is.
func (d *detector) classify(n *ast.Node) bool {
	dyn := n.IsDynamic()
	for _, c := range n.Children {
		if d.classify(c) {
			dyn = true
		}
	}
	d.dynamic[n] = dyn
	return dyn
}

// emitSiblings walks one sibling list, rendering static nodes into the
// skeleton and cutting runs of intrinsically dynamic siblings into
// islands.
func (d *detector) emitSiblings(sb *strings.Builder, nodes []*ast.Node, basePath []int, islands []Island) []Island {
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		path := childPath(basePath, i)

		if n.IsDynamic() {
			group := []*ast.Node{n}
			for i+1 < len(nodes) && nodes[i+1].IsDynamic() {
				i++
				group = append(group, nodes[i])
			}
			island := Island{
				ID:        IslandID(path),
				Component: componentOf(group),
				Nodes:     group,
				Path:      path,
			}
			writeMountMarker(sb, island)
			islands = append(islands, island)
			continue
		}

		if !d.dynamic[n] {
			// Fully static subtree, rendered wholesale.
			renderStatic(sb, n)
			continue
		}

		// Static shell around dynamic descendants.
		openTag(sb, n)
		islands = d.emitSiblings(sb, n.Children, path, islands)
		closeTag(sb, n)
	}
	return islands
}

// componentOf picks the run's loadable component name: the same node
// the prop precomputer treats as the prop source.
func componentOf(group []*ast.Node) string {
	return props.PropSource(group).Tag
}

func childPath(base []int, idx int) []int {
	path := make([]int, 0, len(base)+1)
	path = append(path, base...)
	return append(path, idx)
}

// IslandID derives the stable identifier for a structural path.
func IslandID(path []int) string {
	parts := make([]string, len(path))
	for i, idx := range path {
		parts[i] = strconv.Itoa(idx)
	}
	return "i" + strings.Join(parts, ".")
}

func writeMountMarker(sb *strings.Builder, island Island) {
	fmt.Fprintf(sb, `<div data-reef-island=%q data-reef-component=%q></div>`,
		island.ID, island.Component)
}
