// Package props evaluates island attribute expressions at compile time.
// Sub-expressions whose inputs are compile-time constants are folded
// into precomputed prop values so the runtime reads them directly on
// first paint; expressions that depend on runtime data are kept as
// descriptors (expression source plus dependency list) for the runtime
// to resolve lazily during mount.
package props

import (
	"sort"

	"github.com/coralpages/reef/internal/ast"
)

// Descriptor is a deferred prop: an expression the runtime evaluates
// against the island's variable store during Mounting.
type Descriptor struct {
	// Name is the attribute the resolved value binds to.
	Name string `json:"name" msgpack:"name"`
	// Expr is the expression in source form; the runtime re-parses it.
	Expr string `json:"expr" msgpack:"expr"`
	// DependsOn lists the variables the expression reads, sorted.
	DependsOn []string `json:"depends_on" msgpack:"depends_on"`
}

// Precomputed is the compile-time prop split for one island.
type Precomputed struct {
	// Values holds every constant prop, fully folded.
	Values map[string]any `json:"values,omitempty" msgpack:"values,omitempty"`
	// Pending holds the runtime-dependent descriptors in name order.
	Pending []Descriptor `json:"pending,omitempty" msgpack:"pending,omitempty"`
}

// PropSource picks which node of an island run carries the component
// props: the first display or layout node, falling back to the first
// node for pure control-flow runs.
func PropSource(nodes []*ast.Node) *ast.Node {
	for _, n := range nodes {
		if n.Category == ast.CategoryDisplay || n.Category == ast.CategoryLayout {
			return n
		}
	}
	return nodes[0]
}

// Precompute folds the attributes of an island run's prop source node.
// Literal attributes and bindings with no free variables become Values;
// the rest become Pending descriptors. Output is deterministic: maps
// carry sorted keys through serialization and Pending is sorted by
// name, so precomputing the same AST twice yields byte-identical
// results.
func Precompute(nodes []*ast.Node) Precomputed {
	pre := Precomputed{}
	if len(nodes) == 0 {
		return pre
	}
	root := PropSource(nodes)

	for _, name := range root.AttrNames() {
		attr := root.Attrs[name]

		if !attr.IsBinding() {
			if pre.Values == nil {
				pre.Values = make(map[string]any)
			}
			pre.Values[name] = attr.Raw
			continue
		}

		if attr.Expr != nil {
			if v, ok := Fold(attr.Expr); ok {
				if pre.Values == nil {
					pre.Values = make(map[string]any)
				}
				pre.Values[name] = v
				continue
			}
		}

		deps := []string{}
		if attr.Expr != nil {
			deps = ast.FreeVars(attr.Expr)
		}
		pre.Pending = append(pre.Pending, Descriptor{
			Name:      name,
			Expr:      attr.Raw,
			DependsOn: deps,
		})
	}

	sort.Slice(pre.Pending, func(i, j int) bool {
		return pre.Pending[i].Name < pre.Pending[j].Name
	})

	return pre
}
