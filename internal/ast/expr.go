package ast

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Expr is a node of the bounded binding-expression language. The set of
// forms is closed: literals (including array literals), variable
// references, dotted property access, and binary operators. There is no
// call syntax and no way to reach outside the variable store.
type Expr interface {
	exprNode()
	// String renders the expression in source form, used for
	// diagnostics and for deterministic descriptor serialization.
	String() string
}

// Literal is a constant scalar: string, float64, bool, or nil.
type Literal struct {
	Value any
}

// ArrayLit is a bracketed list of element expressions.
type ArrayLit struct {
	Elems []Expr
}

// VarRef reads a variable from the enclosing scope chain.
type VarRef struct {
	Name string
}

// PropertyAccess reads a named field of its base value.
type PropertyAccess struct {
	Base Expr
	Name string
}

// BinaryOp applies an arithmetic, comparison, or logical operator.
type BinaryOp struct {
	Op    string
	Left  Expr
	Right Expr
}

func (*Literal) exprNode()        {}
func (*ArrayLit) exprNode()       {}
func (*VarRef) exprNode()         {}
func (*PropertyAccess) exprNode() {}
func (*BinaryOp) exprNode()       {}

func (e *Literal) String() string {
	switch v := e.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (e *ArrayLit) String() string {
	parts := make([]string, len(e.Elems))
	for i, el := range e.Elems {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (e *VarRef) String() string { return e.Name }

func (e *PropertyAccess) String() string {
	return e.Base.String() + "." + e.Name
}

func (e *BinaryOp) String() string {
	return e.Left.String() + " " + e.Op + " " + e.Right.String()
}

// FreeVars returns the sorted set of variable names the expression
// reads. An expression with no free variables is a compile-time
// constant.
func FreeVars(e Expr) []string {
	set := map[string]struct{}{}
	collectFreeVars(e, set)
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectFreeVars(e Expr, set map[string]struct{}) {
	switch v := e.(type) {
	case *Literal:
	case *ArrayLit:
		for _, el := range v.Elems {
			collectFreeVars(el, set)
		}
	case *VarRef:
		set[v.Name] = struct{}{}
	case *PropertyAccess:
		collectFreeVars(v.Base, set)
	case *BinaryOp:
		collectFreeVars(v.Left, set)
		collectFreeVars(v.Right, set)
	}
}
