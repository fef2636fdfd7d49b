package props

import (
	"fmt"
	"math"
	"strings"

	"github.com/coralpages/reef/internal/ast"
)

// Resolver supplies variable values during expression evaluation. The
// compile-time folder uses an empty resolver; the hydration runtime
// passes its scope chain.
type Resolver interface {
	Resolve(name string) (any, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (any, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(name string) (any, bool) { return f(name) }

var emptyResolver = ResolverFunc(func(string) (any, bool) { return nil, false })

// Fold statically evaluates an expression with no free variables.
// The second result is false when the expression depends on runtime
// data or evaluation fails.
func Fold(e ast.Expr) (any, bool) {
	if len(ast.FreeVars(e)) > 0 {
		return nil, false
	}
	v, err := Eval(e, emptyResolver)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Eval evaluates an expression against a resolver. Values follow JSON
// conventions: numbers are float64, arrays are []any, objects are
// map[string]any.
func Eval(e ast.Expr, r Resolver) (any, error) {
	switch v := e.(type) {
	case *ast.Literal:
		return v.Value, nil

	case *ast.ArrayLit:
		out := make([]any, len(v.Elems))
		for i, el := range v.Elems {
			val, err := Eval(el, r)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil

	case *ast.VarRef:
		val, ok := r.Resolve(v.Name)
		if !ok {
			return nil, fmt.Errorf("undefined variable %q", v.Name)
		}
		return val, nil

	case *ast.PropertyAccess:
		base, err := Eval(v.Base, r)
		if err != nil {
			return nil, err
		}
		obj, ok := base.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot read property %q of %T", v.Name, base)
		}
		return obj[v.Name], nil

	case *ast.BinaryOp:
		return evalBinary(v, r)
	}

	return nil, fmt.Errorf("unsupported expression %T", e)
}

func evalBinary(op *ast.BinaryOp, r Resolver) (any, error) {
	left, err := Eval(op.Left, r)
	if err != nil {
		return nil, err
	}

	// Short-circuit logical operators before evaluating the right side.
	switch op.Op {
	case "&&":
		if !Truthy(left) {
			return false, nil
		}
		right, err := Eval(op.Right, r)
		if err != nil {
			return nil, err
		}
		return Truthy(right), nil
	case "||":
		if Truthy(left) {
			return true, nil
		}
		right, err := Eval(op.Right, r)
		if err != nil {
			return nil, err
		}
		return Truthy(right), nil
	}

	right, err := Eval(op.Right, r)
	if err != nil {
		return nil, err
	}

	switch op.Op {
	case "+":
		// String concatenation when either side is a string.
		if ls, ok := left.(string); ok {
			return ls + Stringify(right), nil
		}
		if rs, ok := right.(string); ok {
			return Stringify(left) + rs, nil
		}
		return numericOp(op.Op, left, right)
	case "-", "*", "/", "%":
		return numericOp(op.Op, left, right)
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	case "<", "<=", ">", ">=":
		ln, lok := toNumber(left)
		rn, rok := toNumber(right)
		if !lok || !rok {
			return nil, fmt.Errorf("cannot compare %T and %T with %s", left, right, op.Op)
		}
		switch op.Op {
		case "<":
			return ln < rn, nil
		case "<=":
			return ln <= rn, nil
		case ">":
			return ln > rn, nil
		default:
			return ln >= rn, nil
		}
	}

	return nil, fmt.Errorf("unsupported operator %q", op.Op)
}

func numericOp(op string, left, right any) (any, error) {
	ln, lok := toNumber(left)
	rn, rok := toNumber(right)
	if !lok || !rok {
		return nil, fmt.Errorf("operator %q needs numbers, got %T and %T", op, left, right)
	}
	switch op {
	case "+":
		return ln + rn, nil
	case "-":
		return ln - rn, nil
	case "*":
		return ln * rn, nil
	case "/":
		if rn == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return ln / rn, nil
	case "%":
		if rn == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return math.Mod(ln, rn), nil
	}
	return nil, fmt.Errorf("unsupported numeric operator %q", op)
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func looseEqual(a, b any) bool {
	if an, ok := toNumber(a); ok {
		if bn, ok := toNumber(b); ok {
			return an == bn
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// Truthy reports whether a value counts as true in conditions: false,
// nil, zero, "" and empty arrays are falsy, everything else truthy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// Stringify renders a value for text interpolation.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case []any:
		parts := make([]string, len(t))
		for i, el := range t {
			parts[i] = Stringify(el)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprintf("%v", v)
}
