package runtime

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coralpages/reef/internal/ast"
	"github.com/coralpages/reef/internal/props"
)

// hostEffects are actions the runtime cannot perform itself; they are
// forwarded to the embedding host through the OnEffect callback.
var hostEffects = map[string]string{
	"Navigate":     "navigate",
	"OpenModal":    "open-modal",
	"CloseModal":   "close-modal",
	"ScrollTo":     "scroll-to",
	"CopyText":     "copy-text",
	"PlaySound":    "play-sound",
	"StopSound":    "stop-sound",
	"ShowToast":    "show-toast",
	"FocusElement": "focus-element",
}

// execActions runs an action chain to completion against sc. Chains
// share the conditional and loop machinery of the render walker but
// produce no output and register no events.
func (rt *Runtime) execActions(ctx context.Context, is *Island, sc Scope, nodes []*ast.Node) error {
	var discard strings.Builder
	_, err := rt.exec(ctx, is, sc, nodes, &discard, pass{acting: true})
	return err
}

// applyAction executes one imperative action node.
func (rt *Runtime) applyAction(ctx context.Context, is *Island, sc Scope, n *ast.Node) error {
	if effect, ok := hostEffects[n.Tag]; ok {
		args, err := rt.evalAttrs(is, sc, n)
		if err != nil {
			return err
		}
		rt.effect(is.art.ID, effect, args)
		return nil
	}

	switch n.Tag {
	case "Sequence", "Batch":
		// Both run children in order; the runtime already coalesces to
		// one re-render per dispatch, so Batch needs no extra machinery.
		return rt.execActions(ctx, is, sc, n.Children)

	case "Delay":
		after := attrDuration(n, "after", time.Second)
		rt.scheduleDelay(is, sc, n.Children, after)
		return nil

	case "Set":
		value, err := rt.evalActionValue(is, sc, n)
		if err != nil {
			return err
		}
		return is.store.Set(sc, targetOf(n), value)

	case "Increment", "Decrement":
		return rt.adjustNumber(is, sc, n)

	case "Toggle":
		name := targetOf(n)
		cur, ok := is.store.Get(sc, name)
		if !ok {
			return fmt.Errorf("Toggle of undeclared variable %q", name)
		}
		return is.store.Set(sc, name, !props.Truthy(cur))

	case "Reset":
		name := targetOf(n)
		cur, ok := is.store.Get(sc, name)
		if !ok {
			return fmt.Errorf("Reset of undeclared variable %q", name)
		}
		return is.store.Set(sc, name, zeroOf(cur))

	case "Clear":
		return rt.updateList(is, sc, n, func([]any) ([]any, error) {
			return []any{}, nil
		})

	case "Push":
		value, err := rt.evalActionValue(is, sc, n)
		if err != nil {
			return err
		}
		return rt.updateList(is, sc, n, func(list []any) ([]any, error) {
			return append(list, value), nil
		})

	case "Pop":
		return rt.updateList(is, sc, n, func(list []any) ([]any, error) {
			if len(list) == 0 {
				return list, nil
			}
			return list[:len(list)-1], nil
		})

	case "Shift":
		return rt.updateList(is, sc, n, func(list []any) ([]any, error) {
			if len(list) == 0 {
				return list, nil
			}
			return list[1:], nil
		})

	case "Unshift":
		value, err := rt.evalActionValue(is, sc, n)
		if err != nil {
			return err
		}
		return rt.updateList(is, sc, n, func(list []any) ([]any, error) {
			return append([]any{value}, list...), nil
		})

	case "Remove":
		value, err := rt.evalActionValue(is, sc, n)
		if err != nil {
			return err
		}
		want := props.Stringify(value)
		return rt.updateList(is, sc, n, func(list []any) ([]any, error) {
			kept := list[:0:0]
			for _, item := range list {
				if props.Stringify(item) != want {
					kept = append(kept, item)
				}
			}
			return kept, nil
		})

	case "RemoveAt":
		at, err := rt.evalAttr(is, sc, n, "index")
		if err != nil {
			return err
		}
		idx := int(toFloat(at))
		return rt.updateList(is, sc, n, func(list []any) ([]any, error) {
			if idx < 0 || idx >= len(list) {
				return list, nil
			}
			return append(append(list[:0:0], list[:idx]...), list[idx+1:]...), nil
		})

	case "Filter":
		return rt.filterList(is, sc, n)

	case "SortList":
		desc := attrOr(n, "order", "asc") == "desc"
		return rt.updateList(is, sc, n, func(list []any) ([]any, error) {
			sorted := append(list[:0:0], list...)
			sort.SliceStable(sorted, func(i, j int) bool {
				less := listLess(sorted[i], sorted[j])
				if desc {
					return !less && listLess(sorted[j], sorted[i])
				}
				return less
			})
			return sorted, nil
		})

	case "ReverseList":
		return rt.updateList(is, sc, n, func(list []any) ([]any, error) {
			rev := make([]any, len(list))
			for i, item := range list {
				rev[len(list)-1-i] = item
			}
			return rev, nil
		})

	case "Concat":
		other, err := rt.evalAttr(is, sc, n, "with")
		if err != nil {
			return err
		}
		tail, ok := other.([]any)
		if !ok {
			return fmt.Errorf("Concat with is %T, not a list", other)
		}
		return rt.updateList(is, sc, n, func(list []any) ([]any, error) {
			return append(append(list[:0:0], list...), tail...), nil
		})

	case "Append":
		value, err := rt.evalActionValue(is, sc, n)
		if err != nil {
			return err
		}
		name := targetOf(n)
		cur, ok := is.store.Get(sc, name)
		if !ok {
			return fmt.Errorf("Append to undeclared variable %q", name)
		}
		if list, isList := cur.([]any); isList {
			return is.store.Set(sc, name, append(list, value))
		}
		return is.store.Set(sc, name, props.Stringify(cur)+props.Stringify(value))

	default:
		return fmt.Errorf("unsupported action tag %q", n.Tag)
	}
}

// evalActionValue evaluates an action's "value" attribute, coercing
// literal values by shape the same way Var declarations do.
func (rt *Runtime) evalActionValue(is *Island, sc Scope, n *ast.Node) (any, error) {
	value, err := rt.evalAttr(is, sc, n, "value")
	if err != nil {
		return nil, err
	}
	if raw, ok := n.Attr("value"); ok && !raw.IsBinding() {
		value = coerceLiteral("Var", raw.Raw)
	}
	return value, nil
}

// adjustNumber applies Increment and Decrement with an optional "by"
// step, defaulting to 1.
func (rt *Runtime) adjustNumber(is *Island, sc Scope, n *ast.Node) error {
	name := targetOf(n)
	cur, ok := is.store.Get(sc, name)
	if !ok {
		return fmt.Errorf("%s of undeclared variable %q", n.Tag, name)
	}

	step := 1.0
	if _, has := n.Attr("by"); has {
		by, err := rt.evalAttr(is, sc, n, "by")
		if err != nil {
			return err
		}
		step = toFloat(by)
	}
	if n.Tag == "Decrement" {
		step = -step
	}
	return is.store.Set(sc, name, toFloat(cur)+step)
}

// filterList keeps items for which the "where" expression is truthy.
// The expression sees each candidate as the loop item name (default
// "item") layered over the enclosing scope.
func (rt *Runtime) filterList(is *Island, sc Scope, n *ast.Node) error {
	attr, ok := n.Attr("where")
	if !ok || attr.Expr == nil {
		return fmt.Errorf("Filter needs a where binding")
	}
	itemName := attrOr(n, "item", "item")

	return rt.updateList(is, sc, n, func(list []any) ([]any, error) {
		kept := list[:0:0]
		for _, item := range list {
			resolver := props.ResolverFunc(func(name string) (any, bool) {
				if name == itemName {
					return item, true
				}
				return is.store.Get(sc, name)
			})
			v, err := props.Eval(attr.Expr, resolver)
			if err != nil {
				return nil, err
			}
			if props.Truthy(v) {
				kept = append(kept, item)
			}
		}
		return kept, nil
	})
}

// updateList reads the target list variable, applies fn, and writes the
// result back to the declaring frame.
func (rt *Runtime) updateList(is *Island, sc Scope, n *ast.Node, fn func([]any) ([]any, error)) error {
	name := targetOf(n)
	cur, ok := is.store.Get(sc, name)
	if !ok {
		return fmt.Errorf("%s of undeclared variable %q", n.Tag, name)
	}
	list, isList := cur.([]any)
	if !isList {
		return fmt.Errorf("%s target %q is %T, not a list", n.Tag, name, cur)
	}
	next, err := fn(list)
	if err != nil {
		return err
	}
	return is.store.Set(sc, name, next)
}

// targetOf returns the variable an action operates on.
func targetOf(n *ast.Node) string {
	return attrOr(n, "name", attrOr(n, "target", ""))
}

func zeroOf(v any) any {
	switch v.(type) {
	case float64, int:
		return float64(0)
	case bool:
		return false
	case []any:
		return []any{}
	default:
		return ""
	}
}

func listLess(a, b any) bool {
	af, aIsNum := asNumber(a)
	bf, bIsNum := asNumber(b)
	if aIsNum && bIsNum {
		return af < bf
	}
	return props.Stringify(a) < props.Stringify(b)
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}
