package runtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/coralpages/reef/internal/ast"
	"github.com/coralpages/reef/internal/islands"
	"github.com/coralpages/reef/internal/parser"
	"github.com/coralpages/reef/internal/props"
)

// ctl is the loop-control outcome of executing a node list.
type ctl int

const (
	ctlNone ctl = iota
	ctlBreak
	ctlContinue
)

// pass carries the mode of one tree walk. Render passes produce HTML,
// register event bindings, and skip bare actions; action passes execute
// actions, discard display output, and ignore nested event tags.
type pass struct {
	initial bool
	acting  bool
}

// triggerFor maps event tags to their dispatch trigger names.
var triggerFor = map[string]string{
	"OnClick":       "click",
	"OnDoubleClick": "dblclick",
	"OnChange":      "change",
	"OnInput":       "input",
	"OnSubmit":      "submit",
	"OnHover":       "hover",
	"OnHoverEnd":    "hoverend",
	"OnFocus":       "focus",
	"OnBlur":        "blur",
	"OnKeyPress":    "keypress",
	"OnKeyDown":     "keydown",
	"OnKeyUp":       "keyup",
	"OnScroll":      "scroll",
	"OnVisible":     "visible",
	"OnHidden":      "hidden",
	"OnResize":      "resize",
	"OnUnmount":     "unmount",
}

// render evaluates an island against its current variable state. The
// initial pass additionally collects OnMount chains; every pass
// re-registers event bindings and reconciles interval timers so
// abandoned conditional branches stop ticking.
func (rt *Runtime) render(ctx context.Context, is *Island, initial bool) (string, error) {
	is.events = nil
	is.visited = make(map[*ast.Node]bool)
	if !initial && is.store != nil {
		is.store.Truncate(is.root)
	}

	resolved := rt.resolveProps(ctx, is)
	p := pass{initial: initial}

	var sb strings.Builder

	if is.comp != nil && len(is.art.Nodes) == 1 && isRenderableCategory(is.art.Nodes[0].Category) {
		// A single renderable root hands rendering to its registered
		// component; control-flow runs go through the generic walker.
		var children strings.Builder
		if _, err := rt.exec(ctx, is, is.root, is.art.Nodes[0].Children, &children, p); err != nil {
			return "", err
		}
		sb.WriteString(is.comp.Render(resolved, children.String()))
	} else {
		if _, err := rt.exec(ctx, is, is.root, is.art.Nodes, &sb, p); err != nil {
			return "", err
		}
	}

	rt.stopStaleTimers(is)
	return sb.String(), nil
}

func isRenderableCategory(c ast.Category) bool {
	return c == ast.CategoryDisplay || c == ast.CategoryLayout
}

// resolveProps merges precomputed constant props with the island's
// pending descriptors, evaluated against the current store. A
// descriptor that fails to resolve yields nil and a diagnostic rather
// than failing the mount.
func (rt *Runtime) resolveProps(ctx context.Context, is *Island) map[string]any {
	pre := is.art.Props
	resolved := make(map[string]any, len(pre.Values)+len(pre.Pending))
	for k, v := range pre.Values {
		resolved[k] = v
	}
	for _, desc := range pre.Pending {
		expr := exprForDescriptor(is, desc.Name)
		if expr == nil {
			resolved[desc.Name] = nil
			continue
		}
		v, err := props.Eval(expr, rt.resolver(is, is.root))
		if err != nil {
			rt.logger.Warn(ctx, err, "prop descriptor did not resolve",
				"island", is.art.ID, "prop", desc.Name)
			resolved[desc.Name] = nil
			continue
		}
		resolved[desc.Name] = v
	}
	return resolved
}

// exprForDescriptor finds the parsed expression backing a pending prop
// on the run's prop source node.
func exprForDescriptor(is *Island, name string) ast.Expr {
	attr, ok := props.PropSource(is.art.Nodes).Attr(name)
	if !ok || attr.Expr == nil {
		return nil
	}
	return attr.Expr
}

func (rt *Runtime) resolver(is *Island, sc Scope) props.Resolver {
	return props.ResolverFunc(func(name string) (any, bool) {
		return is.store.Get(sc, name)
	})
}

// exec walks a sibling list: declaring variables, evaluating
// conditionals and loops, registering events, applying actions, and
// rendering display content into out, according to the pass mode.
func (rt *Runtime) exec(ctx context.Context, is *Island, sc Scope, nodes []*ast.Node, out *strings.Builder, p pass) (ctl, error) {
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]

		if n.IsText() {
			if !p.acting {
				out.WriteString(html.EscapeString(n.Text))
			}
			continue
		}

		switch n.Category {
		case ast.CategoryState:
			if err := rt.declareVar(is, sc, n); err != nil {
				return ctlNone, err
			}

		case ast.CategoryConditional:
			switch n.Tag {
			case "If":
				chain := []*ast.Node{n}
				for i+1 < len(nodes) && (nodes[i+1].Tag == "ElseIf" || nodes[i+1].Tag == "Else") {
					i++
					chain = append(chain, nodes[i])
				}
				c, err := rt.execIfChain(ctx, is, sc, chain, out, p)
				if c != ctlNone || err != nil {
					return c, err
				}
			case "ElseIf", "Else":
				// Orphaned chain links; without a preceding If they
				// render nothing.
			case "Switch":
				c, err := rt.execSwitch(ctx, is, sc, n, out, p)
				if c != ctlNone || err != nil {
					return c, err
				}
			case "Show", "Unless", "Hide":
				cond, err := rt.evalAttr(is, sc, n, "condition")
				if err != nil {
					return ctlNone, err
				}
				want := props.Truthy(cond)
				if n.Tag != "Show" {
					want = !want
				}
				if want {
					c, err := rt.exec(ctx, is, sc, n.Children, out, p)
					if c != ctlNone || err != nil {
						return c, err
					}
				}
			}

		case ast.CategoryLoop:
			switch n.Tag {
			case "Break":
				return ctlBreak, nil
			case "Continue":
				return ctlContinue, nil
			default:
				if err := rt.execLoop(ctx, is, sc, n, out, p); err != nil {
					return ctlNone, err
				}
			}

		case ast.CategoryEvent:
			if !p.acting {
				rt.registerEvent(is, sc, n, p.initial)
			}

		case ast.CategoryAction:
			// Bare actions in the tree run once, while the island mounts;
			// after that, actions only run from event, timer, and mount
			// chains. Re-render passes must not replay them.
			if p.acting || p.initial {
				if err := rt.applyAction(ctx, is, sc, n); err != nil {
					return ctlNone, err
				}
			}

		default:
			if p.acting {
				continue
			}
			if err := rt.renderElement(ctx, is, sc, n, out, p); err != nil {
				return ctlNone, err
			}
		}
	}
	return ctlNone, nil
}

// execIfChain renders the first branch whose condition holds; at most
// one branch is ever active.
func (rt *Runtime) execIfChain(ctx context.Context, is *Island, sc Scope, chain []*ast.Node, out *strings.Builder, p pass) (ctl, error) {
	for _, branch := range chain {
		if branch.Tag == "Else" {
			return rt.exec(ctx, is, sc, branch.Children, out, p)
		}
		cond, err := rt.evalAttr(is, sc, branch, "condition")
		if err != nil {
			return ctlNone, err
		}
		if props.Truthy(cond) {
			return rt.exec(ctx, is, sc, branch.Children, out, p)
		}
	}
	return ctlNone, nil
}

// execSwitch renders the first Case matching the switch value, or
// Default when none does.
func (rt *Runtime) execSwitch(ctx context.Context, is *Island, sc Scope, n *ast.Node, out *strings.Builder, p pass) (ctl, error) {
	value, err := rt.evalAttr(is, sc, n, "value")
	if err != nil {
		return ctlNone, err
	}

	var deflt *ast.Node
	for _, c := range n.Children {
		switch c.Tag {
		case "Case":
			caseVal, err := rt.evalAttr(is, sc, c, "value")
			if err != nil {
				return ctlNone, err
			}
			if props.Stringify(caseVal) == props.Stringify(value) {
				return rt.exec(ctx, is, sc, c.Children, out, p)
			}
		case "Default":
			deflt = c
		}
	}
	if deflt != nil {
		return rt.exec(ctx, is, sc, deflt.Children, out, p)
	}
	return ctlNone, nil
}

// execLoop iterates ForEach, Repeat, and Range, creating one child
// scope per iteration. Break stops remaining iterations; Continue
// skips the rest of the current body.
func (rt *Runtime) execLoop(ctx context.Context, is *Island, sc Scope, n *ast.Node, out *strings.Builder, p pass) error {
	itemName := attrOr(n, "item", "item")
	indexName := attrOr(n, "index", "index")

	var items []any
	switch n.Tag {
	case "ForEach":
		source, err := rt.evalAttr(is, sc, n, "source")
		if err != nil {
			return err
		}
		// Quoted list literals like source="[1,2,3]" arrive as strings.
		if raw, ok := source.(string); ok {
			if expr, perr := parser.ParseExpr(raw); perr == nil {
				if v, verr := props.Eval(expr, rt.resolver(is, sc)); verr == nil {
					source = v
				}
			}
		}
		list, ok := source.([]any)
		if !ok {
			return fmt.Errorf("ForEach source is %T, not a list", source)
		}
		items = list
	case "Repeat":
		times, err := rt.evalAttr(is, sc, n, "times")
		if err != nil {
			return err
		}
		count := int(toFloat(times))
		items = make([]any, count)
		for i := range items {
			items[i] = float64(i)
		}
	case "Range":
		from, err := rt.evalAttr(is, sc, n, "from")
		if err != nil {
			return err
		}
		to, err := rt.evalAttr(is, sc, n, "to")
		if err != nil {
			return err
		}
		for v := toFloat(from); v <= toFloat(to); v++ {
			items = append(items, v)
		}
	default:
		return fmt.Errorf("unsupported loop tag %q", n.Tag)
	}

	for idx, item := range items {
		// Iteration frames stay live until the next render truncates
		// them; event bindings captured inside the body resolve through
		// them when dispatched.
		iter := is.store.NewScope(sc)
		if err := is.store.Declare(iter, itemName, item); err != nil {
			return err
		}
		if err := is.store.Declare(iter, indexName, float64(idx)); err != nil {
			return err
		}

		c, err := rt.exec(ctx, is, iter, n.Children, out, p)
		if err != nil {
			return err
		}
		if c == ctlBreak {
			break
		}
	}
	return nil
}

// registerEvent records an event binding, starts interval timers, and
// queues mount chains on the initial pass.
func (rt *Runtime) registerEvent(is *Island, sc Scope, n *ast.Node, initial bool) {
	switch n.Tag {
	case "OnMount":
		if initial {
			is.pendingMount = append(is.pendingMount, eventBinding{trigger: "mount", scope: sc, node: n})
		}
	case "OnInterval":
		every := attrDuration(n, "every", time.Second)
		rt.ensureTimer(is, sc, n, every)
	case "OnTimeout":
		if initial {
			after := attrDuration(n, "after", time.Second)
			rt.scheduleDelay(is, sc, n.Children, after)
		}
	default:
		trigger, ok := triggerFor[n.Tag]
		if !ok {
			return
		}
		is.events = append(is.events, eventBinding{trigger: trigger, scope: sc, node: n})
	}
}

// renderElement renders a display or layout node with its attribute
// bindings evaluated against the current scope. A preloaded component
// registered under the tag takes over rendering; otherwise the node
// renders through the shared element mapping.
func (rt *Runtime) renderElement(ctx context.Context, is *Island, sc Scope, n *ast.Node, out *strings.Builder, p pass) error {
	attrs, err := rt.evalAttrs(is, sc, n)
	if err != nil {
		return err
	}

	var children strings.Builder
	if _, err := rt.exec(ctx, is, sc, n.Children, &children, p); err != nil {
		return err
	}

	if comp := rt.lookupComponent(n.Tag); comp != nil {
		out.WriteString(comp.Render(attrs, children.String()))
		return nil
	}

	elem, mapped := islands.ElementFor(n.Tag)
	out.WriteByte('<')
	out.WriteString(elem)
	if !mapped {
		out.WriteString(` class="reef-`)
		out.WriteString(strings.ToLower(n.Tag))
		out.WriteByte('"')
	}
	for _, name := range n.AttrNames() {
		out.WriteByte(' ')
		out.WriteString(strings.ToLower(name))
		out.WriteString(`="`)
		out.WriteString(html.EscapeString(props.Stringify(attrs[name])))
		out.WriteByte('"')
	}
	out.WriteByte('>')
	if islands.IsVoidElement(elem) {
		return nil
	}

	// Text-bearing tags render their bound value as content.
	if v, ok := attrs["value"]; ok && len(n.Children) == 0 {
		out.WriteString(html.EscapeString(props.Stringify(v)))
	}
	out.WriteString(children.String())
	out.WriteString("</")
	out.WriteString(elem)
	out.WriteByte('>')
	return nil
}

// declareVar handles the Var family. Values keep their current state on
// re-render; a fresh scope gets the declared initial value.
func (rt *Runtime) declareVar(is *Island, sc Scope, n *ast.Node) error {
	name := attrOr(n, "name", "")
	if name == "" {
		return fmt.Errorf("<%s> needs a name attribute", n.Tag)
	}

	value, err := rt.evalAttr(is, sc, n, "value")
	if err != nil {
		return err
	}
	if raw, ok := n.Attr("value"); ok && !raw.IsBinding() {
		value = coerceLiteral(n.Tag, raw.Raw)
	}

	is.store.EnsureDeclared(sc, name, value)
	return nil
}

// coerceLiteral interprets a literal Var value by declared type, or by
// shape for the untyped Var tag.
func coerceLiteral(tag, raw string) any {
	switch tag {
	case "TextVar":
		return raw
	case "NumberVar":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		return float64(0)
	case "BoolVar":
		return raw == "true"
	case "ListVar":
		if raw == "" {
			return []any{}
		}
		parts := strings.Split(raw, ",")
		items := make([]any, len(parts))
		for i, p := range parts {
			items[i] = coerceLiteral("Var", strings.TrimSpace(p))
		}
		return items
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if raw == "true" {
		return true
	}
	if raw == "false" {
		return false
	}
	return raw
}

// evalAttr evaluates one attribute against the scope; literal values
// pass through as strings, missing attributes as nil.
func (rt *Runtime) evalAttr(is *Island, sc Scope, n *ast.Node, name string) (any, error) {
	attr, ok := n.Attr(name)
	if !ok {
		return nil, nil
	}
	if !attr.IsBinding() {
		return attr.Raw, nil
	}
	if attr.Expr == nil {
		return nil, fmt.Errorf("attribute %q lost its parsed expression", name)
	}
	return props.Eval(attr.Expr, rt.resolver(is, sc))
}

func (rt *Runtime) evalAttrs(is *Island, sc Scope, n *ast.Node) (map[string]any, error) {
	out := make(map[string]any, len(n.Attrs))
	for _, name := range n.AttrNames() {
		v, err := rt.evalAttr(is, sc, n, name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func attrOr(n *ast.Node, name, fallback string) string {
	if attr, ok := n.Attr(name); ok && !attr.IsBinding() && attr.Raw != "" {
		return attr.Raw
	}
	return fallback
}

func attrDuration(n *ast.Node, name string, fallback time.Duration) time.Duration {
	if attr, ok := n.Attr(name); ok && !attr.IsBinding() {
		if ms, err := strconv.ParseFloat(attr.Raw, 64); err == nil && ms > 0 {
			return time.Duration(ms * float64(time.Millisecond))
		}
	}
	return fallback
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return 0
}
