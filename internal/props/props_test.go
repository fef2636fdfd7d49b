package props

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coralpages/reef/internal/ast"
	"github.com/coralpages/reef/internal/parser"
)

func mustExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	expr, err := parser.ParseExpr(src)
	require.NoError(t, err)
	return expr
}

func TestFold_ConstantExpressions(t *testing.T) {
	cases := []struct {
		src  string
		want any
	}{
		{`1 + 2`, float64(3)},
		{`"a" + "b"`, "ab"},
		{`2 * 3 + 1`, float64(7)},
		{`10 / 4`, float64(2.5)},
		{`7 % 3`, float64(1)},
		{`1 < 2`, true},
		{`"x" == "x"`, true},
		{`true && false`, false},
		{`false || true`, true},
		{`[1, 2, 3]`, []any{float64(1), float64(2), float64(3)}},
	}
	for _, tc := range cases {
		v, ok := Fold(mustExpr(t, tc.src))
		require.True(t, ok, "%s should fold", tc.src)
		assert.Equal(t, tc.want, v, tc.src)
	}
}

func TestFold_FreeVariableBlocksFolding(t *testing.T) {
	_, ok := Fold(mustExpr(t, `count + 1`))
	assert.False(t, ok)
}

func TestEval_ResolvesVariables(t *testing.T) {
	resolver := ResolverFunc(func(name string) (any, bool) {
		switch name {
		case "count":
			return float64(4), true
		case "user":
			return map[string]any{"handle": "coralbyte"}, true
		}
		return nil, false
	})

	v, err := Eval(mustExpr(t, `count * 2`), resolver)
	require.NoError(t, err)
	assert.Equal(t, float64(8), v)

	v, err = Eval(mustExpr(t, `user.handle`), resolver)
	require.NoError(t, err)
	assert.Equal(t, "coralbyte", v)

	_, err = Eval(mustExpr(t, `ghost`), resolver)
	assert.Error(t, err)
}

func TestEval_DivisionByZero(t *testing.T) {
	_, err := Eval(mustExpr(t, `1 / 0`), nil)
	assert.Error(t, err)
}

func TestEval_ShortCircuit(t *testing.T) {
	// The right side references an undefined variable; short-circuit
	// evaluation must never reach it.
	v, err := Eval(mustExpr(t, `false && ghost`), nil)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = Eval(mustExpr(t, `true || ghost`), nil)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestTruthy(t *testing.T) {
	assert.True(t, Truthy(true))
	assert.True(t, Truthy(float64(1)))
	assert.True(t, Truthy("x"))
	assert.True(t, Truthy([]any{1}))

	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(float64(0)))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy([]any{}))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "3", Stringify(float64(3)))
	assert.Equal(t, "3.5", Stringify(float64(3.5)))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "", Stringify(nil))
}

func parseIsland(t *testing.T, source string) []*ast.Node {
	t.Helper()
	doc, errs := parser.Parse(source)
	require.Empty(t, errs)
	return doc.Nodes
}

func TestPrecompute_SplitsConstantsFromDescriptors(t *testing.T) {
	nodes := parseIsland(t, `<Text size={1 + 1} color="pink" label={mood}/>`)

	pre := Precompute(nodes)

	assert.Equal(t, float64(2), pre.Values["size"], "constant bindings fold")
	assert.Equal(t, "pink", pre.Values["color"], "literals pass through")

	require.Len(t, pre.Pending, 1)
	assert.Equal(t, "label", pre.Pending[0].Name)
	assert.Equal(t, "mood", pre.Pending[0].Expr)
	assert.Equal(t, []string{"mood"}, pre.Pending[0].DependsOn)
}

func TestPrecompute_PendingSortedByName(t *testing.T) {
	nodes := parseIsland(t, `<Text z={b} a={c} m={a}/>`)

	pre := Precompute(nodes)
	require.Len(t, pre.Pending, 3)
	assert.Equal(t, "a", pre.Pending[0].Name)
	assert.Equal(t, "m", pre.Pending[1].Name)
	assert.Equal(t, "z", pre.Pending[2].Name)
}

func TestPrecompute_UsesFirstRenderableNodeOfRun(t *testing.T) {
	nodes := parseIsland(t, `<Var name="n" value="1"/><Text label={n} width={2 + 2}/>`)

	assert.Equal(t, "Text", PropSource(nodes).Tag)

	pre := Precompute(nodes)
	assert.Equal(t, float64(4), pre.Values["width"])
	require.Len(t, pre.Pending, 1)
	assert.Equal(t, "label", pre.Pending[0].Name)
}

func TestPrecompute_Deterministic(t *testing.T) {
	nodes := parseIsland(t, `<Text a={x} b="lit" c={1+2} d={y.z}/>`)

	first := Precompute(nodes)
	second := Precompute(nodes)
	assert.Equal(t, first, second)
}
