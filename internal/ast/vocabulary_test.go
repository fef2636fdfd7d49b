package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_CaseInsensitive(t *testing.T) {
	for _, spelling := range []string{"Marquee", "marquee", "MARQUEE", "mArQuEe"} {
		info, ok := Lookup(spelling)
		require.True(t, ok, spelling)
		assert.Equal(t, "Marquee", info.Name, "canonical casing comes from the catalog")
	}
}

func TestLookup_UnknownTag(t *testing.T) {
	_, ok := Lookup("Blink182")
	assert.False(t, ok)
}

func TestLookup_Categories(t *testing.T) {
	cases := map[string]Category{
		"Text":       CategoryDisplay,
		"Card":       CategoryLayout,
		"Var":        CategoryState,
		"If":         CategoryConditional,
		"ForEach":    CategoryLoop,
		"OnClick":    CategoryEvent,
		"Increment":  CategoryAction,
	}
	for tag, want := range cases {
		info, ok := Lookup(tag)
		require.True(t, ok, tag)
		assert.Equal(t, want, info.Category, tag)
	}
}

func TestLookup_VoidTags(t *testing.T) {
	for _, tag := range []string{"Var", "Break", "Set", "LineBreak"} {
		info, ok := Lookup(tag)
		require.True(t, ok, tag)
		assert.True(t, info.Void, "%s never takes children", tag)
	}

	info, _ := Lookup("Card")
	assert.False(t, info.Void)
}

func TestTagCount_ClosedVocabulary(t *testing.T) {
	assert.Greater(t, TagCount(), 250, "the catalog covers the full authoring vocabulary")
}

func TestNodeIsDynamic(t *testing.T) {
	t.Run("runtime categories are intrinsically dynamic", func(t *testing.T) {
		for _, cat := range []Category{CategoryState, CategoryConditional, CategoryLoop, CategoryEvent, CategoryAction} {
			n := &Node{Tag: "x", Category: cat}
			assert.True(t, n.IsDynamic(), cat.String())
		}
	})

	t.Run("display with literal attrs is static", func(t *testing.T) {
		n := &Node{Tag: "Text", Category: CategoryDisplay, Attrs: map[string]AttrValue{
			"value": {Raw: "hello"},
		}}
		assert.False(t, n.IsDynamic())
	})

	t.Run("non-constant binding makes a display tag dynamic", func(t *testing.T) {
		n := &Node{Tag: "Text", Category: CategoryDisplay, Attrs: map[string]AttrValue{
			"value": {Raw: "mood", Binding: true, Expr: &VarRef{Name: "mood"}},
		}}
		assert.True(t, n.IsDynamic())
	})

	t.Run("constant binding stays static", func(t *testing.T) {
		n := &Node{Tag: "Text", Category: CategoryDisplay, Attrs: map[string]AttrValue{
			"value": {Raw: "1 + 2", Binding: true, Expr: &BinaryOp{
				Op:    "+",
				Left:  &Literal{Value: float64(1)},
				Right: &Literal{Value: float64(2)},
			}},
		}}
		assert.False(t, n.IsDynamic())
	})
}

func TestAttrNamesSorted(t *testing.T) {
	n := &Node{Attrs: map[string]AttrValue{
		"zeta": {}, "alpha": {}, "mid": {},
	}}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, n.AttrNames())
}

func TestCountNodesSkipsText(t *testing.T) {
	tree := []*Node{
		{Tag: "Card", Children: []*Node{
			{Tag: TextTag, Text: "hi"},
			{Tag: "Text"},
		}},
	}
	assert.Equal(t, 2, CountNodes(tree))
}

func TestNormalizeTag(t *testing.T) {
	assert.Equal(t, "card", NormalizeTag("  Card "))
	assert.Equal(t, "foreach", NormalizeTag("ForEach"))
}
