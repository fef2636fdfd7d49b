package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coralpages/reef/internal/islands"
	"github.com/coralpages/reef/internal/limits"
	"github.com/coralpages/reef/internal/parser"
	"github.com/coralpages/reef/internal/props"
)

func buildTemplate(t *testing.T, source string) *CompiledTemplate {
	t.Helper()
	doc, errs := parser.Parse(source)
	require.Empty(t, errs)

	detected := islands.Detect(doc)
	tpl := &CompiledTemplate{
		Version:           FormatVersion,
		VocabularyVersion: doc.VocabularyVersion,
		SourceHash:        HashSource(source),
		Skeleton:          detected.SkeletonHTML,
		Limits:            limits.Measure(doc, len(source)),
	}
	for _, is := range detected.Islands {
		tpl.Islands = append(tpl.Islands, Island{
			ID:        is.ID,
			Component: is.Component,
			Props:     props.Precompute(is.Nodes),
			Nodes:     is.Nodes,
			Path:      is.Path,
		})
	}
	return tpl
}

const sampleSource = `<Card><Heading>hi</Heading>` +
	`<Var name="count" value="0"/><Text value={count + 1}/>` +
	`</Card><Text value={mood}/>`

func TestJSONRoundTripRestoresBindings(t *testing.T) {
	tpl := buildTemplate(t, sampleSource)

	data, err := EncodeJSON(tpl)
	require.NoError(t, err)

	decoded, err := DecodeJSON(data)
	require.NoError(t, err)

	assert.Equal(t, tpl.SourceHash, decoded.SourceHash)
	assert.Equal(t, tpl.Skeleton, decoded.Skeleton)
	require.Len(t, decoded.Islands, len(tpl.Islands))

	// The parsed expression does not serialize; decoding re-parses it
	// from the raw source form.
	island := decoded.Islands[0]
	var found bool
	for _, n := range island.Nodes {
		if attr, ok := n.Attr("value"); ok && attr.IsBinding() {
			found = true
			require.NotNil(t, attr.Expr, "decoded bindings must carry a live expression")
			assert.Equal(t, "count + 1", attr.Raw)
		}
	}
	assert.True(t, found)
}

func TestMsgpackRoundTrip(t *testing.T) {
	tpl := buildTemplate(t, sampleSource)

	data, err := EncodeMsgpack(tpl)
	require.NoError(t, err)

	decoded, err := DecodeMsgpack(data)
	require.NoError(t, err)

	assert.Equal(t, tpl.Version, decoded.Version)
	assert.Equal(t, tpl.VocabularyVersion, decoded.VocabularyVersion)
	require.Len(t, decoded.Islands, len(tpl.Islands))
	assert.Equal(t, tpl.Islands[0].ID, decoded.Islands[0].ID)
	assert.Equal(t, tpl.Islands[0].Props, decoded.Islands[0].Props)
}

func TestDecodeJSONIgnoresUnknownFields(t *testing.T) {
	tpl := buildTemplate(t, `<Text value={mood}/>`)
	data, err := EncodeJSON(tpl)
	require.NoError(t, err)

	// A future writer added a field this reader does not know.
	augmented := append([]byte(`{"future_field":{"nested":true},`), data[1:]...)

	decoded, err := DecodeJSON(augmented)
	require.NoError(t, err, "unknown optional fields are ignored for forward compatibility")
	assert.Equal(t, tpl.SourceHash, decoded.SourceHash)
}

func TestEncodeJSONDeterministic(t *testing.T) {
	first, err := EncodeJSON(buildTemplate(t, sampleSource))
	require.NoError(t, err)
	second, err := EncodeJSON(buildTemplate(t, sampleSource))
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical input must produce byte-identical artifacts")
}

func TestEncodeMsgpackDeterministic(t *testing.T) {
	first, err := EncodeMsgpack(buildTemplate(t, sampleSource))
	require.NoError(t, err)
	second, err := EncodeMsgpack(buildTemplate(t, sampleSource))
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical input must produce byte-identical artifacts")
}

func TestEncodeMsgpackAttrOrderStable(t *testing.T) {
	// Attribute maps are the only map-keyed structure inside island
	// nodes; encode a node carrying several of them repeatedly to
	// catch any key-order leakage into the binary artifact.
	const source = `<Button label={mood} tone="primary" size="lg" ` +
		`icon="arrow" badge="new">go</Button>`

	baseline, err := EncodeMsgpack(buildTemplate(t, source))
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		encoded, err := EncodeMsgpack(buildTemplate(t, source))
		require.NoError(t, err)
		require.Equal(t, baseline, encoded, "attrs must encode in a stable order")
	}
}

func TestComponentNamesDeduplicatedInOrder(t *testing.T) {
	tpl := &CompiledTemplate{Islands: []Island{
		{ID: "i0", Component: "Text"},
		{ID: "i1", Component: "Marquee"},
		{ID: "i2", Component: "Text"},
	}}
	assert.Equal(t, []string{"Text", "Marquee"}, tpl.ComponentNames())
}

func TestIslandLookup(t *testing.T) {
	tpl := buildTemplate(t, sampleSource)
	require.NotEmpty(t, tpl.Islands)

	got, ok := tpl.Island(tpl.Islands[0].ID)
	require.True(t, ok)
	assert.Equal(t, tpl.Islands[0].Component, got.Component)

	_, ok = tpl.Island("i99")
	assert.False(t, ok)
}

func TestHashSourceStable(t *testing.T) {
	assert.Equal(t, HashSource("abc"), HashSource("abc"))
	assert.NotEqual(t, HashSource("abc"), HashSource("abd"))
	assert.Len(t, HashSource(""), 64)
}

// Decoded artifacts must be directly usable by consumers that resolve
// pending props, without recompiling.
func TestDecodedPendingDescriptorsEvaluate(t *testing.T) {
	tpl := buildTemplate(t, `<Text value={mood}/>`)
	data, err := EncodeJSON(tpl)
	require.NoError(t, err)

	decoded, err := DecodeJSON(data)
	require.NoError(t, err)
	require.Len(t, decoded.Islands, 1)
	require.Len(t, decoded.Islands[0].Props.Pending, 1)

	desc := decoded.Islands[0].Props.Pending[0]
	expr, perr := parser.ParseExpr(desc.Expr)
	require.NoError(t, perr)

	v, verr := props.Eval(expr, props.ResolverFunc(func(name string) (any, bool) {
		if name == "mood" {
			return "sparkly", true
		}
		return nil, false
	}))
	require.NoError(t, verr)
	assert.Equal(t, "sparkly", v)
}
