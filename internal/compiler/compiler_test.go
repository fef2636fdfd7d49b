package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coralpages/reef/internal/artifact"
	reeferr "github.com/coralpages/reef/internal/errors"
	"github.com/coralpages/reef/internal/limits"
)

const pageSource = `<Card><Heading>My Page</Heading>` +
	`<Var name="visits" value="0"/><Text value={visits}/>` +
	`<OnClick><Increment target="visits"/></OnClick>` +
	`</Card>`

func TestCompile_ProducesArtifact(t *testing.T) {
	c := New(Options{})

	result, err := c.Compile(context.Background(), pageSource)
	require.NoError(t, err)

	tpl := result.Template
	assert.Equal(t, artifact.FormatVersion, tpl.Version)
	assert.Equal(t, artifact.HashSource(pageSource), tpl.SourceHash)
	assert.NotEmpty(t, tpl.Skeleton)
	require.Len(t, tpl.Islands, 1)
	assert.Greater(t, tpl.Limits.ComponentCount, 0)
}

func TestCompile_Deterministic(t *testing.T) {
	// Two independent compilers remove any chance of shared state.
	a, err := New(Options{DisableCache: true}).Compile(context.Background(), pageSource)
	require.NoError(t, err)
	b, err := New(Options{DisableCache: true}).Compile(context.Background(), pageSource)
	require.NoError(t, err)

	aj, err := artifact.EncodeJSON(a.Template)
	require.NoError(t, err)
	bj, err := artifact.EncodeJSON(b.Template)
	require.NoError(t, err)

	assert.Equal(t, aj, bj, "identical source must yield byte-identical artifacts")
}

func TestCompile_ParseErrorsAreFatalAndBatched(t *testing.T) {
	c := New(Options{})

	result, err := c.Compile(context.Background(), `<Nope/><Text value={+}/>`)
	assert.Nil(t, result, "no partial artifact on failure")

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.GreaterOrEqual(t, len(cerr.Errors), 2, "all parse errors surface at once")
}

func TestCompile_LimitViolationIsFatal(t *testing.T) {
	c := New(Options{Limits: limits.Limits{MaxComponents: 2}})

	_, err := c.Compile(context.Background(), `<Card><Text value="a"/><Text value="b"/></Card>`)

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Errors, 1)
	assert.Equal(t, reeferr.ErrorTypeLimit, cerr.Errors[0].Type)
}

func TestCompile_WarningsDoNotBlock(t *testing.T) {
	c := New(Options{Limits: limits.Limits{MaxComponents: 5, WarnFraction: 0.5}})

	result, err := c.Compile(context.Background(), `<Card><Text value="a"/><Text value="b"/></Card>`)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warnings)
}

func TestCompile_CacheHitReturnsSameResult(t *testing.T) {
	c := New(Options{})

	first, err := c.Compile(context.Background(), pageSource)
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), pageSource)
	require.NoError(t, err)

	assert.Same(t, first, second, "the cached result is returned as-is")

	stats := c.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCompile_CacheDisabled(t *testing.T) {
	c := New(Options{DisableCache: true})

	first, err := c.Compile(context.Background(), pageSource)
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), pageSource)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, CacheStats{}, c.CacheStats())
}

func TestCompile_StaticTemplateHasZeroIslands(t *testing.T) {
	c := New(Options{})

	result, err := c.Compile(context.Background(), `<Card><Paragraph>just words</Paragraph></Card>`)
	require.NoError(t, err)
	assert.Empty(t, result.Template.Islands)
	assert.Contains(t, result.Template.Skeleton, "just words")
}
