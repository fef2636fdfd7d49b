package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReefError_MessageFormat(t *testing.T) {
	err := NewSyntaxError(ErrCodeUnclosedTag, "tag <Card> is not closed").
		WithLocation(3, 7).
		WithComponent("Card")

	msg := err.Error()
	assert.Contains(t, msg, ErrCodeUnclosedTag)
	assert.Contains(t, msg, "3:7")
	assert.Contains(t, msg, "Card")
}

func TestReefError_UnwrapAndIs(t *testing.T) {
	cause := errors.New("network down")
	err := NewLoadError("Marquee", cause)

	assert.ErrorIs(t, err, cause)

	var re *ReefError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &re)
	assert.Equal(t, ErrorTypeLoad, re.Type)
	assert.Equal(t, "Marquee", re.Component)
}

func TestErrorPredicates(t *testing.T) {
	syntax := NewSyntaxError(ErrCodeBadExpression, "bad")
	hydration := NewHydrationError("i0", errors.New("boom"))

	assert.True(t, IsSyntaxError(syntax))
	assert.False(t, IsSyntaxError(hydration))
	assert.True(t, IsHydrationError(hydration))
	assert.True(t, IsRecoverable(hydration), "hydration failures are contained, not fatal")
	assert.False(t, IsSyntaxError(errors.New("plain")))
}

func TestLimitError_CarriesMetricAndSuggestion(t *testing.T) {
	err := NewLimitError(MetricIslandCount, 151, 150)

	assert.Equal(t, ErrorTypeLimit, err.Type)
	assert.Equal(t, MetricIslandCount, err.Context["metric"])
	assert.Equal(t, 151, err.Context["current"])
	assert.Equal(t, 150, err.Context["ceiling"])
	assert.NotEmpty(t, Suggestion(err))
}

func TestSuggestion_NonLimitErrorsHaveNone(t *testing.T) {
	assert.Empty(t, Suggestion(errors.New("plain")))
	assert.Empty(t, Suggestion(NewSyntaxError(ErrCodeBadAttribute, "x")))
}

func TestErrorCollector_BatchesErrorsAndWarnings(t *testing.T) {
	ec := NewErrorCollector()
	assert.False(t, ec.HasErrors())

	ec.Add(NewSyntaxError(ErrCodeUnclosedTag, "first"))
	ec.Add(NewSyntaxError(ErrCodeMismatchedTag, "second"))
	ec.AddWarning(NewLimitWarning(MetricComponentCount, 8, 10))

	assert.True(t, ec.HasErrors())
	assert.Len(t, ec.Errors(), 2)
	assert.Len(t, ec.Warnings(), 1)

	ec.Clear()
	assert.False(t, ec.HasErrors())
	assert.Empty(t, ec.Errors())
}

func TestUnknownComponentError(t *testing.T) {
	err := NewUnknownComponentError("Sparklephone")
	assert.Equal(t, ErrorTypeUnknownComponent, err.Type)
	assert.Contains(t, err.Error(), "Sparklephone")
}
