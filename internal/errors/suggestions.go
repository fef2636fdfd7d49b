package errors

import (
	"fmt"
)

// NewLimitError creates a limit violation error naming the metric that
// was exceeded, the observed value, and the configured ceiling, with a
// corrective suggestion attached.
func NewLimitError(metric string, current, ceiling int) *ReefError {
	err := &ReefError{
		Type:        ErrorTypeLimit,
		Code:        ErrCodeLimitExceeded,
		Message:     fmt.Sprintf("%s limit exceeded: %d of %d allowed", metric, current, ceiling),
		Recoverable: true,
	}
	err = err.WithContext("metric", metric).
		WithContext("current", current).
		WithContext("ceiling", ceiling)
	if s := limitSuggestion(metric); s != "" {
		err = err.WithContext("suggestion", s)
	}
	return err
}

// NewLimitWarning creates a non-fatal warning for a metric crossing its
// soft threshold.
func NewLimitWarning(metric string, current, ceiling int) *ReefError {
	return &ReefError{
		Type:        ErrorTypeLimit,
		Code:        ErrCodeLimitExceeded,
		Message:     fmt.Sprintf("%s approaching limit: %d of %d allowed", metric, current, ceiling),
		Recoverable: true,
	}
}

// Metric names the limit validator reports.
const (
	MetricSourceBytes      = "source size"
	MetricComponentCount   = "component count"
	MetricIslandCount      = "island count"
	MetricComputedVarCount = "computed variable count"
)

// limitSuggestion returns author-facing advice for the exceeded metric.
func limitSuggestion(metric string) string {
	switch metric {
	case MetricSourceBytes:
		return "split the page into multiple templates, or move large inline text into hosted assets"
	case MetricComponentCount:
		return "consolidate repeated markup with a ForEach over a ListVar instead of duplicating components"
	case MetricIslandCount:
		return "group adjacent interactive elements under one parent so they hydrate as a single island"
	case MetricComputedVarCount:
		return "remove unused Var declarations, or derive values inline instead of declaring intermediates"
	default:
		return ""
	}
}

// Suggestion returns the corrective suggestion attached to a limit
// error, if any.
func Suggestion(err error) string {
	re, ok := err.(*ReefError)
	if !ok || re.Context == nil {
		return ""
	}
	if s, ok := re.Context["suggestion"].(string); ok {
		return s
	}
	return ""
}
