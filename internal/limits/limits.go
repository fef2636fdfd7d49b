// Package limits enforces resource ceilings over a parsed template:
// source size, component count, hydratable component count, and
// computed variable declarations. Each metric has a hard ceiling that
// fails validation and a soft threshold that only produces a warning.
package limits

import (
	"github.com/coralpages/reef/internal/ast"
	reeferr "github.com/coralpages/reef/internal/errors"
)

// Limits holds the configurable ceilings. Zero values are replaced by
// the platform defaults; ceilings are configuration, not law.
type Limits struct {
	// MaxSourceBytes caps the serialized source size.
	MaxSourceBytes int `mapstructure:"max_source_bytes" yaml:"max_source_bytes"`
	// MaxComponents caps the total tag count.
	MaxComponents int `mapstructure:"max_components" yaml:"max_components"`
	// MaxIslands caps the count of hydration-requiring components.
	MaxIslands int `mapstructure:"max_islands" yaml:"max_islands"`
	// MaxComputedVars caps statically-computable variable declarations.
	MaxComputedVars int `mapstructure:"max_computed_vars" yaml:"max_computed_vars"`
	// WarnFraction is the soft threshold as a fraction of each ceiling.
	WarnFraction float64 `mapstructure:"warn_fraction" yaml:"warn_fraction"`
}

// Default limits observed in production.
const (
	DefaultMaxSourceBytes  = 100 * 1024
	DefaultMaxComponents   = 400
	DefaultMaxIslands      = 150
	DefaultMaxComputedVars = 75
	DefaultWarnFraction    = 0.8
)

// DefaultLimits returns the platform default ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxSourceBytes:  DefaultMaxSourceBytes,
		MaxComponents:   DefaultMaxComponents,
		MaxIslands:      DefaultMaxIslands,
		MaxComputedVars: DefaultMaxComputedVars,
		WarnFraction:    DefaultWarnFraction,
	}
}

// WithDefaults fills unset fields with the platform defaults.
func (l Limits) WithDefaults() Limits {
	if l.MaxSourceBytes <= 0 {
		l.MaxSourceBytes = DefaultMaxSourceBytes
	}
	if l.MaxComponents <= 0 {
		l.MaxComponents = DefaultMaxComponents
	}
	if l.MaxIslands <= 0 {
		l.MaxIslands = DefaultMaxIslands
	}
	if l.MaxComputedVars <= 0 {
		l.MaxComputedVars = DefaultMaxComputedVars
	}
	if l.WarnFraction <= 0 || l.WarnFraction >= 1 {
		l.WarnFraction = DefaultWarnFraction
	}
	return l
}

// Usage is the measured value of every limit metric, snapshotted into
// the compiled artifact.
type Usage struct {
	SourceBytes     int `json:"source_bytes" msgpack:"source_bytes"`
	ComponentCount  int `json:"component_count" msgpack:"component_count"`
	HydratableCount int `json:"hydratable_count" msgpack:"hydratable_count"`
	ComputedVars    int `json:"computed_vars" msgpack:"computed_vars"`
}

// Report is the outcome of validation: the measured usage, fatal limit
// errors, and non-fatal warnings.
type Report struct {
	Usage    Usage
	Errors   []*reeferr.ReefError
	Warnings []*reeferr.ReefError
}

// OK reports whether validation passed (warnings allowed).
func (r *Report) OK() bool { return len(r.Errors) == 0 }

// Measure computes usage metrics for a document without judging them.
func Measure(doc *ast.Document, sourceBytes int) Usage {
	u := Usage{SourceBytes: sourceBytes}

	for _, root := range doc.Nodes {
		ast.Walk(root, func(n *ast.Node) bool {
			if n.IsText() {
				return true
			}
			u.ComponentCount++
			if n.IsDynamic() {
				u.HydratableCount++
			}
			if n.Category == ast.CategoryState {
				if v, ok := n.Attr("value"); !ok || v.IsConstant() {
					u.ComputedVars++
				}
			}
			return true
		})
	}

	return u
}

// Validate measures the document and checks every metric against its
// ceiling. Exactly-at-limit passes; limit+1 fails with a LimitError
// naming the metric. All violations are reported, not just the first.
func Validate(doc *ast.Document, sourceBytes int, limits Limits) *Report {
	limits = limits.WithDefaults()
	usage := Measure(doc, sourceBytes)

	report := &Report{Usage: usage}

	check := func(metric string, current, ceiling int) {
		if current > ceiling {
			report.Errors = append(report.Errors, reeferr.NewLimitError(metric, current, ceiling))
			return
		}
		if float64(current) >= limits.WarnFraction*float64(ceiling) {
			report.Warnings = append(report.Warnings, reeferr.NewLimitWarning(metric, current, ceiling))
		}
	}

	check(reeferr.MetricSourceBytes, usage.SourceBytes, limits.MaxSourceBytes)
	check(reeferr.MetricComponentCount, usage.ComponentCount, limits.MaxComponents)
	check(reeferr.MetricIslandCount, usage.HydratableCount, limits.MaxIslands)
	check(reeferr.MetricComputedVarCount, usage.ComputedVars, limits.MaxComputedVars)

	return report
}
