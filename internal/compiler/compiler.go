// Package compiler orchestrates the compilation pipeline: parse,
// validate limits, detect islands, precompute props, and assemble the
// persisted artifact. Compilation is synchronous, single-threaded, and
// side-effect free, which makes it safe to re-run and to cache by
// content hash.
package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/coralpages/reef/internal/artifact"
	reeferr "github.com/coralpages/reef/internal/errors"
	"github.com/coralpages/reef/internal/islands"
	"github.com/coralpages/reef/internal/limits"
	"github.com/coralpages/reef/internal/logging"
	"github.com/coralpages/reef/internal/parser"
	"github.com/coralpages/reef/internal/props"
)

// Options configures a Compiler.
type Options struct {
	// Limits are the resource ceilings; zero fields use defaults.
	Limits limits.Limits
	// Logger receives compile diagnostics. Nil disables logging.
	Logger logging.Logger
	// DisableCache turns off the content-hash artifact cache.
	DisableCache bool
}

// Compiler runs the full pipeline and caches results by source hash.
type Compiler struct {
	limits limits.Limits
	logger logging.Logger
	cache  *Cache
}

// New creates a compiler.
func New(opts Options) *Compiler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Compiler{
		limits: opts.Limits,
		logger: logger.WithComponent("compiler"),
	}
	if !opts.DisableCache {
		c.cache = NewCache()
	}
	return c
}

// Result is a successful compilation: the artifact plus any non-fatal
// warnings (soft limit thresholds).
type Result struct {
	Template *artifact.CompiledTemplate
	Warnings []*reeferr.ReefError
}

// CompileError aggregates every fatal error from one compilation pass.
// No partial artifact exists when it is returned.
type CompileError struct {
	Errors []*reeferr.ReefError
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("compilation failed with %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Compile runs the pipeline over source markup. Identical input yields
// a byte-identical artifact; cached results are returned as-is.
func (c *Compiler) Compile(ctx context.Context, source string) (*Result, error) {
	hash := artifact.HashSource(source)

	if c.cache != nil {
		if cached, ok := c.cache.Get(hash); ok {
			c.logger.Debug(ctx, "compile cache hit", "hash", hash[:12])
			return cached, nil
		}
	}

	doc, parseErrs := parser.Parse(source)
	if len(parseErrs) > 0 {
		c.logger.Warn(ctx, nil, "parse failed",
			"errors", len(parseErrs), "hash", hash[:12])
		return nil, &CompileError{Errors: parseErrs}
	}

	report := limits.Validate(doc, len(source), c.limits)
	if !report.OK() {
		c.logger.Warn(ctx, nil, "limit validation failed",
			"errors", len(report.Errors), "hash", hash[:12])
		return nil, &CompileError{Errors: report.Errors}
	}

	detected := islands.Detect(doc)

	compiled := &artifact.CompiledTemplate{
		Version:           artifact.FormatVersion,
		VocabularyVersion: doc.VocabularyVersion,
		SourceHash:        hash,
		Skeleton:          detected.SkeletonHTML,
		Islands:           make([]artifact.Island, 0, len(detected.Islands)),
		Limits:            report.Usage,
	}

	for _, island := range detected.Islands {
		compiled.Islands = append(compiled.Islands, artifact.Island{
			ID:        island.ID,
			Component: island.Component,
			Props:     props.Precompute(island.Nodes),
			Nodes:     island.Nodes,
			Path:      island.Path,
		})
	}

	result := &Result{Template: compiled, Warnings: report.Warnings}

	if c.cache != nil {
		c.cache.Put(hash, result)
	}

	c.logger.Info(ctx, "compiled template",
		"hash", hash[:12],
		"components", report.Usage.ComponentCount,
		"islands", len(compiled.Islands),
		"warnings", len(report.Warnings))

	return result, nil
}

// CacheStats returns cache hit/miss counters, or zeros when the cache
// is disabled.
func (c *Compiler) CacheStats() CacheStats {
	if c.cache == nil {
		return CacheStats{}
	}
	return c.cache.Stats()
}
