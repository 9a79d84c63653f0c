// File path: internal/data/orchestrator/options.go
package orchestrator

import (
	"github.com/contentlake/contentlake/internal/analyzers"
)

type Option func(*options)

type options struct {
	disableCatalog bool
	embedder       analyzers.Embedder
	extraAnalyzers []analyzers.Analyzer
}

// WithCatalogDisabled prevents the orchestrator from opening the audit
// catalog. Primarily used in tests.
func WithCatalogDisabled() Option {
	return func(o *options) {
		o.disableCatalog = true
	}
}

// WithEmbedder injects an embedder implementation, bypassing the OpenAI
// client constructed from the environment.
func WithEmbedder(embedder analyzers.Embedder) Option {
	return func(o *options) {
		o.embedder = embedder
	}
}

// WithAnalyzer registers an additional enhancement analyzer.
func WithAnalyzer(a analyzers.Analyzer) Option {
	return func(o *options) {
		o.extraAnalyzers = append(o.extraAnalyzers, a)
	}
}
