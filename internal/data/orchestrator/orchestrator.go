// File path: internal/data/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"

	"github.com/contentlake/contentlake/internal/analyzers"
	"github.com/contentlake/contentlake/internal/catalog"
	"github.com/contentlake/contentlake/internal/common"
	"github.com/contentlake/contentlake/internal/enhance"
	"github.com/contentlake/contentlake/internal/lake"
	"github.com/contentlake/contentlake/internal/loader"
	"github.com/contentlake/contentlake/internal/manifest"
	"github.com/contentlake/contentlake/internal/store"
)

// Orchestrator wires together the stores and engines that operate on one
// content data lake and exposes convenience accessors for the API and CLI
// layers. It is the single handle holding loaded state; nothing is cached at
// package level.
type Orchestrator struct {
	cfg Config

	layout       *lake.Layout
	activities   *store.Store
	builder      *manifest.Builder
	enhancements *enhance.Store
	loader       *loader.Loader
	registry     *analyzers.Registry
	runner       *analyzers.Runner
	audit        *catalog.Catalog
}

// New constructs an orchestrator from the provided configuration and
// optional overrides.
func New(ctx context.Context, cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg = applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	settings := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}

	layout, err := lake.NewLayout(cfg.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("init layout: %w", err)
	}
	activities, err := store.New(layout)
	if err != nil {
		return nil, fmt.Errorf("init activity store: %w", err)
	}
	builder, err := manifest.NewBuilder(activities)
	if err != nil {
		return nil, fmt.Errorf("init manifest builder: %w", err)
	}
	enhancements, err := enhance.NewStore(layout)
	if err != nil {
		return nil, fmt.Errorf("init enhancement store: %w", err)
	}
	ld, err := loader.New(activities)
	if err != nil {
		return nil, fmt.Errorf("init loader: %w", err)
	}

	embedder := settings.embedder
	if embedder == nil && cfg.OpenAIKey != "" {
		client, err := analyzers.NewOpenAIEmbedder(cfg.OpenAIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}
		embedder = client
	}
	registry, err := analyzers.DefaultRegistry(embedder)
	if err != nil {
		return nil, fmt.Errorf("init analyzers: %w", err)
	}
	for _, a := range settings.extraAnalyzers {
		registry.Register(a)
	}
	runner, err := analyzers.NewRunner(registry, enhancements, ld)
	if err != nil {
		return nil, fmt.Errorf("init runner: %w", err)
	}

	orch := &Orchestrator{
		cfg:          cfg,
		layout:       layout,
		activities:   activities,
		builder:      builder,
		enhancements: enhancements,
		loader:       ld,
		registry:     registry,
		runner:       runner,
	}
	if !cfg.CatalogDisabled && !settings.disableCatalog {
		audit, err := catalog.Open(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("init catalog: %w", err)
		}
		orch.audit = audit
	}
	common.Logger().Info("orchestrator: ready",
		"repo", layout.Root(), "catalog", orch.audit != nil, "embeddings", embedder != nil)
	return orch, nil
}

// Layout exposes the repository layout.
func (o *Orchestrator) Layout() *lake.Layout {
	if o == nil {
		return nil
	}
	return o.layout
}

// Activities exposes the append-only activity store.
func (o *Orchestrator) Activities() *store.Store {
	if o == nil {
		return nil
	}
	return o.activities
}

// Manifest exposes the manifest builder.
func (o *Orchestrator) Manifest() *manifest.Builder {
	if o == nil {
		return nil
	}
	return o.builder
}

// Enhancements exposes the versioned enhancement store.
func (o *Orchestrator) Enhancements() *enhance.Store {
	if o == nil {
		return nil
	}
	return o.enhancements
}

// Loader exposes the query engine.
func (o *Orchestrator) Loader() *loader.Loader {
	if o == nil {
		return nil
	}
	return o.loader
}

// Registry exposes the analyzer registry.
func (o *Orchestrator) Registry() *analyzers.Registry {
	if o == nil {
		return nil
	}
	return o.registry
}

// Runner exposes the enhancement computation driver.
func (o *Orchestrator) Runner() *analyzers.Runner {
	if o == nil {
		return nil
	}
	return o.runner
}

// Catalog exposes the audit ledger; nil when auditing is disabled.
func (o *Orchestrator) Catalog() *catalog.Catalog {
	if o == nil {
		return nil
	}
	return o.audit
}

// RecordRun writes a completed operation to the audit ledger. It is a no-op
// when auditing is disabled, so callers never need to branch.
func (o *Orchestrator) RecordRun(ctx context.Context, operation string, detail any, runErr error) {
	if o == nil || o.audit == nil {
		return
	}
	if _, err := o.audit.Record(ctx, operation, detail, runErr); err != nil {
		common.Logger().Warn("orchestrator: audit record failed", "operation", operation, "error", err)
	}
}

// Close releases any resources associated with the orchestrator.
func (o *Orchestrator) Close() error {
	if o == nil || o.audit == nil {
		return nil
	}
	return o.audit.Close()
}
