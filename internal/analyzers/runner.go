// File path: internal/analyzers/runner.go
package analyzers

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/contentlake/contentlake/internal/common"
	"github.com/contentlake/contentlake/internal/enhance"
	"github.com/contentlake/contentlake/internal/lake"
	"github.com/contentlake/contentlake/internal/loader"
)

// RunReport describes one enhancement computation run.
type RunReport struct {
	Type      string `json:"type"`
	Version   string `json:"version"`
	Total     int    `json:"total"`
	Computed  int    `json:"computed"`
	Recompute bool   `json:"recompute"`
	Snapshot  string `json:"snapshot,omitempty"`
}

// Runner drives incremental enhancement computation: by default only
// activities missing from the latest table are scored; a version change or
// force triggers a full recompute that first archives the old table.
type Runner struct {
	registry *Registry
	store    *enhance.Store
	loader   *loader.Loader
}

// NewRunner wires a registry to the enhancement store and activity loader.
func NewRunner(registry *Registry, store *enhance.Store, ld *loader.Loader) (*Runner, error) {
	if registry == nil || store == nil || ld == nil {
		return nil, errors.New("analyzers: registry, store and loader required")
	}
	return &Runner{registry: registry, store: store, loader: ld}, nil
}

// Run computes one enhancement layer across the whole repository.
func (r *Runner) Run(ctx context.Context, enhancementType string, force bool) (*RunReport, error) {
	if r == nil {
		return nil, errors.New("analyzers: runner not initialized")
	}
	analyzer, err := r.registry.Get(enhancementType)
	if err != nil {
		return nil, err
	}
	activities, err := r.loader.Select(ctx, loader.Query{})
	if err != nil {
		return nil, err
	}
	report := &RunReport{Type: enhancementType, Version: analyzer.Version(), Total: len(activities)}

	stale, err := r.store.NeedsRecompute(enhancementType, analyzer.Version())
	if err != nil {
		return nil, err
	}
	current, err := r.store.CurrentAlgorithmVersion(enhancementType)
	if err != nil {
		return nil, err
	}
	recompute := force || (stale && current != "")
	report.Recompute = recompute

	var targets []lake.Activity
	if recompute {
		targets = activities
	} else {
		ids := make([]string, len(activities))
		byID := make(map[string]lake.Activity, len(activities))
		for i, a := range activities {
			ids[i] = a.ActivityID
			byID[a.ActivityID] = a
		}
		missing, err := r.store.Unprocessed(ids, enhancementType)
		if err != nil {
			return nil, err
		}
		for _, id := range missing {
			targets = append(targets, byID[id])
		}
	}
	if len(targets) == 0 {
		common.Logger().Info("analyzers: nothing to compute", "type", enhancementType)
		return report, nil
	}

	records, err := analyzer.Compute(ctx, targets)
	if err != nil {
		return nil, err
	}
	report.Computed = len(records)

	opts := enhance.SaveOptions{Append: !recompute}
	if recompute && current != "" {
		reason := "algorithm_update"
		if force {
			reason = "forced_recompute"
		}
		opts.ArchivePrevious = true
		opts.Reason = reason
	}
	saved, err := r.store.Save(enhancementType, records, opts)
	if err != nil {
		return nil, err
	}
	if saved.Snapshot != "" {
		report.Snapshot = filepath.Base(saved.Snapshot)
	}
	common.Logger().Info("analyzers: run complete",
		"type", enhancementType, "computed", report.Computed, "recompute", recompute, "snapshot", report.Snapshot)
	return report, nil
}

// DefaultRegistry registers the built-in analyzers. The embeddings layer is
// registered only when an embedder is supplied.
func DefaultRegistry(embedder Embedder) (*Registry, error) {
	registry := NewRegistry()
	registry.Register(NewQualityAnalyzer())
	registry.Register(NewGameAnalyzer())
	if embedder != nil {
		embeddings, err := NewEmbeddingAnalyzer(embedder)
		if err != nil {
			return nil, err
		}
		registry.Register(embeddings)
	}
	return registry, nil
}
