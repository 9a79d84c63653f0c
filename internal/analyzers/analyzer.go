// File path: internal/analyzers/analyzer.go
package analyzers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/contentlake/contentlake/internal/enhance"
	"github.com/contentlake/contentlake/internal/lake"
)

// Analyzer computes one enhancement layer. Implementations are pure with
// respect to the store: they turn activities into records and never touch
// the latest table themselves.
type Analyzer interface {
	// Type is the enhancement type name the records belong to.
	Type() string
	// Version is the opaque algorithm version stamped on every record. Any
	// change to the computation must change it.
	Version() string
	// Compute scores the given activities, one record per activity.
	Compute(ctx context.Context, activities []lake.Activity) ([]enhance.Record, error)
}

// Registry resolves analyzers by enhancement-type name.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Analyzer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string]Analyzer)}
}

// Register adds an analyzer, replacing any previous one for the same type.
func (r *Registry) Register(a Analyzer) {
	if r == nil || a == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[a.Type()] = a
}

// Get returns the analyzer for a type name.
func (r *Registry) Get(enhancementType string) (Analyzer, error) {
	if r == nil {
		return nil, fmt.Errorf("analyzers: registry not initialized")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byType[enhancementType]
	if !ok {
		return nil, fmt.Errorf("analyzers: no analyzer registered for %q", enhancementType)
	}
	return a, nil
}

// Types lists the registered enhancement types, sorted.
func (r *Registry) Types() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
