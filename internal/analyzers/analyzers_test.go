// File path: internal/analyzers/analyzers_test.go
package analyzers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/contentlake/contentlake/internal/enhance"
	"github.com/contentlake/contentlake/internal/lake"
)

func TestQualityAnalyzerScoresInRange(t *testing.T) {
	a := NewQualityAnalyzer()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	activities := []lake.Activity{
		{ActivityID: "blog_long", Timestamp: base, Platform: "blog", ActivityType: lake.ActivityCreate,
			Title: "A Thorough Guide to Gardens", Content: strings.Repeat("deep thoughts about gardening ", 100)},
		{ActivityID: "twitter_short", Timestamp: base.AddDate(0, 0, 2), Platform: "twitter", ActivityType: lake.ActivityCreate,
			Content: "gm"},
		{ActivityID: "podcast_ep", Timestamp: base.AddDate(0, 0, 4), Platform: "podcast", ActivityType: lake.ActivityConsume,
			DurationSeconds: 3600},
	}
	records, err := a.Compute(context.Background(), activities)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected one record per activity, got %d", len(records))
	}
	var long, short enhance.QualityScore
	if err := records[0].Decode(&long); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := records[1].Decode(&short); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, score := range []float64{long.QualityScore, short.QualityScore, long.ContentScore, short.ContentScore} {
		if score < 0 || score > 1 {
			t.Fatalf("score out of range: %v", score)
		}
	}
	if long.QualityScore <= short.QualityScore {
		t.Fatalf("long-form content should outscore a two-character post: %v <= %v",
			long.QualityScore, short.QualityScore)
	}
	if long.ConsistencyScore != short.ConsistencyScore {
		t.Fatal("consistency is a batch property and must be shared")
	}
	if records[0].AlgorithmVersion != QualityAlgorithmVersion {
		t.Fatalf("version not stamped: %s", records[0].AlgorithmVersion)
	}
}

func TestGameAnalyzerClassifiesByLexicon(t *testing.T) {
	a := NewGameAnalyzer()
	activities := []lake.Activity{
		{ActivityID: "blog_models", Timestamp: time.Now(), Platform: "blog", ActivityType: lake.ActivityCreate,
			Content: "A framework for understanding systems: this mental model explains the core principle."},
		{ActivityID: "twitter_empty", Timestamp: time.Now(), Platform: "twitter", ActivityType: lake.ActivityCreate},
	}
	records, err := a.Compute(context.Background(), activities)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	var sig enhance.GameSignature
	if err := records[0].Decode(&sig); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sig.GameSignature.Primary() != "G3" {
		t.Fatalf("framework-heavy text should classify as G3, got %s", sig.GameSignature.Primary())
	}
	if sig.Confidence <= 0 {
		t.Fatalf("signal-bearing text should have confidence > 0: %v", sig.Confidence)
	}
	var empty enhance.GameSignature
	if err := records[1].Decode(&empty); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if empty.Confidence != 0 || empty.GameSignature.Primary() != "" {
		t.Fatalf("textless activity should get a zero signature: %+v", empty)
	}
}

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) ModelName() string { return "fake-embedder" }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.calls++
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = []float64{float64(len(text)), 1, 0}
	}
	return vectors, nil
}

func TestEmbeddingAnalyzerSkipsTextlessActivities(t *testing.T) {
	fake := &fakeEmbedder{}
	a, err := NewEmbeddingAnalyzer(fake)
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}
	activities := []lake.Activity{
		{ActivityID: "blog_a", Timestamp: time.Now(), Platform: "blog", ActivityType: lake.ActivityCreate, Content: "hello"},
		{ActivityID: "podcast_b", Timestamp: time.Now(), Platform: "podcast", ActivityType: lake.ActivityConsume},
	}
	records, err := a.Compute(context.Background(), activities)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("textless activity should be skipped, got %d records", len(records))
	}
	var emb enhance.Embedding
	if err := records[0].Decode(&emb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if emb.ActivityID != "blog_a" || emb.Dimensions != 3 || emb.ModelName != "fake-embedder" {
		t.Fatalf("embedding record wrong: %+v", emb)
	}
	if fake.calls != 1 {
		t.Fatalf("expected one batch call, got %d", fake.calls)
	}
}

func TestRegistryResolvesByTypeName(t *testing.T) {
	registry, err := DefaultRegistry(&fakeEmbedder{})
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	types := registry.Types()
	if len(types) != 3 {
		t.Fatalf("expected 3 registered analyzers, got %v", types)
	}
	a, err := registry.Get(enhance.TypeGameSignatures)
	if err != nil || a.Type() != enhance.TypeGameSignatures {
		t.Fatalf("lookup failed: %v %v", a, err)
	}
	if _, err := registry.Get("sentiment"); err == nil {
		t.Fatal("unknown type should fail lookup")
	}
}
