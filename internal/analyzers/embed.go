// File path: internal/analyzers/embed.go
package analyzers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/contentlake/contentlake/internal/enhance"
	"github.com/contentlake/contentlake/internal/lake"
)

// EmbeddingAlgorithmVersion changes when the embedding model or the text
// extraction changes.
const EmbeddingAlgorithmVersion = "1.0"

const embedBatchSize = 64

// Embedder turns a batch of texts into vectors. The production
// implementation calls the OpenAI embeddings API; tests substitute a fake.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	ModelName() string
}

// OpenAIEmbedder embeds text with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder returns an embedder for the given API key. An empty
// model defaults to text-embedding-3-small.
func NewOpenAIEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("analyzers: openai api key required")
	}
	m := openai.EmbeddingModel(model)
	if model == "" {
		m = openai.EmbeddingModelTextEmbedding3Small
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}, nil
}

func (e *OpenAIEmbedder) ModelName() string { return string(e.model) }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embed batch: got %d vectors for %d texts", len(resp.Data), len(texts))
	}
	vectors := make([][]float64, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

// EmbeddingAnalyzer computes the embeddings layer. Activities with no text
// are skipped rather than embedded as empty strings.
type EmbeddingAnalyzer struct {
	embedder Embedder
}

// NewEmbeddingAnalyzer wraps an embedder as an Analyzer.
func NewEmbeddingAnalyzer(embedder Embedder) (*EmbeddingAnalyzer, error) {
	if embedder == nil {
		return nil, errors.New("analyzers: embedder required")
	}
	return &EmbeddingAnalyzer{embedder: embedder}, nil
}

func (a *EmbeddingAnalyzer) Type() string { return enhance.TypeEmbeddings }

func (a *EmbeddingAnalyzer) Version() string {
	return EmbeddingAlgorithmVersion + "-" + a.embedder.ModelName()
}

func (a *EmbeddingAnalyzer) Compute(ctx context.Context, activities []lake.Activity) ([]enhance.Record, error) {
	var withText []lake.Activity
	var texts []string
	for _, activity := range activities {
		if text := activity.Text(); text != "" {
			withText = append(withText, activity)
			texts = append(texts, text)
		}
	}
	computedAt := time.Now().UTC()
	records := make([]enhance.Record, 0, len(withText))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := a.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for i, vector := range vectors {
			activity := withText[start+i]
			record, err := enhance.NewRecord(enhance.Embedding{
				Meta: enhance.Meta{
					ActivityID:       activity.ActivityID,
					ComputedAt:       computedAt,
					AlgorithmVersion: a.Version(),
				},
				Embedding:  vector,
				ModelName:  a.embedder.ModelName(),
				Dimensions: len(vector),
			})
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
	}
	return records, nil
}
