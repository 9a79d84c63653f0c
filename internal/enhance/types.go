// File path: internal/enhance/types.go
package enhance

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/contentlake/contentlake/internal/lake"
)

// Built-in enhancement types. The store itself is open to any type name;
// these are the layers the analyzers compute.
const (
	TypeQualityScores  = "quality_scores"
	TypeGameSignatures = "game_signatures"
	TypeEmbeddings     = "embeddings"
)

// KnownTypes lists the built-in enhancement layers.
var KnownTypes = []string{TypeQualityScores, TypeGameSignatures, TypeEmbeddings}

var typeNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)

func validateTypeName(enhancementType string) error {
	if !typeNamePattern.MatchString(enhancementType) {
		return &lake.ValidationError{Field: "enhancement_type", Reason: fmt.Sprintf("%q is not a valid type name", enhancementType)}
	}
	return nil
}

// Meta carries the fields every enhancement record must have: which activity
// it scores, when it was computed, and by which algorithm version. The
// version is an opaque string; the store only ever compares it for equality.
type Meta struct {
	ActivityID       string    `json:"activity_id"`
	ComputedAt       time.Time `json:"computed_at"`
	AlgorithmVersion string    `json:"algorithm_version"`
}

// Record is one enhancement record of any type: the decoded Meta plus the
// full document it came from, so type-specific fields survive a round trip
// through the store untouched.
type Record struct {
	Meta
	Raw json.RawMessage
}

// NewRecord wraps a typed enhancement value as a store Record. The value
// must marshal to a JSON object carrying the Meta fields.
func NewRecord(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("encode enhancement: %w", err)
	}
	return parseRecord(raw)
}

func parseRecord(line []byte) (Record, error) {
	var meta Meta
	if err := json.Unmarshal(line, &meta); err != nil {
		return Record{}, &lake.ValidationError{Reason: fmt.Sprintf("malformed enhancement record: %v", err)}
	}
	if meta.ActivityID == "" {
		return Record{}, &lake.ValidationError{Field: "activity_id", Reason: "is required"}
	}
	if meta.ComputedAt.IsZero() {
		return Record{}, &lake.ValidationError{Field: "computed_at", Reason: "is required"}
	}
	raw := make(json.RawMessage, len(line))
	copy(raw, line)
	return Record{Meta: meta, Raw: raw}, nil
}

// Decode unmarshals the record's full document into a typed value.
func (r Record) Decode(v any) error {
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("decode enhancement for %s: %w", r.ActivityID, err)
	}
	return nil
}

// QualityScore is the quality_scores layer record: an overall score plus the
// component scores that produced it, all in [0, 1].
type QualityScore struct {
	Meta
	QualityScore     float64 `json:"quality_score"`
	ContentScore     float64 `json:"content_score"`
	ConsistencyScore float64 `json:"consistency_score"`
	DepthScore       float64 `json:"depth_score"`
}

// GameScores is a distribution across the six content games, each in [0, 1]:
// G1 identity/canon, G2 idea mining, G3 models, G4 performance, G5 meaning,
// G6 network.
type GameScores struct {
	G1 float64 `json:"G1"`
	G2 float64 `json:"G2"`
	G3 float64 `json:"G3"`
	G4 float64 `json:"G4"`
	G5 float64 `json:"G5"`
	G6 float64 `json:"G6"`
}

// Primary returns the highest-scoring game, or "" when all scores are zero.
func (g GameScores) Primary() string {
	names := []string{"G1", "G2", "G3", "G4", "G5", "G6"}
	values := []float64{g.G1, g.G2, g.G3, g.G4, g.G5, g.G6}
	best, bestScore := "", 0.0
	for i, v := range values {
		if v > bestScore {
			best, bestScore = names[i], v
		}
	}
	return best
}

// GameSignature is the game_signatures layer record.
type GameSignature struct {
	Meta
	GameSignature GameScores `json:"game_signature"`
	Confidence    float64    `json:"confidence"`
}

// Embedding is the embeddings layer record.
type Embedding struct {
	Meta
	Embedding  []float64 `json:"embedding"`
	ModelName  string    `json:"model_name"`
	Dimensions int       `json:"dimensions"`
}

// EnhancedActivity joins an activity with its current enhancement records.
// It is built on demand and never persisted; absent layers stay nil.
type EnhancedActivity struct {
	Activity  lake.Activity  `json:"activity"`
	Quality   *QualityScore  `json:"quality,omitempty"`
	Games     *GameSignature `json:"games,omitempty"`
	Embedding *Embedding     `json:"embedding,omitempty"`
}

// TimelineEntry is one record in an activity's enhancement timeline, tagged
// with where it came from: "latest" or a history snapshot filename.
type TimelineEntry struct {
	Source string          `json:"source"`
	Record json.RawMessage `json:"record"`

	ComputedAt       time.Time `json:"computed_at"`
	AlgorithmVersion string    `json:"algorithm_version"`
}
