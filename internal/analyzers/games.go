// File path: internal/analyzers/games.go
package analyzers

import (
	"context"
	"strings"
	"time"

	"github.com/contentlake/contentlake/internal/enhance"
	"github.com/contentlake/contentlake/internal/lake"
)

// GameAlgorithmVersion changes whenever the lexicons or normalization do.
const GameAlgorithmVersion = "1.0"

// gameLexicons map each of the six games to its signal vocabulary:
// G1 identity/canon, G2 idea mining, G3 models, G4 performance, G5 meaning,
// G6 network.
var gameLexicons = map[string][]string{
	"G1": {"identity", "who i am", "belong", "lineage", "origin", "values", "manifesto", "canon", "story", "journey"},
	"G2": {"idea", "tactic", "heuristic", "trick", "hack", "playbook", "tip", "lesson", "experiment", "discover"},
	"G3": {"model", "framework", "system", "theory", "understand", "explain", "structure", "principle", "map", "concept"},
	"G4": {"win", "compete", "metric", "growth", "revenue", "launch", "ship", "execute", "performance", "record"},
	"G5": {"meaning", "healing", "feel", "emotion", "transform", "wisdom", "reflect", "grateful", "vulnerable", "therapy"},
	"G6": {"community", "network", "together", "coordinate", "protocol", "collective", "join", "invite", "collaborate", "connect"},
}

// GameAnalyzer classifies content into the six games framework with a
// keyword lexicon per game. Scores are hit counts normalized by the densest
// game; confidence reflects how much signal the text carried at all.
type GameAnalyzer struct{}

// NewGameAnalyzer returns the lexicon classifier.
func NewGameAnalyzer() *GameAnalyzer { return &GameAnalyzer{} }

func (a *GameAnalyzer) Type() string    { return enhance.TypeGameSignatures }
func (a *GameAnalyzer) Version() string { return GameAlgorithmVersion }

// Compute produces one game-signature record per activity. Activities with
// no text get a zero signature with zero confidence.
func (a *GameAnalyzer) Compute(ctx context.Context, activities []lake.Activity) ([]enhance.Record, error) {
	computedAt := time.Now().UTC()
	records := make([]enhance.Record, 0, len(activities))
	for _, activity := range activities {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		scores, confidence := classify(activity.Text())
		record, err := enhance.NewRecord(enhance.GameSignature{
			Meta: enhance.Meta{
				ActivityID:       activity.ActivityID,
				ComputedAt:       computedAt,
				AlgorithmVersion: GameAlgorithmVersion,
			},
			GameSignature: scores,
			Confidence:    confidence,
		})
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func classify(text string) (enhance.GameScores, float64) {
	text = strings.ToLower(text)
	if strings.TrimSpace(text) == "" {
		return enhance.GameScores{}, 0
	}
	hits := make(map[string]int, len(gameLexicons))
	maxHits, totalHits := 0, 0
	for game, lexicon := range gameLexicons {
		for _, term := range lexicon {
			hits[game] += strings.Count(text, term)
		}
		totalHits += hits[game]
		if hits[game] > maxHits {
			maxHits = hits[game]
		}
	}
	if maxHits == 0 {
		return enhance.GameScores{}, 0
	}
	norm := func(game string) float64 {
		return clamp(float64(hits[game])/float64(maxHits), 0, 1)
	}
	scores := enhance.GameScores{
		G1: norm("G1"), G2: norm("G2"), G3: norm("G3"),
		G4: norm("G4"), G5: norm("G5"), G6: norm("G6"),
	}
	// Confidence saturates as the text carries more lexicon signal.
	confidence := clamp(float64(totalHits)/10, 0, 1)
	return scores, confidence
}
