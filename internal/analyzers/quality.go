// File path: internal/analyzers/quality.go
package analyzers

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/contentlake/contentlake/internal/enhance"
	"github.com/contentlake/contentlake/internal/lake"
)

// QualityAlgorithmVersion changes whenever the scoring heuristics below do.
const QualityAlgorithmVersion = "1.0"

// Quality assessment thresholds.
const (
	minContentLength   = 100
	idealContentLength = 2000
	minDuration        = 60
	idealDuration      = 1800
)

// QualityAnalyzer scores activities on a 0.00-1.00 scale from content depth,
// output consistency, and engagement heuristics. Consistency is a property
// of the batch (gaps between activities), so it is computed once per run and
// shared across the batch's records.
type QualityAnalyzer struct {
	ContentWeight     float64
	ConsistencyWeight float64
	DepthWeight       float64
}

// NewQualityAnalyzer returns an analyzer with the default weights.
func NewQualityAnalyzer() *QualityAnalyzer {
	return &QualityAnalyzer{ContentWeight: 0.4, ConsistencyWeight: 0.3, DepthWeight: 0.3}
}

func (a *QualityAnalyzer) Type() string    { return enhance.TypeQualityScores }
func (a *QualityAnalyzer) Version() string { return QualityAlgorithmVersion }

// Compute produces one quality record per activity.
func (a *QualityAnalyzer) Compute(ctx context.Context, activities []lake.Activity) ([]enhance.Record, error) {
	consistency := consistencyScore(activities)
	computedAt := time.Now().UTC()
	records := make([]enhance.Record, 0, len(activities))
	for _, activity := range activities {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		content := contentScore(activity)
		depth := depthScore(activity)
		quality := clamp(content*a.ContentWeight+consistency*a.ConsistencyWeight+depth*a.DepthWeight, 0, 1)
		record, err := enhance.NewRecord(enhance.QualityScore{
			Meta: enhance.Meta{
				ActivityID:       activity.ActivityID,
				ComputedAt:       computedAt,
				AlgorithmVersion: QualityAlgorithmVersion,
			},
			QualityScore:     quality,
			ContentScore:     content,
			ConsistencyScore: consistency,
			DepthScore:       depth,
		})
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func contentScore(activity lake.Activity) float64 {
	switch {
	case activity.Content != "":
		length := float64(len(activity.Content))
		if length >= idealContentLength {
			return 1.0
		}
		if length >= minContentLength {
			return length / idealContentLength
		}
		return length / minContentLength * 0.5
	case activity.DurationSeconds > 0:
		d := float64(activity.DurationSeconds)
		if d >= idealDuration {
			return 1.0
		}
		if d >= minDuration {
			return d / idealDuration
		}
		return 0.3
	default:
		return 0.5
	}
}

func depthScore(activity lake.Activity) float64 {
	var signals []float64
	if activity.Content != "" {
		words := len(strings.Fields(activity.Content))
		switch {
		case words >= 1000:
			signals = append(signals, 1.0)
		case words >= 500:
			signals = append(signals, 0.8)
		case words >= 200:
			signals = append(signals, 0.6)
		default:
			signals = append(signals, 0.4)
		}
	}
	if activity.DurationSeconds > 0 {
		switch {
		case activity.DurationSeconds >= 3600:
			signals = append(signals, 1.0)
		case activity.DurationSeconds >= 1800:
			signals = append(signals, 0.8)
		case activity.DurationSeconds >= 600:
			signals = append(signals, 0.6)
		default:
			signals = append(signals, 0.4)
		}
	}
	if activity.URL != "" {
		signals = append(signals, 0.6)
	}
	if activity.Title != "" {
		signals = append(signals, titleScore(activity.Title))
	}
	if len(signals) == 0 {
		return 0.5
	}
	return mean(signals)
}

// consistencyScore rewards frequent, regular output. The ideal cadence is
// a gap of one to seven days between activities.
func consistencyScore(activities []lake.Activity) float64 {
	if len(activities) < 2 {
		return 0.5
	}
	sorted := make([]lake.Activity, len(activities))
	copy(sorted, activities)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].Timestamp.Sub(sorted[i-1].Timestamp).Hours()/24)
	}
	avgGap := mean(gaps)

	var freq float64
	switch {
	case avgGap <= 1:
		freq = 1.0
	case avgGap <= 7:
		freq = 1.0 - (avgGap-1)/6*0.3
	case avgGap <= 30:
		freq = 0.7 - (avgGap-7)/23*0.4
	default:
		freq = math.Max(0.1, 0.3-(avgGap-30)/100)
	}

	regularity := 0.0
	if avgGap > 0 {
		regularity = math.Max(0, 1.0-stdDev(gaps)/avgGap)
	}
	return (freq + regularity) / 2
}

func titleScore(title string) float64 {
	score := 0.5
	length := len(title)
	switch {
	case length >= 20 && length <= 100:
		score += 0.2
	case length >= 10 && length <= 150:
		score += 0.1
	}
	words := strings.Fields(title)
	if len(words) > 0 {
		first := []rune(words[0])
		if len(first) > 0 && unicode.IsUpper(first[0]) {
			score += 0.1
		}
	}
	if title != strings.ToUpper(title) {
		score += 0.1
	}
	alpha := 0
	for _, r := range title {
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if length > 0 && float64(alpha)/float64(length) > 0.5 {
		score += 0.1
	}
	return math.Min(1.0, score)
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
