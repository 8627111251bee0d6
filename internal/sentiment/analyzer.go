// Package sentiment scores evidence text with VADER.
package sentiment

import (
	"context"
	"strings"

	"github.com/jonreiter/govader"

	"github.com/gamima/eventforge/internal/models"
	"github.com/gamima/eventforge/internal/pipeline"
)

// Thresholds separating positive and negative compound scores from the
// neutral band.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

// Analyzer scores a sentiment signal over the text of an evidence
// bundle. It implements the scorer interface used by the pipeline.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

// NewAnalyzer creates a sentiment scorer backed by the VADER lexicon.
func NewAnalyzer() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

func (a *Analyzer) Name() string {
	return models.SignalNameSentiment
}

func (a *Analyzer) SignalKind() models.SignalKind {
	return models.SignalSentiment
}

// Score averages per-sentence compound scores across every snippet in
// the bundle. Bundles with no scoreable text produce no signal.
func (a *Analyzer) Score(ctx context.Context, bundle *models.EvidenceBundle) (float64, error) {
	var sum float64
	var n int
	for _, sn := range bundle.Snippets {
		for _, sentence := range splitSentences(sn.Text) {
			sum += a.vader.PolarityScores(sentence).Compound
			n++
		}
	}
	if n == 0 {
		return 0, pipeline.ErrNoSignal
	}
	return sum / float64(n), nil
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// Label maps a compound score onto the conventional three classes.
func Label(compound float64) string {
	switch {
	case compound >= PositiveThreshold:
		return "positive"
	case compound <= NegativeThreshold:
		return "negative"
	default:
		return "neutral"
	}
}
