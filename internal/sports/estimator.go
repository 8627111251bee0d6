package sports

import (
	"context"

	"github.com/gamima/eventforge/internal/models"
	"github.com/gamima/eventforge/internal/pipeline"
)

// Estimator scores a win probability signal from bookmaker-implied
// fixture odds in the evidence bundle.
type Estimator struct{}

// NewEstimator creates a win probability scorer.
func NewEstimator() *Estimator {
	return &Estimator{}
}

func (e *Estimator) Name() string {
	return models.SignalNameWinProbability
}

func (e *Estimator) SignalKind() models.SignalKind {
	return models.SignalProbability
}

// Score averages the implied home-win probabilities across fixtures that
// carry both a team pairing and bookmaker prices. Bundles without such
// fixtures produce no signal.
func (e *Estimator) Score(ctx context.Context, bundle *models.EvidenceBundle) (float64, error) {
	var sum float64
	var n int
	for _, fx := range bundle.Fixtures() {
		if !fx.HasTeams() || fx.WinProbability <= 0 {
			continue
		}
		sum += fx.WinProbability
		n++
	}
	if n == 0 {
		return 0, pipeline.ErrNoSignal
	}
	return sum / float64(n), nil
}
