package pipeline

import (
	"context"

	"github.com/Beck-Develops/smart-cabin-safety-system/internal/domain"
)

// ReadingScorer implements Scorer by parsing telemetry and assessing it with
// an optional predictor.
type ReadingScorer struct {
	predictor domain.Predictor
}

// NewScorer creates a ReadingScorer. Pass a nil predictor to fall back to the
// rule-based heat index category.
func NewScorer(predictor domain.Predictor) *ReadingScorer {
	return &ReadingScorer{predictor: predictor}
}

func (s *ReadingScorer) Score(_ context.Context, raw domain.RawReading) (domain.Assessment, error) {
	r, err := domain.ParseReading(raw)
	if err != nil {
		return domain.Assessment{}, err
	}
	return domain.Assess(r, s.predictor), nil
}
