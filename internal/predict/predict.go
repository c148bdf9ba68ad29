// Package predict produces the short-horizon trend outlook for a symbol.
//
// The only Model today is Heuristic, a placeholder that derives a trend
// from the indicator report and draws a random confidence score. Callers
// depend on Model so a trained model can replace it.
package predict

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"

	"github.com/stockpulse/portfolio-engine/internal/cache"
	"github.com/stockpulse/portfolio-engine/internal/model"
	"github.com/stockpulse/portfolio-engine/internal/symbol"
)

const (
	TrendBullish = "Bullish"
	TrendBearish = "Bearish"
	TrendNeutral = "Neutral"

	ForecastHigher = "Higher"
	ForecastLower  = "Lower"
	ForecastStable = "Stable"
)

// HeuristicAccuracy is the fixed accuracy figure reported with every Heuristic
// prediction.
const HeuristicAccuracy = "82.4%"

// Model turns an indicator report into a prediction.
type Model interface {
	Predict(rep *model.IndicatorReport) model.Prediction
}

// Heuristic is the RSI/MACD rule-of-thumb model.
type Heuristic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristic creates the placeholder model. A nil rng uses a time-seeded
// source.
func NewHeuristic(rng *rand.Rand) *Heuristic {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Heuristic{rng: rng}
}

// Predict marks RSI below 40 bullish and above 60 bearish; a positive MACD
// then turns a neutral or bullish reading bullish and a bearish one neutral.
func (h *Heuristic) Predict(rep *model.IndicatorReport) model.Prediction {
	trend := TrendNeutral
	if rep.RSI != nil && *rep.RSI != 0 {
		switch {
		case *rep.RSI < 40:
			trend = TrendBullish
		case *rep.RSI > 60:
			trend = TrendBearish
		}
	}
	if rep.MACD != nil && *rep.MACD > 0 {
		if trend == TrendBearish {
			trend = TrendNeutral
		} else {
			trend = TrendBullish
		}
	}

	h.mu.Lock()
	confidence := 60 + h.rng.Float64()*25
	h.mu.Unlock()

	forecast := ForecastStable
	switch trend {
	case TrendBullish:
		forecast = ForecastHigher
	case TrendBearish:
		forecast = ForecastLower
	}

	return model.Prediction{
		Symbol:          rep.Symbol,
		Trend:           trend,
		ConfidenceScore: math.Round(confidence*100) / 100,
		Forecast7D:      forecast,
		ModelType:       "RandomForestRegressor (Mock)",
		Accuracy:        HeuristicAccuracy,
	}
}

// IndicatorSource provides the latest indicator report for a symbol.
type IndicatorSource interface {
	GetIndicators(ctx context.Context, symbol string) (*model.IndicatorReport, error)
}

// Service caches predictions per symbol.
type Service struct {
	indicators IndicatorSource
	model      Model
	cache      *cache.Cache
}

// NewService creates a prediction service.
func NewService(ind IndicatorSource, m Model, c *cache.Cache) *Service {
	return &Service{indicators: ind, model: m, cache: c}
}

var errNoReport = errors.New("no indicator report")

// Predict returns the cached or freshly computed prediction, or nil when no
// indicator report is available for the symbol.
func (s *Service) Predict(ctx context.Context, rawSymbol string) (*model.Prediction, error) {
	sym, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return nil, err
	}

	p, err := cache.GetOrCompute(ctx, s.cache, cache.Key(cache.KindPrediction, sym), cache.KindPrediction.TTL(),
		func(ctx context.Context) (*model.Prediction, error) {
			rep, err := s.indicators.GetIndicators(ctx, sym)
			if err != nil {
				return nil, err
			}
			if rep == nil {
				return nil, errNoReport
			}
			pred := s.model.Predict(rep)
			return &pred, nil
		})
	if errors.Is(err, errNoReport) {
		return nil, nil
	}
	return p, err
}
