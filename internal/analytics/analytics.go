// Package analytics derives portfolio reports from current positions and
// live quotes. It holds no state of its own.
package analytics

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

// SparklinePeriod is the window of the per-holding price sparkline.
const SparklinePeriod = "1mo"

// NoDataMessage is reported by Performance for a user without holdings.
const NoDataMessage = "No portfolio data found"

// enrichConcurrency bounds the parallel quote lookups for one report.
const enrichConcurrency = 4

var hundred = decimal.NewFromInt(100)

// MarketData is the slice of the market aggregator the reports read.
type MarketData interface {
	GetLiveData(ctx context.Context, symbol string) (*model.Quote, error)
	GetBranding(ctx context.Context, symbol string) (model.Branding, error)
	GetSparkline(ctx context.Context, symbol, period string) ([]float64, error)
}

// PositionLister lists a user's positions.
type PositionLister interface {
	ListPositions(ctx context.Context, userID string) ([]model.Position, error)
}

// VolatilityRater labels the volatility of a set of holdings.
type VolatilityRater interface {
	Rate(ctx context.Context, holdings []model.Position) string
}

// ConstantVolatility rates every portfolio with the same label.
type ConstantVolatility string

// Rate implements VolatilityRater.
func (c ConstantVolatility) Rate(context.Context, []model.Position) string { return string(c) }

// DefaultVolatility is the placeholder rating.
const DefaultVolatility = ConstantVolatility("Medium")

// Service builds portfolio and performance reports.
type Service struct {
	positions  PositionLister
	market     MarketData
	volatility VolatilityRater
	logger     *slog.Logger
}

// NewService creates an analytics service. A nil rater uses DefaultVolatility.
func NewService(positions PositionLister, market MarketData, rater VolatilityRater, logger *slog.Logger) *Service {
	if rater == nil {
		rater = DefaultVolatility
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{positions: positions, market: market, volatility: rater, logger: logger}
}

// valuation is one open position with its live quote, if any, and the
// cosmetic enrichment used by the portfolio report.
type valuation struct {
	pos       model.Position
	quote     *model.Quote
	brand     model.Branding
	sparkline []float64
}

// holdings returns the open positions of a user valued against live quotes.
// Quote failures are logged and treated as no live data. With enrich set,
// branding and sparklines are fetched too.
func (s *Service) holdings(ctx context.Context, userID string, enrich bool) ([]valuation, error) {
	positions, err := s.positions.ListPositions(ctx, userID)
	if err != nil {
		return nil, err
	}

	vals := make([]valuation, 0, len(positions))
	for _, p := range positions {
		if p.Quantity > 0 {
			vals = append(vals, valuation{pos: p})
		}
	}

	var g errgroup.Group
	g.SetLimit(enrichConcurrency)
	for i := range vals {
		i := i
		g.Go(func() error {
			s.value(ctx, &vals[i], enrich)
			return nil
		})
	}
	g.Wait()
	return vals, nil
}

func (s *Service) value(ctx context.Context, v *valuation, enrich bool) {
	sym := v.pos.Symbol
	q, err := s.market.GetLiveData(ctx, sym)
	if err != nil {
		s.logger.Warn("live data unavailable", "symbol", sym, "err", err)
	} else {
		v.quote = q
	}
	if !enrich {
		return
	}

	if v.brand, err = s.market.GetBranding(ctx, sym); err != nil {
		s.logger.Warn("branding unavailable", "symbol", sym, "err", err)
	}
	if v.sparkline, err = s.market.GetSparkline(ctx, sym, SparklinePeriod); err != nil {
		s.logger.Warn("sparkline unavailable", "symbol", sym, "err", err)
	}
	if v.sparkline == nil {
		v.sparkline = []float64{}
	}
}

// Portfolio returns every open holding valued at the live price, the totals
// and the allocation by current value. Holdings without a quote are valued
// at their average cost.
func (s *Service) Portfolio(ctx context.Context, userID string) (*model.PortfolioReport, error) {
	vals, err := s.holdings(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	report := &model.PortfolioReport{
		Holdings:   make([]model.Holding, 0, len(vals)),
		Allocation: make([]model.Allocation, 0, len(vals)),
	}
	var totalInvestment, totalValue decimal.Decimal
	currents := make([]decimal.Decimal, len(vals))

	for i, v := range vals {
		livePrice := v.pos.AverageCost
		if v.quote != nil {
			livePrice = decimal.NewFromFloat(v.quote.Price)
		}
		qty := decimal.NewFromInt(v.pos.Quantity)
		investment := qty.Mul(v.pos.AverageCost)
		current := qty.Mul(livePrice)
		pl := current.Sub(investment)

		totalInvestment = totalInvestment.Add(investment)
		totalValue = totalValue.Add(current)
		currents[i] = current

		h := model.Holding{
			Symbol:       v.pos.Symbol,
			LogoURL:      v.brand.LogoURL,
			LongName:     v.brand.LongName,
			ShortName:    v.brand.ShortName,
			Quantity:     v.pos.Quantity,
			AvgPrice:     v.pos.AverageCost.Round(2),
			LivePrice:    livePrice.Round(2),
			Investment:   investment.Round(2),
			CurrentValue: current.Round(2),
			PL:           pl.Round(2),
			PLPct:        percent(pl, investment).Round(2),
			Sparkline:    v.sparkline,
			LiveData:     v.quote != nil,
		}
		if q := v.quote; q != nil {
			h.LogoURL = firstNonEmpty(h.LogoURL, q.LogoURL)
			h.LongName = firstNonEmpty(h.LongName, q.LongName)
			h.ShortName = firstNonEmpty(h.ShortName, q.ShortName)
			h.Change = q.Change
			h.ChangePct = q.ChangePct
			h.Volume = q.Volume
			h.High = q.High
			h.Low = q.Low
		}
		report.Holdings = append(report.Holdings, h)
	}

	for i, h := range report.Holdings {
		report.Allocation = append(report.Allocation, model.Allocation{
			Symbol:     h.Symbol,
			Value:      h.CurrentValue,
			Percentage: percent(currents[i], totalValue).Round(1),
		})
	}

	totalPL := totalValue.Sub(totalInvestment)
	report.Summary = model.PortfolioSummary{
		TotalInvestment:   totalInvestment.Round(2),
		TotalCurrentValue: totalValue.Round(2),
		TotalPL:           totalPL.Round(2),
		TotalPLPct:        percent(totalPL, totalInvestment).Round(2),
		StockCount:        len(report.Holdings),
	}
	return report, nil
}

// Performance ranks the holdings that have live data by percentage gain.
// Holdings without a quote are skipped, not counted as zero.
func (s *Service) Performance(ctx context.Context, userID string) (*model.PerformanceReport, error) {
	vals, err := s.holdings(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return &model.PerformanceReport{Message: NoDataMessage}, nil
	}

	var (
		totalPL, totalInvestment decimal.Decimal
		best, worst              *model.Performer
	)
	open := make([]model.Position, 0, len(vals))
	for _, v := range vals {
		open = append(open, v.pos)
		if v.quote == nil {
			continue
		}
		qty := decimal.NewFromInt(v.pos.Quantity)
		investment := qty.Mul(v.pos.AverageCost)
		pl := qty.Mul(decimal.NewFromFloat(v.quote.Price)).Sub(investment)
		pct := percent(pl, investment)

		totalPL = totalPL.Add(pl)
		totalInvestment = totalInvestment.Add(investment)

		perf := &model.Performer{Symbol: v.pos.Symbol, PL: pl.Round(2), PLPct: pct.Round(2)}
		if best == nil || perf.PLPct.GreaterThan(best.PLPct) {
			best = perf
		}
		if worst == nil || perf.PLPct.LessThan(worst.PLPct) {
			worst = perf
		}
	}

	return &model.PerformanceReport{
		TotalNetGain:         totalPL.Round(2),
		TotalNetGainPct:      percent(totalPL, totalInvestment).Round(2),
		BestPerforming:       best,
		WorstPerforming:      worst,
		Volatility:           s.volatility.Rate(ctx, open),
		DiversificationCount: len(vals),
	}, nil
}

// percent returns part/whole*100, or zero when whole is not positive.
func percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
