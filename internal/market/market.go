// Package market aggregates quote source data into the normalized payloads
// served to clients: live quotes, branding, history, sparklines, chart
// bundles, indicator reports and merged news.
//
// Every read goes through the quote cache. A symbol the source has no data
// for yields (nil, nil); only source failures surface as errors.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/portfolio-engine/internal/cache"
	"github.com/stockpulse/portfolio-engine/internal/indicator"
	"github.com/stockpulse/portfolio-engine/internal/model"
	"github.com/stockpulse/portfolio-engine/internal/news"
	"github.com/stockpulse/portfolio-engine/internal/quote"
	"github.com/stockpulse/portfolio-engine/internal/symbol"
)

const (
	// Per-source article caps before merging.
	structuredNewsLimit = 8
	feedNewsLimit       = 8

	liveNewsLimit = 12
	newsLimit     = 15

	indicatorPeriod = "60d"

	DefaultHistoryPeriod   = "1mo"
	DefaultChartPeriod     = "3mo"
	DefaultSparklinePeriod = "1mo"
	DefaultInterval        = "1d"

	colorUp   = "#10b981"
	colorDown = "#ef4444"
)

// errNoData keeps absent results out of the cache.
var errNoData = errors.New("no data")

// NewsCollector gathers syndicated articles for a symbol.
type NewsCollector interface {
	Collect(ctx context.Context, symbol string, limit int) []model.NewsItem
}

// Service is the market data aggregator.
type Service struct {
	source quote.Source
	feeds  NewsCollector
	cache  *cache.Cache
	logger *slog.Logger
}

// NewService creates an aggregator. feeds may be nil to disable syndicated
// news.
func NewService(src quote.Source, feeds NewsCollector, c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: src, feeds: feeds, cache: c, logger: logger}
}

// GetLiveData returns the latest quote with fundamentals and merged news.
func (s *Service) GetLiveData(ctx context.Context, rawSymbol string) (*model.Quote, error) {
	sym, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return nil, err
	}

	q, err := cache.GetOrCompute(ctx, s.cache, cache.Key(cache.KindLivePrice, sym), cache.KindLivePrice.TTL(),
		func(ctx context.Context) (*model.Quote, error) {
			return s.fetchLiveData(ctx, sym)
		})
	return absent(q, err)
}

func (s *Service) fetchLiveData(ctx context.Context, sym string) (*model.Quote, error) {
	bar, err := s.source.LatestBar(ctx, sym)
	if err != nil {
		return nil, fmt.Errorf("%w: latest bar for %s: %v", model.ErrUpstreamUnavailable, sym, err)
	}
	if bar == nil {
		return nil, errNoData
	}

	info := s.companyInfo(ctx, sym)

	prevClose := bar.Close
	if info.PreviousClose != nil {
		prevClose = *info.PreviousClose
	}
	change := bar.Close - prevClose
	changePct := 0.0
	if prevClose != 0 {
		changePct = change / prevClose * 100
	}

	q := &model.Quote{
		Symbol:       sym,
		Price:        indicator.Round2(bar.Close),
		Change:       indicator.Round2(change),
		ChangePct:    indicator.Round2(changePct),
		Volume:       bar.Volume,
		High:         indicator.Round2(bar.High),
		Low:          indicator.Round2(bar.Low),
		Open:         indicator.Round2(bar.Open),
		Fundamentals: info,
		News:         s.collectNews(ctx, sym, liveNewsLimit),
	}
	q.PreviousClose = nil
	return q, nil
}

// companyInfo is best-effort; a failing source yields empty fundamentals.
func (s *Service) companyInfo(ctx context.Context, sym string) model.Fundamentals {
	info, err := s.source.CompanyInfo(ctx, sym)
	if err != nil {
		s.logger.Warn("company info unavailable", "symbol", sym, "err", err)
		return model.Fundamentals{}
	}
	if info == nil {
		return model.Fundamentals{}
	}
	return *info
}

// GetBranding returns the logo and names for a symbol. Source failures yield
// empty strings.
func (s *Service) GetBranding(ctx context.Context, rawSymbol string) (model.Branding, error) {
	sym, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return model.Branding{}, err
	}

	return cache.GetOrCompute(ctx, s.cache, cache.Key(cache.KindBranding, sym), cache.KindBranding.TTL(),
		func(ctx context.Context) (model.Branding, error) {
			info := s.companyInfo(ctx, sym)
			return model.Branding{
				LogoURL:   info.LogoURL,
				LongName:  info.LongName,
				ShortName: info.ShortName,
			}, nil
		})
}

// GetHistory returns raw OHLCV bars, or nil when the source has none.
func (s *Service) GetHistory(ctx context.Context, rawSymbol, period, interval string) ([]model.Bar, error) {
	sym, period, interval, err := normalizeWindow(rawSymbol, period, DefaultHistoryPeriod, interval)
	if err != nil {
		return nil, err
	}
	return s.history(ctx, sym, period, interval)
}

func (s *Service) history(ctx context.Context, sym, period, interval string) ([]model.Bar, error) {
	bars, err := s.source.History(ctx, sym, period, interval)
	if err != nil {
		return nil, fmt.Errorf("%w: history for %s: %v", model.ErrUpstreamUnavailable, sym, err)
	}
	if len(bars) == 0 {
		return nil, nil
	}
	return bars, nil
}

// GetSparkline returns closing prices rounded to 2 decimals. Empty results
// are not cached.
func (s *Service) GetSparkline(ctx context.Context, rawSymbol, period string) ([]float64, error) {
	sym, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return nil, err
	}
	if period, err = symbol.Period(period, DefaultSparklinePeriod); err != nil {
		return nil, err
	}

	prices, err := cache.GetOrCompute(ctx, s.cache, cache.Key(cache.KindSparkline, sym, period), cache.KindSparkline.TTL(),
		func(ctx context.Context) ([]float64, error) {
			bars, err := s.history(ctx, sym, period, DefaultInterval)
			if err != nil {
				return nil, err
			}
			if len(bars) == 0 {
				return nil, errNoData
			}
			out := make([]float64, len(bars))
			for i, b := range bars {
				out[i] = indicator.Round2(b.Close)
			}
			return out, nil
		})
	if errors.Is(err, errNoData) {
		return []float64{}, nil
	}
	return prices, err
}

// GetChart returns OHLC candles with aligned EMA(20) and RSI(14) series,
// colored volume bars and a fundamentals snapshot. It returns nil when fewer
// than 20 bars are available.
func (s *Service) GetChart(ctx context.Context, rawSymbol, period, interval string) (*model.ChartBundle, error) {
	sym, period, interval, err := normalizeWindow(rawSymbol, period, DefaultChartPeriod, interval)
	if err != nil {
		return nil, err
	}

	key := cache.Key(cache.KindOHLCIndicators, sym, period, interval)
	bundle, err := cache.GetOrCompute(ctx, s.cache, key, cache.KindOHLCIndicators.TTL(),
		func(ctx context.Context) (*model.ChartBundle, error) {
			bars, err := s.history(ctx, sym, period, interval)
			if err != nil {
				return nil, err
			}
			if len(bars) < indicator.MinBars {
				return nil, errNoData
			}
			b := buildChart(sym, bars)
			b.Fundamentals = s.companyInfo(ctx, sym)
			b.PreviousClose = nil
			return b, nil
		})
	return absent(bundle, err)
}

func buildChart(sym string, bars []model.Bar) *model.ChartBundle {
	closes := indicator.Closes(bars)
	ema := indicator.EMA(closes, 20)
	rsi := indicator.RSI(closes, 14)

	b := &model.ChartBundle{
		Symbol:       sym,
		OHLC:         make([]model.Candle, len(bars)),
		EMA20:        make([]model.ChartPoint, len(bars)),
		RSI14:        make([]model.ChartPoint, len(bars)),
		Volume:       make([]model.VolumePoint, len(bars)),
		CurrentPrice: indicator.Round2(bars[len(bars)-1].Close),
	}
	for i, bar := range bars {
		x := bar.Time.UnixMilli()
		b.OHLC[i] = model.Candle{X: x, Y: [4]float64{
			indicator.Round2(bar.Open),
			indicator.Round2(bar.High),
			indicator.Round2(bar.Low),
			indicator.Round2(bar.Close),
		}}
		b.EMA20[i] = model.ChartPoint{X: x, Y: indicator.At(ema, i)}
		b.RSI14[i] = model.ChartPoint{X: x, Y: indicator.At(rsi, i)}

		color := colorDown
		if bar.Close >= bar.Open {
			color = colorUp
		}
		b.Volume[i] = model.VolumePoint{X: x, Y: bar.Volume, FillColor: color}
	}
	return b
}

// GetIndicators computes the indicator report over the last 60 daily bars.
// It returns nil when fewer than 20 bars are available.
func (s *Service) GetIndicators(ctx context.Context, rawSymbol string) (*model.IndicatorReport, error) {
	sym, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return nil, err
	}

	rep, err := cache.GetOrCompute(ctx, s.cache, cache.Key(cache.KindIndicators, sym), cache.KindIndicators.TTL(),
		func(ctx context.Context) (*model.IndicatorReport, error) {
			bars, err := s.history(ctx, sym, indicatorPeriod, DefaultInterval)
			if err != nil {
				return nil, err
			}
			if rep := indicator.Report(sym, bars); rep != nil {
				return rep, nil
			}
			return nil, errNoData
		})
	return absent(rep, err)
}

// GetNews returns merged, deduplicated articles for a symbol, newest first.
func (s *Service) GetNews(ctx context.Context, rawSymbol string) ([]model.NewsItem, error) {
	sym, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return nil, err
	}
	return cache.GetOrCompute(ctx, s.cache, cache.Key(cache.KindNews, sym), cache.KindNews.TTL(),
		func(ctx context.Context) ([]model.NewsItem, error) {
			return s.collectNews(ctx, sym, newsLimit), nil
		})
}

// collectNews merges structured and syndicated articles. Each source is
// best-effort.
func (s *Service) collectNews(ctx context.Context, sym string, limit int) []model.NewsItem {
	var structured []model.NewsItem
	raw, err := s.source.News(ctx, sym)
	if err != nil {
		s.logger.Warn("structured news unavailable", "symbol", sym, "err", err)
	} else {
		structured = news.NormalizeStructured(raw)
		if len(structured) > structuredNewsLimit {
			structured = structured[:structuredNewsLimit]
		}
	}

	var syndicated []model.NewsItem
	if s.feeds != nil {
		syndicated = s.feeds.Collect(ctx, sym, feedNewsLimit)
	}
	return news.Merge(limit, structured, syndicated)
}

// LivePrice returns the current price as a decimal, or false when the source
// has no quote for the symbol.
func (s *Service) LivePrice(ctx context.Context, rawSymbol string) (decimal.Decimal, bool, error) {
	q, err := s.GetLiveData(ctx, rawSymbol)
	if err != nil {
		return decimal.Zero, false, err
	}
	if q == nil {
		return decimal.Zero, false, nil
	}
	return decimal.NewFromFloat(q.Price), true, nil
}

func normalizeWindow(rawSymbol, period, defPeriod, interval string) (string, string, string, error) {
	sym, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return "", "", "", err
	}
	if period, err = symbol.Period(period, defPeriod); err != nil {
		return "", "", "", err
	}
	if interval, err = symbol.Interval(interval, DefaultInterval); err != nil {
		return "", "", "", err
	}
	return sym, period, interval, nil
}

// absent converts the internal no-data sentinel to a nil result.
func absent[T any](v *T, err error) (*T, error) {
	if errors.Is(err, errNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
