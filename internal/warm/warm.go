// Package warm keeps the quote cache populated for watched symbols.
package warm

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

const (
	defaultTimeout = 30 * time.Second
	concurrency    = 4
)

// SymbolLister lists every symbol some user watches.
type SymbolLister interface {
	ListWatchedSymbols(ctx context.Context) ([]string, error)
}

// QuoteLoader reads a live quote through the cache.
type QuoteLoader interface {
	GetLiveData(ctx context.Context, symbol string) (*model.Quote, error)
}

// Scheduler manages the warming job.
type Scheduler struct {
	cron    *cron.Cron
	symbols SymbolLister
	quotes  QuoteLoader
	timeout time.Duration
	logger  *slog.Logger
}

// NewScheduler creates a scheduler. It does nothing until Start.
func NewScheduler(symbols SymbolLister, quotes QuoteLoader, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		symbols: symbols,
		quotes:  quotes,
		timeout: defaultTimeout,
		logger:  logger,
	}
}

// Start registers the job on a standard five-field cron spec and starts
// the scheduler.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("cache warming scheduled", "spec", spec)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("cache warming stopped")
}

// RunOnce loads the live quote of every watched symbol and returns how many
// succeeded. Failures are logged and skipped.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	syms, err := s.symbols.ListWatchedSymbols(ctx)
	if err != nil {
		s.logger.Error("list watched symbols", "err", err)
		return 0
	}

	results := make([]bool, len(syms))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, sym := range syms {
		i, sym := i, sym
		g.Go(func() error {
			q, err := s.quotes.GetLiveData(ctx, sym)
			if err != nil {
				s.logger.Warn("warm quote", "symbol", sym, "err", err)
				return nil
			}
			results[i] = q != nil
			return nil
		})
	}
	g.Wait()

	warmed := 0
	for _, ok := range results {
		if ok {
			warmed++
		}
	}
	s.logger.Info("cache warmed", "symbols", len(syms), "warmed", warmed)
	return warmed
}
