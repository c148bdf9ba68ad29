package warm_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/portfolio-engine/internal/model"
	"github.com/stockpulse/portfolio-engine/internal/warm"
)

type symbols []string

func (s symbols) ListWatchedSymbols(context.Context) ([]string, error) { return s, nil }

type recordingQuotes struct {
	mu   sync.Mutex
	seen []string
}

func (r *recordingQuotes) GetLiveData(_ context.Context, sym string) (*model.Quote, error) {
	r.mu.Lock()
	r.seen = append(r.seen, sym)
	r.mu.Unlock()
	switch sym {
	case "DOWN":
		return nil, errors.New("timeout")
	case "GONE":
		return nil, nil
	}
	return &model.Quote{Symbol: sym}, nil
}

func TestRunOnce(t *testing.T) {
	quotes := &recordingQuotes{}
	s := warm.NewScheduler(symbols{"AAPL", "DOWN", "GONE", "MSFT"}, quotes, nil)

	warmed := s.RunOnce(context.Background())
	assert.Equal(t, 2, warmed)
	assert.ElementsMatch(t, []string{"AAPL", "DOWN", "GONE", "MSFT"}, quotes.seen)
}

func TestStart_RejectsBadSpec(t *testing.T) {
	s := warm.NewScheduler(symbols{}, &recordingQuotes{}, nil)
	require.Error(t, s.Start("every five minutes"))
}

func TestStartStop(t *testing.T) {
	s := warm.NewScheduler(symbols{}, &recordingQuotes{}, nil)
	require.NoError(t, s.Start("*/5 * * * *"))
	s.Stop()
}
