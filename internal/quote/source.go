// Package quote is the boundary to the external market data provider.
//
// Source methods return (nil, nil) when the provider has no data for a
// symbol; an error means the provider failed.
package quote

import (
	"context"
	"encoding/json"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

// Source is the external quote provider.
type Source interface {
	// LatestBar returns the most recent daily bar.
	LatestBar(ctx context.Context, symbol string) (*model.Bar, error)

	// History returns bars for period at interval, oldest first.
	History(ctx context.Context, symbol, period, interval string) ([]model.Bar, error)

	// CompanyInfo returns the fundamentals snapshot.
	CompanyInfo(ctx context.Context, symbol string) (*model.Fundamentals, error)

	// News returns raw provider articles, left for the news package to
	// normalize.
	News(ctx context.Context, symbol string) ([]json.RawMessage, error)
}
