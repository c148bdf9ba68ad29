package model

import "github.com/shopspring/decimal"

// Holding is one position valued at the live price.
type Holding struct {
	Symbol       string          `json:"symbol"`
	LogoURL      string          `json:"logo_url"`
	LongName     string          `json:"long_name"`
	ShortName    string          `json:"short_name"`
	Quantity     int64           `json:"quantity"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	LivePrice    decimal.Decimal `json:"live_price"`
	Investment   decimal.Decimal `json:"investment"`
	CurrentValue decimal.Decimal `json:"current_value"`
	PL           decimal.Decimal `json:"p_l"`
	PLPct        decimal.Decimal `json:"p_l_pct"`
	Change       float64         `json:"change"`
	ChangePct    float64         `json:"change_pct"`
	Volume       int64           `json:"volume"`
	High         float64         `json:"high"`
	Low          float64         `json:"low"`
	Sparkline    []float64       `json:"sparkline"`
	LiveData     bool            `json:"live_data"`
}

// PortfolioSummary aggregates every holding.
type PortfolioSummary struct {
	TotalInvestment   decimal.Decimal `json:"total_investment"`
	TotalCurrentValue decimal.Decimal `json:"total_current_value"`
	TotalPL           decimal.Decimal `json:"total_p_l"`
	TotalPLPct        decimal.Decimal `json:"total_p_l_pct"`
	StockCount        int             `json:"stock_count"`
}

// Allocation is a holding's share of the total current value.
type Allocation struct {
	Symbol     string          `json:"symbol"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
}

// PortfolioReport is the analytics payload for a user's portfolio.
type PortfolioReport struct {
	Summary    PortfolioSummary `json:"summary"`
	Holdings   []Holding        `json:"holdings"`
	Allocation []Allocation     `json:"allocation"`
}

// Performer is a holding's profit and loss, used for best/worst ranking.
type Performer struct {
	Symbol string          `json:"symbol"`
	PL     decimal.Decimal `json:"p_l"`
	PLPct  decimal.Decimal `json:"p_l_pct"`
}

// PerformanceReport ranks holdings that have live market data.
type PerformanceReport struct {
	Message              string          `json:"message,omitempty"`
	TotalNetGain         decimal.Decimal `json:"total_net_gain"`
	TotalNetGainPct      decimal.Decimal `json:"total_net_gain_pct"`
	BestPerforming       *Performer      `json:"best_performing"`
	WorstPerforming      *Performer      `json:"worst_performing"`
	Volatility           string          `json:"volatility"`
	DiversificationCount int             `json:"diversification_count"`
}
