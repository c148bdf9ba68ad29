package model

import "time"

// Bar is one OHLCV sample from the quote source.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Fundamentals is the company snapshot returned by the quote source. Numeric
// fields are nil when the source does not report them.
type Fundamentals struct {
	LongName         string   `json:"long_name"`
	ShortName        string   `json:"short_name"`
	LogoURL          string   `json:"logo_url"`
	Summary          string   `json:"summary"`
	Sector           string   `json:"sector"`
	Industry         string   `json:"industry"`
	PreviousClose    *float64 `json:"previous_close,omitempty"`
	MarketCap        *float64 `json:"market_cap"`
	PERatio          *float64 `json:"pe_ratio"`
	EPS              *float64 `json:"eps"`
	DividendYield    *float64 `json:"dividend_yield"`
	Beta             *float64 `json:"beta"`
	TargetMeanPrice  *float64 `json:"target_mean_price"`
	TargetHighPrice  *float64 `json:"target_high_price"`
	TargetLowPrice   *float64 `json:"target_low_price"`
	Recommendation   string   `json:"recommendation"`
	NumberOfAnalysts *int64   `json:"number_of_analysts"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  *float64 `json:"fifty_two_week_low"`
}

// Branding is the cosmetic identity of a company.
type Branding struct {
	LogoURL   string `json:"logo_url"`
	LongName  string `json:"long_name"`
	ShortName string `json:"short_name"`
}

// NewsItem is the normalized schema every news adapter produces.
type NewsItem struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Publisher   string `json:"publisher"`
	Link        string `json:"link"`
	PublishTime *int64 `json:"provider_publish_time"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Source      string `json:"source"`
}

// Quote is the normalized live snapshot of a symbol.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	Volume    int64   `json:"volume"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Open      float64 `json:"open"`

	Fundamentals

	News []NewsItem `json:"news"`
}

// ChartPoint is one (timestamp, value) sample of an indicator series. Y is nil
// while the indicator is undefined.
type ChartPoint struct {
	X int64    `json:"x"`
	Y *float64 `json:"y"`
}

// Candle is one OHLC chart sample; Y holds open, high, low, close.
type Candle struct {
	X int64      `json:"x"`
	Y [4]float64 `json:"y"`
}

// VolumePoint is one volume bar colored by the direction of the session.
type VolumePoint struct {
	X         int64  `json:"x"`
	Y         int64  `json:"y"`
	FillColor string `json:"fillColor"`
}

// ChartBundle is the charting payload: OHLC, aligned EMA(20)/RSI(14), volume
// and a fundamentals snapshot.
type ChartBundle struct {
	Symbol       string        `json:"symbol"`
	OHLC         []Candle      `json:"ohlc"`
	EMA20        []ChartPoint  `json:"ema_20"`
	RSI14        []ChartPoint  `json:"rsi_14"`
	Volume       []VolumePoint `json:"volume"`
	CurrentPrice float64       `json:"current_price"`

	Fundamentals
}

// Signal is the discrete classification of the latest indicator sample.
type Signal string

const (
	SignalOversold   Signal = "OVERSOLD"
	SignalOverbought Signal = "OVERBOUGHT"
	SignalBullish    Signal = "BULLISH"
	SignalBearish    Signal = "BEARISH"
	SignalNeutral    Signal = "NEUTRAL"
)

// IndicatorReport holds the latest value of every indicator. Nil fields are
// undefined for the available history.
type IndicatorReport struct {
	Symbol        string   `json:"symbol"`
	RSI           *float64 `json:"rsi"`
	MACD          *float64 `json:"macd"`
	SignalLine    *float64 `json:"signal_line"`
	MACDHistogram *float64 `json:"macd_histogram"`
	SMA14         *float64 `json:"sma_14"`
	SMA50         *float64 `json:"sma_50"`
	EMA14         *float64 `json:"ema_14"`
	EMA20         *float64 `json:"ema_20"`
	BBUpper       *float64 `json:"bb_upper"`
	BBMiddle      *float64 `json:"bb_middle"`
	BBLower       *float64 `json:"bb_lower"`
	ATR           *float64 `json:"atr"`
	Signal        Signal   `json:"signal"`
	PriceVsEMA20  string   `json:"price_vs_ema20"`
}

// Prediction is the output of the placeholder trend model.
type Prediction struct {
	Symbol          string  `json:"symbol"`
	Trend           string  `json:"trend"`
	ConfidenceScore float64 `json:"confidence_score"`
	Forecast7D      string  `json:"forecast_7d"`
	ModelType       string  `json:"model_type"`
	Accuracy        string  `json:"accuracy"`
}
