package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func f(v float64) *float64 { return &v }

// trendBars builds n daily bars with closes start, start+step, ...
func trendBars(n int, start, step float64) []model.Bar {
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := range bars {
		c := start + step*float64(i)
		bars[i] = model.Bar{
			Time:   day.AddDate(0, 0, i),
			Open:   c - step/2,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: int64(1000 + i),
		}
	}
	return bars
}

// --- Series tests ---

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Errorf("SMA should be undefined before the window fills, got %v", got[:2])
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if got[i+2] != w {
			t.Errorf("SMA[%d] = %v, want %v", i+2, got[i+2], w)
		}
	}
}

func TestEMA_SeededByFirstValue(t *testing.T) {
	got := EMA([]float64{1, 2, 3}, 3) // alpha = 0.5
	want := []float64{1, 1.5, 2.25}
	for i, w := range want {
		if !approx(got[i], w, 1e-12) {
			t.Errorf("EMA[%d] = %v, want %v", i, got[i], w)
		}
	}
}

func TestStdDev_Sample(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got := StdDev(x, 8)
	if !approx(got[7], math.Sqrt(32.0/7.0), 1e-12) {
		t.Errorf("sample stddev = %v, want %v", got[7], math.Sqrt(32.0/7.0))
	}
	if !math.IsNaN(got[6]) {
		t.Errorf("stddev should be undefined before the window fills, got %v", got[6])
	}
}

func TestRSI_DefinedFromFourteenthSample(t *testing.T) {
	closes := Closes(trendBars(20, 100, 1))
	rsi := RSI(closes, 14)
	if !math.IsNaN(rsi[12]) {
		t.Errorf("RSI[12] should be undefined, got %v", rsi[12])
	}
	if math.IsNaN(rsi[13]) {
		t.Fatal("RSI[13] should be defined")
	}
	if rsi[19] != 100 {
		t.Errorf("RSI of a strictly rising series should be 100, got %v", rsi[19])
	}
}

func TestRSI_FlatSeriesUndefined(t *testing.T) {
	closes := Closes(trendBars(30, 50, 0))
	rsi := RSI(closes, 14)
	if !math.IsNaN(rsi[29]) {
		t.Errorf("RSI of a flat series should be undefined, got %v", rsi[29])
	}
}

func TestRSI_FallingSeriesIsZero(t *testing.T) {
	closes := Closes(trendBars(30, 200, -1))
	rsi := RSI(closes, 14)
	if rsi[29] != 0 {
		t.Errorf("RSI of a strictly falling series should be 0, got %v", rsi[29])
	}
}

func TestATR_FirstTrueRangeIsHighLow(t *testing.T) {
	bars := []model.Bar{
		{High: 12, Low: 10, Close: 11},
		{High: 15, Low: 13, Close: 14}, // gap up: |15-11| = 4
	}
	got := ATR(bars, 2)
	if got[1] != 3 { // (2 + 4) / 2
		t.Errorf("ATR = %v, want 3", got[1])
	}
}

func TestMACD_PositiveInUptrend(t *testing.T) {
	line, signal, hist := MACD(Closes(trendBars(60, 100, 1)))
	last := len(line) - 1
	if line[last] <= 0 {
		t.Errorf("MACD should be positive in an uptrend, got %v", line[last])
	}
	if !approx(hist[last], line[last]-signal[last], 1e-12) {
		t.Errorf("histogram should equal MACD - signal")
	}
}

func TestBollinger_Symmetric(t *testing.T) {
	upper, middle, lower := Bollinger(Closes(trendBars(30, 100, 1)), 20, 2)
	i := 29
	if !approx(upper[i]-middle[i], middle[i]-lower[i], 1e-9) {
		t.Errorf("bands should be symmetric around the middle: %v %v %v", upper[i], middle[i], lower[i])
	}
	if middle[i] != 119.5 { // mean of 110..129
		t.Errorf("middle band = %v, want 119.5", middle[i])
	}
}

// --- Report tests ---

func TestReport_TooFewBarsIsAbsent(t *testing.T) {
	for _, n := range []int{0, 1, 10, 19} {
		if rep := Report("AAPL", trendBars(n, 100, 1)); rep != nil {
			t.Errorf("Report with %d bars should be nil, got %+v", n, rep)
		}
	}
}

func TestReport_RisingSixtyBars(t *testing.T) {
	rep := Report("AAPL", trendBars(60, 100, 1))
	if rep == nil {
		t.Fatal("expected a report for 60 bars")
	}
	if rep.RSI == nil || *rep.RSI <= 50 {
		t.Errorf("RSI should be > 50 for rising closes, got %v", rep.RSI)
	}
	if rep.SMA50 == nil {
		t.Error("SMA50 should be defined with 60 bars")
	}
	if rep.ATR == nil || *rep.ATR != 2 {
		t.Errorf("ATR = %v, want 2", rep.ATR)
	}
	if rep.Signal != model.SignalOverbought {
		t.Errorf("signal = %s, want OVERBOUGHT", rep.Signal)
	}
	if rep.PriceVsEMA20 != "ABOVE" {
		t.Errorf("price_vs_ema20 = %s, want ABOVE", rep.PriceVsEMA20)
	}
}

func TestReport_FallingSixtyBarsIsOversold(t *testing.T) {
	rep := Report("AAPL", trendBars(60, 200, -1))
	if rep == nil {
		t.Fatal("expected a report for 60 bars")
	}
	if rep.RSI == nil || *rep.RSI != 0 {
		t.Fatalf("RSI = %v, want 0", rep.RSI)
	}
	if rep.Signal != model.SignalOversold {
		t.Errorf("signal = %s, want OVERSOLD", rep.Signal)
	}
	if rep.PriceVsEMA20 != "BELOW" {
		t.Errorf("price_vs_ema20 = %s, want BELOW", rep.PriceVsEMA20)
	}
}

func TestReport_ShortWindowLeavesLongIndicatorsAbsent(t *testing.T) {
	rep := Report("MSFT", trendBars(30, 100, 1))
	if rep == nil {
		t.Fatal("expected a report for 30 bars")
	}
	if rep.SMA50 != nil {
		t.Errorf("SMA50 should be absent with 30 bars, got %v", *rep.SMA50)
	}
	if rep.SMA14 == nil || rep.BBMiddle == nil {
		t.Error("SMA14 and Bollinger middle should be defined with 30 bars")
	}
}

func TestReport_ValuesRoundedToTwoDecimals(t *testing.T) {
	rep := Report("AAPL", trendBars(60, 100.333, 0.777))
	for name, v := range map[string]*float64{
		"ema20": rep.EMA20, "macd": rep.MACD, "bb_upper": rep.BBUpper,
	} {
		if v == nil {
			t.Fatalf("%s should be defined", name)
		}
		if !approx(*v*100, math.Round(*v*100), 1e-6) {
			t.Errorf("%s = %v is not rounded to 2 decimals", name, *v)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		rsi  *float64
		macd *float64
		want model.Signal
	}{
		{"oversold", f(25), f(1), model.SignalOversold},
		{"oversold wins over macd", f(29.99), f(-5), model.SignalOversold},
		{"overbought", f(75), f(-1), model.SignalOverbought},
		{"bullish", f(40), f(0.5), model.SignalBullish},
		{"low rsi negative macd", f(40), f(-0.5), model.SignalNeutral},
		{"bearish", f(60), f(-0.5), model.SignalBearish},
		{"high rsi positive macd", f(60), f(0.5), model.SignalNeutral},
		{"mid band", f(50), f(2), model.SignalNeutral},
		{"boundary 30", f(30), f(1), model.SignalBullish},
		{"boundary 70", f(70), f(-1), model.SignalBearish},
		{"zero rsi", f(0), f(-1), model.SignalOversold},
		{"absent rsi", nil, f(1), model.SignalNeutral},
		{"absent macd", f(40), nil, model.SignalNeutral},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.rsi, tc.macd); got != tc.want {
				t.Errorf("Classify = %s, want %s", got, tc.want)
			}
		})
	}
}
