// Package indicator computes technical indicators over a daily bar window.
//
// Series functions return one value per input sample, with NaN where the
// indicator is not yet defined. Report converts the latest samples to
// pointers so undefined values surface as absent rather than zero.
package indicator

import (
	"math"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

// MinBars is the shortest window any report or chart is computed for.
const MinBars = 20

// RSI classification thresholds.
const (
	oversold     = 30
	overbought   = 70
	bullishBelow = 45
	bearishAbove = 55
)

// Closes extracts closing prices.
func Closes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// SMA is the trailing simple moving average over n samples.
func SMA(x []float64, n int) []float64 {
	out := nanSlice(len(x))
	if n <= 0 {
		return out
	}
	var sum float64
	for i, v := range x {
		sum += v
		if i >= n {
			sum -= x[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA is the exponential moving average with alpha = 2/(span+1), seeded by
// the first defined value. It is defined from the first sample onward.
func EMA(x []float64, span int) []float64 {
	out := nanSlice(len(x))
	alpha := 2 / (float64(span) + 1)
	prev := math.NaN()
	for i, v := range x {
		switch {
		case math.IsNaN(v):
			out[i] = prev
		case math.IsNaN(prev):
			prev = v
			out[i] = v
		default:
			prev = v*alpha + prev*(1-alpha)
			out[i] = prev
		}
	}
	return out
}

// StdDev is the trailing sample standard deviation over n samples.
func StdDev(x []float64, n int) []float64 {
	out := nanSlice(len(x))
	if n < 2 {
		return out
	}
	for i := n - 1; i < len(x); i++ {
		w := x[i-n+1 : i+1]
		var mean float64
		for _, v := range w {
			mean += v
		}
		mean /= float64(n)
		var ss float64
		for _, v := range w {
			ss += (v - mean) * (v - mean)
		}
		out[i] = math.Sqrt(ss / float64(n-1))
	}
	return out
}

// RSI is the relative strength index over n day-over-day deltas. The delta
// of the first sample counts as zero gain and zero loss.
func RSI(x []float64, n int) []float64 {
	gains := make([]float64, len(x))
	losses := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		d := x[i] - x[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	avgGain := SMA(gains, n)
	avgLoss := SMA(losses, n)

	out := nanSlice(len(x))
	for i := range x {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case math.IsNaN(g) || math.IsNaN(l):
		case l == 0 && g == 0:
		case l == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+g/l)
		}
	}
	return out
}

// MACD returns the MACD line (EMA12 - EMA26), its EMA9 signal line, and the
// histogram.
func MACD(x []float64) (line, signal, hist []float64) {
	fast, slow := EMA(x, 12), EMA(x, 26)
	line = make([]float64, len(x))
	for i := range x {
		line[i] = fast[i] - slow[i]
	}
	signal = EMA(line, 9)
	hist = make([]float64, len(x))
	for i := range x {
		hist[i] = line[i] - signal[i]
	}
	return line, signal, hist
}

// Bollinger returns the (n, k) bands: middle = SMA(n), upper/lower = middle
// plus or minus k sample standard deviations.
func Bollinger(x []float64, n int, k float64) (upper, middle, lower []float64) {
	middle = SMA(x, n)
	sd := StdDev(x, n)
	upper, lower = make([]float64, len(x)), make([]float64, len(x))
	for i := range x {
		upper[i] = middle[i] + k*sd[i]
		lower[i] = middle[i] - k*sd[i]
	}
	return upper, middle, lower
}

// ATR is the trailing n-sample average true range. The true range of the
// first bar is its high-low span.
func ATR(bars []model.Bar, n int) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		hl := b.High - b.Low
		if i == 0 {
			tr[i] = hl
			continue
		}
		pc := bars[i-1].Close
		tr[i] = math.Max(hl, math.Max(math.Abs(b.High-pc), math.Abs(b.Low-pc)))
	}
	return SMA(tr, n)
}

// Classify maps the latest RSI and MACD to a signal. Checks run in order and
// the first match wins. An absent RSI is NEUTRAL; an absent MACD satisfies
// neither MACD condition.
func Classify(rsi, macd *float64) model.Signal {
	if rsi == nil {
		return model.SignalNeutral
	}
	r := *rsi
	switch {
	case r < oversold:
		return model.SignalOversold
	case r > overbought:
		return model.SignalOverbought
	case r < bullishBelow && macd != nil && *macd > 0:
		return model.SignalBullish
	case r > bearishAbove && macd != nil && *macd < 0:
		return model.SignalBearish
	default:
		return model.SignalNeutral
	}
}

// Report computes the latest value of every indicator. It returns nil when
// fewer than MinBars bars are available.
func Report(symbol string, bars []model.Bar) *model.IndicatorReport {
	if len(bars) < MinBars {
		return nil
	}
	closes := Closes(bars)
	macd, signal, hist := MACD(closes)
	upper, middle, lower := Bollinger(closes, 20, 2)
	ema20 := EMA(closes, 20)

	rep := &model.IndicatorReport{
		Symbol:        symbol,
		RSI:           Last(RSI(closes, 14)),
		MACD:          Last(macd),
		SignalLine:    Last(signal),
		MACDHistogram: Last(hist),
		SMA14:         Last(SMA(closes, 14)),
		SMA50:         Last(SMA(closes, 50)),
		EMA14:         Last(EMA(closes, 14)),
		EMA20:         Last(ema20),
		BBUpper:       Last(upper),
		BBMiddle:      Last(middle),
		BBLower:       Last(lower),
		ATR:           Last(ATR(bars, 14)),
	}
	rep.Signal = Classify(rep.RSI, rep.MACD)

	rep.PriceVsEMA20 = "BELOW"
	if e := ema20[len(ema20)-1]; !math.IsNaN(e) && closes[len(closes)-1] > e {
		rep.PriceVsEMA20 = "ABOVE"
	}
	return rep
}

// Last returns the final sample of x rounded to 2 decimals, or nil when it is
// undefined.
func Last(x []float64) *float64 {
	if len(x) == 0 {
		return nil
	}
	return At(x, len(x)-1)
}

// At returns x[i] rounded to 2 decimals, or nil when it is undefined.
func At(x []float64, i int) *float64 {
	v := x[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	r := Round2(v)
	return &r
}

// Round2 rounds half away from zero to 2 decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
