// Package symbol handles ticker symbol normalization and validation of the
// history window parameters accepted by the quote source.
package symbol

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

// tickerRegex matches exchange tickers such as AAPL, BRK.B, RDS-A, ^GSPC, EURUSD=X.
var tickerRegex = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-=]{0,9}$`)

var validPeriods = map[string]bool{
	"1d": true, "5d": true, "60d": true,
	"1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true,
	"ytd": true, "max": true,
}

var validIntervals = map[string]bool{
	"1m": true, "2m": true, "5m": true, "15m": true, "30m": true,
	"60m": true, "90m": true, "1h": true,
	"1d": true, "5d": true, "1wk": true, "1mo": true, "3mo": true,
}

// Normalize trims and upper-cases a ticker and validates its format.
func Normalize(raw string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(raw))
	if sym == "" {
		return "", fmt.Errorf("%w: symbol is required", model.ErrInvalidInput)
	}
	if !tickerRegex.MatchString(sym) {
		return "", fmt.Errorf("%w: malformed symbol %q", model.ErrInvalidInput, raw)
	}
	return sym, nil
}

// Period returns p, or def when p is empty, after checking it is a supported
// history range.
func Period(p, def string) (string, error) {
	if p == "" {
		return def, nil
	}
	if !validPeriods[p] {
		return "", fmt.Errorf("%w: unsupported period %q", model.ErrInvalidInput, p)
	}
	return p, nil
}

// Interval returns i, or def when i is empty, after checking it is a
// supported bar interval.
func Interval(i, def string) (string, error) {
	if i == "" {
		return def, nil
	}
	if !validIntervals[i] {
		return "", fmt.Errorf("%w: unsupported interval %q", model.ErrInvalidInput, i)
	}
	return i, nil
}
