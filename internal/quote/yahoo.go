package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/stockpulse/portfolio-engine/internal/metrics"
	"github.com/stockpulse/portfolio-engine/internal/model"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second

	userAgent     = "Mozilla/5.0 (compatible; StockPulseBot/1.0)"
	logoBaseURL   = "https://logo.clearbit.com/"
	summaryModule = "price,summaryProfile,summaryDetail,defaultKeyStatistics,financialData"
	newsCount     = "10"
)

// APIError is a non-200 answer from the provider.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quote API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

var _ Source = (*Yahoo)(nil)

// Yahoo implements Source against the Yahoo Finance JSON endpoints.
type Yahoo struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures the client.
type Option func(*Yahoo)

// WithBaseURL sets the base URL.
func WithBaseURL(baseURL string) Option {
	return func(y *Yahoo) {
		y.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRateLimit sets the request rate.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(y *Yahoo) {
		if requestsPerSecond > 0 {
			burst := max(1, int(math.Ceil(requestsPerSecond)))
			y.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
		}
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(y *Yahoo) {
		y.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(y *Yahoo) {
		y.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(y *Yahoo) {
		y.logger = logger
	}
}

// NewYahoo creates a Yahoo Finance client.
func NewYahoo(opts ...Option) *Yahoo {
	y := &Yahoo{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// get performs a rate-limited GET and decodes the JSON body into result.
func (y *Yahoo) get(ctx context.Context, op, path string, params url.Values, result any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream(op, start, err) }()

	if err := y.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := y.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	y.logger.Debug("quote API request", "op", op, "path", path)

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// notFound reports whether err is the provider's answer for an unknown symbol.
func notFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// --- Chart ---

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History fetches bars from the chart endpoint. Samples with no close are
// skipped.
func (y *Yahoo) History(ctx context.Context, symbol, period, interval string) ([]model.Bar, error) {
	params := url.Values{}
	params.Set("range", period)
	params.Set("interval", interval)

	var resp chartResponse
	if err := y.get(ctx, "history", "/v8/finance/chart/"+url.PathEscape(symbol), params, &resp); err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if resp.Chart.Error != nil || len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	res := resp.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}
	q := res.Indicators.Quote[0]

	bars := make([]model.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		c := at(q.Close, i)
		if c == nil {
			continue
		}
		bar := model.Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Close: *c,
			Open:  valueOr(at(q.Open, i), *c),
			High:  valueOr(at(q.High, i), *c),
			Low:   valueOr(at(q.Low, i), *c),
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, nil
	}
	return bars, nil
}

// LatestBar returns the last bar of the current session.
func (y *Yahoo) LatestBar(ctx context.Context, symbol string) (*model.Bar, error) {
	bars, err := y.History(ctx, symbol, "1d", "1d")
	if err != nil || len(bars) == 0 {
		return nil, err
	}
	last := bars[len(bars)-1]
	return &last, nil
}

func at(s []*float64, i int) *float64 {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// --- Company info ---

// rawValue is the provider's {"raw": n, "fmt": "..."} number wrapper.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName  string   `json:"longName"`
				ShortName string   `json:"shortName"`
				MarketCap rawValue `json:"marketCap"`
			} `json:"price"`
			SummaryProfile struct {
				LongBusinessSummary string `json:"longBusinessSummary"`
				Sector              string `json:"sector"`
				Industry            string `json:"industry"`
				Website             string `json:"website"`
			} `json:"summaryProfile"`
			SummaryDetail struct {
				PreviousClose    rawValue `json:"previousClose"`
				TrailingPE       rawValue `json:"trailingPE"`
				DividendYield    rawValue `json:"dividendYield"`
				Beta             rawValue `json:"beta"`
				FiftyTwoWeekHigh rawValue `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow  rawValue `json:"fiftyTwoWeekLow"`
				MarketCap        rawValue `json:"marketCap"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				TrailingEps rawValue `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				TargetMeanPrice         rawValue `json:"targetMeanPrice"`
				TargetHighPrice         rawValue `json:"targetHighPrice"`
				TargetLowPrice          rawValue `json:"targetLowPrice"`
				RecommendationKey       string   `json:"recommendationKey"`
				NumberOfAnalystOpinions rawValue `json:"numberOfAnalystOpinions"`
			} `json:"financialData"`
		} `json:"result"`
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// CompanyInfo fetches the fundamentals snapshot from the quoteSummary
// endpoint.
func (y *Yahoo) CompanyInfo(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	params := url.Values{}
	params.Set("modules", summaryModule)

	var resp summaryResponse
	if err := y.get(ctx, "company_info", "/v10/finance/quoteSummary/"+url.PathEscape(symbol), params, &resp); err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if resp.QuoteSummary.Error != nil || len(resp.QuoteSummary.Result) == 0 {
		return nil, nil
	}

	r := resp.QuoteSummary.Result[0]
	f := &model.Fundamentals{
		LongName:         r.Price.LongName,
		ShortName:        r.Price.ShortName,
		LogoURL:          logoURL(r.SummaryProfile.Website),
		Summary:          r.SummaryProfile.LongBusinessSummary,
		Sector:           r.SummaryProfile.Sector,
		Industry:         r.SummaryProfile.Industry,
		PreviousClose:    r.SummaryDetail.PreviousClose.Raw,
		MarketCap:        r.Price.MarketCap.Raw,
		PERatio:          r.SummaryDetail.TrailingPE.Raw,
		EPS:              r.DefaultKeyStatistics.TrailingEps.Raw,
		DividendYield:    r.SummaryDetail.DividendYield.Raw,
		Beta:             r.SummaryDetail.Beta.Raw,
		TargetMeanPrice:  r.FinancialData.TargetMeanPrice.Raw,
		TargetHighPrice:  r.FinancialData.TargetHighPrice.Raw,
		TargetLowPrice:   r.FinancialData.TargetLowPrice.Raw,
		Recommendation:   r.FinancialData.RecommendationKey,
		FiftyTwoWeekHigh: r.SummaryDetail.FiftyTwoWeekHigh.Raw,
		FiftyTwoWeekLow:  r.SummaryDetail.FiftyTwoWeekLow.Raw,
	}
	if f.MarketCap == nil {
		f.MarketCap = r.SummaryDetail.MarketCap.Raw
	}
	if n := r.FinancialData.NumberOfAnalystOpinions.Raw; n != nil {
		v := int64(*n)
		f.NumberOfAnalysts = &v
	}
	return f, nil
}

// logoURL derives a logo from the company website domain.
func logoURL(website string) string {
	if website == "" {
		return ""
	}
	u, err := url.Parse(website)
	if err != nil || u.Host == "" {
		return ""
	}
	return logoBaseURL + strings.TrimPrefix(u.Host, "www.")
}

// --- News ---

type searchResponse struct {
	News []json.RawMessage `json:"news"`
}

// News fetches raw articles from the search endpoint.
func (y *Yahoo) News(ctx context.Context, symbol string) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", symbol)
	params.Set("newsCount", newsCount)
	params.Set("quotesCount", "0")

	var resp searchResponse
	if err := y.get(ctx, "news", "/v1/finance/search", params, &resp); err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return resp.News, nil
}
