package news

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/rss"

	"github.com/stockpulse/portfolio-engine/internal/metrics"
	"github.com/stockpulse/portfolio-engine/internal/model"
)

// DefaultFeeds are the syndication endpoints polled for a symbol. "{symbol}"
// is replaced with the upper-case ticker.
var DefaultFeeds = []string{
	"https://feeds.finance.yahoo.com/rss/2.0/headline?s={symbol}&region=US&lang=en-US",
	"https://seekingalpha.com/api/sa/combined/{symbol}.xml",
	"https://feeds.content.dowjones.io/public/rss/mw_realtimeheadlines",
}

const (
	userAgent       = "Mozilla/5.0 (compatible; StockPulseBot/1.0)"
	acceptHeader    = "application/rss+xml,application/xml,text/xml;q=0.9,*/*;q=0.8"
	itemsPerFeed    = 6
	summaryMaxRunes = 300
	feedTimeout     = 6 * time.Second
)

var htmlTag = regexp.MustCompile(`<[^>]+>`)

// FeedCollector pulls articles from RSS feeds. A feed that errors, answers
// with a non-200 status or does not parse is skipped.
type FeedCollector struct {
	feeds  []string
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewFeedCollector creates a collector over the given URL templates. Nil or
// empty feeds selects DefaultFeeds.
func NewFeedCollector(feeds []string, client *http.Client, logger *slog.Logger) *FeedCollector {
	if len(feeds) == 0 {
		feeds = DefaultFeeds
	}
	if client == nil {
		client = &http.Client{Timeout: feedTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedCollector{feeds: feeds, client: client, logger: logger, now: time.Now}
}

// Collect returns up to limit articles for symbol, newest first. Feeds are
// polled in order until limit articles have been gathered.
func (c *FeedCollector) Collect(ctx context.Context, symbol string, limit int) []model.NewsItem {
	var articles []model.NewsItem
	for _, tmpl := range c.feeds {
		if len(articles) >= limit {
			break
		}
		feedURL := strings.ReplaceAll(tmpl, "{symbol}", url.QueryEscape(symbol))
		items, err := c.fetch(ctx, feedURL)
		if err != nil {
			c.logger.Debug("feed skipped", "url", feedURL, "err", err)
			continue
		}
		articles = append(articles, items...)
	}

	SortNewestFirst(articles)
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles
}

func (c *FeedCollector) fetch(ctx context.Context, feedURL string) (items []model.NewsItem, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("rss", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var parser rss.Parser
	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	host := feedHost(feedURL)
	raw := feed.Items
	if len(raw) > itemsPerFeed {
		raw = raw[:itemsPerFeed]
	}
	for _, it := range raw {
		if item, ok := c.normalize(it, host); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (c *FeedCollector) normalize(it *rss.Item, host string) (model.NewsItem, bool) {
	title := strings.TrimSpace(it.Title)
	link := strings.TrimSpace(it.Link)
	if link == "" && it.GUID != nil {
		link = strings.TrimSpace(it.GUID.Value)
	}
	if title == "" || link == "" {
		return model.NewsItem{}, false
	}

	publisher := host
	if it.Source != nil && strings.TrimSpace(it.Source.Title) != "" {
		publisher = strings.TrimSpace(it.Source.Title)
	}

	ts := c.now().Unix()
	if it.PubDateParsed != nil {
		ts = it.PubDateParsed.Unix()
	}

	return model.NewsItem{
		Title:       title,
		Summary:     stripHTML(it.Description),
		Publisher:   publisher,
		Link:        link,
		PublishTime: &ts,
		Source:      SourceRSS,
	}, true
}

func stripHTML(s string) string {
	s = strings.TrimSpace(htmlTag.ReplaceAllString(s, ""))
	if r := []rune(s); len(r) > summaryMaxRunes {
		s = string(r[:summaryMaxRunes])
	}
	return s
}

// feedHost is the publisher label used when an item names no source.
func feedHost(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return ""
	}
	h := strings.Replace(u.Host, "feeds.", "", 1)
	return strings.Replace(h, "www.", "", 1)
}
