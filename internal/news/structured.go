// Package news normalizes articles from the quote source and from RSS
// syndication feeds into model.NewsItem, and merges them into one
// deduplicated, newest-first list.
package news

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

const (
	SourceStructured = "yfinance"
	SourceRSS        = "rss"
)

// contentItem is the nested article layout, where everything is wrapped in
// a "content" object.
type contentItem struct {
	Title        string          `json:"title"`
	Summary      string          `json:"summary"`
	Provider     json.RawMessage `json:"provider"`
	ClickThrough json.RawMessage `json:"clickThroughUrl"`
	Canonical    json.RawMessage `json:"canonicalUrl"`
	PubDate      string          `json:"pubDate"`
	Thumbnail    *thumbnail      `json:"thumbnail"`
}

type thumbnail struct {
	Resolutions []struct {
		URL   string  `json:"url"`
		Width float64 `json:"width"`
	} `json:"resolutions"`
}

// flatItem is the legacy article layout.
type flatItem struct {
	Title               string `json:"title"`
	Summary             string `json:"summary"`
	Publisher           string `json:"publisher"`
	Link                string `json:"link"`
	ProviderPublishTime *int64 `json:"providerPublishTime"`
}

// NormalizeStructured converts raw quote-source articles in either layout.
// Items that fail to decode or carry no title are dropped individually.
func NormalizeStructured(raw []json.RawMessage) []model.NewsItem {
	out := make([]model.NewsItem, 0, len(raw))
	for _, r := range raw {
		item, ok := normalizeOne(r)
		if !ok || item.Title == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func normalizeOne(r json.RawMessage) (model.NewsItem, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(r, &probe); err != nil {
		return model.NewsItem{}, false
	}

	if content, ok := probe["content"]; ok {
		var c contentItem
		if string(content) != "null" {
			if err := json.Unmarshal(content, &c); err != nil {
				return model.NewsItem{}, false
			}
		}
		link := objectField(c.ClickThrough, "url")
		if link == "" {
			link = objectField(c.Canonical, "url")
		}
		return model.NewsItem{
			Title:       c.Title,
			Summary:     c.Summary,
			Publisher:   objectField(c.Provider, "displayName"),
			Link:        link,
			PublishTime: parseISO(c.PubDate),
			Thumbnail:   c.Thumbnail.smallest(),
			Source:      SourceStructured,
		}, true
	}

	var f flatItem
	if err := json.Unmarshal(r, &f); err != nil {
		return model.NewsItem{}, false
	}
	return model.NewsItem{
		Title:       f.Title,
		Summary:     f.Summary,
		Publisher:   f.Publisher,
		Link:        f.Link,
		PublishTime: f.ProviderPublishTime,
		Source:      SourceStructured,
	}, true
}

// objectField reads a string field from a JSON object, or returns the value
// itself when it is a bare string.
func objectField(raw json.RawMessage, field string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		s, _ := obj[field].(string)
		return s
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func parseISO(s string) *int64 {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	ts := t.Unix()
	return &ts
}

func (t *thumbnail) smallest() string {
	if t == nil || len(t.Resolutions) == 0 {
		return ""
	}
	res := t.Resolutions
	sort.SliceStable(res, func(i, j int) bool { return res[i].Width < res[j].Width })
	return res[0].URL
}
