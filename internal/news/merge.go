package news

import (
	"math"
	"sort"
	"strings"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

const dedupPrefixRunes = 60

// Merge concatenates lists in order, drops items whose title prefix was
// already seen, sorts the rest newest first and caps the result at limit.
// Earlier lists win duplicates. Items without a timestamp sort last.
func Merge(limit int, lists ...[]model.NewsItem) []model.NewsItem {
	seen := make(map[string]bool)
	out := []model.NewsItem{}
	for _, list := range lists {
		for _, item := range list {
			if item.Title == "" {
				continue
			}
			key := dedupKey(item.Title)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, item)
		}
	}

	SortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SortNewestFirst orders items by publish time descending, stable for ties.
func SortNewestFirst(items []model.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return publishTime(items[i]) > publishTime(items[j])
	})
}

func publishTime(item model.NewsItem) int64 {
	if item.PublishTime == nil {
		return math.MinInt64
	}
	return *item.PublishTime
}

func dedupKey(title string) string {
	r := []rune(title)
	if len(r) > dedupPrefixRunes {
		r = r[:dedupPrefixRunes]
	}
	return strings.TrimSpace(strings.ToLower(string(r)))
}
