package sites

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/samber/lo"

	"portfolio-feeds/pkg/config"
	"portfolio-feeds/pkg/domain"
)

// qiitaItem is one entry of the Qiita user items listing
type qiitaItem struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
	Body      string `json:"body"`
}

// Qiita fetches articles from the Qiita API v2.
// The listing already carries the markdown body, so one request is enough.
type Qiita struct {
	client  JSONFetcher
	baseURL string
	handle  string
	perPage int
	bounds  config.ExcerptConfig
}

// NewQiita creates a Qiita source for the configured handle
func NewQiita(client JSONFetcher, cfg config.PlatformConfig, bounds config.ExcerptConfig) *Qiita {
	return &Qiita{
		client:  client,
		baseURL: trimBaseURL(cfg.BaseURL),
		handle:  cfg.Handle,
		perPage: cfg.PerPage,
		bounds:  bounds,
	}
}

// Platform returns domain.PlatformQiita
func (q *Qiita) Platform() domain.Platform {
	return domain.PlatformQiita
}

// Fetch returns the handle's most recent items
func (q *Qiita) Fetch(ctx context.Context) []domain.Article {
	listURL := fmt.Sprintf("%s/api/v2/users/%s/items?per_page=%d", q.baseURL, url.PathEscape(q.handle), q.perPage)

	var items []qiitaItem
	if err := q.client.GetJSON(ctx, listURL, &items); err != nil {
		log.Printf("Qiita: failed to fetch items for %s: %v", q.handle, err)
		return []domain.Article{}
	}

	items = lo.Filter(items, func(item qiitaItem, _ int) bool {
		return item.Title != "" && item.URL != ""
	})

	if q.perPage > 0 && len(items) > q.perPage {
		items = items[:q.perPage]
	}

	return lo.Map(items, func(item qiitaItem, _ int) domain.Article {
		return domain.Article{
			Title:   item.Title,
			Link:    item.URL,
			Date:    parseDate(domain.PlatformQiita, item.URL, item.CreatedAt),
			Source:  domain.PlatformQiita,
			Excerpt: q.excerpt(item),
		}
	})
}

func (q *Qiita) excerpt(item qiitaItem) string {
	if excerpt := bodyExcerpt(item.Body, q.bounds); excerpt != "" {
		return excerpt
	}
	return fallbackExcerpt("", item.Title)
}
