package sites

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"portfolio-feeds/pkg/config"
	"portfolio-feeds/pkg/content"
	"portfolio-feeds/pkg/domain"
	"portfolio-feeds/pkg/worker"
)

// zennListing is the response of the Zenn articles listing
type zennListing struct {
	Articles []zennListItem `json:"articles"`
}

type zennListItem struct {
	Title       string `json:"title"`
	Path        string `json:"path"`
	Slug        string `json:"slug"`
	Emoji       string `json:"emoji"`
	PublishedAt string `json:"published_at"`
	CreatedAt   string `json:"created_at"`
}

// zennDetail is the response of the Zenn article detail endpoint
type zennDetail struct {
	Article struct {
		BodyMarkdown string `json:"body_markdown"`
		BodyHTML     string `json:"body_html"`
	} `json:"article"`
}

// Zenn fetches articles from the Zenn API.
// The listing has no body, so every article needs a second detail request;
// those run through a batch pool to stay within Zenn's informal rate limits.
type Zenn struct {
	client    JSONFetcher
	extractor content.Extractor
	pool      *worker.Pool
	baseURL   string
	handle    string
	limit     int
	bounds    config.ExcerptConfig
}

// NewZenn creates a Zenn source for the configured handle
func NewZenn(client JSONFetcher, cfg config.ZennConfig, bounds config.ExcerptConfig) *Zenn {
	return &Zenn{
		client:    client,
		extractor: content.NewDefaultExtractor(),
		pool:      worker.NewPool("Zenn", cfg.Detail.BatchSize, cfg.Detail.BatchDelay()),
		baseURL:   trimBaseURL(cfg.BaseURL),
		handle:    cfg.Handle,
		limit:     cfg.PerPage,
		bounds:    bounds,
	}
}

// Platform returns domain.PlatformZenn
func (z *Zenn) Platform() domain.Platform {
	return domain.PlatformZenn
}

// Fetch returns the handle's latest articles with excerpts taken from the article bodies
func (z *Zenn) Fetch(ctx context.Context) []domain.Article {
	listURL := fmt.Sprintf("%s/api/articles?username=%s&order=latest", z.baseURL, url.QueryEscape(z.handle))

	var listing zennListing
	if err := z.client.GetJSON(ctx, listURL, &listing); err != nil {
		log.Printf("Zenn: failed to fetch articles for %s: %v", z.handle, err)
		return []domain.Article{}
	}

	items := lo.Filter(listing.Articles, func(item zennListItem, _ int) bool {
		return item.Title != "" && item.Path != ""
	})

	if z.limit > 0 && len(items) > z.limit {
		items = items[:z.limit]
	}

	// Each task writes only its own slot
	bodies := make([]string, len(items))

	err := z.pool.Run(ctx, len(items), func(ctx context.Context, i int) {
		bodies[i] = z.fetchBody(ctx, items[i])
	})
	if err != nil {
		log.Printf("Zenn: detail fetches interrupted, remaining articles use fallback excerpts: %v", err)
	}

	articles := make([]domain.Article, 0, len(items))
	for i, item := range items {
		link := z.baseURL + item.Path

		date := item.PublishedAt
		if date == "" {
			date = item.CreatedAt
		}

		articles = append(articles, domain.Article{
			Title:   item.Title,
			Link:    link,
			Date:    parseDate(domain.PlatformZenn, link, date),
			Source:  domain.PlatformZenn,
			Excerpt: z.excerpt(item, bodies[i]),
		})
	}

	return articles
}

// fetchBody returns the article body, or "" when the detail is unavailable
func (z *Zenn) fetchBody(ctx context.Context, item zennListItem) string {
	id := articleID(item)
	if id == "" {
		return ""
	}

	detailURL := fmt.Sprintf("%s/api/articles/%s", z.baseURL, url.PathEscape(id))

	var detail zennDetail
	if err := z.client.GetJSON(ctx, detailURL, &detail); err != nil {
		log.Printf("Zenn: detail fetch failed for %s: %v", id, err)
		return ""
	}

	if strings.TrimSpace(detail.Article.BodyMarkdown) != "" {
		return detail.Article.BodyMarkdown
	}

	if detail.Article.BodyHTML != "" {
		text, err := z.extractor.ExtractText(detail.Article.BodyHTML)
		if err != nil {
			log.Printf("Zenn: failed to extract text for %s: %v", id, err)
			return ""
		}
		return text
	}

	return ""
}

func (z *Zenn) excerpt(item zennListItem, body string) string {
	if body != "" {
		if excerpt := bodyExcerpt(body, z.bounds); excerpt != "" {
			return excerpt
		}

		if paragraph := content.FirstParagraph(body); paragraph != "" {
			return content.Truncate(paragraph, z.bounds.MaxLength)
		}
	}

	return fallbackExcerpt(item.Emoji, item.Title)
}

// articleID returns the last segment of the article path.
// Paths carry the author prefix ("/alice/articles/go-tips"), the detail endpoint wants the slug alone.
func articleID(item zennListItem) string {
	segments := strings.Split(strings.Trim(item.Path, "/"), "/")
	if id := segments[len(segments)-1]; id != "" {
		return id
	}
	return item.Slug
}
