package sites

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"portfolio-feeds/pkg/config"
	"portfolio-feeds/pkg/content"
	"portfolio-feeds/pkg/domain"
)

// Note fetches articles from a note.com creator's RSS feed
type Note struct {
	client    BodyFetcher
	parser    *gofeed.Parser
	extractor content.Extractor
	baseURL   string
	handle    string
	limit     int
	bounds    config.ExcerptConfig
}

// NewNote creates a note source for the configured handle
func NewNote(client BodyFetcher, cfg config.PlatformConfig, bounds config.ExcerptConfig) *Note {
	return &Note{
		client:    client,
		parser:    gofeed.NewParser(),
		extractor: content.NewDefaultExtractor(),
		baseURL:   trimBaseURL(cfg.BaseURL),
		handle:    cfg.Handle,
		limit:     cfg.PerPage,
		bounds:    bounds,
	}
}

// Platform returns domain.PlatformNote
func (n *Note) Platform() domain.Platform {
	return domain.PlatformNote
}

// Fetch returns the newest feed items
func (n *Note) Fetch(ctx context.Context) []domain.Article {
	feedURL := fmt.Sprintf("%s/%s/rss", n.baseURL, url.PathEscape(n.handle))

	body, err := n.client.GetBody(ctx, feedURL)
	if err != nil {
		log.Printf("note: failed to fetch feed for %s: %v", n.handle, err)
		return []domain.Article{}
	}

	feed, err := n.parser.ParseString(string(body))
	if err != nil {
		log.Printf("note: failed to parse feed for %s: %v", n.handle, err)
		return []domain.Article{}
	}

	articles := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if n.limit > 0 && len(articles) == n.limit {
			break
		}

		article, ok := n.toArticle(item)
		if !ok {
			continue
		}
		articles = append(articles, article)
	}

	return articles
}

func (n *Note) toArticle(item *gofeed.Item) (domain.Article, bool) {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return domain.Article{}, false
	}

	title := strings.TrimSpace(item.Title)
	if title == "" && item.Content != "" {
		if extracted, err := n.extractor.ExtractTitle(item.Content); err == nil {
			title = extracted
		}
	}
	if title == "" {
		log.Printf("note: skipping untitled item %s", link)
		return domain.Article{}, false
	}

	body := item.Description
	if body == "" {
		body = item.Content
	}

	excerpt := bodyExcerpt(body, n.bounds)
	if excerpt == "" {
		excerpt = fallbackExcerpt("", title)
	}

	return domain.Article{
		Title:   title,
		Link:    link,
		Date:    n.itemDate(item, link),
		Source:  domain.PlatformNote,
		Excerpt: excerpt,
	}, true
}

func (n *Note) itemDate(item *gofeed.Item, link string) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return parseDate(domain.PlatformNote, link, item.Published)
	}
}
