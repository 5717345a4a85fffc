package sites

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"portfolio-feeds/pkg/config"
	"portfolio-feeds/pkg/content"
	"portfolio-feeds/pkg/domain"
	"portfolio-feeds/pkg/httpclient"
)

// Source fetches the latest articles an author published on one platform.
// Fetch never fails: upstream errors are logged and degrade to an empty result.
type Source interface {
	Platform() domain.Platform
	Fetch(ctx context.Context) []domain.Article
}

// JSONFetcher is the part of the HTTP client the JSON API adapters need
type JSONFetcher interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// BodyFetcher is the part of the HTTP client the feed adapters need
type BodyFetcher interface {
	GetBody(ctx context.Context, url string) ([]byte, error)
}

// FromConfig builds a source for every platform that has a handle configured
func FromConfig(cfg *config.Config) []Source {
	opts := httpclient.OptionsFromConfig(cfg)
	apiClient := httpclient.New(httpclient.APIClient, opts)

	var sources []Source

	if cfg.Platforms.Qiita.Enabled() {
		sources = append(sources, NewQiita(apiClient, cfg.Platforms.Qiita, cfg.Excerpt))
	}

	if cfg.Platforms.Zenn.Enabled() {
		sources = append(sources, NewZenn(apiClient, cfg.Platforms.Zenn, cfg.Excerpt))
	}

	if cfg.Platforms.Note.Enabled() {
		feedClient := httpclient.New(httpclient.FeedClient, opts)
		sources = append(sources, NewNote(feedClient, cfg.Platforms.Note, cfg.Excerpt))
	}

	return sources
}

// fallbackExcerpt is used when an article body yields no usable excerpt
func fallbackExcerpt(emoji, title string) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s is a technical article about this topic.", emoji, title))
}

// bodyExcerpt derives an excerpt within the configured bounds, or "" when it
// comes out shorter than excerpt.min_length
func bodyExcerpt(body string, bounds config.ExcerptConfig) string {
	excerpt := content.ExcerptWithin(body, bounds.MaxLength, bounds.MinLength)
	if excerpt == "" || utf8.RuneCountInString(excerpt) < bounds.MinLength {
		return ""
	}
	return excerpt
}

// parseDate parses a platform timestamp, logging and returning the zero time on failure
func parseDate(platform domain.Platform, link, value string) time.Time {
	date, err := domain.ParseDate(value)
	if err != nil {
		log.Printf("%s: invalid date for %s: %v", platform, link, err)
		return time.Time{}
	}
	return date
}

func trimBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}
