package sitemap

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"portfolio-feeds/pkg/domain"
)

// Change frequencies used by the portfolio sitemap
const (
	ChangeWeekly  = "weekly"
	ChangeMonthly = "monthly"
)

// Priorities per kind of page
const (
	PriorityHome    = 1.0
	PriorityStatic  = 0.8
	PriorityPost    = 0.7
	PriorityArticle = 0.6
)

// DefaultTimeout bounds how long the builder waits for external articles
const DefaultTimeout = 10 * time.Second

// lastModLayout renders UTC times as e.g. 2024-01-01T00:00:00.000Z
const lastModLayout = "2006-01-02T15:04:05.000Z07:00"

// TimeoutError is returned when external articles were not ready in time
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("article aggregation exceeded %v", e.Timeout)
}

// FormatError is returned when a single record cannot be rendered as a sitemap entry
type FormatError struct {
	Record string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("cannot render sitemap entry for %s: %v", e.Record, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

var (
	errMissingDate  = errors.New("missing or invalid date")
	errRelativeLink = errors.New("link is not an absolute URL")
)

// PostSource provides the site's own blog posts
type PostSource interface {
	Posts(ctx context.Context) ([]domain.Post, error)
}

// ArticleSource provides aggregated external articles
type ArticleSource interface {
	Articles(ctx context.Context) ([]domain.Article, error)
}

// Builder assembles the sitemap from static routes, blog posts and external articles.
// Posts and Articles may be nil. Failures of either source only remove
// that source's entries; the document itself is always produced.
type Builder struct {
	BaseURL      string
	StaticRoutes []string
	Posts        PostSource
	Articles     ArticleSource
	Timeout      time.Duration
	Now          func() time.Time
}

// Build renders the sitemap XML document
func (b *Builder) Build(ctx context.Context) ([]byte, error) {
	entries := b.Entries(ctx)

	set := urlSet{
		XMLNS: Namespace,
		URLs: lo.Map(entries, func(e Entry, _ int) urlEntry {
			return urlEntry{
				Location:   e.Location,
				LastMod:    e.LastMod,
				ChangeFreq: e.ChangeFreq,
				Priority:   e.Priority,
			}
		}),
	}

	data, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode sitemap: %w", err)
	}

	return append([]byte(xml.Header), append(data, '\n')...), nil
}

// Entries collects the sitemap entries in document order:
// static routes, then posts, then external articles.
func (b *Builder) Entries(ctx context.Context) []Entry {
	entries := b.staticEntries()

	posts, err := b.loadPosts(ctx)
	if err != nil {
		log.Printf("Sitemap: failed to get posts, continuing without them: %v", err)
	}
	for _, post := range posts {
		entry, err := b.postEntry(post)
		if err != nil {
			log.Printf("Sitemap: %v", err)
			continue
		}
		entries = append(entries, entry)
	}

	articles, err := b.loadArticles(ctx)
	if err != nil {
		log.Printf("Sitemap: failed to get external articles, continuing without them: %v", err)
	}
	for _, article := range articles {
		entry, err := articleEntry(article)
		if err != nil {
			log.Printf("Sitemap: %v", err)
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

func (b *Builder) staticEntries() []Entry {
	now := formatLastMod(b.now())

	return lo.Map(b.StaticRoutes, func(route string, _ int) Entry {
		priority := PriorityStatic
		if route == "" {
			priority = PriorityHome
		}
		return Entry{
			Location:   b.baseURL() + route,
			LastMod:    now,
			ChangeFreq: ChangeWeekly,
			Priority:   formatPriority(priority),
		}
	})
}

func (b *Builder) postEntry(post domain.Post) (Entry, error) {
	loc := b.baseURL() + "/blog/" + url.PathEscape(post.Slug)

	if post.Slug == "" {
		return Entry{}, &FormatError{Record: "post " + post.Title, Err: errors.New("missing slug")}
	}
	if post.Date.IsZero() {
		return Entry{}, &FormatError{Record: loc, Err: errMissingDate}
	}

	return Entry{
		Location:   loc,
		LastMod:    formatLastMod(post.Date),
		ChangeFreq: ChangeMonthly,
		Priority:   formatPriority(PriorityPost),
	}, nil
}

func articleEntry(article domain.Article) (Entry, error) {
	parsed, err := url.Parse(article.Link)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return Entry{}, &FormatError{Record: fmt.Sprintf("%q", article.Link), Err: errRelativeLink}
	}
	if !article.HasDate() {
		return Entry{}, &FormatError{Record: article.Link, Err: errMissingDate}
	}

	return Entry{
		Location:   article.Link,
		LastMod:    formatLastMod(article.Date),
		ChangeFreq: ChangeMonthly,
		Priority:   formatPriority(PriorityArticle),
	}, nil
}

func (b *Builder) loadPosts(ctx context.Context) ([]domain.Post, error) {
	if b.Posts == nil {
		return nil, nil
	}
	return b.Posts.Posts(ctx)
}

type articlesResult struct {
	articles []domain.Article
	err      error
}

// loadArticles races the article source against the builder timeout
func (b *Builder) loadArticles(ctx context.Context) ([]domain.Article, error) {
	if b.Articles == nil {
		return nil, nil
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so the goroutine can finish after a timeout
	done := make(chan articlesResult, 1)
	go func() {
		articles, err := b.Articles.Articles(ctx)
		done <- articlesResult{articles: articles, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Timeout: timeout}
		}
		return result.articles, result.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Timeout: timeout}
		}
		return nil, ctx.Err()
	}
}

func (b *Builder) baseURL() string {
	return strings.TrimRight(b.BaseURL, "/")
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func formatLastMod(t time.Time) string {
	return t.UTC().Format(lastModLayout)
}

func formatPriority(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64)
}
