package filter

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"portfolio-feeds/pkg/domain"
)

// Filter decides whether an article should be archived
type Filter interface {
	ShouldKeep(ctx context.Context, article domain.Article) (bool, error)
}

// Articles returns the articles every filter keeps, in their original order
func Articles(ctx context.Context, articles []domain.Article, filters ...Filter) ([]domain.Article, error) {
	filtered := make([]domain.Article, 0, len(articles))

	for _, article := range articles {
		keep := true
		for _, f := range filters {
			shouldKeep, err := f.ShouldKeep(ctx, article)
			if err != nil {
				return nil, fmt.Errorf("filter error for %s: %w", article.Link, err)
			}
			if !shouldKeep {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, article)
		}
	}

	return filtered, nil
}

// BaseURLFilter drops articles whose link points at a site root
type BaseURLFilter struct{}

// NewBaseURLFilter creates a new base URL filter
func NewBaseURLFilter() *BaseURLFilter {
	return &BaseURLFilter{}
}

// ShouldKeep returns false if the link has no path
func (f *BaseURLFilter) ShouldKeep(ctx context.Context, article domain.Article) (bool, error) {
	parsed, err := url.Parse(article.Link)
	if err != nil {
		// Unparsable links are left for the sinks to reject
		return true, nil
	}

	path := strings.Trim(parsed.Path, "/")
	return path != "", nil
}

// AlreadyArchivedFilter drops articles whose link is already in the archive
type AlreadyArchivedFilter struct {
	archivedLinks map[string]bool
}

// NewAlreadyArchivedFilter creates a filter over a set of known links
func NewAlreadyArchivedFilter(archivedLinks map[string]bool) *AlreadyArchivedFilter {
	return &AlreadyArchivedFilter{
		archivedLinks: archivedLinks,
	}
}

// ShouldKeep returns false if the link is in the archived set
func (f *AlreadyArchivedFilter) ShouldKeep(ctx context.Context, article domain.Article) (bool, error) {
	return !f.archivedLinks[article.Link], nil
}
