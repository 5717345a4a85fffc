package pipeline

import (
	"context"

	"portfolio-feeds/pkg/config"
	"portfolio-feeds/pkg/domain"
	"portfolio-feeds/pkg/sites"
)

// ArticleSource is what the live sitemap reads external articles from
type ArticleSource interface {
	Articles(ctx context.Context) ([]domain.Article, error)
}

// NewArticleSource returns the artifact reader when sitemap.articles_file is
// set and a live aggregator over the configured platforms otherwise.
func NewArticleSource(cfg *config.Config) ArticleSource {
	if cfg.Sitemap.ArticlesFile != "" {
		return &ArtifactReader{Path: cfg.Sitemap.ArticlesFile}
	}
	return NewAggregator(sites.FromConfig(cfg), Options{DedupeLinks: cfg.Aggregate.DedupeLinks})
}
