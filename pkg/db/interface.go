package db

import (
	"context"
	"database/sql"
	"fmt"

	"portfolio-feeds/pkg/domain"
)

// DBProvider is an interface for database clients that provide access to a sql.DB handle.
// This allows both PostgresClient and SupabaseClient to be used interchangeably.
type DBProvider interface {
	DB() *sql.DB
}

// ArticleSaver is implemented by every archive sink
type ArticleSaver interface {
	SaveArticle(ctx context.Context, article *domain.Article) error
}

// articleTable is the SQL table shared by the Postgres and Supabase sinks
const articleTable = "external_article"

const articleDDL = `
CREATE TABLE IF NOT EXISTS external_article (
  link TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  excerpt TEXT NOT NULL DEFAULT '',
  published_at TIMESTAMPTZ NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const upsertArticleQuery = `
INSERT INTO external_article (link, title, source, excerpt, published_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (link) DO UPDATE SET
  title = EXCLUDED.title,
  source = EXCLUDED.source,
  excerpt = EXCLUDED.excerpt,
  published_at = EXCLUDED.published_at,
  updated_at = now()`

// EnsureArticleSchema creates the archive table when missing
func EnsureArticleSchema(ctx context.Context, p DBProvider) error {
	if p.DB() == nil {
		return fmt.Errorf("postgres DB not connected")
	}

	if _, err := p.DB().ExecContext(ctx, articleDDL); err != nil {
		return fmt.Errorf("create %s table: %w", articleTable, err)
	}
	return nil
}

// upsertArticle writes one article through a direct SQL connection
func upsertArticle(ctx context.Context, p DBProvider, article *domain.Article) error {
	if p.DB() == nil {
		return fmt.Errorf("postgres DB not connected")
	}
	if article.Link == "" {
		return fmt.Errorf("article has no link")
	}

	if _, err := p.DB().ExecContext(ctx, upsertArticleQuery, articleArgs(article)...); err != nil {
		return fmt.Errorf("upsert article link=%q: %w", article.Link, err)
	}
	return nil
}

// articleArgs maps an article onto the upsert parameters; a missing date is stored as NULL
func articleArgs(article *domain.Article) []any {
	return []any{
		article.Link,
		article.Title,
		string(article.Source),
		article.Excerpt,
		sql.NullTime{Time: article.Date, Valid: article.HasDate()},
	}
}
