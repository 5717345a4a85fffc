package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"portfolio-feeds/pkg/domain"
	"portfolio-feeds/pkg/sites"
)

// ContentSaver saves an Article to a storage backend
type ContentSaver interface {
	// SaveArticle saves an article to storage
	SaveArticle(ctx context.Context, article *domain.Article) error
}

// Options controls how source results are merged
type Options struct {
	// DedupeLinks keeps only the newest article for each link
	DedupeLinks bool
}

// Result is the outcome of one aggregation run
type Result struct {
	RunID      string
	Articles   []domain.Article
	Platforms  []domain.Platform
	Counts     map[domain.Platform]int
	Duplicates int
	Duration   time.Duration
}

// Aggregator runs every source concurrently and merges their articles
// into a single list sorted newest first.
type Aggregator struct {
	sources []sites.Source
	opts    Options
}

// NewAggregator creates an aggregator over the given sources
func NewAggregator(sources []sites.Source, opts Options) *Aggregator {
	return &Aggregator{
		sources: sources,
		opts:    opts,
	}
}

// Run fetches from all sources and merges the results.
// Sources absorb their own failures, so Run always returns a result;
// a failed source simply contributes nothing.
func (a *Aggregator) Run(ctx context.Context) *Result {
	start := time.Now()
	runID := uuid.NewString()

	log.Printf("Aggregator [%s]: Running %d sources", runID, len(a.sources))

	// Each source writes only its own slot
	perSource := make([][]domain.Article, len(a.sources))

	var g errgroup.Group
	for i, source := range a.sources {
		g.Go(func() error {
			perSource[i] = source.Fetch(ctx)
			log.Printf("Aggregator [%s]: %s returned %d articles", runID, source.Platform(), len(perSource[i]))
			return nil
		})
	}
	g.Wait()

	articles := lo.Flatten(perSource)
	domain.SortByDateDesc(articles)

	duplicates := 0
	if a.opts.DedupeLinks {
		unique := lo.UniqBy(articles, func(article domain.Article) string {
			return article.Link
		})
		duplicates = len(articles) - len(unique)
		articles = unique
	}

	result := &Result{
		RunID:    runID,
		Articles: articles,
		Platforms: lo.Map(a.sources, func(source sites.Source, _ int) domain.Platform {
			return source.Platform()
		}),
		Counts: lo.CountValuesBy(articles, func(article domain.Article) domain.Platform {
			return article.Source
		}),
		Duplicates: duplicates,
		Duration:   time.Since(start),
	}

	log.Printf("Aggregator [%s]: Collected %d articles in %v (%d duplicate links dropped)",
		runID, len(articles), result.Duration.Round(time.Millisecond), duplicates)

	return result
}

// Articles runs the aggregation and returns the merged list.
// It fails only when ctx ended before the run completed.
func (a *Aggregator) Articles(ctx context.Context) ([]domain.Article, error) {
	result := a.Run(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result.Articles, nil
}

// Archive saves every article with each saver.
// Archiving is best effort: failures are logged and counted, never returned.
func Archive(ctx context.Context, savers []ContentSaver, articles []domain.Article) int {
	failures := 0

	for _, saver := range savers {
		saved := 0
		for i := range articles {
			if err := saver.SaveArticle(ctx, &articles[i]); err != nil {
				log.Printf("Archive (%T): ERROR saving %s: %v", saver, articles[i].Link, err)
				failures++
				continue
			}
			saved++
		}
		log.Printf("Archive (%T): Saved %d/%d articles", saver, saved, len(articles))
	}

	return failures
}
