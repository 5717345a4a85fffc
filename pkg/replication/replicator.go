package replication

import (
	"context"
	"crypto/md5"
	"fmt"
	"log"
	"sync"

	"portfolio-feeds/pkg/db"
	"portfolio-feeds/pkg/domain"
)

// ArticleReader lists every article held by the source archive
type ArticleReader interface {
	GetAllArticles(ctx context.Context) ([]domain.Article, error)
}

// ArticleWriter writes one article to the target archive
type ArticleWriter interface {
	db.DBProvider
	SaveArticle(ctx context.Context, article *domain.Article) error
}

// Config wires the replication dependencies.
type Config struct {
	Source    ArticleReader
	Target    ArticleWriter
	BatchSize int
	Workers   int
}

// Replicator backfills the SQL archive from the MongoDB archive.
// Links already present in the target are left untouched.
type Replicator struct {
	source    ArticleReader
	target    ArticleWriter
	batchSize int
	workers   int
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source archive is required")
	}
	if cfg.Target == nil {
		return nil, fmt.Errorf("target archive is required")
	}

	r := &Replicator{
		source:    cfg.Source,
		target:    cfg.Target,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
	}
	if r.batchSize < 1 {
		r.batchSize = 100
	}
	if r.workers < 1 {
		r.workers = 3
	}
	return r, nil
}

// Stats reports what one replication run did
type Stats struct {
	Processed int
	Inserted  int
}

// Replicate copies every article missing from the target
func (r *Replicator) Replicate(ctx context.Context) (Stats, error) {
	articles, err := r.source.GetAllArticles(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("read source archive: %w", err)
	}

	log.Printf("Replication: Loaded %d articles, processing in batches of %d...", len(articles), r.batchSize)

	stats, err := r.processBatches(ctx, articles)
	if err != nil {
		return stats, err
	}

	log.Printf("Replication: complete, processed %d articles, inserted %d new articles", stats.Processed, stats.Inserted)
	return stats, nil
}

type batchJob struct {
	batch []domain.Article
	start int
}

type batchResult struct {
	processed int
	inserted  int
	err       error
}

// processBatches fans batches out to a fixed set of workers and stops at the first error
func (r *Replicator) processBatches(ctx context.Context, articles []domain.Article) (Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	numBatches := (len(articles) + r.batchSize - 1) / r.batchSize
	jobs := make(chan batchJob, numBatches)
	results := make(chan batchResult, numBatches)

	for start := 0; start < len(articles); start += r.batchSize {
		end := min(start+r.batchSize, len(articles))
		jobs <- batchJob{batch: articles[start:end], start: start}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					return
				}
				inserted, err := r.processBatch(ctx, job)
				results <- batchResult{processed: len(job.batch), inserted: inserted, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var stats Stats
	for result := range results {
		if result.err != nil {
			cancel()
			return stats, result.err
		}
		stats.Processed += result.processed
		stats.Inserted += result.inserted
	}

	return stats, ctx.Err()
}

// processBatch inserts the articles of one batch whose links the target does not have yet
func (r *Replicator) processBatch(ctx context.Context, job batchJob) (int, error) {
	existing, err := r.existingLinks(ctx, job.batch)
	if err != nil {
		return 0, fmt.Errorf("check existing links for batch at %d: %w", job.start, err)
	}

	toInsert := filterNewArticles(job.batch, existing)
	for i := range toInsert {
		if err := r.target.SaveArticle(ctx, &toInsert[i]); err != nil {
			return 0, fmt.Errorf("insert batch at %d: %w", job.start, err)
		}
	}

	log.Printf("Replication: batch at %d, %d existing, %d inserted", job.start, len(existing), len(toInsert))
	return len(toInsert), nil
}

// existingLinks returns which links of the batch are already in the target
func (r *Replicator) existingLinks(ctx context.Context, batch []domain.Article) (map[string]bool, error) {
	if r.target.DB() == nil {
		return nil, fmt.Errorf("target DB not connected")
	}

	query, args := buildLinkInQuery(batch)
	if len(args) == 0 {
		return map[string]bool{}, nil
	}

	rows, err := r.target.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing links: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		set[link] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return set, nil
}

// buildLinkInQuery builds a SELECT ... IN query over the batch's links.
// The comment prefix makes each query text unique so pgx never shares a
// cached statement between workers.
func buildLinkInQuery(batch []domain.Article) (string, []any) {
	args := make([]any, 0, len(batch))
	for _, a := range batch {
		if a.Link != "" {
			args = append(args, a.Link)
		}
	}
	if len(args) == 0 {
		return "", nil
	}

	hash := md5.Sum([]byte(args[0].(string)))
	query := fmt.Sprintf(`/* q_%d_%x */ SELECT link FROM external_article WHERE link IN (`, len(args), hash[:4])
	for i := range args {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("$%d", i+1)
	}
	query += ")"

	return query, args
}

func filterNewArticles(all []domain.Article, existing map[string]bool) []domain.Article {
	out := make([]domain.Article, 0, len(all))
	for _, a := range all {
		if a.Link == "" || existing[a.Link] {
			continue
		}
		out = append(out, a)
	}
	return out
}
