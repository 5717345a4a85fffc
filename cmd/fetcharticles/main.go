package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"portfolio-feeds/pkg/config"
	"portfolio-feeds/pkg/db"
	"portfolio-feeds/pkg/domain"
	"portfolio-feeds/pkg/filter"
	"portfolio-feeds/pkg/pipeline"
	"portfolio-feeds/pkg/replication"
	"portfolio-feeds/pkg/sites"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (defaults plus environment when empty)")
		output     = flag.String("output", "", "Artifact path, overrides output.path")
		archive    = flag.Bool("archive", false, "Also save articles to the configured archive sinks")
		onlyNew    = flag.Bool("only-new", false, "Archive only links MongoDB does not have yet")
		replicate  = flag.Bool("replicate", false, "Backfill the SQL archive from MongoDB after archiving")
		timeout    = flag.Duration("timeout", 2*time.Minute, "Overall deadline for the run")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf(".env file not loaded: %v (using environment variables only)", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *output != "" {
		cfg.Output.Path = *output
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("Fetching external articles: %s", cfg)

	aggregator := pipeline.NewAggregator(sites.FromConfig(cfg), pipeline.Options{DedupeLinks: cfg.Aggregate.DedupeLinks})
	result := aggregator.Run(ctx)

	if err := pipeline.WriteJSON(cfg.Output.Path, result.Articles); err != nil {
		log.Fatalf("Failed to write %s: %v", cfg.Output.Path, err)
	}
	log.Printf("Wrote %d articles to %s", len(result.Articles), cfg.Output.Path)

	pipeline.PrintSummary(os.Stdout, result)

	if !*archive {
		return
	}

	sinks := db.Open(ctx, cfg.Archive)
	defer sinks.Close(context.Background())

	savers := make([]pipeline.ContentSaver, 0, len(sinks.Savers))
	for _, saver := range sinks.Savers {
		savers = append(savers, saver)
	}

	toArchive, err := archiveCandidates(ctx, sinks, result.Articles, *onlyNew)
	if err != nil {
		log.Printf("Archive skipped: %v", err)
		return
	}

	if failures := pipeline.Archive(ctx, savers, toArchive); failures > 0 {
		log.Printf("Archive finished with %d failures", failures)
	}

	if *replicate {
		runReplication(ctx, sinks)
	}
}

// archiveCandidates drops root links, and with onlyNew the links MongoDB already holds
func archiveCandidates(ctx context.Context, sinks *db.Sinks, articles []domain.Article, onlyNew bool) ([]domain.Article, error) {
	filters := []filter.Filter{filter.NewBaseURLFilter()}

	if onlyNew && sinks.Mongo != nil {
		links, err := sinks.Mongo.GetAllLinks(ctx)
		if err != nil {
			return nil, fmt.Errorf("load archived links: %w", err)
		}
		filters = append(filters, filter.NewAlreadyArchivedFilter(links))
	}

	kept, err := filter.Articles(ctx, articles, filters...)
	if err != nil {
		return nil, err
	}

	log.Printf("Archiving %d of %d articles", len(kept), len(articles))
	return kept, nil
}

func runReplication(ctx context.Context, sinks *db.Sinks) {
	target, ok := sinks.SQL.(replication.ArticleWriter)
	if sinks.Mongo == nil || !ok {
		log.Printf("Replication skipped: needs both MongoDB and a direct SQL archive")
		return
	}

	replicator, err := replication.NewReplicator(replication.Config{Source: sinks.Mongo, Target: target})
	if err != nil {
		log.Printf("Replication skipped: %v", err)
		return
	}

	if _, err := replicator.Replicate(ctx); err != nil {
		log.Printf("Replication failed: %v", err)
	}
}
