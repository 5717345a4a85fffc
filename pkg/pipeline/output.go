package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-runewidth"

	"portfolio-feeds/pkg/domain"
)

// summarySamples is how many articles PrintSummary shows
const summarySamples = 3

// summaryWidth is the display width of a sample excerpt line
const summaryWidth = 72

// WriteJSON writes articles as an indented JSON array, creating parent directories as needed
func WriteJSON(path string, articles []domain.Article) error {
	if articles == nil {
		articles = []domain.Article{}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode articles: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// ReadJSON reads an article list written by WriteJSON
func ReadJSON(path string) ([]domain.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var articles []domain.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return articles, nil
}

// ArtifactReader serves the articles of a previously written JSON artifact
type ArtifactReader struct {
	Path string
}

// Articles reads the artifact. The context is unused; the read is local.
func (r *ArtifactReader) Articles(ctx context.Context) ([]domain.Article, error) {
	return ReadJSON(r.Path)
}

// PrintSummary writes per-platform counts and a few sample excerpts
func PrintSummary(w io.Writer, result *Result) {
	for _, platform := range result.Platforms {
		fmt.Fprintf(w, "Found %d %s articles\n", result.Counts[platform], platform)
	}
	fmt.Fprintf(w, "Total: %d articles\n", len(result.Articles))

	if result.Duplicates > 0 {
		fmt.Fprintf(w, "Dropped %d duplicate links\n", result.Duplicates)
	}

	samples := min(summarySamples, len(result.Articles))
	if samples == 0 {
		return
	}

	fmt.Fprintln(w, "\nSample excerpts:")
	for i := 0; i < samples; i++ {
		article := result.Articles[i]
		fmt.Fprintf(w, "%d. [%s] %s\n", i+1, article.Source, article.Title)
		fmt.Fprintf(w, "   %s\n", runewidth.Truncate(article.Excerpt, summaryWidth, "..."))
	}
}
