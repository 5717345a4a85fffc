package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"portfolio-feeds/pkg/config"
	"portfolio-feeds/pkg/domain"
	"portfolio-feeds/pkg/httpclient"
	"portfolio-feeds/pkg/pipeline"
	"portfolio-feeds/pkg/sites"
)

type mockPostSource struct {
	posts []domain.Post
	err   error
}

func (m *mockPostSource) Posts(ctx context.Context) ([]domain.Post, error) {
	return m.posts, m.err
}

type mockArticleSource struct {
	articles []domain.Article
	err      error
	delay    time.Duration
}

func (m *mockArticleSource) Articles(ctx context.Context) ([]domain.Article, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.articles, m.err
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestBuilder(posts PostSource, articles ArticleSource) *Builder {
	return &Builder{
		BaseURL:      "https://rancorder.vercel.app/",
		StaticRoutes: []string{"", "/ja", "/blog"},
		Posts:        posts,
		Articles:     articles,
		Timeout:      time.Second,
		Now:          func() time.Time { return fixedNow },
	}
}

func samplePosts() []domain.Post {
	return []domain.Post{
		{Slug: "go-cli", Title: "Go CLI", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Slug: "table-tests", Title: "Table tests", Date: time.Date(2024, 2, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))},
	}
}

func locations(entries []Entry) []string {
	locs := make([]string, len(entries))
	for i, e := range entries {
		locs[i] = e.Location
	}
	return locs
}

func TestBuilder_Build_PostsOnly(t *testing.T) {
	builder := newTestBuilder(&mockPostSource{posts: samplePosts()}, &mockArticleSource{})

	data, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !bytes.HasPrefix(data, []byte(xml.Header)) {
		t.Errorf("Expected document to start with the XML header, got %q", data[:40])
	}
	if !bytes.Contains(data, []byte(`<urlset xmlns="`+Namespace+`">`)) {
		t.Error("Expected urlset with sitemap namespace")
	}

	entries, err := NewParser(nil).Parse(data)
	if err != nil {
		t.Fatalf("Built document is not well-formed: %v", err)
	}

	expected := []string{
		"https://rancorder.vercel.app",
		"https://rancorder.vercel.app/ja",
		"https://rancorder.vercel.app/blog",
		"https://rancorder.vercel.app/blog/go-cli",
		"https://rancorder.vercel.app/blog/table-tests",
	}

	got := locations(entries)
	if len(got) != len(expected) {
		t.Fatalf("Expected %d entries, got %d: %v", len(expected), len(got), got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Entry %d: expected %s, got %s", i, expected[i], got[i])
		}
	}
}

func TestBuilder_Entries_Formatting(t *testing.T) {
	articles := &mockArticleSource{articles: []domain.Article{
		{Title: "A", Link: "https://qiita.com/alice/items/1", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Source: domain.PlatformQiita},
	}}
	builder := newTestBuilder(&mockPostSource{posts: samplePosts()}, articles)

	entries := builder.Entries(context.Background())
	if len(entries) != 6 {
		t.Fatalf("Expected 6 entries, got %d", len(entries))
	}

	tests := []struct {
		index      int
		lastMod    string
		changeFreq string
		priority   string
	}{
		{0, "2024-06-01T12:00:00.000Z", ChangeWeekly, "1.0"},
		{1, "2024-06-01T12:00:00.000Z", ChangeWeekly, "0.8"},
		{3, "2024-01-01T00:00:00.000Z", ChangeMonthly, "0.7"},
		{4, "2024-02-01T00:00:00.000Z", ChangeMonthly, "0.7"},
		{5, "2024-01-01T00:00:00.000Z", ChangeMonthly, "0.6"},
	}

	for _, tt := range tests {
		entry := entries[tt.index]
		if entry.LastMod != tt.lastMod {
			t.Errorf("Entry %d: expected lastmod %s, got %s", tt.index, tt.lastMod, entry.LastMod)
		}
		if entry.ChangeFreq != tt.changeFreq {
			t.Errorf("Entry %d: expected changefreq %s, got %s", tt.index, tt.changeFreq, entry.ChangeFreq)
		}
		if entry.Priority != tt.priority {
			t.Errorf("Entry %d: expected priority %s, got %s", tt.index, tt.priority, entry.Priority)
		}
	}

	if entries[5].Location != "https://qiita.com/alice/items/1" {
		t.Errorf("Expected article link to be used verbatim, got %s", entries[5].Location)
	}
}

func TestBuilder_Entries_SkipsInvalidRecords(t *testing.T) {
	posts := &mockPostSource{posts: []domain.Post{
		{Slug: "undated", Title: "Undated"},
		{Slug: "dated", Title: "Dated", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
	articles := &mockArticleSource{articles: []domain.Article{
		{Title: "Relative", Link: "/items/1", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Title: "No date", Link: "https://zenn.dev/alice/articles/x"},
		{Title: "Good", Link: "https://zenn.dev/alice/articles/y", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}}

	entries := newTestBuilder(posts, articles).Entries(context.Background())

	got := locations(entries)
	if len(got) != 5 {
		t.Fatalf("Expected 5 entries, got %d: %v", len(got), got)
	}
	if got[3] != "https://rancorder.vercel.app/blog/dated" {
		t.Errorf("Expected dated post, got %s", got[3])
	}
	if got[4] != "https://zenn.dev/alice/articles/y" {
		t.Errorf("Expected valid article, got %s", got[4])
	}
}

func TestBuilder_Entries_PostsFailure(t *testing.T) {
	posts := &mockPostSource{err: errors.New("content directory missing")}
	articles := &mockArticleSource{articles: []domain.Article{
		{Title: "A", Link: "https://qiita.com/alice/items/1", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}

	got := locations(newTestBuilder(posts, articles).Entries(context.Background()))

	if len(got) != 4 {
		t.Fatalf("Expected static routes plus one article, got %v", got)
	}
	if got[3] != "https://qiita.com/alice/items/1" {
		t.Errorf("Expected article entry last, got %s", got[3])
	}
}

func TestBuilder_Entries_ArticlesTimeout(t *testing.T) {
	articles := &mockArticleSource{
		articles: []domain.Article{{Title: "Late", Link: "https://qiita.com/late", Date: time.Now()}},
		delay:    5 * time.Second,
	}
	builder := newTestBuilder(&mockPostSource{posts: samplePosts()}, articles)
	builder.Timeout = 50 * time.Millisecond

	start := time.Now()
	entries := builder.Entries(context.Background())
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Errorf("Expected builder to give up after the timeout, took %v", elapsed)
	}
	if len(entries) != 5 {
		t.Errorf("Expected static routes and posts only, got %d entries", len(entries))
	}
}

func TestBuilder_LoadArticles_TimeoutError(t *testing.T) {
	builder := newTestBuilder(nil, &mockArticleSource{delay: time.Second})
	builder.Timeout = 20 * time.Millisecond

	_, err := builder.loadArticles(context.Background())

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("Expected TimeoutError, got %v", err)
	}
	if timeoutErr.Timeout != 20*time.Millisecond {
		t.Errorf("Expected timeout 20ms, got %v", timeoutErr.Timeout)
	}
}

func TestBuilder_NilSources(t *testing.T) {
	builder := newTestBuilder(nil, nil)

	data, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	entries, err := NewParser(nil).Parse(data)
	if err != nil {
		t.Fatalf("Failed to parse built sitemap: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 static entries, got %d", len(entries))
	}
}

func TestArticleEntry_FormatError(t *testing.T) {
	_, err := articleEntry(domain.Article{Link: "not a url"})

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Expected FormatError, got %v", err)
	}
	if !errors.Is(err, errRelativeLink) {
		t.Errorf("Expected errRelativeLink, got %v", err)
	}
}

func TestNewBuilder_FromConfig(t *testing.T) {
	cfg := config.Default()

	builder := NewBuilder(cfg, nil, nil)

	if builder.BaseURL != cfg.Site.BaseURL {
		t.Errorf("Expected base URL %s, got %s", cfg.Site.BaseURL, builder.BaseURL)
	}
	if builder.Timeout != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %v", builder.Timeout)
	}
	if len(builder.StaticRoutes) != 3 {
		t.Errorf("Expected 3 static routes, got %d", len(builder.StaticRoutes))
	}
}

// One platform failing must not remove the other platform's entries
func TestBuilder_PlatformFailureIsolated(t *testing.T) {
	qiita := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"title":"Qiita post","url":"https://qiita.com/alice/items/1","created_at":"2024-01-01T00:00:00Z","body":"short"}]`))
	}))
	defer qiita.Close()

	zenn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer zenn.Close()

	client := httpclient.NewClient(httpclient.APIClient)
	sources := []sites.Source{
		sites.NewQiita(client, config.PlatformConfig{Handle: "alice", BaseURL: qiita.URL, PerPage: 20}, config.Default().Excerpt),
		sites.NewZenn(client, config.ZennConfig{
			PlatformConfig: config.PlatformConfig{Handle: "alice", BaseURL: zenn.URL, PerPage: 20},
			Detail:         config.DetailConfig{BatchSize: 2},
		}, config.Default().Excerpt),
	}

	aggregator := pipeline.NewAggregator(sources, pipeline.Options{DedupeLinks: true})
	builder := newTestBuilder(&mockPostSource{}, aggregator)

	data, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !strings.Contains(string(data), "<loc>https://qiita.com/alice/items/1</loc>") {
		t.Errorf("Expected Qiita article in sitemap, got:\n%s", data)
	}

	entries, err := NewParser(nil).Parse(data)
	if err != nil {
		t.Fatalf("Failed to parse built sitemap: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("Expected 3 static entries and 1 article, got %d", len(entries))
	}
}
