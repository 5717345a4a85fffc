package sites

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portfolio-feeds/pkg/config"
	"portfolio-feeds/pkg/domain"
	"portfolio-feeds/pkg/httpclient"
)

const noteFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>alice</title>
<link>https://note.com/alice</link>
<description>alice's notes</description>
<item>
<title>First note</title>
<link>https://note.com/alice/n/n1</link>
<description><![CDATA[<p>noteで記事を書きました。Go言語の並行処理について詳しく解説しています。</p>]]></description>
<pubDate>Mon, 01 Jan 2024 09:00:00 +0900</pubDate>
</item>
<item>
<title>Second</title>
<link>https://note.com/alice/n/n2</link>
<description>short</description>
<pubDate>Tue, 02 Jan 2024 09:00:00 +0900</pubDate>
</item>
<item>
<title>No link</title>
<description>dropped</description>
</item>
</channel>
</rss>`

func newTestNote(serverURL string) *Note {
	client := httpclient.NewClient(httpclient.FeedClient)
	return NewNote(client, config.PlatformConfig{Handle: "alice", BaseURL: serverURL, PerPage: 20}, testBounds)
}

func TestNote_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/alice/rss" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(noteFeed))
	}))
	defer server.Close()

	articles := newTestNote(server.URL).Fetch(context.Background())

	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(articles))
	}

	first := articles[0]
	if first.Title != "First note" {
		t.Errorf("Expected title 'First note', got '%s'", first.Title)
	}
	if first.Source != domain.PlatformNote {
		t.Errorf("Expected source note, got %s", first.Source)
	}
	want := "noteで記事を書きました。Go言語の並行処理について詳しく解説しています。"
	if first.Excerpt != want {
		t.Errorf("Expected excerpt %q, got %q", want, first.Excerpt)
	}
	if !first.Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected date 2024-01-01T00:00Z, got %v", first.Date)
	}

	if articles[1].Excerpt != "Second is a technical article about this topic." {
		t.Errorf("Expected fallback excerpt, got %q", articles[1].Excerpt)
	}
}

func TestNote_FailuresDegradeToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"not a feed", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("plain text, no feed here"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			articles := newTestNote(server.URL).Fetch(context.Background())

			if articles == nil || len(articles) != 0 {
				t.Errorf("Expected empty non-nil result, got %v", articles)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()

	sources := FromConfig(cfg)
	if len(sources) != 2 {
		t.Fatalf("Expected Qiita and Zenn by default, got %d sources", len(sources))
	}
	if sources[0].Platform() != domain.PlatformQiita || sources[1].Platform() != domain.PlatformZenn {
		t.Errorf("Unexpected source order: %s, %s", sources[0].Platform(), sources[1].Platform())
	}

	cfg.Platforms.Note.Handle = "alice"
	cfg.Platforms.Qiita.Handle = ""

	sources = FromConfig(cfg)
	if len(sources) != 2 || sources[1].Platform() != domain.PlatformNote {
		t.Errorf("Expected Zenn and note sources, got %d", len(sources))
	}
}
