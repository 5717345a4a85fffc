package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSortByDateDesc(t *testing.T) {
	articles := []Article{
		{Title: "old", Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Title: "undated"},
		{Title: "new", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{Title: "mid-a", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Title: "mid-b", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	SortByDateDesc(articles)

	expected := []string{"new", "mid-a", "mid-b", "old", "undated"}
	for i, title := range expected {
		if articles[i].Title != title {
			t.Errorf("Expected article %d to be '%s', got '%s'", i, title, articles[i].Title)
		}
	}

	for i := 0; i+1 < len(articles)-1; i++ {
		if articles[i].Date.Before(articles[i+1].Date) {
			t.Errorf("Articles %d and %d are not in descending order", i, i+1)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "RFC3339 with offset",
			input: "2024-01-01T09:00:00+09:00",
			want:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "RFC3339 with milliseconds",
			input: "2024-03-05T12:30:00.000+09:00",
			want:  time.Date(2024, 3, 5, 3, 30, 0, 0, time.UTC),
		},
		{
			name:  "RFC1123 from feeds",
			input: "Mon, 02 Jan 2006 15:04:05 GMT",
			want:  time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC),
		},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "not a date", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) failed: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestArticle_JSON(t *testing.T) {
	article := Article{
		Title:   "Go generics",
		Link:    "https://qiita.com/u/items/1",
		Date:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Source:  PlatformQiita,
		Excerpt: "Intro。",
	}

	data, err := json.Marshal(article)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	for _, key := range []string{`"title"`, `"link"`, `"date"`, `"source":"Qiita"`, `"excerpt"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("Expected JSON to contain %s, got %s", key, data)
		}
	}

	undated, err := json.Marshal(Article{Title: "x", Source: PlatformZenn})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(undated), `"date"`) {
		t.Errorf("Expected zero date to be omitted, got %s", undated)
	}
}
