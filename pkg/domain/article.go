package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Platform identifies the external publishing platform an article came from
type Platform string

const (
	PlatformQiita Platform = "Qiita"
	PlatformZenn  Platform = "Zenn"
	PlatformNote  Platform = "note"
)

// Platforms lists every supported platform in display order
var Platforms = []Platform{PlatformQiita, PlatformZenn, PlatformNote}

// Article represents an external article aggregated from a publishing platform
type Article struct {
	Title   string    `bson:"title" json:"title"`
	Link    string    `bson:"link" json:"link"`
	Date    time.Time `bson:"date" json:"date,omitzero"`
	Source  Platform  `bson:"source" json:"source"`
	Excerpt string    `bson:"excerpt" json:"excerpt"`
}

// HasDate reports whether the article carries a usable publication date
func (a Article) HasDate() bool {
	return !a.Date.IsZero()
}

// SortByDateDesc sorts articles newest first. The sort is stable, and
// articles without a date are moved to the end.
func SortByDateDesc(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if a.HasDate() != b.HasDate() {
			return a.HasDate()
		}
		return a.Date.After(b.Date)
	})
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC1123Z, time.RFC1123}

// ParseDate parses a publication timestamp as returned by the platform APIs.
// RFC 3339 and the RFC 1123 feed formats are tried first; anything else goes
// through dateparse.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	t, err := dateparse.ParseAny(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", value, err)
	}
	return t, nil
}
