// Package posts loads the site's own blog posts from markdown files with YAML front matter.
package posts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"portfolio-feeds/pkg/content"
	"portfolio-feeds/pkg/domain"
)

const (
	wordsPerMinute = 200
	cjkPerMinute   = 500
)

var (
	errNoFrontMatter   = errors.New("missing front matter")
	errOpenFrontMatter = errors.New("unterminated front matter")
)

// frontMatter is the YAML header of a post file
type frontMatter struct {
	Title    string `yaml:"title"`
	Date     string `yaml:"date"`
	Excerpt  string `yaml:"excerpt"`
	Category string `yaml:"category"`
	Draft    bool   `yaml:"draft"`
}

// FileStore reads posts from a content directory.
// The slug of a post is its file name without the extension.
type FileStore struct {
	Dir string
}

// NewFileStore creates a store over dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Posts returns all published posts, newest first.
// An unreadable directory is an error; a single malformed file is logged and skipped.
func (s *FileStore) Posts(ctx context.Context) ([]domain.Post, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read posts directory: %w", err)
	}

	var posts []domain.Post
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".md" && ext != ".mdx") {
			continue
		}

		path := filepath.Join(s.Dir, entry.Name())
		post, draft, err := readPost(path)
		if err != nil {
			log.Printf("Posts: skipping %s: %v", path, err)
			continue
		}
		if draft {
			continue
		}

		posts = append(posts, post)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if a.Date.IsZero() != b.Date.IsZero() {
			return !a.Date.IsZero()
		}
		return a.Date.After(b.Date)
	})

	return posts, nil
}

func readPost(path string) (domain.Post, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Post{}, false, fmt.Errorf("failed to read file: %w", err)
	}

	header, body, err := splitFrontMatter(data)
	if err != nil {
		return domain.Post{}, false, err
	}

	var meta frontMatter
	if err := yaml.Unmarshal(header, &meta); err != nil {
		return domain.Post{}, false, fmt.Errorf("failed to parse front matter: %w", err)
	}

	slug := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	post := domain.Post{
		Slug:        slug,
		Title:       meta.Title,
		Excerpt:     meta.Excerpt,
		Category:    meta.Category,
		ReadingTime: ReadingTime(string(body)),
	}

	if post.Title == "" {
		post.Title = slug
	}

	if post.Excerpt == "" {
		post.Excerpt = content.Excerpt(string(body), content.DefaultMaxLength)
	}

	if meta.Date != "" {
		date, err := domain.ParseDate(meta.Date)
		if err != nil {
			log.Printf("Posts: invalid date in %s: %v", path, err)
		} else {
			post.Date = date
		}
	}

	return post, meta.Draft, nil
}

// splitFrontMatter separates the YAML block delimited by "---" lines from the body
func splitFrontMatter(data []byte) ([]byte, []byte, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	if !bytes.HasPrefix(data, []byte("---\n")) {
		return nil, nil, errNoFrontMatter
	}

	rest := data[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, nil, errOpenFrontMatter
	}

	header := rest[:end]
	body := rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}

	return header, body, nil
}

// ReadingTime estimates how long a post takes to read, e.g. "3 min read".
// Latin text is counted in words and CJK text in characters.
func ReadingTime(body string) string {
	text := content.Normalize(body)

	cjk := 0
	var latin strings.Builder
	for _, r := range text {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			cjk++
			latin.WriteRune(' ')
			continue
		}
		latin.WriteRune(r)
	}
	words := len(strings.Fields(latin.String()))

	minutes := float64(words)/wordsPerMinute + float64(cjk)/cjkPerMinute
	return fmt.Sprintf("%d min read", max(1, int(math.Ceil(minutes))))
}
