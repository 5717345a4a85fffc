package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Extractor defines an interface for extracting title and text from HTML content
type Extractor interface {
	ExtractTitle(htmlContent string) (string, error)
	ExtractText(htmlContent string) (string, error)
}

// DefaultExtractor implements the Extractor interface using the standard extraction functions
type DefaultExtractor struct{}

// NewDefaultExtractor creates a new default extractor
func NewDefaultExtractor() *DefaultExtractor {
	return &DefaultExtractor{}
}

// ExtractTitle extracts the article title using the default extraction logic
func (e *DefaultExtractor) ExtractTitle(htmlContent string) (string, error) {
	return ExtractTitle(htmlContent)
}

// ExtractText extracts the article text using the default extraction logic
func (e *DefaultExtractor) ExtractText(htmlContent string) (string, error) {
	return ExtractText(htmlContent)
}

// ExtractText extracts the main article text from HTML content.
// Short fragments that readability cannot score are reduced with HTMLToText.
func ExtractText(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		if text := tidyText(article.TextContent); text != "" {
			return text, nil
		}
	}

	text := HTMLToText(htmlContent)
	if text == "" {
		return "", fmt.Errorf("failed to extract text: no text content")
	}

	return text, nil
}

// ExtractTitle extracts the article title from HTML content with fallback mechanisms
func ExtractTitle(htmlContent string) (string, error) {
	// Try readability first
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		title := strings.TrimSpace(article.Title)
		if title != "" {
			return title, nil
		}
	}

	// Fallback: Try parsing HTML directly with goquery
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Try <title> tag
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}

	// Try <h1> tag (often the main heading)
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title, nil
	}

	// Try meta property="og:title"
	if title, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title), nil
	}

	return "", fmt.Errorf("title not found in HTML")
}

// blockElements end a line of text when an HTML fragment is flattened
const blockElements = "br, p, div, li, tr, pre, blockquote, h1, h2, h3, h4, h5, h6"

// HTMLToText flattens an HTML fragment or document body into text.
// Scripts and styles are dropped and block elements keep their line breaks.
// Escaped markup such as "&lt;div&gt;" comes back as "‹div>".
func HTMLToText(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	doc.Find("script, style, noscript, template").Remove()
	doc.Find(blockElements).Each(func(i int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return tidyText(doc.Find("body").Text())
}

// tidyText trims every line of extracted text and drops the empty ones.
// Tag-like sequences decoded from entities are neutralized, and leading
// indentation is removed so it is never read as a markdown code block.
func tidyText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")

	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}

	return neutralizeTags(strings.Join(kept, "\n"))
}
