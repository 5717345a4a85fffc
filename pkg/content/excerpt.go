package content

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark/text"
)

const (
	// DefaultMaxLength is the excerpt length target, in runes
	DefaultMaxLength = 150

	// DefaultMinLength is the shortest excerpt considered usable
	DefaultMinLength = 30

	ellipsis = "..."
)

var sentenceTerminators = regexp.MustCompile(`[。．.!?！？]+`)

// Excerpt derives a sentence-aligned summary of at most maxLength runes
// (plus a trailing ellipsis) from an article body. Markup is normalized first.
// A non-positive maxLength selects DefaultMaxLength.
func Excerpt(body string, maxLength int) string {
	return ExcerptWithin(body, maxLength, DefaultMinLength)
}

// ExcerptWithin is Excerpt with an explicit minimum. When the whole sentences
// that fit add up to fewer than minLength runes, the body is cut bluntly instead.
func ExcerptWithin(body string, maxLength, minLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	minLength = max(minLength, 0)

	normalized := Normalize(body)
	if normalized == "" {
		return ""
	}

	var b strings.Builder
	length := 0

	for _, sentence := range sentenceTerminators.Split(normalized, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		n := utf8.RuneCountInString(sentence) + 1
		if length+n > maxLength {
			break
		}

		b.WriteString(sentence)
		b.WriteString("。")
		length += n
	}

	excerpt := b.String()
	total := utf8.RuneCountInString(normalized)

	switch {
	case length < minLength && total > maxLength:
		excerpt = strings.TrimSpace(string([]rune(normalized)[:maxLength]))
	case excerpt == "":
		excerpt = normalized
	}

	if !endsWithTerminator(excerpt) {
		excerpt += ellipsis
	}

	return excerpt
}

// FirstParagraph returns the normalized text of the first paragraph that has
// any text left after normalization. Paragraphs are separated by blank lines,
// and code blocks never count as a paragraph.
func FirstParagraph(raw string) string {
	if ContainsHTML(raw) {
		raw = HTMLToText(raw)
	}

	source := []byte(strings.ReplaceAll(raw, "\r\n", "\n"))
	doc := markdown.Parser().Parse(text.NewReader(source))

	var paragraph bytes.Buffer
	for block := doc.FirstChild(); block != nil; block = block.NextSibling() {
		if isCodeBlock(block) || block.HasBlankPreviousLines() {
			if normalized := Normalize(paragraph.String()); normalized != "" {
				return normalized
			}
			paragraph.Reset()
		}
		if !isCodeBlock(block) {
			writePlainText(&paragraph, block, source)
		}
	}

	return Normalize(paragraph.String())
}

// Truncate shortens s to maxLength runes, appending "..." when anything was cut
func Truncate(s string, maxLength int) string {
	if maxLength <= 0 || utf8.RuneCountInString(s) <= maxLength {
		return s
	}

	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxLength])) + ellipsis
}

func endsWithTerminator(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return strings.ContainsRune("。．.!?！？", r)
}
