package content

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// maxNormalizePasses bounds the search for a fixed point. Real bodies settle in two or three.
const maxNormalizePasses = 8

var (
	htmlTagPattern = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9-]*(\s[^<>]*)?/?>`)

	// A "<" that would read as markup once the text is parsed again
	tagOpenPattern = regexp.MustCompile(`<([a-zA-Z/!?])`)

	markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))
)

// Normalize reduces a markdown (or HTML) article body to a single line of plain text.
// Code blocks, inline code and images are dropped, links keep their label,
// heading, list and quote markers and emphasis are stripped, and whitespace is collapsed.
//
// The result is a fixed point: Normalize(Normalize(s)) == Normalize(s).
func Normalize(input string) string {
	for range maxNormalizePasses {
		next := normalizeOnce(input)
		if next == input {
			break
		}
		input = next
	}
	return input
}

// ContainsHTML reports whether text carries HTML tags
func ContainsHTML(text string) bool {
	return htmlTagPattern.MatchString(text)
}

func normalizeOnce(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	if ContainsHTML(input) {
		input = HTMLToText(input)
	}

	source := []byte(strings.ReplaceAll(input, "\r\n", "\n"))
	doc := markdown.Parser().Parse(text.NewReader(source))

	var b bytes.Buffer
	writePlainText(&b, doc, source)

	return strings.Join(strings.Fields(neutralizeTags(b.String())), " ")
}

// writePlainText appends the readable text under node. Blocks are separated
// by a space so that words from neighbouring paragraphs never run together.
func writePlainText(w *bytes.Buffer, node ast.Node, source []byte) {
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.CodeSpan, *ast.Image, *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				w.Write(plain(n.Segment.Value(source)))
				if n.SoftLineBreak() || n.HardLineBreak() {
					w.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				w.Write(plain(n.Value))
			}
		case *ast.AutoLink:
			if entering {
				w.Write(n.Label(source))
			}
			return ast.WalkSkipChildren, nil
		default:
			if n.Type() == ast.TypeBlock {
				w.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
}

// plain resolves escapes and entities the way a renderer would, and drops
// backticks that never closed a code span.
func plain(value []byte) []byte {
	value = util.UnescapePunctuations(value)
	value = util.ResolveNumericReferences(value)
	value = util.ResolveEntityNames(value)
	return bytes.ReplaceAll(value, []byte("`"), nil)
}

func isCodeBlock(n ast.Node) bool {
	switch n.Kind() {
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		return true
	}
	return false
}

// neutralizeTags swaps the "<" of anything tag-like for "‹", so text that
// came from decoded entities such as "&lt;div&gt;" is never taken for HTML again.
func neutralizeTags(s string) string {
	return tagOpenPattern.ReplaceAllString(s, "‹$1")
}
