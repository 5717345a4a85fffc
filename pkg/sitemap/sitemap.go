package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log"

	"portfolio-feeds/pkg/httpclient"
)

// Namespace is the sitemaps.org schema namespace
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Entry represents a single URL entry of a sitemap
type Entry struct {
	Location   string // Absolute URL of the page
	LastMod    string // Last modification date (optional)
	Priority   string // Priority value (optional)
	ChangeFreq string // Change frequency (optional)
}

// XML structures shared by the builder and the parser

// urlSet represents a regular sitemap structure
type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	XMLNS   string     `xml:"xmlns,attr,omitempty"`
	URLs    []urlEntry `xml:"url"`
}

// urlEntry represents a single URL entry in XML
type urlEntry struct {
	Location   string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// sitemapIndex represents a sitemap index structure
type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapRef `xml:"sitemap"`
}

// sitemapRef represents a reference to another sitemap in an index
type sitemapRef struct {
	Location string `xml:"loc"`
	LastMod  string `xml:"lastmod,omitempty"`
}

// Parser reads sitemaps, following sitemap indexes one level deep
type Parser struct {
	client *httpclient.HTTPClient
}

// NewParser creates a new sitemap parser
func NewParser(client *httpclient.HTTPClient) *Parser {
	if client == nil {
		client = httpclient.NewClient(httpclient.FeedClient)
	}
	return &Parser{
		client: client,
	}
}

// ParseFromURL fetches and parses a sitemap from the given URL
func (p *Parser) ParseFromURL(ctx context.Context, sitemapURL string) ([]Entry, error) {
	body, err := p.client.GetBody(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sitemap: %w", err)
	}

	if !isSitemapIndex(body) {
		return p.Parse(body)
	}

	sitemapURLs, err := p.parseSitemapIndex(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sitemap index: %w", err)
	}

	if len(sitemapURLs) == 0 {
		return nil, fmt.Errorf("sitemap index contained no sitemap URLs")
	}

	// Parse all sitemaps in the index and combine their entries
	var allEntries []Entry
	for _, childURL := range sitemapURLs {
		childBody, err := p.client.GetBody(ctx, childURL)
		if err != nil {
			log.Printf("Sitemap parser: skipping %s: %v", childURL, err)
			continue
		}

		entries, err := p.Parse(childBody)
		if err != nil {
			log.Printf("Sitemap parser: skipping %s: %v", childURL, err)
			continue
		}
		allEntries = append(allEntries, entries...)
	}

	if len(allEntries) == 0 {
		return nil, fmt.Errorf("no entries found in any sitemap from index")
	}

	return allEntries, nil
}

// Parse parses a regular sitemap document
func (p *Parser) Parse(data []byte) ([]Entry, error) {
	var set urlSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to decode sitemap XML: %w", err)
	}

	entries := make([]Entry, 0, len(set.URLs))
	for _, urlEntry := range set.URLs {
		if urlEntry.Location != "" {
			entries = append(entries, Entry{
				Location:   urlEntry.Location,
				LastMod:    urlEntry.LastMod,
				Priority:   urlEntry.Priority,
				ChangeFreq: urlEntry.ChangeFreq,
			})
		}
	}

	return entries, nil
}

// parseSitemapIndex parses a sitemap index file
func (p *Parser) parseSitemapIndex(data []byte) ([]string, error) {
	var index sitemapIndex
	if err := xml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to decode sitemap index XML: %w", err)
	}

	urls := make([]string, 0, len(index.Sitemaps))
	for _, ref := range index.Sitemaps {
		if ref.Location != "" {
			urls = append(urls, ref.Location)
		}
	}

	return urls, nil
}

// isSitemapIndex checks the head of the document for a <sitemapindex> root
func isSitemapIndex(data []byte) bool {
	head := data[:min(len(data), 512)]
	return bytes.Contains(head, []byte("<sitemapindex"))
}
