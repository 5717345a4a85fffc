package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"portfolio-feeds/pkg/sitemap"
)

// Prints the entries of a published sitemap, e.g. to check a deployment
func main() {
	sitemapURL := "https://rancorder.vercel.app/sitemap.xml"

	if len(os.Args) > 1 {
		sitemapURL = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := sitemap.NewParser(nil).ParseFromURL(ctx, sitemapURL)
	if err != nil {
		log.Fatalf("Failed to parse sitemap: %v", err)
	}

	maxEntries := min(len(entries), 10)

	fmt.Printf("Found %d entries. Showing first %d:\n\n", len(entries), maxEntries)

	for i, entry := range entries[:maxEntries] {
		fmt.Printf("Entry %d:\n", i+1)
		fmt.Printf("  URL: %s\n", entry.Location)
		if entry.LastMod != "" {
			fmt.Printf("  Last Modified: %s\n", entry.LastMod)
		}
		if entry.ChangeFreq != "" {
			fmt.Printf("  Change Frequency: %s\n", entry.ChangeFreq)
		}
		if entry.Priority != "" {
			fmt.Printf("  Priority: %s\n", entry.Priority)
		}
		fmt.Println()
	}
}
