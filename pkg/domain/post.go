package domain

import "time"

// Post represents an internal blog post loaded from local content
type Post struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date,omitzero"`
	Excerpt     string    `json:"excerpt,omitempty"`
	Category    string    `json:"category,omitempty"`
	ReadingTime string    `json:"readingTime,omitempty"`
}
