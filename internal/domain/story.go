package domain

import "time"

// DefaultCategory is assigned to a story whose feed item carries no category.
const DefaultCategory = "News"

// MaxStories caps the number of stories kept from one feed document.
const MaxStories = 30

// Story is one normalized feed entry. Link is the identity key.
type Story struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	PubDate     string `json:"pub_date"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url,omitempty"`
}

// HasImage reports whether the feed attached a media image to the story.
func (s Story) HasImage() bool {
	return s.ImageURL != ""
}

// Extracted is what the article extractor returns for a page.
type Extracted struct {
	Title string
	Body  string
}

// ArchivedStory is a story row read back from the archive.
type ArchivedStory struct {
	Story
	FeedURL    string    `json:"feed_url"`
	ArchivedAt time.Time `json:"archived_at"`
}
