package domain

import (
	"fmt"
	"time"
)

// Metadata keys written on imported content items
const (
	MetaItemIdentity = "podsync_feed_guid"
	MetaAudioURL     = "podsync_audio_url"
	MetaImageURL     = "podsync_image_url"
	MetaFeedID       = "podsync_feed_id"
)

// ContentTypePost is the content type of every imported episode
const ContentTypePost = "post"

// Import result statuses
const (
	ResultSuccess = "success"
)

// FeedItem is one entry of a parsed feed, produced once by the parsing boundary
type FeedItem struct {
	GUID         string
	Link         string
	Title        string
	Description  string
	Content      string // content:encoded
	Published    *time.Time
	EnclosureURL string
	ImageURL     string // itunes:image href
	Keywords     string // itunes:keywords, comma separated
}

// Identity returns the GUID when present, otherwise the link
func (i *FeedItem) Identity() string {
	if i.GUID != "" {
		return i.GUID
	}
	return i.Link
}

// ParsedFeed is the structured form of a feed document
type ParsedFeed struct {
	Title         string
	LastBuildDate string
	Items         []*FeedItem
}

// ContentDraft is a creation request for the Content Store
type ContentDraft struct {
	Title     string
	Body      string
	Status    string
	Type      string
	Published time.Time
	AuthorID  string
}

// ContentItem is a stored episode post
type ContentItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	AuthorID  string    `json:"author_id"`
	Published time.Time `json:"published"`
	Modified  time.Time `json:"modified"`
	Featured  string    `json:"featured_asset_id,omitempty"`
}

// Asset is a sideloaded binary attachment
type Asset struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	SourceURL   string    `json:"source_url"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Category is a named taxonomy term
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Episode is a content item with its metadata and category names, as shown by the API
type Episode struct {
	*ContentItem
	Identity   string   `json:"identity,omitempty"`
	FeedID     string   `json:"feed_id,omitempty"`
	AudioURL   string   `json:"audio_url,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	Categories []string `json:"categories"`
}

// ImportResult is the outcome of one processed, non-duplicate item.
// Status is "success" or the store error message.
type ImportResult struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

// ChunkResult is the response of one chunked import call
type ChunkResult struct {
	Processed int             `json:"processed"`
	Total     int             `json:"total"`
	NewOffset int             `json:"new_offset"`
	Done      bool            `json:"done"`
	Results   []*ImportResult `json:"results"`
}

// CycleReport summarizes one scheduled cycle of a feed
type CycleReport struct {
	FeedID        string          `json:"feed_id"`
	Imported      []*ImportResult `json:"imported,omitempty"`
	UpdatedTitles []string        `json:"updated_titles,omitempty"`
}

// SuccessCount counts the successful results
func SuccessCount(results []*ImportResult) int {
	n := 0
	for _, r := range results {
		if r.Status == ResultSuccess {
			n++
		}
	}
	return n
}

// ImportSummary renders the human readable outcome of a finished interactive import
func ImportSummary(cfg *FeedConfig, imported, eligible int) string {
	mode := "Full import"
	if cfg.CutoffDate != "" {
		if d, err := time.Parse(CutoffLayout, cfg.CutoffDate); err == nil {
			mode = "Date-wise import from " + d.Format("January 2, 2006")
		}
	}
	return fmt.Sprintf("%s. Imported %d %s out of %d eligible %s.",
		mode, imported, plural(imported, "post"), eligible, plural(eligible, "post"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
