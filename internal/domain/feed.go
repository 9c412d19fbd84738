package domain

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Post statuses accepted for imported episodes
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
)

// DefaultAutoFetchMinutes is used when a feed is saved without a positive interval
const DefaultAutoFetchMinutes = 60

// CutoffLayout is the calendar date layout of FeedConfig.CutoffDate
const CutoffLayout = "2006-01-02"

// FeedIdentity derives the stable feed identifier from its URL.
// The same URL always yields the same identifier; it keys the configuration
// store, the snapshot cache and the scheduler.
func FeedIdentity(feedURL string) string {
	sum := md5.Sum([]byte(feedURL))
	return hex.EncodeToString(sum[:])
}

// FeedConfig is the configuration and statistics of one subscribed podcast feed
type FeedConfig struct {
	ID               string    `json:"id"`
	FeedURL          string    `json:"feed_url"`
	CutoffDate       string    `json:"import_date,omitempty"` // YYYY-MM-DD, local midnight
	PostStatus       string    `json:"post_status"`
	DefaultCategory  string    `json:"default_cat,omitempty"`
	Author           string    `json:"author,omitempty"`
	OngoingImport    bool      `json:"ongoing_import"`
	AutoFetchMinutes int       `json:"auto_fetch"`
	AutoUpdate       bool      `json:"auto_update"`
	LastModified     string    `json:"last_modified,omitempty"`
	Stats            FeedStats `json:"stats"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FeedStats records the outcome of import cycles for a feed
type FeedStats struct {
	ImportedAt       time.Time `json:"imported_at,omitempty"`
	FirstImportCount int       `json:"first_import_count"`
	LastFetched      time.Time `json:"last_fetched,omitempty"`
	AutoFetchedCount int       `json:"auto_fetched_count"`
}

// Validate validates the feed fields
func (f *FeedConfig) Validate() error {
	if f.FeedURL == "" {
		return NewValidationError("feed_url", "feed URL is required")
	}
	if f.ID != FeedIdentity(f.FeedURL) {
		return ErrInvalidFeed
	}
	if f.PostStatus != StatusPublish && f.PostStatus != StatusDraft {
		return NewValidationError("post_status", "post status must be 'publish' or 'draft'")
	}
	if f.AutoFetchMinutes < 1 {
		return NewValidationError("auto_fetch", "auto-fetch interval must be at least 1 minute")
	}
	if f.CutoffDate != "" {
		if _, err := time.Parse(CutoffLayout, f.CutoffDate); err != nil {
			return NewValidationError("import_date", "import date must use YYYY-MM-DD")
		}
	}
	return nil
}

// Scheduled reports whether the feed needs a periodic trigger
func (f *FeedConfig) Scheduled() bool {
	return f.OngoingImport || f.AutoUpdate
}

// Interval returns the desired repeating interval of the periodic trigger
func (f *FeedConfig) Interval() time.Duration {
	minutes := f.AutoFetchMinutes
	if minutes < 1 {
		minutes = DefaultAutoFetchMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// ScheduleIntents builds the desired scheduling table (feed identity to interval)
// from the stored configurations.
func ScheduleIntents(feeds []*FeedConfig) map[string]time.Duration {
	intents := make(map[string]time.Duration, len(feeds))
	for _, f := range feeds {
		if f.Scheduled() {
			intents[f.ID] = f.Interval()
		}
	}
	return intents
}

// FeedCreateRequest represents a feed configuration submission
type FeedCreateRequest struct {
	FeedURL         string `json:"feed_url" binding:"required,url"`
	CutoffDate      string `json:"import_date" binding:"omitempty,datetime=2006-01-02"`
	PostStatus      string `json:"post_status" binding:"omitempty,oneof=publish draft"`
	DefaultCategory string `json:"default_cat" binding:"omitempty,max=200"`
	Author          string `json:"author" binding:"omitempty,max=100"`
	OngoingImport   bool   `json:"ongoing_import"`
	AutoFetch       int    `json:"auto_fetch"`
	AutoUpdate      bool   `json:"auto_update"`
}

// FeedUpdateRequest represents an edit of an existing feed. The URL cannot change
// because the feed identity is derived from it.
type FeedUpdateRequest struct {
	CutoffDate      *string `json:"import_date" binding:"omitempty"`
	PostStatus      string  `json:"post_status" binding:"omitempty,oneof=publish draft"`
	DefaultCategory *string `json:"default_cat" binding:"omitempty,max=200"`
	Author          *string `json:"author" binding:"omitempty,max=100"`
	OngoingImport   *bool   `json:"ongoing_import"`
	AutoFetch       int     `json:"auto_fetch"`
	AutoUpdate      *bool   `json:"auto_update"`
}

// ChunkRequest is one page of an interactive import
type ChunkRequest struct {
	Offset int `json:"offset" binding:"min=0"`
	Limit  int `json:"limit" binding:"required,min=1"`
}
