package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/amiyamandal-dev/podsync/internal/domain"
)

// Parser converts raw feed bodies into domain.ParsedFeed values.
// It is the only place that looks at the document structure.
type Parser struct {
	parser *gofeed.Parser
}

// NewParser creates a new feed parser
func NewParser() *Parser {
	return &Parser{parser: gofeed.NewParser()}
}

// Parse parses a feed body. Empty bodies yield domain.ErrEmptyFeed and
// malformed documents domain.ErrParseFailed.
func (p *Parser) Parse(body []byte) (*domain.ParsedFeed, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, domain.ErrEmptyFeed
	}

	parsed, err := p.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailed, err)
	}

	out := &domain.ParsedFeed{
		Title:         parsed.Title,
		LastBuildDate: strings.TrimSpace(parsed.Updated),
		Items:         make([]*domain.FeedItem, 0, len(parsed.Items)),
	}
	for _, item := range parsed.Items {
		out.Items = append(out.Items, toFeedItem(item))
	}
	return out, nil
}

func toFeedItem(item *gofeed.Item) *domain.FeedItem {
	fi := &domain.FeedItem{
		GUID:        strings.TrimSpace(item.GUID),
		Link:        strings.TrimSpace(item.Link),
		Title:       item.Title,
		Description: item.Description,
		Content:     item.Content,
	}

	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		fi.Published = &published
	}

	if len(item.Enclosures) > 0 {
		fi.EnclosureURL = strings.TrimSpace(item.Enclosures[0].URL)
	}

	// Only itunes:image counts as artwork. gofeed's Item.Image also scrapes
	// <img> tags out of the show notes.
	if item.ITunesExt != nil {
		fi.ImageURL = strings.TrimSpace(item.ITunesExt.Image)
		fi.Keywords = item.ITunesExt.Keywords
	}

	return fi
}
