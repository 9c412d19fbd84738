package importer

import (
	"time"

	"github.com/amiyamandal-dev/podsync/internal/domain"
)

// CutoffInstant converts a YYYY-MM-DD date into the UTC instant of local
// midnight in loc. An empty date means no cutoff.
func CutoffInstant(date string, loc *time.Location) (*time.Time, error) {
	if date == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	midnight, err := time.ParseInLocation(domain.CutoffLayout, date, loc)
	if err != nil {
		return nil, domain.NewValidationError("import_date", "import date must use YYYY-MM-DD")
	}
	instant := midnight.UTC()
	return &instant, nil
}

// FilterEligible returns the items published at or after cutoff, in feed order.
// Without a cutoff every item is eligible. Items without a parsable publish
// date are eligible only when there is no cutoff.
func FilterEligible(items []*domain.FeedItem, cutoff *time.Time) []*domain.FeedItem {
	if cutoff == nil {
		out := make([]*domain.FeedItem, len(items))
		copy(out, items)
		return out
	}

	out := make([]*domain.FeedItem, 0, len(items))
	for _, item := range items {
		if item.Published == nil {
			continue
		}
		if !item.Published.Before(*cutoff) {
			out = append(out, item)
		}
	}
	return out
}
