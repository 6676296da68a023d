package collector

import (
	"context"
	"strings"
	"time"

	"github.com/Luismorlan/infoflow/model"
)

// RawItem is the canonical shape every adapter normalizes platform records
// into. Platform, NativeId, Body and PublishedAt are required, other fields
// are optional and metrics keep nil for "not reported".
type RawItem struct {
	Platform    string
	NativeId    string
	Title       string
	Body        string
	AuthorId    string
	AuthorName  string
	Url         string
	PublishedAt time.Time
	Metrics     model.Metrics
	Media       []string
}

// FetchResult is one page of platform records. NextCursor is the cursor to
// commit once every record of the page is persisted, empty keeps the current
// cursor.
type FetchResult struct {
	Records    []interface{}
	NextCursor string
}

// Adapter fetches records of one platform and normalizes them. Adapters hold
// no mutable state shared across sources and are safe to re-invoke with the
// last committed cursor.
type Adapter interface {
	Platform() string
	// Fetch returns a *FetchError on network, auth, rate limit or config
	// failures.
	Fetch(ctx context.Context, source *model.Source, cursor string) (*FetchResult, error)
	// Normalize returns a *ParseError when the record is malformed.
	Normalize(record interface{}) (*RawItem, error)
}

func (r *RawItem) Validate() error {
	var missing []string
	if r.Platform == "" {
		missing = append(missing, "platform")
	}
	if r.NativeId == "" {
		missing = append(missing, "native id")
	}
	if strings.TrimSpace(r.Body) == "" {
		missing = append(missing, "body")
	}
	if r.PublishedAt.IsZero() {
		missing = append(missing, "published time")
	}
	if len(missing) > 0 {
		return NewParseError(r.Platform, r.NativeId, "missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// NormalizeAll normalizes and validates every record. Records failing either
// step are dropped and reported as parse errors, the rest keep their order.
func NormalizeAll(adapter Adapter, records []interface{}) ([]*RawItem, []error) {
	items := make([]*RawItem, 0, len(records))
	var errs []error
	for _, record := range records {
		item, err := adapter.Normalize(record)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if item.Platform == "" {
			item.Platform = adapter.Platform()
		}
		if err := item.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, item)
	}
	return items, errs
}
