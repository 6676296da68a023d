package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

/*

Item is the canonical content unit fetched from a source

Id: primary key
CreatedAt: time when entity is created
UpdatedAt: time when entity is last updated

SourceId:
Source: source this item is fetched from, "belongs-to" relation
Platform: platform of the source, part of the dedup key
NativeId: identifier used by the platform, part of the dedup key. (platform, native_id) is unique

Title: optional title in plain text
Body: content in plain text
AuthorId: platform author identifier, empty if unknown
AuthorName: display name of the author
Url: link to the original content
PublishedAt: time the platform reports the content was published, always UTC

Views, Likes, Reposts, Comments, Bookmarks:
		raw interaction metrics. nil means the platform does not report the metric,
		which is different from a reported zero
Media: json list of media urls

Title, Body, AuthorId, PublishedAt are immutable once inserted. Metrics and media
are refreshed on re-fetch.

Scored: true once both heat and potential score rows exist
Briefed: true once the item is selected into a brief
ClassifiedAt: last time automatic tags are computed, nil if never

Scores, Tags, Observations are owned by the item and deleted with it
*/
type Item struct {
	Id           string `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	SourceId     string `gorm:"index"`
	Source       *Source
	Platform     string `gorm:"uniqueIndex:idx_item_identity;not null"`
	NativeId     string `gorm:"uniqueIndex:idx_item_identity;not null"`
	Title        string
	Body         string
	AuthorId     string `gorm:"index"`
	AuthorName   string
	Url          string
	PublishedAt  time.Time `gorm:"index"`
	Views        *int64
	Likes        *int64
	Reposts      *int64
	Comments     *int64
	Bookmarks    *int64
	Media        datatypes.JSON
	Scored       bool `gorm:"index;default:false"`
	Briefed      bool `gorm:"default:false"`
	ClassifiedAt *time.Time
	Scores       []Score           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Tags         []ItemTag         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Observations []ItemObservation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// Metrics is the interaction snapshot of an item, nil fields are not reported.
type Metrics struct {
	Views     *int64 `json:"views,omitempty"`
	Likes     *int64 `json:"likes,omitempty"`
	Reposts   *int64 `json:"reposts,omitempty"`
	Comments  *int64 `json:"comments,omitempty"`
	Bookmarks *int64 `json:"bookmarks,omitempty"`
}

func (i *Item) Metrics() Metrics {
	return Metrics{
		Views:     i.Views,
		Likes:     i.Likes,
		Reposts:   i.Reposts,
		Comments:  i.Comments,
		Bookmarks: i.Bookmarks,
	}
}

func (i *Item) SetMetrics(m Metrics) {
	i.Views = m.Views
	i.Likes = m.Likes
	i.Reposts = m.Reposts
	i.Comments = m.Comments
	i.Bookmarks = m.Bookmarks
}

// MediaUrls decodes the media column, malformed content is treated as empty.
func (i *Item) MediaUrls() []string {
	if len(i.Media) == 0 {
		return nil
	}
	var urls []string
	if err := json.Unmarshal(i.Media, &urls); err != nil {
		return nil
	}
	return urls
}

// Int64 returns a pointer to v, handy for building metrics.
func Int64(v int64) *int64 {
	return &v
}

// Equal reports whether two metric snapshots carry the same values, treating
// nil and reported values as distinct.
func (m Metrics) Equal(o Metrics) bool {
	return sameMetric(m.Views, o.Views) &&
		sameMetric(m.Likes, o.Likes) &&
		sameMetric(m.Reposts, o.Reposts) &&
		sameMetric(m.Comments, o.Comments) &&
		sameMetric(m.Bookmarks, o.Bookmarks)
}

func sameMetric(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
