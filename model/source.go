package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PlatformRSS    = "rss"
	PlatformReddit = "reddit"
	PlatformX      = "x"
	PlatformWeb    = "web"
)

const DefaultFetchIntervalMinutes = 240

/*

Source is a configured origin of items

Example: a RSS feed url, a subreddit, a X account

Id: primary key, use to identify a source
CreatedAt: time when entity is created
UpdatedAt: time when entity is last updated

Name: display name of the source
Platform: one of rss, reddit, x, web. Decides which adapter fetches it
Config: platform specific parameters, decoded into a typed struct by the adapter
IsActive: inactive sources are skipped by fetch jobs. Sources are deactivated, never deleted while items reference them
FetchIntervalMinutes: minimal minutes between two fetches of this source
Cursor: opaque adapter cursor, only advanced past items that are persisted
LastFetchAt: start time of the last fetch run
Items: items fetched from this source, "has-many" relation
*/
type Source struct {
	Id                   string `gorm:"primaryKey"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Name                 string
	Platform             string `gorm:"index"`
	Config               datatypes.JSON
	IsActive             bool `gorm:"default:true"`
	FetchIntervalMinutes int  `gorm:"default:240"`
	Cursor               string
	LastFetchAt          *time.Time
	Items                []Item `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
}

// IsDue reports whether the fetch interval has elapsed since the last fetch.
func (s *Source) IsDue(now time.Time) bool {
	if s.LastFetchAt == nil {
		return true
	}
	interval := s.FetchIntervalMinutes
	if interval <= 0 {
		interval = DefaultFetchIntervalMinutes
	}
	return !now.Before(s.LastFetchAt.Add(time.Duration(interval) * time.Minute))
}
