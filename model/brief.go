package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	BriefStatusFinalized = "finalized"

	BriefDateLayout = "2006-01-02"
)

/*

Brief is the curated digest of one calendar date

BriefDate: date in YYYY-MM-DD, unique
Title: display title
FeaturedIds, HeatTopIds, PotentialIds:
		ordered json lists of item ids per bucket. These are weak references, a brief
		never owns items
Stats: json summary (total, scored, per platform, per topic)
TotalItems: number of items published on the date
MarkdownContent, HtmlContent: rendered outputs
Deliveries: per channel delivery state, "has-many" relation
*/
type Brief struct {
	Id              string `gorm:"primaryKey"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	BriefDate       string `gorm:"uniqueIndex;not null"`
	Title           string
	Status          string
	FeaturedIds     datatypes.JSON
	HeatTopIds      datatypes.JSON
	PotentialIds    datatypes.JSON
	Stats           datatypes.JSON
	TotalItems      int
	MarkdownContent string
	HtmlContent     string
	Deliveries      []BriefDelivery `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// BriefStats is the decoded form of Brief.Stats.
type BriefStats struct {
	Date         string         `json:"date"`
	Total        int            `json:"total"`
	Scored       int            `json:"scored"`
	Selected     int            `json:"selected"`
	Platforms    map[string]int `json:"platforms"`
	Topics       map[string]int `json:"topics"`
	AvgHeat      float64        `json:"avg_heat"`
	AvgPotential float64        `json:"avg_potential"`
}

/*

BriefDelivery is the delivery state of a brief on one channel

(brief_id, channel) is unique.
Sent: true once the channel accepted the brief
Attempts: accumulated delivery attempts
LastError: error text of the last failed attempt
*/
type BriefDelivery struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	BriefId   string `gorm:"uniqueIndex:idx_brief_channel;not null"`
	Channel   string `gorm:"uniqueIndex:idx_brief_channel;not null"`
	Sent      bool
	Attempts  int
	LastError string
	SentAt    *time.Time
}

func decodeIds(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil
	}
	return ids
}

func (b *Brief) Featured() []string  { return decodeIds(b.FeaturedIds) }
func (b *Brief) HeatTop() []string   { return decodeIds(b.HeatTopIds) }
func (b *Brief) Potential() []string { return decodeIds(b.PotentialIds) }

// Selected returns the ids of all buckets, featured first.
func (b *Brief) Selected() []string {
	ids := append(b.Featured(), b.HeatTop()...)
	return append(ids, b.Potential()...)
}

func (b *Brief) DecodedStats() (BriefStats, error) {
	var stats BriefStats
	if len(b.Stats) == 0 {
		return stats, nil
	}
	err := json.Unmarshal(b.Stats, &stats)
	return stats, err
}

// Delivered reports whether every listed channel has accepted the brief.
func (b *Brief) Delivered(channels []string) bool {
	if len(channels) == 0 {
		return false
	}
	sent := map[string]bool{}
	for _, d := range b.Deliveries {
		sent[d.Channel] = d.Sent
	}
	for _, c := range channels {
		if !sent[c] {
			return false
		}
	}
	return true
}
