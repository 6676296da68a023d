package query

import (
	"context"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/model"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Reader serves read only projections over the store, nothing here writes.
type Reader struct {
	DB       *gorm.DB
	Location *time.Location
	Now      func() time.Time
}

func NewReader(db *gorm.DB, loc *time.Location) *Reader {
	if loc == nil {
		loc = time.UTC
	}
	return &Reader{DB: db, Location: loc, Now: time.Now}
}

type DeliveryView struct {
	Channel   string     `json:"channel"`
	Sent      bool       `json:"sent"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

type BriefView struct {
	Id              string           `json:"id"`
	BriefDate       string           `json:"brief_date"`
	Title           string           `json:"title"`
	Status          string           `json:"status"`
	FeaturedIds     []string         `json:"featured_ids"`
	HeatTopIds      []string         `json:"heat_top_ids"`
	PotentialIds    []string         `json:"potential_ids"`
	Stats           model.BriefStats `json:"stats"`
	TotalItems      int              `json:"total_items"`
	MarkdownContent string           `json:"markdown_content"`
	HtmlContent     string           `json:"html_content"`
	Deliveries      []DeliveryView   `json:"deliveries"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func briefView(brief *model.Brief) (*BriefView, error) {
	view := &BriefView{
		Id:              brief.Id,
		BriefDate:       brief.BriefDate,
		Title:           brief.Title,
		Status:          brief.Status,
		FeaturedIds:     nonNil(brief.Featured()),
		HeatTopIds:      nonNil(brief.HeatTop()),
		PotentialIds:    nonNil(brief.Potential()),
		TotalItems:      brief.TotalItems,
		MarkdownContent: brief.MarkdownContent,
		HtmlContent:     brief.HtmlContent,
		Deliveries:      []DeliveryView{},
		CreatedAt:       brief.CreatedAt,
		UpdatedAt:       brief.UpdatedAt,
	}
	stats, err := brief.DecodedStats()
	if err != nil {
		return nil, errors.Wrapf(err, "malformed stats of brief %s", brief.BriefDate)
	}
	view.Stats = stats
	if err := copier.Copy(&view.Deliveries, &brief.Deliveries); err != nil {
		return nil, errors.Wrap(err, "fail to copy deliveries")
	}
	return view, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// ListBriefs returns briefs with from <= date <= to, newest first. Empty
// bounds are open.
func (r *Reader) ListBriefs(ctx context.Context, from, to string) ([]*BriefView, error) {
	q := r.DB.WithContext(ctx).Preload("Deliveries")
	if from != "" {
		q = q.Where("brief_date >= ?", from)
	}
	if to != "" {
		q = q.Where("brief_date <= ?", to)
	}
	var briefs []*model.Brief
	if err := q.Order("brief_date DESC").Find(&briefs).Error; err != nil {
		return nil, errors.Wrap(err, "fail to list briefs")
	}
	res := make([]*BriefView, 0, len(briefs))
	for _, brief := range briefs {
		view, err := briefView(brief)
		if err != nil {
			return nil, err
		}
		res = append(res, view)
	}
	return res, nil
}

// LatestBrief returns nil when no brief exists yet.
func (r *Reader) LatestBrief(ctx context.Context) (*BriefView, error) {
	var briefs []*model.Brief
	if err := r.DB.WithContext(ctx).Preload("Deliveries").
		Order("brief_date DESC").Limit(1).Find(&briefs).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load latest brief")
	}
	if len(briefs) == 0 {
		return nil, nil
	}
	return briefView(briefs[0])
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
