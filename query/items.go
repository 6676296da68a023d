package query

import (
	"context"
	"sort"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/model"
)

// ItemFilter narrows ListItems, zero values do not filter.
type ItemFilter struct {
	Platform     string
	Tag          string
	MinHeat      float64
	MinPotential float64
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

type ItemView struct {
	Id          string    `json:"id"`
	SourceId    string    `json:"source_id"`
	Platform    string    `json:"platform"`
	NativeId    string    `json:"native_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	AuthorId    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	Url         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Views       *int64    `json:"views"`
	Likes       *int64    `json:"likes"`
	Reposts     *int64    `json:"reposts"`
	Comments    *int64    `json:"comments"`
	Bookmarks   *int64    `json:"bookmarks"`
	MediaUrls   []string  `json:"media"`
	Scored      bool      `json:"scored"`
	Briefed     bool      `json:"briefed"`
	Heat        *float64  `json:"heat"`
	Potential   *float64  `json:"potential"`
	TagNames    []string  `json:"tags"`
}

func scoreJoins(q *gorm.DB) *gorm.DB {
	return q.
		Joins("LEFT JOIN scores AS heat ON heat.item_id = items.id AND heat.kind = ?", model.ScoreKindHeat).
		Joins("LEFT JOIN scores AS potential ON potential.item_id = items.id AND potential.kind = ?", model.ScoreKindPotential)
}

// ListItems returns items joined with both scores, newest first.
func (r *Reader) ListItems(ctx context.Context, filter ItemFilter) ([]*ItemView, error) {
	q := scoreJoins(r.DB.WithContext(ctx).Model(&model.Item{}).Select("items.*"))
	if filter.Platform != "" {
		q = q.Where("items.platform = ?", filter.Platform)
	}
	if filter.Tag != "" {
		q = q.Where("EXISTS (SELECT 1 FROM item_tags JOIN tags ON tags.id = item_tags.tag_id "+
			"WHERE item_tags.item_id = items.id AND tags.name = ?)", filter.Tag)
	}
	if filter.MinHeat > 0 {
		q = q.Where("heat.value >= ?", filter.MinHeat)
	}
	if filter.MinPotential > 0 {
		q = q.Where("potential.value >= ?", filter.MinPotential)
	}
	if !filter.From.IsZero() {
		q = q.Where("items.published_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("items.published_at < ?", filter.To.UTC())
	}

	var items []*model.Item
	if err := q.Order("items.published_at DESC").Order("items.id").
		Limit(clampLimit(filter.Limit)).Offset(filter.Offset).
		Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "fail to list items")
	}
	return r.itemViews(ctx, items)
}

// TopItems returns the highest scored items of a kind published since the
// given time.
func (r *Reader) TopItems(ctx context.Context, kind string, since time.Time, limit int) ([]*ItemView, error) {
	if kind != model.ScoreKindHeat && kind != model.ScoreKindPotential {
		return nil, errors.Errorf("unknown score kind %q", kind)
	}
	var items []*model.Item
	err := r.DB.WithContext(ctx).Model(&model.Item{}).Select("items.*").
		Joins("JOIN scores ON scores.item_id = items.id AND scores.kind = ?", kind).
		Where("items.published_at >= ?", since.UTC()).
		Order("scores.value DESC").Order("items.published_at DESC").Order("items.id").
		Limit(clampLimit(limit)).Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(err, "fail to load top items")
	}
	return r.itemViews(ctx, items)
}

type itemScoreRow struct {
	ItemId string
	Kind   string
	Value  float64
}

type itemTagRow struct {
	ItemId string
	Name   string
}

func (r *Reader) itemViews(ctx context.Context, items []*model.Item) ([]*ItemView, error) {
	res := make([]*ItemView, 0, len(items))
	if len(items) == 0 {
		return res, nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Id)
	}

	var scores []itemScoreRow
	if err := r.DB.WithContext(ctx).Model(&model.Score{}).Select("item_id, kind, value").
		Where("item_id IN ?", ids).Scan(&scores).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load item scores")
	}
	var tags []itemTagRow
	if err := r.DB.WithContext(ctx).Table("item_tags").
		Select("item_tags.item_id AS item_id, tags.name AS name").
		Joins("JOIN tags ON tags.id = item_tags.tag_id").
		Where("item_tags.item_id IN ?", ids).Scan(&tags).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load item tags")
	}

	byId := map[string]*ItemView{}
	for _, item := range items {
		view := &ItemView{}
		if err := copier.Copy(view, item); err != nil {
			return nil, errors.Wrap(err, "fail to copy item")
		}
		view.MediaUrls = nonNil(item.MediaUrls())
		view.TagNames = []string{}
		byId[item.Id] = view
		res = append(res, view)
	}
	for _, s := range scores {
		value := s.Value
		switch s.Kind {
		case model.ScoreKindHeat:
			byId[s.ItemId].Heat = &value
		case model.ScoreKindPotential:
			byId[s.ItemId].Potential = &value
		}
	}
	for _, t := range tags {
		byId[t.ItemId].TagNames = append(byId[t.ItemId].TagNames, t.Name)
	}
	for _, view := range res {
		sort.Strings(view.TagNames)
	}
	return res, nil
}
