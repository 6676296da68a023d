package query

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/utils"
)

// Count is one bucket of an aggregate.
type Count struct {
	Key   string `json:"key" gorm:"column:bucket"`
	Count int64  `json:"count" gorm:"column:total"`
}

// Sorted by count descending, then key.
func sortCounts(counts []Count) []Count {
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Key < counts[j].Key
	})
	return counts
}

func (r *Reader) CountsByPlatform(ctx context.Context) ([]Count, error) {
	var counts []Count
	if err := r.DB.WithContext(ctx).Model(&model.Item{}).
		Select("platform AS bucket, COUNT(*) AS total").
		Group("platform").Scan(&counts).Error; err != nil {
		return nil, errors.Wrap(err, "fail to count items by platform")
	}
	return sortCounts(counts), nil
}

// CountsByTopic counts items per topic tag, an item with several topics
// counts once for each.
func (r *Reader) CountsByTopic(ctx context.Context) ([]Count, error) {
	var counts []Count
	if err := r.DB.WithContext(ctx).Table("item_tags").
		Select("tags.name AS bucket, COUNT(DISTINCT item_tags.item_id) AS total").
		Joins("JOIN tags ON tags.id = item_tags.tag_id").
		Where("tags.category = ?", model.TagCategoryTopic).
		Group("tags.name").Scan(&counts).Error; err != nil {
		return nil, errors.Wrap(err, "fail to count items by topic")
	}
	return sortCounts(counts), nil
}

// CountsByDay counts items published in each of the last days calendar days,
// today included, oldest first. Days without items are reported as zero.
func (r *Reader) CountsByDay(ctx context.Context, days int) ([]Count, error) {
	if days <= 0 {
		days = 7
	}
	_, end := utils.DayBounds(r.Now(), r.Location)
	start := end.AddDate(0, 0, -days)
	published, err := r.publishedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	perDay := map[string]int64{}
	for _, t := range published {
		perDay[t.In(r.Location).Format(model.BriefDateLayout)]++
	}
	res := make([]Count, 0, days)
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(model.BriefDateLayout)
		res = append(res, Count{Key: key, Count: perDay[key]})
	}
	return res, nil
}

// HourlyDistribution counts items per hour of day over the last days, in
// the reader location. The result always has 24 entries.
func (r *Reader) HourlyDistribution(ctx context.Context, days int) ([]int64, error) {
	if days <= 0 {
		days = 7
	}
	now := r.Now()
	published, err := r.publishedBetween(ctx, now.AddDate(0, 0, -days), now)
	if err != nil {
		return nil, err
	}
	hours := make([]int64, 24)
	for _, t := range published {
		hours[t.In(r.Location).Hour()]++
	}
	return hours, nil
}

func (r *Reader) publishedBetween(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var published []time.Time
	if err := r.DB.WithContext(ctx).Model(&model.Item{}).
		Where("published_at >= ? AND published_at < ?", from.UTC(), to.UTC()).
		Pluck("published_at", &published).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load publish times")
	}
	return published, nil
}

type SourceStat struct {
	Id          string          `json:"id"`
	Name        string          `json:"name"`
	Platform    string          `json:"platform"`
	IsActive    bool            `json:"is_active"`
	Items       int64           `json:"items"`
	LastFetchAt *time.Time      `json:"last_fetch_at"`
	LastRun     *model.FetchRun `json:"last_run"`
}

type sourceCountRow struct {
	SourceId string
	Total    int64
}

// SourceStats lists every source with its item count and latest fetch run.
func (r *Reader) SourceStats(ctx context.Context) ([]*SourceStat, error) {
	var sources []*model.Source
	if err := r.DB.WithContext(ctx).Order("name").Order("id").Find(&sources).Error; err != nil {
		return nil, errors.Wrap(err, "fail to list sources")
	}
	var rows []sourceCountRow
	if err := r.DB.WithContext(ctx).Model(&model.Item{}).
		Select("source_id, COUNT(*) AS total").Group("source_id").
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "fail to count items by source")
	}
	counts := map[string]int64{}
	for _, row := range rows {
		counts[row.SourceId] = row.Total
	}

	res := make([]*SourceStat, 0, len(sources))
	for _, source := range sources {
		var runs []*model.FetchRun
		if err := r.DB.WithContext(ctx).Where("source_id = ?", source.Id).
			Order("started_at DESC").Limit(1).Find(&runs).Error; err != nil {
			return nil, errors.Wrap(err, "fail to load last fetch run")
		}
		stat := &SourceStat{
			Id:          source.Id,
			Name:        source.Name,
			Platform:    source.Platform,
			IsActive:    source.IsActive,
			Items:       counts[source.Id],
			LastFetchAt: source.LastFetchAt,
		}
		if len(runs) > 0 {
			stat.LastRun = runs[0]
		}
		res = append(res, stat)
	}
	return res, nil
}
