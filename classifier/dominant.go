package classifier

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/model"
)

// Keeps IN lists well below the bind parameter limits of the drivers.
const inClauseChunk = 500

type topicRow struct {
	ItemId     string
	Name       string
	Confidence float64
}

// DominantTopics returns the dominant topic tag name of every item that has
// one: highest confidence first, then tag name ascending.
func DominantTopics(ctx context.Context, db *gorm.DB, itemIds []string) (map[string]string, error) {
	res := map[string]string{}
	best := map[string]topicRow{}
	for start := 0; start < len(itemIds); start += inClauseChunk {
		end := start + inClauseChunk
		if end > len(itemIds) {
			end = len(itemIds)
		}
		var rows []topicRow
		err := db.WithContext(ctx).Table("item_tags").
			Select("item_tags.item_id AS item_id, tags.name AS name, item_tags.confidence AS confidence").
			Joins("JOIN tags ON tags.id = item_tags.tag_id").
			Where("tags.category = ? AND item_tags.item_id IN ?", model.TagCategoryTopic, itemIds[start:end]).
			Scan(&rows).Error
		if err != nil {
			return nil, errors.Wrap(err, "fail to load topic tags")
		}
		for _, row := range rows {
			current, ok := best[row.ItemId]
			if !ok || row.Confidence > current.Confidence ||
				(row.Confidence == current.Confidence && row.Name < current.Name) {
				best[row.ItemId] = row
			}
		}
	}
	for itemId, row := range best {
		res[itemId] = row.Name
	}
	return res, nil
}

// CountTagPeers counts items other than itemId carrying the tag and
// published within [from, to].
func CountTagPeers(ctx context.Context, db *gorm.DB, tagName, itemId string, from, to time.Time) (int, error) {
	var count int64
	err := db.WithContext(ctx).Table("item_tags").
		Select("COUNT(DISTINCT item_tags.item_id)").
		Joins("JOIN tags ON tags.id = item_tags.tag_id").
		Joins("JOIN items ON items.id = item_tags.item_id").
		Where("tags.name = ? AND items.id <> ? AND items.published_at >= ? AND items.published_at <= ?",
			tagName, itemId, from.UTC(), to.UTC()).
		Scan(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "fail to count tag peers")
	}
	return int(count), nil
}
