package model

import "time"

const (
	TagCategoryTopic     = "topic"
	TagCategorySentiment = "sentiment"
	TagCategoryEntity    = "entity"
)

/*

Tag is a named category attached to items

Name: unique display name, for example "AI"
Category: topic, sentiment or entity
IsAuto: created by the classifier rather than by an operator
*/
type Tag struct {
	Id          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	Name        string `gorm:"uniqueIndex;not null"`
	Category    string `gorm:"index"`
	Description string
	Color       string
	IsAuto      bool
}

/*

ItemTag links an item with a tag

(item_id, tag_id) is unique.
Confidence: in [0, 1], manual tags are always 1
IsManual: set by an operator, automatic classification never modifies such rows
*/
type ItemTag struct {
	Id         string `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ItemId     string `gorm:"uniqueIndex:idx_item_tag;not null"`
	TagId      string `gorm:"uniqueIndex:idx_item_tag;not null"`
	Tag        *Tag   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Confidence float64
	IsManual   bool `gorm:"default:false"`
}
