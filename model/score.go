package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ScoreKindHeat      = "heat"
	ScoreKindPotential = "potential"
)

/*

Score is a computed score of an item

ItemId: scored item, (item_id, kind) is unique, recomputation overwrites the row
Kind: heat or potential
Value: score in [0, 100]
Factors: json breakdown of the terms used to compute the value, kept for audit
AlgorithmVersion: version of the scoring algorithm
ComputedAt: time the score is computed, also the reference time for decay
*/
type Score struct {
	Id               string  `gorm:"primaryKey"`
	ItemId           string  `gorm:"uniqueIndex:idx_score_item_kind;not null"`
	Kind             string  `gorm:"uniqueIndex:idx_score_item_kind;not null"`
	Value            float64 `gorm:"index"`
	Factors          datatypes.JSON
	AlgorithmVersion string
	ComputedAt       time.Time
}
