package model

import "time"

/*

ItemObservation is a metric snapshot of an item taken at ingestion time

A row is appended when an item is inserted and every time its metrics change.
Consecutive observations give the growth trend used by potential scoring.
*/
type ItemObservation struct {
	Id         string `gorm:"primaryKey"`
	ItemId     string `gorm:"index"`
	ObservedAt time.Time
	Views      *int64
	Likes      *int64
	Reposts    *int64
	Comments   *int64
	Bookmarks  *int64
}

func (o *ItemObservation) Metrics() Metrics {
	return Metrics{
		Views:     o.Views,
		Likes:     o.Likes,
		Reposts:   o.Reposts,
		Comments:  o.Comments,
		Bookmarks: o.Bookmarks,
	}
}
