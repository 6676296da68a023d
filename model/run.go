package model

import "time"

const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
	RunStatusPartial = "partial"
)

const (
	JobKindFetchAll      = "fetch_all"
	JobKindScoreAll      = "score_all"
	JobKindClassifyAll   = "classify_all"
	JobKindGenerateBrief = "generate_brief"
	JobKindPublishBrief  = "publish_brief"
)

/*

FetchRun is the audit record of one adapter invocation

Append only: a row is created in running status and updated exactly once when the
fetch finishes, to set EndedAt, Status, counts and errors.

Cursor: cursor the fetch started from
NextCursor: cursor committed at the end, only covers persisted items
ItemsFetched: records returned by the adapter
ItemsNew, ItemsUpdated: persisted outcomes
ItemsFailed: parse or persistence failures, counted as neither new nor updated
ErrorMessage: captured error text, empty on success
*/
type FetchRun struct {
	Id           string `gorm:"primaryKey"`
	SourceId     string `gorm:"index"`
	Platform     string
	StartedAt    time.Time `gorm:"index"`
	EndedAt      *time.Time
	Status       string `gorm:"index"`
	ItemsFetched int
	ItemsNew     int
	ItemsUpdated int
	ItemsFailed  int
	ErrorMessage string
	Cursor       string
	NextCursor   string
}

// Duration returns zero for runs that are not finished.
func (r *FetchRun) Duration() time.Duration {
	if r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

/*

JobRun is the audit record of one scheduled job execution

Job ordering is expressed through these rows: brief generation for a date only
starts after successful score and classify runs that started after the date ended.
*/
type JobRun struct {
	Id        string `gorm:"primaryKey"`
	Kind      string `gorm:"index"`
	StartedAt time.Time
	EndedAt   *time.Time
	Status    string `gorm:"index"`
	Detail    string
}
