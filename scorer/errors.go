package scorer

import "fmt"

// ScoreComputationError means an item lacks an input a score needs. The item
// is skipped and stays unscored, the batch goes on.
type ScoreComputationError struct {
	ItemId string
	Kind   string
	Reason string
}

func (e *ScoreComputationError) Error() string {
	return fmt.Sprintf("cannot compute %s score of item %s: %s", e.Kind, e.ItemId, e.Reason)
}

func newScoreComputationError(itemId, kind, reason string) *ScoreComputationError {
	return &ScoreComputationError{ItemId: itemId, Kind: kind, Reason: reason}
}
