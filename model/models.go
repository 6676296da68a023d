package model

// All returns every persisted model, in dependency order for migration.
func All() []interface{} {
	return []interface{}{
		&Source{},
		&Item{},
		&ItemObservation{},
		&Score{},
		&Tag{},
		&ItemTag{},
		&Brief{},
		&BriefDelivery{},
		&FetchRun{},
		&JobRun{},
	}
}
