package service

import "time"

const (
	lockKeyPrefix     = "lock:giveaway:"
	lockPollInterval  = 250 * time.Millisecond
	ProcessingTimeout = 2 * time.Minute // upper bound for one draw including persistence
	NotifyTimeout     = time.Minute

	stageLoadPopulation = "load_population"
	stagePlaceOne       = "place_1"
	stagePlaces         = "places"
)
