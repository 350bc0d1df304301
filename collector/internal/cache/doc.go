// Package cache holds the per-day diff cache of enriched matchup records.
//
// The snapshot lives in one JSON file ({date, games: {gameId: {personId:
// record}}}). Load discards anything that is missing, corrupt, or stamped with
// another day, so corruption is never fatal and nothing is reused across days.
//
// Store.Put is write-through: every record is persisted with an atomic
// replace before Put returns, so an interrupted run loses at most the entity
// in flight. The next run re-derives what is missing purely from Has.
package cache
