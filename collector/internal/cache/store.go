package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/startingnine/startingnine/collector/internal/atomicfile"
	"github.com/startingnine/startingnine/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DateLayout is the canonical date key format.
const DateLayout = "2006-01-02"

// CanonicalDate returns the calendar-day key for now in loc.
// A nil loc means UTC, which is how the Stats API keys its schedule.
func CanonicalDate(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}

// Load reads the snapshot at path. An absent file, an unparsable file, or a
// snapshot stamped with a different date all yield an empty cache stamped
// with date. Load never fails.
func Load(path, date string) *types.DailyCache {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("cache: unreadable snapshot, starting empty", "path", path, "err", err)
		}
		return types.NewDailyCache(date)
	}

	var c types.DailyCache
	if err := json.Unmarshal(data, &c); err != nil {
		slog.Warn("cache: corrupt snapshot, starting empty", "path", path, "err", err)
		return types.NewDailyCache(date)
	}
	if c.Date != date {
		slog.Info("cache: discarding snapshot from another day",
			"path", path, "snapshot_date", c.Date, "date", date)
		return types.NewDailyCache(date)
	}
	if c.Games == nil {
		c.Games = make(map[string]map[string]types.PersonRecord)
	}
	return &c
}

// Store owns the DailyCache for one run and persists it write-through.
//
// All exported methods are safe for concurrent use. Put holds the lock across
// the whole read-modify-write, so there is a single writer for the file.
type Store struct {
	mu   sync.Mutex
	path string
	data *types.DailyCache
}

// Open loads the snapshot at path for date (see Load).
func Open(path, date string) *Store {
	return &Store{path: path, data: Load(path, date)}
}

// Date returns the canonical date the cache is stamped with.
func (s *Store) Date() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Date
}

// Has reports whether a record exists for exactly this game and person.
func (s *Store) Has(gameID, personID string) bool {
	_, ok := s.Get(gameID, personID)
	return ok
}

// Get returns the record for the pair, if present.
func (s *Store) Get(gameID, personID string) (types.PersonRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data.Games[gameID][personID]
	return rec, ok
}

// Put inserts rec and rewrites the whole snapshot to disk before returning.
// If the write fails the record is still held in memory for this run and the
// previous snapshot on disk is left intact.
func (s *Store) Put(gameID, personID string, rec types.PersonRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.data.Games[gameID]
	if !ok {
		game = make(map[string]types.PersonRecord)
		s.data.Games[gameID] = game
	}
	game[personID] = rec

	return s.persist()
}

// Game returns a copy of the records held for one game.
func (s *Store) Game(gameID string) map[string]types.PersonRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]types.PersonRecord, len(s.data.Games[gameID]))
	for pid, rec := range s.data.Games[gameID] {
		out[pid] = rec
	}
	return out
}

// Delete removes the record for the pair and rewrites the snapshot. Deleting
// an absent record is a no-op and writes nothing.
func (s *Store) Delete(gameID, personID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.data.Games[gameID]
	if !ok {
		return nil
	}
	if _, ok := game[personID]; !ok {
		return nil
	}
	delete(game, personID)
	if len(game) == 0 {
		delete(s.data.Games, gameID)
	}
	return s.persist()
}

// Flush writes the current snapshot even if nothing changed, so that a day
// with no new entities still leaves a file stamped with today's date.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

// persist must be called with mu held.
func (s *Store) persist() error {
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: encode snapshot: %w", err)
	}
	if err := atomicfile.Write(s.path, b, 0o644); err != nil {
		return fmt.Errorf("cache: write snapshot: %w", err)
	}
	return nil
}

// Len returns the number of person records held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Records()
}

// Snapshot returns a deep copy of the cache.
func (s *Store) Snapshot() types.DailyCache {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := types.DailyCache{
		Date:  s.data.Date,
		Games: make(map[string]map[string]types.PersonRecord, len(s.data.Games)),
	}
	for gid, people := range s.data.Games {
		cp := make(map[string]types.PersonRecord, len(people))
		for pid, rec := range people {
			if rec.HeadToHead != nil {
				h := *rec.HeadToHead
				rec.HeadToHead = &h
			}
			cp[pid] = rec
		}
		out.Games[gid] = cp
	}
	return out
}
