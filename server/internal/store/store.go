package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/startingnine/startingnine/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned when a data file has not been written yet.
var ErrNotFound = errors.New("store: not found")

// entry is a decoded file together with the stat it was decoded from.
type entry[T any] struct {
	value   T
	modTime time.Time
	size    int64
}

// file caches the decoded contents of one JSON document and re-reads it
// only when its mtime or size changes. The collector replaces files by
// rename, so a changed stat always means a complete new document.
type file[T any] struct {
	mu   sync.RWMutex
	path string
	cur  *entry[T]
}

func (f *file[T]) load() (T, time.Time, error) {
	var zero T

	fi, err := os.Stat(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zero, time.Time{}, ErrNotFound
		}
		return zero, time.Time{}, fmt.Errorf("store: stat %s: %w", f.path, err)
	}

	f.mu.RLock()
	cur := f.cur
	f.mu.RUnlock()
	if cur != nil && cur.modTime.Equal(fi.ModTime()) && cur.size == fi.Size() {
		return cur.value, cur.modTime, nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return zero, time.Time{}, fmt.Errorf("store: read %s: %w", f.path, err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		if cur != nil {
			slog.Warn("store: undecodable file, serving previous copy", "path", f.path, "err", err)
			return cur.value, cur.modTime, nil
		}
		return zero, time.Time{}, fmt.Errorf("store: decode %s: %w", f.path, err)
	}

	f.mu.Lock()
	f.cur = &entry[T]{value: v, modTime: fi.ModTime(), size: fi.Size()}
	f.mu.Unlock()
	slog.Debug("store: reloaded file", "path", f.path)
	return v, fi.ModTime(), nil
}

// Store is a read-only, thread-safe view over the collector's output files.
// Callers must not modify returned values.
type Store struct {
	matchups file[types.DailyCache]
	umpires  file[types.UmpireReport]
	alerts   file[types.AlertReport]
}

// New creates a Store reading the given files.
func New(matchupsPath, umpiresPath, alertsPath string) *Store {
	return &Store{
		matchups: file[types.DailyCache]{path: matchupsPath},
		umpires:  file[types.UmpireReport]{path: umpiresPath},
		alerts:   file[types.AlertReport]{path: alertsPath},
	}
}

// Matchups returns the current daily cache and when it was last written.
func (s *Store) Matchups() (types.DailyCache, time.Time, error) {
	return s.matchups.load()
}

// Game returns the records for one game and a boolean indicating whether
// the game is present in the cache.
func (s *Store) Game(gameID string) (map[string]types.PersonRecord, bool, error) {
	c, _, err := s.matchups.load()
	if err != nil {
		return nil, false, err
	}
	g, ok := c.Games[gameID]
	return g, ok, nil
}

// Umpires returns the latest umpire report.
func (s *Store) Umpires() (types.UmpireReport, error) {
	r, _, err := s.umpires.load()
	return r, err
}

// Alerts returns the collector's firing and recently resolved alerts.
func (s *Store) Alerts() (types.AlertReport, error) {
	r, _, err := s.alerts.load()
	return r, err
}

// Status summarizes what the store currently serves.
type Status struct {
	MatchupsDate      string    `json:"matchups_date,omitempty"`
	MatchupsRecords   int       `json:"matchups_records"`
	MatchupsUpdatedAt time.Time `json:"matchups_updated_at,omitempty"`
	Degraded          int       `json:"degraded_records"`
	Umpires           int       `json:"umpires"`
	UmpiresWindow     string    `json:"umpires_window,omitempty"`
	FiringAlerts      int       `json:"firing_alerts"`
}

// Status reads every file. Missing files are reported as empty, not errors.
func (s *Store) Status() (Status, error) {
	var st Status

	c, at, err := s.matchups.load()
	switch {
	case err == nil:
		st.MatchupsDate = c.Date
		st.MatchupsRecords = c.Records()
		st.MatchupsUpdatedAt = at.UTC()
		for _, g := range c.Games {
			for _, r := range g {
				if r.Degraded() {
					st.Degraded++
				}
			}
		}
	case !errors.Is(err, ErrNotFound):
		return st, err
	}

	r, _, err := s.umpires.load()
	switch {
	case err == nil:
		st.Umpires = len(r.Umpires)
		if r.WindowStart != "" {
			st.UmpiresWindow = r.WindowStart + ".." + r.WindowEnd
		}
	case !errors.Is(err, ErrNotFound):
		return st, err
	}

	a, _, err := s.alerts.load()
	switch {
	case err == nil:
		st.FiringAlerts = a.Firing()
	case !errors.Is(err, ErrNotFound):
		return st, err
	}
	return st, nil
}
