package umpire

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/startingnine/startingnine/pkg/types"
)

// GameLine is one completed game attributed to its home-plate umpire.
type GameLine struct {
	GameID           string
	Umpire           string
	PlateAppearances int
	Strikeouts       int
	Walks            int
	Runs             int
}

// Aggregator accumulates raw counts per official across games and derives
// rates only once, in Records.
//
// All exported methods are safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	officials map[string]*types.UmpireRecord
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{officials: make(map[string]*types.UmpireRecord)}
}

// Add credits one game to its official. Lines without an official are ignored.
func (a *Aggregator) Add(line GameLine) {
	if line.Umpire == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.officials[line.Umpire]
	if !ok {
		rec = &types.UmpireRecord{Identity: line.Umpire}
		a.officials[line.Umpire] = rec
	}
	rec.GamesWorked++
	rec.PlateAppearances += line.PlateAppearances
	rec.Strikeouts += line.Strikeouts
	rec.Walks += line.Walks
	rec.RunsAllowed += line.Runs
}

// Records derives K%, BB% and runs per game for every official with at least
// one game and one plate appearance, sorted by identity.
func (a *Aggregator) Records() []types.UmpireRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]types.UmpireRecord, 0, len(a.officials))
	for _, rec := range a.officials {
		if rec.GamesWorked == 0 || rec.PlateAppearances == 0 {
			continue
		}
		r := *rec
		pa := float64(r.PlateAppearances)
		r.KRate = 100 * float64(r.Strikeouts) / pa
		r.BBRate = 100 * float64(r.Walks) / pa
		r.RunsPerGame = float64(r.RunsAllowed) / float64(r.GamesWorked)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// Line renders a derived record for the analytics file.
func Line(r types.UmpireRecord) types.UmpireLine {
	return types.UmpireLine{
		KRate:       fmt.Sprintf("%.1f%%", r.KRate),
		BBRate:      fmt.Sprintf("%.1f%%", r.BBRate),
		RunsPerGame: fmt.Sprintf("%.1f", r.RunsPerGame),
		Games:       r.GamesWorked,
	}
}

// Report assembles the persisted document from derived records.
func Report(records []types.UmpireRecord, start, end string, generatedAt time.Time) types.UmpireReport {
	rep := types.UmpireReport{
		GeneratedAt: generatedAt,
		WindowStart: start,
		WindowEnd:   end,
		Umpires:     make(map[string]types.UmpireLine, len(records)),
	}
	for _, r := range records {
		rep.Umpires[r.Identity] = Line(r)
	}
	return rep
}
