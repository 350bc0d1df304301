package umpire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/startingnine/startingnine/collector/internal/statsapi"
)

func TestAggregator_SumsThenDerives(t *testing.T) {
	agg := NewAggregator()
	agg.Add(GameLine{GameID: "1", Umpire: "Pat Hoberg", PlateAppearances: 74, Strikeouts: 20, Walks: 5, Runs: 7})
	agg.Add(GameLine{GameID: "2", Umpire: "Pat Hoberg", PlateAppearances: 70, Strikeouts: 16, Walks: 7, Runs: 9})
	agg.Add(GameLine{GameID: "3", Umpire: "Lance Barksdale", PlateAppearances: 80, Strikeouts: 12, Walks: 10, Runs: 11})

	recs := agg.Records()
	require.Len(t, recs, 2)

	// Sorted by identity.
	assert.Equal(t, "Lance Barksdale", recs[0].Identity)
	hob := recs[1]
	assert.Equal(t, 2, hob.GamesWorked)
	assert.Equal(t, 144, hob.PlateAppearances)
	assert.InDelta(t, 25.0, hob.KRate, 1e-9)
	assert.InDelta(t, 100*12.0/144, hob.BBRate, 1e-9)
	assert.InDelta(t, 8.0, hob.RunsPerGame, 1e-9)

	line := Line(hob)
	assert.Equal(t, "25.0%", line.KRate)
	assert.Equal(t, "8.3%", line.BBRate)
	assert.Equal(t, "8.0", line.RunsPerGame)
	assert.Equal(t, 2, line.Games)
}

func TestAggregator_ExcludesZeroPlateAppearances(t *testing.T) {
	agg := NewAggregator()
	agg.Add(GameLine{GameID: "1", Umpire: "Nobody Home", Runs: 3})
	agg.Add(GameLine{GameID: "2", Umpire: "", PlateAppearances: 70})

	assert.Empty(t, agg.Records())
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name       string
		now        time.Time
		start, end string
	}{
		{"offseason uses previous season", time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC), "2025-03-25", "2025-11-05"},
		{"march is still offseason", time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC), "2025-03-25", "2025-11-05"},
		{"april switches to rolling", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "2026-01-01", "2026-04-01"},
		{"midseason rolling window", time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC), "2026-03-03", "2026-06-01"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start, end := Window(tc.now, 90)
			assert.Equal(t, tc.start, start)
			assert.Equal(t, tc.end, end)
		})
	}
}

type fakeSource struct {
	ids      []string
	listErr  error
	feeds    map[string]statsapi.GameFeed
	gotStart string
	gotEnd   string
}

func (f *fakeSource) FinalGames(_ context.Context, start, end string) ([]string, error) {
	f.gotStart, f.gotEnd = start, end
	return f.ids, f.listErr
}

func (f *fakeSource) GameFeed(_ context.Context, id string) (statsapi.GameFeed, error) {
	feed, ok := f.feeds[id]
	if !ok {
		return statsapi.GameFeed{}, errors.New("feed unavailable")
	}
	return feed, nil
}

func TestBuilder_Run(t *testing.T) {
	src := &fakeSource{
		ids: []string{"1", "2", "3", "4"},
		feeds: map[string]statsapi.GameFeed{
			"1": {ID: "1", Umpire: "Pat Hoberg", HomeRuns: 4, AwayRuns: 3, PlateAppearances: 74, Strikeouts: 20, Walks: 5},
			"2": {ID: "2", Umpire: "Pat Hoberg", HomeRuns: 5, AwayRuns: 4, PlateAppearances: 70, Strikeouts: 16, Walks: 7},
			// No home-plate official listed.
			"3": {ID: "3", PlateAppearances: 75},
			// "4" fails to fetch.
		},
	}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	path := filepath.Join(t.TempDir(), "umpires.json")

	res, err := NewBuilder(src, path, 90, WithClock(clock)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2026-03-03", src.gotStart)
	assert.Equal(t, "2026-06-01", src.gotEnd)
	assert.Equal(t, 2, res.Games)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Umpires)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Umpires map[string]map[string]any `json:"umpires"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Contains(t, doc.Umpires, "Pat Hoberg")
	hob := doc.Umpires["Pat Hoberg"]
	assert.Equal(t, "25.0%", hob["k_rate"])
	assert.Equal(t, "8.3%", hob["bb_rate"])
	assert.Equal(t, "8.0", hob["rpg"])
	assert.EqualValues(t, 2, hob["games"])
}

func TestBuilder_ListFailure(t *testing.T) {
	src := &fakeSource{listErr: errors.New("schedule down")}
	path := filepath.Join(t.TempDir(), "umpires.json")

	_, err := NewBuilder(src, path, 90).Run(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no report should be written")
}

func TestBuilder_UsesLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	src := &fakeSource{}
	// 02:00 UTC on April 1 is still March 31 in New York.
	clock := clockwork.NewFakeClockAt(time.Date(2026, 4, 1, 2, 0, 0, 0, time.UTC))

	_, err = NewBuilder(src, filepath.Join(t.TempDir(), "u.json"), 90,
		WithClock(clock), WithLocation(ny)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-03-25", src.gotStart)
}
