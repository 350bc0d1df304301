package matchup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/startingnine/startingnine/collector/internal/cache"
	"github.com/startingnine/startingnine/collector/internal/stats"
	"github.com/startingnine/startingnine/collector/internal/statsapi"
	"github.com/startingnine/startingnine/pkg/types"
)

const testDate = "2026-06-01"

type fakeProvider struct {
	games       []statsapi.Game
	scheduleErr error
	failH2H     map[string]bool
	failSplits  map[string]bool

	scheduleCalls int
	h2hCalls      int
	splitCalls    int
	lastSeasons   []int
}

func (f *fakeProvider) Schedule(_ context.Context, _ string) ([]statsapi.Game, error) {
	f.scheduleCalls++
	return f.games, f.scheduleErr
}

func (f *fakeProvider) HeadToHead(_ context.Context, batterID, _ string) ([]types.CountWindow, error) {
	f.h2hCalls++
	if f.failH2H[batterID] {
		return nil, errors.New("h2h unavailable")
	}
	return []types.CountWindow{{AtBats: 10, Hits: 4, HomeRuns: 1}}, nil
}

func (f *fakeProvider) Splits(_ context.Context, personID string, _ statsapi.Group, _ string, seasons []int) ([]types.CountWindow, error) {
	f.splitCalls++
	f.lastSeasons = seasons
	if f.failSplits[personID] {
		return nil, &statsapi.APIError{StatusCode: 503, Path: "/api/v1/people/" + personID + "/stats"}
	}
	return []types.CountWindow{
		{AtBats: 100, Hits: 25, Doubles: 5, HomeRuns: 4, Walks: 10},
		{AtBats: 50, Hits: 15, Triples: 1, Walks: 2},
	}, nil
}

func (f *fakeProvider) playerCalls() int { return f.h2hCalls + f.splitCalls }

type countingRecorder struct {
	events map[string]int
}

func (c *countingRecorder) ObserveEntity(kind, outcome string) {
	if c.events == nil {
		c.events = make(map[string]int)
	}
	c.events[kind+"/"+outcome]++
}

func person(id, name string) statsapi.Person { return statsapi.Person{ID: id, Name: name} }

func starter(id, name string) *statsapi.Person {
	p := person(id, name)
	return &p
}

// oneGame has both starters announced and two batters per lineup.
func oneGame(id string) statsapi.Game {
	return statsapi.Game{
		ID: id,
		Away: statsapi.TeamSide{
			TeamName: "Away",
			Starter:  starter("p-away", "Away Ace"),
			Lineup:   []statsapi.Person{person("a1", "Away One"), person("a2", "Away Two")},
		},
		Home: statsapi.TeamSide{
			TeamName: "Home",
			Starter:  starter("p-home", "Home Ace"),
			Lineup:   []statsapi.Person{person("h1", "Home One"), person("h2", "Home Two")},
		},
	}
}

func newOrchestrator(t *testing.T, p *fakeProvider, opts Options) (*Orchestrator, *cache.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matchups.json")
	store := cache.Open(path, testDate)
	if opts.MemoSize == 0 {
		opts.MemoSize = 64
	}
	return New(p, store, opts), store, path
}

func TestRun_EndToEnd(t *testing.T) {
	p := &fakeProvider{games: []statsapi.Game{oneGame("g1")}}
	rec := &countingRecorder{}
	o, store, path := newOrchestrator(t, p, Options{Recorder: rec, Seasons: []int{2025, 2026}})

	sum, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)

	// Two starters plus 2N batters.
	assert.Equal(t, 6, store.Len())
	assert.Equal(t, 6, sum.Fetched)
	assert.Equal(t, 0, sum.Degraded)
	// 2 splits per starter, 3 lookups per batter.
	assert.Equal(t, 2*2+4*3, sum.Lookups)
	assert.Equal(t, sum.Lookups, p.playerCalls())
	assert.Equal(t, []int{2025, 2026}, p.lastSeasons)
	assert.Equal(t, 2, rec.events["starter/fetched"])
	assert.Equal(t, 4, rec.events["batter/fetched"])

	// Durable: a fresh load from disk sees every record.
	assert.Equal(t, 6, cache.Load(path, testDate).Records())

	pitcher, ok := store.Get("g1", "p-home")
	require.True(t, ok)
	assert.True(t, pitcher.IsPitcher)
	assert.Nil(t, pitcher.HeadToHead)
	assert.Equal(t, "vs left-handed batters", pitcher.SplitVsLeft.Label)
	assert.Equal(t, "RHB", pitcher.SplitVsRight.SplitType)

	batter, ok := store.Get("g1", "a1")
	require.True(t, ok)
	assert.False(t, batter.IsPitcher)
	assert.Equal(t, types.StatusFetched, batter.Status)
	assert.Equal(t, "p-home", batter.VsPitcher)
	require.NotNil(t, batter.HeadToHead)
	assert.Equal(t, ".400", batter.HeadToHead.AVG)
	// Windows are summed before rates are derived: 40 / 150.
	assert.Equal(t, 150, batter.SplitVsLeft.AtBats)
	assert.Equal(t, ".267", batter.SplitVsLeft.AVG)
	assert.Equal(t, "LHP", batter.SplitVsLeft.SplitType)
	assert.Equal(t, "vs right-handed pitching", batter.SplitVsRight.Label)
}

func TestRun_Idempotent(t *testing.T) {
	p := &fakeProvider{games: []statsapi.Game{oneGame("g1")}}
	o, _, _ := newOrchestrator(t, p, Options{RetryDegraded: true})

	_, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)
	before := p.playerCalls()

	sum, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, before, p.playerCalls(), "second run must not call the provider for players")
	assert.Equal(t, 0, sum.Lookups)
	assert.Equal(t, 6, sum.Cached)
	assert.Equal(t, 2, p.scheduleCalls)
}

func TestRun_ResumesFromDisk(t *testing.T) {
	p := &fakeProvider{games: []statsapi.Game{oneGame("g1")}}
	o, _, path := newOrchestrator(t, p, Options{})
	_, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)

	// A new process opening the same file on the same day reuses everything.
	p2 := &fakeProvider{games: []statsapi.Game{oneGame("g1")}}
	o2 := New(p2, cache.Open(path, testDate), Options{})
	sum, err := o2.Run(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, 0, p2.playerCalls())
	assert.Equal(t, 6, sum.Cached)
}

func TestRun_MissingStarterSkipsOffense(t *testing.T) {
	g := oneGame("g1")
	g.Home.Starter = nil
	p := &fakeProvider{games: []statsapi.Game{g}}
	o, store, _ := newOrchestrator(t, p, Options{})

	sum, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Skipped)
	// Away starter plus the two home batters facing him.
	assert.Equal(t, 3, store.Len())
	assert.False(t, store.Has("g1", "a1"))
	assert.False(t, store.Has("g1", "a2"))
	assert.True(t, store.Has("g1", "p-away"))
	assert.True(t, store.Has("g1", "h1"))
}

func TestRun_FailureDegradesRecord(t *testing.T) {
	p := &fakeProvider{
		games:      []statsapi.Game{oneGame("g1")},
		failSplits: map[string]bool{"a1": true},
		failH2H:    map[string]bool{"h2": true},
	}
	o, store, _ := newOrchestrator(t, p, Options{})

	sum, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Degraded)
	assert.Equal(t, 4, sum.Fetched)

	a1, ok := store.Get("g1", "a1")
	require.True(t, ok)
	assert.Equal(t, types.StatusDegraded, a1.Status)
	assert.Equal(t, 0, a1.SplitVsLeft.AtBats)
	assert.Equal(t, stats.NoData, a1.SplitVsLeft.AVG)
	assert.Equal(t, stats.NoData, a1.SplitVsRight.OPS)
	assert.Equal(t, "LHP", a1.SplitVsLeft.SplitType)
	// The head-to-head call succeeded and is kept.
	assert.Equal(t, 10, a1.HeadToHead.AtBats)

	h2, ok := store.Get("g1", "h2")
	require.True(t, ok)
	assert.True(t, h2.Degraded())
	assert.Equal(t, stats.NoData, h2.HeadToHead.AVG)
	assert.Equal(t, 150, h2.SplitVsLeft.AtBats)
}

func TestRun_RetryDegraded(t *testing.T) {
	for _, retry := range []bool{true, false} {
		p := &fakeProvider{
			games:      []statsapi.Game{oneGame("g1")},
			failSplits: map[string]bool{"a1": true},
		}
		o, store, _ := newOrchestrator(t, p, Options{RetryDegraded: retry})
		_, err := o.Run(context.Background(), testDate)
		require.NoError(t, err)

		p.failSplits = nil
		sum, err := o.Run(context.Background(), testDate)
		require.NoError(t, err)

		a1, _ := store.Get("g1", "a1")
		if retry {
			assert.Equal(t, 1, sum.Fetched)
			assert.Equal(t, 5, sum.Cached)
			assert.Equal(t, types.StatusFetched, a1.Status)
		} else {
			assert.Equal(t, 0, sum.Lookups)
			assert.Equal(t, 6, sum.Cached)
			assert.Equal(t, types.StatusDegraded, a1.Status)
		}
	}
}

func TestRun_StarterScratch(t *testing.T) {
	p := &fakeProvider{games: []statsapi.Game{oneGame("g1")}}
	o, store, _ := newOrchestrator(t, p, Options{})
	_, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)

	g := oneGame("g1")
	g.Home.Starter = starter("p-bullpen", "Opener")
	p.games = []statsapi.Game{g}

	sum, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)
	// New home starter plus the two away batters facing him.
	assert.Equal(t, 3, sum.Fetched)
	assert.Equal(t, 3, sum.Cached)

	a1, _ := store.Get("g1", "a1")
	assert.Equal(t, "p-bullpen", a1.VsPitcher)
	assert.True(t, store.Has("g1", "p-bullpen"))

	// The scratched starter is gone: two starters plus both lineups.
	assert.False(t, store.Has("g1", "p-home"))
	assert.Equal(t, 1, sum.Pruned)
	assert.Equal(t, 2+2*2, store.Len())
}

func TestRun_StarterWithdrawnKeepsBatters(t *testing.T) {
	p := &fakeProvider{games: []statsapi.Game{oneGame("g1")}}
	o, store, path := newOrchestrator(t, p, Options{})
	_, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)

	g := oneGame("g1")
	g.Home.Starter = nil
	p.games = []statsapi.Game{g}

	sum, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Pruned)
	assert.Equal(t, 1, sum.Skipped)
	assert.False(t, store.Has("g1", "p-home"))
	// Away batters faced the withdrawn starter and are kept until a new one
	// is announced.
	assert.True(t, store.Has("g1", "a1"))
	assert.Equal(t, 5, cache.Load(path, testDate).Records())
}

func TestRun_MemoDoubleheader(t *testing.T) {
	p := &fakeProvider{games: []statsapi.Game{oneGame("g1"), oneGame("g2")}}
	o, store, _ := newOrchestrator(t, p, Options{})

	sum, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, 12, store.Len())
	// Game two reuses every split; only the head-to-head calls repeat.
	assert.Equal(t, 2*2+4*3+4, sum.Lookups)
	assert.Equal(t, 4+4*2, p.splitCalls)
}

func TestRun_TwoWayPlayerFirstWriteWins(t *testing.T) {
	g := oneGame("g1")
	// The away starter also bats for the away side.
	g.Away.Lineup = append(g.Away.Lineup, person("p-away", "Away Ace"))
	p := &fakeProvider{games: []statsapi.Game{g}}
	o, store, _ := newOrchestrator(t, p, Options{})

	_, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)

	rec, ok := store.Get("g1", "p-away")
	require.True(t, ok)
	// Away batters are processed before the away starter.
	assert.False(t, rec.IsPitcher)
	assert.Equal(t, 6, store.Len())
}

func TestRun_ScheduleFailure(t *testing.T) {
	p := &fakeProvider{scheduleErr: errors.New("schedule down")}
	o, store, _ := newOrchestrator(t, p, Options{})

	_, err := o.Run(context.Background(), testDate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule down")
	assert.Equal(t, 0, store.Len())
}

func TestRun_NoGames(t *testing.T) {
	p := &fakeProvider{}
	o, _, _ := newOrchestrator(t, p, Options{})

	sum, err := o.Run(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Games)
	assert.Equal(t, 0, p.playerCalls())
}

func TestRun_Cancelled(t *testing.T) {
	p := &fakeProvider{games: []statsapi.Game{oneGame("g1")}}
	o, store, _ := newOrchestrator(t, p, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Run(ctx, testDate)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "cached", OutcomeCached.String())
	assert.Equal(t, "fetched", OutcomeFetched.String())
	assert.Equal(t, "degraded", OutcomeDegraded.String())
	assert.Equal(t, "skipped", OutcomeSkipped.String())
}
