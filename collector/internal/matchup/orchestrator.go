package matchup

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"

	"github.com/startingnine/startingnine/collector/internal/stats"
	"github.com/startingnine/startingnine/collector/internal/statsapi"
	"github.com/startingnine/startingnine/pkg/types"
)

// Provider is the subset of the Stats API the orchestrator reads.
// *statsapi.Client satisfies it.
type Provider interface {
	Schedule(ctx context.Context, date string) ([]statsapi.Game, error)
	HeadToHead(ctx context.Context, batterID, pitcherID string) ([]types.CountWindow, error)
	Splits(ctx context.Context, personID string, group statsapi.Group, side string, seasons []int) ([]types.CountWindow, error)
}

// Cache is the daily record store. *cache.Store satisfies it.
type Cache interface {
	Get(gameID, personID string) (types.PersonRecord, bool)
	Put(gameID, personID string, rec types.PersonRecord) error
	Game(gameID string) map[string]types.PersonRecord
	Delete(gameID, personID string) error
}

// Recorder receives one event per processed entity. *metrics.Metrics
// satisfies it.
type Recorder interface {
	ObserveEntity(kind, outcome string)
}

// Entity kinds reported to the Recorder.
const (
	KindStarter = "starter"
	KindBatter  = "batter"
	KindOffense = "offense"
)

// Options are the per-run knobs. The zero value fetches career windows,
// never retries degraded records and disables the memo.
type Options struct {
	// RetryDegraded re-fetches cached records whose status is degraded.
	RetryDegraded bool
	// Seasons lists the seasons summed into each handedness split. Empty
	// requests one career window.
	Seasons []int
	// MemoSize bounds the per-run split memo. <= 0 disables it.
	MemoSize int

	Logger   *slog.Logger
	Recorder Recorder
	Clock    clockwork.Clock
}

// Orchestrator diffs the day's schedule against the cache and fetches only
// what is missing.
type Orchestrator struct {
	provider Provider
	cache    Cache
	opts     Options
}

// New returns an Orchestrator.
func New(p Provider, c Cache, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Orchestrator{provider: p, cache: c, opts: opts}
}

type memoKey struct {
	person string
	group  statsapi.Group
	side   stats.Side
}

// run carries the state of one Run call.
type run struct {
	memo    *lru.Cache[memoKey, []types.CountWindow]
	summary *Summary
}

// Run processes every game on date. Only a schedule failure (or
// cancellation) is returned as an error; per-player failures degrade the
// affected split and processing continues. Each record is persisted as soon
// as it is built, so an interrupted run resumes where it stopped.
func (o *Orchestrator) Run(ctx context.Context, date string) (Summary, error) {
	summary := Summary{Date: date}

	games, err := o.provider.Schedule(ctx, date)
	if err != nil {
		return summary, fmt.Errorf("matchup: fetch schedule for %s: %w", date, err)
	}
	summary.Games = len(games)
	if len(games) == 0 {
		o.opts.Logger.Info("matchup: no games scheduled", "date", date)
		return summary, nil
	}

	r := &run{summary: &summary}
	if o.opts.MemoSize > 0 {
		memo, err := lru.New[memoKey, []types.CountWindow](o.opts.MemoSize)
		if err != nil {
			return summary, fmt.Errorf("matchup: build memo: %w", err)
		}
		r.memo = memo
	}

	for _, g := range games {
		o.prune(r, g)

		// Away bats against the home starter, home against the away starter.
		for _, m := range []struct {
			offense, defense statsapi.TeamSide
		}{{g.Away, g.Home}, {g.Home, g.Away}} {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			if m.defense.Starter == nil {
				o.opts.Logger.Debug("matchup: no probable starter, skipping offense",
					"game", g.ID, "team", m.offense.TeamName)
				o.record(r, KindOffense, OutcomeSkipped)
				continue
			}
			starter := *m.defense.Starter

			if err := o.enrichStarter(ctx, r, g.ID, starter); err != nil {
				return summary, err
			}
			for _, b := range m.offense.Lineup {
				if err := o.enrichBatter(ctx, r, g.ID, b, starter); err != nil {
					return summary, err
				}
			}
		}
	}
	return summary, nil
}

// prune drops starter records for pitchers who are no longer a probable
// starter of g, so a scratch leaves one starter record per side. Batter
// records stay: a lineup that disappears from the schedule is usually just
// not posted yet.
func (o *Orchestrator) prune(r *run, g statsapi.Game) {
	current := make(map[string]bool, 2)
	for _, side := range []statsapi.TeamSide{g.Away, g.Home} {
		if side.Starter != nil {
			current[side.Starter.ID] = true
		}
	}
	for id, rec := range o.cache.Game(g.ID) {
		if !rec.IsPitcher || current[id] {
			continue
		}
		if err := o.cache.Delete(g.ID, id); err != nil {
			o.opts.Logger.Error("matchup: persist pruned starter failed",
				"game", g.ID, "person", id, "err", err)
		}
		o.opts.Logger.Info("matchup: dropped scratched starter", "game", g.ID, "person", id, "name", rec.Name)
		r.summary.Pruned++
	}
}

// enrichStarter stores a starter's pitching splits vs left- and
// right-handed batters.
func (o *Orchestrator) enrichStarter(ctx context.Context, r *run, gameID string, p statsapi.Person) error {
	if rec, ok := o.cache.Get(gameID, p.ID); ok && !o.refetch(rec, true, "") {
		o.record(r, KindStarter, OutcomeCached)
		return nil
	}

	rec := types.PersonRecord{Name: p.Name, IsPitcher: true, Status: types.StatusFetched}
	var failed bool
	rec.SplitVsLeft, failed = o.split(ctx, r, p.ID, statsapi.GroupPitching, stats.SideLeft, stats.RolePitcher, failed)
	rec.SplitVsRight, failed = o.split(ctx, r, p.ID, statsapi.GroupPitching, stats.SideRight, stats.RolePitcher, failed)

	return o.store(ctx, r, gameID, p.ID, KindStarter, rec, failed)
}

// enrichBatter stores a batter's head-to-head line against starter and the
// batter's own splits vs left- and right-handed pitching. It is the single
// batter path for both sides of every game.
func (o *Orchestrator) enrichBatter(ctx context.Context, r *run, gameID string, b, starter statsapi.Person) error {
	if rec, ok := o.cache.Get(gameID, b.ID); ok && !o.refetch(rec, false, starter.ID) {
		o.record(r, KindBatter, OutcomeCached)
		return nil
	}

	rec := types.PersonRecord{Name: b.Name, Status: types.StatusFetched, VsPitcher: starter.ID}

	r.summary.Lookups++
	h2h := stats.Sentinel("vs probable starter", "BVP")
	failed := false
	if ws, err := o.provider.HeadToHead(ctx, b.ID, starter.ID); err != nil {
		o.opts.Logger.Warn("matchup: head-to-head lookup failed",
			"game", gameID, "batter", b.ID, "pitcher", starter.ID, "err", err)
		failed = true
	} else {
		h2h = stats.HeadToHead(ws...)
	}
	rec.HeadToHead = &h2h

	rec.SplitVsLeft, failed = o.split(ctx, r, b.ID, statsapi.GroupHitting, stats.SideLeft, stats.RoleBatter, failed)
	rec.SplitVsRight, failed = o.split(ctx, r, b.ID, statsapi.GroupHitting, stats.SideRight, stats.RoleBatter, failed)

	return o.store(ctx, r, gameID, b.ID, KindBatter, rec, failed)
}

// refetch reports whether a cached record must be rebuilt. A record written
// for the other role (a two-way player listed as both starter and batter)
// is left alone: the first write wins.
func (o *Orchestrator) refetch(rec types.PersonRecord, pitcher bool, starterID string) bool {
	if rec.IsPitcher != pitcher {
		return false
	}
	if o.opts.RetryDegraded && rec.Degraded() {
		return true
	}
	// The opposing starter was scratched since the batter was enriched.
	return !pitcher && rec.VsPitcher != "" && rec.VsPitcher != starterID
}

// split resolves one handedness split, via the memo when possible. A failed
// lookup yields the sentinel and sets failed; failed is sticky across calls.
func (o *Orchestrator) split(ctx context.Context, r *run, personID string, group statsapi.Group,
	side stats.Side, role stats.Role, failed bool) (types.SplitStat, bool) {
	key := memoKey{person: personID, group: group, side: side}
	if r.memo != nil {
		if ws, ok := r.memo.Get(key); ok {
			return stats.Split(side, role, ws...), failed
		}
	}

	r.summary.Lookups++
	ws, err := o.provider.Splits(ctx, personID, group, string(side), o.opts.Seasons)
	if err != nil {
		o.opts.Logger.Warn("matchup: split lookup failed",
			"person", personID, "group", group, "side", side, "err", err)
		return stats.Sentinel(stats.Label(side, role), stats.SplitType(side, role)), true
	}
	if r.memo != nil {
		r.memo.Add(key, ws)
	}
	return stats.Split(side, role, ws...), failed
}

// store finalizes and persists rec. A cancelled context discards the record
// so that shutdown never writes sentinels for calls it aborted.
func (o *Orchestrator) store(ctx context.Context, r *run, gameID, personID, kind string, rec types.PersonRecord, failed bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	outcome := OutcomeFetched
	if failed {
		rec.Status = types.StatusDegraded
		outcome = OutcomeDegraded
	}
	rec.FetchedAt = o.opts.Clock.Now().UTC()

	if err := o.cache.Put(gameID, personID, rec); err != nil {
		// The record stays in memory; the next successful Put persists it.
		o.opts.Logger.Error("matchup: persist record failed",
			"game", gameID, "person", personID, "err", err)
	}
	o.opts.Logger.Debug("matchup: stored record",
		"game", gameID, "person", personID, "kind", kind, "outcome", outcome.String())
	o.record(r, kind, outcome)
	return nil
}

func (o *Orchestrator) record(r *run, kind string, outcome Outcome) {
	r.summary.add(outcome)
	if o.opts.Recorder != nil {
		o.opts.Recorder.ObserveEntity(kind, outcome.String())
	}
}
