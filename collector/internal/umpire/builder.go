package umpire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/jonboulle/clockwork"

	"github.com/startingnine/startingnine/collector/internal/atomicfile"
	"github.com/startingnine/startingnine/collector/internal/statsapi"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Source lists completed games and fetches their feeds.
// *statsapi.Client satisfies it.
type Source interface {
	FinalGames(ctx context.Context, start, end string) ([]string, error)
	GameFeed(ctx context.Context, gamePk string) (statsapi.GameFeed, error)
}

// Builder runs the umpire analytics batch.
type Builder struct {
	source       Source
	path         string
	lookbackDays int
	loc          *time.Location
	clock        clockwork.Clock
	logger       *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the clock used to resolve the window.
func WithClock(c clockwork.Clock) Option { return func(b *Builder) { b.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(b *Builder) { b.logger = l } }

// WithLocation sets the zone that defines "today". Default UTC.
func WithLocation(loc *time.Location) Option { return func(b *Builder) { b.loc = loc } }

// NewBuilder returns a Builder writing its report to path.
func NewBuilder(src Source, path string, lookbackDays int, opts ...Option) *Builder {
	b := &Builder{
		source:       src,
		path:         path,
		lookbackDays: lookbackDays,
		loc:          time.UTC,
		clock:        clockwork.NewRealClock(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result summarizes one batch.
type Result struct {
	Start   string
	End     string
	Games   int
	Skipped int
	Umpires int
}

// Run resolves the window, aggregates every final game's feed and writes
// the report. Games whose feed or official cannot be resolved are skipped.
// Only a failure to list games or to write the report is returned.
func (b *Builder) Run(ctx context.Context) (Result, error) {
	now := b.clock.Now().In(b.loc)
	start, end := Window(now, b.lookbackDays)
	res := Result{Start: start, End: end}

	ids, err := b.source.FinalGames(ctx, start, end)
	if err != nil {
		return res, fmt.Errorf("umpire: list games %s..%s: %w", start, end, err)
	}
	b.logger.Info("umpire: aggregating games", "start", start, "end", end, "games", len(ids))

	agg := NewAggregator()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		feed, err := b.source.GameFeed(ctx, id)
		if err != nil {
			b.logger.Warn("umpire: skipping game, feed unavailable", "game", id, "err", err)
			res.Skipped++
			continue
		}
		if feed.Umpire == "" {
			b.logger.Debug("umpire: skipping game, no home-plate official", "game", id)
			res.Skipped++
			continue
		}
		agg.Add(GameLine{
			GameID:           id,
			Umpire:           feed.Umpire,
			PlateAppearances: feed.PlateAppearances,
			Strikeouts:       feed.Strikeouts,
			Walks:            feed.Walks,
			Runs:             feed.Runs(),
		})
		res.Games++
	}

	records := agg.Records()
	res.Umpires = len(records)
	report := Report(records, start, end, b.clock.Now().UTC())

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return res, fmt.Errorf("umpire: encode report: %w", err)
	}
	if err := atomicfile.Write(b.path, data, 0o644); err != nil {
		return res, fmt.Errorf("umpire: write report: %w", err)
	}
	b.logger.Info("umpire: report written", "path", b.path, "umpires", res.Umpires, "skipped", res.Skipped)
	return res, nil
}
