package matchup

import "log/slog"

// Outcome is what happened to one entity during a run.
type Outcome int

const (
	// OutcomeCached means the record was already present and reused.
	OutcomeCached Outcome = iota
	// OutcomeFetched means every lookup succeeded and the record was stored.
	OutcomeFetched
	// OutcomeDegraded means at least one lookup failed; the record was stored
	// with sentinel splits.
	OutcomeDegraded
	// OutcomeSkipped means an offense was not processed because the opposing
	// probable starter is not yet announced.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCached:
		return "cached"
	case OutcomeFetched:
		return "fetched"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Summary totals one Run.
type Summary struct {
	Date     string
	Games    int
	Cached   int
	Fetched  int
	Degraded int
	Skipped  int
	// Pruned counts starter records dropped because the pitcher is no
	// longer a probable starter of the game.
	Pruned int
	// Lookups counts player-stat provider operations. The schedule fetch and
	// memo hits are not included.
	Lookups int
}

func (s *Summary) add(o Outcome) {
	switch o {
	case OutcomeCached:
		s.Cached++
	case OutcomeFetched:
		s.Fetched++
	case OutcomeDegraded:
		s.Degraded++
	case OutcomeSkipped:
		s.Skipped++
	}
}

// LogValue renders the summary as a group of slog attrs.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("date", s.Date),
		slog.Int("games", s.Games),
		slog.Int("cached", s.Cached),
		slog.Int("fetched", s.Fetched),
		slog.Int("degraded", s.Degraded),
		slog.Int("skipped", s.Skipped),
		slog.Int("pruned", s.Pruned),
		slog.Int("lookups", s.Lookups),
	)
}
