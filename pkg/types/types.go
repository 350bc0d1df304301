package types

import "time"

// CountWindow holds raw, unaggregated counting stats for one time slice of a
// player's history (one season, or a lifetime head-to-head total).
type CountWindow struct {
	AtBats     int `json:"ab"`
	Hits       int `json:"hits"`
	Doubles    int `json:"doubles"`
	Triples    int `json:"triples"`
	HomeRuns   int `json:"hr"`
	Walks      int `json:"bb"`
	HitByPitch int `json:"hbp"`
	SacFlies   int `json:"sf"`
	Strikeouts int `json:"so"`
}

// Rates are the numeric rate stats derived from a summed CountWindow.
// Zero denominators yield 0, never NaN.
type Rates struct {
	AVG float64 `json:"avg"`
	OBP float64 `json:"obp"`
	SLG float64 `json:"slg"`
	OPS float64 `json:"ops"`
}

// SplitStat is the aggregate of one or more CountWindows for a single slice
// (vs left-handed pitching, head-to-head, ...). The embedded counts are the
// summed raw values; the string fields are display-formatted (".275", or "-"
// for AVG and OPS when there are no at-bats).
type SplitStat struct {
	Label     string `json:"label"`
	SplitType string `json:"split_type,omitempty"`
	CountWindow
	Rates Rates  `json:"rates"`
	AVG   string `json:"avg"`
	OBP   string `json:"obp"`
	SLG   string `json:"slg"`
	OPS   string `json:"ops"`
}

// Status records how a PersonRecord was produced.
type Status string

const (
	// StatusFetched means every provider call for the record succeeded.
	StatusFetched Status = "fetched"
	// StatusDegraded means at least one split is a zero-count sentinel
	// because its provider call failed.
	StatusDegraded Status = "degraded"
)

// PersonRecord is the cached enrichment for one person in one game.
// Starters carry pitcher splits (vs LHB / RHB); batters carry their own
// splits (vs LHP / RHP) plus a head-to-head line against the opposing starter.
type PersonRecord struct {
	Name         string     `json:"name"`
	IsPitcher    bool       `json:"is_pitcher"`
	Status       Status     `json:"status"`
	VsPitcher    string     `json:"vs_pitcher_id,omitempty"`
	HeadToHead   *SplitStat `json:"bvp,omitempty"`
	SplitVsLeft  SplitStat  `json:"split_vL"`
	SplitVsRight SplitStat  `json:"split_vR"`
	FetchedAt    time.Time  `json:"fetched_at"`
}

// Degraded reports whether any part of the record is a sentinel.
func (r PersonRecord) Degraded() bool { return r.Status == StatusDegraded }

// DailyCache is the persisted per-day snapshot: game id -> person id -> record.
type DailyCache struct {
	Date  string                             `json:"date"`
	Games map[string]map[string]PersonRecord `json:"games"`
}

// NewDailyCache returns an empty cache stamped with date.
func NewDailyCache(date string) *DailyCache {
	return &DailyCache{Date: date, Games: make(map[string]map[string]PersonRecord)}
}

// Records returns the total number of person records across all games.
func (c *DailyCache) Records() int {
	n := 0
	for _, g := range c.Games {
		n += len(g)
	}
	return n
}

// UmpireRecord is the accumulated workload of one home-plate official.
// The rate fields are only meaningful once derived after accumulation.
type UmpireRecord struct {
	Identity         string  `json:"identity"`
	GamesWorked      int     `json:"games"`
	PlateAppearances int     `json:"pa"`
	Strikeouts       int     `json:"k"`
	Walks            int     `json:"bb"`
	RunsAllowed      int     `json:"runs"`
	KRate            float64 `json:"k_rate"`
	BBRate           float64 `json:"bb_rate"`
	RunsPerGame      float64 `json:"rpg"`
}

// UmpireLine is the display form of an UmpireRecord in the analytics file.
type UmpireLine struct {
	KRate       string `json:"k_rate"`
	BBRate      string `json:"bb_rate"`
	RunsPerGame string `json:"rpg"`
	Games       int    `json:"games"`
}

// UmpireReport is the persisted umpire analytics document.
type UmpireReport struct {
	GeneratedAt time.Time             `json:"generated_at"`
	WindowStart string                `json:"window_start"`
	WindowEnd   string                `json:"window_end"`
	Umpires     map[string]UmpireLine `json:"umpires"`
}

// Alert is one run-outcome alert raised by the collector.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Job        string     `json:"job"`
	Date       string     `json:"date,omitempty"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

// Alert state values.
const (
	AlertFiring   = "firing"
	AlertResolved = "resolved"
)

// AlertReport is the persisted alert state: firing alerts plus recently
// resolved ones, newest first.
type AlertReport struct {
	GeneratedAt time.Time `json:"generated_at"`
	Alerts      []Alert   `json:"alerts"`
}

// Firing returns how many alerts in the report are still firing.
func (r AlertReport) Firing() int {
	n := 0
	for _, a := range r.Alerts {
		if a.State == AlertFiring {
			n++
		}
	}
	return n
}
