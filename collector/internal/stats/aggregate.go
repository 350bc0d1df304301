package stats

import (
	"strconv"
	"strings"

	"github.com/startingnine/startingnine/pkg/types"
)

// NoData is the display value for AVG and OPS when a split has no at-bats.
const NoData = "-"

// Side is the handedness of the opposing player a split is filtered on.
type Side string

const (
	SideLeft  Side = "L"
	SideRight Side = "R"
)

// Role selects the label vocabulary: a batter's split is against pitchers,
// a pitcher's split is against batters.
type Role int

const (
	RoleBatter Role = iota
	RolePitcher
)

// Sum adds every counting stat across windows. It never averages.
func Sum(windows ...types.CountWindow) types.CountWindow {
	var out types.CountWindow
	for _, w := range windows {
		out.AtBats += w.AtBats
		out.Hits += w.Hits
		out.Doubles += w.Doubles
		out.Triples += w.Triples
		out.HomeRuns += w.HomeRuns
		out.Walks += w.Walks
		out.HitByPitch += w.HitByPitch
		out.SacFlies += w.SacFlies
		out.Strikeouts += w.Strikeouts
	}
	return out
}

// Derive computes rate stats from already-summed counts.
//
//	singles    = H - 2B - 3B - HR
//	totalBases = 1B + 2*2B + 3*3B + 4*HR
//	avg        = H / AB
//	slg        = TB / AB
//	obp        = (H + BB + HBP) / (AB + BB + HBP + SF)
//	ops        = obp + slg
//
// Any rate whose denominator is zero is 0.
func Derive(c types.CountWindow) types.Rates {
	singles := c.Hits - c.Doubles - c.Triples - c.HomeRuns
	totalBases := singles + 2*c.Doubles + 3*c.Triples + 4*c.HomeRuns

	var r types.Rates
	if c.AtBats > 0 {
		r.AVG = float64(c.Hits) / float64(c.AtBats)
		r.SLG = float64(totalBases) / float64(c.AtBats)
	}
	if den := c.AtBats + c.Walks + c.HitByPitch + c.SacFlies; den > 0 {
		r.OBP = float64(c.Hits+c.Walks+c.HitByPitch) / float64(den)
	}
	r.OPS = r.OBP + r.SLG
	return r
}

// Aggregate sums windows and derives a labelled SplitStat with display strings.
func Aggregate(label, splitType string, windows ...types.CountWindow) types.SplitStat {
	counts := Sum(windows...)
	rates := Derive(counts)

	out := types.SplitStat{
		Label:       label,
		SplitType:   splitType,
		CountWindow: counts,
		Rates:       rates,
		AVG:         FormatRate(rates.AVG),
		OBP:         FormatRate(rates.OBP),
		SLG:         FormatRate(rates.SLG),
		OPS:         FormatRate(rates.OPS),
	}
	if counts.AtBats == 0 {
		out.AVG = NoData
		out.OPS = NoData
	}
	return out
}

// Split aggregates a handedness split for the given role.
func Split(side Side, role Role, windows ...types.CountWindow) types.SplitStat {
	return Aggregate(Label(side, role), SplitType(side, role), windows...)
}

// HeadToHead aggregates a batter's lifetime line against one pitcher.
func HeadToHead(windows ...types.CountWindow) types.SplitStat {
	return Aggregate("vs probable starter", "BVP", windows...)
}

// Sentinel is the explicit zero-count split recorded when a provider call fails.
func Sentinel(label, splitType string) types.SplitStat {
	return Aggregate(label, splitType)
}

// FormatRate renders v with three decimals and no leading zero: 0.275 -> ".275",
// 1.042 -> "1.042".
func FormatRate(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	return strings.TrimPrefix(s, "0")
}

// Label returns the human-readable description of a split.
func Label(side Side, role Role) string {
	hand := "right-handed"
	if side == SideLeft {
		hand = "left-handed"
	}
	if role == RolePitcher {
		return "vs " + hand + " batters"
	}
	return "vs " + hand + " pitching"
}

// SplitType returns the short code stored alongside a split: LHP/RHP for a
// batter's split, LHB/RHB for a pitcher's.
func SplitType(side Side, role Role) string {
	suffix := "P"
	if role == RolePitcher {
		suffix = "B"
	}
	return string(side) + "H" + suffix
}
