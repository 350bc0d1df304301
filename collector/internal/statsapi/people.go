package statsapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/startingnine/startingnine/pkg/types"
)

// Group is the Stats API stat group.
type Group string

const (
	GroupHitting  Group = "hitting"
	GroupPitching Group = "pitching"
)

type statsEnvelope struct {
	Stats *[]statsBlock `json:"stats"`
}

type statsBlock struct {
	Type struct {
		DisplayName string `json:"displayName"`
	} `json:"type"`
	Splits []struct {
		Season string   `json:"season"`
		Stat   statLine `json:"stat"`
		Split  struct {
			Code string `json:"code"`
		} `json:"split"`
	} `json:"splits"`
}

// statLine is the subset of a hitting/pitching stat line we aggregate.
// Both groups report the counts from the batter's point of view.
type statLine struct {
	AtBats      int `json:"atBats"`
	Hits        int `json:"hits"`
	Doubles     int `json:"doubles"`
	Triples     int `json:"triples"`
	HomeRuns    int `json:"homeRuns"`
	BaseOnBalls int `json:"baseOnBalls"`
	HitByPitch  int `json:"hitByPitch"`
	SacFlies    int `json:"sacFlies"`
	StrikeOuts  int `json:"strikeOuts"`
}

func (s statLine) window() types.CountWindow {
	return types.CountWindow{
		AtBats:     s.AtBats,
		Hits:       s.Hits,
		Doubles:    s.Doubles,
		Triples:    s.Triples,
		HomeRuns:   s.HomeRuns,
		Walks:      s.BaseOnBalls,
		HitByPitch: s.HitByPitch,
		SacFlies:   s.SacFlies,
		Strikeouts: s.StrikeOuts,
	}
}

// HeadToHead returns the batter's lifetime regular-season line against one
// pitcher. No shared history yields an empty slice and no error.
func (c *Client) HeadToHead(ctx context.Context, batterID, pitcherID string) ([]types.CountWindow, error) {
	q := url.Values{}
	q.Set("stats", "vsPlayerTotal")
	q.Set("opposingPlayerId", pitcherID)
	q.Set("group", string(GroupHitting))
	q.Set("gameType", "R")

	var env statsEnvelope
	if err := c.get(ctx, "vs_player", "/api/v1/people/"+batterID+"/stats", q, c.timeout, &env); err != nil {
		return nil, err
	}
	return windows(env, "vsPlayerTotal", "")
}

// Splits returns a player's handedness split for group, one window per
// season in seasons. With no seasons a single career window is requested.
// side is "L" or "R": the handedness of the opposing player.
func (c *Client) Splits(ctx context.Context, personID string, group Group, side string, seasons []int) ([]types.CountWindow, error) {
	code, err := sitCode(side)
	if err != nil {
		return nil, err
	}

	if len(seasons) == 0 {
		return c.split(ctx, personID, group, code, "careerStatSplits", "")
	}

	var out []types.CountWindow
	for _, season := range seasons {
		ws, err := c.split(ctx, personID, group, code, "statSplits", strconv.Itoa(season))
		if err != nil {
			return nil, err
		}
		out = append(out, ws...)
	}
	return out, nil
}

func (c *Client) split(ctx context.Context, personID string, group Group, code, statType, season string) ([]types.CountWindow, error) {
	q := url.Values{}
	q.Set("stats", statType)
	q.Set("group", string(group))
	q.Set("sitCodes", code)
	q.Set("gameType", "R")
	if season != "" {
		q.Set("season", season)
	}

	var env statsEnvelope
	if err := c.get(ctx, "stat_splits", "/api/v1/people/"+personID+"/stats", q, c.timeout, &env); err != nil {
		return nil, err
	}
	return windows(env, statType, code)
}

// windows extracts the CountWindows of the block named statType, keeping only
// splits whose code matches (when code is set and the split carries one).
func windows(env statsEnvelope, statType, code string) ([]types.CountWindow, error) {
	if env.Stats == nil {
		return nil, fmt.Errorf("%w: no stats array", ErrMalformed)
	}

	var out []types.CountWindow
	for _, block := range *env.Stats {
		if block.Type.DisplayName != "" && block.Type.DisplayName != statType {
			continue
		}
		for _, s := range block.Splits {
			if code != "" && s.Split.Code != "" && !strings.EqualFold(s.Split.Code, code) {
				continue
			}
			out = append(out, s.Stat.window())
		}
	}
	return out, nil
}

func sitCode(side string) (string, error) {
	switch strings.ToUpper(side) {
	case "L":
		return "vl", nil
	case "R":
		return "vr", nil
	default:
		return "", fmt.Errorf("statsapi: unknown side %q", side)
	}
}

// Seasons returns the n most recent seasons ending with the current year,
// oldest first. n <= 0 returns nil (career window).
func (c *Client) Seasons(n int) []int {
	if n <= 0 {
		return nil
	}
	year := c.clock.Now().Year()
	out := make([]int, 0, n)
	for y := year - n + 1; y <= year; y++ {
		out = append(out, y)
	}
	return out
}
