package statsapi

import (
	"context"
	"fmt"
)

// GameFeed is the umpire-relevant slice of a completed game's live feed.
// Counts cover both teams' plate appearances.
type GameFeed struct {
	ID string
	// Umpire is the home-plate official's full name, "" when not listed.
	Umpire           string
	HomeRuns         int
	AwayRuns         int
	PlateAppearances int
	Strikeouts       int
	Walks            int
}

// Runs returns total runs scored in the game.
func (f GameFeed) Runs() int { return f.HomeRuns + f.AwayRuns }

type feedEnvelope struct {
	LiveData *struct {
		Boxscore struct {
			Officials []struct {
				Official     apiPerson `json:"official"`
				OfficialType string    `json:"officialType"`
			} `json:"officials"`
			Teams struct {
				Home boxTeam `json:"home"`
				Away boxTeam `json:"away"`
			} `json:"teams"`
		} `json:"boxscore"`
		Linescore struct {
			Teams struct {
				Home struct {
					Runs int `json:"runs"`
				} `json:"home"`
				Away struct {
					Runs int `json:"runs"`
				} `json:"away"`
			} `json:"teams"`
		} `json:"linescore"`
	} `json:"liveData"`
}

type boxTeam struct {
	TeamStats struct {
		Batting struct {
			PlateAppearances int `json:"plateAppearances"`
			StrikeOuts       int `json:"strikeOuts"`
			BaseOnBalls      int `json:"baseOnBalls"`
		} `json:"batting"`
	} `json:"teamStats"`
}

const homePlate = "Home Plate"

// GameFeed fetches one game's live feed and extracts the home-plate umpire,
// the linescore runs and the team batting totals.
func (c *Client) GameFeed(ctx context.Context, gamePk string) (GameFeed, error) {
	var env feedEnvelope
	if err := c.get(ctx, "game_feed", "/api/v1.1/game/"+gamePk+"/feed/live", nil, c.timeout, &env); err != nil {
		return GameFeed{}, err
	}
	if env.LiveData == nil {
		return GameFeed{}, fmt.Errorf("%w: game %s has no liveData", ErrMalformed, gamePk)
	}

	box := env.LiveData.Boxscore
	out := GameFeed{
		ID:       gamePk,
		HomeRuns: env.LiveData.Linescore.Teams.Home.Runs,
		AwayRuns: env.LiveData.Linescore.Teams.Away.Runs,
	}
	for _, o := range box.Officials {
		if o.OfficialType == homePlate {
			out.Umpire = o.Official.FullName
			break
		}
	}
	for _, t := range []boxTeam{box.Teams.Home, box.Teams.Away} {
		out.PlateAppearances += t.TeamStats.Batting.PlateAppearances
		out.Strikeouts += t.TeamStats.Batting.StrikeOuts
		out.Walks += t.TeamStats.Batting.BaseOnBalls
	}
	return out, nil
}
