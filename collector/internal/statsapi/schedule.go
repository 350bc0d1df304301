package statsapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Person is a player identity as the schedule exposes it.
type Person struct {
	ID   string
	Name string
}

// TeamSide is one side of a scheduled game.
type TeamSide struct {
	TeamID   string
	TeamName string
	// Starter is nil until a probable pitcher is announced.
	Starter *Person
	// Lineup is the batting order, empty until posted.
	Lineup []Person
}

// Game is one scheduled game with both sides.
type Game struct {
	ID     string
	Status string
	Home   TeamSide
	Away   TeamSide
}

type scheduleEnvelope struct {
	TotalGames int `json:"totalGames"`
	Dates      []struct {
		Date  string         `json:"date"`
		Games []scheduleGame `json:"games"`
	} `json:"dates"`
}

type scheduleGame struct {
	GamePk int64 `json:"gamePk"`
	Status struct {
		AbstractGameState string `json:"abstractGameState"`
	} `json:"status"`
	Teams struct {
		Away scheduleTeam `json:"away"`
		Home scheduleTeam `json:"home"`
	} `json:"teams"`
	Lineups struct {
		HomePlayers []apiPerson `json:"homePlayers"`
		AwayPlayers []apiPerson `json:"awayPlayers"`
	} `json:"lineups"`
}

type scheduleTeam struct {
	Team struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	ProbablePitcher *apiPerson `json:"probablePitcher"`
}

type apiPerson struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
}

func (p apiPerson) person() Person {
	return Person{ID: strconv.FormatInt(p.ID, 10), Name: p.FullName}
}

// Schedule returns the day's games with probable pitchers and lineups
// hydrated. date is a canonical YYYY-MM-DD key. A day without games returns
// an empty slice and no error.
func (c *Client) Schedule(ctx context.Context, date string) ([]Game, error) {
	q := url.Values{}
	q.Set("sportId", "1")
	q.Set("date", date)
	q.Set("hydrate", "probablePitcher,lineups")

	var env scheduleEnvelope
	if err := c.get(ctx, "schedule", "/api/v1/schedule", q, c.scheduleTimeout, &env); err != nil {
		return nil, err
	}

	var games []Game
	for _, d := range env.Dates {
		for _, g := range d.Games {
			if g.GamePk == 0 {
				return nil, fmt.Errorf("%w: schedule game without gamePk", ErrMalformed)
			}
			games = append(games, Game{
				ID:     strconv.FormatInt(g.GamePk, 10),
				Status: g.Status.AbstractGameState,
				Away:   side(g.Teams.Away, g.Lineups.AwayPlayers),
				Home:   side(g.Teams.Home, g.Lineups.HomePlayers),
			})
		}
	}
	return games, nil
}

func side(t scheduleTeam, lineup []apiPerson) TeamSide {
	out := TeamSide{
		TeamID:   strconv.FormatInt(t.Team.ID, 10),
		TeamName: t.Team.Name,
	}
	if t.ProbablePitcher != nil && t.ProbablePitcher.ID != 0 {
		p := t.ProbablePitcher.person()
		out.Starter = &p
	}
	for _, b := range lineup {
		if b.ID == 0 {
			continue
		}
		out.Lineup = append(out.Lineup, b.person())
	}
	return out
}

// FinalGames lists the gamePks of completed regular-season games between
// start and end inclusive (YYYY-MM-DD).
func (c *Client) FinalGames(ctx context.Context, start, end string) ([]string, error) {
	q := url.Values{}
	q.Set("sportId", "1")
	q.Set("gameType", "R")
	q.Set("startDate", start)
	q.Set("endDate", end)

	var env scheduleEnvelope
	if err := c.get(ctx, "schedule", "/api/v1/schedule", q, c.scheduleTimeout, &env); err != nil {
		return nil, err
	}

	var ids []string
	seen := make(map[int64]bool)
	for _, d := range env.Dates {
		for _, g := range d.Games {
			if g.GamePk == 0 || g.Status.AbstractGameState != "Final" || seen[g.GamePk] {
				continue
			}
			seen[g.GamePk] = true
			ids = append(ids, strconv.FormatInt(g.GamePk, 10))
		}
	}
	return ids, nil
}
