// Package statsapi is a small client for the public MLB Stats API.
//
// It covers the three resources the collector reads: the daily schedule
// (probable pitchers and lineups), per-player stat splits and the live game
// feed used for umpire analytics. All calls share one Throttle, carry their
// own timeout and identify the bot with a fixed User-Agent.
package statsapi
