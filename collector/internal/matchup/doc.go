// Package matchup builds the day's matchup records.
//
// For every scheduled game each offense is matched against the opposing
// probable starter. The starter gets pitching splits vs left- and
// right-handed batters; every batter in the posted lineup gets a
// head-to-head line against that starter plus hitting splits vs left- and
// right-handed pitching. Records already in the daily cache are reused, so a
// rerun over an unchanged schedule makes no player-stat calls.
package matchup
