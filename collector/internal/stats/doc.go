// Package stats combines raw counting-stat windows into batting rate stats.
//
// The discipline is sum-then-derive: Sum adds every count across windows
// (e.g. last season + this season), and only then does Derive compute AVG,
// OBP, SLG and OPS. Averaging per-window rates would weight a 20-AB season the
// same as a 500-AB one.
//
// Aggregate is role-agnostic arithmetic; Split and Label pick the vocabulary
// ("vs left-handed pitching" for a batter, "vs left-handed batters" for a
// pitcher). When a split has no at-bats, AVG and OPS display as NoData while
// the numeric rates stay 0.
package stats
