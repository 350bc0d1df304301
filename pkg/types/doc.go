// Package types defines the record shapes shared by the collector and the
// snapshot server. These are the canonical in-memory forms and, through their
// JSON tags, the on-disk format of matchups.json and umpires.json.
package types
