// Package store serves the collector's JSON output files to the API. Each
// file is decoded once and re-read only after the collector replaces it.
package store
