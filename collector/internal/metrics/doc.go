// Package metrics keeps the collector's Prometheus counters and exports them
// as a node-exporter textfile after every job run.
package metrics
