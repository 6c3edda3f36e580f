// Package metrics holds the per-session counters: cumulative usage stats and
// the sliding window used to warn about rapid tool calls. Both are owned by
// the runner; nothing here is global.
package metrics
