package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/graft/internal/stream"
)

// Stats accumulates usage across requests. LastContextTokens is the only
// field that is overwritten rather than added to.
type Stats struct {
	InputTokens      int64
	OutputTokens     int64
	CacheWriteTokens int64
	CacheReadTokens  int64
	Requests         int64
	ToolCalls        int64
	WebSearches      int64

	LastContextTokens int64
}

// Record adds one response's usage and counts the request.
func (s *Stats) Record(u stream.Usage) {
	s.InputTokens += u.InputTokens
	s.OutputTokens += u.OutputTokens
	s.CacheWriteTokens += u.CacheWriteTokens
	s.CacheReadTokens += u.CacheReadTokens
	s.WebSearches += u.WebSearches
	s.Requests++
	s.LastContextTokens = u.ContextTokens()
}

// RecordToolCall counts one tool execution.
func (s *Stats) RecordToolCall() { s.ToolCalls++ }

// Reset zeroes every counter.
func (s *Stats) Reset() { *s = Stats{} }

// CacheHitRate is the share of prompt tokens served from cache.
func (s Stats) CacheHitRate() float64 {
	total := s.InputTokens + s.CacheWriteTokens + s.CacheReadTokens
	if total == 0 {
		return 0
	}
	return float64(s.CacheReadTokens) / float64(total)
}

// TextSize describes a string without retaining it.
type TextSize struct {
	Bytes int
	Runes int
	Lines int
}

// Measure returns the size of s. Lines is 0 for the empty string.
func Measure(s string) TextSize {
	ts := TextSize{Bytes: len(s), Runes: utf8.RuneCountInString(s)}
	if s != "" {
		ts.Lines = 1 + strings.Count(s, "\n")
	}
	return ts
}
