package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/petasbytes/graft/internal/conversation"
	"github.com/petasbytes/graft/internal/metrics"
	"github.com/petasbytes/graft/internal/runner"
)

func commas(n int64) string { return humanize.Comma(n) }

// formatSummary renders the line printed after every turn.
func formatSummary(u runner.TurnUsage) string {
	stop := string(u.StopReason)
	if stop == "" {
		stop = "unknown"
	}
	return fmt.Sprintf("\n[ctx: %s, out: %s, cache write: %s | cache read: %s, web: %s, tools: %d, stop: %s]",
		commas(u.LastContextTokens),
		commas(u.OutputTokens),
		commas(u.CacheWriteTokens),
		commas(u.CacheReadTokens),
		commas(u.WebSearches),
		u.ToolCalls,
		stop,
	)
}

func formatStats(s metrics.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Requests:      %s\n", commas(s.Requests))
	fmt.Fprintf(&sb, "Input tokens:  %s\n", commas(s.InputTokens))
	fmt.Fprintf(&sb, "Output tokens: %s\n", commas(s.OutputTokens))
	fmt.Fprintf(&sb, "Cache write:   %s\n", commas(s.CacheWriteTokens))
	fmt.Fprintf(&sb, "Cache read:    %s\n", commas(s.CacheReadTokens))
	fmt.Fprintf(&sb, "Cache hit:     %.1f%%\n", 100*s.CacheHitRate())
	fmt.Fprintf(&sb, "Web searches:  %s\n", commas(s.WebSearches))
	fmt.Fprintf(&sb, "Tool calls:    %s\n", commas(s.ToolCalls))
	fmt.Fprintf(&sb, "Last context:  %s", commas(s.LastContextTokens))
	return sb.String()
}

// preview flattens s to one line and cuts it to at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// restoredSettings lists the non-default settings of a loaded conversation.
func restoredSettings(c *conversation.Conversation) string {
	var parts []string
	if c.WebSearch {
		parts = append(parts, "web")
	}
	if c.ToolsPath != "" {
		parts = append(parts, "tools:"+c.ToolsPath)
	}
	if c.ShellEnabled {
		parts = append(parts, "shell")
	}
	return strings.Join(parts, ", ")
}

// showRecent prints the last n messages of c.
func showRecent(w io.Writer, c *conversation.Conversation, n int) {
	start := c.Len() - n
	if start < 0 {
		start = 0
	}
	if start >= c.Len() {
		return
	}
	fmt.Fprintln(w, "\nRecent messages:")
	for _, m := range c.Messages[start:] {
		fmt.Fprintf(w, "  %s: %s\n", speaker(m.Role), describe(m))
	}
}

func speaker(r conversation.Role) string {
	if r == conversation.RoleUser {
		return "You"
	}
	return "Claude"
}

// describe summarizes one message for showRecent.
func describe(m conversation.Message) string {
	if text := m.VisibleText(); strings.TrimSpace(text) != "" {
		return preview(text, 200)
	}
	var names []string
	results := 0
	for _, b := range m.Blocks {
		switch v := b.(type) {
		case conversation.ToolUse:
			names = append(names, v.Name)
		case conversation.ToolResult:
			results++
		case conversation.Text, conversation.Thinking:
		}
	}
	switch {
	case len(names) > 0:
		return "[tool calls: " + strings.Join(names, ", ") + "]"
	case results > 0:
		return fmt.Sprintf("[%d tool results]", results)
	}
	return "[no text]"
}
