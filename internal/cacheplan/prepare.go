// Package cacheplan decides where the prompt-cache breakpoint goes on each
// outgoing request. It works on copies and never touches stored history.
package cacheplan

import (
	"fmt"
	"strings"

	"github.com/petasbytes/graft/internal/conversation"
)

// TTL is the requested lifetime of the cache breakpoint.
type TTL string

const (
	TTLOff TTL = "off"
	TTL5m  TTL = "5m"
	TTL1h  TTL = "1h"
)

// ParseTTL accepts off, on (same as 5m), 5m and 1h.
func ParseTTL(s string) (TTL, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "false", "":
		return TTLOff, nil
	case "on", "true", "5m":
		return TTL5m, nil
	case "1h":
		return TTL1h, nil
	}
	return TTLOff, fmt.Errorf("cacheplan: invalid ttl %q (want off, on, 5m or 1h)", s)
}

// Marker is the request-time cache annotation.
type Marker struct {
	TTL TTL
}

// Block is a content block as sent on one request.
type Block struct {
	conversation.Block
	Cache *Marker
}

// Message is a prepared outgoing message. Content is always in block form.
type Message struct {
	Role   conversation.Role
	Blocks []Block
}

// Stats summarizes a preparation.
//
// Fields:
// - HumanTurns: user messages holding text (tool-result-only messages excluded).
// - Breakpoint: index of the annotated message, or -1.
type Stats struct {
	HumanTurns int
	Breakpoint int
}

// Prepare returns msgs in block form with at most one cache marker.
//
// Rules:
// - ttl off or fewer than 2 messages: no marker.
// - The marker goes on the last block of the second-to-last human-text
//   message. The latest human turn still changes across tool rounds, so the
//   one before it is the longest stable prefix.
// - Fewer than 2 human-text messages: no marker.
func Prepare(msgs []conversation.Message, ttl TTL) ([]Message, Stats) {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		content := m.Content()
		blocks := make([]Block, len(content))
		for j, b := range content {
			blocks[j] = Block{Block: b}
		}
		out[i] = Message{Role: m.Role, Blocks: blocks}
	}

	stats := Stats{Breakpoint: -1}
	var human []int
	for i, m := range msgs {
		if m.Role == conversation.RoleUser && m.HasText() {
			human = append(human, i)
		}
	}
	stats.HumanTurns = len(human)

	if ttl == TTLOff || len(msgs) < 2 || len(human) < 2 {
		return out, stats
	}

	idx := human[len(human)-2]
	blocks := out[idx].Blocks
	if len(blocks) == 0 {
		return out, stats
	}
	blocks[len(blocks)-1].Cache = &Marker{TTL: ttl}
	stats.Breakpoint = idx
	return out, stats
}
