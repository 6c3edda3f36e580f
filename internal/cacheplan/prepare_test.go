package cacheplan_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/graft/internal/cacheplan"
	"github.com/petasbytes/graft/internal/conversation"
)

func toolRound(id string) []conversation.Message {
	return []conversation.Message{
		conversation.AssistantBlocks(conversation.ToolUse{ID: id, Name: "list_dir", Input: json.RawMessage(`{}`)}),
		conversation.ToolResults(conversation.ToolResult{ToolUseID: id, Content: "x"}),
	}
}

func markers(prepared []cacheplan.Message) (count int, at [2]int) {
	for i, m := range prepared {
		for j, b := range m.Blocks {
			if b.Cache != nil {
				count++
				at = [2]int{i, j}
			}
		}
	}
	return count, at
}

func TestPrepare_MarksSecondToLastHumanMessage(t *testing.T) {
	msgs := []conversation.Message{
		conversation.UserText("first"),
		conversation.AssistantText("one"),
		conversation.UserText("second"),
	}
	msgs = append(msgs, toolRound("a")...)
	msgs = append(msgs, conversation.AssistantText("two"), conversation.UserText("third"))

	prepared, stats := cacheplan.Prepare(msgs, cacheplan.TTL5m)

	assert.Equal(t, 3, stats.HumanTurns)
	assert.Equal(t, 2, stats.Breakpoint)
	n, at := markers(prepared)
	require.Equal(t, 1, n)
	assert.Equal(t, [2]int{2, 0}, at)
	assert.Equal(t, cacheplan.TTL5m, prepared[2].Blocks[0].Cache.TTL)
}

func TestPrepare_MarkerOnLastBlockOnly(t *testing.T) {
	msgs := []conversation.Message{
		{Role: conversation.RoleUser, Blocks: []conversation.Block{
			conversation.Text{Text: "a"}, conversation.Text{Text: "b"},
		}},
		conversation.AssistantText("ok"),
		conversation.UserText("next"),
	}
	prepared, _ := cacheplan.Prepare(msgs, cacheplan.TTL1h)
	n, at := markers(prepared)
	require.Equal(t, 1, n)
	assert.Equal(t, [2]int{0, 1}, at)
	assert.Equal(t, cacheplan.TTL1h, prepared[0].Blocks[1].Cache.TTL)
}

func TestPrepare_NoMarker(t *testing.T) {
	tests := []struct {
		name string
		msgs []conversation.Message
		ttl  cacheplan.TTL
	}{
		{"ttl off", []conversation.Message{
			conversation.UserText("a"), conversation.AssistantText("b"), conversation.UserText("c"),
		}, cacheplan.TTLOff},
		{"single message", []conversation.Message{conversation.UserText("a")}, cacheplan.TTL5m},
		{"one human turn plus tool results", append(
			[]conversation.Message{conversation.UserText("a")}, toolRound("x")...,
		), cacheplan.TTL5m},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prepared, stats := cacheplan.Prepare(tc.msgs, tc.ttl)
			n, _ := markers(prepared)
			assert.Zero(t, n)
			assert.Equal(t, -1, stats.Breakpoint)
			require.Len(t, prepared, len(tc.msgs))
			// plain content is normalized to a single text block
			assert.Equal(t, conversation.Text{Text: "a"}, prepared[0].Blocks[0].Block)
		})
	}
}

func TestPrepare_DoesNotMutateAndIsDeterministic(t *testing.T) {
	msgs := []conversation.Message{
		conversation.UserText("first"),
		conversation.AssistantBlocks(conversation.Thinking{Text: "t", Signature: "s"}, conversation.Text{Text: "one"}),
		{Role: conversation.RoleUser, Blocks: []conversation.Block{conversation.Text{Text: "second"}}},
		conversation.AssistantText("two"),
		conversation.UserText("third"),
	}
	before, err := json.Marshal(msgs)
	require.NoError(t, err)

	first, s1 := cacheplan.Prepare(msgs, cacheplan.TTL5m)
	second, s2 := cacheplan.Prepare(msgs, cacheplan.TTL5m)

	after, err := json.Marshal(msgs)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Equal(t, first, second)
	assert.Equal(t, s1, s2)

	// marking the copy must not leak into the caller's block slice
	first[2].Blocks[0].Cache.TTL = cacheplan.TTL1h
	assert.Equal(t, cacheplan.TTL5m, second[2].Blocks[0].Cache.TTL)
	assert.Len(t, msgs[2].Blocks, 1)
}

func TestParseTTL(t *testing.T) {
	for in, want := range map[string]cacheplan.TTL{
		"off": cacheplan.TTLOff, "on": cacheplan.TTL5m, "5m": cacheplan.TTL5m, "1H": cacheplan.TTL1h,
	} {
		got, err := cacheplan.ParseTTL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := cacheplan.ParseTTL("2d")
	assert.Error(t, err)
}
