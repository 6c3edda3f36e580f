package conversation_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/graft/internal/conversation"
)

func TestMessageJSON_PlainIsString(t *testing.T) {
	b, err := json.Marshal(conversation.UserText("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"hi"}`, string(b))

	var m conversation.Message
	require.NoError(t, json.Unmarshal(b, &m))
	assert.True(t, m.Plain())
	assert.Equal(t, "hi", m.Text)
}

func TestMessageJSON_BlocksUseAPIShape(t *testing.T) {
	m := Asst(
		conversation.Thinking{Text: "hmm", Signature: "EqQBCkYIBxgCKkB/sig=="},
		T("checking"),
		conversation.ToolUse{ID: "toolu_1", Name: "read_file", Input: json.RawMessage(`{"path":"a.txt"}`)},
	)
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"assistant","content":[
		{"type":"thinking","thinking":"hmm","signature":"EqQBCkYIBxgCKkB/sig=="},
		{"type":"text","text":"checking"},
		{"type":"tool_use","id":"toolu_1","name":"read_file","input":{"path":"a.txt"}}
	]}`, string(b))

	var back conversation.Message
	require.NoError(t, json.Unmarshal(b, &back))
	require.Len(t, back.Blocks, 3)
	th, ok := back.Blocks[0].(conversation.Thinking)
	require.True(t, ok)
	assert.Equal(t, "EqQBCkYIBxgCKkB/sig==", th.Signature)
}

func TestMessageJSON_ToolUseWithoutInputEncodesEmptyObject(t *testing.T) {
	b, err := json.Marshal(Asst(conversation.ToolUse{ID: "x", Name: "list_dir"}))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"input":{}`)
}

func TestMessageJSON_ToolResultListContentIsFlattened(t *testing.T) {
	raw := `{"role":"user","content":[{"type":"tool_result","tool_use_id":"a","is_error":true,
		"content":[{"type":"text","text":"one "},{"type":"text","text":"two"}]}]}`
	var m conversation.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	require.Len(t, m.Blocks, 1)
	assert.Equal(t, conversation.ToolResult{ToolUseID: "a", Content: "one two", IsError: true}, m.Blocks[0])
}

func TestMessageJSON_Rejects(t *testing.T) {
	var m conversation.Message
	assert.Error(t, json.Unmarshal([]byte(`{"role":"system","content":"x"}`), &m))
	assert.Error(t, json.Unmarshal([]byte(`{"role":"user","content":[{"type":"image"}]}`), &m))
}

func TestMessageHelpers(t *testing.T) {
	assert.True(t, conversation.UserText("x").HasText())
	assert.False(t, conversation.ToolResults(TR("a")).HasText())
	assert.True(t, User(TR("a"), T("also")).HasText())

	m := Asst(T("a"), TU("1"), T("b"), TU("2"))
	uses := m.ToolUses()
	require.Len(t, uses, 2)
	assert.Equal(t, "1", uses[0].ID)
	assert.Equal(t, "2", uses[1].ID)
	assert.Equal(t, "ab", m.VisibleText())

	content := conversation.UserText("p").Content()
	assert.Equal(t, []conversation.Block{conversation.Text{Text: "p"}}, content)
}
