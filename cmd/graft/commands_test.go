package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petasbytes/graft/internal/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with a private settings directory.
func run(t *testing.T, home, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GRAFT_HOME", home)
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_ImportListDelete(t *testing.T) {
	home := t.TempDir()
	export := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(export, []byte(`[
		{"role": "user", "content": "hi"},
		{"role": "assistant", "content": "hello"}
	]`), 0o644))

	out, err := run(t, home, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved conversations.")
	assert.FileExists(t, filepath.Join(home, "config.toml"))

	out, err = run(t, home, "", "import", export, "chat", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 messages (~3 tokens)")
	assert.Contains(t, out, "Saved 'chat'")

	_, err = run(t, home, "", "import", export, "chat", "--save")
	require.Error(t, err)

	out, err = run(t, home, "", "list")
	require.NoError(t, err)
	assert.Regexp(t, `chat\s+2 msgs`, out)

	out, err = run(t, home, "n\n", "delete", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Delete 'chat'? [y/N] ")
	assert.Contains(t, out, "Cancelled.")

	out, err = run(t, home, "", "delete", "chat", "-y")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 'chat'")

	_, err = run(t, home, "", "delete", "chat", "-y")
	require.Error(t, err)
}

func TestCLI_MissingAPIKey(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	_, err := run(t, home, "", "notes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY not found")
}

func TestCLI_BadConfig(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("max_tokens = -1\n"), 0o644))

	_, err := run(t, home, "", "--config", path, "list")
	require.Error(t, err)
}

func TestPrintList(t *testing.T) {
	var out bytes.Buffer
	a := testApp(&out)

	require.NoError(t, printList(&out, a.store))
	assert.Equal(t, "No saved conversations.\n", out.String())

	c := conversation.New("m")
	c.Name = "alpha"
	c.Append(conversation.UserText("hi"))
	require.NoError(t, a.store.Save(c))

	out.Reset()
	require.NoError(t, printList(&out, a.store))
	assert.Regexp(t, `^  alpha\s+1 msgs  \d{4}-\d{2}-\d{2} \d{2}:\d{2}\n$`, out.String())
}

func TestIsYes(t *testing.T) {
	assert.True(t, isYes("y"))
	assert.True(t, isYes(" YES "))
	assert.False(t, isYes(""))
	assert.False(t, isYes("n"))
	assert.False(t, isYes("yep"))
}
