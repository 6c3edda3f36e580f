package tools_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/graft/internal/sandbox"
	"github.com/petasbytes/graft/tools"
)

func strPtr(s string) *string { return &s }

func TestWriteFile_CreatesParentsAndReportsBytes(t *testing.T) {
	p := rel(t, "nested", "dir", "out.txt")
	out, err := tools.WriteFile(context.Background(), sb, input(t, tools.WriteFileInput{Path: p, Content: strPtr("héllo")}))
	require.NoError(t, err)
	assert.Equal(t, "Successfully wrote 6 bytes to "+p, out)

	b, err := os.ReadFile(filepath.Join(sharedDir, p))
	require.NoError(t, err)
	assert.Equal(t, "héllo", string(b))
}

func TestWriteFile_EmptyContentAllowed(t *testing.T) {
	p := rel(t, "empty.txt")
	_, err := tools.WriteFile(context.Background(), sb, input(t, tools.WriteFileInput{Path: p, Content: strPtr("")}))
	require.NoError(t, err)
	fi, err := os.Stat(filepath.Join(sharedDir, p))
	require.NoError(t, err)
	assert.Zero(t, fi.Size())
}

func TestWriteFile_InvalidInput(t *testing.T) {
	_, err := tools.WriteFile(context.Background(), sb, []byte(`{"path":"x.txt"}`))
	assert.Contains(t, err.Error(), "content is required")

	_, err = tools.WriteFile(context.Background(), sb, []byte(`{"path":`))
	assert.True(t, sandbox.HasCode(err, sandbox.CodeExecution), "%v", err)

	_, err = tools.WriteFile(context.Background(), sb, input(t, tools.WriteFileInput{Path: "../outside.txt", Content: strPtr("x")}))
	assert.True(t, sandbox.HasCode(err, sandbox.CodeSandboxViolation), "%v", err)
}
