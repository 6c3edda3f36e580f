package tools_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petasbytes/graft/tools"
)

func TestListDir_SortedWithDirectoryMarker(t *testing.T) {
	dir := filepath.Join(sharedDir, rel(t))
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	for _, name := range []string{"b.txt", "a.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatalf("prepare: %v", err)
		}
	}

	out, err := tools.ListDir(context.Background(), sb, input(t, tools.ListDirInput{Path: rel(t)}))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if want := "    a.txt\n    b.txt\n[d] sub"; out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestListDir_EmptyPathIsRoot(t *testing.T) {
	if err := os.MkdirAll(filepath.Join(sharedDir, rel(t)), 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	out, err := tools.ListDir(context.Background(), sb, []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(out, "[d] "+t.Name()) {
		t.Fatalf("root listing missing %q:\n%s", t.Name(), out)
	}
}
