package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hitushen/localbrowser/internal/config"
	"github.com/hitushen/localbrowser/internal/fsindex"
	"github.com/hitushen/localbrowser/internal/models"
	"github.com/hitushen/localbrowser/internal/server"
)

func startServer(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docs", "report.pdf"), make([]byte, 500000), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	root, err := fsindex.New(dir, fsindex.Options{})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(server.New(root).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func runCommand(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts := options{server: addr, httpPort: 5000, timeout: time.Second}
	err := run(context.Background(), &config.Config{}, opts, args, &out)
	return out.String(), err
}

func TestRunCommands(t *testing.T) {
	addr := startServer(t)

	out, err := runCommand(t, addr, "ls")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "dir") || !strings.Contains(lines[1], "notes.txt") {
		t.Fatalf("ls output:\n%s", out)
	}

	out, err = runCommand(t, addr, "search", "report")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "docs/report.pdf") || !strings.Contains(out, "500000") {
		t.Fatalf("search output:\n%s", out)
	}

	out, err = runCommand(t, addr, "cat", "notes.txt")
	if err != nil || out != "hello" {
		t.Fatalf("cat = %q, %v", out, err)
	}

	out, err = runCommand(t, addr, "discover")
	if err != nil || !strings.HasPrefix(out, "http://127.0.0.1:") {
		t.Fatalf("discover = %q, %v", out, err)
	}
}

func TestRunErrors(t *testing.T) {
	addr := startServer(t)
	for _, args := range [][]string{{"search"}, {"cat"}, {"bogus"}, {"ls", "../../etc"}} {
		if _, err := runCommand(t, addr, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestPrintEntries(t *testing.T) {
	size := int64(42)
	var buf bytes.Buffer
	err := printEntries(&buf, []models.DirectoryEntry{
		{Name: "docs", Path: "docs", IsDirectory: true},
		{Name: "a.txt", Path: "docs/a.txt", Size: &size},
	}, true)
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "dir") || !strings.Contains(out, "42") || !strings.Contains(out, "docs/a.txt") {
		t.Fatalf("output:\n%s", out)
	}
}
