package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestProcessMissingSource(t *testing.T) {
	if err := process(context.Background(), "/nonexistent/book.epub", t.TempDir(), zap.NewNop()); err == nil {
		t.Fatal("expected an error for missing source")
	}
}

func TestProcessNotABook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := process(context.Background(), path, t.TempDir(), zap.NewNop()); err == nil {
		t.Fatal("expected an error for non-book input")
	}
}

func TestProcessDirNothingToDo(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("no books here"), 0644); err != nil {
		t.Fatal(err)
	}
	// a directory without books is not an error, just nothing to do
	if err := process(context.Background(), dir, t.TempDir(), zap.NewNop()); err != nil {
		t.Fatalf("process failed: %v", err)
	}
}

func TestProcessDirCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := processDir(ctx, t.TempDir(), t.TempDir(), zap.NewNop()); err == nil {
		t.Fatal("expected context cancellation to propagate")
	}
}
