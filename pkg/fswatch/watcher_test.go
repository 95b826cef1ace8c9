package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupe(t *testing.T) {
	in := []string{"a", "b", "a", "c", "b"}
	assert.Equal(t, []string{"a", "b", "c"}, dedupe(in))
}

func TestNew_RejectsMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), nil)
	assert.ErrorIs(t, err, ErrDirNotExist)
}

func TestWatcher_DeliversDebouncedBatch(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// a burst of writes should coalesce into one batch
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("2"), 0o644))

	select {
	case batch := <-w.Changes():
		assert.NotEmpty(t, batch)
	case <-time.After(3 * time.Second):
		t.Fatal("no change batch delivered")
	}
}

func TestWatcher_IgnoreFilterSuppressesChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, func(path string) bool {
		return strings.HasSuffix(path, ".tmp")
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.tmp"), []byte("x"), 0o644))

	select {
	case batch := <-w.Changes():
		t.Fatalf("unexpected batch %v", batch)
	case <-time.After(700 * time.Millisecond):
	}
}
