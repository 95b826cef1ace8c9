package devserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webforge/webforge/internal/build"
	"github.com/webforge/webforge/internal/config"
	"github.com/webforge/webforge/internal/pipeline"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(cfg.SourcePath(), 0o755))

	graph, err := build.New(cfg).Graph()
	require.NoError(t, err)

	srv, err := New(cfg, graph)
	require.NoError(t, err)
	t.Cleanup(func() { srv.watcher.Close() })
	return srv
}

func TestServer_CleanShutdownOnCancel(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(cfg.SourcePath(), 0o755))
	cfg.Port = 0 // ephemeral

	graph := pipeline.NewGraph()
	require.NoError(t, graph.Add(build.TaskBuild, func(context.Context) error { return nil }))

	srv, err := New(cfg, graph)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestTaskFor_MapsSourceSubdirsToTasks(t *testing.T) {
	srv := testServer(t)
	src := srv.cfg.SourcePath()

	assert.Equal(t, build.TaskStyles, srv.taskFor(filepath.Join(src, "styles", "main.scss")))
	assert.Equal(t, build.TaskScripts, srv.taskFor(filepath.Join(src, "scripts", "app.js")))
	assert.Equal(t, build.TaskImages, srv.taskFor(filepath.Join(src, "images", "logo.png")))
	assert.Equal(t, build.TaskAssets, srv.taskFor(filepath.Join(src, "assets", "robots.txt")))
	assert.Equal(t, build.TaskBuild, srv.taskFor(filepath.Join(src, "index.html")))
}

func TestTargetFor_NarrowsToSingleTask(t *testing.T) {
	srv := testServer(t)
	src := srv.cfg.SourcePath()

	t.Run("single area", func(t *testing.T) {
		target := srv.targetFor([]string{
			filepath.Join(src, "styles", "main.scss"),
			filepath.Join(src, "styles", "nav.scss"),
		})
		assert.Equal(t, build.TaskStyles, target)
	})

	t.Run("mixed areas fall back to full build", func(t *testing.T) {
		target := srv.targetFor([]string{
			filepath.Join(src, "styles", "main.scss"),
			filepath.Join(src, "scripts", "app.js"),
		})
		assert.Equal(t, build.TaskBuild, target)
	})

	t.Run("empty batch", func(t *testing.T) {
		assert.Equal(t, build.TaskBuild, srv.targetFor(nil))
	})
}
