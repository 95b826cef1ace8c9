// Package devserver serves the compiled output dir over localhost, watches
// the source tree, re-runs the affected pipeline task on change, and pushes
// a reload signal to connected browsers.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gitignore "github.com/sabhiram/go-gitignore"
	sloggin "github.com/samber/slog-gin"
	"golang.org/x/sync/errgroup"

	"github.com/webforge/webforge/internal/build"
	"github.com/webforge/webforge/internal/config"
	"github.com/webforge/webforge/internal/pipeline"
	"github.com/webforge/webforge/pkg/fswatch"
)

// Paths that change constantly but never affect the built site.
var defaultIgnoreLines = []string{
	"dist/",
	"node_modules/",
	".git/",
	".DS_Store",
	"*.tmp",
	"*.swp",
}

type Server struct {
	cfg     *config.Config
	graph   *pipeline.Graph
	hub     *ReloadHub
	watcher *fswatch.Watcher
	server  *http.Server
}

func New(cfg *config.Config, graph *pipeline.Graph) (*Server, error) {
	hub := NewReloadHub()

	ignore := gitignore.CompileIgnoreLines(defaultIgnoreLines...)
	watcher, err := fswatch.New(cfg.SourcePath(), func(path string) bool {
		rel, err := filepath.Rel(cfg.ProjectDir, path)
		if err != nil {
			return false
		}
		return ignore.MatchesPath(rel)
	})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", cfg.SourcePath(), err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// NOTE middleware order is important
	engine.Use(
		sloggin.New(slog.Default()),
		gin.Recovery(),
		cors.Default(),
	)

	engine.GET("/__reload", gin.WrapF(hub.Handle))
	engine.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.OutputPath()))))

	return &Server{
		cfg:     cfg,
		graph:   graph,
		hub:     hub,
		watcher: watcher,
		server: &http.Server{
			Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler: engine,
		},
	}, nil
}

// Start runs an initial full build, then serves and watches until the
// context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	slog.Info("dev server start", "addr", s.server.Addr, "serving", s.cfg.OutputPath())

	if err := s.graph.Run(ctx, build.TaskBuild); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		err := s.watcher.Start(egCtx)
		if errors.Is(err, context.Canceled) || errors.Is(err, fswatch.ErrWatcherClosed) {
			// Stop closes the watcher, which can surface as a closed
			// event channel before the context observes cancellation
			return nil
		}
		return err
	})

	eg.Go(func() error {
		s.watchLoop(egCtx)
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("dev server stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("dev server stopped")
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.hub.Shutdown()
	s.watcher.Close()
	return s.server.Shutdown(ctx)
}

func (s *Server) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-s.watcher.Changes():
			if !ok {
				return
			}

			target := s.targetFor(batch)
			slog.Info("source changed", "files", len(batch), "task", target)
			if err := s.graph.Run(ctx, target); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				// keep serving the last good build
				slog.Error("rebuild failed", "task", target, "error", err)
				continue
			}
			s.hub.Broadcast(ctx)
		}
	}
}

// targetFor maps a batch of changed paths to the narrowest pipeline task
// that rebuilds them all.
func (s *Server) targetFor(paths []string) string {
	target := ""
	for _, p := range paths {
		t := s.taskFor(p)
		if target == "" {
			target = t
		} else if target != t {
			return build.TaskBuild
		}
	}
	if target == "" {
		return build.TaskBuild
	}
	return target
}

func (s *Server) taskFor(path string) string {
	rel, err := filepath.Rel(s.cfg.SourcePath(), path)
	if err != nil {
		return build.TaskBuild
	}

	top, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	switch top {
	case "styles":
		return build.TaskStyles
	case "scripts":
		return build.TaskScripts
	case "images":
		return build.TaskImages
	case "assets":
		return build.TaskAssets
	default:
		return build.TaskBuild
	}
}
