// Package build wires the asset pipeline tasks into a task graph. Each task
// transforms source files into the compiled output dir; the actual
// compilation work is delegated to external tools run as subprocesses.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/input-output-hk/catalyst-forge-libs/executor"

	"github.com/webforge/webforge/internal/config"
	"github.com/webforge/webforge/internal/pipeline"
	"github.com/webforge/webforge/internal/utils"
)

// TaskBuild runs the full pipeline; the leaf tasks can also be invoked
// directly by name.
const (
	TaskStyles  = "styles"
	TaskScripts = "scripts"
	TaskImages  = "images"
	TaskAssets  = "assets"
	TaskBuild   = "build"
)

type Builder struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Graph returns the registered task graph. "build" depends on all leaf
// tasks and does no work of its own.
func (b *Builder) Graph() (*pipeline.Graph, error) {
	g := pipeline.NewGraph()

	tasks := []struct {
		name string
		run  pipeline.RunFunc
		deps []string
	}{
		{TaskStyles, b.Styles, nil},
		{TaskScripts, b.Scripts, nil},
		{TaskImages, b.Images, nil},
		{TaskAssets, b.Assets, nil},
		{TaskBuild, func(ctx context.Context) error { return nil }, []string{TaskStyles, TaskScripts, TaskImages, TaskAssets}},
	}

	for _, t := range tasks {
		if err := g.Add(t.name, t.run, t.deps...); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Clean removes the compiled output dir.
func (b *Builder) Clean(ctx context.Context) error {
	out := b.cfg.OutputPath()
	if out == "/" || out == b.cfg.ProjectDir {
		return fmt.Errorf("refusing to remove %s", out)
	}
	return os.RemoveAll(out)
}

// runTool executes an external build tool in the project dir, streaming its
// output to the console.
func (b *Builder) runTool(ctx context.Context, tool string, args ...string) error {
	result, err := executor.New(tool, args...).Execute(ctx,
		executor.WithWorkingDir(b.cfg.ProjectDir),
		executor.ConsoleOnly(),
	)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return fmt.Errorf("%s not found in PATH, is it installed?", tool)
		}
		return fmt.Errorf("%s exited with code %d: %w", tool, result.ExitCode, err)
	}
	return nil
}

func (b *Builder) outputSubdir(name string) (string, error) {
	dir := filepath.Join(b.cfg.OutputPath(), name)
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}
