// Package pipeline runs named build tasks in dependency order. Tasks declare
// their dependencies by name and are executed as a directed acyclic graph,
// resolved topologically per invocation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	ErrTaskExists  = errors.New("task already registered")
	ErrUnknownTask = errors.New("unknown task")
	ErrCyclicGraph = errors.New("cyclic task dependency")
)

// RunFunc is the body of a task.
type RunFunc func(ctx context.Context) error

type Task struct {
	Name string
	Deps []string
	Run  RunFunc
}

type Graph struct {
	tasks map[string]*Task
	order []string
}

func NewGraph() *Graph {
	return &Graph{tasks: make(map[string]*Task)}
}

// Add registers a task. Dependencies may be registered in any order, they
// are only resolved at Run time.
func (g *Graph) Add(name string, run RunFunc, deps ...string) error {
	if _, ok := g.tasks[name]; ok {
		return fmt.Errorf("%w: %s", ErrTaskExists, name)
	}
	g.tasks[name] = &Task{Name: name, Deps: deps, Run: run}
	g.order = append(g.order, name)
	return nil
}

// Tasks returns the registered task names in registration order.
func (g *Graph) Tasks() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Resolve returns the target and its transitive dependencies in an order
// where every task appears after all of its dependencies.
func (g *Graph) Resolve(target string) ([]*Task, error) {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int, len(g.tasks))
	var order []*Task

	var visit func(name string) error
	visit = func(name string) error {
		task, ok := g.tasks[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTask, name)
		}

		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrCyclicGraph, name)
		}

		state[name] = visiting
		for _, dep := range task.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, task)
		return nil
	}

	if err := visit(target); err != nil {
		return nil, err
	}
	return order, nil
}

// Run executes the target task and its dependencies sequentially in
// topological order. The first task failure aborts the run.
func (g *Graph) Run(ctx context.Context, target string) error {
	order, err := g.Resolve(target)
	if err != nil {
		return err
	}

	for _, task := range order {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tstart := time.Now()
		slog.Info("task start", "task", task.Name)
		if err := task.Run(ctx); err != nil {
			slog.Error("task failed", "task", task.Name, "took", time.Since(tstart), "error", err)
			return fmt.Errorf("task %s: %w", task.Name, err)
		}
		slog.Info("task done", "task", task.Name, "took", time.Since(tstart))
	}
	return nil
}
