package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webforge/webforge/internal/build"
	"github.com/webforge/webforge/internal/pipeline"
)

func init() {
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newTaskCmd(build.TaskStyles, "Compile stylesheets"))
	rootCmd.AddCommand(newTaskCmd(build.TaskScripts, "Bundle and minify scripts"))
	rootCmd.AddCommand(newTaskCmd(build.TaskImages, "Optimize images"))
	rootCmd.AddCommand(newTaskCmd(build.TaskAssets, "Copy static assets"))
	rootCmd.AddCommand(newCleanCmd())
}

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Run the full build pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			graph, err := buildGraph()
			if err != nil {
				return err
			}
			return graph.Run(cmd.Context(), build.TaskBuild)
		},
	}
}

func newTaskCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			graph, err := buildGraph()
			if err != nil {
				return err
			}
			return graph.Run(cmd.Context(), name)
		},
	}
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the compiled output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := build.New(cfg).Clean(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", cyan.Render(cfg.OutputPath()))
			return nil
		},
	}
}

func buildGraph() (*pipeline.Graph, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return build.New(cfg).Graph()
}
