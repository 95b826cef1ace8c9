package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webforge/webforge/internal/build"
	"github.com/webforge/webforge/internal/devserver"
)

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	var port int

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site locally with live reload",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Port = port
			}

			graph, err := build.New(cfg).Graph()
			if err != nil {
				return err
			}

			srv, err := devserver.New(cfg, graph)
			if err != nil {
				return err
			}

			fmt.Printf("Serving %s at %s\n",
				cyan.Render(cfg.OutputPath()),
				green.Render(fmt.Sprintf("http://localhost:%d", cfg.Port)))
			return srv.Start(cmd.Context())
		},
	}

	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides config)")
	return serveCmd
}
