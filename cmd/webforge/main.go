package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/webforge/webforge/internal/config"
	"github.com/webforge/webforge/internal/version"
)

var (
	projectDir string
	verbose    bool
)

var (
	errText = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var rootCmd = &cobra.Command{
	Use:     "webforge",
	Short:   "Build and deploy the website",
	Version: version.Detailed(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", ".", "Project directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(handler))
}

func loadConfig() (*config.Config, error) {
	return config.Load(projectDir)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", errText.Render("ERROR"), err)
	os.Exit(1)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fatal(err)
	}
}
