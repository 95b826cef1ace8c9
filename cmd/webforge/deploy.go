package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/webforge/webforge/internal/config"
	"github.com/webforge/webforge/internal/sync"
	"github.com/webforge/webforge/internal/sync/sftp"
	"github.com/webforge/webforge/internal/utils"
)

func init() {
	rootCmd.AddCommand(newDeployCmd())
}

// dialTransport establishes the remote session. Stubbed in tests.
var dialTransport = func(ctx context.Context, target *config.DeployTarget) (sync.Transport, error) {
	return sftp.Dial(ctx, target.Host, target.Port, target.User, target.Password)
}

func newDeployCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "deploy [staging|production]",
		Short:     "Upload the compiled output to a remote host",
		Long:      "Uploads files from the output directory that are newer than their remote counterpart, preserving relative paths. Credentials come from WEBFORGE_<TARGET>_* environment variables.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"staging", "production"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			target, err := cfg.Target(args[0])
			if err != nil {
				return err
			}

			// The output dir may live outside the project dir, so the
			// manifest is rooted at the output dir itself.
			outDir := cfg.OutputPath()
			if !utils.DirExists(outDir) {
				return fmt.Errorf("nothing to deploy: %s does not exist, run build first", outDir)
			}
			manifest, err := sync.BuildManifest(outDir, []string{"**"}, outDir)
			if err != nil {
				return err
			}
			if len(manifest.Entries) == 0 && len(manifest.Failures) == 0 {
				return fmt.Errorf("nothing to deploy: %s is empty, run build first", outDir)
			}

			transport, err := dialTransport(cmd.Context(), target)
			if err != nil {
				return err
			}
			defer transport.Close()

			syncer := sync.NewSyncer(transport, target.RemoteRoot,
				sync.WithConcurrency(target.Concurrency),
				sync.WithFileTimeout(target.FileTimeout),
			)

			report, err := syncer.Sync(cmd.Context(), manifest)
			if err != nil {
				return err
			}

			printReport(target.Name, report)
			if !report.Ok() {
				return fmt.Errorf("deploy %s: %d of %d files failed", target.Name, report.Failed(), report.Matched)
			}
			return nil
		},
	}
}

func printReport(target string, report *sync.Report) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Deploy %s: %d matched, %s uploaded (%s), %d skipped, %d failed in %s\n",
		cyan.Render(target),
		report.Matched,
		green.Render(fmt.Sprintf("%d", report.Uploaded)),
		humanize.Bytes(uint64(report.Bytes)),
		report.Skipped,
		report.Failed(),
		gray.Render(report.Took.Round(time.Millisecond).String()),
	))

	for _, f := range report.Failures {
		sb.WriteString(fmt.Sprintf("  %s %s: %v\n", errText.Render("FAILED"), f.RelPath, f.Err))
	}
	fmt.Print(sb.String())
}
