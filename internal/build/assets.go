package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/webforge/webforge/internal/sync"
	"github.com/webforge/webforge/internal/utils"
)

// Assets copies everything matched by the asset globs into the output dir,
// preserving relative paths and modification times. Exclusion patterns in
// the glob set always win over inclusions.
func (b *Builder) Assets(ctx context.Context) error {
	assetsDir := filepath.Join(b.cfg.SourcePath(), "assets")
	manifest, err := sync.BuildManifest(b.cfg.ProjectDir, b.cfg.Globs.Assets, assetsDir)
	if err != nil {
		return err
	}
	if len(manifest.Failures) > 0 {
		f := manifest.Failures[0]
		return fmt.Errorf("enumerate assets: %w", f.Err)
	}

	outDir := b.cfg.OutputPath()
	for _, entry := range manifest.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		dst := filepath.Join(outDir, filepath.FromSlash(entry.RelPath))
		if err := utils.CopyFile(entry.AbsPath, dst); err != nil {
			return fmt.Errorf("copy %s: %w", entry.RelPath, err)
		}
	}

	slog.Info("assets", "copied", len(manifest.Entries))
	return nil
}
