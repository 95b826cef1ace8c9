package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/webforge/webforge/internal/sync"
	"github.com/webforge/webforge/internal/utils"
)

// Images optimizes every matched image into <output>/img, preserving
// relative paths. A file whose output already exists and is not older than
// the source is left alone, so repeated builds only touch changed images.
func (b *Builder) Images(ctx context.Context) error {
	outDir, err := b.outputSubdir("img")
	if err != nil {
		return err
	}

	imagesDir := filepath.Join(b.cfg.SourcePath(), "images")
	manifest, err := sync.BuildManifest(b.cfg.ProjectDir, b.cfg.Globs.Images, imagesDir)
	if err != nil {
		return err
	}
	if len(manifest.Failures) > 0 {
		f := manifest.Failures[0]
		return fmt.Errorf("enumerate images: %w", f.Err)
	}

	optimized := 0
	for _, entry := range manifest.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		outPath := filepath.Join(outDir, filepath.FromSlash(entry.RelPath))
		if fresh(outPath, entry.ModTime) {
			continue
		}
		if err := utils.EnsureParent(outPath); err != nil {
			return err
		}

		if err := b.runTool(ctx, b.cfg.Tools.Images, entry.AbsPath, "-o", outPath); err != nil {
			return fmt.Errorf("optimize %s: %w", entry.RelPath, err)
		}
		optimized++
	}

	slog.Info("images", "matched", len(manifest.Entries), "optimized", optimized, "unchanged", len(manifest.Entries)-optimized)
	return nil
}

// fresh reports whether the output file exists and is at least as new as
// the source.
func fresh(outPath string, srcModTime time.Time) bool {
	info, err := os.Stat(outPath)
	if err != nil {
		return false
	}
	return !info.ModTime().Before(srcModTime)
}
