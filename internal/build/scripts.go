package build

import (
	"context"
	"path/filepath"

	"github.com/webforge/webforge/internal/utils"
)

// Scripts bundles and minifies the script entry point into <output>/js.
// A project with no scripts dir is fine, the task is a no-op then.
func (b *Builder) Scripts(ctx context.Context) error {
	entry := filepath.Join(b.cfg.SourcePath(), "scripts", "main.js")
	if !utils.FileExists(entry) {
		return nil
	}

	outDir, err := b.outputSubdir("js")
	if err != nil {
		return err
	}

	return b.runTool(ctx, b.cfg.Tools.Scripts,
		entry,
		"--bundle",
		"--minify",
		"--outdir="+outDir,
	)
}
