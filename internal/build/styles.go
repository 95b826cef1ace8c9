package build

import (
	"context"
	"fmt"
	"path/filepath"
)

// Styles compiles the stylesheet tree into <output>/css. Compilation is the
// style tool's job; this task only wires directories.
func (b *Builder) Styles(ctx context.Context) error {
	outDir, err := b.outputSubdir("css")
	if err != nil {
		return err
	}

	srcDir := filepath.Join(b.cfg.SourcePath(), "styles")
	return b.runTool(ctx, b.cfg.Tools.Styles,
		fmt.Sprintf("%s:%s", srcDir, outDir),
		"--style=compressed",
		"--no-source-map",
	)
}
