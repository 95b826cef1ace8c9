package sync

import (
	"context"
	"io"
	"time"
)

// Transport is the remote file transfer client the syncer drives. It must
// be safe for concurrent use up to the configured concurrency limit.
type Transport interface {
	// Stat returns the remote file's modification time. A false exists
	// with a nil error means the path is absent remotely.
	Stat(ctx context.Context, path string) (mtime time.Time, exists bool, err error)

	// MkdirAll creates the remote directory and any missing parents.
	MkdirAll(ctx context.Context, path string) error

	// Upload streams r to the remote path and stamps it with mtime.
	Upload(ctx context.Context, path string, r io.Reader, mtime time.Time) error

	Close() error
}
