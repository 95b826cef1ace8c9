package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 10
	DefaultFileTimeout = 5 * time.Minute
)

type Syncer struct {
	transport   Transport
	remoteRoot  string
	concurrency int
	fileTimeout time.Duration

	mu      sync.Mutex
	madeDir map[string]struct{}
}

type SyncerOption func(*Syncer)

func WithConcurrency(n int) SyncerOption {
	return func(s *Syncer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithFileTimeout(d time.Duration) SyncerOption {
	return func(s *Syncer) {
		if d > 0 {
			s.fileTimeout = d
		}
	}
}

// NewSyncer wraps an established transport session. Connection and
// authentication failures belong to the transport's dial step, so by the
// time a Syncer exists the fatal ConnectionError cases are already ruled
// out.
func NewSyncer(transport Transport, remoteRoot string, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		transport:   transport,
		remoteRoot:  remoteRoot,
		concurrency: DefaultConcurrency,
		fileTimeout: DefaultFileTimeout,
		madeDir:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync decides and executes transfers for every manifest entry. Decisions
// are made sequentially against fresh remote state; uploads then run with
// at most the configured number in flight. A single file's failure is
// recorded and the rest of the batch continues. On cancellation no new
// uploads are scheduled and in-flight ones are aborted through their
// context.
func (s *Syncer) Sync(ctx context.Context, manifest *Manifest) (*Report, error) {
	tstart := time.Now()

	report := &Report{
		Matched:  len(manifest.Entries) + len(manifest.Failures),
		Failures: append([]Failure(nil), manifest.Failures...),
	}

	if err := s.transport.MkdirAll(ctx, s.remoteRoot); err != nil {
		return nil, fmt.Errorf("create remote root %s: %w", s.remoteRoot, err)
	}

	var uploads []*ManifestEntry
	for _, entry := range manifest.Entries {
		remote, err := s.remoteState(ctx, entry.RelPath)
		if err != nil {
			// no transfer was attempted, record the stat cause as-is
			report.Failures = append(report.Failures, Failure{RelPath: entry.RelPath, Err: err})
			continue
		}

		decision := Decide(entry, remote)
		if decision.Action == ActionSkip {
			report.Skipped++
			slog.Debug("sync", "op", ActionSkip, "path", entry.RelPath)
			continue
		}
		uploads = append(uploads, entry)
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)

	for _, entry := range uploads {
		if egCtx.Err() != nil {
			mu.Lock()
			report.Failures = append(report.Failures, Failure{RelPath: entry.RelPath, Err: egCtx.Err()})
			mu.Unlock()
			continue
		}

		eg.Go(func() error {
			if err := s.upload(egCtx, entry); err != nil {
				slog.Error("sync", "op", ActionUpload, "path", entry.RelPath, "error", err)
				mu.Lock()
				report.Failures = append(report.Failures, Failure{RelPath: entry.RelPath, Err: err})
				mu.Unlock()
				return nil
			}

			slog.Info("sync", "op", ActionUpload, "path", entry.RelPath, "size", entry.Size)
			mu.Lock()
			report.Uploaded++
			report.Bytes += entry.Size
			mu.Unlock()
			return nil
		})
	}

	// workers never return errors, failures are aggregated per file
	_ = eg.Wait()

	report.Took = time.Since(tstart)
	return report, ctx.Err()
}

func (s *Syncer) remoteState(ctx context.Context, relPath string) (*RemoteState, error) {
	mtime, exists, err := s.transport.Stat(ctx, s.remotePath(relPath))
	if err != nil {
		return nil, err
	}
	return &RemoteState{RelPath: relPath, Exists: exists, ModTime: mtime}, nil
}

func (s *Syncer) upload(ctx context.Context, entry *ManifestEntry) error {
	ctx, cancel := context.WithTimeout(ctx, s.fileTimeout)
	defer cancel()

	remotePath := s.remotePath(entry.RelPath)
	if err := s.ensureRemoteDir(ctx, path.Dir(remotePath)); err != nil {
		return &TransferError{RelPath: entry.RelPath, Err: err}
	}

	file, err := os.Open(entry.AbsPath)
	if err != nil {
		return &TransferError{RelPath: entry.RelPath, Err: err}
	}
	defer file.Close()

	if err := s.transport.Upload(ctx, remotePath, file, entry.ModTime); err != nil {
		return &TransferError{RelPath: entry.RelPath, Err: err}
	}
	return nil
}

// ensureRemoteDir creates a remote directory once per session. The transfer
// client's mkdir is idempotent, the cache just saves round-trips.
func (s *Syncer) ensureRemoteDir(ctx context.Context, dir string) error {
	s.mu.Lock()
	_, ok := s.madeDir[dir]
	s.mu.Unlock()
	if ok {
		return nil
	}

	if err := s.transport.MkdirAll(ctx, dir); err != nil {
		return err
	}

	s.mu.Lock()
	s.madeDir[dir] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *Syncer) remotePath(relPath string) string {
	return path.Join(s.remoteRoot, relPath)
}
