// Package sync implements the conditional remote sync: it enumerates local
// files from a glob set, compares each against its remote counterpart by
// modification time, and uploads only the stale ones with bounded
// concurrency. Per-file failures are aggregated into the session report
// instead of aborting the batch.
package sync

import (
	"time"
)

// ManifestEntry is one local file matched by the glob set.
type ManifestEntry struct {
	RelPath string
	AbsPath string
	Size    int64
	ModTime time.Time
}

// RemoteState is what the destination knows about one relative path.
// A zero Exists means the file is absent remotely.
type RemoteState struct {
	RelPath string
	Exists  bool
	ModTime time.Time
}

type Action string

const (
	ActionUpload Action = "upload"
	ActionSkip   Action = "skip"
)

// Decision is the per-file outcome of the staleness policy.
type Decision struct {
	Entry  *ManifestEntry
	Action Action
}

// Failure records one file that could not be processed.
type Failure struct {
	RelPath string
	Err     error
}

// Report is the aggregate result of one sync session.
type Report struct {
	Matched  int
	Uploaded int
	Skipped  int
	Failures []Failure
	Bytes    int64
	Took     time.Duration
}

func (r *Report) Failed() int {
	return len(r.Failures)
}

// Ok reports whether every matched file was uploaded or skipped cleanly.
func (r *Report) Ok() bool {
	return len(r.Failures) == 0
}
