package sync

import "time"

// Decide applies the staleness policy: upload when the file is absent
// remotely or the remote copy is strictly older than the local one.
// Times are compared at second granularity since that is all the transfer
// protocol preserves; anything not strictly newer is a skip, which keeps
// back-to-back runs idempotent.
func Decide(entry *ManifestEntry, remote *RemoteState) Decision {
	if remote == nil || !remote.Exists {
		return Decision{Entry: entry, Action: ActionUpload}
	}

	local := entry.ModTime.Truncate(time.Second)
	if local.After(remote.ModTime.Truncate(time.Second)) {
		return Decision{Entry: entry, Action: ActionUpload}
	}
	return Decision{Entry: entry, Action: ActionSkip}
}
