package sync

import "fmt"

// ConnectionError means the remote session could not be established or
// authenticated. It is fatal and aborts the sync before any transfer.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TransferError means a single file failed to upload. It is recorded in the
// session report and processing continues.
type TransferError struct {
	RelPath string
	Err     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s: %v", e.RelPath, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// PathResolutionError means a matched local file could not be mapped to a
// relative path under the base path. Fatal for that file only.
type PathResolutionError struct {
	Path   string
	Reason string
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %s", e.Path, e.Reason)
}
