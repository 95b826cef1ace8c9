// Package sftp is the remote file transfer client used by deploys. It holds
// one SSH connection and multiplexes concurrent transfers over it, which is
// what bounds the host-side cost to a single session regardless of the
// upload concurrency.
package sftp

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/webforge/webforge/internal/sync"
)

const dialTimeout = 30 * time.Second

type Client struct {
	conn *ssh.Client
	sftp *sftp.Client
}

// Dial establishes and authenticates the session. Any failure here is a
// sync.ConnectionError, which the caller treats as fatal before any
// transfer begins.
func Dial(ctx context.Context, host string, port int, user, password string) (*Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	cfg := &ssh.ClientConfig{
		User:    user,
		Auth:    []ssh.AuthMethod{ssh.Password(password)},
		Timeout: dialTimeout,
		// deploy hosts are operator-configured, not discovered
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &sync.ConnectionError{Host: addr, Err: err}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		netConn.Close()
		return nil, &sync.ConnectionError{Host: addr, Err: err}
	}

	conn := ssh.NewClient(sshConn, chans, reqs)
	sftpClient, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, &sync.ConnectionError{Host: addr, Err: err}
	}

	return &Client{conn: conn, sftp: sftpClient}, nil
}

func (c *Client) Stat(ctx context.Context, path string) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}

	info, err := c.sftp.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime(), true, nil
}

func (c *Client) MkdirAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.sftp.MkdirAll(path)
}

// Upload streams r to path and mirrors the local modification time onto the
// remote file. The mtime stamp is what lets the next run's staleness check
// skip this file.
func (c *Client) Upload(ctx context.Context, path string, r io.Reader, mtime time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file, err := c.sftp.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(file, newContextReader(ctx, r)); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return c.sftp.Chtimes(path, mtime, mtime)
}

func (c *Client) Close() error {
	if err := c.sftp.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}

// contextReader aborts an in-flight copy when its context is cancelled or
// the per-file timeout expires.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func newContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &contextReader{ctx: ctx, r: r}
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
