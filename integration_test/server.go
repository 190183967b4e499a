package integration_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd/server"
)

// TestServer wraps a server instance listening on a random port.
type TestServer struct {
	*server.Server
	tmpDir      string
	sshListener net.Listener
	cancel      context.CancelFunc
	done        chan error
}

// NewTestServer creates a server in a temporary directory with the given
// scripts, keyed by file name, and starts serving SSH.
func NewTestServer(scripts map[string]string) (*TestServer, error) {
	tmpDir, err := os.MkdirTemp("", "juicecmd-integration-*")
	if err != nil {
		return nil, err
	}

	config := server.DefaultConfig()
	config.Dir = tmpDir
	config.SSHAddr = "127.0.0.1:0"
	config.Language = "en"
	config.Console = false

	scriptsDir := filepath.Join(tmpDir, "scripts")
	if err := os.MkdirAll(scriptsDir, 0700); err != nil {
		os.RemoveAll(tmpDir)
		return nil, err
	}
	for name, content := range scripts {
		if err := os.WriteFile(filepath.Join(scriptsDir, name), []byte(content), 0600); err != nil {
			os.RemoveAll(tmpDir)
			return nil, err
		}
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := server.New(ctx, config, log, io.Discard)
	if err != nil {
		cancel()
		os.RemoveAll(tmpDir)
		return nil, err
	}

	sshLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		cancel()
		srv.Close()
		os.RemoveAll(tmpDir)
		return nil, err
	}

	ts := &TestServer{
		Server:      srv,
		tmpDir:      tmpDir,
		sshListener: sshLn,
		cancel:      cancel,
		done:        make(chan error, 1),
	}

	go func() {
		ts.done <- srv.Serve(ctx, sshLn)
	}()

	ready := waitForCondition(5*time.Second, 50*time.Millisecond, func() bool {
		conn, err := net.DialTimeout("tcp", ts.SSHAddr(), 100*time.Millisecond)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	})
	if !ready {
		ts.Close()
		return nil, fmt.Errorf("server did not become ready")
	}

	return ts, nil
}

// Close stops serving and cleans up.
func (ts *TestServer) Close() {
	ts.cancel()
	select {
	case <-ts.done:
	case <-time.After(5 * time.Second):
	}
	ts.Server.Close()
	os.RemoveAll(ts.tmpDir)
}

// SSHAddr returns the SSH address.
func (ts *TestServer) SSHAddr() string {
	return ts.sshListener.Addr().String()
}

// waitForCondition polls until the condition returns true or timeout expires.
func waitForCondition(timeout time.Duration, interval time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return false
}
