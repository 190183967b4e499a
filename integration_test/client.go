package integration_test

import (
	"fmt"
	"io"
	"strings"
	"time"

	cryptossh "golang.org/x/crypto/ssh"
)

const defaultWaitTimeout = 5 * time.Second

// terminalClient wraps an SSH session for testing.
type terminalClient struct {
	conn    *cryptossh.Client
	session *cryptossh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
	readCh  chan readResult
	done    chan struct{}
}

// readResult holds data from the background reader goroutine.
type readResult struct {
	data []byte
	err  error
}

func newTerminalClient(addr string) (*terminalClient, error) {
	config := &cryptossh.ClientConfig{
		User: "test",
		Auth: []cryptossh.AuthMethod{cryptossh.Password("ignored")},
		// InsecureIgnoreHostKey is acceptable here because we're connecting to a
		// test server we just started with a freshly generated key.
		HostKeyCallback: cryptossh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	}
	conn, err := cryptossh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}

	session, err := conn.NewSession()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := session.RequestPty("xterm", 24, 80, cryptossh.TerminalModes{}); err != nil {
		session.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to request pty: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	tc := &terminalClient{
		conn:    conn,
		session: session,
		stdin:   stdin,
		stdout:  stdout,
		done:    make(chan struct{}),
	}
	tc.startReader()
	return tc, nil
}

func (tc *terminalClient) sendLine(s string) error {
	if _, err := tc.stdin.Write([]byte(s + "\r")); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// startReader starts a background reader goroutine. Must be called once after creating terminalClient.
func (tc *terminalClient) startReader() {
	tc.readCh = make(chan readResult, 100)
	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := tc.stdout.Read(buf)
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case tc.readCh <- readResult{data: data, err: err}:
			case <-tc.done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
}

// readUntil reads from stdout until the timeout expires or the match function returns true.
// Returns all data read. If match is nil, just reads until timeout.
func (tc *terminalClient) readUntil(timeout time.Duration, match func(string) bool) string {
	var result strings.Builder
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		select {
		case r := <-tc.readCh:
			if r.err != nil {
				return result.String()
			}
			result.Write(r.data)
			if match != nil && match(result.String()) {
				return result.String()
			}
		case <-time.After(remaining):
			return result.String()
		}
	}
	return result.String()
}

// drain reads and discards output for a short time.
func (tc *terminalClient) drain() string {
	return tc.readUntil(200*time.Millisecond, nil)
}

// waitFor reads until the expected string appears or timeout.
func (tc *terminalClient) waitFor(expected string, timeout time.Duration) (string, bool) {
	output := tc.readUntil(timeout, func(s string) bool {
		return strings.Contains(s, expected)
	})
	return output, strings.Contains(output, expected)
}

// expect sends a line and waits for the expected output.
func (tc *terminalClient) expect(line, expected string) (string, error) {
	if err := tc.sendLine(line); err != nil {
		return "", err
	}
	output, ok := tc.waitFor(expected, defaultWaitTimeout)
	if !ok {
		return output, fmt.Errorf("sent %q, got %q, want it to contain %q", line, output, expected)
	}
	return output, nil
}

func (tc *terminalClient) Close() {
	close(tc.done)
	tc.stdin.Close()
	tc.session.Close()
	tc.conn.Close()
}
