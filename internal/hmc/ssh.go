package hmc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHSession is a Session backed by one persistent SSH connection to the
// HMC. Each command runs in its own SSH channel on that connection.
type SSHSession struct {
	host       string
	client     *ssh.Client
	cmdTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// SSHOptions tunes session establishment and per-command behavior.
type SSHOptions struct {
	// ConnectTimeout bounds the TCP dial and handshake.
	ConnectTimeout time.Duration
	// CommandTimeout bounds each command execution. Zero means no bound
	// beyond the caller's context.
	CommandTimeout time.Duration
	// Port defaults to 22.
	Port int
}

// Connect dials the HMC and authenticates. HMC accounts commonly force
// keyboard-interactive, so both password and keyboard-interactive answers
// are offered. Host key verification is skipped; the HMC is addressed by
// operator-supplied hostname inside the management network.
func Connect(ctx context.Context, host string, creds Credentials, opts SSHOptions) (*SSHSession, error) {
	port := opts.Port
	if port == 0 {
		port = 22
	}

	config := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = creds.Password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106
		Timeout:         opts.ConnectTimeout,
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	dialer := net.Dialer{Timeout: opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Host: host, Err: err}
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Host: host, Err: err}
	}

	return &SSHSession{
		host:       host,
		client:     ssh.NewClient(c, chans, reqs),
		cmdTimeout: opts.CommandTimeout,
	}, nil
}

// RunCommand executes an HMC CLI command and captures exit code, stdout and
// stderr. A non-zero exit is reported in the result, not as an error.
func (s *SSHSession) RunCommand(ctx context.Context, argv []string) (CommandResult, error) {
	return s.run(ctx, strings.Join(argv, " "))
}

// RunVIOSCommand executes a command on the VIOS via viosvrcmd.
func (s *SSHSession) RunVIOSCommand(ctx context.Context, managedSystem, vios, command string) (CommandResult, error) {
	return s.run(ctx, VIOSCommand(managedSystem, vios, command))
}

func (s *SSHSession) run(ctx context.Context, command string) (CommandResult, error) {
	if s.cmdTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cmdTimeout)
		defer cancel()
	}

	sess, err := s.client.NewSession()
	if err != nil {
		return CommandResult{}, fmt.Errorf("failed to open channel on %s: %w", s.host, err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	if err := sess.Start(command); err != nil {
		return CommandResult{}, fmt.Errorf("failed to start command on %s: %w", s.host, err)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	select {
	case <-ctx.Done():
		_ = sess.Close()
		return CommandResult{}, fmt.Errorf("command aborted on %s: %w", s.host, ctx.Err())
	case err = <-done:
	}

	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}
		return result, fmt.Errorf("command did not complete on %s: %w", s.host, err)
	}
	return result, nil
}

// Close releases the SSH connection. Safe to call more than once.
func (s *SSHSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}
