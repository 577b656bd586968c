package sshcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Host is one switch reachable over SSH.
type Host struct {
	Hostname string `yaml:"hostname"`
	Address  string `yaml:"address"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Dialer opens CLI connections to switches.
type Dialer interface {
	Dial(ctx context.Context, h Host) (Conn, error)
}

// Conn is an open CLI connection. Each Run starts a fresh interactive
// shell, sends cmds followed by "exit", and returns everything the switch
// printed.
type Conn interface {
	Run(ctx context.Context, cmds ...string) (string, error)
	Close() error
}

// Compile-time interface guard.
var _ Dialer = (*SSHDialer)(nil)

// Key exchanges and ciphers still found on older switch firmware. They are
// appended to the library defaults only when legacy algorithms are enabled.
var (
	legacyKeyExchanges = []string{
		"diffie-hellman-group14-sha1",
		"diffie-hellman-group-exchange-sha1",
		"diffie-hellman-group1-sha1",
	}
	legacyCiphers = []string{
		"aes128-cbc",
		"3des-cbc",
	}
)

// SSHDialer dials switches with golang.org/x/crypto/ssh using password
// authentication.
type SSHDialer struct {
	port        int
	timeout     time.Duration
	hostKeys    ssh.HostKeyCallback
	algorithms  ssh.Config
	defaultUser string
	defaultPass string
}

// NewSSHDialer builds a dialer from cfg. When cfg.KnownHosts is empty
// host keys are not verified.
func NewSSHDialer(cfg Config) (*SSHDialer, error) {
	cfg = cfg.withDefaults()
	d := &SSHDialer{
		port:        cfg.Port,
		timeout:     cfg.DialTimeout,
		hostKeys:    ssh.InsecureIgnoreHostKey(), //nolint:gosec // G106: switches rarely have managed host keys; known_hosts opts in
		defaultUser: cfg.Username,
		defaultPass: cfg.Password,
	}
	if cfg.KnownHosts != "" {
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		d.hostKeys = cb
	}
	if cfg.LegacyAlgorithms {
		algs := ssh.SupportedAlgorithms()
		d.algorithms.KeyExchanges = append(algs.KeyExchanges, legacyKeyExchanges...)
		d.algorithms.Ciphers = append(algs.Ciphers, legacyCiphers...)
	}
	return d, nil
}

func (d *SSHDialer) addr(h Host) string {
	if _, _, err := net.SplitHostPort(h.Address); err == nil {
		return h.Address
	}
	port := h.Port
	if port == 0 {
		port = d.port
	}
	return net.JoinHostPort(h.Address, strconv.Itoa(port))
}

// Dial implements Dialer.
func (d *SSHDialer) Dial(ctx context.Context, h Host) (Conn, error) {
	user, pass := h.Username, h.Password
	if user == "" {
		user, pass = d.defaultUser, d.defaultPass
	}
	cfg := &ssh.ClientConfig{
		Config:          d.algorithms,
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(pass)},
		HostKeyCallback: d.hostKeys,
		Timeout:         d.timeout,
	}

	addr := d.addr(h)
	dialCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	var nd net.Dialer
	nc, err := nd.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := dialCtx.Deadline(); ok {
		_ = nc.SetDeadline(deadline)
	}
	sc, chans, reqs, err := ssh.NewClientConn(nc, addr, cfg)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ssh handshake %s: %w", addr, err)
	}
	_ = nc.SetDeadline(time.Time{})
	return &sshConn{client: ssh.NewClient(sc, chans, reqs)}, nil
}

type sshConn struct {
	client *ssh.Client
}

func (c *sshConn) Close() error {
	return c.client.Close()
}

func (c *sshConn) Run(ctx context.Context, cmds ...string) (string, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	// Tall and wide so output is not paged or wrapped before the pager
	// command runs.
	if err := sess.RequestPty("vt100", 1000, 512, modes); err != nil {
		return "", fmt.Errorf("request pty: %w", err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("stdin pipe: %w", err)
	}
	var out bytes.Buffer
	sess.Stdout = &out
	if err := sess.Shell(); err != nil {
		return "", fmt.Errorf("start shell: %w", err)
	}

	for _, cmd := range cmds {
		if _, err := io.WriteString(stdin, cmd+"\n"); err != nil {
			return "", fmt.Errorf("send %q: %w", cmd, err)
		}
	}
	if _, err := io.WriteString(stdin, "exit\n"); err != nil {
		return "", fmt.Errorf("send exit: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		sess.Close()
		return "", ctx.Err()
	}

	var missing *ssh.ExitMissingError
	var exit *ssh.ExitError
	switch {
	case err == nil, errors.As(err, &missing), errors.Is(err, io.EOF):
	case errors.As(err, &exit):
		// Non-zero status after "exit" still carries the full output.
	default:
		return out.String(), fmt.Errorf("session: %w", err)
	}
	return out.String(), nil
}
