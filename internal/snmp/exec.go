package snmp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ Gateway = (*Exec)(nil)

// Exec walks devices by running the net-snmp snmpwalk binary.
type Exec struct {
	path   string
	opts   Options
	logger *zap.Logger
}

// NewExec creates a gateway that runs the snmpwalk binary at path
// ("snmpwalk" resolves through $PATH).
func NewExec(path string, opts Options, logger *zap.Logger) *Exec {
	if path == "" {
		path = "snmpwalk"
	}
	if opts.Version == "" {
		opts.Version = "2c"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exec{path: path, opts: opts, logger: logger}
}

func (e *Exec) args(t Target, oid string) []string {
	args := []string{"-v" + e.opts.Version, "-c", t.Credential, "-On"}
	if e.opts.Timeout > 0 {
		secs := int(e.opts.Timeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		args = append(args, "-t", strconv.Itoa(secs))
	}
	if e.opts.Retries >= 0 {
		args = append(args, "-r", strconv.Itoa(e.opts.Retries))
	}
	if e.opts.MaxRepetitions > 0 && e.opts.Version != "1" {
		args = append(args, "-Cr"+strconv.FormatUint(uint64(e.opts.MaxRepetitions), 10))
	}
	addr := t.Address
	if e.opts.Port != 0 && e.opts.Port != 161 && !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, e.opts.Port)
	}
	return append(args, addr, oid)
}

// Walk runs snmpwalk and returns its stdout. A non-zero exit status, or an
// empty stdout accompanied by stderr output, is a failure classified from
// the stderr text.
func (e *Exec) Walk(ctx context.Context, t Target, oid string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.path, e.args(t, oid)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	errText := strings.TrimSpace(stderr.String())
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", &QueryError{Kind: KindOther, Address: t.Address, OID: oid, Err: err}
		}
		if errText != "" {
			err = fmt.Errorf("%w: %s", err, errText)
		}
		return "", &QueryError{Kind: classify(ctx, err, errText), Address: t.Address, OID: oid, Err: err}
	}
	if stdout.Len() == 0 && errText != "" {
		err := errors.New(errText)
		return "", &QueryError{Kind: classify(ctx, err, errText), Address: t.Address, OID: oid, Err: err}
	}

	e.logger.Debug("snmpwalk complete",
		zap.String("address", t.Address),
		zap.String("oid", oid),
		zap.Int("bytes", stdout.Len()),
	)
	return stdout.String(), nil
}
