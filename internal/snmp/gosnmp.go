package snmp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ Gateway = (*GoSNMP)(nil)

// Options tune the SNMP client.
type Options struct {
	Version        string        // "1" or "2c" (default "2c").
	Port           uint16        // Default port when the address has none (default 161).
	Timeout        time.Duration // Per-request timeout when ctx has no deadline (default 5s).
	Retries        int           // Per-request retries (default 1).
	MaxRepetitions uint32        // GETBULK max-repetitions, 0 for the gosnmp default.
}

// GoSNMP walks devices using github.com/gosnmp/gosnmp.
type GoSNMP struct {
	opts   Options
	logger *zap.Logger
}

// NewGoSNMP creates a gosnmp-backed gateway.
func NewGoSNMP(opts Options, logger *zap.Logger) *GoSNMP {
	if opts.Version == "" {
		opts.Version = "2c"
	}
	if opts.Port == 0 {
		opts.Port = 161
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoSNMP{opts: opts, logger: logger}
}

// newClient creates a configured GoSNMP instance for the target.
// The returned client is not yet connected; the caller must call Connect().
func (g *GoSNMP) newClient(ctx context.Context, t Target) (*gosnmp.GoSNMP, error) {
	host, portStr, err := net.SplitHostPort(t.Address)
	if err != nil {
		host = t.Address
		portStr = strconv.Itoa(int(g.opts.Port))
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	timeout := g.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}

	client := &gosnmp.GoSNMP{
		Target:    host,
		Port:      uint16(port),
		Community: t.Credential,
		Timeout:   timeout,
		Retries:   g.opts.Retries,
		Context:   ctx,
	}
	if g.opts.MaxRepetitions > 0 {
		client.MaxRepetitions = g.opts.MaxRepetitions
	}

	switch g.opts.Version {
	case "1":
		client.Version = gosnmp.Version1
	case "2c", "2":
		client.Version = gosnmp.Version2c
	default:
		return nil, fmt.Errorf("unsupported SNMP version %q", g.opts.Version)
	}

	return client, nil
}

// Walk retrieves the subtree under oid and renders it as net-snmp numeric
// lines. SNMPv2c uses GETBULK; SNMPv1 falls back to GETNEXT.
func (g *GoSNMP) Walk(ctx context.Context, t Target, oid string) (string, error) {
	client, err := g.newClient(ctx, t)
	if err != nil {
		return "", &QueryError{Kind: KindOther, Address: t.Address, OID: oid, Err: err}
	}

	if err := client.Connect(); err != nil {
		return "", &QueryError{Kind: classify(ctx, err, ""), Address: t.Address, OID: oid, Err: err}
	}
	defer func() { _ = client.Conn.Close() }()

	var pdus []gosnmp.SnmpPDU
	if client.Version == gosnmp.Version1 {
		pdus, err = client.WalkAll(oid)
	} else {
		pdus, err = client.BulkWalkAll(oid)
	}
	if err != nil {
		return "", &QueryError{Kind: classify(ctx, err, ""), Address: t.Address, OID: oid, Err: err}
	}

	var sb strings.Builder
	for _, pdu := range pdus {
		sb.WriteString(FormatPDU(pdu))
		sb.WriteByte('\n')
	}

	g.logger.Debug("SNMP walk complete",
		zap.String("address", t.Address),
		zap.String("oid", oid),
		zap.Int("pdus", len(pdus)),
	)

	return sb.String(), nil
}
