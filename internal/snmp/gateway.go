// Package snmp fetches raw walk output from switches. Two gateways are
// provided: GoSNMP speaks SNMP directly, Exec shells out to net-snmp's
// snmpwalk. Both return text in the net-snmp numeric line format that the
// walk package parses.
package snmp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Target is the device a walk is issued against. Address may carry a
// ":port" suffix; Credential is the community string.
type Target struct {
	Address    string
	Credential string
}

// Gateway walks one OID subtree on a device. The context deadline bounds
// the whole walk.
type Gateway interface {
	Walk(ctx context.Context, target Target, oid string) (string, error)
}

// Kind classifies a failed walk.
type Kind int

const (
	KindOther Kind = iota
	KindTimeout
	KindUnreachable
	KindAuthFailure
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindAuthFailure:
		return "auth_failure"
	default:
		return "other"
	}
}

// Sentinels matched by errors.Is against a *QueryError of the same kind.
var (
	ErrTimeout     = errors.New("snmp timeout")
	ErrUnreachable = errors.New("snmp target unreachable")
	ErrAuthFailure = errors.New("snmp authentication failure")
)

// QueryError reports a failed walk.
type QueryError struct {
	Kind    Kind
	Address string
	OID     string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("walk %s on %s: %s: %v", e.OID, e.Address, e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is lets errors.Is match the kind sentinels.
func (e *QueryError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	case ErrAuthFailure:
		return e.Kind == KindAuthFailure
	}
	return false
}

// KindOf returns the Kind of err, or KindOther when err is not a
// *QueryError.
func KindOf(err error) Kind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindOther
}

var (
	timeoutMarkers = []string{
		"request timeout",
		"timeout: no response",
		"i/o timeout",
	}
	unreachableMarkers = []string{
		"connection refused",
		"no route to host",
		"network is unreachable",
		"host is down",
		"unknown host",
		"no such host",
	}
	authMarkers = []string{
		"authorization",
		"authentication",
		"unknown user",
		"unknown community",
	}
)

// classify maps a transport error (or error text from snmpwalk) to a Kind.
func classify(ctx context.Context, err error, text string) Kind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindUnreachable
	}

	msg := strings.ToLower(text)
	if err != nil {
		msg += " " + strings.ToLower(err.Error())
	}
	for _, m := range authMarkers {
		if strings.Contains(msg, m) {
			return KindAuthFailure
		}
	}
	for _, m := range timeoutMarkers {
		if strings.Contains(msg, m) {
			return KindTimeout
		}
	}
	for _, m := range unreachableMarkers {
		if strings.Contains(msg, m) {
			return KindUnreachable
		}
	}
	return KindOther
}
