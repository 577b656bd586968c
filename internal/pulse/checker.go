// Package pulse checks whether a switch answers ICMP echo before it is
// polled over SNMP.
package pulse

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// CheckResult is the outcome of one reachability check.
type CheckResult struct {
	Success      bool
	LatencyMs    float64
	PacketLoss   float64 // 0.0 - 1.0
	ErrorMessage string
	CheckedAt    time.Time
}

// Checker executes a reachability check against a target and returns the
// result. A failed check is reported in CheckResult, not as an error.
type Checker interface {
	Check(ctx context.Context, target string) (*CheckResult, error)
}

// Compile-time interface guard.
var _ Checker = (*ICMPChecker)(nil)

// ICMPChecker pings targets using ICMP via pro-bing.
type ICMPChecker struct {
	timeout time.Duration
	count   int
}

// NewICMPChecker creates a new ICMP checker with the given timeout and ping count.
func NewICMPChecker(timeout time.Duration, count int) *ICMPChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if count <= 0 {
		count = 1
	}
	return &ICMPChecker{
		timeout: timeout,
		count:   count,
	}
}

// hostOnly strips an optional ":port" from an SNMP address.
func hostOnly(target string) string {
	if host, _, err := net.SplitHostPort(target); err == nil {
		return host
	}
	return target
}

// Check pings the target and returns the result.
func (c *ICMPChecker) Check(ctx context.Context, target string) (*CheckResult, error) {
	pinger, err := probing.NewPinger(hostOnly(target))
	if err != nil {
		return nil, fmt.Errorf("create pinger: %w", err)
	}

	pinger.Count = c.count
	pinger.Timeout = c.timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case runErr := <-done:
		stats := pinger.Statistics()
		result := &CheckResult{
			CheckedAt: time.Now().UTC(),
		}

		if runErr != nil {
			result.Success = false
			result.ErrorMessage = runErr.Error()
			result.PacketLoss = 1.0
			return result, nil
		}

		result.LatencyMs = float64(stats.AvgRtt) / float64(time.Millisecond)
		result.PacketLoss = stats.PacketLoss / 100.0 // pro-bing returns 0-100
		result.Success = stats.PacketsRecv > 0

		if !result.Success {
			result.ErrorMessage = "all packets lost"
		}

		return result, nil

	case <-ctx.Done():
		pinger.Stop()
		return &CheckResult{
			Success:      false,
			PacketLoss:   1.0,
			ErrorMessage: "check cancelled",
			CheckedAt:    time.Now().UTC(),
		}, nil
	}
}

// Reachable runs c against target and reports whether the device answered.
// The returned reason is empty when it did.
func Reachable(ctx context.Context, c Checker, target string) (bool, string) {
	res, err := c.Check(ctx, target)
	if err != nil {
		return false, err.Error()
	}
	if res == nil {
		return false, "no check result"
	}
	if !res.Success {
		if res.ErrorMessage == "" {
			return false, "unreachable"
		}
		return false, res.ErrorMessage
	}
	return true, ""
}
