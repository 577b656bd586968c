package pulse

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockChecker is a configurable mock implementation of the Checker interface.
type mockChecker struct {
	result     *CheckResult
	err        error
	delay      time.Duration
	targetWant string
}

func newMockChecker(result *CheckResult, err error) *mockChecker {
	return &mockChecker{
		result: result,
		err:    err,
	}
}

// withDelay configures the mock to sleep for the given duration before returning.
func (m *mockChecker) withDelay(d time.Duration) *mockChecker {
	m.delay = d
	return m
}

// withTargetValidation rejects targets other than target.
func (m *mockChecker) withTargetValidation(target string) *mockChecker {
	m.targetWant = target
	return m
}

func (m *mockChecker) Check(ctx context.Context, target string) (*CheckResult, error) {
	if m.targetWant != "" && target != m.targetWant {
		return nil, errors.New("unexpected target")
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return &CheckResult{
				Success:      false,
				PacketLoss:   1.0,
				ErrorMessage: "check cancelled",
				CheckedAt:    time.Now().UTC(),
			}, nil
		}
	}

	return m.result, m.err
}

// Compile-time interface guard.
var _ Checker = (*mockChecker)(nil)

func TestNewICMPChecker(t *testing.T) {
	tests := []struct {
		name        string
		timeout     time.Duration
		count       int
		wantTimeout time.Duration
		wantCount   int
	}{
		{
			name:        "explicit values",
			timeout:     5 * time.Second,
			count:       3,
			wantTimeout: 5 * time.Second,
			wantCount:   3,
		},
		{
			name:        "short timeout",
			timeout:     1 * time.Second,
			count:       1,
			wantTimeout: 1 * time.Second,
			wantCount:   1,
		},
		{
			name:        "zero values fall back to defaults",
			timeout:     0,
			count:       0,
			wantTimeout: 2 * time.Second,
			wantCount:   1,
		},
		{
			name:        "negative values fall back to defaults",
			timeout:     -time.Second,
			count:       -4,
			wantTimeout: 2 * time.Second,
			wantCount:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewICMPChecker(tt.timeout, tt.count)

			if checker.timeout != tt.wantTimeout {
				t.Errorf("timeout = %v, want %v", checker.timeout, tt.wantTimeout)
			}

			if checker.count != tt.wantCount {
				t.Errorf("count = %v, want %v", checker.count, tt.wantCount)
			}
		})
	}
}

func TestHostOnly(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"10.0.0.1", "10.0.0.1"},
		{"10.0.0.1:161", "10.0.0.1"},
		{"core-sw-01.example.net:1161", "core-sw-01.example.net"},
		{"[2001:db8::1]:161", "2001:db8::1"},
		{"2001:db8::1", "2001:db8::1"},
	}
	for _, tt := range tests {
		if got := hostOnly(tt.in); got != tt.want {
			t.Errorf("hostOnly(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReachable(t *testing.T) {
	tests := []struct {
		name       string
		checker    Checker
		wantOK     bool
		wantReason string
	}{
		{
			name:    "answered",
			checker: newMockChecker(&CheckResult{Success: true, LatencyMs: 1.5}, nil),
			wantOK:  true,
		},
		{
			name:       "all packets lost",
			checker:    newMockChecker(&CheckResult{PacketLoss: 1.0, ErrorMessage: "all packets lost"}, nil),
			wantReason: "all packets lost",
		},
		{
			name:       "failure without message",
			checker:    newMockChecker(&CheckResult{}, nil),
			wantReason: "unreachable",
		},
		{
			name:       "checker error",
			checker:    newMockChecker(nil, errors.New("create pinger: no such host")),
			wantReason: "create pinger: no such host",
		},
		{
			name:       "nil result",
			checker:    newMockChecker(nil, nil),
			wantReason: "no check result",
		},
		{
			name:       "wrong target",
			checker:    newMockChecker(&CheckResult{Success: true}, nil).withTargetValidation("10.0.0.9"),
			wantReason: "unexpected target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Reachable(context.Background(), tt.checker, "10.0.0.1")
			if ok != tt.wantOK {
				t.Errorf("Reachable() ok = %v, want %v", ok, tt.wantOK)
			}
			if reason != tt.wantReason {
				t.Errorf("Reachable() reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestReachable_ContextCancelled(t *testing.T) {
	checker := newMockChecker(&CheckResult{Success: true}, nil).withDelay(500 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	ok, reason := Reachable(ctx, checker, "10.0.0.1")
	elapsed := time.Since(start)

	if ok {
		t.Error("Reachable() = true, want false after cancellation")
	}
	if reason != "check cancelled" {
		t.Errorf("reason = %q, want %q", reason, "check cancelled")
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("Reachable() took %v, want < 200ms", elapsed)
	}
}

func TestICMPChecker_InvalidHost(t *testing.T) {
	checker := NewICMPChecker(100*time.Millisecond, 1)
	_, err := checker.Check(context.Background(), "host.invalid:161")
	if err == nil {
		t.Fatal("Check() error = nil, want resolve error")
	}
}
