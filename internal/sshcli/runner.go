// Package sshcli collects MAC address tables by logging into switches over
// SSH and reading the CLI. The switch OS is fingerprinted from its version
// output against a data-driven profile set, which also supplies the pager
// and MAC table commands and the row pattern for parsing.
package sshcli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/HerbHall/switchmap/internal/collector"
	"github.com/HerbHall/switchmap/internal/inventory"
)

// detectCommands are sent blind to an unknown switch. The blank lines
// between them page through long version output.
var detectCommands = []string{
	"show version", "     ",
	"display version", "     ",
	"show system", "     ",
}

// Runner performs SSH collection passes.
type Runner struct {
	cfg       Config
	hosts     []Host
	dialer    Dialer
	profiles  *Profiles
	inventory inventory.Repository
	metrics   *collector.Metrics
	logger    *zap.Logger
	failures  *zap.Logger
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records run metrics into m.
func WithMetrics(m *collector.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithFailureLog sends per-host failures to l in addition to the main log.
func WithFailureLog(l *zap.Logger) Option {
	return func(r *Runner) { r.failures = l }
}

// WithClock overrides the time source used for reports.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner over hosts.
func NewRunner(cfg Config, hosts []Host, d Dialer, profiles *Profiles, inv inventory.Repository, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	r := &Runner{
		cfg:       cfg.withDefaults(),
		hosts:     hosts,
		dialer:    d,
		profiles:  profiles,
		inventory: inv,
		logger:    logger,
		failures:  zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFailureLog opens a JSON logger appending to path.
func NewFailureLog(path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("open failure log: %w", err)
	}
	return l, nil
}

// Run logs into every host, reads its MAC table and upserts the result.
// Per-host failures are reported in the Summary and never abort the run.
func (r *Runner) Run(ctx context.Context) *collector.Summary {
	runID := uuid.NewString()
	started := r.now()
	log := r.logger.With(zap.String("run_id", runID), zap.String("method", "ssh"))
	log.Info("collection started", zap.Int("devices", len(r.hosts)), zap.Int("concurrency", r.cfg.Concurrency))

	reports := make([]collector.DeviceReport, len(r.hosts))
	p := pool.New().WithMaxGoroutines(r.cfg.Concurrency)
	for i, h := range r.hosts {
		p.Go(func() {
			rep := r.collectHost(ctx, log, h)
			r.metrics.ObserveDevice(rep)
			collector.LogReport(log, rep)
			if rep.Status != collector.StatusOK {
				r.failures.Warn("ssh collection failed",
					zap.String("run_id", runID),
					zap.String("switch", rep.Hostname),
					zap.String("address", rep.Address),
					zap.String("status", string(rep.Status)),
					zap.String("reason", rep.Reason),
					zap.Error(rep.Err),
				)
			}
			reports[i] = rep
		})
	}
	p.Wait()

	summary := collector.NewSummary(runID, started, r.now(), reports)
	r.metrics.ObserveRun(summary)
	log.Info("collection finished", summary.Fields()...)
	return summary
}

// Detection is the fingerprint result for one host.
type Detection struct {
	Hostname string
	Address  string
	Profile  string
	Err      error
}

// Detect fingerprints every host without reading MAC tables.
func (r *Runner) Detect(ctx context.Context) []Detection {
	out := make([]Detection, len(r.hosts))
	p := pool.New().WithMaxGoroutines(r.cfg.Concurrency)
	for i, h := range r.hosts {
		p.Go(func() {
			d := Detection{Hostname: h.Hostname, Address: h.Address}
			conn, err := r.dial(ctx, h)
			if err != nil {
				d.Err = err
				out[i] = d
				return
			}
			defer conn.Close()
			prof, err := r.fingerprint(ctx, conn)
			if err != nil {
				d.Err = err
			} else {
				d.Profile = prof.Name
			}
			out[i] = d
		})
	}
	p.Wait()
	return out
}

func (r *Runner) collectHost(ctx context.Context, log *zap.Logger, h Host) (rep collector.DeviceReport) {
	start := r.now()
	rep = collector.DeviceReport{Hostname: h.Hostname, Address: h.Address}
	defer func() { rep.Duration = r.now().Sub(start) }()
	log = log.With(zap.String("switch", h.Hostname), zap.String("address", h.Address))

	conn, err := r.dial(ctx, h)
	if err != nil {
		return failed(rep, "ssh connect", err)
	}
	defer conn.Close()

	prof, err := r.fingerprint(ctx, conn)
	if err != nil {
		if errors.Is(err, ErrProfileUnknown) {
			rep.Status = collector.StatusSkipped
			rep.Reason = "no CLI profile for device"
			rep.Err = err
			return rep
		}
		return failed(rep, "ssh detect", err)
	}
	rep.Vendor = prof.VendorName()
	log.Debug("cli profile detected", zap.String("profile", prof.Name))

	cmds := []string{prof.MacTable}
	if prof.Pager != "" {
		cmds = []string{prof.Pager, prof.MacTable}
	}
	raw, err := r.run(ctx, conn, cmds...)
	if err != nil {
		return failed(rep, "ssh command", err)
	}

	observations, skipped := prof.ParseMacTable(outputAfter(raw, prof.MacTable))
	rep.ParseSkipped = skipped
	rep.Observed = len(observations)

	res, err := r.inventory.Upsert(ctx, inventory.Switch{
		Name:    h.Hostname,
		Address: h.Address,
		Vendor:  rep.Vendor,
	}, observations)
	rep.Inserted = res.Inserted
	rep.Updated = res.Updated
	rep.Failed = res.Failed
	for _, recErr := range res.Errors {
		log.Warn("inventory record not stored", zap.Error(recErr))
	}
	if err != nil {
		return failed(rep, "inventory store", err)
	}
	rep.Status = collector.StatusOK
	return rep
}

func (r *Runner) dial(ctx context.Context, h Host) (Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.DialTimeout)
	defer cancel()
	return r.dialer.Dial(ctx, h)
}

func (r *Runner) run(ctx context.Context, conn Conn, cmds ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.CommandTimeout)
	defer cancel()
	return conn.Run(ctx, cmds...)
}

func (r *Runner) fingerprint(ctx context.Context, conn Conn) (*Profile, error) {
	out, err := r.run(ctx, conn, detectCommands...)
	if err != nil {
		return nil, err
	}
	prof, ok := r.profiles.Match(out)
	if !ok {
		r.logger.Debug("unrecognized version output", zap.String("output", out))
		return nil, ErrProfileUnknown
	}
	return prof, nil
}

func failed(rep collector.DeviceReport, reason string, err error) collector.DeviceReport {
	rep.Status = collector.StatusFailed
	rep.Reason = reason
	rep.Err = err
	return rep
}
