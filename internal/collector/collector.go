// Package collector runs one inventory pass: it reads the host directory,
// polls every switch over SNMP and writes the resulting MAC/port/VLAN
// observations to the inventory store.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/HerbHall/switchmap/internal/directory"
	"github.com/HerbHall/switchmap/internal/inventory"
	"github.com/HerbHall/switchmap/internal/pulse"
	"github.com/HerbHall/switchmap/internal/snmp"
	"github.com/HerbHall/switchmap/internal/topology"
	"github.com/HerbHall/switchmap/internal/vendor"
	"github.com/HerbHall/switchmap/internal/walk"
	"github.com/HerbHall/switchmap/pkg/models"
)

// ErrVendorUnknown is reported for devices whose platform family has no
// OID profile.
var ErrVendorUnknown = errors.New("vendor unknown")

// ErrUnreachable is reported for devices that failed the ICMP precheck.
var ErrUnreachable = errors.New("device unreachable")

// Collector orchestrates a collection run.
type Collector struct {
	cfg       Config
	directory directory.Directory
	gateway   snmp.Gateway
	inventory inventory.Repository
	checker   pulse.Checker
	metrics   *Metrics
	parser    *walk.Parser
	limiter   *rate.Limiter
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithChecker overrides the reachability checker used when
// Config.PingPrecheck is set.
func WithChecker(c pulse.Checker) Option {
	return func(col *Collector) { col.checker = c }
}

// WithMetrics records run metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(col *Collector) { col.metrics = m }
}

// WithParser replaces the walk parser.
func WithParser(p *walk.Parser) Option {
	return func(col *Collector) { col.parser = p }
}

// WithClock overrides the time source used for reports.
func WithClock(now func() time.Time) Option {
	return func(col *Collector) { col.now = now }
}

// New creates a Collector.
func New(cfg Config, dir directory.Directory, gw snmp.Gateway, inv inventory.Repository, logger *zap.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	limit := rate.Inf
	if cfg.QueriesPerSecond > 0 {
		limit = rate.Limit(cfg.QueriesPerSecond)
	}
	c := &Collector{
		cfg:       cfg,
		directory: dir,
		gateway:   gw,
		inventory: inv,
		parser:    walk.DefaultParser,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !cfg.PingPrecheck {
		c.checker = nil
	} else if c.checker == nil {
		c.checker = pulse.NewICMPChecker(cfg.PingTimeout, cfg.PingCount)
	}
	return c
}

// Run performs one pass over every device the directory lists. Per-device
// failures are reported in the Summary; only a directory failure aborts
// the run and is returned as an error.
func (c *Collector) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	started := c.now()
	log := c.logger.With(zap.String("run_id", runID))

	devices, err := c.directory.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("read host directory: %w", err)
	}
	log.Info("collection started",
		zap.Int("devices", len(devices)),
		zap.Int("concurrency", c.cfg.Concurrency),
	)

	reports := make([]DeviceReport, len(devices))
	p := pool.New().WithMaxGoroutines(c.cfg.Concurrency)
	for i, d := range devices {
		p.Go(func() {
			r := c.collectDevice(ctx, log, d)
			c.metrics.ObserveDevice(r)
			LogReport(log, r)
			reports[i] = r
		})
	}
	p.Wait()

	summary := NewSummary(runID, started, c.now(), reports)
	c.metrics.ObserveRun(summary)
	log.Info("collection finished", summary.Fields()...)
	return summary, nil
}

// LogReport logs r at a level matching its status.
func LogReport(log *zap.Logger, r DeviceReport) {
	switch r.Status {
	case StatusOK:
		log.Info("device collected", r.fields()...)
	case StatusSkipped:
		log.Warn("device skipped", r.fields()...)
	default:
		log.Error("device failed", r.fields()...)
	}
}

// collectDevice polls one switch and stores its observations.
func (c *Collector) collectDevice(ctx context.Context, log *zap.Logger, d models.Device) (rep DeviceReport) {
	start := c.now()
	rep = DeviceReport{
		Hostname: d.Hostname,
		Address:  d.Address,
		Vendor:   d.Vendor,
	}
	defer func() { rep.Duration = c.now().Sub(start) }()
	log = log.With(zap.String("switch", d.Hostname), zap.String("address", d.Address))

	if c.checker != nil {
		if ok, reason := pulse.Reachable(ctx, c.checker, d.Address); !ok {
			rep.Status = StatusFailed
			rep.Reason = "ping precheck: " + reason
			rep.Err = ErrUnreachable
			return rep
		}
	}

	target := snmp.Target{Address: d.Address, Credential: d.Credential}

	v := d.Vendor
	if v == "" || (v == models.VendorUnknown && c.cfg.DetectVendor) {
		detected, err := c.detectVendor(ctx, target)
		if err != nil {
			return queryFailed(rep, err)
		}
		log.Debug("vendor detected", zap.String("vendor", string(detected)))
		v = detected
		rep.Vendor = v
	}

	profile, ok := vendor.Lookup(v)
	if !ok {
		rep.Status = StatusSkipped
		rep.Reason = "no OID profile for vendor " + string(v)
		rep.Err = ErrVendorUnknown
		return rep
	}

	var macRaw, namesRaw, vlanRaw, bridgeRaw string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		macRaw, err = c.walk(gctx, target, profile.MacTable)
		return err
	})
	g.Go(func() (err error) {
		namesRaw, err = c.walk(gctx, target, profile.InterfaceNames)
		return err
	})
	g.Go(func() (err error) {
		vlanRaw, err = c.walk(gctx, target, profile.VlanTable)
		return err
	})
	if c.cfg.ResolveBridgePorts && profile.BridgePorts != "" {
		g.Go(func() error {
			raw, err := c.walk(gctx, target, profile.BridgePorts)
			if err != nil {
				log.Warn("bridge port walk failed, using raw port numbers",
					zap.String("oid", profile.BridgePorts),
					zap.Error(err),
				)
				return nil
			}
			bridgeRaw = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return queryFailed(rep, err)
	}

	entries, skippedMacs := c.parser.ParseMacTable(macRaw, profile.MacTable)
	names, skippedNames := c.parser.ParseInterfaceNames(namesRaw)
	vlans, skippedVlans := c.parser.ParseVlanTable(vlanRaw)
	rep.ParseSkipped = skippedMacs + skippedNames + skippedVlans

	if bridgeRaw != "" {
		ports, skippedPorts := c.parser.ParseBridgePorts(bridgeRaw)
		rep.ParseSkipped += skippedPorts
		entries = topology.RemapBridgePorts(entries, ports)
		if profile.VlanByBridgePort {
			vlans = topology.RemapVlans(vlans, ports)
		}
	}
	if rep.ParseSkipped > 0 {
		log.Debug("walk lines skipped", zap.Int("parse_skipped", rep.ParseSkipped))
	}

	observations := topology.Build(entries, names, vlans)
	rep.Observed = len(observations)

	res, err := c.inventory.Upsert(ctx, inventory.Switch{
		Name:    d.Hostname,
		Address: d.Address,
		Vendor:  v,
	}, observations)
	rep.Inserted = res.Inserted
	rep.Updated = res.Updated
	rep.Failed = res.Failed
	for _, recErr := range res.Errors {
		log.Warn("inventory record not stored", zap.Error(recErr))
	}
	if err != nil {
		rep.Status = StatusFailed
		rep.Reason = "inventory store"
		rep.Err = err
		return rep
	}

	rep.Status = StatusOK
	return rep
}

// detectVendor classifies the device from sysDescr. When the walk output
// has no parseable STRING binding the raw text is classified instead.
func (c *Collector) detectVendor(ctx context.Context, t snmp.Target) (models.Vendor, error) {
	raw, err := c.walk(ctx, t, vendor.SysDescr)
	if err != nil {
		return "", err
	}
	descr := c.parser.ParseScalarString(raw)
	if descr == "" {
		descr = raw
	}
	return vendor.Classify(descr), nil
}

// walk issues one paced, time-bounded walk.
func (c *Collector) walk(ctx context.Context, t snmp.Target, oid string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for query slot: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	raw, err := c.gateway.Walk(ctx, t, oid)
	c.metrics.observeWalk(err)
	return raw, err
}

func queryFailed(rep DeviceReport, err error) DeviceReport {
	rep.Status = StatusFailed
	rep.Reason = "query failure: " + snmp.KindOf(err).String()
	rep.Err = err
	return rep
}
