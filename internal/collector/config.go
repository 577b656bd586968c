package collector

import "time"

// Config controls one collection pass.
type Config struct {
	// Concurrency bounds the number of switches polled at once.
	Concurrency int `mapstructure:"concurrency"`
	// QueryTimeout bounds each individual walk.
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	// QueriesPerSecond paces walks across all workers. Zero disables pacing.
	QueriesPerSecond float64 `mapstructure:"queries_per_second"`
	// DetectVendor re-classifies devices the directory reported as Unknown.
	DetectVendor bool `mapstructure:"detect_vendor"`
	// ResolveBridgePorts translates forwarding-table bridge port numbers to
	// ifIndex through dot1dBasePortIfIndex.
	ResolveBridgePorts bool          `mapstructure:"resolve_bridge_ports"`
	PingPrecheck       bool          `mapstructure:"ping_precheck"`
	PingTimeout        time.Duration `mapstructure:"ping_timeout"`
	PingCount          int           `mapstructure:"ping_count"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Concurrency:  8,
		QueryTimeout: 30 * time.Second,
		DetectVendor: true,
		PingTimeout:  2 * time.Second,
		PingCount:    1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = d.QueryTimeout
	}
	if c.QueriesPerSecond < 0 {
		c.QueriesPerSecond = 0
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = d.PingTimeout
	}
	if c.PingCount <= 0 {
		c.PingCount = d.PingCount
	}
	return c
}
