// Package directory supplies the list of switches to poll. Devices can come
// from static configuration, straight from a Zabbix MySQL database, or from
// the Zabbix JSON-RPC API.
package directory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/switchmap/pkg/models"
)

// Directory produces the devices for one collection run.
type Directory interface {
	Devices(ctx context.Context) ([]models.Device, error)
}

// Directory types accepted in Config.Type.
const (
	TypeStatic    = "static"
	TypeZabbixSQL = "zabbix_sql"
	TypeZabbixAPI = "zabbix_api"
)

// Config selects and configures the directory.
type Config struct {
	Type             string       `mapstructure:"type"`
	DefaultCommunity string       `mapstructure:"default_community"`
	Hosts            []HostConfig `mapstructure:"hosts"`
	HostsFile        string       `mapstructure:"hosts_file"`
	Zabbix           ZabbixConfig `mapstructure:"zabbix"`
}

// HostConfig is one statically configured switch.
type HostConfig struct {
	Hostname  string `mapstructure:"hostname" yaml:"hostname"`
	Address   string `mapstructure:"address" yaml:"address"`
	Community string `mapstructure:"community" yaml:"community"`
	Vendor    string `mapstructure:"vendor" yaml:"vendor"`
}

// ZabbixConfig holds the settings for both Zabbix-backed directories.
type ZabbixConfig struct {
	DSN      string `mapstructure:"dsn"`
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	GroupID  int    `mapstructure:"group_id"`
	// Templates maps Zabbix template ids to vendor names.
	Templates  map[string]string `mapstructure:"templates"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	LegacyAuth bool              `mapstructure:"legacy_auth"`
}

// DefaultTemplates is the template id to vendor mapping used when none is
// configured.
var DefaultTemplates = map[string]string{
	"10250": string(models.VendorProCurve),
	"10251": string(models.VendorCisco),
	"10252": string(models.VendorAruba),
}

// New builds the directory selected by cfg.Type.
func New(cfg Config, logger *zap.Logger) (Directory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Type {
	case TypeStatic, "":
		return NewStatic(cfg.Hosts, cfg.HostsFile, cfg.DefaultCommunity), nil
	case TypeZabbixSQL:
		return NewZabbixSQL(cfg.Zabbix, cfg.DefaultCommunity, logger)
	case TypeZabbixAPI:
		return NewZabbixAPI(cfg.Zabbix, cfg.DefaultCommunity, logger)
	default:
		return nil, fmt.Errorf("unknown directory type %q", cfg.Type)
	}
}

// templateVendors parses a template id → vendor name mapping.
func templateVendors(m map[string]string) (map[int64]models.Vendor, error) {
	if len(m) == 0 {
		m = DefaultTemplates
	}
	out := make(map[int64]models.Vendor, len(m))
	for k, v := range m {
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid template id %q: %w", k, err)
		}
		out[id] = models.ParseVendor(v)
	}
	return out, nil
}

// community returns c unless it is empty or an unresolved user macro
// such as {$SNMP_COMMUNITY}, in which case def is used.
func community(c, def string) string {
	c = strings.TrimSpace(c)
	if c == "" || strings.HasPrefix(c, "{$") {
		return def
	}
	return c
}

// collector accumulates devices keyed by hostname, keeping input order.
// A later row for the same host only contributes a vendor when the first
// one did not have a known vendor.
type collector struct {
	order []string
	byKey map[string]*models.Device
}

func newCollector() *collector {
	return &collector{byKey: make(map[string]*models.Device)}
}

func (c *collector) add(d models.Device) {
	existing, ok := c.byKey[d.Hostname]
	if !ok {
		dev := d
		c.byKey[d.Hostname] = &dev
		c.order = append(c.order, d.Hostname)
		return
	}
	if !existing.Vendor.Known() && d.Vendor.Known() {
		existing.Vendor = d.Vendor
	}
}

func (c *collector) devices() []models.Device {
	out := make([]models.Device, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, *c.byKey[k])
	}
	return out
}
