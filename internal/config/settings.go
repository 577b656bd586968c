package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/switchmap/internal/collector"
	"github.com/HerbHall/switchmap/internal/directory"
	"github.com/HerbHall/switchmap/internal/snmp"
	"github.com/HerbHall/switchmap/internal/sshcli"
)

// SNMP transports.
const (
	TransportGoSNMP   = "gosnmp"
	TransportSnmpwalk = "snmpwalk"
)

// Settings is the typed view of the whole configuration.
type Settings struct {
	Logging   LoggingSettings  `mapstructure:"logging"`
	Database  DatabaseSettings `mapstructure:"database"`
	SNMP      SNMPSettings     `mapstructure:"snmp"`
	Collector collector.Config `mapstructure:"collector"`
	Directory directory.Config `mapstructure:"directory"`
	SSH       sshcli.Config    `mapstructure:"ssh"`
	Metrics   MetricsSettings  `mapstructure:"metrics"`
}

type LoggingSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseSettings struct {
	Path string `mapstructure:"path"`
}

// SNMPSettings configures the query gateway.
type SNMPSettings struct {
	Transport      string        `mapstructure:"transport"`
	Version        string        `mapstructure:"version"`
	Port           int           `mapstructure:"port"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Retries        int           `mapstructure:"retries"`
	MaxRepetitions int           `mapstructure:"max_repetitions"`
	SnmpwalkPath   string        `mapstructure:"snmpwalk_path"`
}

// Options converts the settings to gateway options.
func (s SNMPSettings) Options() snmp.Options {
	return snmp.Options{
		Version:        s.Version,
		Port:           uint16(s.Port),
		Timeout:        s.Timeout,
		Retries:        s.Retries,
		MaxRepetitions: uint32(s.MaxRepetitions),
	}
}

type MetricsSettings struct {
	// Textfile is where run metrics are written for the node-exporter
	// textfile collector. Empty disables the export.
	Textfile string `mapstructure:"textfile"`
}

// Validate reports every invalid setting at once.
func (s *Settings) Validate() error {
	var errs []error

	if _, err := s.Logging.level(); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch s.Logging.Format {
	case "json", "console", "":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: must be \"json\" or \"console\"", s.Logging.Format))
	}

	if s.Database.Path == "" {
		errs = append(errs, errors.New("database.path must be set"))
	}

	switch s.SNMP.Transport {
	case TransportGoSNMP, TransportSnmpwalk:
	default:
		errs = append(errs, fmt.Errorf("snmp.transport %q: must be %q or %q", s.SNMP.Transport, TransportGoSNMP, TransportSnmpwalk))
	}
	switch s.SNMP.Version {
	case "1", "2c":
	default:
		errs = append(errs, fmt.Errorf("snmp.version %q: must be \"1\" or \"2c\"", s.SNMP.Version))
	}
	if s.SNMP.Port < 1 || s.SNMP.Port > 65535 {
		errs = append(errs, fmt.Errorf("snmp.port %d: out of range", s.SNMP.Port))
	}
	if s.SNMP.Retries < 0 {
		errs = append(errs, fmt.Errorf("snmp.retries %d: must not be negative", s.SNMP.Retries))
	}
	if s.SNMP.MaxRepetitions < 0 {
		errs = append(errs, fmt.Errorf("snmp.max_repetitions %d: must not be negative", s.SNMP.MaxRepetitions))
	}

	if s.Collector.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("collector.concurrency %d: must be at least 1", s.Collector.Concurrency))
	}
	if s.Collector.QueryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("collector.query_timeout %s: must be positive", s.Collector.QueryTimeout))
	}
	if s.Collector.QueriesPerSecond < 0 {
		errs = append(errs, fmt.Errorf("collector.queries_per_second %g: must not be negative", s.Collector.QueriesPerSecond))
	}

	switch s.Directory.Type {
	case directory.TypeStatic:
	case directory.TypeZabbixSQL:
		if s.Directory.Zabbix.DSN == "" {
			errs = append(errs, errors.New("directory.zabbix.dsn must be set for zabbix_sql"))
		}
	case directory.TypeZabbixAPI:
		if s.Directory.Zabbix.URL == "" {
			errs = append(errs, errors.New("directory.zabbix.url must be set for zabbix_api"))
		}
	default:
		errs = append(errs, fmt.Errorf("directory.type %q: must be %q, %q or %q",
			s.Directory.Type, directory.TypeStatic, directory.TypeZabbixSQL, directory.TypeZabbixAPI))
	}

	if s.SSH.Port < 1 || s.SSH.Port > 65535 {
		errs = append(errs, fmt.Errorf("ssh.port %d: out of range", s.SSH.Port))
	}
	if s.SSH.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("ssh.concurrency %d: must be at least 1", s.SSH.Concurrency))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
