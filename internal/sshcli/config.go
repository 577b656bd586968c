package sshcli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config controls an SSH collection pass.
type Config struct {
	// HostsFile lists the switches to log into.
	HostsFile string `mapstructure:"hosts_file"`
	// Username and Password apply to hosts that carry no credentials.
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	Port           int           `mapstructure:"port"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	Concurrency    int           `mapstructure:"concurrency"`

	// ProfilesFile replaces the built-in OS profiles.
	ProfilesFile string `mapstructure:"profiles_file"`
	// FailureLog receives one JSON line per host that could not be
	// collected. Empty disables it.
	FailureLog string `mapstructure:"failure_log"`
	// KnownHosts enables host key verification against an OpenSSH
	// known_hosts file.
	KnownHosts       string `mapstructure:"known_hosts"`
	LegacyAlgorithms bool   `mapstructure:"legacy_algorithms"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Port:           22,
		DialTimeout:    20 * time.Second,
		CommandTimeout: 60 * time.Second,
		Concurrency:    4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Port <= 0 {
		c.Port = d.Port
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = d.CommandTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	return c
}

type hostsFile struct {
	Hosts []Host `yaml:"hosts"`
}

// LoadHosts reads the YAML hosts file. Hosts without a hostname are named
// after their address.
func LoadHosts(path string) ([]Host, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ssh hosts: %w", err)
	}
	var f hostsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse ssh hosts %q: %w", path, err)
	}
	for i := range f.Hosts {
		h := &f.Hosts[i]
		if h.Address == "" {
			return nil, fmt.Errorf("ssh host %d (%q): address is required", i, h.Hostname)
		}
		if h.Hostname == "" {
			h.Hostname = h.Address
		}
	}
	return f.Hosts, nil
}
