package directory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/switchmap/pkg/models"
)

// Compile-time interface guard.
var _ Directory = (*Static)(nil)

// Static serves devices from configuration, optionally extended by a YAML
// hosts file that is re-read on every run.
type Static struct {
	hosts            []HostConfig
	hostsFile        string
	defaultCommunity string
}

// NewStatic creates a static directory.
func NewStatic(hosts []HostConfig, hostsFile, defaultCommunity string) *Static {
	return &Static{hosts: hosts, hostsFile: hostsFile, defaultCommunity: defaultCommunity}
}

type hostsFile struct {
	Hosts []HostConfig `yaml:"hosts"`
}

func (s *Static) Devices(_ context.Context) ([]models.Device, error) {
	hosts := append([]HostConfig(nil), s.hosts...)
	if s.hostsFile != "" {
		data, err := os.ReadFile(s.hostsFile)
		if err != nil {
			return nil, fmt.Errorf("read hosts file: %w", err)
		}
		var f hostsFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse hosts file %q: %w", s.hostsFile, err)
		}
		hosts = append(hosts, f.Hosts...)
	}

	c := newCollector()
	for i, h := range hosts {
		if h.Address == "" {
			return nil, fmt.Errorf("host %d (%q): address is required", i, h.Hostname)
		}
		name := h.Hostname
		if name == "" {
			name = h.Address
		}
		c.add(models.Device{
			Hostname:   name,
			Address:    h.Address,
			Credential: community(h.Community, s.defaultCommunity),
			Vendor:     models.ParseVendor(h.Vendor),
		})
	}
	return c.devices(), nil
}
