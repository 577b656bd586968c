package sshcli

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/switchmap/pkg/models"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// ErrProfileUnknown is reported for switches whose version output matches
// no profile.
var ErrProfileUnknown = errors.New("no CLI profile matches device")

// Profile describes how to talk to one switch operating system over the
// CLI: how to recognize it, how to turn off paging, and how to read and
// parse its MAC address table.
type Profile struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Vendor      string   `yaml:"vendor"`
	Models      []string `yaml:"models"`
	Versions    []string `yaml:"versions"`
	Pager       string   `yaml:"pager"`
	MacTable    string   `yaml:"mac_table"`
	// Row matches one MAC table row. It must have named groups "mac" and
	// "port" and may have "vlan".
	Row string `yaml:"row"`

	models   []*regexp.Regexp
	versions []*regexp.Regexp
	row      *regexp.Regexp
}

// VendorName maps the profile onto the inventory vendor column.
func (p *Profile) VendorName() models.Vendor {
	if v := models.ParseVendor(p.Vendor); v != "" {
		return v
	}
	return models.VendorUnknown
}

func (p *Profile) compile() error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if p.MacTable == "" {
		return fmt.Errorf("profile %s: mac_table is required", p.Name)
	}
	if len(p.Models) == 0 && len(p.Versions) == 0 {
		return fmt.Errorf("profile %s: needs at least one models or versions pattern", p.Name)
	}
	var err error
	if p.models, err = compileAll(p.Models); err != nil {
		return fmt.Errorf("profile %s models: %w", p.Name, err)
	}
	if p.versions, err = compileAll(p.Versions); err != nil {
		return fmt.Errorf("profile %s versions: %w", p.Name, err)
	}
	if p.row, err = regexp.Compile(p.Row); err != nil {
		return fmt.Errorf("profile %s row: %w", p.Name, err)
	}
	groups := map[string]bool{}
	for _, n := range p.row.SubexpNames() {
		groups[n] = true
	}
	if !groups["mac"] || !groups["port"] {
		return fmt.Errorf("profile %s row: needs named groups mac and port", p.Name)
	}
	return nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, s := range patterns {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func anyMatch(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Profiles is an ordered profile set. Earlier profiles win ties.
type Profiles struct {
	list []*Profile
}

type profilesFile struct {
	Profiles []*Profile `yaml:"profiles"`
}

// ParseProfiles decodes and compiles a YAML profile set.
func ParseProfiles(data []byte) (*Profiles, error) {
	var f profilesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if len(f.Profiles) == 0 {
		return nil, errors.New("parse profiles: no profiles defined")
	}
	for _, p := range f.Profiles {
		if err := p.compile(); err != nil {
			return nil, err
		}
	}
	return &Profiles{list: f.Profiles}, nil
}

// LoadProfiles reads a profile set from path, or returns the built-in set
// when path is empty.
func LoadProfiles(path string) (*Profiles, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return ParseProfiles(data)
}

// DefaultProfiles returns the built-in profile set.
func DefaultProfiles() *Profiles {
	p, err := ParseProfiles(defaultProfiles)
	if err != nil {
		panic(fmt.Sprintf("sshcli: built-in profiles: %v", err))
	}
	return p
}

// Get returns the profile called name.
func (ps *Profiles) Get(name string) (*Profile, bool) {
	for _, p := range ps.list {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Names lists profile names in match order.
func (ps *Profiles) Names() []string {
	out := make([]string, len(ps.list))
	for i, p := range ps.list {
		out[i] = p.Name
	}
	return out
}

// Match fingerprints version output. A profile whose model and version
// patterns both match is preferred; otherwise the first profile with
// either a model or a version match is returned.
func (ps *Profiles) Match(output string) (*Profile, bool) {
	for _, p := range ps.list {
		if anyMatch(p.models, output) && anyMatch(p.versions, output) {
			return p, true
		}
	}
	for _, p := range ps.list {
		if anyMatch(p.models, output) || anyMatch(p.versions, output) {
			return p, true
		}
	}
	return nil, false
}
