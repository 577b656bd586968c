package sshcli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/switchmap/pkg/models"
)

const (
	iosVersion = `Cisco IOS Software, C2960X Software (C2960X-UNIVERSALK9-M), Version 15.2(7)E4
Model number                    : WS-C2960X-48FPD-L`
	sbVersion = `SW version    2.5.9.54 ( date  14-Jul-2022 time  21:30:13 )
Boot version  1.4.1.3
HW version    V02
System Description: SG350-28MP 28-Port Gigabit PoE Managed Switch`
	arubaVersion = `Image stamp:    /ws/swbuildm/rel_ukiah_qaoff/code/build/bom(swbuildm_rel_ukiah_qaoff_rel_ukiah)
                WC.16.10.0009
Aruba JL256A 2930F-48G-PoE+-4SFP+ Switch`
	procurveVersion = `ProCurve J9280A Switch 2510G-48, revision Y.11.16`
	huaweiVersion   = `Huawei Versatile Routing Platform Software
VRP (R) software, Version 5.170 (S5720 V200R011C10SPC600)`
)

func TestDefaultProfiles_Match(t *testing.T) {
	ps := DefaultProfiles()
	tests := []struct {
		name   string
		output string
		want   string
		vendor models.Vendor
	}{
		{"cisco ios", iosVersion, "cisco_ios", models.VendorCisco},
		{"cisco small business", sbVersion, "cisco_sb", models.VendorCisco},
		{"aruba", arubaVersion, "aruba_os", models.VendorAruba},
		{"procurve", procurveVersion, "procurve", models.VendorProCurve},
		{"huawei", huaweiVersion, "huawei_vrp", models.VendorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ps.Match(tt.output)
			require.True(t, ok)
			assert.Equal(t, tt.want, p.Name)
			assert.Equal(t, tt.vendor, p.VendorName())
		})
	}
}

func TestProfiles_MatchUnknown(t *testing.T) {
	_, ok := DefaultProfiles().Match("JUNOS Base OS boot [21.4R3]\nModel: ex2300-c-12p")
	assert.False(t, ok)
}

func TestProfiles_BothPatternsWin(t *testing.T) {
	ps, err := ParseProfiles([]byte(`
profiles:
  - name: by_version
    versions: ['Release 7']
    mac_table: show mac
    row: '^(?P<mac>\S+) (?P<port>\S+)$'
  - name: by_both
    models: ['XS-100']
    versions: ['Release 7']
    mac_table: show mac
    row: '^(?P<mac>\S+) (?P<port>\S+)$'
`))
	require.NoError(t, err)

	p, ok := ps.Match("XS-100 Release 7")
	require.True(t, ok)
	assert.Equal(t, "by_both", p.Name)

	p, ok = ps.Match("XS-200 Release 7")
	require.True(t, ok)
	assert.Equal(t, "by_version", p.Name)
}

func TestParseProfiles_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "profiles: []\n"},
		{"no name", "profiles:\n  - mac_table: x\n    versions: [a]\n    row: '(?P<mac>a)(?P<port>b)'\n"},
		{"no patterns", "profiles:\n  - name: a\n    mac_table: x\n    row: '(?P<mac>a)(?P<port>b)'\n"},
		{"no mac table", "profiles:\n  - name: a\n    versions: [a]\n    row: '(?P<mac>a)(?P<port>b)'\n"},
		{"bad regex", "profiles:\n  - name: a\n    mac_table: x\n    versions: ['(']\n    row: '(?P<mac>a)(?P<port>b)'\n"},
		{"missing groups", "profiles:\n  - name: a\n    mac_table: x\n    versions: [a]\n    row: '(\\S+) (\\S+)'\n"},
		{"malformed yaml", "profiles: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadProfiles(t *testing.T) {
	ps, err := LoadProfiles("")
	require.NoError(t, err)
	assert.Equal(t, []string{"cisco_ios", "cisco_sb", "aruba_os", "procurve", "huawei_vrp"}, ps.Names())

	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: lab
    vendor: cisco
    versions: ['LabOS']
    pager: terminal length 0
    mac_table: show mac address-table
    row: '^\s*(?P<vlan>\d+)\s+(?P<mac>\S+)\s+(?P<port>\S+)$'
`), 0o600))
	ps, err = LoadProfiles(path)
	require.NoError(t, err)
	p, ok := ps.Get("lab")
	require.True(t, ok)
	assert.Equal(t, "terminal length 0", p.Pager)

	_, err = LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
