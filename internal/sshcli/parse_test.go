package sshcli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/switchmap/pkg/models"
)

func profile(t *testing.T, name string) *Profile {
	t.Helper()
	p, ok := DefaultProfiles().Get(name)
	require.True(t, ok, "profile %s", name)
	return p
}

func TestParseMacTable_CiscoIOS(t *testing.T) {
	out := `core-sw-01#show mac address-table
          Mac Address Table
-------------------------------------------

Vlan    Mac Address       Type        Ports
----    -----------       --------    -----
 All    0100.0ccc.cccc    STATIC      CPU
  10    001b.e00a.141e    DYNAMIC     Gi1/0/1
  20    aabb.cc00.0001    DYNAMIC     Gi1/0/2
 9999   aabb.cc00.0002    DYNAMIC     Gi1/0/3
Total Mac Addresses for this criterion: 3
core-sw-01#`

	got, skipped := profile(t, "cisco_ios").ParseMacTable(out)
	assert.Equal(t, []models.Observation{
		{MAC: "00:1B:E0:0A:14:1E", Port: "Gi1/0/1", VLAN: "10"},
		{MAC: "AA:BB:CC:00:00:01", Port: "Gi1/0/2", VLAN: "20"},
	}, got)
	assert.Equal(t, 1, skipped, "VLAN 9999 is out of range")
}

func TestParseMacTable_CiscoSmallBusiness(t *testing.T) {
	out := `  Aging time is 300 sec

    Vlan          Mac Address         Port       Type
 ------------ --------------------- ---------- ----------
      1         00:1b:e0:0a:14:1e     gi1/0/5     dynamic
      1         a0:f8:49:11:22:33         0         self`

	got, skipped := profile(t, "cisco_sb").ParseMacTable(out)
	assert.Equal(t, []models.Observation{
		{MAC: "00:1B:E0:0A:14:1E", Port: "gi1/0/5", VLAN: "1"},
	}, got)
	assert.Zero(t, skipped)
}

func TestParseMacTable_ArubaOS(t *testing.T) {
	out := "\r\n Status and Counters - Port Address Table\r\n\r\n" +
		"  MAC Address   Port  VLAN\r\n" +
		"  ------------- ----- ----\r\n" +
		"  001be0-0a141e 1/1/1 30\r\n" +
		"  aabbcc-000001 Trk1  1\r\n"

	got, skipped := profile(t, "aruba_os").ParseMacTable(out)
	assert.Equal(t, []models.Observation{
		{MAC: "00:1B:E0:0A:14:1E", Port: "1/1/1", VLAN: "30"},
		{MAC: "AA:BB:CC:00:00:01", Port: "Trk1", VLAN: "1"},
	}, got)
	assert.Zero(t, skipped)
}

func TestParseMacTable_Huawei(t *testing.T) {
	out := `MAC address table of slot 0:
-------------------------------------------------------------------------------
MAC Address    VLAN/       PEVLAN CEVLAN Port            Type      LSP/LSR-ID
               VSI/SI                                              MAC-Tunnel
-------------------------------------------------------------------------------
001b-e00a-141e 10          -      -      GE0/0/1         dynamic   0/-
-------------------------------------------------------------------------------`

	got, _ := profile(t, "huawei_vrp").ParseMacTable(out)
	require.Len(t, got, 1)
	assert.Equal(t, models.Observation{MAC: "00:1B:E0:0A:14:1E", Port: "GE0/0/1", VLAN: "10"}, got[0])
}

func TestParseMacTable_NoVlanGroup(t *testing.T) {
	ps, err := ParseProfiles([]byte(`
profiles:
  - name: flat
    versions: ['x']
    mac_table: show mac
    row: '^(?P<mac>[0-9a-f.]{14}) (?P<port>\S+)$'
`))
	require.NoError(t, err)
	p, _ := ps.Get("flat")

	got, _ := p.ParseMacTable("001b.e00a.141e Gi0/1\n")
	assert.Equal(t, []models.Observation{{MAC: "00:1B:E0:0A:14:1E", Port: "Gi0/1", VLAN: models.UnknownVLAN}}, got)
}

func TestParseMAC(t *testing.T) {
	want := models.MAC{0x00, 0x1B, 0xE0, 0x0A, 0x14, 0x1E}
	for _, in := range []string{"001b.e00a.141e", "001be0-0a141e", "001b-e00a-141e", "00:1b:e0:0a:14:1e", "001BE00A141E"} {
		got, ok := ParseMAC(in)
		if assert.True(t, ok, in) {
			assert.Equal(t, want, got, in)
		}
	}
	for _, in := range []string{"", "001b.e00a.14", "zz1b.e00a.141e", "001b.e00a.141e.00"} {
		_, ok := ParseMAC(in)
		assert.False(t, ok, in)
	}
}

func TestOutputAfter(t *testing.T) {
	raw := "Welcome\r\nsw# terminal length 0\r\nsw# show mac address-table\r\n  10 row\r\nsw# exit\r\n"
	assert.Equal(t, "  10 row\r\nsw# exit\r\n", outputAfter(raw, "show mac address-table"))
	assert.Equal(t, "no echo", outputAfter("no echo", "show mac"))
	assert.Equal(t, "row", outputAfter("sw# show mac \b\nrow", "show mac"))
}
