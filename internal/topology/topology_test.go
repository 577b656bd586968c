package topology

import (
	"testing"

	"github.com/HerbHall/switchmap/internal/vendor"
	"github.com/HerbHall/switchmap/internal/walk"
	"github.com/HerbHall/switchmap/pkg/models"
)

var (
	macA = models.MAC{0x00, 0x1B, 0xE0, 0x0A, 0x14, 0x1E}
	macB = models.MAC{0xAA, 0xBB, 0xCC, 0x00, 0x00, 0x01}
)

func TestBuild(t *testing.T) {
	entries := []models.MacEntry{
		{MAC: macA, IfIndex: 1},
		{MAC: macB, IfIndex: 2},
		{MAC: macB, IfIndex: 3},
	}
	names := map[int]string{1: "Gi0/1", 3: "Gi0/3"}
	vlans := map[int]int{1: 10, 2: 20}

	got := Build(entries, names, vlans)
	want := []models.Observation{
		{MAC: "00:1B:E0:0A:14:1E", Port: "Gi0/1", VLAN: "10"},
		{MAC: "AA:BB:CC:00:00:01", Port: models.UnknownPort, VLAN: "20"},
		{MAC: "AA:BB:CC:00:00:01", Port: "Gi0/3", VLAN: models.UnknownVLAN},
	}
	if len(got) != len(want) {
		t.Fatalf("len(Build()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Build()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBuild_DuplicateMACsMultiply(t *testing.T) {
	entries := []models.MacEntry{{MAC: macA, IfIndex: 1}, {MAC: macA, IfIndex: 1}}
	got := Build(entries, map[int]string{1: "Gi0/1"}, map[int]int{1: 10})
	if len(got) != 2 {
		t.Fatalf("len(Build()) = %d, want 2", len(got))
	}
	if got[0] != got[1] {
		t.Errorf("expected identical observations, got %+v and %+v", got[0], got[1])
	}
}

func TestBuild_Empty(t *testing.T) {
	got := Build(nil, nil, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Build(nil) = %v, want empty non-nil slice", got)
	}
}

func TestBuild_EndToEndFromWalkText(t *testing.T) {
	names, _ := walk.ParseInterfaceNames(`1 = STRING: "Gi0/1"`)
	vlans, _ := walk.ParseVlanTable(`1 = INTEGER: 10`)
	entries, _ := walk.ParseMacTable(`1.3.6.1.2.1.17.4.3.1.2.0.27.224.10.20.30 = INTEGER: 1`, vendor.MacTable)

	got := Build(entries, names, vlans)
	want := models.Observation{MAC: "00:1B:E0:0A:14:1E", Port: "Gi0/1", VLAN: "10"}
	if len(got) != 1 || got[0] != want {
		t.Errorf("Build() = %+v, want [%+v]", got, want)
	}
}

func TestRemapBridgePorts(t *testing.T) {
	entries := []models.MacEntry{{MAC: macA, IfIndex: 1}, {MAC: macB, IfIndex: 7}}
	got := RemapBridgePorts(entries, map[int]int{1: 10101})

	if got[0].IfIndex != 10101 {
		t.Errorf("got[0].IfIndex = %d, want 10101", got[0].IfIndex)
	}
	if got[1].IfIndex != 7 {
		t.Errorf("got[1].IfIndex = %d, want 7 (unmapped)", got[1].IfIndex)
	}
	if entries[0].IfIndex != 1 {
		t.Errorf("input modified: entries[0].IfIndex = %d", entries[0].IfIndex)
	}
}

func TestRemapBridgePorts_NoTable(t *testing.T) {
	entries := []models.MacEntry{{MAC: macA, IfIndex: 1}}
	got := RemapBridgePorts(entries, nil)
	if len(got) != 1 || got[0].IfIndex != 1 {
		t.Errorf("RemapBridgePorts(nil) = %+v", got)
	}
}

func TestRemapVlans(t *testing.T) {
	vlans := map[int]int{1: 30, 2: 40}
	got := RemapVlans(vlans, map[int]int{1: 1001})

	want := map[int]int{1001: 30, 2: 40}
	if len(got) != len(want) {
		t.Fatalf("RemapVlans() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("RemapVlans()[%d] = %d, want %d", k, got[k], v)
		}
	}
	if vlans[1] != 30 || len(vlans) != 2 {
		t.Errorf("input modified: %v", vlans)
	}
}

func TestRemapVlans_JoinsWithRemappedEntries(t *testing.T) {
	ports := map[int]int{1: 1001}
	entries := RemapBridgePorts([]models.MacEntry{{MAC: macA, IfIndex: 1}}, ports)
	vlans := RemapVlans(map[int]int{1: 30}, ports)

	got := Build(entries, map[int]string{1001: "1/1/1"}, vlans)
	want := models.Observation{MAC: "00:1B:E0:0A:14:1E", Port: "1/1/1", VLAN: "30"}
	if len(got) != 1 || got[0] != want {
		t.Errorf("Build() = %+v, want [%+v]", got, want)
	}
}
