// Package topology joins a switch's forwarding table with its interface
// and VLAN tables.
package topology

import (
	"strconv"

	"github.com/HerbHall/switchmap/pkg/models"
)

// Build emits one Observation per entry, in entry order. An ifIndex with no
// interface name resolves to models.UnknownPort and one with no VLAN to
// models.UnknownVLAN. Repeated MACs produce repeated observations.
func Build(entries []models.MacEntry, names map[int]string, vlans map[int]int) []models.Observation {
	out := make([]models.Observation, 0, len(entries))
	for _, e := range entries {
		port, ok := names[e.IfIndex]
		if !ok {
			port = models.UnknownPort
		}
		vlan := models.UnknownVLAN
		if v, ok := vlans[e.IfIndex]; ok {
			vlan = strconv.Itoa(v)
		}
		out = append(out, models.Observation{
			MAC:  e.MAC.String(),
			Port: port,
			VLAN: vlan,
		})
	}
	return out
}

// RemapBridgePorts rewrites each entry's bridge port number to the ifIndex
// given by ports (dot1dBasePortIfIndex). Entries whose bridge port is not
// in ports keep their number. The input slice is not modified.
func RemapBridgePorts(entries []models.MacEntry, ports map[int]int) []models.MacEntry {
	if len(ports) == 0 {
		return entries
	}
	out := make([]models.MacEntry, len(entries))
	for i, e := range entries {
		if ifIndex, ok := ports[e.IfIndex]; ok {
			e.IfIndex = ifIndex
		}
		out[i] = e
	}
	return out
}

// RemapVlans re-keys a bridge-port indexed VLAN map (dot1qPvid) by ifIndex
// so it joins with entries passed through RemapBridgePorts. Bridge ports
// missing from ports keep their number.
func RemapVlans(vlans map[int]int, ports map[int]int) map[int]int {
	if len(ports) == 0 {
		return vlans
	}
	out := make(map[int]int, len(vlans))
	for port, vlan := range vlans {
		if ifIndex, ok := ports[port]; ok {
			port = ifIndex
		}
		out[port] = vlan
	}
	return out
}
