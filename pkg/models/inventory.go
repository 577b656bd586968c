package models

import (
	"fmt"
	"time"
)

// Fallback markers used when a forwarding-table entry cannot be joined to
// an interface name or a VLAN assignment.
const (
	UnknownPort = "Unknown Port"
	UnknownVLAN = "Unknown VLAN"
)

// MAC is a 48-bit hardware address.
type MAC [6]byte

// String renders the address as six uppercase two-digit hex octets joined
// by colons, e.g. 00:1B:E0:0A:14:1E.
func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// MacEntry is one row of a switch forwarding table: a learned MAC and the
// interface index it was learned on.
type MacEntry struct {
	MAC     MAC
	IfIndex int
}

// Observation is a single MAC sighting joined to its port name and VLAN.
// VLAN is the decimal VLAN number or UnknownVLAN.
type Observation struct {
	MAC  string `json:"mac_address"`
	Port string `json:"port_name"`
	VLAN string `json:"vlan"`
}

// InventoryRecord is one persisted row of the network inventory, unique on
// (SwitchName, MACAddress, PortName, VLAN).
type InventoryRecord struct {
	SwitchName    string    `json:"switch_name"`
	SwitchAddress string    `json:"switch_ip"`
	Vendor        Vendor    `json:"vendor"`
	MACAddress    string    `json:"mac_address"`
	PortName      string    `json:"port_name"`
	VLAN          string    `json:"vlan"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
