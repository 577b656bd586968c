package models

import "strings"

// Vendor identifies the switch platform family. The string value is what
// gets persisted in the inventory vendor column.
type Vendor string

const (
	VendorCisco    Vendor = "Cisco"
	VendorAruba    Vendor = "Aruba"
	VendorProCurve Vendor = "ProCurve"
	VendorUnknown  Vendor = "Unknown"
)

// Known reports whether v names a supported platform family.
func (v Vendor) Known() bool {
	switch v {
	case VendorCisco, VendorAruba, VendorProCurve:
		return true
	}
	return false
}

// ParseVendor maps a configured vendor name onto a Vendor. Matching is
// case-insensitive; unrecognized names map to VendorUnknown and the empty
// string stays empty so callers can tell "not supplied" from "unknown".
func ParseVendor(s string) Vendor {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ""
	case "cisco":
		return VendorCisco
	case "aruba":
		return VendorAruba
	case "procurve", "hp", "hpe":
		return VendorProCurve
	default:
		return VendorUnknown
	}
}

// Device is one switch to be queried, as supplied by a host directory.
type Device struct {
	Hostname   string `json:"hostname"`
	Address    string `json:"address"`
	Credential string `json:"-"`
	Vendor     Vendor `json:"vendor,omitempty"`
}
