package testutil

import (
	"github.com/HerbHall/switchmap/pkg/models"
)

// NewDevice returns a Device with sensible defaults, suitable for test fixtures.
// Override individual fields with the With* options.
func NewDevice(opts ...func(*models.Device)) models.Device {
	d := models.Device{
		Hostname:   "test-switch",
		Address:    "192.0.2.10",
		Credential: "public",
		Vendor:     models.VendorCisco,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithHostname sets the device hostname.
func WithHostname(name string) func(*models.Device) {
	return func(d *models.Device) { d.Hostname = name }
}

// WithAddress sets the SNMP address.
func WithAddress(addr string) func(*models.Device) {
	return func(d *models.Device) { d.Address = addr }
}

// WithCredential sets the community string.
func WithCredential(c string) func(*models.Device) {
	return func(d *models.Device) { d.Credential = c }
}

// WithVendor sets the device vendor.
func WithVendor(v models.Vendor) func(*models.Device) {
	return func(d *models.Device) { d.Vendor = v }
}

// MacWalk renders dot1dTpFdbPort lines mapping each MAC (colon form) to an
// ifIndex, in the format snmpwalk -On prints.
func MacWalk(base string, entries map[string]int) string {
	var out string
	for _, mac := range sortedKeys(entries) {
		out += base + macSuffix(mac) + " = INTEGER: " + itoa(entries[mac]) + "\n"
	}
	return out
}
