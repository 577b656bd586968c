package models

import "testing"

func TestMACString(t *testing.T) {
	tests := []struct {
		mac  MAC
		want string
	}{
		{MAC{0, 27, 224, 10, 20, 30}, "00:1B:E0:0A:14:1E"},
		{MAC{255, 255, 255, 255, 255, 255}, "FF:FF:FF:FF:FF:FF"},
		{MAC{}, "00:00:00:00:00:00"},
	}
	for _, tt := range tests {
		if got := tt.mac.String(); got != tt.want {
			t.Errorf("MAC(%v).String() = %q, want %q", [6]byte(tt.mac), got, tt.want)
		}
	}
}

func TestParseVendor(t *testing.T) {
	tests := []struct {
		in   string
		want Vendor
	}{
		{"", ""},
		{"Cisco", VendorCisco},
		{"cisco", VendorCisco},
		{" ARUBA ", VendorAruba},
		{"ProCurve", VendorProCurve},
		{"hp", VendorProCurve},
		{"juniper", VendorUnknown},
	}
	for _, tt := range tests {
		if got := ParseVendor(tt.in); got != tt.want {
			t.Errorf("ParseVendor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVendorKnown(t *testing.T) {
	for _, v := range []Vendor{VendorCisco, VendorAruba, VendorProCurve} {
		if !v.Known() {
			t.Errorf("%q.Known() = false, want true", v)
		}
	}
	for _, v := range []Vendor{VendorUnknown, ""} {
		if v.Known() {
			t.Errorf("%q.Known() = true, want false", v)
		}
	}
}
