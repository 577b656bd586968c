package sshcli

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/HerbHall/switchmap/pkg/models"
)

// ParseMacTable extracts observations from MAC table command output using
// the profile's row pattern. Lines that do not look like a row (headers,
// prompts, the echoed command) are ignored. The count is of rows that
// matched but carried an unusable MAC or VLAN.
func (p *Profile) ParseMacTable(output string) ([]models.Observation, int) {
	var (
		out     []models.Observation
		skipped int
	)
	macIdx := p.row.SubexpIndex("mac")
	portIdx := p.row.SubexpIndex("port")
	vlanIdx := p.row.SubexpIndex("vlan")

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		m := p.row.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		mac, ok := ParseMAC(m[macIdx])
		if !ok {
			skipped++
			continue
		}
		vlan := models.UnknownVLAN
		if vlanIdx >= 0 && m[vlanIdx] != "" {
			n, err := strconv.Atoi(m[vlanIdx])
			if err != nil || n < 1 || n > 4094 {
				skipped++
				continue
			}
			vlan = strconv.Itoa(n)
		}
		port := m[portIdx]
		if port == "" {
			port = models.UnknownPort
		}
		out = append(out, models.Observation{MAC: mac.String(), Port: port, VLAN: vlan})
	}
	return out, skipped
}

// ParseMAC accepts the usual switch CLI spellings of a MAC address:
// 0011.2233.4455, 001122-334455, 0011-2233-4455 and colon separated.
func ParseMAC(s string) (models.MAC, bool) {
	var mac models.MAC
	digits := strings.NewReplacer(".", "", "-", "", ":", "").Replace(s)
	if len(digits) != 12 {
		return mac, false
	}
	b, err := hex.DecodeString(digits)
	if err != nil {
		return mac, false
	}
	copy(mac[:], b)
	return mac, true
}

// outputAfter drops everything up to and including the echo of cmd, the
// login banner and anything earlier commands printed. Output without an
// echo is returned unchanged.
func outputAfter(output, cmd string) string {
	output = strings.ReplaceAll(output, " \b", "")
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], cmd) {
			return strings.Join(lines[i+1:], "\n")
		}
	}
	return output
}
